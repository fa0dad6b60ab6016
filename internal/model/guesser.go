package model

import (
	"context"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"digit-forge/internal/config"
	"digit-forge/internal/dataset"
)

// Guesser predicts a uniformly random class for every sample.
type Guesser struct {
	classes int
	rng     *rand.Rand
}

// NewGuesser constructs a guesser over classes, seeded for reproducibility.
func NewGuesser(classes int, seed int64) *Guesser {
	if classes <= 0 {
		classes = dataset.NumClasses
	}
	return &Guesser{classes: classes, rng: rand.New(rand.NewSource(seed))}
}

// Name implements Classifier.
func (g *Guesser) Name() string { return config.AlgorithmGuesser }

// Train is a no-op; there is nothing to learn.
func (g *Guesser) Train(ctx context.Context, _ dataset.Set, _ StepFunc) error {
	return ctx.Err()
}

// Predict returns one one-hot row per image.
func (g *Guesser) Predict(images *mat.Dense) (*mat.Dense, error) {
	n, _ := images.Dims()
	out := mat.NewDense(n, g.classes, nil)
	for i := 0; i < n; i++ {
		out.Set(i, g.rng.Intn(g.classes), 1)
	}
	return out, nil
}
