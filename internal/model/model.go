package model

import (
	"context"
	"errors"
	"time"

	"gonum.org/v1/gonum/mat"

	"digit-forge/internal/dataset"
)

// ErrShapeMismatch indicates matrices whose dimensions do not line up.
var ErrShapeMismatch = errors.New("model: shape mismatch")

// Step reports one training update.
type Step struct {
	Epoch   int
	Batch   int
	Samples int
	Loss    float64
	Compute time.Duration
	// Last is set on the final update of an epoch.
	Last bool
}

// StepFunc observes training progress. It may be nil.
type StepFunc func(Step)

// Classifier defines the functionality shared by every algorithm.
type Classifier interface {
	// Name is the algorithm identifier used in banners and reports.
	Name() string
	Train(ctx context.Context, set dataset.Set, observe StepFunc) error
	// Predict returns one row of class scores per input row.
	Predict(images *mat.Dense) (*mat.Dense, error)
}

func emit(observe StepFunc, s Step) {
	if observe != nil {
		observe(s)
	}
}
