package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"digit-forge/internal/config"
	"digit-forge/internal/dataset"
)

// ErrNotEnoughBatches is returned when an epoch asks for more minibatches
// than the training set holds.
var ErrNotEnoughBatches = errors.New("model: not enough minibatches")

// TwoLayerConfig sizes the hand-written network.
type TwoLayerConfig struct {
	InputSize    int
	OutputSize   int
	HiddenSize   int
	LearningRate float64
	Seed         int64
	// ScaleUpdates multiplies weight updates by LearningRate. When false the
	// rate is stored but never applied.
	ScaleUpdates bool
}

// TrainOptions controls TwoLayer.Fit.
type TrainOptions struct {
	Epochs         int
	UseMinibatches bool
	MinibatchSize  int
	// BatchesPerEpoch limits the minibatches visited per epoch. Zero visits all of them.
	BatchesPerEpoch int
}

// TwoLayer is a two-layer sigmoid network trained with manual backpropagation.
// There are no bias terms.
type TwoLayer struct {
	cfg  TwoLayerConfig
	opts TrainOptions

	W1 *mat.Dense // InputSize x HiddenSize
	W2 *mat.Dense // HiddenSize x OutputSize
}

// NewTwoLayer allocates the weights from a standard normal distribution.
func NewTwoLayer(cfg TwoLayerConfig, opts TrainOptions) (*TwoLayer, error) {
	if cfg.InputSize <= 0 || cfg.OutputSize <= 0 || cfg.HiddenSize <= 0 {
		return nil, fmt.Errorf("two-layer: sizes must be > 0 (input=%d hidden=%d output=%d)",
			cfg.InputSize, cfg.HiddenSize, cfg.OutputSize)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &TwoLayer{
		cfg:  cfg,
		opts: opts,
		W1:   randn(rng, cfg.InputSize, cfg.HiddenSize),
		W2:   randn(rng, cfg.HiddenSize, cfg.OutputSize),
	}, nil
}

// Name implements Classifier.
func (n *TwoLayer) Name() string { return config.AlgorithmCustomNet }

// Train implements Classifier using the options given at construction.
func (n *TwoLayer) Train(ctx context.Context, set dataset.Set, observe StepFunc) error {
	return n.Fit(ctx, set, n.opts, observe)
}

// Fit runs a fixed number of epochs of gradient descent.
func (n *TwoLayer) Fit(ctx context.Context, set dataset.Set, opts TrainOptions, observe StepFunc) error {
	if opts.Epochs <= 0 {
		return fmt.Errorf("two-layer: epochs must be > 0 (got %d)", opts.Epochs)
	}
	if err := n.checkSet(set); err != nil {
		return err
	}

	var batches []dataset.Batch
	if opts.UseMinibatches {
		if opts.MinibatchSize <= 0 {
			return fmt.Errorf("two-layer: minibatch size must be > 0 (got %d)", opts.MinibatchSize)
		}
		batches = dataset.Minibatches(set, opts.MinibatchSize)
		if opts.BatchesPerEpoch > len(batches) {
			return fmt.Errorf("%w: want %d per epoch, training set yields %d of size %d",
				ErrNotEnoughBatches, opts.BatchesPerEpoch, len(batches), opts.MinibatchSize)
		}
		if opts.BatchesPerEpoch > 0 {
			batches = batches[:opts.BatchesPerEpoch]
		}
	}

	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		if !opts.UseMinibatches {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			loss := n.fullBatchStep(set.Images, set.Labels)
			emit(observe, Step{Epoch: epoch, Batch: 1, Samples: set.Len(), Loss: loss, Compute: time.Since(start), Last: true})
			continue
		}
		for i, b := range batches {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			loss := n.minibatchStep(b.Images, b.Labels)
			rows, _ := b.Images.Dims()
			emit(observe, Step{
				Epoch:   epoch,
				Batch:   i + 1,
				Samples: rows,
				Loss:    loss,
				Compute: time.Since(start),
				Last:    i == len(batches)-1,
			})
		}
	}
	return nil
}

// Predict returns the sigmoid outputs, one row per image.
func (n *TwoLayer) Predict(images *mat.Dense) (*mat.Dense, error) {
	if _, c := images.Dims(); c != n.cfg.InputSize {
		return nil, fmt.Errorf("%w: images have %d columns, network expects %d", ErrShapeMismatch, c, n.cfg.InputSize)
	}
	p := n.forward(images)
	return p.out, nil
}

type pass struct {
	z1, hidden, z2, out *mat.Dense
}

func (n *TwoLayer) forward(x mat.Matrix) pass {
	var p pass
	p.z1 = &mat.Dense{}
	p.z1.Mul(x, n.W1)
	p.hidden = sigmoid(p.z1)
	p.z2 = &mat.Dense{}
	p.z2.Mul(p.hidden, n.W2)
	p.out = sigmoid(p.z2)
	return p
}

// minibatchStep evaluates the sigmoid derivative on the pre-activations.
func (n *TwoLayer) minibatchStep(x, y *mat.Dense) float64 {
	p := n.forward(x)
	errOut, loss := residual(p.out, y)

	var l2Delta mat.Dense
	l2Delta.MulElem(errOut, sigmoidPrime(p.z2))

	var back, l1Delta mat.Dense
	back.Mul(&l2Delta, n.W2.T())
	l1Delta.MulElem(&back, sigmoidPrime(p.z1))

	n.update(x, p.hidden, &l1Delta, &l2Delta)
	return loss
}

// fullBatchStep evaluates the sigmoid derivative on the activations, s*(1-s).
func (n *TwoLayer) fullBatchStep(x, y *mat.Dense) float64 {
	p := n.forward(x)
	errOut, loss := residual(p.out, y)

	var l2Delta mat.Dense
	l2Delta.MulElem(errOut, activationPrime(p.out))

	var back, l1Delta mat.Dense
	back.Mul(&l2Delta, n.W2.T())
	l1Delta.MulElem(&back, activationPrime(p.hidden))

	n.update(x, p.hidden, &l1Delta, &l2Delta)
	return loss
}

func (n *TwoLayer) update(x, hidden, l1Delta, l2Delta *mat.Dense) {
	var dW2, dW1 mat.Dense
	dW2.Mul(hidden.T(), l2Delta)
	dW1.Mul(x.T(), l1Delta)
	if n.cfg.ScaleUpdates {
		dW2.Scale(n.cfg.LearningRate, &dW2)
		dW1.Scale(n.cfg.LearningRate, &dW1)
	}
	n.W2.Sub(n.W2, &dW2)
	n.W1.Sub(n.W1, &dW1)
}

func (n *TwoLayer) checkSet(set dataset.Set) error {
	if set.Len() == 0 {
		return errors.New("two-layer: empty training set")
	}
	if _, c := set.Images.Dims(); c != n.cfg.InputSize {
		return fmt.Errorf("%w: images have %d columns, network expects %d", ErrShapeMismatch, c, n.cfg.InputSize)
	}
	r, c := set.Labels.Dims()
	if r != set.Len() || c != n.cfg.OutputSize {
		return fmt.Errorf("%w: labels are %dx%d, want %dx%d", ErrShapeMismatch, r, c, set.Len(), n.cfg.OutputSize)
	}
	return nil
}

// residual returns out-y and the mean squared error.
func residual(out, y *mat.Dense) (*mat.Dense, float64) {
	var diff mat.Dense
	diff.Sub(out, y)
	r, c := diff.Dims()
	norm := mat.Norm(&diff, 2)
	return &diff, norm * norm / float64(r*c)
}

func sigmoid(z mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return 1 / (1 + math.Exp(-v))
	}, z)
	return &out
}

func sigmoidPrime(z mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		s := 1 / (1 + math.Exp(-v))
		return s * (1 - s)
	}, z)
	return &out
}

func activationPrime(s mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return v * (1 - v)
	}, s)
	return &out
}

func randn(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(r, c, data)
}
