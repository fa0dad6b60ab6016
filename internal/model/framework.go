package model

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/optim"
	"github.com/born-ml/born/tensor"
	"gonum.org/v1/gonum/mat"

	"digit-forge/internal/config"
	"digit-forge/internal/dataset"
)

type bornBackend = *autodiff.Backend[*cpu.Backend]

const predictBatch = 256

// FrameworkConfig sizes the framework-backed network.
type FrameworkConfig struct {
	InputSize    int
	HiddenSize   int
	OutputSize   int
	LearningRate float64
	Epochs       int
	BatchSize    int
}

// FrameworkNet is a dense classifier trained by Born:
// flatten -> linear+ReLU -> linear -> softmax, Adam on cross-entropy.
type FrameworkNet struct {
	cfg       FrameworkConfig
	backend   bornBackend
	net       *nn.Sequential[bornBackend]
	optimizer optim.Optimizer
}

// NewFrameworkNet builds the network on Born's CPU backend with autodiff.
func NewFrameworkNet(cfg FrameworkConfig) (*FrameworkNet, error) {
	if cfg.InputSize <= 0 || cfg.HiddenSize <= 0 || cfg.OutputSize <= 0 {
		return nil, fmt.Errorf("framework net: sizes must be > 0 (input=%d hidden=%d output=%d)",
			cfg.InputSize, cfg.HiddenSize, cfg.OutputSize)
	}
	if cfg.Epochs <= 0 || cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("framework net: epochs and batch size must be > 0 (epochs=%d batch=%d)",
			cfg.Epochs, cfg.BatchSize)
	}

	backend := autodiff.New(cpu.New())
	net := nn.NewSequential[bornBackend](
		nn.NewLinear(cfg.InputSize, cfg.HiddenSize, backend),
		nn.NewReLU[bornBackend](),
		nn.NewLinear(cfg.HiddenSize, cfg.OutputSize, backend),
	)
	optimizer := optim.NewAdam(net.Parameters(), optim.AdamConfig{
		LR:    float32(cfg.LearningRate),
		Betas: [2]float32{0.9, 0.999},
		Eps:   1e-8,
	}, backend)

	return &FrameworkNet{cfg: cfg, backend: backend, net: net, optimizer: optimizer}, nil
}

// Name implements Classifier.
func (f *FrameworkNet) Name() string { return config.AlgorithmFrameworkNet }

// Train fits the network for the configured number of epochs.
func (f *FrameworkNet) Train(ctx context.Context, set dataset.Set, observe StepFunc) error {
	if set.Len() == 0 {
		return fmt.Errorf("framework net: empty training set")
	}
	if _, c := set.Images.Dims(); c != f.cfg.InputSize {
		return fmt.Errorf("%w: images have %d columns, network expects %d", ErrShapeMismatch, c, f.cfg.InputSize)
	}

	batches := dataset.Minibatches(set, f.cfg.BatchSize)
	tape := f.backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	for epoch := 1; epoch <= f.cfg.Epochs; epoch++ {
		for i, b := range batches {
			if err := ctx.Err(); err != nil {
				tape.Clear()
				return err
			}
			start := time.Now()
			loss, err := f.step(b)
			if err != nil {
				return fmt.Errorf("framework net: epoch %d batch %d: %w", epoch, i+1, err)
			}
			rows, _ := b.Images.Dims()
			emit(observe, Step{
				Epoch:   epoch,
				Batch:   i + 1,
				Samples: rows,
				Loss:    float64(loss),
				Compute: time.Since(start),
				Last:    i == len(batches)-1,
			})
		}
	}
	return nil
}

func (f *FrameworkNet) step(b dataset.Batch) (float32, error) {
	x, err := f.images(b.Images)
	if err != nil {
		return 0, err
	}
	y, err := f.targets(b.Labels)
	if err != nil {
		return 0, err
	}

	f.optimizer.ZeroGrad()
	logits := f.net.Forward(x)
	lossRaw := f.backend.CrossEntropy(logits.Raw(), y.Raw())
	loss := tensor.New[float32, bornBackend](lossRaw, f.backend)
	value := lossRaw.AsFloat32()[0]

	outputGrad, err := tensor.NewRaw(loss.Shape(), loss.DType(), f.backend.Device())
	if err != nil {
		return 0, err
	}
	outputGrad.AsFloat32()[0] = 1

	grads := f.backend.Tape().Backward(outputGrad, f.backend)
	f.optimizer.Step(grads)
	f.backend.Tape().Clear()
	return value, nil
}

// Predict returns softmax probabilities, one row per image.
func (f *FrameworkNet) Predict(images *mat.Dense) (*mat.Dense, error) {
	n, c := images.Dims()
	if c != f.cfg.InputSize {
		return nil, fmt.Errorf("%w: images have %d columns, network expects %d", ErrShapeMismatch, c, f.cfg.InputSize)
	}

	tape := f.backend.Tape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if wasRecording {
			tape.StartRecording()
		}
	}()

	out := mat.NewDense(n, f.cfg.OutputSize, nil)
	for start := 0; start < n; start += predictBatch {
		end := min(start+predictBatch, n)
		x, err := f.images(images.Slice(start, end, 0, c))
		if err != nil {
			return nil, err
		}
		logits := f.net.Forward(x).Raw().AsFloat32()
		for i := 0; i < end-start; i++ {
			out.SetRow(start+i, softmax(logits[i*f.cfg.OutputSize:(i+1)*f.cfg.OutputSize]))
		}
	}
	return out, nil
}

func (f *FrameworkNet) images(m mat.Matrix) (*tensor.Tensor[float32, bornBackend], error) {
	r, c := m.Dims()
	data := make([]float32, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, float32(m.At(i, j)))
		}
	}
	return tensor.FromSlice(data, tensor.Shape{r, c}, f.backend)
}

func (f *FrameworkNet) targets(onehot mat.Matrix) (*tensor.Tensor[int32, bornBackend], error) {
	labels := dataset.Labels(onehot)
	data := make([]int32, len(labels))
	for i, l := range labels {
		data[i] = int32(l)
	}
	return tensor.FromSlice(data, tensor.Shape{len(data)}, f.backend)
}

func softmax(logits []float32) []float64 {
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		maxLogit = math.Max(maxLogit, float64(v))
	}
	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(float64(v) - maxLogit)
		sum += out[i]
	}
	inv := 1.0 / sum
	for i := range out {
		out[i] *= inv
	}
	return out
}
