package model

import (
	"fmt"

	"digit-forge/internal/config"
	"digit-forge/internal/dataset"
)

// New selects and constructs the classifier named by cfg.Algorithm.
// inputSize is the flattened image width.
func New(cfg *config.Config, inputSize int) (Classifier, error) {
	switch cfg.Algorithm {
	case config.AlgorithmGuesser:
		return NewGuesser(dataset.NumClasses, cfg.Seed), nil
	case config.AlgorithmCustomNet:
		net, err := NewTwoLayer(TwoLayerConfig{
			InputSize:    inputSize,
			OutputSize:   dataset.NumClasses,
			HiddenSize:   cfg.Custom.HiddenSize,
			LearningRate: cfg.Custom.LearningRate,
			Seed:         cfg.Seed,
			ScaleUpdates: cfg.Custom.ScaleUpdates,
		}, TrainOptions{
			Epochs:          cfg.Custom.Epochs,
			UseMinibatches:  cfg.Custom.Minibatches,
			MinibatchSize:   cfg.Custom.MinibatchSize,
			BatchesPerEpoch: cfg.Custom.BatchesPerEpoch,
		})
		if err != nil {
			return nil, err
		}
		return net, nil
	case config.AlgorithmFrameworkNet:
		net, err := NewFrameworkNet(FrameworkConfig{
			InputSize:    inputSize,
			HiddenSize:   cfg.Framework.HiddenSize,
			OutputSize:   dataset.NumClasses,
			LearningRate: cfg.Framework.LearningRate,
			Epochs:       cfg.Framework.Epochs,
			BatchSize:    cfg.Framework.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return net, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownAlgorithm, cfg.Algorithm)
	}
}
