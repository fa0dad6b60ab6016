package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"digit-forge/internal/config"
	"digit-forge/internal/dataset"
	"digit-forge/internal/metrics"
	"digit-forge/internal/model"
)

// RunOptions carries the collaborators of a run.
type RunOptions struct {
	// Out receives the diagnostics, banners and report. Defaults to io.Discard.
	Out    io.Writer
	Logger *zap.Logger
	// HTTPClient is used when the dataset has to be downloaded.
	HTTPClient *http.Client
}

// Run executes load -> preprocess -> train -> predict -> evaluate once.
func Run(ctx context.Context, cfg *config.Config, opts RunOptions) (*metrics.Report, error) {
	if cfg == nil {
		return nil, errors.New("trainer: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()), zap.String("algorithm", cfg.Algorithm))

	raw, err := loadRaw(ctx, cfg, opts.HTTPClient, logger)
	if err != nil {
		return nil, err
	}
	dataset.Describe(out, raw)

	data, err := dataset.Preprocess(raw)
	if err != nil {
		return nil, err
	}
	dataset.DescribeProcessed(out, data)

	_, inputSize := data.Train.Images.Dims()
	clf, err := model.New(cfg, inputSize)
	if err != nil {
		return nil, err
	}

	if err := train(ctx, clf, data.Train, out, logger); err != nil {
		return nil, err
	}

	preds, err := predict(clf, data.Test, out, logger)
	if err != nil {
		return nil, err
	}

	report, err := metrics.Evaluate(preds, data.Test.Labels)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	report.Print(out, clf.Name())
	if ce := logger.Check(zap.DebugLevel, "confusion matrix"); ce != nil {
		var table strings.Builder
		report.Confusion.Fprint(&table)
		ce.Write(zap.String("table", table.String()))
	}
	logger.Info("evaluation done",
		zap.Int("samples", report.Total),
		zap.Int("correct", report.Correct),
		zap.Float64("accuracy", report.Accuracy),
	)
	return report, nil
}

func loadRaw(ctx context.Context, cfg *config.Config, client *http.Client, logger *zap.Logger) (*dataset.RawData, error) {
	start := time.Now()
	if cfg.Data.Synthetic {
		n := cfg.Data.SyntheticSamples
		raw := dataset.Synthetic(n, max(n/6, 1), cfg.Seed)
		logger.Info("generated synthetic dataset", zap.Int("train", raw.Train.Len()), zap.Int("test", raw.Test.Len()))
		return raw, nil
	}

	if cfg.Data.Download {
		err := dataset.Fetch(ctx, dataset.FetchOptions{
			Dir:    cfg.Data.Dir,
			Mirror: cfg.Data.Mirror,
			Client: client,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
	}

	raw, err := dataset.Load(ctx, cfg.Data.Dir, dataset.Limits{
		MaxTrain: cfg.Data.MaxTrain,
		MaxTest:  cfg.Data.MaxTest,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("loaded dataset",
		zap.String("dir", cfg.Data.Dir),
		zap.Int("train", raw.Train.Len()),
		zap.Int("test", raw.Test.Len()),
		zap.Duration("took", time.Since(start)),
	)
	return raw, nil
}

func train(ctx context.Context, clf model.Classifier, set dataset.Set, out io.Writer, logger *zap.Logger) error {
	if clf.Name() == config.AlgorithmGuesser {
		return clf.Train(ctx, set, nil)
	}
	fmt.Fprintf(out, "Building and training %s.\n", clf.Name())

	var window metrics.Window
	start := time.Now()
	err := clf.Train(ctx, set, func(s model.Step) {
		window.Record(s.Samples, s.Compute, s.Loss)
		if !s.Last {
			return
		}
		snap := window.Snapshot()
		logger.Info("epoch done",
			zap.Int("epoch", s.Epoch),
			zap.Int("steps", snap.Steps),
			zap.Float64("images_per_sec", snap.ImagesPerSec),
			zap.Float64("compute_ms", snap.AvgComputeMS),
			zap.Float64("mean_loss", snap.MeanLoss),
		)
	})
	if err != nil {
		return fmt.Errorf("train %s: %w", clf.Name(), err)
	}
	logger.Info("training done", zap.Duration("took", time.Since(start)))
	return nil
}

func predict(clf model.Classifier, set dataset.Set, out io.Writer, logger *zap.Logger) (*mat.Dense, error) {
	if clf.Name() != config.AlgorithmGuesser {
		fmt.Fprintf(out, "Testing %s.\n", clf.Name())
	}
	start := time.Now()
	scores, err := clf.Predict(set.Images)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", clf.Name(), err)
	}
	logger.Debug("inference done", zap.Int("samples", set.Len()), zap.Duration("took", time.Since(start)))
	return model.Harden(scores), nil
}
