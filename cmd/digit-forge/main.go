package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"digit-forge/internal/config"
	"digit-forge/internal/trainer"
)

type flags struct {
	configPath    string
	algorithm     string
	dataDir       string
	download      bool
	synthetic     bool
	epochs        int
	hidden        int
	minibatchSize int
	fullBatch     bool
	seed          int64
	maxTrain      int
	maxTest       int
	logLevel      string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "digit-forge",
		Short: "Train and score a handwritten-digit classifier on MNIST",
		Long: `digit-forge loads MNIST, trains one of three classifiers
(guesser, custom_net, framework_net), predicts the test split and prints
per-class precision, recall and F1 plus overall accuracy.

Run without arguments to use the default configuration.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "Path to YAML config (defaults are used when empty)")
	fl.StringVar(&f.algorithm, "algorithm", "", "Classifier: guesser, custom_net or framework_net")
	fl.StringVar(&f.dataDir, "data-dir", "", "Directory holding the MNIST IDX files")
	fl.BoolVar(&f.download, "download", false, "Download missing dataset files from the mirror")
	fl.BoolVar(&f.synthetic, "synthetic", false, "Use generated data instead of MNIST")
	fl.IntVar(&f.epochs, "epochs", 0, "Training epochs")
	fl.IntVar(&f.hidden, "hidden", 0, "Hidden layer width")
	fl.IntVar(&f.minibatchSize, "minibatch-size", 0, "Minibatch size")
	fl.BoolVar(&f.fullBatch, "full-batch", false, "Train custom_net with full-batch updates")
	fl.Int64Var(&f.seed, "seed", 0, "PRNG seed")
	fl.IntVar(&f.maxTrain, "max-train", 0, "Cap on training samples (0 = all)")
	fl.IntVar(&f.maxTest, "max-test", 0, "Cap on test samples (0 = all)")
	fl.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed to load config: %v\n", err)
		return err
	}

	cfg.ApplyOverrides(f.overrides(cmd.Flags().Changed))

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "invalid config: %v\n", err)
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed to initialize logger: %v\n", err)
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = trainer.Run(ctx, cfg, trainer.RunOptions{
		Out:    cmd.OutOrStdout(),
		Logger: logger,
	})
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		fmt.Fprintf(cmd.ErrOrStderr(), "run failed: %v\n", err)
		return err
	}
	return nil
}

// overrides maps flags onto config overrides. Tri-state flags only apply
// when changed reports them as set on the command line.
func (f *flags) overrides(changed func(name string) bool) config.Overrides {
	o := config.Overrides{
		Algorithm:     f.algorithm,
		DataDir:       f.dataDir,
		Epochs:        f.epochs,
		HiddenSize:    f.hidden,
		MinibatchSize: f.minibatchSize,
		MaxTrain:      f.maxTrain,
		MaxTest:       f.maxTest,
		LogLevel:      f.logLevel,
	}
	if changed("download") {
		o.Download = &f.download
	}
	if changed("synthetic") {
		o.Synthetic = &f.synthetic
	}
	if changed("seed") {
		o.Seed = &f.seed
	}
	if changed("full-batch") {
		o.FullBatch = &f.fullBatch
	}
	return o
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
