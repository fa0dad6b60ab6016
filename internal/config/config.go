package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Algorithm names accepted by the pipeline.
const (
	AlgorithmGuesser      = "guesser"
	AlgorithmCustomNet    = "custom_net"
	AlgorithmFrameworkNet = "framework_net"
)

// LogLevelEnv overrides the configured log level when set.
const LogLevelEnv = "DIGIT_FORGE_LOG_LEVEL"

// ErrUnknownAlgorithm is returned for an algorithm name outside Algorithms.
var ErrUnknownAlgorithm = errors.New("algorithm not recognized")

// Algorithms lists the selectable classifiers.
var Algorithms = []string{AlgorithmGuesser, AlgorithmCustomNet, AlgorithmFrameworkNet}

// Config captures the runtime knobs for a run.
type Config struct {
	Algorithm string             `yaml:"algorithm"`
	Seed      int64              `yaml:"seed"`
	LogLevel  string             `yaml:"log_level"`
	Data      DataConfig         `yaml:"data"`
	Custom    CustomNetConfig    `yaml:"custom_net"`
	Framework FrameworkNetConfig `yaml:"framework_net"`
}

// DataConfig locates the dataset.
type DataConfig struct {
	Dir              string `yaml:"dir"`
	Download         bool   `yaml:"download"`
	Mirror           string `yaml:"mirror"`
	Synthetic        bool   `yaml:"synthetic"`
	SyntheticSamples int    `yaml:"synthetic_samples"`
	MaxTrain         int    `yaml:"max_train"`
	MaxTest          int    `yaml:"max_test"`
}

// CustomNetConfig configures the hand-written two-layer network.
type CustomNetConfig struct {
	HiddenSize    int     `yaml:"hidden_size"`
	LearningRate  float64 `yaml:"learning_rate"`
	Epochs        int     `yaml:"epochs"`
	Minibatches   bool    `yaml:"minibatches"`
	MinibatchSize int     `yaml:"minibatch_size"`
	// 0 means every minibatch of the training set, including a short tail.
	BatchesPerEpoch int `yaml:"batches_per_epoch"`
	// ScaleUpdates applies LearningRate to the weight updates. Off by default.
	ScaleUpdates bool `yaml:"scale_updates"`
}

// FrameworkNetConfig configures the framework-backed network.
type FrameworkNetConfig struct {
	HiddenSize   int     `yaml:"hidden_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
}

// Overrides captures CLI supplied values. Zero values and nil pointers are ignored.
type Overrides struct {
	Algorithm     string
	DataDir       string
	Download      *bool
	Synthetic     *bool
	Epochs        int
	HiddenSize    int
	MinibatchSize int
	FullBatch     *bool
	Seed          *int64
	MaxTrain      int
	MaxTest       int
	LogLevel      string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Algorithm: AlgorithmFrameworkNet,
		Seed:      1618,
		LogLevel:  "warn",
		Data: DataConfig{
			Dir:              "data",
			Mirror:           "https://storage.googleapis.com/cvdf-datasets/mnist/",
			SyntheticSamples: 1000,
		},
		Custom: CustomNetConfig{
			HiddenSize:    10000,
			LearningRate:  0.1,
			Epochs:        100,
			Minibatches:   true,
			MinibatchSize: 100,
		},
		Framework: FrameworkNetConfig{
			HiddenSize:   128,
			LearningRate: 0.001,
			Epochs:       10,
			BatchSize:    32,
		},
	}
}

// Load reads a Config from YAML on top of Default and validates it.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		cfg.ApplyEnv()
		return cfg, cfg.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := parseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if lvl := strings.TrimSpace(os.Getenv(LogLevelEnv)); lvl != "" {
		c.LogLevel = lvl
	}
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Algorithm != "" {
		c.Algorithm = o.Algorithm
	}
	if o.DataDir != "" {
		c.Data.Dir = o.DataDir
	}
	if o.Download != nil {
		c.Data.Download = *o.Download
	}
	if o.Synthetic != nil {
		c.Data.Synthetic = *o.Synthetic
	}
	if o.Epochs > 0 {
		c.Custom.Epochs = o.Epochs
		c.Framework.Epochs = o.Epochs
	}
	if o.HiddenSize > 0 {
		c.Custom.HiddenSize = o.HiddenSize
		c.Framework.HiddenSize = o.HiddenSize
	}
	if o.MinibatchSize > 0 {
		c.Custom.MinibatchSize = o.MinibatchSize
		c.Framework.BatchSize = o.MinibatchSize
	}
	if o.FullBatch != nil {
		c.Custom.Minibatches = !*o.FullBatch
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.MaxTrain > 0 {
		c.Data.MaxTrain = o.MaxTrain
	}
	if o.MaxTest > 0 {
		c.Data.MaxTest = o.MaxTest
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if !knownAlgorithm(c.Algorithm) {
		return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownAlgorithm, c.Algorithm, strings.Join(Algorithms, ", "))
	}
	if !c.Data.Synthetic && c.Data.Dir == "" {
		return errors.New("data.dir must be set unless data.synthetic is true")
	}
	if c.Data.Download && c.Data.Mirror == "" {
		return errors.New("data.mirror must be set when data.download is true")
	}
	if c.Data.Synthetic && c.Data.SyntheticSamples <= 0 {
		return fmt.Errorf("data.synthetic_samples must be > 0 (got %d)", c.Data.SyntheticSamples)
	}
	if c.Data.MaxTrain < 0 || c.Data.MaxTest < 0 {
		return errors.New("data.max_train and data.max_test must be >= 0")
	}
	if c.Custom.HiddenSize <= 0 {
		return fmt.Errorf("custom_net.hidden_size must be > 0 (got %d)", c.Custom.HiddenSize)
	}
	if c.Custom.Epochs <= 0 {
		return fmt.Errorf("custom_net.epochs must be > 0 (got %d)", c.Custom.Epochs)
	}
	if c.Custom.Minibatches && c.Custom.MinibatchSize <= 0 {
		return fmt.Errorf("custom_net.minibatch_size must be > 0 (got %d)", c.Custom.MinibatchSize)
	}
	if c.Custom.BatchesPerEpoch < 0 {
		return fmt.Errorf("custom_net.batches_per_epoch must be >= 0 (got %d)", c.Custom.BatchesPerEpoch)
	}
	if c.Framework.HiddenSize <= 0 {
		return fmt.Errorf("framework_net.hidden_size must be > 0 (got %d)", c.Framework.HiddenSize)
	}
	if c.Framework.LearningRate <= 0 {
		return fmt.Errorf("framework_net.learning_rate must be > 0 (got %g)", c.Framework.LearningRate)
	}
	if c.Framework.Epochs <= 0 {
		return fmt.Errorf("framework_net.epochs must be > 0 (got %d)", c.Framework.Epochs)
	}
	if c.Framework.BatchSize <= 0 {
		return fmt.Errorf("framework_net.batch_size must be > 0 (got %d)", c.Framework.BatchSize)
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	return nil
}

func knownAlgorithm(name string) bool {
	for _, a := range Algorithms {
		if a == name {
			return true
		}
	}
	return false
}

func parseYAML(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
