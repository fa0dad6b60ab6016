package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, AlgorithmFrameworkNet, cfg.Algorithm)
	assert.Equal(t, int64(1618), cfg.Seed)
	assert.Equal(t, 100, cfg.Custom.MinibatchSize)
	assert.False(t, cfg.Custom.ScaleUpdates)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
algorithm: custom_net
custom_net:
  hidden_size: 32
  epochs: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmCustomNet, cfg.Algorithm)
	assert.Equal(t, 32, cfg.Custom.HiddenSize)
	assert.Equal(t, 3, cfg.Custom.Epochs)
	// untouched keys keep their defaults
	assert.Equal(t, 0.1, cfg.Custom.LearningRate)
	assert.Equal(t, 128, cfg.Framework.HiddenSize)
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "default.yaml"))
	require.NoError(t, err)
	defaults, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, defaults, cfg)
	assert.Zero(t, cfg.Custom.BatchesPerEpoch)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "algorithm: guesser\nepochz: 4\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadRejectsUnknownAlgorithm(t *testing.T) {
	path := writeConfig(t, "algorithm: knn\n")
	_, err := Load(path)
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	yes := true
	seven := int64(7)
	cfg.ApplyOverrides(Overrides{
		Algorithm:     AlgorithmGuesser,
		Synthetic:     &yes,
		FullBatch:     &yes,
		Epochs:        2,
		MinibatchSize: 10,
		Seed:          &seven,
	})
	assert.Equal(t, AlgorithmGuesser, cfg.Algorithm)
	assert.True(t, cfg.Data.Synthetic)
	assert.False(t, cfg.Custom.Minibatches)
	assert.Equal(t, 2, cfg.Custom.Epochs)
	assert.Equal(t, 2, cfg.Framework.Epochs)
	assert.Equal(t, 10, cfg.Framework.BatchSize)
	assert.Equal(t, int64(7), cfg.Seed)

	// zero values leave the config alone
	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, AlgorithmGuesser, cfg.Algorithm)
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestApplyOverridesZeroSeed(t *testing.T) {
	cfg := Default()
	zero := int64(0)
	cfg.ApplyOverrides(Overrides{Seed: &zero})
	assert.Equal(t, int64(0), cfg.Seed)
}

func TestLogLevelFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnv, "debug")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"no data dir":       func(c *Config) { c.Data.Dir = "" },
		"download mirror":   func(c *Config) { c.Data.Download = true; c.Data.Mirror = "" },
		"hidden size":       func(c *Config) { c.Custom.HiddenSize = 0 },
		"minibatch size":    func(c *Config) { c.Custom.MinibatchSize = 0 },
		"batches per epoch": func(c *Config) { c.Custom.BatchesPerEpoch = -1 },
		"framework epochs":  func(c *Config) { c.Framework.Epochs = 0 },
		"framework lr":      func(c *Config) { c.Framework.LearningRate = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
