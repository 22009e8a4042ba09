package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown pipeline mode",
			mutate:  func(c *Config) { c.Pipeline.Mode = "parallel" },
			wantErr: true,
		},
		{
			name:    "negative lead",
			mutate:  func(c *Config) { c.Pipeline.Transient.Lead = -1 },
			wantErr: true,
		},
		{
			name:    "unknown trim mode",
			mutate:  func(c *Config) { c.Pipeline.Transient.Mode = "frames" },
			wantErr: true,
		},
		{
			name:    "unknown rate estimator",
			mutate:  func(c *Config) { c.Pipeline.Transient.RateEstimator = "median" },
			wantErr: true,
		},
		{
			name:    "empty exclude range",
			mutate:  func(c *Config) { c.Pipeline.Exclude = []TimeRange{{Start: 5, End: 5}} },
			wantErr: true,
		},
		{
			name:    "valid exclude range",
			mutate:  func(c *Config) { c.Pipeline.Exclude = []TimeRange{{Start: 5, End: 6}} },
			wantErr: false,
		},
		{
			name:    "component count other than 3",
			mutate:  func(c *Config) { c.ICA.Components = 4 },
			wantErr: true,
		},
		{
			name:    "zero tolerance",
			mutate:  func(c *Config) { c.ICA.Tol = 0 },
			wantErr: true,
		},
		{
			name:    "zero max iter",
			mutate:  func(c *Config) { c.ICA.MaxIter = 0 },
			wantErr: true,
		},
		{
			name:    "unknown convergence policy",
			mutate:  func(c *Config) { c.ICA.ConvergencePolicy = "ignore" },
			wantErr: true,
		},
		{
			name:    "ragged warm start",
			mutate:  func(c *Config) { c.ICA.WarmStart = [][]float64{{1, 0, 0}, {0, 1}, {0, 0, 1}} },
			wantErr: true,
		},
		{
			name:    "low precision",
			mutate:  func(c *Config) { c.Output.Precision = 8 },
			wantErr: true,
		},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.Publish.Enabled = true
				c.Publish.Type = "kafka"
			},
			wantErr: true,
		},
		{
			name: "unknown payload compression",
			mutate: func(c *Config) {
				c.Publish.Enabled = true
				c.Publish.Compression = "zstd"
			},
			wantErr: true,
		},
		{
			name: "disabled publisher is not validated",
			mutate: func(c *Config) {
				c.Publish.Type = "carrier-pigeon"
			},
			wantErr: false,
		},
		{
			name:    "invalid logging level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cardiacam.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeSeparate, cfg.Pipeline.Mode)
	assert.Equal(t, 7.0, cfg.Pipeline.Transient.Lead)
	assert.Equal(t, 1.0, cfg.Pipeline.Transient.Trail)
	assert.Equal(t, 40000, cfg.ICA.MaxIter)
	assert.Equal(t, 1e-14, cfg.ICA.Tol)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Nil(t, cfg.ICA.InitialMatrix())
}

func TestLoad_File(t *testing.T) {
	yaml := `
pipeline:
  mode: combined
  region_names: [brow, jaw]
  transient:
    lead: 2.5
    trail: 0.5
    mode: rate
    rate_estimator: local
    local_index: 100
  exclude:
    - start: 10
      end: 12.5
ica:
  max_iter: 500
  tol: 1.0e-10
  convergence_policy: abort
  warm_start:
    - [1, 0, 0]
    - [0, 1, 0]
    - [0, 0, 1]
publish:
  enabled: true
  type: nats
  url: nats://localhost:4222
`
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeCombined, cfg.Pipeline.Mode)
	assert.Equal(t, "jaw", cfg.Pipeline.RegionName(1))
	assert.Equal(t, "region2", cfg.Pipeline.RegionName(2))
	assert.Equal(t, TrimRate, cfg.Pipeline.Transient.Mode)
	assert.Equal(t, RateLocal, cfg.Pipeline.Transient.RateEstimator)
	assert.Equal(t, 100, cfg.Pipeline.Transient.LocalIndex)
	require.Len(t, cfg.Pipeline.Exclude, 1)
	assert.Equal(t, TimeRange{Start: 10, End: 12.5}, cfg.Pipeline.Exclude[0])
	assert.Equal(t, 500, cfg.ICA.MaxIter)
	assert.True(t, cfg.ICA.AbortOnNonConvergence())
	assert.Equal(t, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, cfg.ICA.InitialMatrix())
	assert.True(t, cfg.Publish.Enabled)
	assert.Equal(t, "cardiacam", cfg.Publish.Subject)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cardiacam.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ica:\n  max_iter: 100\n"), 0o644))

	t.Setenv("CARDIACAM_ICA_MAX_ITER", "250")
	t.Setenv("CARDIACAM_PIPELINE_MODE", "combined")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.ICA.MaxIter)
	assert.Equal(t, ModeCombined, cfg.Pipeline.Mode)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ica:\n  components: 2\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestInitialMatrix_DefaultWarmStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ICA.UseDefaultWarmStart = true

	m := cfg.ICA.InitialMatrix()
	require.Len(t, m, 3)
	assert.InDelta(t, 0.97166715, m[0][1], 1e-12)
}
