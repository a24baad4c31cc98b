package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.HTTP.IdleTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, 0.01, cfg.Descent.LearningRate)
	assert.Equal(t, 10000, cfg.Descent.Iterations)
	assert.Equal(t, 100000, cfg.Descent.MaxCostHistory)
	assert.Equal(t, 10, cfg.Descent.Snapshots)
	assert.Equal(t, time.Hour, cfg.Jobs.TTL)
	assert.Equal(t, 4, cfg.Jobs.SweepWorkers)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadDevelopmentLogsAtDebug(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("GD_LEARNING_RATE", "0.05")
	t.Setenv("GD_ITERATIONS", "500")
	t.Setenv("GD_MAX_COST_HISTORY", "50")
	t.Setenv("FIT_TTL", "5m")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 0.05, cfg.Descent.LearningRate)
	assert.Equal(t, 500, cfg.Descent.Iterations)
	assert.Equal(t, 50, cfg.Descent.MaxCostHistory)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.TTL)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unparsable port", key: "HTTP_PORT", value: "eighty"},
		{name: "zero learning rate", key: "GD_LEARNING_RATE", value: "0"},
		{name: "negative iterations", key: "GD_ITERATIONS", value: "-3"},
		{name: "negative snapshots", key: "GD_SNAPSHOTS", value: "-1"},
		{name: "iterations above limit", key: "GD_MAX_ITERATIONS", value: "10"},
		{name: "no sweep workers", key: "FIT_SWEEP_WORKERS", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestDefaultRun(t *testing.T) {
	r := DefaultRun()

	assert.Equal(t, []float64{1, 2}, r.Data.X)
	assert.Equal(t, []float64{300, 500}, r.Data.Y)
	assert.Equal(t, 2.0, r.Initial.W)
	assert.Equal(t, 1.0, r.Initial.B)
	assert.Equal(t, 0.01, r.LearningRate)
	assert.Equal(t, 10000, r.Iterations)
}

func TestLoadRun(t *testing.T) {
	dir := t.TempDir()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte("iterations: 250\ninitial:\n  w: 0\n"), 0o600))

		r, err := LoadRun(path)
		require.NoError(t, err)
		assert.Equal(t, 250, r.Iterations)
		assert.Equal(t, 0.0, r.Initial.W)
		assert.Equal(t, 1.0, r.Initial.B)
		assert.Equal(t, 0.01, r.LearningRate)
		assert.Equal(t, []float64{1, 2}, r.Data.X)
	})

	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(dir, "run.yaml")
		want := DefaultRun()
		want.Data.X = []float64{1, 2, 3}
		want.Data.Y = []float64{2, 4, 6}
		want.LearningRate = 0.1
		require.NoError(t, want.Save(path))

		got, err := LoadRun(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRun(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("iterations: [oops"), 0o600))

		_, err := LoadRun(path)
		assert.Error(t, err)
	})
}
