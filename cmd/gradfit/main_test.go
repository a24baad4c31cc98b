package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/gradfit/internal/config"
	"github.com/copyleftdev/gradfit/internal/logging"
)

func quietLogger() *logging.Logger {
	return logging.NewConsole(logging.ErrorLevel)
}

func TestRunDefaultExample(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), Config{plot: false}, quietLogger(), &out)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Initial parameters: w=2, b=1")
	assert.Contains(t, s, "Cost at initial w,b: 83308.500")
	assert.Contains(t, s, "Gradient at initial w,b: dj_dw=-643.5, dj_db=-396")
	assert.Contains(t, s, "(w,b) found by gradient descent: (199.9929,100.0115)")
	assert.Contains(t, s, "(w,b) by least squares:          (200.0000,100.0000)")
	assert.Contains(t, s, "Prediction for x=1: 300.0 (actual 300)")
	assert.Contains(t, s, "Prediction for x=2: 500.0 (actual 500)")
	assert.NotContains(t, s, "Wrote")
}

func TestRunWithRunFileAndCharts(t *testing.T) {
	dir := t.TempDir()

	r := config.DefaultRun()
	r.Data.X = []float64{0, 1, 2, 3}
	r.Data.Y = []float64{1, 3, 5, 7}
	r.Initial.W, r.Initial.B = 0, 0
	r.LearningRate = 0.05
	r.Iterations = 2000
	runPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, r.Save(runPath))

	savePath := filepath.Join(dir, "effective.yaml")
	outDir := filepath.Join(dir, "charts")

	var out bytes.Buffer
	err := run(context.Background(), Config{
		runPath:  runPath,
		savePath: savePath,
		outDir:   outDir,
		plot:     true,
	}, quietLogger(), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "(w,b) found by gradient descent: (  2.0000,  1.0000)")

	for _, name := range []string{"data.png", "fit.png", "cost.png"} {
		info, err := os.Stat(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}

	saved, err := config.LoadRun(savePath)
	require.NoError(t, err)
	assert.Equal(t, r, saved)
}

func TestRunZeroIterationsSkipsCostChart(t *testing.T) {
	dir := t.TempDir()
	runPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(runPath, []byte("iterations: 0\n"), 0o600))

	var out bytes.Buffer
	err := run(context.Background(), Config{runPath: runPath, outDir: dir, plot: true}, quietLogger(), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "(w,b) found by gradient descent: (  2.0000,  1.0000)")
	assert.FileExists(t, filepath.Join(dir, "fit.png"))
	assert.NoFileExists(t, filepath.Join(dir, "cost.png"))
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing run file", cfg: Config{runPath: filepath.Join(dir, "nope.yaml")}},
		{name: "malformed yaml", cfg: Config{runPath: write("bad.yaml", "data: [")}},
		{name: "mismatched data", cfg: Config{runPath: write("mismatch.yaml", "data: {x: [1, 2], y: [1]}\n")}},
		{name: "bad learning rate", cfg: Config{runPath: write("alpha.yaml", "learning_rate: -1\n")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(context.Background(), tt.cfg, quietLogger(), &out))
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := run(ctx, Config{}, quietLogger(), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
