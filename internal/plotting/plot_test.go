package plotting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/gradfit/internal/optimization"
	"github.com/copyleftdev/gradfit/internal/optimization/optimizationtest"
)

func requireImage(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestCharts(t *testing.T) {
	dir := t.TempDir()
	ds := optimizationtest.HousePrices()

	t.Run("data", func(t *testing.T) {
		path := filepath.Join(dir, "data.png")
		require.NoError(t, Data(ds, path))
		requireImage(t, path)
	})

	t.Run("fit", func(t *testing.T) {
		path := filepath.Join(dir, "fit.png")
		require.NoError(t, Fit(ds, optimization.Params{W: 200, B: 100}, path))
		requireImage(t, path)
	})

	t.Run("fit single x", func(t *testing.T) {
		path := filepath.Join(dir, "single.svg")
		one := optimization.MustDataset([]float64{3}, []float64{7})
		require.NoError(t, Fit(one, optimization.Params{W: 1, B: 4}, path))
		requireImage(t, path)
	})

	t.Run("cost", func(t *testing.T) {
		path := filepath.Join(dir, "cost.png")
		require.NoError(t, Cost([]float64{10, 5, 2.5, 1.25}, path))
		requireImage(t, path)
	})
}

func TestCostRejectsEmptyHistory(t *testing.T) {
	err := Cost(nil, filepath.Join(t.TempDir(), "cost.png"))
	require.Error(t, err)
	assert.True(t, optimization.IsInvalidInput(err))
}

func TestSaveUnsupportedFormat(t *testing.T) {
	err := Data(optimizationtest.HousePrices(), filepath.Join(t.TempDir(), "data.bogus"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save")
}

func TestFitRejectsEmptyDataset(t *testing.T) {
	err := Fit(optimization.Dataset{}, optimization.Params{}, filepath.Join(t.TempDir(), "fit.png"))
	require.Error(t, err)
	assert.True(t, optimization.IsInvalidInput(err))
}
