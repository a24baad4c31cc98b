package descent

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/gradfit/internal/optimization"
	"github.com/copyleftdev/gradfit/internal/optimization/objective"
	"github.com/copyleftdev/gradfit/internal/optimization/optimizationtest"
)

func TestLeastSquares(t *testing.T) {
	t.Run("house prices", func(t *testing.T) {
		p, err := LeastSquares(optimizationtest.HousePrices())
		require.NoError(t, err)
		optimizationtest.AssertParamsNear(t, p, optimization.Params{W: 200, B: 100}, 1e-9)
	})

	t.Run("exact line", func(t *testing.T) {
		ds := optimization.MustDataset([]float64{-2, 0, 3, 7}, []float64{-7, -3, 3, 11})
		p, err := LeastSquares(ds)
		require.NoError(t, err)
		optimizationtest.AssertParamsNear(t, p, optimization.Params{W: 2, B: -3}, 1e-9)
	})

	t.Run("single point", func(t *testing.T) {
		_, err := LeastSquares(optimization.MustDataset([]float64{1}, []float64{1}))
		assert.ErrorIs(t, err, optimization.ErrInvalidInput)
	})

	t.Run("identical inputs", func(t *testing.T) {
		_, err := LeastSquares(optimization.MustDataset([]float64{2, 2, 2}, []float64{1, 2, 3}))
		assert.ErrorIs(t, err, optimization.ErrInvalidInput)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := LeastSquares(optimization.Dataset{})
		assert.ErrorIs(t, err, optimization.ErrInvalidInput)
	})
}

func TestLineSearchConverges(t *testing.T) {
	tests := []struct {
		name string
		ds   optimization.Dataset
	}{
		{name: "house prices", ds: optimizationtest.HousePrices()},
		{name: "noisy line", ds: optimizationtest.LinearDataset(rand.New(rand.NewSource(11)), 30, -1.25, 6, 1.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := LeastSquares(tt.ds)
			require.NoError(t, err)
			wantCost, err := objective.Cost(tt.ds, want.W, want.B)
			require.NoError(t, err)

			obs := &optimizationtest.RecordingObserver{}
			ls := &LineSearch{MaxIterations: 5000, Observers: []optimization.Observer{obs}}

			res, err := ls.Solve(context.Background(), tt.ds, optimization.Params{}, objective.SquaredError{})
			require.NoError(t, err)

			assert.Equal(t, MethodLineSearch, res.Method)
			assert.InDelta(t, wantCost, res.Cost, 1e-4)
			optimizationtest.AssertParamsNear(t, res.Params, want, 1e-2)
			assert.NotEmpty(t, res.CostHistory)
			assert.Len(t, res.ParamHistory, len(res.CostHistory))
			assert.Len(t, obs.Progress(), len(res.CostHistory))
			assert.Len(t, obs.Completed(), 1)
		})
	}
}

func TestLineSearchErrors(t *testing.T) {
	ds := optimizationtest.HousePrices()

	t.Run("invalid input", func(t *testing.T) {
		ls := &LineSearch{}
		_, err := ls.Solve(context.Background(), optimization.Dataset{}, optimization.Params{}, objective.SquaredError{})
		assert.ErrorIs(t, err, optimization.ErrInvalidInput)
	})

	t.Run("objective failure", func(t *testing.T) {
		boom := errors.New("boom")
		obj := objective.Funcs{
			CostFn: func(optimization.Dataset, float64, float64) (float64, error) { return 0, boom },
			GradientFn: func(optimization.Dataset, float64, float64) (float64, float64, error) {
				return 0, 0, boom
			},
		}
		ls := &LineSearch{MaxIterations: 10}
		res, err := ls.Solve(context.Background(), ds, optimization.Params{}, obj)
		require.Error(t, err)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ls := &LineSearch{MaxIterations: 10}
		res, err := ls.Solve(ctx, ds, optimization.Params{}, objective.SquaredError{})
		require.Error(t, err)
		assert.Nil(t, res)
	})
}
