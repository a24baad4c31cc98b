package optimization

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataset(t *testing.T) {
	tests := []struct {
		name    string
		xs, ys  []float64
		wantErr bool
	}{
		{name: "valid", xs: []float64{1, 2}, ys: []float64{300, 500}},
		{name: "single point", xs: []float64{0}, ys: []float64{0}},
		{name: "empty", xs: nil, ys: nil, wantErr: true},
		{name: "length mismatch", xs: []float64{1, 2}, ys: []float64{1}, wantErr: true},
		{name: "nan input", xs: []float64{math.NaN()}, ys: []float64{1}, wantErr: true},
		{name: "infinite target", xs: []float64{1}, ys: []float64{math.Inf(-1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := NewDataset(tt.xs, tt.ys)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsInvalidInput(err))
				assert.Equal(t, 0, ds.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.xs), ds.Len())
			for i := range tt.xs {
				x, y := ds.At(i)
				assert.Equal(t, tt.xs[i], x)
				assert.Equal(t, tt.ys[i], y)
			}
		})
	}
}

func TestDatasetIsolatedFromCaller(t *testing.T) {
	xs := []float64{1, 2}
	ys := []float64{300, 500}
	ds := MustDataset(xs, ys)

	xs[0] = 99
	ys[1] = -1
	got := ds.Xs()
	got[1] = 42

	assert.Equal(t, []float64{1, 2}, ds.Xs())
	assert.Equal(t, []float64{300, 500}, ds.Ys())
	assert.Equal(t, 2, ds.X().Len())
	assert.Equal(t, 500.0, ds.Y().AtVec(1))
}

func TestMustDatasetPanics(t *testing.T) {
	assert.Panics(t, func() { MustDataset(nil, nil) })
}

func TestParams(t *testing.T) {
	p := Params{W: 200, B: 100}
	assert.Equal(t, 300.0, p.Predict(1))
	assert.Equal(t, 500.0, p.Predict(2))
	assert.True(t, p.Finite())
	assert.False(t, Params{W: math.NaN()}.Finite())
	assert.False(t, Params{B: math.Inf(1)}.Finite())
}

func TestProgressFraction(t *testing.T) {
	assert.Equal(t, 0.1, Progress{Iteration: 0, Iterations: 10}.Fraction())
	assert.Equal(t, 1.0, Progress{Iteration: 9, Iterations: 10}.Fraction())
	assert.Equal(t, 1.0, Progress{}.Fraction())
}

func TestResultSnapshotIterations(t *testing.T) {
	r := &Result{
		ParamHistory:     make([]Params, 4),
		SnapshotInterval: 3,
	}
	assert.Equal(t, []int{0, 3, 6, 9}, r.SnapshotIterations())
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      &Error{Message: "boom"},
			expected: "boom",
		},
		{
			name:     "component and op",
			err:      (&Error{Message: "boom"}).WithComponent("objective").WithOperation("Cost"),
			expected: "objective: Cost: boom",
		},
		{
			name:     "wrapped",
			err:      WrapError(errors.New("cause"), "boom").WithOperation("Solve"),
			expected: "Solve: boom: cause",
		},
		{
			name:     "invalid input",
			err:      InvalidInputf("got %d", 3),
			expected: "got 3: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
	assert.Nil(t, WrapError(nil, "ignored"))
	assert.Nil(t, WrapErrorf(nil, "ignored %d", 1))
}

func TestIsOptimizationError(t *testing.T) {
	inner := InvalidInputf("bad").WithOperation("op")
	wrapped := fmt.Errorf("outer: %w", inner)

	e, ok := IsOptimizationError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "op", e.Op)
	assert.True(t, IsInvalidInput(wrapped))

	_, ok = IsOptimizationError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = IsOptimizationError(nil)
	assert.False(t, ok)
}
