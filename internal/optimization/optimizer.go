package optimization

import (
	"context"
	"time"
)

// Params holds the parameters of the model y ≈ W·x + B.
type Params struct {
	W float64 `json:"w" yaml:"w"`
	B float64 `json:"b" yaml:"b"`
}

// Predict evaluates the model at x.
func (p Params) Predict(x float64) float64 {
	return p.W*x + p.B
}

// Finite reports whether both parameters are finite numbers.
func (p Params) Finite() bool {
	return isFinite(p.W) && isFinite(p.B)
}

// Objective bundles cost evaluation and its gradient. Gradient must return
// the exact partial derivatives of Cost with respect to w and b.
type Objective interface {
	// Cost evaluates the objective for parameters (w, b).
	Cost(ds Dataset, w, b float64) (float64, error)

	// Gradient returns the partial derivatives of Cost at (w, b).
	Gradient(ds Dataset, w, b float64) (dw, db float64, err error)
}

// Solver fits Params to a Dataset by minimizing an Objective.
type Solver interface {
	// Solve runs the optimization starting from init.
	Solve(ctx context.Context, ds Dataset, init Params, obj Objective) (*Result, error)
}

// Progress is reported to observers at the parameter snapshot cadence.
type Progress struct {
	Method     string
	Iteration  int
	Iterations int
	Params     Params
	Cost       float64
}

// Fraction returns how much of the run has completed, in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Iterations <= 0 {
		return 1
	}
	return float64(p.Iteration+1) / float64(p.Iterations)
}

// Observer receives progress and completion events from a solver.
// Implementations must be safe to call from the solving goroutine.
type Observer interface {
	OnProgress(p Progress)
	OnComplete(r *Result)
}

// Result contains the outcome of a solve.
type Result struct {
	// Method names the solver that produced the result.
	Method string

	// Params are the final parameters.
	Params Params

	// Cost is the objective at Params.
	Cost float64

	// CostHistory holds one cost sample per iteration, up to the
	// configured cap.
	CostHistory []float64

	// ParamHistory holds parameter snapshots taken every
	// SnapshotInterval iterations.
	ParamHistory []Params

	// SnapshotInterval is the spacing of ParamHistory in iterations.
	// It is zero when no iterations ran.
	SnapshotInterval int

	// Iterations is the number of iterations executed.
	Iterations int

	// Elapsed is the wall time of the solve.
	Elapsed time.Duration
}

// SnapshotIterations returns the iteration index of every ParamHistory entry.
func (r *Result) SnapshotIterations() []int {
	idx := make([]int, len(r.ParamHistory))
	for i := range idx {
		idx[i] = i * r.SnapshotInterval
	}
	return idx
}
