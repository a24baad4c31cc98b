package objective

import (
	"github.com/copyleftdev/gradfit/internal/optimization"
)

// CostFunc has the signature of Cost.
type CostFunc func(ds optimization.Dataset, w, b float64) (float64, error)

// GradientFunc has the signature of Gradient.
type GradientFunc func(ds optimization.Dataset, w, b float64) (float64, float64, error)

// Funcs adapts a pair of injected functions into an optimization.Objective.
// The caller is responsible for GradientFn being the derivative of CostFn.
type Funcs struct {
	CostFn     CostFunc
	GradientFn GradientFunc
}

var _ optimization.Objective = Funcs{}

// Default returns the mean squared error pair as Funcs.
func Default() Funcs {
	return Funcs{CostFn: Cost, GradientFn: Gradient}
}

// Cost implements optimization.Objective.
func (f Funcs) Cost(ds optimization.Dataset, w, b float64) (float64, error) {
	if f.CostFn == nil {
		return 0, optimization.InvalidInputf("cost function is nil").
			WithComponent(component).WithOperation("Funcs.Cost")
	}
	return f.CostFn(ds, w, b)
}

// Gradient implements optimization.Objective.
func (f Funcs) Gradient(ds optimization.Dataset, w, b float64) (float64, float64, error) {
	if f.GradientFn == nil {
		return 0, 0, optimization.InvalidInputf("gradient function is nil").
			WithComponent(component).WithOperation("Funcs.Gradient")
	}
	return f.GradientFn(ds, w, b)
}
