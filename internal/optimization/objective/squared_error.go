// Package objective provides the cost functions minimized by the solvers in
// package descent, together with their gradients.
package objective

import (
	"github.com/copyleftdev/gradfit/internal/optimization"
)

const component = "objective"

// Cost computes the mean squared error cost of the line (w, b) over ds:
//
//	J(w, b) = 1/(2m) · Σ (w·x_i + b − y_i)²
func Cost(ds optimization.Dataset, w, b float64) (float64, error) {
	m := ds.Len()
	if m == 0 {
		return 0, emptyDataset("Cost")
	}

	var total float64
	for i := 0; i < m; i++ {
		x, y := ds.At(i)
		r := w*x + b - y
		total += r * r
	}
	return total / (2 * float64(m)), nil
}

// Gradient computes the partial derivatives of Cost:
//
//	dJ/dw = 1/m · Σ (w·x_i + b − y_i)·x_i
//	dJ/db = 1/m · Σ (w·x_i + b − y_i)
func Gradient(ds optimization.Dataset, w, b float64) (dw, db float64, err error) {
	m := ds.Len()
	if m == 0 {
		return 0, 0, emptyDataset("Gradient")
	}

	for i := 0; i < m; i++ {
		x, y := ds.At(i)
		r := w*x + b - y
		dw += r * x
		db += r
	}
	return dw / float64(m), db / float64(m), nil
}

// SquaredError is the mean squared error objective evaluated point by point.
type SquaredError struct{}

var _ optimization.Objective = SquaredError{}

// Cost implements optimization.Objective.
func (SquaredError) Cost(ds optimization.Dataset, w, b float64) (float64, error) {
	return Cost(ds, w, b)
}

// Gradient implements optimization.Objective.
func (SquaredError) Gradient(ds optimization.Dataset, w, b float64) (float64, float64, error) {
	return Gradient(ds, w, b)
}

func emptyDataset(op string) error {
	return optimization.InvalidInputf("dataset is empty").
		WithComponent(component).WithOperation(op)
}
