package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Dataset is an ordered, immutable set of (x, y) training points.
//
// The zero Dataset is empty; every evaluator rejects it with ErrInvalidInput.
type Dataset struct {
	x *mat.VecDense
	y *mat.VecDense
}

// NewDataset builds a Dataset from paired inputs and targets. The slices are
// copied, so later changes by the caller never reach a running solve.
func NewDataset(xs, ys []float64) (Dataset, error) {
	const op = "NewDataset"

	if len(xs) != len(ys) {
		return Dataset{}, InvalidInputf("length mismatch: %d inputs, %d targets", len(xs), len(ys)).
			WithComponent("dataset").WithOperation(op)
	}
	if len(xs) == 0 {
		return Dataset{}, InvalidInputf("dataset must contain at least one point").
			WithComponent("dataset").WithOperation(op)
	}
	for i := range xs {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			return Dataset{}, InvalidInputf("point %d is not finite: (%v, %v)", i, xs[i], ys[i]).
				WithComponent("dataset").WithOperation(op)
		}
	}

	return Dataset{
		x: mat.NewVecDense(len(xs), append([]float64(nil), xs...)),
		y: mat.NewVecDense(len(ys), append([]float64(nil), ys...)),
	}, nil
}

// MustDataset is like NewDataset but panics on error. It is meant for
// literal training sets.
func MustDataset(xs, ys []float64) Dataset {
	ds, err := NewDataset(xs, ys)
	if err != nil {
		panic(err)
	}
	return ds
}

// Len returns the number of points.
func (d Dataset) Len() int {
	if d.x == nil {
		return 0
	}
	return d.x.Len()
}

// At returns the i-th point.
func (d Dataset) At(i int) (x, y float64) {
	return d.x.AtVec(i), d.y.AtVec(i)
}

// X returns a read-only view of the inputs.
func (d Dataset) X() mat.Vector {
	return d.x
}

// Y returns a read-only view of the targets.
func (d Dataset) Y() mat.Vector {
	return d.y
}

// Xs returns a copy of the inputs.
func (d Dataset) Xs() []float64 {
	if d.x == nil {
		return nil
	}
	return append([]float64(nil), d.x.RawVector().Data...)
}

// Ys returns a copy of the targets.
func (d Dataset) Ys() []float64 {
	if d.y == nil {
		return nil
	}
	return append([]float64(nil), d.y.RawVector().Data...)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
