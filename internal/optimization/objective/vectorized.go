package objective

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/gradfit/internal/optimization"
)

// Vectorized is the mean squared error objective computed with gonum vector
// operations. It is numerically equivalent to SquaredError.
type Vectorized struct{}

var _ optimization.Objective = Vectorized{}

// residuals returns w·x + b − y.
func residuals(ds optimization.Dataset, w, b float64) *mat.VecDense {
	r := mat.NewVecDense(ds.Len(), nil)
	r.ScaleVec(w, ds.X())
	r.SubVec(r, ds.Y())
	floats.AddConst(b, r.RawVector().Data)
	return r
}

// Cost implements optimization.Objective.
func (Vectorized) Cost(ds optimization.Dataset, w, b float64) (float64, error) {
	m := ds.Len()
	if m == 0 {
		return 0, emptyDataset("Vectorized.Cost")
	}

	r := residuals(ds, w, b)
	return mat.Dot(r, r) / (2 * float64(m)), nil
}

// Gradient implements optimization.Objective.
func (Vectorized) Gradient(ds optimization.Dataset, w, b float64) (float64, float64, error) {
	m := ds.Len()
	if m == 0 {
		return 0, 0, emptyDataset("Vectorized.Gradient")
	}

	r := residuals(ds, w, b)
	return mat.Dot(r, ds.X()) / float64(m), mat.Sum(r) / float64(m), nil
}
