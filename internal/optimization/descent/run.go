package descent

import (
	"context"

	"github.com/copyleftdev/gradfit/internal/optimization"
)

// Run performs batch gradient descent on ds from (wInit, bInit) with
// learning rate alpha for numIters iterations, using the default history
// cap and snapshot count. It returns the final parameters and both
// histories.
//
// With numIters == 0 the initial parameters come back unchanged and both
// histories are empty.
func Run(ds optimization.Dataset, wInit, bInit float64, obj optimization.Objective, alpha float64, numIters int) (w, b float64, costHistory []float64, paramHistory []optimization.Params, err error) {
	gd, err := New(Config{LearningRate: alpha, Iterations: numIters})
	if err != nil {
		return 0, 0, nil, nil, err
	}

	res, err := gd.Solve(context.Background(), ds, optimization.Params{W: wInit, B: bInit}, obj)
	if err != nil {
		return 0, 0, nil, nil, err
	}
	return res.Params.W, res.Params.B, res.CostHistory, res.ParamHistory, nil
}
