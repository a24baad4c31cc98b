package descent

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/gradfit/internal/optimization"
)

// MethodLineSearch names results produced by LineSearch.
const MethodLineSearch = "linesearch"

// LeastSquares returns the exact minimizer of the squared error cost,
// computed in closed form. It needs at least two distinct inputs.
func LeastSquares(ds optimization.Dataset) (optimization.Params, error) {
	const op = "LeastSquares"

	xs := ds.Xs()
	if len(xs) < 2 {
		return optimization.Params{}, optimization.InvalidInputf("need at least two points, got %d", len(xs)).
			WithComponent(component).WithOperation(op)
	}
	if floats.Max(xs) == floats.Min(xs) {
		return optimization.Params{}, optimization.InvalidInputf("inputs are all equal to %v", xs[0]).
			WithComponent(component).WithOperation(op)
	}

	alpha, beta := stat.LinearRegression(xs, ds.Ys(), nil, false)
	return optimization.Params{W: beta, B: alpha}, nil
}

// LineSearch minimizes an Objective with steepest descent and a
// backtracking line search. It stops on convergence rather than after a
// fixed number of steps, so it serves as a comparison for GradientDescent.
type LineSearch struct {
	// MaxIterations bounds the number of major iterations. Zero means no bound.
	MaxIterations int

	// GradientThreshold stops the search once the gradient norm falls
	// below it. Zero selects the gonum default.
	GradientThreshold float64

	// Logger receives progress lines. Nil disables logging.
	Logger *zap.Logger

	// Observers are notified on every major iteration and on completion.
	Observers []optimization.Observer
}

var _ optimization.Solver = (*LineSearch)(nil)

// Solve implements optimization.Solver.
func (ls *LineSearch) Solve(ctx context.Context, ds optimization.Dataset, init optimization.Params, obj optimization.Objective) (*optimization.Result, error) {
	const op = "LineSearch.Solve"

	if err := validateRun(ds, init, obj, op); err != nil {
		return nil, err
	}

	logger := ls.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("line_search")

	start := time.Now()

	// The first objective error aborts the search through the recorder.
	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			c, err := obj.Cost(ds, x[0], x[1])
			if err != nil {
				if evalErr == nil {
					evalErr = err
				}
				return math.NaN()
			}
			return c
		},
		Grad: func(grad, x []float64) {
			dw, db, err := obj.Gradient(ds, x[0], x[1])
			if err != nil && evalErr == nil {
				evalErr = err
			}
			grad[0], grad[1] = dw, db
		},
	}

	rec := &lineSearchRecorder{
		ctx:       ctx,
		evalErr:   &evalErr,
		logger:    logger,
		observers: ls.Observers,
		maxIter:   ls.MaxIterations,
	}
	settings := &optimize.Settings{
		MajorIterations: ls.MaxIterations,
		Recorder:        rec,
	}
	method := &optimize.GradientDescent{GradStopThreshold: ls.GradientThreshold}

	out, err := optimize.Minimize(problem, []float64{init.W, init.B}, settings, method)
	if evalErr != nil {
		return nil, optimization.WrapError(evalErr, "objective evaluation failed").
			WithComponent(component).WithOperation(op)
	}
	if err != nil {
		return nil, optimization.WrapError(err, "minimize").
			WithComponent(component).WithOperation(op)
	}

	res := &optimization.Result{
		Method:       MethodLineSearch,
		Params:       optimization.Params{W: out.X[0], B: out.X[1]},
		Cost:         out.F,
		CostHistory:  rec.costs,
		ParamHistory: rec.params,
		Iterations:   out.Stats.MajorIterations,
		Elapsed:      time.Since(start),
	}
	if len(rec.params) > 0 {
		res.SnapshotInterval = 1
	}

	logger.Debug("Line search finished",
		zap.String("status", out.Status.String()),
		zap.Int("iterations", res.Iterations),
		zap.Int("func_evaluations", out.Stats.FuncEvaluations),
		zap.Float64("cost", res.Cost),
	)

	for _, o := range ls.Observers {
		o.OnComplete(res)
	}
	return res, nil
}

// lineSearchRecorder collects the accepted iterates of a gonum minimization
// and stops it on cancellation or objective failure.
type lineSearchRecorder struct {
	ctx       context.Context
	evalErr   *error
	logger    *zap.Logger
	observers []optimization.Observer
	maxIter   int

	costs  []float64
	params []optimization.Params
}

func (r *lineSearchRecorder) Init() error {
	return nil
}

func (r *lineSearchRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if *r.evalErr != nil {
		return *r.evalErr
	}
	if op != optimize.MajorIteration {
		return nil
	}

	p := optimization.Params{W: loc.X[0], B: loc.X[1]}
	r.costs = append(r.costs, loc.F)
	r.params = append(r.params, p)

	progress := optimization.Progress{
		Method:     MethodLineSearch,
		Iteration:  stats.MajorIterations - 1,
		Iterations: r.maxIter,
		Params:     p,
		Cost:       loc.F,
	}
	r.logger.Debug("Iteration",
		zap.Int("iteration", progress.Iteration),
		zap.Float64("cost", loc.F),
		zap.Float64("w", p.W),
		zap.Float64("b", p.B),
	)
	for _, o := range r.observers {
		o.OnProgress(progress)
	}
	return nil
}
