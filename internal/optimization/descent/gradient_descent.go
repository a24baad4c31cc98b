// Package descent implements batch gradient descent for the univariate
// linear model, plus reference solvers used to check its fits.
package descent

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/gradfit/internal/optimization"
)

const (
	// MethodBatch names results produced by GradientDescent.
	MethodBatch = "batch"

	// DefaultMaxCostHistory caps the cost history so very long runs do not
	// grow memory without bound.
	DefaultMaxCostHistory = 100000

	// DefaultSnapshots is the target number of parameter snapshots per run.
	DefaultSnapshots = 10

	component = "gradient_descent"
)

// Config contains the hyperparameters of a batch gradient descent run.
type Config struct {
	// LearningRate (alpha) scales every gradient step. Must be positive.
	LearningRate float64

	// Iterations is the exact number of update steps. Zero is allowed.
	Iterations int

	// MaxCostHistory caps the number of recorded cost samples.
	// Zero selects DefaultMaxCostHistory.
	MaxCostHistory int

	// Snapshots is the target number of parameter snapshots; the interval
	// between them is ceil(Iterations/Snapshots). Zero selects
	// DefaultSnapshots.
	Snapshots int
}

func (c Config) withDefaults() Config {
	if c.MaxCostHistory == 0 {
		c.MaxCostHistory = DefaultMaxCostHistory
	}
	if c.Snapshots == 0 {
		c.Snapshots = DefaultSnapshots
	}
	return c
}

func (c Config) validate() error {
	const op = "Config.validate"

	switch {
	case math.IsNaN(c.LearningRate) || math.IsInf(c.LearningRate, 0) || c.LearningRate <= 0:
		return optimization.InvalidInputf("learning rate must be a positive finite number, got %v", c.LearningRate).
			WithComponent(component).WithOperation(op)
	case c.Iterations < 0:
		return optimization.InvalidInputf("iterations must be non-negative, got %d", c.Iterations).
			WithComponent(component).WithOperation(op)
	case c.MaxCostHistory < 0:
		return optimization.InvalidInputf("max cost history must be non-negative, got %d", c.MaxCostHistory).
			WithComponent(component).WithOperation(op)
	case c.Snapshots < 0:
		return optimization.InvalidInputf("snapshots must be non-negative, got %d", c.Snapshots).
			WithComponent(component).WithOperation(op)
	}
	return nil
}

// SnapshotInterval returns ceil(iterations/snapshots), or 0 when there is
// nothing to sample.
func SnapshotInterval(iterations, snapshots int) int {
	if iterations <= 0 || snapshots <= 0 {
		return 0
	}
	return (iterations + snapshots - 1) / snapshots
}

// snapshotCount returns how many i in [0, iterations) are multiples of interval.
func snapshotCount(iterations, interval int) int {
	if iterations <= 0 || interval <= 0 {
		return 0
	}
	return (iterations-1)/interval + 1
}

// Option configures a GradientDescent.
type Option func(*GradientDescent)

// WithLogger sets the logger used for progress lines.
func WithLogger(logger *zap.Logger) Option {
	return func(gd *GradientDescent) {
		if logger != nil {
			gd.logger = logger.Named(component)
		}
	}
}

// WithObservers registers observers notified on progress and completion.
func WithObservers(observers ...optimization.Observer) Option {
	return func(gd *GradientDescent) {
		gd.observers = append(gd.observers, observers...)
	}
}

// GradientDescent runs batch gradient descent for a fixed number of
// iterations. A GradientDescent holds no per-run state and may be shared.
type GradientDescent struct {
	config    Config
	logger    *zap.Logger
	observers []optimization.Observer
}

var _ optimization.Solver = (*GradientDescent)(nil)

// New creates a GradientDescent after validating cfg.
func New(cfg Config, opts ...Option) (*GradientDescent, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	gd := &GradientDescent{
		config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(gd)
	}
	return gd, nil
}

// Config returns the effective configuration, defaults applied.
func (gd *GradientDescent) Config() Config {
	return gd.config
}

// Solve runs the descent from init. Both parameters are updated from the
// same pre-update pair on every iteration. The cost after each update is
// recorded while the iteration index is below MaxCostHistory, and the
// parameters are snapshotted every SnapshotInterval iterations. NaN or
// overflow is not treated as an error and propagates through later
// iterations. Cancelling ctx stops the run between iterations.
func (gd *GradientDescent) Solve(ctx context.Context, ds optimization.Dataset, init optimization.Params, obj optimization.Objective) (*optimization.Result, error) {
	const op = "GradientDescent.Solve"

	if err := validateRun(ds, init, obj, op); err != nil {
		return nil, err
	}

	start := time.Now()
	cfg := gd.config
	n := cfg.Iterations
	interval := SnapshotInterval(n, cfg.Snapshots)

	res := &optimization.Result{
		Method:           MethodBatch,
		CostHistory:      make([]float64, 0, min(n, cfg.MaxCostHistory)),
		ParamHistory:     make([]optimization.Params, 0, snapshotCount(n, interval)),
		SnapshotInterval: interval,
	}

	gd.logger.Debug("Starting gradient descent",
		zap.Int("points", ds.Len()),
		zap.Int("iterations", n),
		zap.Float64("learning_rate", cfg.LearningRate),
		zap.Float64("w_init", init.W),
		zap.Float64("b_init", init.B),
	)

	p := init
	cost := math.NaN()
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			gd.logger.Info("Gradient descent cancelled", zap.Int("iteration", i))
			return nil, optimization.WrapErrorf(ctx.Err(), "cancelled at iteration %d", i).
				WithComponent(component).WithOperation(op)
		default:
		}

		dw, db, err := obj.Gradient(ds, p.W, p.B)
		if err != nil {
			return nil, optimization.WrapErrorf(err, "gradient at iteration %d", i).
				WithComponent(component).WithOperation(op)
		}

		p = optimization.Params{
			W: p.W - cfg.LearningRate*dw,
			B: p.B - cfg.LearningRate*db,
		}

		recorded := i < cfg.MaxCostHistory
		if recorded {
			if cost, err = obj.Cost(ds, p.W, p.B); err != nil {
				return nil, optimization.WrapErrorf(err, "cost at iteration %d", i).
					WithComponent(component).WithOperation(op)
			}
			res.CostHistory = append(res.CostHistory, cost)
		}

		if i%interval == 0 {
			if !recorded {
				if cost, err = obj.Cost(ds, p.W, p.B); err != nil {
					return nil, optimization.WrapErrorf(err, "cost at iteration %d", i).
						WithComponent(component).WithOperation(op)
				}
			}
			res.ParamHistory = append(res.ParamHistory, p)
			gd.progress(optimization.Progress{
				Method:     MethodBatch,
				Iteration:  i,
				Iterations: n,
				Params:     p,
				Cost:       cost,
			})
		}
		res.Iterations = i + 1
	}

	// The last recorded sample is already the cost at p.
	if n == 0 || n > cfg.MaxCostHistory {
		var err error
		if cost, err = obj.Cost(ds, p.W, p.B); err != nil {
			return nil, optimization.WrapError(err, "final cost").
				WithComponent(component).WithOperation(op)
		}
	}

	res.Params = p
	res.Cost = cost
	res.Elapsed = time.Since(start)

	gd.logger.Debug("Gradient descent finished",
		zap.Int("iterations", res.Iterations),
		zap.Float64("w", p.W),
		zap.Float64("b", p.B),
		zap.Float64("cost", cost),
		zap.Duration("elapsed", res.Elapsed),
	)

	for _, o := range gd.observers {
		o.OnComplete(res)
	}
	return res, nil
}

func (gd *GradientDescent) progress(p optimization.Progress) {
	gd.logger.Info("Iteration",
		zap.Int("iteration", p.Iteration),
		zap.Float64("cost", p.Cost),
		zap.Float64("w", p.Params.W),
		zap.Float64("b", p.Params.B),
	)
	for _, o := range gd.observers {
		o.OnProgress(p)
	}
}

// validateRun rejects inputs before any computation takes place.
func validateRun(ds optimization.Dataset, init optimization.Params, obj optimization.Objective, op string) error {
	switch {
	case ds.Len() == 0:
		return optimization.InvalidInputf("dataset is empty").
			WithComponent(component).WithOperation(op)
	case !init.Finite():
		return optimization.InvalidInputf("initial parameters must be finite, got (w=%v, b=%v)", init.W, init.B).
			WithComponent(component).WithOperation(op)
	case obj == nil:
		return optimization.InvalidInputf("objective is nil").
			WithComponent(component).WithOperation(op)
	}
	return nil
}
