package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/gradfit/internal/config"
	apperrors "github.com/copyleftdev/gradfit/internal/errors"
	"github.com/copyleftdev/gradfit/internal/logging"
	"github.com/copyleftdev/gradfit/internal/metrics"
	"github.com/copyleftdev/gradfit/internal/optimization"
	"github.com/copyleftdev/gradfit/internal/optimization/descent"
	"github.com/copyleftdev/gradfit/internal/optimization/objective"
)

const maxBodyBytes = 16 << 20

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
	Zap() *zap.Logger
}

// Server implements the HTTP and JSON-RPC API of the fit service.
// It runs fit jobs in the background and serves synchronous evaluations
// and learning-rate sweeps.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *metrics.Recorder

	jobs *jobStore
	wg   sync.WaitGroup

	// baseCtx parents every fit job; Close cancels it.
	baseCtx context.Context
	stop    context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics makes every solve report to rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *Server) {
		s.metrics = rec
	}
}

// NewServer creates a new server instance with the given config and logger
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		jobs:    newJobStore(cfg.Jobs.TTL),
		baseCtx: ctx,
		stop:    stop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/fits", s.handleStartFit)
		r.Get("/fits/{id}", s.handleFitStatus)
		r.Delete("/fits/{id}", s.handleCancelFit)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/sweep", s.handleSweep)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Close cancels all live fits and waits for their goroutines to return.
func (s *Server) Close() error {
	jobs := s.jobs.all()
	s.logger.Info("Closing fit server", map[string]interface{}{
		"jobs": len(jobs),
	})

	for _, j := range jobs {
		j.requestCancel()
	}
	s.stop()
	s.wg.Wait()
	return nil
}

// newSolver builds the solver for method. Learning rate only applies to
// batch descent.
func (s *Server) newSolver(method string, rate float64, iterations int, zl *zap.Logger, observers ...optimization.Observer) (optimization.Solver, error) {
	if s.metrics != nil {
		observers = append(observers, s.metrics)
	}

	if method == descent.MethodLineSearch {
		return &descent.LineSearch{
			MaxIterations: iterations,
			Logger:        zl,
			Observers:     observers,
		}, nil
	}

	return descent.New(descent.Config{
		LearningRate:   rate,
		Iterations:     iterations,
		MaxCostHistory: s.cfg.Descent.MaxCostHistory,
		Snapshots:      s.cfg.Descent.Snapshots,
	}, descent.WithLogger(zl), descent.WithObservers(observers...))
}

func (s *Server) recordFailure(method, status string) {
	if s.metrics != nil {
		s.metrics.SolveFailed(method, status)
	}
}

// startFit validates a fit request and runs it in the background.
// Returns: {"fit_id": "fit_...", "status": "pending"}
func (s *Server) startFit(m map[string]interface{}) (interface{}, error) {
	req, err := parseFitRequest(m, s.cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	job := newFitJob(req.Method, req.Init, cancel)

	zl := s.logger.Zap().With(zap.String("fit_id", job.ID))
	solver, err := s.newSolver(req.Method, req.LearningRate, req.Iterations, zl, job)
	if err != nil {
		cancel()
		return nil, apperrors.FromError(err)
	}

	s.jobs.add(job)
	s.wg.Add(1)
	go s.runFit(ctx, cancel, job, solver, req)

	s.logger.Info("Fit started", map[string]interface{}{
		"fit_id":        job.ID,
		"method":        req.Method,
		"points":        req.Dataset.Len(),
		"iterations":    req.Iterations,
		"learning_rate": req.LearningRate,
	})

	return map[string]interface{}{
		"fit_id": job.ID,
		"status": StatusPending,
	}, nil
}

// runFit executes a fit job in its own goroutine.
func (s *Server) runFit(ctx context.Context, cancel context.CancelFunc, job *FitJob, solver optimization.Solver, req *fitRequest) {
	defer s.wg.Done()
	defer cancel()

	logger := s.logger.WithFields(map[string]interface{}{
		"fit_id": job.ID,
		"method": job.Method,
	})

	if !job.start() {
		s.jobs.expire(job)
		s.recordFailure(job.Method, metrics.StatusCancelled)
		logger.Info("Fit cancelled before start")
		return
	}

	res, err := solver.Solve(ctx, req.Dataset, req.Init, objective.SquaredError{})
	status := job.finish(err)
	s.jobs.expire(job)

	switch status {
	case StatusCompleted:
		logger.Info("Fit completed", map[string]interface{}{
			"w":          res.Params.W,
			"b":          res.Params.B,
			"cost":       res.Cost,
			"iterations": res.Iterations,
			"elapsed_ms": float64(res.Elapsed.Microseconds()) / 1000.0,
		})
	case StatusCancelled:
		s.recordFailure(job.Method, metrics.StatusCancelled)
		logger.Info("Fit cancelled")
	default:
		s.recordFailure(job.Method, metrics.StatusFailed)
		logger.Error("Fit failed", map[string]interface{}{
			"error": err,
		})
	}
}

// fitStatus returns the state of a fit job, with full histories when
// history is set.
func (s *Server) fitStatus(id string, history bool) (interface{}, error) {
	job, ok := s.jobs.get(id)
	if !ok {
		return nil, apperrors.NotFound("fit %s not found", id)
	}
	return job.snapshot(history), nil
}

// cancelFit cancels a pending or running fit job.
func (s *Server) cancelFit(id string) (interface{}, error) {
	job, ok := s.jobs.get(id)
	if !ok {
		return nil, apperrors.NotFound("fit %s not found", id)
	}

	prev, ok := job.requestCancel()
	if !ok {
		return nil, apperrors.Errorf(apperrors.CodeConflict, "cannot cancel fit with status %s", prev)
	}

	s.logger.Info("Fit cancelled", map[string]interface{}{
		"fit_id": id,
		"status": prev,
	})
	return map[string]interface{}{
		"fit_id": id,
		"status": StatusCancelled,
	}, nil
}

type evaluateResponse struct {
	Params paramsResponse `json:"params"`
	Cost   number         `json:"cost"`
	DW     number         `json:"dw"`
	DB     number         `json:"db"`
}

// evaluate computes the cost and its gradient at (w, b).
func (s *Server) evaluate(m map[string]interface{}) (interface{}, error) {
	ds, err := parseDataset(m)
	if err != nil {
		return nil, err
	}
	w, err := optionalFloat(m, "w", 0)
	if err != nil {
		return nil, err
	}
	b, err := optionalFloat(m, "b", 0)
	if err != nil {
		return nil, err
	}

	cost, err := objective.Cost(ds, w, b)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	dw, db, err := objective.Gradient(ds, w, b)
	if err != nil {
		return nil, apperrors.FromError(err)
	}

	return &evaluateResponse{
		Params: newParamsResponse(optimization.Params{W: w, B: b}),
		Cost:   number(cost),
		DW:     number(dw),
		DB:     number(db),
	}, nil
}

type sweepResult struct {
	LearningRate number         `json:"learning_rate"`
	Params       paramsResponse `json:"params"`
	Cost         number         `json:"cost"`
	Diverged     bool           `json:"diverged"`
	ElapsedMS    float64        `json:"elapsed_ms"`
}

type sweepResponse struct {
	Iterations int           `json:"iterations"`
	Results    []sweepResult `json:"results"`
	// Best indexes the result with the lowest finite cost.
	Best *int `json:"best"`
}

// sweep runs one batch descent per learning rate, in parallel.
func (s *Server) sweep(ctx context.Context, m map[string]interface{}) (interface{}, error) {
	req, err := parseFitRequest(m, s.cfg)
	if err != nil {
		return nil, err
	}
	if req.Method != descent.MethodBatch {
		return nil, apperrors.InvalidParams("sweeps only support method %q", descent.MethodBatch)
	}
	if len(req.LearningRates) == 0 {
		return nil, apperrors.InvalidParams("learning_rates is required")
	}

	results := make([]sweepResult, len(req.LearningRates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Jobs.SweepWorkers)
	for i, rate := range req.LearningRates {
		i, rate := i, rate
		g.Go(func() error {
			zl := s.logger.Zap().With(zap.Float64("learning_rate", rate))
			solver, err := s.newSolver(descent.MethodBatch, rate, req.Iterations, zl)
			if err != nil {
				return err
			}
			res, err := solver.Solve(gctx, req.Dataset, req.Init, objective.SquaredError{})
			if err != nil {
				return err
			}
			results[i] = sweepResult{
				LearningRate: number(rate),
				Params:       newParamsResponse(res.Params),
				Cost:         number(res.Cost),
				Diverged:     !res.Params.Finite() || math.IsNaN(res.Cost) || math.IsInf(res.Cost, 0),
				ElapsedMS:    float64(res.Elapsed.Microseconds()) / 1000.0,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if !optimization.IsInvalidInput(err) {
			s.recordFailure(descent.MethodBatch, metrics.StatusFailed)
		}
		return nil, apperrors.FromError(err)
	}

	resp := &sweepResponse{Iterations: req.Iterations, Results: results}
	for i, r := range results {
		i := i
		if r.Diverged {
			continue
		}
		if resp.Best == nil || r.Cost < results[*resp.Best].Cost {
			resp.Best = &i
		}
	}
	return resp, nil
}

// decodeBody reads a JSON object request body.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&m); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeParseError, "invalid request body")
	}
	if m == nil {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "request body must be a JSON object")
	}
	return m, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{
			"error": err,
		})
	}
}

// respondErr writes err as a REST error response.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	e := apperrors.FromError(err)
	status := e.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("Request failed", map[string]interface{}{
			"error": e,
			"code":  e.Code,
		})
	}
	s.respondJSON(w, status, map[string]interface{}{
		"error": e.PublicMessage(),
		"code":  e.Code,
	})
}

// handleStartFit handles POST /api/v1/fits.
func (s *Server) handleStartFit(w http.ResponseWriter, r *http.Request) {
	m, err := decodeBody(w, r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	result, err := s.startFit(m)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, result)
}

// handleFitStatus handles GET /api/v1/fits/{id}. Histories are included
// with ?history=true.
func (s *Server) handleFitStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.fitStatus(chi.URLParam(r, "id"), cast.ToBool(r.URL.Query().Get("history")))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleCancelFit handles DELETE /api/v1/fits/{id}.
func (s *Server) handleCancelFit(w http.ResponseWriter, r *http.Request) {
	result, err := s.cancelFit(chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleEvaluate handles POST /api/v1/evaluate.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	m, err := decodeBody(w, r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	result, err := s.evaluate(m)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleSweep handles POST /api/v1/sweep.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	m, err := decodeBody(w, r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	result, err := s.sweep(r.Context(), m)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}
