package server

import (
	"math"
	"strconv"
	"time"

	"github.com/spf13/cast"

	"github.com/copyleftdev/gradfit/internal/config"
	apperrors "github.com/copyleftdev/gradfit/internal/errors"
	"github.com/copyleftdev/gradfit/internal/optimization"
	"github.com/copyleftdev/gradfit/internal/optimization/descent"
)

// fitRequest is a decoded fit, evaluate or sweep request. Numbers may
// arrive as JSON numbers or numeric strings.
type fitRequest struct {
	Dataset       optimization.Dataset
	Init          optimization.Params
	LearningRate  float64
	LearningRates []float64
	Iterations    int
	Method        string
}

// parseParams extracts the first parameter object of a JSON-RPC call.
// Both positional ([{...}]) and named ({...}) params are accepted.
func parseParams(params interface{}) (map[string]interface{}, error) {
	switch p := params.(type) {
	case map[string]interface{}:
		return p, nil
	case []interface{}:
		if len(p) == 0 {
			return nil, apperrors.InvalidParams("missing required parameters")
		}
		m, ok := p[0].(map[string]interface{})
		if !ok {
			return nil, apperrors.InvalidParams("invalid parameter format, expected object")
		}
		return m, nil
	case nil:
		return nil, apperrors.InvalidParams("missing required parameters")
	default:
		return nil, apperrors.InvalidParams("invalid parameter format, expected object")
	}
}

// parseDataset reads the x and y arrays and builds a Dataset from them.
func parseDataset(m map[string]interface{}) (optimization.Dataset, error) {
	xs, err := floatSlice(m, "x")
	if err != nil {
		return optimization.Dataset{}, err
	}
	ys, err := floatSlice(m, "y")
	if err != nil {
		return optimization.Dataset{}, err
	}

	ds, err := optimization.NewDataset(xs, ys)
	if err != nil {
		return optimization.Dataset{}, apperrors.FromError(err)
	}
	return ds, nil
}

// parseFitRequest decodes a fit request. Missing hyperparameters fall back
// to the configured defaults.
func parseFitRequest(m map[string]interface{}, cfg *config.Config) (*fitRequest, error) {
	ds, err := parseDataset(m)
	if err != nil {
		return nil, err
	}

	req := &fitRequest{
		Dataset:      ds,
		LearningRate: cfg.Descent.LearningRate,
		Iterations:   cfg.Descent.Iterations,
		Method:       descent.MethodBatch,
	}

	if req.Init.W, err = optionalFloat(m, "w", 0); err != nil {
		return nil, err
	}
	if req.Init.B, err = optionalFloat(m, "b", 0); err != nil {
		return nil, err
	}
	if req.LearningRate, err = optionalFloat(m, "learning_rate", req.LearningRate); err != nil {
		return nil, err
	}

	if v, ok := m["iterations"]; ok && v != nil {
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil, apperrors.InvalidParams("iterations must be an integer")
		}
		req.Iterations = n
	}
	if req.Iterations < 0 {
		return nil, apperrors.InvalidParams("iterations must be non-negative, got %d", req.Iterations)
	}
	if req.Iterations > cfg.Descent.MaxIterations {
		return nil, apperrors.InvalidParams("iterations must not exceed %d, got %d", cfg.Descent.MaxIterations, req.Iterations)
	}

	if v, ok := m["method"]; ok && v != nil {
		req.Method = cast.ToString(v)
	}
	switch req.Method {
	case descent.MethodBatch, descent.MethodLineSearch:
	default:
		return nil, apperrors.InvalidParams("unknown method %q", req.Method)
	}

	if _, ok := m["learning_rates"]; ok {
		if req.LearningRates, err = floatSlice(m, "learning_rates"); err != nil {
			return nil, err
		}
	}

	return req, nil
}

func floatSlice(m map[string]interface{}, key string) ([]float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, apperrors.InvalidParams("%s is required", key)
	}

	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, apperrors.InvalidParams("%s must be an array of numbers", key)
	}

	out := make([]float64, len(items))
	for i, item := range items {
		f, err := cast.ToFloat64E(item)
		if err != nil {
			return nil, apperrors.InvalidParams("%s[%d] is not a number: %v", key, i, item)
		}
		out[i] = f
	}
	return out, nil
}

func optionalFloat(m map[string]interface{}, key string, def float64) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, apperrors.InvalidParams("%s must be a number", key)
	}
	return f, nil
}

func requiredString(m map[string]interface{}, key string) (string, error) {
	s := cast.ToString(m[key])
	if s == "" {
		return "", apperrors.InvalidParams("%s is required", key)
	}
	return s, nil
}

// number encodes NaN and ±Inf as null, which encoding/json cannot represent.
type number float64

// MarshalJSON implements json.Marshaler.
func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

func numbers(fs []float64) []number {
	out := make([]number, len(fs))
	for i, f := range fs {
		out[i] = number(f)
	}
	return out
}

type paramsResponse struct {
	W number `json:"w"`
	B number `json:"b"`
}

func newParamsResponse(p optimization.Params) paramsResponse {
	return paramsResponse{W: number(p.W), B: number(p.B)}
}

type resultResponse struct {
	Method           string           `json:"method"`
	Params           paramsResponse   `json:"params"`
	Cost             number           `json:"cost"`
	Iterations       int              `json:"iterations"`
	SnapshotInterval int              `json:"snapshot_interval"`
	ElapsedMS        float64          `json:"elapsed_ms"`
	CostHistory      []number         `json:"cost_history,omitempty"`
	ParamHistory     []paramsResponse `json:"param_history,omitempty"`
}

func newResultResponse(r *optimization.Result, history bool) *resultResponse {
	resp := &resultResponse{
		Method:           r.Method,
		Params:           newParamsResponse(r.Params),
		Cost:             number(r.Cost),
		Iterations:       r.Iterations,
		SnapshotInterval: r.SnapshotInterval,
		ElapsedMS:        float64(r.Elapsed.Microseconds()) / 1000.0,
	}
	if history {
		resp.CostHistory = numbers(r.CostHistory)
		resp.ParamHistory = make([]paramsResponse, len(r.ParamHistory))
		for i, p := range r.ParamHistory {
			resp.ParamHistory[i] = newParamsResponse(p)
		}
	}
	return resp
}

type jobResponse struct {
	ID          string          `json:"fit_id"`
	Method      string          `json:"method"`
	Status      string          `json:"status"`
	Progress    float64         `json:"progress"`
	Iteration   int             `json:"iteration"`
	Params      paramsResponse  `json:"params"`
	Cost        number          `json:"cost"`
	StartTime   string          `json:"start_time"`
	LastUpdated string          `json:"last_update"`
	EndTime     string          `json:"end_time,omitempty"`
	Error       string          `json:"error,omitempty"`
	Result      *resultResponse `json:"result,omitempty"`
}

// snapshot copies the job state under its lock.
func (j *FitJob) snapshot(history bool) *jobResponse {
	j.mu.Lock()
	defer j.mu.Unlock()

	resp := &jobResponse{
		ID:          j.ID,
		Method:      j.Method,
		Status:      j.Status,
		Progress:    j.Progress,
		Iteration:   j.Iteration,
		Params:      newParamsResponse(j.Params),
		Cost:        number(j.Cost),
		StartTime:   j.StartTime.Format(time.RFC3339),
		LastUpdated: j.LastUpdated.Format(time.RFC3339),
	}
	if j.EndTime != nil {
		resp.EndTime = j.EndTime.Format(time.RFC3339)
	}
	if j.Err != nil {
		resp.Error = apperrors.FromError(j.Err).PublicMessage()
	}
	if j.Result != nil {
		resp.Result = newResultResponse(j.Result, history)
	}
	return resp
}
