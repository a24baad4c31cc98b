package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/spf13/cast"

	apperrors "github.com/copyleftdev/gradfit/internal/errors"
)

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcMethod func(ctx context.Context, params map[string]interface{}) (interface{}, error)

func (s *Server) rpcMethods() map[string]rpcMethod {
	return map[string]rpcMethod{
		// {"x": [1, 2], "y": [300, 500], "w": 0, "b": 0, "learning_rate": 0.01, "iterations": 1000}
		"fit.start": func(_ context.Context, p map[string]interface{}) (interface{}, error) {
			return s.startFit(p)
		},
		// {"fit_id": "fit_...", "history": false}
		"fit.status": func(_ context.Context, p map[string]interface{}) (interface{}, error) {
			id, err := requiredString(p, "fit_id")
			if err != nil {
				return nil, err
			}
			return s.fitStatus(id, cast.ToBool(p["history"]))
		},
		// {"fit_id": "fit_..."}
		"fit.cancel": func(_ context.Context, p map[string]interface{}) (interface{}, error) {
			id, err := requiredString(p, "fit_id")
			if err != nil {
				return nil, err
			}
			return s.cancelFit(id)
		},
		// {"x": [...], "y": [...], "w": 2, "b": 1}
		"fit.evaluate": func(_ context.Context, p map[string]interface{}) (interface{}, error) {
			return s.evaluate(p)
		},
		// {"x": [...], "y": [...], "learning_rates": [0.001, 0.01, 0.1], "iterations": 1000}
		"fit.sweep": s.sweep,
	}
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&request); err != nil {
		s.respondWithError(w, apperrors.CodeParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, apperrors.CodeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	method, ok := s.rpcMethods()[request.Method]
	if !ok {
		s.respondWithError(w, apperrors.CodeMethodNotFound, "Method not found", request.ID)
		return
	}

	params, err := parseParams(request.Params)
	if err != nil {
		s.respondWithAPIError(w, err, request.Method, request.ID)
		return
	}

	result, err := method(r.Context(), params)
	if err != nil {
		s.respondWithAPIError(w, err, request.Method, request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}
	s.respondJSON(w, http.StatusOK, response)
}

// respondWithAPIError classifies err and sends it as a JSON-RPC error.
func (s *Server) respondWithAPIError(w http.ResponseWriter, err error, method string, id interface{}) {
	e := apperrors.FromError(err).WithOperation(method)
	if e.HTTPStatus() >= http.StatusInternalServerError {
		s.logger.Error("RPC call failed", map[string]interface{}{
			"method": method,
			"error":  e,
		})
	}
	s.respondWithError(w, e.Code, e.PublicMessage(), id)
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("Request error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}
	s.respondJSON(w, http.StatusOK, response)
}
