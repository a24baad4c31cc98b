package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/gradfit/internal/config"
	"github.com/copyleftdev/gradfit/internal/logging"
)

func testConfig(metricsEnabled bool) *config.Config {
	cfg := &config.Config{Environment: "test"}
	cfg.HTTP.Port = 0
	cfg.HTTP.WriteTimeout = 5 * time.Second
	cfg.HTTP.ShutdownTimeout = 5 * time.Second
	cfg.Descent.LearningRate = 0.01
	cfg.Descent.Iterations = 100
	cfg.Descent.MaxCostHistory = 100000
	cfg.Descent.Snapshots = 10
	cfg.Descent.MaxIterations = 1000
	cfg.Jobs.TTL = time.Minute
	cfg.Jobs.SweepWorkers = 2
	cfg.Metrics.Enabled = metricsEnabled
	return cfg
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name    string
		metrics bool
		method  string
		path    string
		body    string
		status  int
		contain string
	}{
		{name: "health", metrics: true, method: http.MethodGet, path: "/healthz", status: http.StatusOK, contain: "OK"},
		{name: "metrics exposed", metrics: true, method: http.MethodGet, path: "/metrics", status: http.StatusOK, contain: "go_goroutines"},
		{name: "metrics disabled", metrics: false, method: http.MethodGet, path: "/metrics", status: http.StatusNotFound},
		{
			name:    "evaluate",
			metrics: true,
			method:  http.MethodPost,
			path:    "/api/v1/evaluate",
			body:    `{"x":[1,2],"y":[300,500],"w":2,"b":1}`,
			status:  http.StatusOK,
			contain: `"cost":83308.5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			handler, fits := newRouter(testConfig(tt.metrics), logging.New(logging.ErrorLevel, &logs))
			t.Cleanup(func() { require.NoError(t, fits.Close()) })

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			if tt.contain != "" {
				assert.Contains(t, rr.Body.String(), tt.contain)
			}
		})
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	var logs bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, testConfig(false), logging.New(logging.InfoLevel, &logs)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
	assert.Contains(t, logs.String(), "Shutting down server...")
}
