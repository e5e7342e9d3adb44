package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("v1.2.3", zap.NewNop())

	for path, fn := range map[string]http.HandlerFunc{
		"/health":  h.HandleHealth,
		"/healthz": h.HandleHealthz,
	} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			fn(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			var status HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, "healthy", status.Status)
			assert.False(t, status.Timestamp.IsZero())
		})
	}
}

func TestHealthHandler_HandleReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]func(context.Context) error
		wantStatus int
		wantState  string
		failing    []string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "all pass",
			checks:     map[string]func(context.Context) error{"database": ok, "redis": ok, "model": ok},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "one fails",
			checks:     map[string]func(context.Context) error{"database": ok, "model": down},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
			failing:    []string{"model"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("dev", nil)
			for name, fn := range tt.checks {
				h.RegisterCheck(NewCheck(name, fn))
			}

			w := httptest.NewRecorder()
			h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var status HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, tt.wantState, status.Status)
			assert.Len(t, status.Checks, len(tt.checks))
			for _, name := range tt.failing {
				assert.Equal(t, "fail", status.Checks[name].Status)
				assert.Equal(t, "connection refused", status.Checks[name].Message)
			}
		})
	}
}

func TestHealthHandler_ReadyDetails(t *testing.T) {
	h := NewHealthHandler("v1", zap.NewNop())
	stats := map[string]int{"open_connections": 2}
	h.RegisterCheck(NewCheck("database", func(context.Context) error { return nil }).
		WithDetails(func() any { return stats }))
	h.RegisterCheck(NewCheck("redis", func(context.Context) error { return errors.New("down") }).
		WithDetails(func() any { return stats }))
	h.RegisterCheck(NewCheck("model", func(context.Context) error { return nil }))

	w := httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var status struct {
		Checks map[string]struct {
			Status  string         `json:"status"`
			Details map[string]int `json:"details"`
		} `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, 2, status.Checks["database"].Details["open_connections"])
	assert.Nil(t, status.Checks["redis"].Details, "failing checks carry no details")
	assert.Nil(t, status.Checks["model"].Details)
}

func TestHealthHandler_ReadyPassesDeadline(t *testing.T) {
	h := NewHealthHandler("dev", zap.NewNop())
	h.RegisterCheck(NewCheck("deadline", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	}))

	w := httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_HandleVersion(t *testing.T) {
	h := NewHealthHandler("v0.3.0", zap.NewNop())
	w := httptest.NewRecorder()
	h.HandleVersion(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	var info map[string]string
	redecode(t, resp.Data, &info)
	assert.Equal(t, "v0.3.0", info["version"])
	assert.NotEmpty(t, info["go_version"])
}
