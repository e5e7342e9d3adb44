package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/methodflow/api"
	"github.com/BaSui01/methodflow/executor"
	"github.com/BaSui01/methodflow/registry"
	"github.com/BaSui01/methodflow/types"
)

type fakeCatalog struct {
	catalog *registry.Catalog
	err     error
}

func (f *fakeCatalog) LoadCatalog(context.Context) (*registry.Catalog, error) {
	return f.catalog, f.err
}

type fakeExecutor struct {
	got    executor.Request
	result *executor.Result
}

func (f *fakeExecutor) Execute(_ context.Context, req executor.Request) *executor.Result {
	f.got = req
	return f.result
}

func methodMux(h *MethodHandler) *http.ServeMux {
	mux := http.NewServeMux()
	Routes{Methods: h}.Register(mux)
	return mux
}

func TestMethodHandler_HandleList(t *testing.T) {
	catalog := &registry.Catalog{
		Entries: registry.ToCapabilityCatalog([]registry.MethodDescriptor{{
			Name:        "add",
			Description: "Add two numbers",
			Parameters: []registry.ParameterSpec{
				{Name: "a", Type: registry.TypeInteger, Required: true},
				{Name: "b", Type: registry.TypeInteger, Required: true},
			},
			ReturnType: registry.TypeInteger,
			Locator:    registry.Locator{ModulePath: "builtin/math", FunctionName: "add"},
		}}),
		Warnings: []string{"skipped broken row"},
	}
	mux := methodMux(NewMethodHandler(&fakeCatalog{catalog: catalog}, &fakeExecutor{}, zap.NewNop()))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/methods", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	var list api.MethodListResponse
	redecode(t, resp.Data, &list)
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Methods, 1)
	assert.Equal(t, "add", list.Methods[0].Name)
	assert.Equal(t, []string{"a", "b"}, list.Methods[0].Parameters.Required)
	assert.Equal(t, []string{"skipped broken row"}, list.Warnings)
}

func TestMethodHandler_HandleListStorageError(t *testing.T) {
	loader := &fakeCatalog{err: types.WrapError(errors.New("db down"), types.ErrStorage, "load methods")}
	mux := methodMux(NewMethodHandler(loader, &fakeExecutor{}, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/methods", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORAGE", decodeResponse(t, w).Error.Code)
}

func TestMethodHandler_HandleExecute(t *testing.T) {
	exec := &fakeExecutor{result: &executor.Result{Success: true, Result: float64(7), ElapsedMS: 0.2}}
	mux := methodMux(NewMethodHandler(&fakeCatalog{}, exec, zap.NewNop()))

	body := `{"arguments":{"a":3,"b":"4"},"timeout":"2s"}`
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/methods/add/execute", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "add", exec.got.Method)
	assert.Equal(t, 2*time.Second, exec.got.Timeout)
	assert.Equal(t, float64(3), exec.got.Arguments["a"])
	assert.Equal(t, "4", exec.got.Arguments["b"])

	resp := decodeResponse(t, w)
	var res executor.Result
	redecode(t, resp.Data, &res)
	assert.True(t, res.Success)
	assert.Equal(t, float64(7), res.Result)
}

func TestMethodHandler_HandleExecuteWithoutBody(t *testing.T) {
	exec := &fakeExecutor{result: &executor.Result{Success: true, Result: "pong"}}
	mux := methodMux(NewMethodHandler(&fakeCatalog{}, exec, zap.NewNop()))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/methods/ping/execute", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, exec.got.Arguments)
	assert.Empty(t, exec.got.Arguments)
	assert.Zero(t, exec.got.Timeout)
}

func TestMethodHandler_HandleExecuteFailures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		result     *executor.Result
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unregistered method",
			body:       `{"arguments":{}}`,
			result:     &executor.Result{Error: `method "nope" is not registered`, ErrorCode: types.ErrResolution},
			wantStatus: http.StatusNotFound,
			wantCode:   "RESOLUTION",
		},
		{
			name:       "bad arguments",
			body:       `{"arguments":{"a":"x"}}`,
			result:     &executor.Result{Error: "parameter a: cannot convert", ErrorCode: types.ErrArgument},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ARGUMENT",
		},
		{
			name:       "timeout",
			body:       `{}`,
			result:     &executor.Result{Error: "deadline exceeded", ErrorCode: types.ErrTimeout},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "TIMEOUT",
		},
		{
			name:       "invalid timeout",
			body:       `{"timeout":"soon"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "malformed body",
			body:       `{"arguments":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{result: tt.result}
			mux := methodMux(NewMethodHandler(&fakeCatalog{}, exec, zap.NewNop()))

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/methods/nope/execute", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestMethodHandler_TimeoutAboveMaximum(t *testing.T) {
	tests := []struct {
		name       string
		max        time.Duration
		body       string
		wantStatus int
		wantCalled bool
	}{
		{name: "default cap", body: `{"timeout":"100h"}`, wantStatus: http.StatusBadRequest},
		{name: "configured cap", max: time.Second, body: `{"timeout":"2s"}`, wantStatus: http.StatusBadRequest},
		{name: "at cap", max: time.Second, body: `{"timeout":"1s"}`, wantStatus: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{result: &executor.Result{Success: true, Result: "pong"}}
			mux := methodMux(NewMethodHandler(&fakeCatalog{}, exec, nil).WithMaxTimeout(tt.max))

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/methods/ping/execute", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, exec.got.Method != "")
			if !tt.wantCalled {
				resp := decodeResponse(t, w)
				require.NotNil(t, resp.Error)
				assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
				assert.Contains(t, resp.Error.Message, "exceeds maximum")
			}
		})
	}
}

func TestMethodHandler_MethodNotAllowed(t *testing.T) {
	mux := methodMux(NewMethodHandler(&fakeCatalog{}, &fakeExecutor{}, zap.NewNop()))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/methods", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
