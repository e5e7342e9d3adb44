package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/methodflow/api"
	"github.com/BaSui01/methodflow/executor"
	"github.com/BaSui01/methodflow/registry"
	"github.com/BaSui01/methodflow/types"
)

// =============================================================================
// 🧩 方法目录与直接调用 Handler
// =============================================================================

// CatalogLoader 读取当前能力目录
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (*registry.Catalog, error)
}

// MethodExecutor 执行一次方法调用
type MethodExecutor interface {
	Execute(ctx context.Context, req executor.Request) *executor.Result
}

// DefaultMaxExecuteTimeout 是直接调用允许请求的最长超时
const DefaultMaxExecuteTimeout = 5 * time.Minute

// MethodHandler 方法接口处理器
type MethodHandler struct {
	catalog    CatalogLoader
	executor   MethodExecutor
	logger     *zap.Logger
	maxTimeout time.Duration
}

// NewMethodHandler 创建方法处理器
func NewMethodHandler(catalog CatalogLoader, exec MethodExecutor, logger *zap.Logger) *MethodHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MethodHandler{
		catalog:    catalog,
		executor:   exec,
		logger:     logger.With(zap.String("component", "method_handler")),
		maxTimeout: DefaultMaxExecuteTimeout,
	}
}

// WithMaxTimeout 设置请求超时上限, 非正值忽略
func (h *MethodHandler) WithMaxTimeout(d time.Duration) *MethodHandler {
	if d > 0 {
		h.maxTimeout = d
	}
	return h
}

// HandleList 返回能力目录
// @Summary 列出已注册方法
// @Tags 方法
// @Produce json
// @Success 200 {object} api.MethodListResponse
// @Failure 503 {object} Response "存储不可用"
// @Router /api/methods [get]
func (h *MethodHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.catalog.LoadCatalog(r.Context())
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.MethodListResponse{
		Methods:  catalog.Entries,
		Count:    len(catalog.Entries),
		Warnings: catalog.Warnings,
	})
}

// HandleExecute 直接调用一个已注册方法。执行失败时 data 中仍携带完整 Result。
// @Summary 调用方法
// @Tags 方法
// @Accept json
// @Produce json
// @Param name path string true "方法名"
// @Param request body api.ExecuteMethodRequest false "调用参数"
// @Success 200 {object} executor.Result
// @Failure 400 {object} Response "参数错误或超时超过上限"
// @Failure 404 {object} Response "方法未注册"
// @Router /api/methods/{name}/execute [post]
func (h *MethodHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		WriteError(w, r, types.NewError(types.ErrInvalidRequest, "method name is required"), h.logger)
		return
	}

	var req api.ExecuteMethodRequest
	if r.ContentLength != 0 {
		if err := DecodeJSONBody(w, r, &req); err != nil {
			WriteError(w, r, err, h.logger)
			return
		}
	}

	var timeout time.Duration
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil || d <= 0 {
			WriteError(w, r, types.Errorf(types.ErrInvalidRequest, "invalid timeout %q", req.Timeout), h.logger)
			return
		}
		if d > h.maxTimeout {
			WriteError(w, r, types.Errorf(types.ErrInvalidRequest,
				"timeout %s exceeds maximum %s", d, h.maxTimeout), h.logger)
			return
		}
		timeout = d
	}

	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}
	res := h.executor.Execute(r.Context(), executor.Request{
		Method:    name,
		Arguments: args,
		Timeout:   timeout,
	})

	if res.Success {
		WriteSuccess(w, r, res)
		return
	}
	resp := envelope(r, false, res, &ErrorInfo{Code: string(res.ErrorCode), Message: res.Error})
	WriteJSON(w, types.StatusFor(res.ErrorCode), resp)
}
