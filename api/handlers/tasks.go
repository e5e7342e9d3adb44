package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/methodflow/api"
	"github.com/BaSui01/methodflow/tasks"
	"github.com/BaSui01/methodflow/types"
)

// maxListLimit 单次列表请求的上限
const maxListLimit = 100

// =============================================================================
// 📋 任务 Handler
// =============================================================================

// TaskService 任务提交与历史查询
type TaskService interface {
	Submit(ctx context.Context, description string) (*tasks.Record, error)
	Get(ctx context.Context, id string) (*tasks.Record, error)
	List(ctx context.Context, limit int) ([]*tasks.Record, error)
}

// TaskHandler 任务接口处理器
type TaskHandler struct {
	service TaskService
	logger  *zap.Logger
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(service TaskService, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{
		service: service,
		logger:  logger.With(zap.String("component", "task_handler")),
	}
}

// HandleSubmit 同步执行一个任务并返回其记录。任务本身失败时仍返回 201，
// 失败原因在记录的 error 字段中。
// @Summary 提交任务
// @Tags 任务
// @Accept json
// @Produce json
// @Param request body api.SubmitTaskRequest true "任务"
// @Success 201 {object} tasks.Record
// @Failure 400 {object} Response "描述为空"
// @Router /api/tasks [post]
func (h *TaskHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitTaskRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	rec, err := h.service.Submit(r.Context(), req.Description)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	w.Header().Set("Location", "/api/tasks/"+rec.ID)
	WriteCreated(w, r, rec)
}

// HandleGet 返回单个任务记录
// @Summary 查询任务
// @Tags 任务
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} tasks.Record
// @Failure 404 {object} Response "任务不存在"
// @Router /api/tasks/{id} [get]
func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, rec)
}

// HandleList 返回最近的任务记录
// @Summary 任务历史
// @Tags 任务
// @Produce json
// @Param limit query int false "返回数量（1-100）"
// @Success 200 {object} api.TaskListResponse
// @Router /api/tasks [get]
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := tasks.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, r, types.Errorf(types.ErrInvalidRequest, "invalid limit %q", raw), h.logger)
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := h.service.List(r.Context(), limit)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if records == nil {
		records = []*tasks.Record{}
	}
	WriteSuccess(w, r, api.TaskListResponse{Tasks: records, Count: len(records)})
}
