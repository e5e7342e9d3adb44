package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/methodflow/internal/ctxkeys"
	"github.com/BaSui01/methodflow/orchestrator"
	"github.com/BaSui01/methodflow/types"
)

// Runner 处理一条任务描述. *orchestrator.Orchestrator 实现该接口.
type Runner interface {
	Run(ctx context.Context, task string) (*orchestrator.Outcome, error)
}

// MetricsRecorder 记录任务的终态.
type MetricsRecorder interface {
	RecordTask(status string, toolCalled bool, duration time.Duration)
}

// Service 管理任务记录的生命周期: pending -> processing -> completed|failed.
type Service struct {
	store   Store
	runner  Runner
	logger  *zap.Logger
	metrics MetricsRecorder
	now     func() time.Time
	newID   func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides task ID generation.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a task service.
func NewService(store Store, runner Runner, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		runner: runner,
		logger: logger.With(zap.String("component", "task_service")),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records a task and runs it synchronously. A failed run is reported
// in the returned record; only storage and request errors are returned.
func (s *Service) Submit(ctx context.Context, description string) (*Record, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "task description must not be empty")
	}

	rec := &Record{
		ID:          s.newID(),
		Description: description,
		Status:      StatusPending,
		CreatedAt:   s.now(),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("task_id", rec.ID))
	log.Info("task submitted")

	if err := s.advance(ctx, rec, StatusProcessing); err != nil {
		return nil, err
	}

	out, runErr := s.runner.Run(ctxkeys.WithTaskID(ctx, rec.ID), description)

	// 终态写入不受请求取消影响
	finishCtx := context.WithoutCancel(ctx)
	toolCalled := false
	if out != nil && out.ToolCall != nil {
		rec.ToolCall = out.ToolCall.Name
		toolCalled = true
	}
	if runErr != nil {
		rec.Error = runErr.Error()
		if err := s.advance(finishCtx, rec, StatusFailed); err != nil {
			return nil, err
		}
		log.Warn("task failed", zap.Error(runErr))
	} else {
		rec.Result = out.Answer
		if err := s.advance(finishCtx, rec, StatusCompleted); err != nil {
			return nil, err
		}
		log.Info("task completed", zap.String("tool_call", rec.ToolCall))
	}

	if s.metrics != nil {
		s.metrics.RecordTask(string(rec.Status), toolCalled, rec.CompletedAt.Sub(rec.CreatedAt))
	}
	return rec, nil
}

// Get returns the record with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.store.Get(ctx, id)
}

// List returns the most recent records.
func (s *Service) List(ctx context.Context, limit int) ([]*Record, error) {
	return s.store.List(ctx, limit)
}

func (s *Service) advance(ctx context.Context, rec *Record, to Status) error {
	if !canTransition(rec.Status, to) {
		return types.Errorf(types.ErrInternalError, "invalid task transition %s -> %s", rec.Status, to)
	}
	rec.Status = to
	if to.IsTerminal() {
		now := s.now()
		rec.CompletedAt = &now
	}
	return s.store.Update(ctx, rec)
}
