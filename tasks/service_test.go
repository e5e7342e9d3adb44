package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/methodflow/internal/ctxkeys"
	"github.com/BaSui01/methodflow/orchestrator"
	"github.com/BaSui01/methodflow/types"
)

type runnerFunc func(ctx context.Context, task string) (*orchestrator.Outcome, error)

func (f runnerFunc) Run(ctx context.Context, task string) (*orchestrator.Outcome, error) {
	return f(ctx, task)
}

type taskMetrics struct {
	mu     sync.Mutex
	events []string
}

func (m *taskMetrics) RecordTask(status string, toolCalled bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if toolCalled {
		status += "+tool"
	}
	m.events = append(m.events, status)
}

// statusSpy 记录每次 Update 时的状态.
type statusSpy struct {
	*MemoryStore
	mu       sync.Mutex
	statuses []Status
}

func (s *statusSpy) Update(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	s.statuses = append(s.statuses, rec.Status)
	s.mu.Unlock()
	return s.MemoryStore.Update(ctx, rec)
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestService_SubmitCompletesWithToolCall(t *testing.T) {
	store := &statusSpy{MemoryStore: NewMemoryStore()}
	metrics := &taskMetrics{}
	var seen string
	runner := runnerFunc(func(_ context.Context, task string) (*orchestrator.Outcome, error) {
		seen = task
		return &orchestrator.Outcome{
			Answer:   "2 加 3 等于 5",
			ToolCall: &orchestrator.ToolCall{Name: "add"},
		}, nil
	})

	svc := NewService(store, runner, nil,
		WithMetrics(metrics),
		WithClock(fixedClock()),
		WithIDGenerator(func() string { return "task-1" }))

	rec, err := svc.Submit(context.Background(), "  what is 2 plus 3  ")
	require.NoError(t, err)

	assert.Equal(t, "what is 2 plus 3", seen)
	assert.Equal(t, "task-1", rec.ID)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, "2 加 3 等于 5", rec.Result)
	assert.Equal(t, "add", rec.ToolCall)
	assert.Empty(t, rec.Error)
	require.NotNil(t, rec.CompletedAt)
	assert.True(t, rec.CompletedAt.After(rec.CreatedAt))

	assert.Equal(t, []Status{StatusProcessing, StatusCompleted}, store.statuses)
	assert.Equal(t, []string{"completed+tool"}, metrics.events)

	stored, err := svc.Get(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
}

func TestService_SubmitWithoutToolCall(t *testing.T) {
	svc := NewService(NewMemoryStore(), runnerFunc(func(context.Context, string) (*orchestrator.Outcome, error) {
		return &orchestrator.Outcome{Answer: "你好"}, nil
	}), nil)

	rec, err := svc.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Empty(t, rec.ToolCall)
}

func TestService_SubmitRecordsPlannerFailure(t *testing.T) {
	metrics := &taskMetrics{}
	perr := types.NewError(types.ErrPlanner, "ollama unreachable")
	svc := NewService(NewMemoryStore(), runnerFunc(func(context.Context, string) (*orchestrator.Outcome, error) {
		return nil, perr
	}), nil, WithMetrics(metrics))

	rec, err := svc.Submit(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "ollama unreachable")
	assert.Empty(t, rec.Result)
	assert.NotNil(t, rec.CompletedAt)
	assert.Equal(t, []string{"failed"}, metrics.events)
}

func TestService_SubmitTimeoutAfterToolCallFails(t *testing.T) {
	metrics := &taskMetrics{}
	svc := NewService(NewMemoryStore(), runnerFunc(func(context.Context, string) (*orchestrator.Outcome, error) {
		out := &orchestrator.Outcome{ToolCall: &orchestrator.ToolCall{Name: "add"}}
		return out, types.WrapError(context.DeadlineExceeded, types.ErrPlanner, "completion failed")
	}), nil, WithMetrics(metrics))

	rec, err := svc.Submit(context.Background(), "2+3?")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "add", rec.ToolCall)
	assert.Contains(t, rec.Error, "deadline exceeded")
	assert.Empty(t, rec.Result)
	assert.Equal(t, []string{"failed+tool"}, metrics.events)
}

func TestService_SubmitRejectsEmpty(t *testing.T) {
	called := false
	svc := NewService(NewMemoryStore(), runnerFunc(func(context.Context, string) (*orchestrator.Outcome, error) {
		called = true
		return nil, nil
	}), nil)

	_, err := svc.Submit(context.Background(), " \n ")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	assert.False(t, called)
}

type failingStore struct{ *MemoryStore }

func (failingStore) Create(context.Context, *Record) error {
	return types.NewError(types.ErrStorage, "create task")
}

func TestService_SubmitStoreError(t *testing.T) {
	svc := NewService(failingStore{NewMemoryStore()}, runnerFunc(func(context.Context, string) (*orchestrator.Outcome, error) {
		return &orchestrator.Outcome{}, nil
	}), nil)

	_, err := svc.Submit(context.Background(), "x")
	assert.True(t, types.IsErrorCode(err, types.ErrStorage))
}

func TestService_FinalStateSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore()
	svc := NewService(store, runnerFunc(func(context.Context, string) (*orchestrator.Outcome, error) {
		cancel()
		return nil, errors.New("context canceled")
	}), nil, WithIDGenerator(func() string { return "c1" }))

	rec, err := svc.Submit(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)

	got, err := store.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
}

func TestService_List(t *testing.T) {
	ids := []string{"a", "b", "c"}
	i := 0
	svc := NewService(NewMemoryStore(), runnerFunc(func(context.Context, string) (*orchestrator.Outcome, error) {
		return &orchestrator.Outcome{Answer: "ok"}, nil
	}), nil,
		WithClock(fixedClock()),
		WithIDGenerator(func() string { id := ids[i]; i++; return id }))

	for range ids {
		_, err := svc.Submit(context.Background(), "task")
		require.NoError(t, err)
	}

	recs, err := svc.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, canTransition(StatusPending, StatusProcessing))
	assert.True(t, canTransition(StatusProcessing, StatusCompleted))
	assert.True(t, canTransition(StatusProcessing, StatusFailed))
	assert.False(t, canTransition(StatusCompleted, StatusFailed))
	assert.False(t, canTransition(StatusFailed, StatusProcessing))
	assert.False(t, canTransition(StatusPending, StatusCompleted))
}

func TestService_SubmitPassesTaskIDToRunner(t *testing.T) {
	var seen string
	runner := runnerFunc(func(ctx context.Context, task string) (*orchestrator.Outcome, error) {
		seen, _ = ctxkeys.TaskID(ctx)
		return &orchestrator.Outcome{Answer: "ok"}, nil
	})
	svc := NewService(NewMemoryStore(), runner, nil, WithIDGenerator(func() string { return "task-42" }))

	rec, err := svc.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "task-42", rec.ID)
	assert.Equal(t, "task-42", seen)
}
