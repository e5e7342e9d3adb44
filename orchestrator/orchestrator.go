package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/methodflow/executor"
	"github.com/BaSui01/methodflow/internal/ctxkeys"
	"github.com/BaSui01/methodflow/llm"
	"github.com/BaSui01/methodflow/llm/tokenizer"
	"github.com/BaSui01/methodflow/registry"
	"github.com/BaSui01/methodflow/types"
)

// 补全阶段
const (
	StagePlan   = "plan"
	StageAnswer = "answer"
)

// CatalogSource 提供当前注册表的能力目录.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) (*registry.Catalog, error)
}

// Invoker 执行一次工具调用. *executor.Executor 实现该接口.
type Invoker interface {
	Execute(ctx context.Context, req executor.Request) *executor.Result
}

// MetricsRecorder 记录模型补全的结果.
type MetricsRecorder interface {
	RecordCompletion(stage, status string, duration time.Duration)
}

// Config 是补全调用的生成参数.
type Config struct {
	Model             string
	Temperature       float32
	MaxTokens         int
	CompletionTimeout time.Duration
	// ToolTimeout overrides the executor budget when positive.
	ToolTimeout time.Duration
}

// DefaultConfig returns the generation defaults.
func DefaultConfig() Config {
	return Config{
		Temperature:       0.7,
		MaxTokens:         2000,
		CompletionTimeout: 60 * time.Second,
	}
}

// Outcome 是一次任务运行的结果.
type Outcome struct {
	Answer       string           `json:"answer"`
	ToolCall     *ToolCall        `json:"tool_call,omitempty"`
	Execution    *executor.Result `json:"execution,omitempty"`
	PromptTokens int              `json:"prompt_tokens"`
	Duration     time.Duration    `json:"-"`
}

// ToolCalled reports whether the planner requested a tool.
func (o *Outcome) ToolCalled() bool { return o.ToolCall != nil }

// Orchestrator 驱动单次 "规划 -> 至多一次工具调用 -> 作答" 流程.
type Orchestrator struct {
	provider  llm.Provider
	catalog   CatalogSource
	invoker   Invoker
	cfg       Config
	logger    *zap.Logger
	tokenizer tokenizer.Tokenizer
	metrics   MetricsRecorder
	tracer    trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTokenizer sets the tokenizer used to measure planning prompts.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(o *Orchestrator) { o.tokenizer = t }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// New creates an orchestrator.
func New(provider llm.Provider, catalog CatalogSource, invoker Invoker, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		catalog:  catalog,
		invoker:  invoker,
		cfg:      cfg,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("methodflow/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", "orchestrator"))
	return o
}

// Run loads the current catalog and processes one task.
func (o *Orchestrator) Run(ctx context.Context, task string) (*Outcome, error) {
	if o.catalog == nil {
		return o.RunWithCatalog(ctx, task, nil)
	}
	cat, err := o.catalog.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range cat.Warnings {
		o.logger.Warn("catalog warning", zap.String("warning", w))
	}
	return o.RunWithCatalog(ctx, task, cat.Entries)
}

// RunWithCatalog processes one task against the given catalog.
//
// A planner failure aborts the task with an ErrPlanner error. A timeout of
// the tool call or of the answer completion also fails the task; the partial
// Outcome is returned together with the error. Any other answer completion
// failure falls back to a plain "tool: result" text.
func (o *Orchestrator) RunWithCatalog(ctx context.Context, task string, entries []registry.CatalogEntry) (*Outcome, error) {
	start := time.Now()
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "task must not be empty")
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.run",
		trace.WithAttributes(attribute.Int("catalog.size", len(entries))))
	defer span.End()

	log := o.logger
	if id, ok := ctxkeys.TaskID(ctx); ok {
		log = log.With(zap.String("task_id", id))
		span.SetAttributes(attribute.String("task.id", id))
	}

	system := BuildPlanningPrompt(entries)
	out := &Outcome{PromptTokens: o.countTokens(ComposePrompt(system, task))}

	plan, err := o.complete(ctx, StagePlan, system, task)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	call, ignored := ExtractToolCall(plan)
	if ignored > 0 {
		log.Debug("additional tool calls ignored", zap.Int("count", ignored))
	}
	if call == nil {
		out.Answer = plan
		out.Duration = time.Since(start)
		span.SetAttributes(attribute.Bool("tool.called", false))
		return out, nil
	}

	out.ToolCall = call
	span.SetAttributes(attribute.Bool("tool.called", true), attribute.String("tool.name", call.Name))
	log.Info("tool call requested",
		zap.String("tool", call.Name),
		zap.Any("parameters", call.Parameters))

	res := o.invoker.Execute(ctx, executor.Request{
		Method:    call.Name,
		Arguments: call.Parameters,
		Timeout:   o.cfg.ToolTimeout,
	})
	out.Execution = res
	if res.ErrorCode == types.ErrTimeout {
		err := res.Err()
		log.Warn("tool call timed out", zap.String("tool", call.Name), zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		out.Duration = time.Since(start)
		return out, err
	}

	answer, err := o.complete(ctx, StageAnswer, "", BuildAnswerPrompt(task, call, res))
	if err != nil {
		if isTimeout(err) {
			span.SetStatus(codes.Error, err.Error())
			out.Duration = time.Since(start)
			return out, err
		}
		log.Warn("answer completion failed, using tool result",
			zap.String("tool", call.Name),
			zap.Error(err))
		answer = fallbackAnswer(call, res)
	}
	out.Answer = answer
	out.Duration = time.Since(start)
	return out, nil
}

func (o *Orchestrator) complete(ctx context.Context, stage, system, message string) (string, error) {
	start := time.Now()
	temperature := o.cfg.Temperature
	resp, err := o.provider.Complete(ctx, &llm.CompletionRequest{
		Model:       o.cfg.Model,
		Prompt:      ComposePrompt(system, message),
		Temperature: &temperature,
		MaxTokens:   o.cfg.MaxTokens,
		Timeout:     o.cfg.CompletionTimeout,
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	if o.metrics != nil {
		o.metrics.RecordCompletion(stage, status, time.Since(start))
	}
	if err != nil {
		if !types.IsErrorCode(err, types.ErrPlanner) {
			err = types.WrapError(err, types.ErrPlanner, "completion failed")
		}
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// isTimeout reports whether err stems from an exceeded deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func (o *Orchestrator) countTokens(prompt string) int {
	if o.tokenizer == nil {
		return 0
	}
	n, err := o.tokenizer.CountTokens(prompt)
	if err != nil {
		o.logger.Debug("token count failed", zap.Error(err))
		return 0
	}
	if limit := o.tokenizer.MaxTokens(); limit > 0 && n > limit {
		o.logger.Warn("planning prompt exceeds tokenizer window",
			zap.Int("tokens", n),
			zap.Int("max_tokens", limit))
	}
	return n
}
