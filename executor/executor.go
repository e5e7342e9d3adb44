package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/methodflow/registry"
	"github.com/BaSui01/methodflow/types"
)

// DefaultTimeout 是单次调用的默认时间预算.
const DefaultTimeout = 30 * time.Second

// DescriptorSource 按名称查找方法描述. 未注册时返回 (nil, nil).
type DescriptorSource interface {
	LoadByName(ctx context.Context, name string) (*registry.MethodDescriptor, error)
}

// MetricsRecorder 记录每次执行的结果.
type MetricsRecorder interface {
	RecordExecution(method, outcome string, duration time.Duration)
}

// Request 是一次工具调用请求. Arguments 为转换前的原始值.
type Request struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments"`
	// Timeout overrides the executor budget when positive.
	Timeout time.Duration `json:"-"`
}

// Result 是一次执行的结构化结果. Duration 在任何路径上都会填充.
type Result struct {
	Success   bool            `json:"success"`
	Result    any             `json:"result"`
	Error     string          `json:"error,omitempty"`
	ErrorCode types.ErrorCode `json:"error_code,omitempty"`
	Duration  time.Duration   `json:"-"`
	ElapsedMS float64         `json:"elapsed_ms"`
}

// Err returns the failure as a *types.Error, or nil on success.
func (r *Result) Err() error {
	if r.Success {
		return nil
	}
	return types.NewError(r.ErrorCode, r.Error)
}

// Executor 解析方法名并在时间预算内调用其实现.
// 每次调用经历 Resolve -> Validate -> Coerce -> Invoke -> Collect.
type Executor struct {
	source  DescriptorSource
	cache   *CallableCache
	timeout time.Duration
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout sets the default invocation budget.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithTracer sets the tracer used for execution spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// New creates an executor. The cache is injected so callers can share or
// inspect it.
func New(source DescriptorSource, cache *CallableCache, opts ...Option) *Executor {
	e := &Executor{
		source:  source,
		cache:   cache,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("methodflow/executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "executor"))
	return e
}

// Cache returns the executor's callable cache.
func (e *Executor) Cache() *CallableCache { return e.cache }

// Execute runs one invocation. Failures are always captured in the returned
// Result; Execute never returns a Go error.
func (e *Executor) Execute(ctx context.Context, req Request) *Result {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "executor.execute",
		trace.WithAttributes(attribute.String("method.name", req.Method)))
	defer span.End()

	res := e.execute(ctx, req)
	res.Duration = time.Since(start)
	res.ElapsedMS = float64(res.Duration.Microseconds()) / 1000

	outcome := "success"
	if !res.Success {
		outcome = strings.ToLower(string(res.ErrorCode))
		span.SetStatus(codes.Error, res.Error)
		e.logger.Warn("method execution failed",
			zap.String("method", req.Method),
			zap.String("code", string(res.ErrorCode)),
			zap.String("error", res.Error),
			zap.Duration("duration", res.Duration))
	} else {
		e.logger.Debug("method executed",
			zap.String("method", req.Method),
			zap.Duration("duration", res.Duration))
	}
	span.SetAttributes(attribute.Bool("method.success", res.Success))
	if e.metrics != nil {
		e.metrics.RecordExecution(req.Method, outcome, res.Duration)
	}
	return res
}

func (e *Executor) execute(ctx context.Context, req Request) *Result {
	// Resolve
	desc, err := e.source.LoadByName(ctx, req.Method)
	if err != nil {
		return failure(err, types.ErrStorage)
	}
	if desc == nil {
		return failure(types.Errorf(types.ErrResolution, "method %q is not registered", req.Method), "")
	}

	// Validate + Coerce
	args, err := PrepareArguments(desc, req.Arguments)
	if err != nil {
		return failure(err, types.ErrArgument)
	}

	// Invoke
	fn, err := e.cache.Get(desc.Name, desc.Locator)
	if err != nil {
		return failure(err, types.ErrResolution)
	}

	timeout := e.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	value, err := invoke(ctx, fn, args, timeout)

	// Collect
	if err != nil {
		return failure(err, types.ErrExecution)
	}
	return &Result{Success: true, Result: value}
}

// PrepareArguments validates args against desc and returns the coerced map
// with defaults applied for absent optional parameters.
func PrepareArguments(desc *registry.MethodDescriptor, args map[string]any) (map[string]any, error) {
	var missing, unknown []string
	for _, p := range desc.Parameters {
		if _, ok := args[p.Name]; !ok && p.Required {
			missing = append(missing, p.Name)
		}
	}
	for k := range args {
		if _, ok := desc.Parameter(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(missing) > 0 || len(unknown) > 0 {
		sort.Strings(unknown)
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing required parameter(s): "+strings.Join(missing, ", "))
		}
		if len(unknown) > 0 {
			parts = append(parts, "unknown parameter(s): "+strings.Join(unknown, ", "))
		}
		return nil, types.NewError(types.ErrArgument, "parameter validation failed: "+strings.Join(parts, "; "))
	}

	out := make(map[string]any, len(desc.Parameters))
	for _, p := range desc.Parameters {
		raw, ok := args[p.Name]
		if !ok {
			if p.HasDefault() {
				v, err := Coerce(p.Name, p.Default, p.Type)
				if err != nil {
					return nil, err
				}
				out[p.Name] = v
			}
			continue
		}
		v, err := Coerce(p.Name, raw, p.Type)
		if err != nil {
			return nil, err
		}
		out[p.Name] = v
	}
	return out, nil
}

type invokeResult struct {
	value any
	err   error
}

// invoke runs fn under a deadline. On timeout the goroutine is abandoned; fn
// observes cancellation through ctx if it checks it.
func invoke(ctx context.Context, fn Callable, args map[string]any, timeout time.Duration) (any, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invokeResult{err: types.Errorf(types.ErrExecution, "method execution failed: panic: %v", r)}
			}
		}()
		v, err := fn(execCtx, args)
		done <- invokeResult{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if te, ok := types.AsError(r.err); ok && te.Code == types.ErrExecution {
				return nil, te
			}
			return nil, types.WrapError(r.err, types.ErrExecution, "method execution failed")
		}
		return r.value, nil
	case <-execCtx.Done():
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, types.Errorf(types.ErrTimeout, "method execution timeout after %s", timeout)
		}
		return nil, types.WrapError(execCtx.Err(), types.ErrExecution, "method execution canceled")
	}
}

// failure converts err into a failed Result. fallback is used when err
// carries no code.
func failure(err error, fallback types.ErrorCode) *Result {
	code := types.GetErrorCode(err)
	if code == "" {
		code = fallback
	}
	msg := err.Error()
	if te, ok := types.AsError(err); ok {
		msg = te.Message
		if te.Cause != nil {
			msg = fmt.Sprintf("%s: %v", te.Message, te.Cause)
		}
	}
	return &Result{Success: false, ErrorCode: code, Error: msg}
}
