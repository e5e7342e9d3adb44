// MockInvoker 是工具执行器的测试模拟实现。
//
// 支持预设结果、预设失败与调用记录。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/methodflow/executor"
	"github.com/BaSui01/methodflow/types"
)

// MockInvoker 按方法名返回预设的执行结果
type MockInvoker struct {
	mu sync.RWMutex

	results map[string]*executor.Result
	funcs   map[string]executor.Callable

	calls []executor.Request
}

// NewMockInvoker 创建新的 MockInvoker
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		results: make(map[string]*executor.Result),
		funcs:   make(map[string]executor.Callable),
	}
}

// WithResult 设置方法的成功结果
func (m *MockInvoker) WithResult(method string, value any) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[method] = &executor.Result{Success: true, Result: value}
	return m
}

// WithFailure 设置方法的失败结果
func (m *MockInvoker) WithFailure(method string, code types.ErrorCode, message string) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[method] = &executor.Result{Success: false, Error: message, ErrorCode: code}
	return m
}

// WithFunc 使用函数计算方法结果
func (m *MockInvoker) WithFunc(method string, fn executor.Callable) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs[method] = fn
	return m
}

// Execute 返回预设结果, 未知方法返回 RESOLUTION 失败
func (m *MockInvoker) Execute(ctx context.Context, req executor.Request) *executor.Result {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	res, hasResult := m.results[req.Method]
	fn, hasFunc := m.funcs[req.Method]
	m.mu.Unlock()

	switch {
	case hasResult:
		copied := *res
		return &copied
	case hasFunc:
		v, err := fn(ctx, req.Arguments)
		if err != nil {
			return &executor.Result{Success: false, Error: err.Error(), ErrorCode: types.ErrExecution}
		}
		return &executor.Result{Success: true, Result: v}
	}
	return &executor.Result{
		Success:   false,
		Error:     "method \"" + req.Method + "\" is not registered",
		ErrorCode: types.ErrResolution,
	}
}

// GetCalls 获取所有调用记录
func (m *MockInvoker) GetCalls() []executor.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]executor.Request{}, m.calls...)
}

// GetCallCount 获取调用次数
func (m *MockInvoker) GetCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}
