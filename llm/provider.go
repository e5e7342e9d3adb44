package llm

import (
	"context"
	"time"
)

// CompletionRequest 是一次文本补全请求.
type CompletionRequest struct {
	Model       string        `json:"model,omitempty"`
	System      string        `json:"system,omitempty"`
	Prompt      string        `json:"prompt"`
	Temperature *float32      `json:"temperature,omitempty"` // nil 表示使用 Provider 默认值
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Timeout     time.Duration `json:"-"` // 单次请求超时, 0 表示使用 Provider 默认值
}

// CompletionResponse 是补全结果.
type CompletionResponse struct {
	Text             string        `json:"text"`
	Model            string        `json:"model"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Duration         time.Duration `json:"-"`
}

// HealthStatus 表示 Provider 的健康状态.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// Provider 是语言模型补全边界. 实现必须把所有失败以 PLANNER 错误返回,
// 并遵守 ctx 与请求级超时.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	HealthCheck(ctx context.Context) (*HealthStatus, error)
}
