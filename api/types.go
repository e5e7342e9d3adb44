package api

import (
	"github.com/BaSui01/methodflow/registry"
	"github.com/BaSui01/methodflow/tasks"
)

// =============================================================================
// 任务类型
// =============================================================================

// SubmitTaskRequest 提交任务请求
// @Description 自然语言任务
type SubmitTaskRequest struct {
	// 任务描述
	Description string `json:"description" example:"what is 12 * 7?" binding:"required"`
}

// TaskListResponse 任务历史列表
type TaskListResponse struct {
	Tasks []*tasks.Record `json:"tasks"`
	Count int             `json:"count"`
}

// =============================================================================
// 方法类型
// =============================================================================

// MethodListResponse 能力目录
type MethodListResponse struct {
	Methods  []registry.CatalogEntry `json:"methods"`
	Count    int                     `json:"count"`
	Warnings []string                `json:"warnings,omitempty"`
}

// ExecuteMethodRequest 直接调用已注册方法
type ExecuteMethodRequest struct {
	// 原始参数，按声明类型转换
	Arguments map[string]any `json:"arguments"`
	// 可选超时，如 "5s"，不得超过服务端上限
	Timeout string `json:"timeout,omitempty" example:"5s"`
}
