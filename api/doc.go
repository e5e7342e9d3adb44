// Package api 定义 methodflow HTTP API 的请求与响应类型。
//
// # 端点
//
//	POST /api/tasks                    提交自然语言任务（同步执行）
//	GET  /api/tasks?limit=N            最近的任务记录
//	GET  /api/tasks/{id}               单个任务记录
//	GET  /api/methods                  当前能力目录
//	POST /api/methods/{name}/execute   直接调用已注册方法
//	GET  /health /healthz /ready /version
//
// 所有 JSON 响应都包裹在 handlers.Response 信封中：
//
//	{"success": true, "data": {...}, "timestamp": "...", "request_id": "..."}
//
// /metrics 由独立端口提供（见 server.metrics_port）。
package api
