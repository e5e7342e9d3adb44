/*
Package handlers 提供 methodflow HTTP API 的请求处理器实现。

# 核心类型

  - TaskHandler    — 任务提交（同步执行）、查询与历史列表
  - MethodHandler  — 能力目录与已注册方法的直接调用
  - HealthHandler  — /health、/healthz、/ready、/version
  - Routes         — 以 Go 1.22 路由模式把上述 Handler 挂到 ServeMux
  - Response       — 统一 JSON 信封（success + data + error + timestamp + request_id）

# 错误映射

Handler 只返回 *types.Error；HTTP 状态码由 types.StatusFor 按错误码推导，
非 *types.Error 的错误一律以 INTERNAL_ERROR 返回，原始信息只写入日志。
*/
package handlers
