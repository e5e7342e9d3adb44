/*
Package main 提供 methodflow 服务端程序入口。

# 子命令

  - serve     — 启动 API 与 /metrics 双端口服务，SIGINT/SIGTERM 时优雅关闭
  - register  — 读取方法清单（YAML/JSON），校验后逐条写入注册表
  - migrate   — 基于 golang-migrate 的数据库迁移（up/down/steps/goto/force/status/info）
  - version   — 版本信息（ldflags 注入或模块构建信息）
  - health    — 探测运行中实例的 /health 或 /ready

# 中间件链

Recovery → RequestID → SecurityHeaders → RequestLogger → Metrics →
OTelTracing → CORS → RateLimiter（按 IP 的令牌桶）。
*/
package main
