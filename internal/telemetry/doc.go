// Package telemetry 初始化 OpenTelemetry SDK。
//
// 开启后 orchestrator 与 executor 的 span 以及 HTTP 中间件的 span
// 经 OTLP gRPC 导出；关闭时保持 noop，不连接外部服务。
package telemetry
