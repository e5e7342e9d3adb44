/*
包 metrics 提供基于 Prometheus 的指标采集。

# 核心类型

  - Collector: 通过 promauto 注册的 Counter/Histogram/Gauge 向量,
    按 namespace 隔离; NewCollectorWithRegistry 可指定独立注册表

# 指标

  - HTTP: 请求总数、耗时、响应体大小, 状态码归类为 2xx/3xx/4xx/5xx
  - 方法执行: 按 method/outcome 计数与耗时
  - 模型补全: 按 stage(plan/answer)/status 计数与耗时
  - 注册: 按条目状态计数
  - 任务: 按终态与是否调用工具计数, 任务耗时
  - 数据库: 打开/空闲连接数
*/
package metrics
