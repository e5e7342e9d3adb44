/*
Package types 提供 methodflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 registry、executor、
orchestrator、api 等上层模块提供统一的错误契约。

# 错误体系

  - CONFIGURATION — 方法描述输入格式错误，入库前即被拒绝
  - VALIDATION    — 描述未通过规则校验，不会持久化
  - STORAGE       — 存储不可达或语句失败，写入已回滚
  - RESOLUTION    — 实现定位器无法解析为可调用对象
  - ARGUMENT      — 参数缺失、未知或无法转换
  - TIMEOUT       — 调用超出时间预算
  - EXECUTION     — 可调用对象在执行中返回错误
  - PLANNER       — 语言模型边界不可达或返回不可用输出

# 工具链

WrapError / AsError / IsErrorCode / GetErrorCode / StatusFor。
*/
package types
