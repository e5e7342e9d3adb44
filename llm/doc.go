/*
包 llm 定义语言模型补全边界。

# 概述

编排器只依赖 [Provider] 接口: 输入提示词与生成参数(温度、最大输出长度、超时),
返回生成文本。边界被视为不透明、可能缓慢、可能失败的远程调用,
所有失败都以 types.ErrPlanner 错误返回, 不会导致编排器崩溃。

# 子包

  - providers/ollama — Ollama /api/generate 实现
  - tokenizer        — 提示词 Token 计数(tiktoken 或 CJK 感知估算器)
*/
package llm
