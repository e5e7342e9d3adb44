// Package tokenizer 提供提示词 Token 计数,
// 支持 tiktoken 精确计数与 CJK 估算器, 用于记录规划提示词的规模。
package tokenizer
