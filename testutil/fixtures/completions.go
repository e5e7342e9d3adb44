package fixtures

import (
	"encoding/json"
	"fmt"
)

// FencedToolCall 返回以 ```json 代码块包裹的工具调用补全
func FencedToolCall(tool string, params map[string]any) string {
	return fmt.Sprintf("好的，我来调用工具。\n```json\n%s\n```\n", toolCallJSON(tool, params))
}

// BareToolCall 返回未包裹的工具调用补全
func BareToolCall(tool string, params map[string]any) string {
	return "我需要使用工具: " + toolCallJSON(tool, params)
}

// PlainAnswer 返回不含工具调用的补全
func PlainAnswer(text string) string {
	return text
}

// MalformedToolCall 返回 JSON 残缺的补全
func MalformedToolCall() string {
	return "```json\n{\"tool\": \"add\", \"parameters\": {\"a\": 2,\n```"
}

func toolCallJSON(tool string, params map[string]any) string {
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(map[string]any{"tool": tool, "parameters": params})
	if err != nil {
		panic(err)
	}
	return string(data)
}
