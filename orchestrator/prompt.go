package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/methodflow/executor"
	"github.com/BaSui01/methodflow/registry"
)

// BuildPlanningPrompt renders the instruction text and every catalog entry.
func BuildPlanningPrompt(entries []registry.CatalogEntry) string {
	var b strings.Builder
	b.WriteString("你是一个智能助手，可以使用以下工具来帮助用户：\n\n")

	for _, e := range entries {
		fmt.Fprintf(&b, "【工具】%s\n", e.Name)
		fmt.Fprintf(&b, "描述：%s\n", e.Description)
		if len(e.Parameters.Order) > 0 {
			b.WriteString("参数：\n")
			for _, name := range e.Parameters.Order {
				prop := e.Parameters.Properties[name]
				fmt.Fprintf(&b, "  - %s (%s)", name, prop.Type)
				if e.Parameters.IsRequired(name) {
					b.WriteString(" [必需]")
				}
				fmt.Fprintf(&b, ": %s\n", prop.Description)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("【使用工具的格式】\n")
	b.WriteString("当需要使用工具时，请严格按照以下 JSON 格式回复：\n")
	b.WriteString("```json\n")
	b.WriteString(`{"tool": "工具名称", "parameters": {"参数名": "参数值"}}` + "\n")
	b.WriteString("```\n\n")
	b.WriteString("【重要】\n")
	b.WriteString("- 如果用户的问题需要使用工具，必须使用上述 JSON 格式\n")
	b.WriteString("- 如果不需要使用工具，直接用自然语言回答\n")
	b.WriteString("- 一次只能调用一个工具\n")
	return b.String()
}

// ComposePrompt joins an optional system text with the user message.
func ComposePrompt(system, message string) string {
	return fmt.Sprintf("%s\n\n【用户问题】\n%s\n\n【助手回复】\n", system, message)
}

// BuildAnswerPrompt summarizes the task and the tool outcome for the second
// completion.
func BuildAnswerPrompt(task string, call *ToolCall, res *executor.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "用户的问题是：%s\n\n", task)
	b.WriteString("我已经使用工具获取了以下信息：\n\n")
	fmt.Fprintf(&b, "【%s】\n", call.Name)
	if res.Success {
		fmt.Fprintf(&b, "结果：%s\n", FormatValue(res.Result))
	} else {
		fmt.Fprintf(&b, "执行失败：%s\n", res.Error)
	}
	b.WriteString("\n")
	b.WriteString("请根据以上工具返回的信息，用自然语言回答用户的问题。")
	b.WriteString("不要提及工具的名称，直接给出答案。")
	return b.String()
}

// fallbackAnswer is used when the answer completion fails.
func fallbackAnswer(call *ToolCall, res *executor.Result) string {
	if res.Success {
		return fmt.Sprintf("%s: %s", call.Name, FormatValue(res.Result))
	}
	return fmt.Sprintf("%s: Error: %s", call.Name, res.Error)
}

// FormatValue renders a tool result as prompt text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
