package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/methodflow/executor"
	"github.com/BaSui01/methodflow/registry"
	"github.com/BaSui01/methodflow/testutil/fixtures"
	"github.com/BaSui01/methodflow/types"
)

func TestBuildPlanningPrompt(t *testing.T) {
	entries := registry.ToCapabilityCatalog([]registry.MethodDescriptor{
		fixtures.AddMethod(),
		fixtures.GreetMethod(),
		fixtures.NoArgMethod("ping"),
	})

	prompt := BuildPlanningPrompt(entries)

	assert.True(t, strings.HasPrefix(prompt, "你是一个智能助手"))
	assert.Contains(t, prompt, "【工具】add\n描述：Add two integers\n参数：\n")
	assert.Contains(t, prompt, "  - a (integer) [必需]: first addend\n")
	assert.Contains(t, prompt, "  - b (integer) [必需]: second addend\n")
	assert.Contains(t, prompt, "  - greeting (string): salutation\n")
	assert.Contains(t, prompt, "【工具】ping\n描述：Takes no arguments\n\n")
	assert.Contains(t, prompt, "【使用工具的格式】")
	assert.Contains(t, prompt, "- 一次只能调用一个工具\n")

	// 参数按声明顺序输出
	assert.Less(t, strings.Index(prompt, "  - a ("), strings.Index(prompt, "  - b ("))
}

func TestBuildPlanningPrompt_EmptyCatalog(t *testing.T) {
	prompt := BuildPlanningPrompt(nil)
	assert.NotContains(t, prompt, "【工具】")
	assert.Contains(t, prompt, "【使用工具的格式】")
}

func TestComposePrompt(t *testing.T) {
	assert.Equal(t, "SYS\n\n【用户问题】\nhi\n\n【助手回复】\n", ComposePrompt("SYS", "hi"))
}

func TestBuildAnswerPrompt(t *testing.T) {
	call := &ToolCall{Name: "add", Parameters: map[string]any{"a": 2, "b": 3}}

	ok := BuildAnswerPrompt("2 加 3 等于多少", call, &executor.Result{Success: true, Result: 5})
	assert.Contains(t, ok, "用户的问题是：2 加 3 等于多少\n\n")
	assert.Contains(t, ok, "【add】\n结果：5\n")
	assert.True(t, strings.HasSuffix(ok, "直接给出答案。"))

	failed := BuildAnswerPrompt("x", call, &executor.Result{Error: "boom", ErrorCode: types.ErrExecution})
	assert.Contains(t, failed, "【add】\n执行失败：boom\n")
}

func TestFallbackAnswer(t *testing.T) {
	call := &ToolCall{Name: "calculator"}
	assert.Equal(t, `calculator: {"result":4}`,
		fallbackAnswer(call, &executor.Result{Success: true, Result: map[string]any{"result": 4}}))
	assert.Equal(t, "calculator: Error: bad input",
		fallbackAnswer(call, &executor.Result{Error: "bad input"}))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", FormatValue(nil))
	assert.Equal(t, "晴", FormatValue("晴"))
	assert.Equal(t, "5", FormatValue(5))
	assert.Equal(t, "[1,2]", FormatValue([]int{1, 2}))
}
