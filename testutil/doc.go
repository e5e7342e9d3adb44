/*
Package testutil 提供 methodflow 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力,
避免重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext
  - 数据库辅助: NewTestDB 在临时目录打开 SQLite 数据库,
    NewRegistryDB 在此基础上建表并写入方法描述

# 子包

  - testutil/mocks: MockProvider(模型补全边界)与 MockInvoker(工具执行),
    均支持 Builder 模式与错误注入
  - testutil/fixtures: 方法描述与模型补全文本样例

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponses(
		fixtures.FencedToolCall("add", map[string]any{"a": 2, "b": 3}),
		"结果是 5",
	)
*/
package testutil
