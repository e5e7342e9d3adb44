// Package builtin 提供随服务一起编译的示例方法实现,
// 并以声明式描述的形式暴露, 便于注册到方法注册表。
package builtin

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/BaSui01/methodflow/executor"
	"github.com/BaSui01/methodflow/registry"
)

// 模块路径
const (
	ModuleMath       = "tools.math"
	ModuleCalculator = "tools.calculator"
	ModuleWeather    = "tools.weather"
	ModuleCustomer   = "tools.customer"
)

var weatherConditions = []string{"晴天", "多云", "阴天", "小雨", "大雨", "雪"}

// Bind registers every built-in implementation on r.
func Bind(r *executor.StaticResolver) *executor.StaticResolver {
	return r.
		Bind(ModuleMath, "add", Add).
		Bind(ModuleCalculator, "calculate", Calculate).
		Bind(ModuleWeather, "get_weather", GetWeather).
		Bind(ModuleCustomer, "customer_tool_call", CustomerToolCall)
}

// Add returns a + b.
func Add(_ context.Context, args map[string]any) (any, error) {
	a, _ := args["a"].(int)
	b, _ := args["b"].(int)
	return a + b, nil
}

// Calculate evaluates the "expression" argument.
func Calculate(_ context.Context, args map[string]any) (any, error) {
	expr, _ := args["expression"].(string)
	v, err := Evaluate(expr)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	var result any = v
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		result = int64(v)
	}
	return map[string]any{"expression": expr, "result": result}, nil
}

// GetWeather returns simulated weather for a city.
func GetWeather(ctx context.Context, args map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	city, _ := args["city"].(string)
	unit, _ := args["unit"].(string)
	if unit == "" {
		unit = "celsius"
	}

	var temperature int
	switch unit {
	case "celsius":
		temperature = rand.IntN(46) - 10
	case "fahrenheit":
		temperature = rand.IntN(82) + 14
	default:
		return nil, fmt.Errorf("unsupported unit %q", unit)
	}

	return map[string]any{
		"city":        city,
		"temperature": temperature,
		"unit":        unit,
		"condition":   weatherConditions[rand.IntN(len(weatherConditions))],
		"humidity":    rand.IntN(71) + 20,
		"wind_speed":  rand.IntN(31),
	}, nil
}

// CustomerToolCall confirms that it was invoked.
func CustomerToolCall(context.Context, map[string]any) (any, error) {
	return "customer_tool_call function is called", nil
}

// Descriptors returns the registry descriptors of the built-in methods.
func Descriptors() []registry.MethodDescriptor {
	return []registry.MethodDescriptor{
		{
			Name:        "add",
			Description: "计算两个整数的和",
			ReturnType:  registry.TypeInteger,
			Locator:     registry.Locator{ModulePath: ModuleMath, FunctionName: "add"},
			Parameters: []registry.ParameterSpec{
				{Name: "a", Type: registry.TypeInteger, Description: "第一个加数", Required: true},
				{Name: "b", Type: registry.TypeInteger, Description: "第二个加数", Required: true},
			},
		},
		{
			Name:        "calculator",
			Description: "计算数学表达式, 例如 \"2+2\" 或 \"5*16\"",
			ReturnType:  registry.TypeObject,
			Locator:     registry.Locator{ModulePath: ModuleCalculator, FunctionName: "calculate"},
			Parameters: []registry.ParameterSpec{
				{Name: "expression", Type: registry.TypeString, Description: "要计算的数学表达式", Required: true},
			},
		},
		{
			Name:        "get_weather",
			Description: "查询城市天气信息",
			ReturnType:  registry.TypeObject,
			Locator:     registry.Locator{ModulePath: ModuleWeather, FunctionName: "get_weather"},
			Parameters: []registry.ParameterSpec{
				{Name: "city", Type: registry.TypeString, Description: "城市名称, 例如 \"北京\"", Required: true},
				{Name: "unit", Type: registry.TypeString, Description: "温度单位, celsius 或 fahrenheit", Default: "celsius"},
			},
		},
		{
			Name:        "customer_tool_call",
			Description: "测试方法调用链路, 返回固定文本",
			ReturnType:  registry.TypeString,
			Locator:     registry.Locator{ModulePath: ModuleCustomer, FunctionName: "customer_tool_call"},
			Parameters:  []registry.ParameterSpec{},
		},
	}
}
