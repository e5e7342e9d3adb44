// Package fixtures 提供测试用的方法描述与模型补全样例。
package fixtures

import "github.com/BaSui01/methodflow/registry"

// AddMethod 返回两个整数求和的方法描述
func AddMethod() registry.MethodDescriptor {
	return registry.MethodDescriptor{
		Name:        "add",
		Description: "Add two integers",
		ReturnType:  registry.TypeInteger,
		Locator:     registry.Locator{ModulePath: "tools.math", FunctionName: "add"},
		Parameters: []registry.ParameterSpec{
			{Name: "a", Type: registry.TypeInteger, Description: "first addend", Required: true},
			{Name: "b", Type: registry.TypeInteger, Description: "second addend", Required: true},
		},
	}
}

// GreetMethod 返回带可选参数的方法描述
func GreetMethod() registry.MethodDescriptor {
	return registry.MethodDescriptor{
		Name:        "greet",
		Description: "Greet somebody",
		ReturnType:  registry.TypeString,
		Locator:     registry.Locator{ModulePath: "tools.text", FunctionName: "greet"},
		Parameters: []registry.ParameterSpec{
			{Name: "name", Type: registry.TypeString, Description: "who to greet", Required: true},
			{Name: "greeting", Type: registry.TypeString, Description: "salutation", Default: "hello"},
		},
	}
}

// NoArgMethod 返回无参数的方法描述
func NoArgMethod(name string) registry.MethodDescriptor {
	return registry.MethodDescriptor{
		Name:        name,
		Description: "Takes no arguments",
		ReturnType:  registry.TypeString,
		Locator:     registry.Locator{ModulePath: "tools.misc", FunctionName: name},
		Parameters:  []registry.ParameterSpec{},
	}
}
