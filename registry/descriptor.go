package registry

import (
	"time"
)

// ParamType 是参数与返回值的封闭类型集合.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
	TypeNone    ParamType = "none"
)

// validTypes 是校验器接受的类型标签.
var validTypes = map[ParamType]bool{
	TypeString:  true,
	TypeInteger: true,
	TypeNumber:  true,
	TypeBoolean: true,
	TypeObject:  true,
	TypeArray:   true,
	TypeNone:    true,
}

// typeAliases 把存储中常见的别名映射回封闭集合.
var typeAliases = map[string]ParamType{
	"str":     TypeString,
	"string":  TypeString,
	"int":     TypeInteger,
	"integer": TypeInteger,
	"float":   TypeNumber,
	"number":  TypeNumber,
	"bool":    TypeBoolean,
	"boolean": TypeBoolean,
	"dict":    TypeObject,
	"object":  TypeObject,
	"list":    TypeArray,
	"array":   TypeArray,
	"none":    TypeNone,
	"null":    TypeNone,
}

// IsValid reports whether t belongs to the closed type set.
func (t ParamType) IsValid() bool {
	return validTypes[t]
}

// NormalizeType maps an aliased or unknown tag onto the closed set.
// Unknown tags degrade to string.
func NormalizeType(tag string) ParamType {
	if t, ok := typeAliases[tag]; ok {
		return t
	}
	return TypeString
}

// ParameterSpec 描述方法的一个参数.
type ParameterSpec struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type" yaml:"type"`
	Description string    `json:"description" yaml:"description"`
	Required    bool      `json:"required" yaml:"required"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
}

// HasDefault reports whether the parameter carries a default value.
func (p ParameterSpec) HasDefault() bool {
	return p.Default != nil
}

// Locator 标识实现所在的位置: 分组路径 + 可调用名.
type Locator struct {
	ModulePath   string `json:"module_path" yaml:"module_path"`
	FunctionName string `json:"function_name" yaml:"function_name"`
}

// String returns the dotted form "module_path.function_name".
func (l Locator) String() string {
	if l.ModulePath == "" {
		return l.FunctionName
	}
	return l.ModulePath + "." + l.FunctionName
}

// MethodDescriptor 是注册表中一条方法的声明式记录.
// 更新时整体替换, 不做部分修补.
type MethodDescriptor struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Parameters  []ParameterSpec `json:"parameters" yaml:"parameters"`
	ReturnType  ParamType       `json:"return_type" yaml:"return_type"`
	Locator     `yaml:",inline"`
	CreatedAt   time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Parameter returns the spec for the named parameter.
func (d *MethodDescriptor) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// RequiredParameters returns the names of the required parameters in declaration order.
func (d *MethodDescriptor) RequiredParameters() []string {
	var names []string
	for _, p := range d.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}
