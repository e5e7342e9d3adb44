package registry

import (
	"fmt"
	"go/token"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// 校验限制
const (
	MinNameLength          = 2
	MaxNameLength          = 100
	MaxDescriptionLength   = 1000
	MaxParamDescriptionLen = 500
	MaxModulePathLength    = 255
	MaxFunctionNameLength  = 100
)

// FieldError 是一条带字段限定的校验错误.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Reason
}

// ValidationResult 是单个描述的校验结果.
type ValidationResult struct {
	Name   string       `json:"name"`
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

func (r *ValidationResult) add(field, format string, args ...any) {
	r.Errors = append(r.Errors, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	r.Valid = false
}

// Summary joins all field errors into one line.
func (r ValidationResult) Summary() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}

// Validator 检查方法描述的结构与命名规则. 校验不产生任何存储副作用.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a validator.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger.With(zap.String("component", "validator"))}
}

// ValidateOne checks a single descriptor. It never panics; problems are
// reported as field-qualified entries.
func (v *Validator) ValidateOne(d MethodDescriptor) ValidationResult {
	res := ValidationResult{Name: d.Name, Valid: true}

	v.checkName(&res, d.Name)

	switch n := utf8.RuneCountInString(d.Description); {
	case strings.TrimSpace(d.Description) == "":
		res.add("description", "is required")
	case n > MaxDescriptionLength:
		res.add("description", "length %d exceeds %d", n, MaxDescriptionLength)
	}

	if d.ModulePath == "" {
		res.add("module_path", "is required")
	} else {
		if len(d.ModulePath) > MaxModulePathLength {
			res.add("module_path", "length %d exceeds %d", len(d.ModulePath), MaxModulePathLength)
		}
		for _, seg := range strings.Split(d.ModulePath, ".") {
			if !token.IsIdentifier(seg) {
				res.add("module_path", "%q is not a dotted identifier path", d.ModulePath)
				break
			}
		}
	}
	switch {
	case d.FunctionName == "":
		res.add("function_name", "is required")
	case len(d.FunctionName) > MaxFunctionNameLength:
		res.add("function_name", "length %d exceeds %d", len(d.FunctionName), MaxFunctionNameLength)
	case !token.IsIdentifier(d.FunctionName):
		res.add("function_name", "%q is not a valid identifier", d.FunctionName)
	}

	if d.ReturnType == "" {
		res.add("return_type", "is required")
	} else if !d.ReturnType.IsValid() {
		res.add("return_type", "unsupported type %q", d.ReturnType)
	}

	seen := make(map[string]bool, len(d.Parameters))
	for i, p := range d.Parameters {
		prefix := fmt.Sprintf("parameters[%d]", i)
		v.checkParameter(&res, prefix, p)
		if p.Name == "" {
			continue
		}
		if seen[p.Name] {
			res.add(prefix+".name", "duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = true
	}

	if !res.Valid {
		v.logger.Debug("descriptor rejected",
			zap.String("method", d.Name),
			zap.String("errors", res.Summary()))
	}
	return res
}

// ValidateMany validates each descriptor and adds batch-level duplicate
// detection: the second and later occurrences of a name each receive one
// duplicate-name error; the first occurrence is judged on its own.
func (v *Validator) ValidateMany(ds []MethodDescriptor) []ValidationResult {
	results := make([]ValidationResult, len(ds))
	firstSeen := make(map[string]int, len(ds))
	for i, d := range ds {
		results[i] = v.ValidateOne(d)
		if d.Name == "" {
			continue
		}
		if first, dup := firstSeen[d.Name]; dup {
			results[i].add("name", "duplicate method name %q (first declared at index %d)", d.Name, first)
			continue
		}
		firstSeen[d.Name] = i
	}
	return results
}

func (v *Validator) checkName(res *ValidationResult, name string) {
	n := utf8.RuneCountInString(name)
	switch {
	case name == "":
		res.add("name", "is required")
	case n < MinNameLength || n > MaxNameLength:
		res.add("name", "length %d outside %d-%d", n, MinNameLength, MaxNameLength)
	case !IsIdentifier(name):
		res.add("name", "%q is not a valid identifier", name)
	case token.IsKeyword(name):
		res.add("name", "%q is a reserved word", name)
	}
}

func (v *Validator) checkParameter(res *ValidationResult, prefix string, p ParameterSpec) {
	switch {
	case p.Name == "":
		res.add(prefix+".name", "is required")
	case !IsIdentifier(p.Name):
		res.add(prefix+".name", "%q is not a valid identifier", p.Name)
	}

	typeOK := false
	switch {
	case p.Type == "":
		res.add(prefix+".type", "is required")
	case !p.Type.IsValid():
		res.add(prefix+".type", "unsupported type %q", p.Type)
	default:
		typeOK = true
	}

	switch n := utf8.RuneCountInString(p.Description); {
	case strings.TrimSpace(p.Description) == "":
		res.add(prefix+".description", "is required")
	case n > MaxParamDescriptionLen:
		res.add(prefix+".description", "length %d exceeds %d", n, MaxParamDescriptionLen)
	}

	if !p.HasDefault() {
		return
	}
	if p.Required {
		res.add(prefix+".default", "required parameter %q must not carry a default", p.Name)
		return
	}
	if typeOK && !MatchesType(p.Type, p.Default) {
		res.add(prefix+".default", "default %v does not match type %s", p.Default, p.Type)
	}
}

// IsIdentifier reports whether s is an ASCII identifier: a letter or
// underscore followed by letters, digits or underscores.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// MatchesType reports whether an already-decoded value fits the declared type.
func MatchesType(t ParamType, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInteger:
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			return n == float64(int64(n))
		case float32:
			return n == float32(int64(n))
		}
		return false
	case TypeNumber:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return true
		}
		return false
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	case TypeNone:
		return v == nil
	}
	return false
}
