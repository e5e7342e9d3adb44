package executor

import (
	"context"
	"sort"
	"sync"

	"github.com/BaSui01/methodflow/registry"
	"github.com/BaSui01/methodflow/types"
)

// Callable 是一个可调用的方法实现. args 已按声明类型转换.
type Callable func(ctx context.Context, args map[string]any) (any, error)

// Resolver 把实现定位器解析为可调用对象.
// 解析失败(分组或可调用名缺失)必须以 RESOLUTION 错误返回,
// 与调用期间的执行错误区分.
type Resolver interface {
	Resolve(loc registry.Locator) (Callable, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(loc registry.Locator) (Callable, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(loc registry.Locator) (Callable, error) { return f(loc) }

// StaticResolver 是启动时填充的编译期注册表: module_path -> name -> Callable.
type StaticResolver struct {
	mu      sync.RWMutex
	modules map[string]map[string]Callable
}

// NewStaticResolver creates an empty resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{modules: make(map[string]map[string]Callable)}
}

// Bind registers fn under modulePath.name, replacing any previous binding.
func (r *StaticResolver) Bind(modulePath, name string, fn Callable) *StaticResolver {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.modules[modulePath]
	if !ok {
		m = make(map[string]Callable)
		r.modules[modulePath] = m
	}
	m[name] = fn
	return r
}

// Unbind removes a binding. Empty modules are dropped.
func (r *StaticResolver) Unbind(modulePath, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[modulePath]; ok {
		delete(m, name)
		if len(m) == 0 {
			delete(r.modules, modulePath)
		}
	}
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(loc registry.Locator) (Callable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[loc.ModulePath]
	if !ok {
		return nil, types.Errorf(types.ErrResolution, "module %q not found", loc.ModulePath)
	}
	fn, ok := m[loc.FunctionName]
	if !ok {
		return nil, types.Errorf(types.ErrResolution, "callable %q not found in module %q", loc.FunctionName, loc.ModulePath)
	}
	return fn, nil
}

// Locators lists every bound locator, sorted.
func (r *StaticResolver) Locators() []registry.Locator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []registry.Locator
	for mod, fns := range r.modules {
		for name := range fns {
			out = append(out, registry.Locator{ModulePath: mod, FunctionName: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
