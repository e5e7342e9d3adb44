package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/methodflow/registry"
	"github.com/BaSui01/methodflow/types"
)

func TestCallableCache_CachesOnlySuccess(t *testing.T) {
	var calls atomic.Int32
	available := atomic.Bool{}
	resolver := ResolverFunc(func(loc registry.Locator) (Callable, error) {
		calls.Add(1)
		if !available.Load() {
			return nil, types.Errorf(types.ErrResolution, "module %q not found", loc.ModulePath)
		}
		return addFn, nil
	})
	cache := NewCallableCache(resolver)
	loc := registry.Locator{ModulePath: "tools.math", FunctionName: "add"}

	_, err := cache.Get("add", loc)
	require.Error(t, err)
	assert.False(t, cache.Contains("add"))

	available.Store(true)
	fn, err := cache.Get("add", loc)
	require.NoError(t, err)
	require.NotNil(t, fn)

	_, err = cache.Get("add", loc)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCallableCache_LocatorChangeReResolves(t *testing.T) {
	resolver := NewStaticResolver().
		Bind("v1", "run", func(context.Context, map[string]any) (any, error) { return "v1", nil }).
		Bind("v2", "run", func(context.Context, map[string]any) (any, error) { return "v2", nil })
	cache := NewCallableCache(resolver)

	fn, err := cache.Get("run", registry.Locator{ModulePath: "v1", FunctionName: "run"})
	require.NoError(t, err)
	out, _ := fn(context.Background(), nil)
	assert.Equal(t, "v1", out)

	fn, err = cache.Get("run", registry.Locator{ModulePath: "v2", FunctionName: "run"})
	require.NoError(t, err)
	out, _ = fn(context.Background(), nil)
	assert.Equal(t, "v2", out)
	assert.Equal(t, 1, cache.Len())
}

func TestCallableCache_IndependentInstances(t *testing.T) {
	resolver := NewStaticResolver().Bind("tools.math", "add", addFn)
	loc := registry.Locator{ModulePath: "tools.math", FunctionName: "add"}

	a, b := NewCallableCache(resolver), NewCallableCache(resolver)
	_, err := a.Get("add", loc)
	require.NoError(t, err)

	assert.Equal(t, 1, a.Len())
	assert.Zero(t, b.Len())

	a.Invalidate("add")
	assert.Zero(t, a.Len())
}

func TestCallableCache_ConcurrentGet(t *testing.T) {
	resolver := NewStaticResolver().Bind("tools.math", "add", addFn)
	cache := NewCallableCache(resolver)
	loc := registry.Locator{ModulePath: "tools.math", FunctionName: "add"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get("add", loc)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, cache.Len())

	cache.Reset()
	assert.Zero(t, cache.Len())
}
