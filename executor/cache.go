package executor

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/methodflow/registry"
)

type cacheEntry struct {
	loc registry.Locator
	fn  Callable
}

// CallableCache 按方法名缓存已解析的可调用对象.
// 只缓存成功的解析; 失败的解析不会写入, 实现可用后重试即可成功.
// 缓存不拥有任何注册表数据, 可以随时清空重建.
type CallableCache struct {
	resolver Resolver

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

// NewCallableCache creates a cache in front of resolver.
func NewCallableCache(resolver Resolver) *CallableCache {
	return &CallableCache{
		resolver: resolver,
		entries:  make(map[string]cacheEntry),
	}
}

// Get returns the callable for the named method. A cached entry is reused only
// while its locator still matches loc.
func (c *CallableCache) Get(name string, loc registry.Locator) (Callable, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if ok && e.loc == loc {
		return e.fn, nil
	}

	v, err, _ := c.group.Do(name+"\x00"+loc.String(), func() (any, error) {
		fn, err := c.resolver.Resolve(loc)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[name] = cacheEntry{loc: loc, fn: fn}
		c.mu.Unlock()
		return fn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Callable), nil
}

// Contains reports whether name has a cached callable.
func (c *CallableCache) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]
	return ok
}

// Len returns the number of cached callables.
func (c *CallableCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate drops one entry.
func (c *CallableCache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}

// Reset drops every entry.
func (c *CallableCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
