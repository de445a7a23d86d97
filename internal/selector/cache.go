// internal/selector/cache.go
package selector

import (
	"runtime"
	"sync"
	"weak"

	"github.com/xkilldash9x/editbridge/internal/dom"
)

// Cache associates computed selectors with live nodes without keeping those
// nodes alive. Keys are weak pointers; a cleanup registered on each node
// removes its entry once the node is collected, so a detached subtree never
// pins cache memory. Hits are only hints: the engine revalidates uniqueness
// before trusting a cached selector, because document mutation silently
// invalidates entries.
type Cache struct {
	mu      sync.Mutex
	entries map[weak.Pointer[dom.Node]]string
}

// NewCache returns an empty selector cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[weak.Pointer[dom.Node]]string)}
}

// Get returns a previously stored selector for the node.
func (c *Cache) Get(n *dom.Node) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel, ok := c.entries[weak.Make(n)]
	return sel, ok
}

// Put stores a selector for the node.
func (c *Cache) Put(n *dom.Node, sel string) {
	key := weak.Make(n)
	c.mu.Lock()
	_, existed := c.entries[key]
	c.entries[key] = sel
	c.mu.Unlock()
	if !existed {
		runtime.AddCleanup(n, func(k weak.Pointer[dom.Node]) {
			c.mu.Lock()
			delete(c.entries, k)
			c.mu.Unlock()
		}, key)
	}
}

// Drop removes a single entry.
func (c *Cache) Drop(n *dom.Node) {
	c.mu.Lock()
	delete(c.entries, weak.Make(n))
	c.mu.Unlock()
}

// Clear removes every entry; called on teardown so no stale element is ever
// referenced across an activation cycle.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[weak.Pointer[dom.Node]]string)
	c.mu.Unlock()
}

// Len reports the live entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
