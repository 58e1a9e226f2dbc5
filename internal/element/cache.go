package element

import (
	"sync"

	"github.com/google/uuid"
)

// Cache maps opaque element ids to handles. A handle whose Key is already
// cached gets the existing id back. One cache lives per session.
type Cache struct {
	mu   sync.RWMutex
	ids  map[string]Handle
	keys map[string]string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		ids:  make(map[string]Handle),
		keys: make(map[string]string),
	}
}

// Add stores h and returns its id.
func (c *Cache) Add(h Handle) string {
	key := h.Key()

	c.mu.RLock()
	id, ok := c.keys[key]
	c.mu.RUnlock()
	if ok {
		return id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.keys[key]; ok {
		return id
	}
	id = uuid.NewString()
	c.ids[id] = h
	c.keys[key] = id
	return id
}

// Get returns the handle stored under id. A miss is not an error here; the
// caller decides what it means.
func (c *Cache) Get(id string) (Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.ids[id]
	return h, ok
}

// Clear evicts every handle.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]Handle)
	c.keys = make(map[string]string)
}

// Len returns the number of cached handles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
