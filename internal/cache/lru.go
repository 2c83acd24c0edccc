package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache holds at most maxSize entries, dropping the least recently used
// one on overflow. Each entry also expires ttl after its last Set.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	index   map[string]*list.Element
	order   *list.List // front is most recently used
}

type lruEntry[T any] struct {
	key     string
	data    T
	expires time.Time
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		index:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.index[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*lruEntry[T])
	if c.expired(e) {
		c.drop(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.data, true
}

func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &lruEntry[T]{key: key, data: data, expires: c.now().Add(c.ttl)}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)
	for c.order.Len() > c.maxSize {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.drop(el)
	}
}

// Purge drops every entry.
func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]*list.Element, c.maxSize)
	c.order.Init()
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *LRUCache[T]) expired(e *lruEntry[T]) bool {
	return c.now().After(e.expires)
}

func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.index, el.Value.(*lruEntry[T]).key)
	c.order.Remove(el)
}
