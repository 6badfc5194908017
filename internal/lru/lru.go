/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package lru provides a minimal LRU cache used to bound the number of
// per-key controllers kept in memory by the keyed rate-control types.
package lru

import (
	"container/list"
	"fmt"
	"sync"
)

type cacheEntry[K comparable, V any] struct {
	key   K
	value V
}

// Cache is an LRU cache with a fixed capacity and an optional eviction callback.
// It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	maxEntries int
	onEvict    func(key K, value V)

	mu      sync.Mutex
	lruList *list.List
	entries map[K]*list.Element
}

// New creates a Cache holding at most maxEntries values.
// When an entry is pushed out by capacity, onEvict (if not nil) is called
// with the evicted key and value after the cache lock is released.
func New[K comparable, V any](maxEntries int, onEvict func(key K, value V)) (*Cache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	return &Cache[K, V]{
		maxEntries: maxEntries,
		onEvict:    onEvict,
		lruList:    list.New(),
		entries:    make(map[K]*list.Element),
	}, nil
}

// Get returns the value stored under key and marks it as recently used.
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return value, false
	}
	c.lruList.MoveToFront(elem)
	return elem.Value.(*cacheEntry[K, V]).value, true
}

// GetOrAdd returns the value stored under key, creating it with valueProvider
// when absent. The provider runs under the cache lock, so at most one value is
// ever created per key. exists reports whether the value was already present.
func (c *Cache[K, V]) GetOrAdd(key K, valueProvider func() V) (value V, exists bool) {
	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		c.lruList.MoveToFront(elem)
		c.mu.Unlock()
		return elem.Value.(*cacheEntry[K, V]).value, true
	}

	value = valueProvider()
	c.entries[key] = c.lruList.PushFront(&cacheEntry[K, V]{key: key, value: value})

	var evicted *cacheEntry[K, V]
	if len(c.entries) > c.maxEntries {
		evicted = c.removeOldest()
	}
	c.mu.Unlock()

	if evicted != nil && c.onEvict != nil {
		c.onEvict(evicted.key, evicted.value)
	}
	return value, false
}

// Remove removes the value stored under key and returns it.
// The eviction callback is not called; disposing of the returned value is up
// to the caller.
func (c *Cache[K, V]) Remove(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return value, false
	}
	c.lruList.Remove(elem)
	delete(c.entries, key)
	return elem.Value.(*cacheEntry[K, V]).value, true
}

// Drain removes all entries and returns their values in no particular order.
// The eviction callback is not called.
func (c *Cache[K, V]) Drain() []V {
	c.mu.Lock()
	defer c.mu.Unlock()
	values := make([]V, 0, len(c.entries))
	for _, elem := range c.entries {
		values = append(values, elem.Value.(*cacheEntry[K, V]).value)
	}
	c.entries = make(map[K]*list.Element)
	c.lruList.Init()
	return values
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[K, V]) removeOldest() *cacheEntry[K, V] {
	elem := c.lruList.Back()
	if elem == nil {
		return nil
	}
	c.lruList.Remove(elem)
	entry := elem.Value.(*cacheEntry[K, V])
	delete(c.entries, entry.key)
	return entry
}
