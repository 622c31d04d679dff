// Package refcache is a keyed cache of shared, reference counted resources.
//
// A resource lives while at least one *Ref to it is held. Releasing the last
// Ref removes the entry and runs the destroy function under the cache lock,
// so a concurrent GetOrCreate for the same key waits until the old resource
// is gone before building a fresh one. create and destroy must not call
// back into the same Cache.
package refcache

import "sync"

// Cache maps keys to lazily created shared resources.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	create  func(K) (V, error)
	destroy func(K, V)
}

type entry[V any] struct {
	value V
	refs  int
}

// Ref is one strong reference to a cached resource.
type Ref[V any] struct {
	value   V
	retain  func()
	release func()
	once    sync.Once
}

// New returns an empty cache. create builds the resource for a key and
// destroy tears it down when its last reference is released. destroy may be nil.
func New[K comparable, V any](create func(K) (V, error), destroy func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*entry[V]),
		create:  create,
		destroy: destroy,
	}
}

// Get returns a new reference to the live resource for key.
func (c *Cache[K, V]) Get(key K) (*Ref[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return c.ref(key, e), true
}

// GetOrCreate returns a new reference to the live resource for key, creating
// it first when there is none. A create error leaves the cache unchanged.
func (c *Cache[K, V]) GetOrCreate(key K) (*Ref[V], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge()
	if e, ok := c.entries[key]; ok {
		return c.ref(key, e), nil
	}
	v, err := c.create(key)
	if err != nil {
		return nil, err
	}
	e := &entry[V]{value: v}
	c.entries[key] = e
	return c.ref(key, e), nil
}

// Contains reports whether key has a live resource.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of live resources.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge()
	return len(c.entries)
}

// Clean drops expired entries.
func (c *Cache[K, V]) Clean() {
	c.mu.Lock()
	c.purge()
	c.mu.Unlock()
}

// purge removes entries without references. Must be called with c.mu held.
func (c *Cache[K, V]) purge() {
	for k, e := range c.entries {
		if e.refs == 0 {
			delete(c.entries, k)
		}
	}
}

// ref must be called with c.mu held.
func (c *Cache[K, V]) ref(key K, e *entry[V]) *Ref[V] {
	e.refs++
	return &Ref[V]{
		value: e.value,
		retain: func() {
			c.mu.Lock()
			e.refs++
			c.mu.Unlock()
		},
		release: func() { c.unref(key, e) },
	}
}

func (c *Cache[K, V]) unref(key K, e *entry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.refs--
	if e.refs > 0 {
		return
	}
	if c.entries[key] == e {
		delete(c.entries, key)
	}
	if c.destroy != nil {
		c.destroy(key, e.value)
	}
}

// Value returns the referenced resource.
func (r *Ref[V]) Value() V { return r.value }

// Clone returns an additional reference to the same resource. It must not be
// called on a released Ref.
func (r *Ref[V]) Clone() *Ref[V] {
	r.retain()
	return &Ref[V]{value: r.value, retain: r.retain, release: r.release}
}

// Release drops the reference. Only the first call has an effect.
func (r *Ref[V]) Release() {
	if r == nil {
		return
	}
	r.once.Do(r.release)
}
