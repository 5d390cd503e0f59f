// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache provides a bounded, time-expiring in-memory store shared by
// concurrent discovery fetches, and the fingerprint function every call site
// uses to derive its keys.
package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	stored  time.Time
	payload V
}

// Cache is a key/value store with a TTL and a maximum size. An entry older
// than the TTL is treated as absent and dropped on read. When a write pushes
// the size past the maximum, the oldest entries are evicted. All access is
// serialized by a single mutex.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, letting tests control entry age.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New returns a cache holding at most maxSize entries for ttl each. A
// non-positive maxSize means unbounded; a non-positive ttl means entries
// never expire.
func New[V any](maxSize int, ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		maxSize: maxSize,
		ttl:     ttl,
		now:     o.now,
	}
}

// Get returns the value stored under key if it has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.stored) > c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.payload, true
}

// Set stores value under key with the current timestamp, then evicts the
// oldest entries until the cache is back at its maximum size.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{stored: c.now(), payload: value}
	c.evictLocked()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) evictLocked() {
	if c.maxSize <= 0 || len(c.entries) <= c.maxSize {
		return
	}
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := c.entries[keys[i]].stored, c.entries[keys[j]].stored
		if ti.Equal(tj) {
			return keys[i] < keys[j]
		}
		return ti.Before(tj)
	})
	for _, k := range keys[:len(keys)-c.maxSize] {
		delete(c.entries, k)
	}
}

// Fingerprint joins the trimmed, lower-cased parts into a stable cache key.
// Nil parts, nil pointers and blank strings are absent and skipped, so
// Fingerprint("A", "b") == Fingerprint("a", "B") and an empty ticker keys
// the same as a missing one.
func Fingerprint(parts ...any) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		var s string
		switch v := p.(type) {
		case nil:
			continue
		case string:
			s = v
		case *string:
			if v == nil {
				continue
			}
			s = *v
		case fmt.Stringer:
			s = v.String()
		default:
			s = fmt.Sprint(v)
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, "|")
}
