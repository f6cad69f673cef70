package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Meta describes how a cached value was resolved.
type Meta struct {
	Cached     bool      `json:"cached"`
	Stale      bool      `json:"stale"`
	ComputedAt time.Time `json:"last_updated"`
}

type entry struct {
	value      any
	computedAt time.Time
	ttl        time.Duration
	stale      bool
}

func (e *entry) live(now time.Time) bool {
	return now.Sub(e.computedAt) <= e.ttl
}

// Store memoizes expensive fetch-and-compute pipelines per key, honoring
// an independent TTL per key. On refresh failure it serves the last good
// value marked stale instead of propagating the error; entries are never
// evicted, because an arbitrarily old value is still the fallback of last
// resort. Process-lifetime state only.
type Store struct {
	mu    sync.RWMutex
	m     map[string]*entry
	group singleflight.Group
	now   func() time.Time
}

// NewStore creates an empty staleness-aware store.
func NewStore() *Store {
	return &Store{m: make(map[string]*entry), now: time.Now}
}

type resolved struct {
	value any
	meta  Meta
}

func (s *Store) lookupLive(key string) (resolved, bool) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[key]
	if !ok || !e.live(now) {
		return resolved{}, false
	}
	return resolved{e.value, Meta{Cached: true, Stale: e.stale, ComputedAt: e.computedAt}}, true
}

func (s *Store) markStale(key string) (resolved, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok {
		return resolved{}, false
	}
	e.stale = true
	return resolved{e.value, Meta{Cached: true, Stale: true, ComputedAt: e.computedAt}}, true
}

// getOrCompute returns the cached value for key when live; otherwise it
// runs fn (deduplicated per key) and either stores the fresh result or
// falls back to the prior entry flagged stale. With no prior entry the
// fn error propagates unchanged.
func (s *Store) getOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (any, error)) (any, Meta, error) {
	if r, ok := s.lookupLive(key); ok {
		return r.value, r.meta, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// another caller may have refreshed while we queued
		if r, ok := s.lookupLive(key); ok {
			return r, nil
		}

		value, err := fn(ctx)
		if err != nil {
			// keep the old entry aging: computedAt stays put so the
			// caller can always measure how stale it is
			if r, ok := s.markStale(key); ok {
				return r, nil
			}
			return nil, err
		}

		fresh := &entry{value: value, computedAt: s.now(), ttl: ttl}
		s.mu.Lock()
		s.m[key] = fresh
		s.mu.Unlock()
		return resolved{value, Meta{ComputedAt: fresh.computedAt}}, nil
	})
	if err != nil {
		return nil, Meta{}, err
	}
	r := v.(resolved)
	return r.value, r.meta, nil
}

// Len reports the number of entries, live or stale.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// GetOrCompute is the typed entry point to a Store.
func GetOrCompute[T any](ctx context.Context, s *Store, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, Meta, error) {
	v, meta, err := s.getOrCompute(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, meta, err
	}
	return v.(T), meta, nil
}
