package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// withDeadline runs fn under a deadline. When the deadline wins, fn's context
// is cancelled and ErrTimeout is returned; fn's eventual result is discarded.
func withDeadline[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return zero, ctx.Err()
	}
}

// cache is the guarded local copy of one remote collection. Every load takes
// a new generation; only the newest generation may publish its result.
// fallback is set while items hold built-in defaults instead of stored rows.
// settled is set once any load has resolved.
type cache[T any] struct {
	mu         sync.RWMutex
	items      []T
	loading    bool
	fallback   bool
	settled    bool
	generation uint64
}

func newCache[T any]() *cache[T] {
	return &cache[T]{loading: true, items: []T{}}
}

func (c *cache[T]) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.loading = true
	return c.generation
}

func (c *cache[T]) finish(generation uint64, items []T, fallback bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	if items == nil {
		items = []T{}
	}
	c.items = items
	c.fallback = fallback
	c.loading = false
	c.settled = true
	return true
}

// abort ends a load without touching the cached items
func (c *cache[T]) abort(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation == c.generation {
		c.loading = false
		c.settled = true
	}
}

func (c *cache[T]) hasSettled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settled
}

func (c *cache[T]) usingFallback() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fallback
}

// Loading reports whether the latest load is still unresolved
func (c *cache[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

func (c *cache[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *cache[T]) find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// append adds a stored row; built-in defaults are dropped first
func (c *cache[T]) append(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropFallback()
	c.items = append(c.items, item)
}

func (c *cache[T]) prepend(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropFallback()
	c.items = append([]T{item}, c.items...)
}

func (c *cache[T]) dropFallback() {
	if c.fallback {
		c.items = []T{}
		c.fallback = false
	}
}

// set replaces the whole collection with stored rows
func (c *cache[T]) set(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if items == nil {
		items = []T{}
	}
	c.items = items
	c.fallback = false
}

// replace swaps the first item matching fn and reports whether one did
func (c *cache[T]) replace(item T, match func(T) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if match(c.items[i]) {
			c.items[i] = item
			return true
		}
	}
	return false
}

func (c *cache[T]) remove(match func(T) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0:0]
	for _, item := range c.items {
		if !match(item) {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

// loadInto reads a collection into c under timeout. On an empty result, or an
// error on the first load, the fallback is used when one is given. A failed
// re-read keeps the cached items.
func loadInto[T any](ctx context.Context, c *cache[T], store string, timeout time.Duration,
	fetch func(ctx context.Context) ([]T, error), fallback func() []T) error {
	reread := c.hasSettled()
	generation := c.begin()
	items, err := withDeadline(ctx, timeout, fetch)
	if err != nil {
		log.Error().Err(err).Str("store", store).Msg("Failed to load collection")
		if reread {
			c.abort(generation)
			return err
		}
		items = nil
	}
	usedFallback := false
	if len(items) == 0 && fallback != nil {
		items = fallback()
		usedFallback = true
	}
	if !c.finish(generation, items, usedFallback) {
		log.Debug().Str("store", store).Uint64("generation", generation).Msg("Discarding superseded load")
	}
	return err
}
