package services

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Loadable is a store with an initial read
type Loadable interface {
	Load(ctx context.Context)
	Loading() bool
}

// LoadAll runs every store's initial read in parallel. Each store bounds its
// own read, so LoadAll returns within the longest load deadline.
func LoadAll(ctx context.Context, stores ...Loadable) {
	var g errgroup.Group
	for _, s := range stores {
		g.Go(func() error {
			s.Load(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// ContentReady reports whether none of the given stores is still loading.
// The splash screen waits on the content and events stores.
func ContentReady(stores ...Loadable) bool {
	for _, s := range stores {
		if s.Loading() {
			return false
		}
	}
	return true
}
