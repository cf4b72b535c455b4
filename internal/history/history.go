// Package history keeps the per-feature list of past results a command shows
// next to its form. Lists are local to one feature and never shared.
package history

import (
	"context"
	"sync"
)

// Loader fetches a feature's history from the API.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Page is the history list of one feature. It is fetched at most once; later
// results are prepended locally and deletions are applied locally once the
// server confirms them.
type Page[T any] struct {
	load Loader[T]
	key  func(T) string

	mu     sync.Mutex
	items  []T
	loaded bool
}

// New returns an empty page. key identifies an item for Remove.
func New[T any](load Loader[T], key func(T) string) *Page[T] {
	return &Page[T]{load: load, key: key}
}

// Load fetches the history on first use. A failed fetch leaves the page
// empty and is retried on the next call.
func (p *Page[T]) Load(ctx context.Context) ([]T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return p.snapshotLocked(), nil
	}
	items, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	p.items = append(items, p.items...)
	p.loaded = true
	return p.snapshotLocked(), nil
}

// Prepend puts a fresh result at the top of the list.
func (p *Page[T]) Prepend(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append([]T{item}, p.items...)
}

// Append adds item at the bottom, for chronological lists like a chat log.
func (p *Page[T]) Append(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, item)
}

// Remove drops the item with the given key and reports whether it was there.
func (p *Page[T]) Remove(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, it := range p.items {
		if p.key(it) == key {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return true
		}
	}
	return false
}

// Reset empties the list without refetching it.
func (p *Page[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
	p.loaded = true
}

func (p *Page[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Page[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

func (p *Page[T]) snapshotLocked() []T {
	out := make([]T, len(p.items))
	copy(out, p.items)
	return out
}
