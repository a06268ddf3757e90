package resolver

import (
	"context"
	"slices"
	"sync"

	"github.com/wippyai/wrap-client/uri"
)

// Extendable is the one resolver that stays mutable after a client is built.
// Entries are consulted in insertion order. Readers never hold the lock while
// a nested resolver runs, so a resolver may extend the table it lives in.
type Extendable struct {
	entries []Like
	mu      sync.RWMutex
}

func NewExtendable(entries ...Like) *Extendable {
	return &Extendable{entries: slices.Clone(entries)}
}

// Add appends entries.
func (e *Extendable) Add(entries ...Like) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entries...)
}

// Remove drops every keyed entry bound to u and reports how many were removed.
// Use entries are never matched. Removing an absent URI is a no-op.
func (e *Extendable) Remove(u uri.URI) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := len(e.entries)
	e.entries = slices.DeleteFunc(e.entries, func(l Like) bool {
		k, ok := Key(l)
		return ok && k == u
	})
	return before - len(e.entries)
}

// Len returns the number of entries.
func (e *Extendable) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

// Entries returns a snapshot of the entries.
func (e *Extendable) Entries() []Like {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.entries)
}

func (e *Extendable) TryResolve(ctx context.Context, u uri.URI) (Result, error) {
	if e == nil {
		return nil, nil
	}
	for _, l := range e.Entries() {
		r, err := l.TryResolve(ctx, u)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
	return nil, nil
}
