package storage

import (
	"sync/atomic"

	"github.com/getmockd/pactstub/pkg/pact"
)

// Snapshot holds the current store and replaces it atomically.
// Readers that need a consistent view for a whole request call Load once and
// use the returned store.
type Snapshot struct {
	current atomic.Pointer[InMemoryInteractionStore]
}

// NewSnapshot creates a Snapshot holding store.
func NewSnapshot(store *InMemoryInteractionStore) *Snapshot {
	s := &Snapshot{}
	if store == nil {
		store = NewInMemoryInteractionStore(nil)
	}
	s.current.Store(store)
	return s
}

// Load returns the current store.
func (s *Snapshot) Load() *InMemoryInteractionStore {
	return s.current.Load()
}

// Swap installs store and returns the previous one.
func (s *Snapshot) Swap(store *InMemoryInteractionStore) *InMemoryInteractionStore {
	if store == nil {
		store = NewInMemoryInteractionStore(nil)
	}
	return s.current.Swap(store)
}

// All returns the interactions of the current store.
func (s *Snapshot) All() []*pact.Interaction { return s.Load().All() }

// Get returns an interaction of the current store.
func (s *Snapshot) Get(index int) *pact.Interaction { return s.Load().Get(index) }

// Count returns the size of the current store.
func (s *Snapshot) Count() int { return s.Load().Count() }

// Pacts returns the pacts of the current store.
func (s *Snapshot) Pacts() []*pact.Pact { return s.Load().Pacts() }

var _ InteractionStore = (*Snapshot)(nil)
