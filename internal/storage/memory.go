package storage

import (
	"github.com/getmockd/pactstub/pkg/pact"
)

// InMemoryInteractionStore is an immutable in-memory InteractionStore.
// It is safe for concurrent use without locking.
type InMemoryInteractionStore struct {
	pacts        []*pact.Pact
	interactions []*pact.Interaction
}

// NewInMemoryInteractionStore builds a store from pacts in load order.
// Each interaction is assigned its overall load index and inherits the
// consumer, provider and source of its pact when it does not carry its own.
// The pacts must not be modified afterwards.
func NewInMemoryInteractionStore(pacts []*pact.Pact) *InMemoryInteractionStore {
	s := &InMemoryInteractionStore{}
	for _, p := range pacts {
		if p == nil {
			continue
		}
		s.pacts = append(s.pacts, p)
		for _, i := range p.Interactions {
			if i == nil {
				continue
			}
			i.Index = len(s.interactions)
			if i.Consumer == "" {
				i.Consumer = p.Consumer
			}
			if i.Provider == "" {
				i.Provider = p.Provider
			}
			if i.Source == "" {
				i.Source = p.Source
			}
			s.interactions = append(s.interactions, i)
		}
	}
	return s
}

// All returns every interaction in load order.
func (s *InMemoryInteractionStore) All() []*pact.Interaction {
	return s.interactions
}

// Get returns the interaction with the given load index, or nil.
func (s *InMemoryInteractionStore) Get(index int) *pact.Interaction {
	if index < 0 || index >= len(s.interactions) {
		return nil
	}
	return s.interactions[index]
}

// Count returns the number of interactions.
func (s *InMemoryInteractionStore) Count() int {
	return len(s.interactions)
}

// Pacts returns the pacts the store was built from.
func (s *InMemoryInteractionStore) Pacts() []*pact.Pact {
	return s.pacts
}

// Ensure InMemoryInteractionStore implements InteractionStore.
var _ InteractionStore = (*InMemoryInteractionStore)(nil)
