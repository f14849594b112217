package storage

import (
	"github.com/getmockd/pactstub/pkg/pact"
)

// FilteredInteractionStore wraps an InteractionStore and only exposes the
// interactions accepted by a predicate. It is a live view: every read
// consults the underlying store.
type FilteredInteractionStore struct {
	underlying InteractionStore
	keep       func(*pact.Interaction) bool
}

// NewFilteredInteractionStore creates a filtered view. A nil predicate keeps
// every interaction.
func NewFilteredInteractionStore(store InteractionStore, keep func(*pact.Interaction) bool) *FilteredInteractionStore {
	if keep == nil {
		keep = func(*pact.Interaction) bool { return true }
	}
	return &FilteredInteractionStore{underlying: store, keep: keep}
}

// All returns the accepted interactions in load order.
func (f *FilteredInteractionStore) All() []*pact.Interaction {
	all := f.underlying.All()
	filtered := make([]*pact.Interaction, 0, len(all))
	for _, i := range all {
		if i != nil && f.keep(i) {
			filtered = append(filtered, i)
		}
	}
	return filtered
}

// Get returns the interaction with the given load index if it is accepted.
func (f *FilteredInteractionStore) Get(index int) *pact.Interaction {
	i := f.underlying.Get(index)
	if i == nil || !f.keep(i) {
		return nil
	}
	return i
}

// Count returns the number of accepted interactions.
func (f *FilteredInteractionStore) Count() int {
	return len(f.All())
}

// Pacts returns the pacts of the underlying store, unfiltered.
func (f *FilteredInteractionStore) Pacts() []*pact.Pact {
	return f.underlying.Pacts()
}

// Underlying returns the unfiltered store.
func (f *FilteredInteractionStore) Underlying() InteractionStore {
	return f.underlying
}

var _ InteractionStore = (*FilteredInteractionStore)(nil)
