package storage

import (
	"github.com/getmockd/pactstub/pkg/pact"
)

// InteractionStore defines read access to the loaded interactions.
type InteractionStore interface {
	// All returns every interaction in load order. The slice is shared and
	// must not be modified.
	All() []*pact.Interaction

	// Get returns the interaction with the given load index, or nil.
	Get(index int) *pact.Interaction

	// Count returns the number of interactions.
	Count() int

	// Pacts returns the pacts the store was built from, in load order.
	Pacts() []*pact.Pact
}
