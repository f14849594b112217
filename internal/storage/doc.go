// Package storage holds the interactions served by the stub server.
//
// It defines the InteractionStore interface along with concrete
// implementations.
//
// Key types:
//
//   - InteractionStore: read-only view over the loaded interactions
//   - InMemoryInteractionStore: immutable store built once from parsed pacts
//   - Snapshot: atomically swappable holder used for hot reload
//   - FilteredInteractionStore: live view restricted by a predicate
//
// A store never changes after it has been built. Reloading builds a new store
// and swaps it into the Snapshot, so readers never take a lock.
package storage
