package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/getmockd/pactstub/pkg/pact"
)

// --- Helper ---

func newPact(source string, descriptions ...string) *pact.Pact {
	p := &pact.Pact{Consumer: "web", Provider: "api", Source: source}
	for _, d := range descriptions {
		p.Interactions = append(p.Interactions, &pact.Interaction{Description: d})
	}
	return p
}

// --- InMemoryInteractionStore Tests ---

func TestNewInMemoryInteractionStore_Empty(t *testing.T) {
	store := NewInMemoryInteractionStore(nil)
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
	if len(store.All()) != 0 {
		t.Errorf("All() length = %d, want 0", len(store.All()))
	}
}

func TestInMemory_AssignsLoadOrder(t *testing.T) {
	store := NewInMemoryInteractionStore([]*pact.Pact{
		newPact("a.json", "a1", "a2"),
		nil,
		newPact("b.json", "b1"),
	})

	want := []string{"a1", "a2", "b1"}
	all := store.All()
	if len(all) != len(want) {
		t.Fatalf("All() length = %d, want %d", len(all), len(want))
	}
	for i, d := range want {
		if all[i].Description != d {
			t.Errorf("All()[%d].Description = %q, want %q", i, all[i].Description, d)
		}
		if all[i].Index != i {
			t.Errorf("All()[%d].Index = %d, want %d", i, all[i].Index, i)
		}
	}
	if got := all[2].Source; got != "b.json" {
		t.Errorf("Source = %q, want b.json", got)
	}
	if got := all[0].Consumer; got != "web" {
		t.Errorf("Consumer = %q, want web", got)
	}
	if len(store.Pacts()) != 2 {
		t.Errorf("Pacts() length = %d, want 2", len(store.Pacts()))
	}
}

func TestInMemory_KeepsInteractionOwnSource(t *testing.T) {
	p := newPact("pact.json", "x")
	p.Interactions[0].Source = "broker"
	store := NewInMemoryInteractionStore([]*pact.Pact{p})
	if got := store.Get(0).Source; got != "broker" {
		t.Errorf("Source = %q, want broker", got)
	}
}

func TestInMemory_Get(t *testing.T) {
	store := NewInMemoryInteractionStore([]*pact.Pact{newPact("a.json", "a1", "a2")})

	if got := store.Get(1); got == nil || got.Description != "a2" {
		t.Errorf("Get(1) = %v, want a2", got)
	}
	for _, idx := range []int{-1, 2, 100} {
		if got := store.Get(idx); got != nil {
			t.Errorf("Get(%d) = %v, want nil", idx, got)
		}
	}
}

func TestInMemory_ConcurrentReads(t *testing.T) {
	store := NewInMemoryInteractionStore([]*pact.Pact{newPact("a.json", "a1", "a2", "a3")})

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				if store.Count() != 3 {
					t.Error("Count() changed during concurrent reads")
					return
				}
				_ = store.All()[n%3].Description
			}
		}()
	}
	wg.Wait()
}

// --- Snapshot Tests ---

func TestSnapshot_Swap(t *testing.T) {
	first := NewInMemoryInteractionStore([]*pact.Pact{newPact("a.json", "a1")})
	snap := NewSnapshot(first)

	if snap.Load() != first {
		t.Fatal("Load() did not return the initial store")
	}

	second := NewInMemoryInteractionStore([]*pact.Pact{newPact("b.json", "b1", "b2")})
	if old := snap.Swap(second); old != first {
		t.Error("Swap() did not return the previous store")
	}
	if snap.Count() != 2 {
		t.Errorf("Count() after Swap = %d, want 2", snap.Count())
	}
	if first.Count() != 1 {
		t.Errorf("previous store changed: Count() = %d, want 1", first.Count())
	}
}

func TestSnapshot_NilStore(t *testing.T) {
	snap := NewSnapshot(nil)
	if snap.Count() != 0 {
		t.Errorf("Count() = %d, want 0", snap.Count())
	}
	snap.Swap(nil)
	if snap.Load() == nil {
		t.Error("Load() returned nil after Swap(nil)")
	}
}

func TestSnapshot_ConcurrentSwap(t *testing.T) {
	snap := NewSnapshot(NewInMemoryInteractionStore(nil))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				snap.Swap(NewInMemoryInteractionStore([]*pact.Pact{newPact(fmt.Sprintf("%d.json", g), "x", "y")}))
			}
		}(g)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				s := snap.Load()
				if c := s.Count(); c != 0 && c != 2 {
					t.Errorf("observed partial store with %d interactions", c)
					return
				}
			}
		}()
	}
	wg.Wait()
}

// --- FilteredInteractionStore Tests ---

func TestFiltered_All(t *testing.T) {
	store := NewInMemoryInteractionStore([]*pact.Pact{newPact("a.json", "keep-1", "drop", "keep-2")})
	f := NewFilteredInteractionStore(store, func(i *pact.Interaction) bool {
		return i.Description != "drop"
	})

	all := f.All()
	if len(all) != 2 {
		t.Fatalf("All() length = %d, want 2", len(all))
	}
	if all[1].Description != "keep-2" || all[1].Index != 2 {
		t.Errorf("All()[1] = %q (index %d), want keep-2 (index 2)", all[1].Description, all[1].Index)
	}
	if f.Count() != 2 {
		t.Errorf("Count() = %d, want 2", f.Count())
	}
	if f.Get(1) != nil {
		t.Error("Get(1) returned a filtered interaction")
	}
	if f.Get(2) == nil {
		t.Error("Get(2) = nil, want keep-2")
	}
	if f.Underlying() != store {
		t.Error("Underlying() did not return the wrapped store")
	}
}

func TestFiltered_NilPredicate(t *testing.T) {
	store := NewInMemoryInteractionStore([]*pact.Pact{newPact("a.json", "a", "b")})
	f := NewFilteredInteractionStore(store, nil)
	if f.Count() != 2 {
		t.Errorf("Count() = %d, want 2", f.Count())
	}
}

func TestFiltered_LiveViewOverSnapshot(t *testing.T) {
	snap := NewSnapshot(NewInMemoryInteractionStore([]*pact.Pact{newPact("a.json", "a")}))
	f := NewFilteredInteractionStore(snap, nil)

	snap.Swap(NewInMemoryInteractionStore([]*pact.Pact{newPact("b.json", "b1", "b2")}))
	if f.Count() != 2 {
		t.Errorf("Count() after swap = %d, want 2", f.Count())
	}
}
