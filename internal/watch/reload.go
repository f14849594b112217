package watch

import (
	"context"
	"log/slog"

	"github.com/getmockd/pactstub/internal/storage"
	"github.com/getmockd/pactstub/pkg/loader"
	"github.com/getmockd/pactstub/pkg/logging"
)

// Reloader reloads every source and publishes the result. A failed load
// leaves the published interactions untouched.
type Reloader struct {
	Sources  []loader.Source
	Options  loader.Options
	Snapshot *storage.Snapshot
	Logger   *slog.Logger
}

// Reload loads the sources and swaps them into the snapshot.
func (r *Reloader) Reload(ctx context.Context) error {
	log := r.Logger
	if log == nil {
		log = logging.Nop()
	}
	pacts, err := loader.LoadAll(ctx, r.Sources, r.Options)
	if err != nil {
		return err
	}
	store := storage.NewInMemoryInteractionStore(pacts)
	old := r.Snapshot.Swap(store)
	log.Info("reloaded pacts", "pacts", len(pacts), "interactions", store.Count(), "previous_interactions", old.Count())
	return nil
}
