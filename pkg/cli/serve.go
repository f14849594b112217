package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/pactstub/internal/storage"
	"github.com/getmockd/pactstub/internal/watch"
	"github.com/getmockd/pactstub/pkg/config"
	"github.com/getmockd/pactstub/pkg/engine"
	"github.com/getmockd/pactstub/pkg/loader"
	"github.com/getmockd/pactstub/pkg/logging"
	"github.com/getmockd/pactstub/pkg/pact"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	lc := cfg.LoggingConfig()
	lc.Output = cmd.ErrOrStderr()
	return logging.New(lc)
}

// loadPacts loads every configured source. Any failure is reported with
// ExitLoadError.
func loadPacts(ctx context.Context, cfg *config.Config, log *slog.Logger) ([]*pact.Pact, error) {
	pacts, err := loader.LoadAll(ctx, cfg.LoaderSources(), cfg.LoaderOptions(log))
	if err != nil {
		errs := unwrapAll(err)
		log.Error("there were errors loading the pact files", "failed", len(errs))
		for _, e := range errs {
			log.Error("  - " + e.Error())
		}
		return nil, &ExitError{Code: ExitLoadError, Err: ErrLoadFailed}
	}
	return pacts, nil
}

func runServe(cmd *cobra.Command, f *rootFlags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	opts, err := cfg.EngineOptions()
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pacts, err := loadPacts(ctx, cfg, log)
	if err != nil {
		return err
	}

	snapshot := storage.NewSnapshot(storage.NewInMemoryInteractionStore(pacts))
	if n := snapshot.Count(); n == 0 {
		log.Warn("no interactions loaded, every request will get the no-match response")
	} else {
		log.Info("loaded interactions", "pacts", len(pacts), "interactions", n)
	}
	if opts.StateFilter.Enabled() {
		log.Info("filtering interactions by provider state", "filter", opts.StateFilter.String())
	}

	handler := engine.NewHandler(snapshot, opts, engine.WithLogger(log))
	srv := engine.NewServer(handler, cfg.EngineServerConfig(log))
	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Server started on port %d\n", srv.Port())

	if cfg.Watch {
		if err := startWatcher(ctx, cfg, snapshot, log); err != nil {
			log.Warn("file watching disabled", "error", err)
		}
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case <-srv.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return srv.Err()
}

// startWatcher reloads every source, remote ones included, when a local pact
// file changes.
func startWatcher(ctx context.Context, cfg *config.Config, snapshot *storage.Snapshot, log *slog.Logger) error {
	reloader := &watch.Reloader{
		Sources:  cfg.LoaderSources(),
		Options:  cfg.LoaderOptions(log),
		Snapshot: snapshot,
		Logger:   log,
	}
	w, err := watch.New(watch.Config{
		Files:     cfg.Sources.Files,
		Dirs:      cfg.Sources.Dirs,
		Extension: cfg.Sources.Extension,
		Reload:    reloader.Reload,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			log.Error("file watcher stopped", "error", err)
		}
	}()
	return nil
}
