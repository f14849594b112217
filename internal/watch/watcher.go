package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/getmockd/pactstub/pkg/logging"
)

// DefaultDebounce groups the burst of events an editor or copy produces.
const DefaultDebounce = 250 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Files are watched individually through their parent directory so that
	// atomic saves (write to temp file, rename) are seen.
	Files []string

	// Dirs are watched recursively for files ending in "."+Extension.
	Dirs      []string
	Extension string

	Debounce time.Duration

	// Reload is called once per burst of relevant changes.
	Reload func(ctx context.Context) error

	Logger *slog.Logger
}

// Watcher triggers Reload when watched pact files change.
type Watcher struct {
	cfg   Config
	files map[string]bool
	dirs  []string
	ext   string
	log   *slog.Logger
}

// New creates a Watcher. Paths are made absolute.
func New(cfg Config) (*Watcher, error) {
	if cfg.Reload == nil {
		return nil, errors.New("watch: reload function is required")
	}
	if len(cfg.Files) == 0 && len(cfg.Dirs) == 0 {
		return nil, errors.New("watch: nothing to watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	w := &Watcher{
		cfg:   cfg,
		files: make(map[string]bool, len(cfg.Files)),
		ext:   "." + strings.TrimPrefix(cfg.Extension, "."),
		log:   cfg.Logger,
	}
	if w.ext == "." {
		w.ext = ".json"
	}
	if w.log == nil {
		w.log = logging.Nop()
	}
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("watch: %w", err)
		}
		w.files[abs] = true
	}
	for _, d := range cfg.Dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("watch: %w", err)
		}
		w.dirs = append(w.dirs, abs)
	}
	return w, nil
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for abs := range w.files {
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			w.log.Warn("cannot watch pact file", "file", abs, "error", err)
		}
	}
	for _, d := range w.dirs {
		w.addTree(fw, d)
	}
	w.log.Info("watching pact files for changes", "files", len(w.files), "dirs", len(w.dirs))

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if ev.Has(fsnotify.Create) && w.inDirs(ev.Name) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.addTree(fw, ev.Name)
					timer.Reset(w.cfg.Debounce)
					continue
				}
			}
			if !w.relevant(ev) {
				continue
			}
			logging.Trace(w.log, "pact file changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(w.cfg.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.log.Warn("file watcher error", "error", err)

		case <-timer.C:
			if err := w.cfg.Reload(ctx); err != nil {
				w.log.Error("reload failed, keeping the previous interactions", "error", err)
			}
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
	if err != nil {
		w.log.Warn("cannot watch pact directory", "dir", root, "error", err)
	}
}

// relevant reports whether an event concerns a watched pact file.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if w.files[ev.Name] {
		return true
	}
	return w.inDirs(ev.Name) && strings.HasSuffix(ev.Name, w.ext)
}

func (w *Watcher) inDirs(path string) bool {
	for _, d := range w.dirs {
		if rel, err := filepath.Rel(d, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
