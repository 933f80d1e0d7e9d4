package refresh

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ImportWatcher watches manual-import directories and triggers the owning
// library when files change. Bursts of filesystem events (an unpacked
// archive, an editor save) collapse into one trigger per library after the
// debounce window.
type ImportWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu   sync.Mutex
	dirs map[string]string // directory -> library name
}

// NewImportWatcher creates a watcher. logger may be nil.
func NewImportWatcher(logger *slog.Logger) (*ImportWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportWatcher{
		watcher:  fsw,
		logger:   logger,
		debounce: 2 * time.Second,
		dirs:     make(map[string]string),
	}, nil
}

// Watch registers a library's import directory, creating it when missing.
func (w *ImportWatcher) Watch(dir, library string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := w.watcher.Add(abs); err != nil {
		return err
	}
	w.mu.Lock()
	w.dirs[abs] = library
	w.mu.Unlock()
	w.logger.Debug("watching import directory", "dir", abs, "library", library)
	return nil
}

// Run forwards debounced changes to trigger until ctx is cancelled.
func (w *ImportWatcher) Run(ctx context.Context, trigger func(library string)) {
	defer w.watcher.Close()

	pending := make(map[string]bool)
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	flush := func() {
		for lib := range pending {
			w.logger.Info("import change detected", "library", lib)
			trigger(lib)
		}
		clear(pending)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			lib := w.ownerOf(ev.Name)
			if lib == "" {
				continue
			}
			pending[lib] = true
			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			flush()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watch error", "error", err)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Rename) && !ev.Op.Has(fsnotify.Remove) {
		return false
	}
	base := filepath.Base(ev.Name)
	// Editor temp files and hidden files are noise.
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}

func (w *ImportWatcher) ownerOf(path string) string {
	dir := filepath.Dir(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	for watched, lib := range w.dirs {
		if dir == watched || strings.HasPrefix(dir, watched+string(filepath.Separator)) {
			return lib
		}
	}
	return ""
}
