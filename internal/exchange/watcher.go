package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexjbarnes/marksync/internal/state"
	"github.com/fsnotify/fsnotify"
)

const (
	// dropDirPerm is the permission mode for the drop directory when it
	// is created before watching.
	dropDirPerm = fs.FileMode(0o755)

	// debounceInterval is how often pending events are checked. A file
	// is imported once it has been quiet for settleTime.
	debounceInterval = 250 * time.Millisecond
	settleTime       = 300 * time.Millisecond
)

// Ledger remembers which files have been imported. *state.State
// implements it.
type Ledger interface {
	Imported(path string, sum uint64) bool
	MarkImported(path string, sum uint64) error
}

// Watcher imports bookmark files dropped into a directory. Each file is
// imported once per distinct content; rewriting a file with new content
// imports it again.
type Watcher struct {
	dir     string
	creator Creator
	ledger  Ledger
	logger  *slog.Logger
}

// NewWatcher creates a Watcher for dir.
func NewWatcher(dir string, creator Creator, ledger Ledger, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:     dir,
		creator: creator,
		ledger:  ledger,
		logger:  logger,
	}
}

// Watch imports any files already in the directory, then watches it for
// new or rewritten files until ctx is cancelled. Subdirectories are not
// watched.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, dropDirPerm); err != nil {
		return fmt.Errorf("creating drop dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching drop dir: %w", err)
	}

	w.logger.Info("import watcher started", slog.String("dir", w.dir))

	w.scan(ctx)

	// Debounce: a browser export or copy arrives as several writes.
	pending := make(map[string]time.Time)

	ticker := time.NewTicker(debounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed unexpectedly")
			}

			if shouldIgnore(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				pending[event.Name] = time.Now()
			}

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(pending, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed unexpectedly")
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			now := time.Now()
			for path, t := range pending {
				if now.Sub(t) < settleTime {
					continue
				}

				delete(pending, path)
				w.importFile(ctx, path)
			}
		}
	}
}

// scan imports files present before the watch started.
func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("reading drop dir", slog.String("error", err.Error()))
		return
	}

	for _, e := range entries {
		path := filepath.Join(w.dir, e.Name())
		if e.IsDir() || shouldIgnore(path) {
			continue
		}

		w.importFile(ctx, path)
	}
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	format, ok := FormatFor(path)
	if !ok {
		return
	}

	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("reading import file", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	name := filepath.Base(path)
	sum := state.ContentSum(data)

	if w.ledger.Imported(name, sum) {
		w.logger.Debug("already imported", slog.String("file", name))
		return
	}

	items, err := Parse(format, bytes.NewReader(data))
	if err != nil {
		w.logger.Warn("parsing import file", slog.String("file", name), slog.String("error", err.Error()))
		return
	}

	res, err := Import(ctx, w.creator, items, nil)
	if err != nil {
		// Not marked: the next write to the file retries it.
		w.logger.Warn("import failed",
			slog.String("file", name),
			slog.Int("folders", res.Folders),
			slog.Int("bookmarks", res.Bookmarks),
			slog.String("error", err.Error()),
		)

		return
	}

	if err := w.ledger.MarkImported(name, sum); err != nil {
		w.logger.Warn("recording import", slog.String("file", name), slog.String("error", err.Error()))
	}

	w.logger.Info("imported bookmark file",
		slog.String("file", name),
		slog.Int("folders", res.Folders),
		slog.Int("bookmarks", res.Bookmarks),
		slog.Int("skipped", res.Skipped),
	)
}

// shouldIgnore returns true for hidden and editor temp files.
func shouldIgnore(path string) bool {
	name := filepath.Base(path)

	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") ||
		strings.HasSuffix(name, ".part") ||
		strings.HasSuffix(name, ".crdownload")
}
