package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alexjbarnes/marksync/internal/config"
	"github.com/alexjbarnes/marksync/internal/exchange"
	"github.com/alexjbarnes/marksync/internal/state"
	"github.com/alexjbarnes/marksync/internal/tree"
)

// runExport writes the server's tree to the named file, or stdout. The
// format comes from -format, else the file extension, else HTML.
func runExport(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	formatName := fs.String("format", "", "output format: html or yaml")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if fs.NArg() > 1 {
		return fmt.Errorf("export: expected at most one file, got %d", fs.NArg())
	}

	path := fs.Arg(0)

	format, err := exportFormat(*formatName, path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	eng := newEngine(cfg, logger)
	if err := eng.RefreshFullTree(ctx); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	root, _ := eng.Cache().Snapshot()

	if path == "" {
		return exchange.Export(format, stdout, root)
	}

	var buf bytes.Buffer
	if err := exchange.Export(format, &buf, root); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // G306: exported bookmarks are not secret
		return fmt.Errorf("export: writing %s: %w", path, err)
	}

	folders, bookmarks := tree.Counts(root)
	logger.Info("exported bookmarks",
		slog.String("file", path),
		slog.String("format", string(format)),
		slog.Int("folders", folders),
		slog.Int("bookmarks", bookmarks),
	)

	return nil
}

func exportFormat(name, path string) (exchange.Format, error) {
	if name != "" {
		return exchange.ParseFormat(name)
	}

	if f, ok := exchange.FormatFor(path); ok {
		return f, nil
	}

	return exchange.FormatHTML, nil
}

// runImport creates every folder and bookmark in a file on the server
// and records the file in the import ledger, so the drop-directory
// watcher does not import it again.
func runImport(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("import: expected exactly one file")
	}

	path := args[0]

	format, ok := exchange.FormatFor(path)
	if !ok {
		return fmt.Errorf("import: %s: unsupported file type (want .html or .yaml)", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	items, err := exchange.Parse(format, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("import: parsing %s: %w", path, err)
	}

	appState, err := state.LoadAt(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer appState.Close()

	eng := newEngine(cfg, logger)

	// Loading first lets each create apply locally instead of forcing
	// a refetch.
	if err := eng.RefreshFullTree(ctx); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	res, err := exchange.Import(ctx, eng, items, nil)

	fmt.Fprintf(stdout, "created %d folders and %d bookmarks, skipped %d\n", res.Folders, res.Bookmarks, res.Skipped)

	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	if err := appState.MarkImported(filepath.Base(path), state.ContentSum(data)); err != nil {
		logger.Warn("recording import", slog.String("error", err.Error()))
	}

	if root, ok := eng.Cache().Snapshot(); ok {
		if err := appState.SaveSnapshot(root, time.Now().UTC()); err != nil {
			logger.Warn("saving snapshot", slog.String("error", err.Error()))
		}
	}

	return nil
}

// runDiff prints how the server's tree differs from the stored snapshot.
func runDiff(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	appState, err := state.LoadAt(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer appState.Close()

	snap, ok, err := appState.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}

	if !ok {
		return errors.New("diff: no stored snapshot, run the daemon first")
	}

	eng := newEngine(cfg, logger)
	if err := eng.RefreshFullTree(ctx); err != nil {
		return fmt.Errorf("diff: %w", err)
	}

	current, _ := eng.Cache().Snapshot()

	lines := tree.DiffOutline(tree.Normalize(snap.Tree), current)
	if !tree.Changed(lines) {
		fmt.Fprintf(stdout, "no changes since %s\n", snap.SavedAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	}

	fmt.Fprintf(stdout, "changes since %s:\n", snap.SavedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprint(stdout, tree.FormatDiff(lines, false))

	return nil
}
