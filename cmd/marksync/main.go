package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexjbarnes/marksync/internal/cache"
	"github.com/alexjbarnes/marksync/internal/client"
	"github.com/alexjbarnes/marksync/internal/config"
	"github.com/alexjbarnes/marksync/internal/engine"
	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/exchange"
	"github.com/alexjbarnes/marksync/internal/feed"
	"github.com/alexjbarnes/marksync/internal/logging"
	"github.com/alexjbarnes/marksync/internal/mcpserver"
	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/alexjbarnes/marksync/internal/server"
	"github.com/alexjbarnes/marksync/internal/state"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
)

var Version = "dev"

const usage = `usage: marksync [command]

commands:
  (none)                             run the sync daemon
  export [-format html|yaml] [file]  write the server tree to file or stdout
  import <file>                      create the bookmarks in file on the server
  diff                               compare the stored snapshot with the server
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := ""
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		fmt.Fprint(stdout, usage)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "", "daemon":
		logger := logging.NewLogger(cfg.Environment, cfg.LogLevel)
		return runDaemon(ctx, cfg, logger)
	case "export":
		return runExport(ctx, cfg, cliLogger(cfg, stderr), args, stdout)
	case "import":
		return runImport(ctx, cfg, cliLogger(cfg, stderr), args, stdout)
	case "diff":
		return runDiff(ctx, cfg, cliLogger(cfg, stderr), stdout)
	}

	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

// cliLogger keeps stdout free for command output.
func cliLogger(cfg *config.Config, stderr io.Writer) *slog.Logger {
	return logging.NewLoggerTo(stderr, cfg.Environment, cfg.LogLevel)
}

func newEngine(cfg *config.Config, logger *slog.Logger) *engine.Engine {
	remote := client.New(cfg.ServerURL, client.NewHTTPClient(cfg.HTTPTimeout))

	return engine.New(remote, cache.New(), logger)
}

// runDaemon loads the tree, keeps the stored snapshot current, and runs
// the enabled services until ctx is cancelled.
func runDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("marksync starting",
		slog.String("version", Version),
		slog.String("server", cfg.ServerURL),
		slog.Bool("feed", cfg.FeedURL != ""),
		slog.Bool("import", cfg.ImportDir != ""),
		slog.Bool("mcp", cfg.EnableMCP),
	)

	appState, err := state.LoadAt(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer appState.Close()

	eng := newEngine(cfg, logger)

	if err := initialLoad(ctx, eng, appState, logger); err != nil {
		return err
	}

	unsubscribe := eng.Cache().Subscribe(persistSnapshots(appState, logger))
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.FeedURL != "" {
		listener := feed.New(cfg.FeedURL, eng, logger.With(slog.String("service", "feed")))
		g.Go(func() error {
			return listener.Run(gctx)
		})
	}

	if cfg.ImportDir != "" {
		watcher := exchange.NewWatcher(cfg.ImportDir, eng, appState, logger.With(slog.String("service", "import")))
		g.Go(func() error {
			return watcher.Watch(gctx)
		})
	}

	if cfg.EnableMCP {
		g.Go(func() error {
			return runMCP(gctx, cfg, eng, logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("marksync stopped")

	return nil
}

// initialLoad fetches the tree from the server. When the server cannot
// be reached, the stored snapshot is served instead until a later
// refresh succeeds.
func initialLoad(ctx context.Context, eng *engine.Engine, appState *state.State, logger *slog.Logger) error {
	err := eng.RefreshFullTree(ctx)
	if err == nil {
		if root, ok := eng.Cache().Snapshot(); ok {
			if err := appState.SaveSnapshot(root, time.Now().UTC()); err != nil {
				logger.Warn("saving snapshot", slog.String("error", err.Error()))
			}
		}

		return nil
	}

	if !errors.Is(err, apperr.ErrNetworkFailure) {
		return fmt.Errorf("loading tree: %w", err)
	}

	snap, ok, loadErr := appState.LoadSnapshot()
	if loadErr != nil {
		logger.Warn("ignoring stored snapshot", slog.String("error", loadErr.Error()))
	}

	if !ok {
		return fmt.Errorf("loading tree: %w", err)
	}

	eng.Seed(snap.Tree)
	logger.Warn("server unreachable, serving stored snapshot",
		slog.Time("saved_at", snap.SavedAt),
		slog.String("error", err.Error()),
	)

	return nil
}

// persistSnapshots returns a cache listener that stores every newly
// published tree. Loading-flag changes republish the same tree and are
// skipped.
func persistSnapshots(appState *state.State, logger *slog.Logger) cache.Listener {
	var last *models.RootItems

	return func(s cache.State) {
		if s.Data == nil || s.Data == last {
			return
		}

		last = s.Data

		if err := appState.SaveSnapshot(*s.Data, time.Now().UTC()); err != nil {
			logger.Warn("saving snapshot", slog.String("error", err.Error()))
		}
	}
}

// runMCP starts the MCP HTTP server.
func runMCP(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *slog.Logger) error {
	mcpLogger := logger.With(slog.String("service", "mcp"))

	mcpServer := mcp.NewServer(
		&mcp.Implementation{Name: "marksync", Version: Version},
		nil,
	)
	mcpserver.RegisterTools(mcpServer, eng)

	mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	srv := server.NewServer(cfg.MCPListenAddr, server.NewMux(server.MuxConfig{
		Cache:      eng.Cache(),
		MCPHandler: mcpHandler,
		Logger:     mcpLogger,
	}))

	mcpLogger.Info("starting MCP server", slog.String("listen", cfg.MCPListenAddr))

	// Shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		mcpLogger.Info("shutting down MCP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}
