// Package server provides HTTP server construction for marksync.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexjbarnes/marksync/internal/cache"
	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/alexjbarnes/marksync/internal/tree"
	"github.com/goccy/go-json"
)

// MuxConfig holds dependencies for building the HTTP mux.
type MuxConfig struct {
	Cache      *cache.Cache
	MCPHandler http.Handler
	Logger     *slog.Logger
}

// TreeResponse is the body of GET /tree.
type TreeResponse struct {
	Loading   bool              `json:"loading"`
	Folders   int               `json:"folders"`
	Bookmarks int               `json:"bookmarks"`
	Tree      *models.RootItems `json:"tree"`
}

// NewMux builds the HTTP mux with the MCP endpoint and a read-only view
// of the cached tree.
func NewMux(cfg MuxConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tree", handleTree(cfg.Cache, cfg.Logger))
	mux.Handle("/mcp", cfg.MCPHandler)

	return mux
}

// NewServer wraps handler in an http.Server with the timeouts used for
// every listener.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// handleTree serves the current cache state. Before the first fetch
// completes it answers 503 with the loading flag so callers can retry.
func handleTree(c *cache.Cache, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s := c.Read()

		resp := TreeResponse{Loading: s.Loading, Tree: s.Data}
		status := http.StatusOK

		if s.Data != nil {
			resp.Folders, resp.Bookmarks = tree.Counts(*s.Data)
		} else {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)

		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn("writing tree response", slog.String("error", err.Error()))
		}
	}
}
