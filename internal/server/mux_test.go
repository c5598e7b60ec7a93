package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexjbarnes/marksync/internal/cache"
	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(c *cache.Cache) (*http.ServeMux, *bool) {
	mcpHit := false
	mux := NewMux(MuxConfig{
		Cache: c,
		MCPHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			mcpHit = true
			w.WriteHeader(http.StatusAccepted)
		}),
		Logger: slog.New(slog.DiscardHandler),
	})

	return mux, &mcpHit
}

func TestTree_Loaded(t *testing.T) {
	c := cache.New()
	c.Replace(cache.State{Data: &models.RootItems{
		RootFolders: []models.FolderNode{{
			Folder:    models.Folder{ID: 1, Name: "Work"},
			Bookmarks: []models.Bookmark{{ID: 10, Name: "Go", URL: "https://go.dev", FolderID: models.ID(1)}},
		}},
	}})

	mux, _ := newTestMux(c)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tree", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp TreeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Loading)
	assert.Equal(t, 1, resp.Folders)
	assert.Equal(t, 1, resp.Bookmarks)
	require.NotNil(t, resp.Tree)
	assert.Equal(t, "Work", resp.Tree.RootFolders[0].Name)
}

func TestTree_NotLoaded(t *testing.T) {
	mux, _ := newTestMux(cache.New())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tree", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"loading":true,"folders":0,"bookmarks":0,"tree":null}`, rec.Body.String())
}

func TestTree_RejectsWrites(t *testing.T) {
	mux, _ := newTestMux(cache.New())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tree", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMCPRoute(t *testing.T) {
	mux, hit := newTestMux(cache.New())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	assert.True(t, *hit)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestNewServer(t *testing.T) {
	srv := NewServer(":0", http.NotFoundHandler())
	assert.Equal(t, ":0", srv.Addr)
	assert.NotZero(t, srv.ReadTimeout)
	assert.NotZero(t, srv.WriteTimeout)
}
