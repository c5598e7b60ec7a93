// Package mcpserver registers MCP tools that expose bookmark operations.
// It adapts the engine to the MCP SDK's tool handler interface.
package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexjbarnes/marksync/internal/engine"
	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/alexjbarnes/marksync/internal/tree"
	"github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// defaultMaxResults caps bookmarks_search when max_results is unset.
const defaultMaxResults = 50

// RegisterTools adds all bookmark tools to the given MCP server.
func RegisterTools(server *mcp.Server, e *engine.Engine) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "bookmarks_tree",
		Description: "Show the cached bookmark tree as an indented outline with folder and bookmark counts. Folders are listed before bookmarks at each level, both sorted by name.",
	}, treeHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bookmarks_search",
		Description: "Case-insensitive search over bookmark names and URLs. Returns matching bookmarks with their ids and folder paths.",
	}, searchHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bookmarks_create_folder",
		Description: "Create a folder. Omit parent_id to create it at the top level. Returns the new folder id.",
	}, createFolderHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bookmarks_create_bookmark",
		Description: "Create a bookmark. Omit folder_id to create it at the top level. Returns the new bookmark id.",
	}, createBookmarkHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bookmarks_edit_folder",
		Description: "Rename a folder and set its parent. Omitting parent_id moves the folder to the top level. A folder cannot be moved into its own subtree.",
	}, editFolderHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bookmarks_edit_bookmark",
		Description: "Set a bookmark's name, URL and folder. Omitting folder_id moves the bookmark to the top level.",
	}, editBookmarkHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bookmarks_delete",
		Description: "Delete a folder (with everything inside it) or a bookmark.",
	}, deleteHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bookmarks_move",
		Description: "Move a folder or bookmark into another folder. Omit target_folder_id to move it to the top level.",
	}, moveHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bookmarks_toggle_favorite",
		Description: "Flip the favorite flag of a bookmark.",
	}, toggleFavoriteHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bookmarks_refresh",
		Description: "Refetch the whole bookmark tree from the server, or one folder's branch when folder_id is given.",
	}, refreshHandler(e))
}

// --- Input types ---
// The MCP SDK infers JSON schema from these struct types via jsonschema tags.

// TreeInput has no parameters.
type TreeInput struct{}

// SearchInput holds parameters for bookmarks_search.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"required,text to find in bookmark names and URLs"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of results, defaults to 50"`
}

// CreateFolderInput holds parameters for bookmarks_create_folder.
type CreateFolderInput struct {
	Name     string `json:"name" jsonschema:"required,folder name"`
	ParentID *int64 `json:"parent_id,omitempty" jsonschema:"parent folder id, omit for the top level"`
}

// CreateBookmarkInput holds parameters for bookmarks_create_bookmark.
type CreateBookmarkInput struct {
	Name     string `json:"name" jsonschema:"required,bookmark title"`
	URL      string `json:"url" jsonschema:"required,absolute http or https URL"`
	FolderID *int64 `json:"folder_id,omitempty" jsonschema:"containing folder id, omit for the top level"`
}

// EditFolderInput holds parameters for bookmarks_edit_folder.
type EditFolderInput struct {
	ID       int64  `json:"id" jsonschema:"required,folder id"`
	Name     string `json:"name" jsonschema:"required,new folder name"`
	ParentID *int64 `json:"parent_id,omitempty" jsonschema:"new parent folder id, omit for the top level"`
}

// EditBookmarkInput holds parameters for bookmarks_edit_bookmark.
type EditBookmarkInput struct {
	ID       int64  `json:"id" jsonschema:"required,bookmark id"`
	Name     string `json:"name" jsonschema:"required,new bookmark title"`
	URL      string `json:"url" jsonschema:"required,new URL"`
	FolderID *int64 `json:"folder_id,omitempty" jsonschema:"new containing folder id, omit for the top level"`
}

// ItemInput identifies one folder or bookmark.
type ItemInput struct {
	ID   int64  `json:"id" jsonschema:"required,item id"`
	Kind string `json:"kind" jsonschema:"required,folder or bookmark"`
}

// MoveInput holds parameters for bookmarks_move.
type MoveInput struct {
	ID             int64  `json:"id" jsonschema:"required,item id"`
	Kind           string `json:"kind" jsonschema:"required,folder or bookmark"`
	TargetFolderID *int64 `json:"target_folder_id,omitempty" jsonschema:"destination folder id, omit for the top level"`
}

// FavoriteInput holds parameters for bookmarks_toggle_favorite.
type FavoriteInput struct {
	ID int64 `json:"id" jsonschema:"required,bookmark id"`
}

// RefreshInput holds parameters for bookmarks_refresh.
type RefreshInput struct {
	FolderID *int64 `json:"folder_id,omitempty" jsonschema:"refresh only this folder's branch"`
}

// --- Result types ---

// TreeResult is the output of bookmarks_tree.
type TreeResult struct {
	Loaded    bool   `json:"loaded"`
	Loading   bool   `json:"loading"`
	Folders   int    `json:"folders"`
	Bookmarks int    `json:"bookmarks"`
	Outline   string `json:"outline"`
}

// BookmarkHit is one search match.
type BookmarkHit struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Path     string `json:"path"`
	Favorite bool   `json:"favorite"`
	Created  string `json:"created,omitempty"`
}

// SearchResult is the output of bookmarks_search.
type SearchResult struct {
	Query        string        `json:"query"`
	TotalMatches int           `json:"total_matches"`
	Results      []BookmarkHit `json:"results"`
}

// ItemResult reports the item an operation acted on.
type ItemResult struct {
	ID   int64  `json:"id"`
	Kind string `json:"kind"`
	// Status is "created", "updated", "deleted", "moved" or "toggled".
	Status string `json:"status"`
}

// RefreshResult is the output of bookmarks_refresh.
type RefreshResult struct {
	Folders   int `json:"folders"`
	Bookmarks int `json:"bookmarks"`
}

// --- Handlers ---

func treeHandler(e *engine.Engine) mcp.ToolHandlerFor[TreeInput, *TreeResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ TreeInput) (*mcp.CallToolResult, *TreeResult, error) {
		s := e.Cache().Read()

		result := &TreeResult{Loading: s.Loading}
		if s.Data != nil {
			result.Loaded = true
			result.Folders, result.Bookmarks = tree.Counts(*s.Data)
			result.Outline = tree.Outline(*s.Data)
		}

		return textResult(result), result, nil
	}
}

func searchHandler(e *engine.Engine) mcp.ToolHandlerFor[SearchInput, *SearchResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, *SearchResult, error) {
		root, ok := e.Cache().Snapshot()
		if !ok {
			return nil, nil, apperr.ErrNotLoaded
		}

		limit := input.MaxResults
		if limit <= 0 {
			limit = defaultMaxResults
		}

		matches := tree.Search(root, input.Query)

		result := &SearchResult{
			Query:        input.Query,
			TotalMatches: len(matches),
			Results:      []BookmarkHit{},
		}

		for i, b := range matches {
			if i == limit {
				break
			}

			result.Results = append(result.Results, hit(root, b))
		}

		return textResult(result), result, nil
	}
}

func createFolderHandler(e *engine.Engine) mcp.ToolHandlerFor[CreateFolderInput, *ItemResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateFolderInput) (*mcp.CallToolResult, *ItemResult, error) {
		id, err := e.NewFolder(ctx, input.Name, input.ParentID)
		if err != nil {
			return nil, nil, err
		}

		result := &ItemResult{ID: id, Kind: string(models.KindFolder), Status: "created"}

		return textResult(result), result, nil
	}
}

func createBookmarkHandler(e *engine.Engine) mcp.ToolHandlerFor[CreateBookmarkInput, *ItemResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateBookmarkInput) (*mcp.CallToolResult, *ItemResult, error) {
		id, err := e.NewBookmark(ctx, input.Name, input.URL, input.FolderID)
		if err != nil {
			return nil, nil, err
		}

		result := &ItemResult{ID: id, Kind: string(models.KindBookmark), Status: "created"}

		return textResult(result), result, nil
	}
}

func editFolderHandler(e *engine.Engine) mcp.ToolHandlerFor[EditFolderInput, *ItemResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EditFolderInput) (*mcp.CallToolResult, *ItemResult, error) {
		if err := e.EditFolder(ctx, input.ID, input.Name, input.ParentID); err != nil {
			return nil, nil, err
		}

		result := &ItemResult{ID: input.ID, Kind: string(models.KindFolder), Status: "updated"}

		return textResult(result), result, nil
	}
}

func editBookmarkHandler(e *engine.Engine) mcp.ToolHandlerFor[EditBookmarkInput, *ItemResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EditBookmarkInput) (*mcp.CallToolResult, *ItemResult, error) {
		if err := e.EditBookmark(ctx, input.ID, input.Name, input.URL, input.FolderID); err != nil {
			return nil, nil, err
		}

		result := &ItemResult{ID: input.ID, Kind: string(models.KindBookmark), Status: "updated"}

		return textResult(result), result, nil
	}
}

func deleteHandler(e *engine.Engine) mcp.ToolHandlerFor[ItemInput, *ItemResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ItemInput) (*mcp.CallToolResult, *ItemResult, error) {
		kind, err := parseKind(input.Kind)
		if err != nil {
			return nil, nil, err
		}

		if err := e.DeleteItem(ctx, input.ID, kind); err != nil {
			return nil, nil, err
		}

		result := &ItemResult{ID: input.ID, Kind: string(kind), Status: "deleted"}

		return textResult(result), result, nil
	}
}

func moveHandler(e *engine.Engine) mcp.ToolHandlerFor[MoveInput, *ItemResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MoveInput) (*mcp.CallToolResult, *ItemResult, error) {
		kind, err := parseKind(input.Kind)
		if err != nil {
			return nil, nil, err
		}

		if input.TargetFolderID == nil {
			err = e.MoveToRoot(ctx, input.ID, kind)
		} else {
			err = e.MoveItem(ctx, input.ID, kind, input.TargetFolderID)
		}

		if err != nil {
			return nil, nil, err
		}

		result := &ItemResult{ID: input.ID, Kind: string(kind), Status: "moved"}

		return textResult(result), result, nil
	}
}

func toggleFavoriteHandler(e *engine.Engine) mcp.ToolHandlerFor[FavoriteInput, *ItemResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input FavoriteInput) (*mcp.CallToolResult, *ItemResult, error) {
		if err := e.ToggleFavorite(ctx, input.ID); err != nil {
			return nil, nil, err
		}

		result := &ItemResult{ID: input.ID, Kind: string(models.KindBookmark), Status: "toggled"}

		return textResult(result), result, nil
	}
}

func refreshHandler(e *engine.Engine) mcp.ToolHandlerFor[RefreshInput, *RefreshResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RefreshInput) (*mcp.CallToolResult, *RefreshResult, error) {
		var err error
		if input.FolderID != nil {
			err = e.RefreshBranch(ctx, input.FolderID)
		} else {
			err = e.RefreshFullTree(ctx)
		}

		if err != nil {
			return nil, nil, err
		}

		result := &RefreshResult{}
		if root, ok := e.Cache().Snapshot(); ok {
			result.Folders, result.Bookmarks = tree.Counts(root)
		}

		return textResult(result), result, nil
	}
}

func parseKind(s string) (models.ItemKind, error) {
	kind, err := models.ParseKind(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}

	return kind, nil
}

// hit describes b with the slash-joined names of its enclosing folders.
func hit(root models.RootItems, b models.Bookmark) BookmarkHit {
	h := BookmarkHit{
		ID:       b.ID,
		Name:     b.Name,
		URL:      b.URL,
		Path:     "/",
		Favorite: b.Favorite,
	}

	if !b.Created.IsZero() {
		h.Created = b.Created.UTC().Format(time.RFC3339)
	}

	if b.FolderID != nil {
		if chain, err := tree.FolderPath(root, *b.FolderID); err == nil {
			names := make([]string, len(chain))
			for i, f := range chain {
				names[i] = f.Name
			}

			h.Path = "/" + strings.Join(names, "/")
		}
	}

	return h
}

// textResult builds a CallToolResult with JSON text content from any value.
// This provides the unstructured content alongside the structured output
// that the SDK populates automatically.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
