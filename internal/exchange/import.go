package exchange

import (
	"context"
	"errors"
	"fmt"

	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
)

// Creator creates items on the server and in the cache. *engine.Engine
// implements it.
type Creator interface {
	NewFolder(ctx context.Context, name string, parentID *int64) (int64, error)
	NewBookmark(ctx context.Context, name, url string, folderID *int64) (int64, error)
}

// Result counts what an import created.
type Result struct {
	Folders   int
	Bookmarks int
	// Skipped counts items the engine rejected as invalid, such as
	// bookmarks with unusable URLs. A skipped folder counts once; its
	// contents are not attempted.
	Skipped int
}

// Import recreates a detached tree under into (the root when nil).
// Folders are created before their contents, so every item is created
// under its parent's server-assigned id. Ids in items are ignored.
//
// Invalid items are skipped. Any other failure stops the import and is
// returned together with the counts so far.
func Import(ctx context.Context, c Creator, items models.RootItems, into *int64) (Result, error) {
	var res Result

	err := importLevel(ctx, c, items.RootFolders, items.RootBookmarks, into, &res)

	return res, err
}

func importLevel(ctx context.Context, c Creator, folders []models.FolderNode, bookmarks []models.Bookmark, parent *int64, res *Result) error {
	for _, f := range folders {
		id, err := c.NewFolder(ctx, f.Name, parent)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidInput) {
				res.Skipped++
				continue
			}

			return fmt.Errorf("importing folder %q: %w", f.Name, err)
		}

		res.Folders++

		if err := importLevel(ctx, c, f.Children, f.Bookmarks, models.ID(id), res); err != nil {
			return err
		}
	}

	for _, b := range bookmarks {
		if _, err := c.NewBookmark(ctx, b.Name, b.URL, parent); err != nil {
			if errors.Is(err, apperr.ErrInvalidInput) {
				res.Skipped++
				continue
			}

			return fmt.Errorf("importing bookmark %q: %w", b.Name, err)
		}

		res.Bookmarks++
	}

	return nil
}
