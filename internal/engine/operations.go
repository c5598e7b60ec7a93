package engine

import (
	"context"
	"fmt"
	"log/slog"

	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/alexjbarnes/marksync/internal/tree"
)

// NewFolder creates an empty folder under parentID (the root when nil)
// and returns its server-assigned id.
func (e *Engine) NewFolder(ctx context.Context, name string, parentID *int64) (int64, error) {
	req := models.CreateFolderRequest{Name: name, ParentID: parentID}
	if err := validateCreateFolder(&req); err != nil {
		return 0, err
	}

	if err := e.precheck(func(root models.RootItems) error {
		return requireFolder(root, parentID)
	}); err != nil {
		return 0, err
	}

	return detach(ctx, func(ctx context.Context) (int64, error) {
		var id int64

		seq, err := e.call(ctx, func(ctx context.Context) error {
			var err error
			id, err = e.remote.CreateFolder(ctx, req)

			return err
		})
		if err != nil {
			return 0, e.remoteFailed("new folder", err, slog.String("parent_id", models.ParentString(parentID)))
		}

		if id == 0 {
			return 0, e.repair(ctx, "new folder", errNoID)
		}

		node := models.FolderNode{Folder: models.Folder{ID: id, Name: name}}

		return id, e.reconcile(ctx, "new folder", seq, func(root models.RootItems) (models.RootItems, error) {
			return tree.InsertFolder(root, parentID, node)
		})
	})
}

// NewBookmark creates a bookmark in folderID (the root when nil) and
// returns its server-assigned id.
func (e *Engine) NewBookmark(ctx context.Context, name, url string, folderID *int64) (int64, error) {
	req := models.CreateBookmarkRequest{Name: name, URL: url, FolderID: folderID}
	if err := validateCreateBookmark(&req); err != nil {
		return 0, err
	}

	if err := e.precheck(func(root models.RootItems) error {
		return requireFolder(root, folderID)
	}); err != nil {
		return 0, err
	}

	return detach(ctx, func(ctx context.Context) (int64, error) {
		var id int64

		seq, err := e.call(ctx, func(ctx context.Context) error {
			var err error
			id, err = e.remote.CreateBookmark(ctx, req)

			return err
		})
		if err != nil {
			return 0, e.remoteFailed("new bookmark", err, slog.String("folder_id", models.ParentString(folderID)))
		}

		if id == 0 {
			return 0, e.repair(ctx, "new bookmark", errNoID)
		}

		b := models.Bookmark{ID: id, Name: name, URL: url, Created: e.now().UTC()}

		return id, e.reconcile(ctx, "new bookmark", seq, func(root models.RootItems) (models.RootItems, error) {
			return tree.InsertBookmark(root, folderID, b)
		})
	})
}

// EditFolder renames folder id and places it under parentID. A changed
// parent relocates the whole subtree.
func (e *Engine) EditFolder(ctx context.Context, id int64, name string, parentID *int64) error {
	req := models.UpdateFolderRequest{ID: id, Name: name, ParentID: parentID}
	if err := validateUpdateFolder(&req); err != nil {
		return err
	}

	if err := e.precheck(func(root models.RootItems) error {
		return tree.CheckMove(root, id, models.KindFolder, parentID)
	}); err != nil {
		return err
	}

	return e.commit(ctx, "edit folder", func(ctx context.Context) error {
		return e.remote.UpdateFolder(ctx, req)
	}, func(root models.RootItems) (models.RootItems, error) {
		out, err := tree.UpdateFolder(root, id, tree.FolderPatch{Name: &name})
		if err != nil {
			return root, err
		}

		return relocate(out, id, models.KindFolder, parentID)
	}, slog.Int64("folder_id", id))
}

// EditBookmark replaces the name and URL of bookmark id and places it in
// folderID.
func (e *Engine) EditBookmark(ctx context.Context, id int64, name, url string, folderID *int64) error {
	req := models.UpdateBookmarkRequest{ID: id, Name: name, URL: url, FolderID: folderID}
	if err := validateUpdateBookmark(&req); err != nil {
		return err
	}

	if err := e.precheck(func(root models.RootItems) error {
		return tree.CheckMove(root, id, models.KindBookmark, folderID)
	}); err != nil {
		return err
	}

	return e.commit(ctx, "edit bookmark", func(ctx context.Context) error {
		return e.remote.UpdateBookmark(ctx, req)
	}, func(root models.RootItems) (models.RootItems, error) {
		out, err := tree.UpdateBookmark(root, id, tree.BookmarkPatch{Name: &name, URL: &url})
		if err != nil {
			return root, err
		}

		return relocate(out, id, models.KindBookmark, folderID)
	}, slog.Int64("bookmark_id", id))
}

// DeleteItem deletes a folder or bookmark. Deleting a folder drops its
// whole subtree from the cache; the server removes the contents too.
func (e *Engine) DeleteItem(ctx context.Context, id int64, kind models.ItemKind) error {
	if err := validateItem(id, kind); err != nil {
		return err
	}

	return e.commit(ctx, "delete "+string(kind), func(ctx context.Context) error {
		if kind == models.KindFolder {
			return e.remote.DeleteFolder(ctx, id)
		}

		return e.remote.DeleteBookmark(ctx, id)
	}, func(root models.RootItems) (models.RootItems, error) {
		out, _, err := tree.Remove(root, id, kind)
		return out, err
	}, slog.Int64("id", id))
}

// MoveItem reparents an item under target, or to the root when target
// is nil. Moving a folder into itself or one of its descendants fails
// with ErrCycleDetected before the server is contacted.
func (e *Engine) MoveItem(ctx context.Context, id int64, kind models.ItemKind, target *int64) error {
	req := models.MoveRequest{ItemType: kind, ItemID: id, TargetFolderID: target}
	if err := validateMove(&req); err != nil {
		return err
	}

	if err := e.precheck(func(root models.RootItems) error {
		return tree.CheckMove(root, id, kind, target)
	}); err != nil {
		return err
	}

	return e.commit(ctx, "move "+string(kind), func(ctx context.Context) error {
		return e.remote.Move(ctx, req)
	}, func(root models.RootItems) (models.RootItems, error) {
		return tree.Move(root, id, kind, target)
	}, slog.Int64("id", id), slog.String("target", models.ParentString(target)))
}

// MoveToRoot moves an item to the top level using the server's
// dedicated route.
func (e *Engine) MoveToRoot(ctx context.Context, id int64, kind models.ItemKind) error {
	req := models.MoveRequest{ItemType: kind, ItemID: id}
	if err := validateMove(&req); err != nil {
		return err
	}

	return e.commit(ctx, "move "+string(kind)+" to root", func(ctx context.Context) error {
		return e.remote.MoveToRoot(ctx, req)
	}, func(root models.RootItems) (models.RootItems, error) {
		return tree.Move(root, id, kind, nil)
	}, slog.Int64("id", id))
}

// ToggleFavorite flips the favorite flag of a bookmark.
func (e *Engine) ToggleFavorite(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}

	return e.commit(ctx, "toggle favorite", func(ctx context.Context) error {
		return e.remote.ToggleFavorite(ctx, id)
	}, func(root models.RootItems) (models.RootItems, error) {
		return tree.ToggleFavorite(root, id)
	}, slog.Int64("bookmark_id", id))
}

// commit sends a change to the server and, once it is accepted, applies
// change to the cache. Both run detached from ctx.
func (e *Engine) commit(ctx context.Context, op string, send func(context.Context) error,
	change func(models.RootItems) (models.RootItems, error), attrs ...any,
) error {
	return detachErr(ctx, func(ctx context.Context) error {
		seq, err := e.call(ctx, send)
		if err != nil {
			return e.remoteFailed(op, err, attrs...)
		}

		return e.reconcile(ctx, op, seq, change)
	})
}

func requireFolder(root models.RootItems, id *int64) error {
	if id == nil || tree.HasFolder(root, *id) {
		return nil
	}

	return fmt.Errorf("folder %d: %w", *id, apperr.ErrParentNotFound)
}

// relocate moves an item to parent if it is held somewhere else.
func relocate(root models.RootItems, id int64, kind models.ItemKind, parent *int64) (models.RootItems, error) {
	loc, err := tree.Find(root, id, kind)
	if err != nil {
		return root, err
	}

	if models.SameParent(loc.ParentID, parent) {
		return root, nil
	}

	return tree.Move(root, id, kind, parent)
}
