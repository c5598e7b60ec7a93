package tree

import (
	"fmt"

	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
)

// SpliceBranch replaces the direct children and bookmarks of folderID
// with the contents of a branch payload. A nil folderID replaces the
// root collections.
//
// Branch payloads are one level deep: a fetched child folder with no
// children and no bookmarks keeps the descendants the cache already held
// for the same id. A fetched child that carries its own contents
// replaces the cached subtree.
//
// The result fails with ErrDuplicateID when a spliced item also exists
// elsewhere in the tree, which means the cache has drifted from the
// server.
func SpliceBranch(root models.RootItems, folderID *int64, branch models.RootItems) (models.RootItems, error) {
	out := root

	if folderID == nil {
		out.RootFolders = mergeChildren(root.RootFolders, branch.RootFolders, nil)
		out.RootBookmarks = reparentBookmarks(branch.RootBookmarks, nil)
	} else {
		folders, ok := mapFolder(root.RootFolders, *folderID, func(n models.FolderNode) models.FolderNode {
			n.Children = mergeChildren(n.Children, branch.RootFolders, folderID)
			n.Bookmarks = reparentBookmarks(branch.RootBookmarks, folderID)

			return n
		})
		if !ok {
			return root, fmt.Errorf("folder %d: %w", *folderID, apperr.ErrNotFound)
		}

		out.RootFolders = folders
	}

	if err := checkUnique(out); err != nil {
		return root, err
	}

	return out, nil
}

func mergeChildren(existing, fetched []models.FolderNode, parent *int64) []models.FolderNode {
	cached := make(map[int64]models.FolderNode, len(existing))
	for _, n := range existing {
		cached[n.ID] = n
	}

	out := make([]models.FolderNode, 0, len(fetched))

	for _, f := range fetched {
		f.ParentID = cloneParent(parent)

		if len(f.Children) == 0 && len(f.Bookmarks) == 0 {
			if old, ok := cached[f.ID]; ok {
				f.Children = old.Children
				f.Bookmarks = old.Bookmarks
			}
		}

		if f.Children == nil {
			f.Children = []models.FolderNode{}
		}

		if f.Bookmarks == nil {
			f.Bookmarks = []models.Bookmark{}
		}

		out = append(out, f)
	}

	return out
}

func reparentBookmarks(fetched []models.Bookmark, folderID *int64) []models.Bookmark {
	out := make([]models.Bookmark, len(fetched))
	for i, b := range fetched {
		b.FolderID = cloneParent(folderID)
		out[i] = b
	}

	return out
}
