package tree

import (
	"fmt"

	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
)

// Check verifies the structural invariants of a tree: ids are unique
// per kind, every item's parent field names the node that holds it, and
// every sibling collection is in normalized order. It returns the first
// violation found.
func Check(root models.RootItems) error {
	if err := checkUnique(root); err != nil {
		return err
	}

	if err := checkParents(root.RootFolders, root.RootBookmarks, nil); err != nil {
		return err
	}

	return checkOrder(root.RootFolders, root.RootBookmarks)
}

func checkUnique(root models.RootItems) error {
	folders := make(map[int64]struct{})
	bookmarks := make(map[int64]struct{})

	for _, b := range root.RootBookmarks {
		if _, dup := bookmarks[b.ID]; dup {
			return fmt.Errorf("bookmark %d: %w", b.ID, apperr.ErrDuplicateID)
		}

		bookmarks[b.ID] = struct{}{}
	}

	var walk func([]models.FolderNode) error
	walk = func(nodes []models.FolderNode) error {
		for _, n := range nodes {
			if _, dup := folders[n.ID]; dup {
				return fmt.Errorf("folder %d: %w", n.ID, apperr.ErrDuplicateID)
			}

			folders[n.ID] = struct{}{}

			for _, b := range n.Bookmarks {
				if _, dup := bookmarks[b.ID]; dup {
					return fmt.Errorf("bookmark %d: %w", b.ID, apperr.ErrDuplicateID)
				}

				bookmarks[b.ID] = struct{}{}
			}

			if err := walk(n.Children); err != nil {
				return err
			}
		}

		return nil
	}

	return walk(root.RootFolders)
}

func checkParents(nodes []models.FolderNode, bookmarks []models.Bookmark, parent *int64) error {
	for _, b := range bookmarks {
		if !models.SameParent(b.FolderID, parent) {
			return fmt.Errorf("bookmark %d has folder_id %s but is held by %s",
				b.ID, models.ParentString(b.FolderID), models.ParentString(parent))
		}
	}

	for _, n := range nodes {
		if !models.SameParent(n.ParentID, parent) {
			return fmt.Errorf("folder %d has parent_id %s but is held by %s",
				n.ID, models.ParentString(n.ParentID), models.ParentString(parent))
		}

		if err := checkParents(n.Children, n.Bookmarks, models.ID(n.ID)); err != nil {
			return err
		}
	}

	return nil
}

func checkOrder(nodes []models.FolderNode, bookmarks []models.Bookmark) error {
	for i := 1; i < len(nodes); i++ {
		if SortKey(nodes[i-1].Name) > SortKey(nodes[i].Name) {
			return fmt.Errorf("folders %q and %q out of order", nodes[i-1].Name, nodes[i].Name)
		}
	}

	for i := 1; i < len(bookmarks); i++ {
		if SortKey(bookmarks[i-1].Name) > SortKey(bookmarks[i].Name) {
			return fmt.Errorf("bookmarks %q and %q out of order", bookmarks[i-1].Name, bookmarks[i].Name)
		}
	}

	for _, n := range nodes {
		if err := checkOrder(n.Children, n.Bookmarks); err != nil {
			return err
		}
	}

	return nil
}
