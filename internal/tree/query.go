package tree

import (
	"fmt"
	"slices"
	"strings"

	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
	"golang.org/x/text/cases"
)

// AllBookmarks flattens the tree into a list of bookmarks: root
// bookmarks first, then each folder's bookmarks in pre-order.
func AllBookmarks(root models.RootItems) []models.Bookmark {
	out := slices.Clone(root.RootBookmarks)

	var walk func([]models.FolderNode)
	walk = func(nodes []models.FolderNode) {
		for _, n := range nodes {
			out = append(out, n.Bookmarks...)
			walk(n.Children)
		}
	}
	walk(root.RootFolders)

	return out
}

// AllFolders flattens the folder hierarchy into plain folder records in
// pre-order.
func AllFolders(root models.RootItems) []models.Folder {
	var out []models.Folder

	var walk func([]models.FolderNode)
	walk = func(nodes []models.FolderNode) {
		for _, n := range nodes {
			out = append(out, n.Folder)
			walk(n.Children)
		}
	}
	walk(root.RootFolders)

	return out
}

// Favorites returns every bookmark marked as favorite.
func Favorites(root models.RootItems) []models.Bookmark {
	var out []models.Bookmark

	for _, b := range AllBookmarks(root) {
		if b.Favorite {
			out = append(out, b)
		}
	}

	return out
}

// Counts returns the number of folders and bookmarks in the tree.
func Counts(root models.RootItems) (folders, bookmarks int) {
	return len(AllFolders(root)), len(AllBookmarks(root))
}

// FolderPath returns the chain of folders from the root down to and
// including the folder with the given id.
func FolderPath(root models.RootItems, id int64) ([]models.Folder, error) {
	var path []models.Folder

	var walk func([]models.FolderNode) bool
	walk = func(nodes []models.FolderNode) bool {
		for _, n := range nodes {
			path = append(path, n.Folder)
			if n.ID == id || walk(n.Children) {
				return true
			}

			path = path[:len(path)-1]
		}

		return false
	}

	if !walk(root.RootFolders) {
		return nil, fmt.Errorf("folder %d: %w", id, apperr.ErrNotFound)
	}

	return path, nil
}

// Search returns bookmarks whose name or URL contains query, compared
// case-insensitively. An empty query matches nothing.
func Search(root models.RootItems, query string) []models.Bookmark {
	fold := cases.Fold()

	q := sortKey(fold, strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []models.Bookmark

	for _, b := range AllBookmarks(root) {
		if strings.Contains(sortKey(fold, b.Name), q) || strings.Contains(sortKey(fold, b.URL), q) {
			out = append(out, b)
		}
	}

	return out
}
