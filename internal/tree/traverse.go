// Package tree implements pure transformations over the bookmark
// hierarchy. Every function takes a RootItems value and returns a new
// one; the input is never written through. Only the nodes on the path
// from the root to a change are rebuilt, untouched subtrees are shared
// with the input.
package tree

import (
	"fmt"
	"slices"

	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
)

// Location describes where an item was found. Exactly one of Folder or
// Bookmark is populated, matching Kind.
type Location struct {
	Kind     models.ItemKind
	Folder   models.FolderNode
	Bookmark models.Bookmark
	// ParentID is the owning folder, nil for the root collections.
	ParentID *int64
}

// FolderPatch lists the folder fields to replace. Nil fields are left
// unchanged. Reparenting goes through MoveFolder.
type FolderPatch struct {
	Name *string
}

// BookmarkPatch lists the bookmark fields to replace. Nil fields are
// left unchanged. Reparenting goes through MoveBookmark.
type BookmarkPatch struct {
	Name       *string
	URL        *string
	Favicon    *string
	FaviconURL *string
	Favorite   *bool
}

// Find locates an item by id and kind using a pre-order depth-first
// search. Root collections are searched before nested ones.
func Find(root models.RootItems, id int64, kind models.ItemKind) (Location, error) {
	switch kind {
	case models.KindFolder:
		if node, parent, ok := findFolder(root.RootFolders, nil, id); ok {
			return Location{Kind: kind, Folder: node, ParentID: parent}, nil
		}
	case models.KindBookmark:
		if b, ok := indexBookmark(root.RootBookmarks, id); ok {
			return Location{Kind: kind, Bookmark: root.RootBookmarks[b]}, nil
		}

		if b, parent, ok := findBookmark(root.RootFolders, id); ok {
			return Location{Kind: kind, Bookmark: b, ParentID: parent}, nil
		}
	default:
		return Location{}, fmt.Errorf("%w: unknown kind %q", apperr.ErrInvalidInput, kind)
	}

	return Location{}, fmt.Errorf("%s %d: %w", kind, id, apperr.ErrNotFound)
}

// HasFolder reports whether a folder with the given id exists.
func HasFolder(root models.RootItems, id int64) bool {
	_, _, ok := findFolder(root.RootFolders, nil, id)
	return ok
}

// HasBookmark reports whether a bookmark with the given id exists.
func HasBookmark(root models.RootItems, id int64) bool {
	_, err := Find(root, id, models.KindBookmark)
	return err == nil
}

func findFolder(nodes []models.FolderNode, parent *int64, id int64) (models.FolderNode, *int64, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, parent, true
		}

		if found, p, ok := findFolder(n.Children, models.ID(n.ID), id); ok {
			return found, p, true
		}
	}

	return models.FolderNode{}, nil, false
}

func findBookmark(nodes []models.FolderNode, id int64) (models.Bookmark, *int64, bool) {
	for _, n := range nodes {
		if i, ok := indexBookmark(n.Bookmarks, id); ok {
			return n.Bookmarks[i], models.ID(n.ID), true
		}

		if b, p, ok := findBookmark(n.Children, id); ok {
			return b, p, true
		}
	}

	return models.Bookmark{}, nil, false
}

func indexBookmark(bookmarks []models.Bookmark, id int64) (int, bool) {
	i := slices.IndexFunc(bookmarks, func(b models.Bookmark) bool { return b.ID == id })
	return i, i >= 0
}

// subtreeHas reports whether id names node itself or any folder below it.
func subtreeHas(node models.FolderNode, id int64) bool {
	if node.ID == id {
		return true
	}

	for _, c := range node.Children {
		if subtreeHas(c, id) {
			return true
		}
	}

	return false
}

// IsDescendant reports whether folder id sits strictly below folder
// ancestor. A folder is not its own descendant.
func IsDescendant(root models.RootItems, ancestor, id int64) bool {
	node, _, ok := findFolder(root.RootFolders, nil, ancestor)
	if !ok {
		return false
	}

	for _, c := range node.Children {
		if subtreeHas(c, id) {
			return true
		}
	}

	return false
}

// mapFolder rebuilds the path to the folder with the given id and
// replaces that node with fn's result. It reports whether the folder was
// found.
func mapFolder(nodes []models.FolderNode, id int64, fn func(models.FolderNode) models.FolderNode) ([]models.FolderNode, bool) {
	for i, n := range nodes {
		if n.ID == id {
			out := slices.Clone(nodes)
			out[i] = fn(n)

			return out, true
		}

		if children, ok := mapFolder(n.Children, id, fn); ok {
			out := slices.Clone(nodes)
			out[i].Children = children

			return out, true
		}
	}

	return nodes, false
}

// mapBookmark rebuilds the path to the bookmark with the given id and
// replaces it with fn's result.
func mapBookmark(root models.RootItems, id int64, fn func(models.Bookmark) models.Bookmark) (models.RootItems, bool) {
	if i, ok := indexBookmark(root.RootBookmarks, id); ok {
		out := slices.Clone(root.RootBookmarks)
		out[i] = fn(out[i])
		root.RootBookmarks = out

		return root, true
	}

	folders, ok := mapBookmarkIn(root.RootFolders, id, fn)
	if ok {
		root.RootFolders = folders
	}

	return root, ok
}

func mapBookmarkIn(nodes []models.FolderNode, id int64, fn func(models.Bookmark) models.Bookmark) ([]models.FolderNode, bool) {
	for i, n := range nodes {
		if j, ok := indexBookmark(n.Bookmarks, id); ok {
			bookmarks := slices.Clone(n.Bookmarks)
			bookmarks[j] = fn(bookmarks[j])

			out := slices.Clone(nodes)
			out[i].Bookmarks = bookmarks

			return out, true
		}

		if children, ok := mapBookmarkIn(n.Children, id, fn); ok {
			out := slices.Clone(nodes)
			out[i].Children = children

			return out, true
		}
	}

	return nodes, false
}

// appendCopy appends v to a fresh copy of s so the caller's backing
// array is never written.
func appendCopy[T any](s []T, v T) []T {
	out := make([]T, len(s), len(s)+1)
	copy(out, s)

	return append(out, v)
}

func cloneParent(p *int64) *int64 {
	if p == nil {
		return nil
	}

	return models.ID(*p)
}

// InsertFolder appends node to the folder parentID, or to the root
// folders when parentID is nil. The node's ParentID is set to match.
func InsertFolder(root models.RootItems, parentID *int64, node models.FolderNode) (models.RootItems, error) {
	if HasFolder(root, node.ID) {
		return root, fmt.Errorf("folder %d: %w", node.ID, apperr.ErrDuplicateID)
	}

	node.ParentID = cloneParent(parentID)
	if node.Children == nil {
		node.Children = []models.FolderNode{}
	}

	if node.Bookmarks == nil {
		node.Bookmarks = []models.Bookmark{}
	}

	if parentID == nil {
		root.RootFolders = appendCopy(root.RootFolders, node)
		return root, nil
	}

	folders, ok := mapFolder(root.RootFolders, *parentID, func(p models.FolderNode) models.FolderNode {
		p.Children = appendCopy(p.Children, node)
		return p
	})
	if !ok {
		return root, fmt.Errorf("folder %d: %w", *parentID, apperr.ErrParentNotFound)
	}

	root.RootFolders = folders

	return root, nil
}

// InsertBookmark appends b to the folder folderID, or to the root
// bookmarks when folderID is nil. The bookmark's FolderID is set to
// match.
func InsertBookmark(root models.RootItems, folderID *int64, b models.Bookmark) (models.RootItems, error) {
	if HasBookmark(root, b.ID) {
		return root, fmt.Errorf("bookmark %d: %w", b.ID, apperr.ErrDuplicateID)
	}

	b.FolderID = cloneParent(folderID)

	if folderID == nil {
		root.RootBookmarks = appendCopy(root.RootBookmarks, b)
		return root, nil
	}

	folders, ok := mapFolder(root.RootFolders, *folderID, func(p models.FolderNode) models.FolderNode {
		p.Bookmarks = appendCopy(p.Bookmarks, b)
		return p
	})
	if !ok {
		return root, fmt.Errorf("folder %d: %w", *folderID, apperr.ErrParentNotFound)
	}

	root.RootFolders = folders

	return root, nil
}

// Remove deletes an item wherever it is found and returns it with its
// former parent. Removing a folder drops its whole subtree.
func Remove(root models.RootItems, id int64, kind models.ItemKind) (models.RootItems, Location, error) {
	switch kind {
	case models.KindFolder:
		folders, node, parent, ok := removeFolder(root.RootFolders, nil, id)
		if ok {
			root.RootFolders = folders
			return root, Location{Kind: kind, Folder: node, ParentID: parent}, nil
		}
	case models.KindBookmark:
		if i, ok := indexBookmark(root.RootBookmarks, id); ok {
			removed := root.RootBookmarks[i]
			root.RootBookmarks = slices.Delete(slices.Clone(root.RootBookmarks), i, i+1)

			return root, Location{Kind: kind, Bookmark: removed}, nil
		}

		folders, b, parent, ok := removeBookmark(root.RootFolders, id)
		if ok {
			root.RootFolders = folders
			return root, Location{Kind: kind, Bookmark: b, ParentID: parent}, nil
		}
	default:
		return root, Location{}, fmt.Errorf("%w: unknown kind %q", apperr.ErrInvalidInput, kind)
	}

	return root, Location{}, fmt.Errorf("%s %d: %w", kind, id, apperr.ErrNotFound)
}

func removeFolder(nodes []models.FolderNode, parent *int64, id int64) ([]models.FolderNode, models.FolderNode, *int64, bool) {
	for i, n := range nodes {
		if n.ID == id {
			return slices.Delete(slices.Clone(nodes), i, i+1), n, parent, true
		}

		if children, removed, p, ok := removeFolder(n.Children, models.ID(n.ID), id); ok {
			out := slices.Clone(nodes)
			out[i].Children = children

			return out, removed, p, true
		}
	}

	return nodes, models.FolderNode{}, nil, false
}

func removeBookmark(nodes []models.FolderNode, id int64) ([]models.FolderNode, models.Bookmark, *int64, bool) {
	for i, n := range nodes {
		if j, ok := indexBookmark(n.Bookmarks, id); ok {
			out := slices.Clone(nodes)
			out[i].Bookmarks = slices.Delete(slices.Clone(n.Bookmarks), j, j+1)

			return out, n.Bookmarks[j], models.ID(n.ID), true
		}

		if children, b, p, ok := removeBookmark(n.Children, id); ok {
			out := slices.Clone(nodes)
			out[i].Children = children

			return out, b, p, true
		}
	}

	return nodes, models.Bookmark{}, nil, false
}

// UpdateFolder replaces the patched fields of a folder.
func UpdateFolder(root models.RootItems, id int64, patch FolderPatch) (models.RootItems, error) {
	folders, ok := mapFolder(root.RootFolders, id, func(n models.FolderNode) models.FolderNode {
		if patch.Name != nil {
			n.Name = *patch.Name
		}

		return n
	})
	if !ok {
		return root, fmt.Errorf("folder %d: %w", id, apperr.ErrNotFound)
	}

	root.RootFolders = folders

	return root, nil
}

// UpdateBookmark replaces the patched fields of a bookmark.
func UpdateBookmark(root models.RootItems, id int64, patch BookmarkPatch) (models.RootItems, error) {
	out, ok := mapBookmark(root, id, func(b models.Bookmark) models.Bookmark {
		if patch.Name != nil {
			b.Name = *patch.Name
		}

		if patch.URL != nil {
			b.URL = *patch.URL
		}

		if patch.Favicon != nil {
			b.Favicon = *patch.Favicon
		}

		if patch.FaviconURL != nil {
			b.FaviconURL = *patch.FaviconURL
		}

		if patch.Favorite != nil {
			b.Favorite = *patch.Favorite
		}

		return b
	})
	if !ok {
		return root, fmt.Errorf("bookmark %d: %w", id, apperr.ErrNotFound)
	}

	return out, nil
}

// ToggleFavorite flips the favorite flag of a bookmark.
func ToggleFavorite(root models.RootItems, id int64) (models.RootItems, error) {
	out, ok := mapBookmark(root, id, func(b models.Bookmark) models.Bookmark {
		b.Favorite = !b.Favorite
		return b
	})
	if !ok {
		return root, fmt.Errorf("bookmark %d: %w", id, apperr.ErrNotFound)
	}

	return out, nil
}

// CheckMove validates a reparent without applying it. It fails with
// ErrCycleDetected when a folder would land in its own subtree and with
// ErrParentNotFound when the target folder does not exist. An item that
// is missing from the tree is not an error here: the caller may be
// working from a stale snapshot and the server is the authority.
func CheckMove(root models.RootItems, id int64, kind models.ItemKind, target *int64) error {
	if target == nil {
		return nil
	}

	if kind == models.KindFolder {
		if *target == id || IsDescendant(root, id, *target) {
			return fmt.Errorf("folder %d into %d: %w", id, *target, apperr.ErrCycleDetected)
		}
	}

	if !HasFolder(root, *target) {
		return fmt.Errorf("folder %d: %w", *target, apperr.ErrParentNotFound)
	}

	return nil
}

// MoveFolder relocates a folder and its subtree under target, or to the
// root when target is nil.
func MoveFolder(root models.RootItems, id int64, target *int64) (models.RootItems, error) {
	if !HasFolder(root, id) {
		return root, fmt.Errorf("folder %d: %w", id, apperr.ErrNotFound)
	}

	if err := CheckMove(root, id, models.KindFolder, target); err != nil {
		return root, err
	}

	out, loc, err := Remove(root, id, models.KindFolder)
	if err != nil {
		return root, err
	}

	out, err = InsertFolder(out, target, loc.Folder)
	if err != nil {
		return root, err
	}

	return out, nil
}

// MoveBookmark relocates a bookmark into target, or to the root when
// target is nil.
func MoveBookmark(root models.RootItems, id int64, target *int64) (models.RootItems, error) {
	if !HasBookmark(root, id) {
		return root, fmt.Errorf("bookmark %d: %w", id, apperr.ErrNotFound)
	}

	if err := CheckMove(root, id, models.KindBookmark, target); err != nil {
		return root, err
	}

	out, loc, err := Remove(root, id, models.KindBookmark)
	if err != nil {
		return root, err
	}

	out, err = InsertBookmark(out, target, loc.Bookmark)
	if err != nil {
		return root, err
	}

	return out, nil
}

// Move dispatches to MoveFolder or MoveBookmark.
func Move(root models.RootItems, id int64, kind models.ItemKind, target *int64) (models.RootItems, error) {
	switch kind {
	case models.KindFolder:
		return MoveFolder(root, id, target)
	case models.KindBookmark:
		return MoveBookmark(root, id, target)
	}

	return root, fmt.Errorf("%w: unknown kind %q", apperr.ErrInvalidInput, kind)
}
