package tree

import (
	"slices"
	"strings"

	"github.com/alexjbarnes/marksync/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// SortKey returns the case-insensitive ordering key for a name. Names
// are NFC-normalized before case folding so composed and decomposed
// forms of the same text compare equal.
func SortKey(name string) string {
	return sortKey(cases.Fold(), name)
}

func sortKey(folder cases.Caser, name string) string {
	return folder.String(norm.NFC.String(name))
}

// Normalize returns a tree in which every sibling collection is ordered
// by case-insensitive name. Equal keys keep their input order. Already
// ordered collections are returned as-is, so normalizing a normalized
// tree returns it unchanged and shares all of its structure.
func Normalize(root models.RootItems) models.RootItems {
	// A Caser carries state and must not be shared between goroutines,
	// so each call gets its own.
	n := normalizer{fold: cases.Fold()}

	return models.RootItems{
		RootFolders:   n.folders(root.RootFolders),
		RootBookmarks: n.bookmarks(root.RootBookmarks),
	}
}

type normalizer struct {
	fold cases.Caser
}

func (n normalizer) folders(nodes []models.FolderNode) []models.FolderNode {
	var out []models.FolderNode

	for i, node := range nodes {
		children := n.folders(node.Children)
		bookmarks := n.bookmarks(node.Bookmarks)

		if sameSlice(children, node.Children) && sameSlice(bookmarks, node.Bookmarks) {
			continue
		}

		if out == nil {
			out = slices.Clone(nodes)
		}

		out[i].Children = children
		out[i].Bookmarks = bookmarks
	}

	if out == nil {
		out = nodes
	}

	return sortByName(n.fold, out, func(f models.FolderNode) string { return f.Name })
}

func (n normalizer) bookmarks(items []models.Bookmark) []models.Bookmark {
	return sortByName(n.fold, items, func(b models.Bookmark) string { return b.Name })
}

// sortByName returns items stably ordered by folded name. The input is
// returned unchanged when it is already in order.
func sortByName[T any](fold cases.Caser, items []T, name func(T) string) []T {
	if len(items) < 2 {
		return items
	}

	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = sortKey(fold, name(it))
	}

	sorted := true

	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			sorted = false
			break
		}
	}

	if sorted {
		return items
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		return strings.Compare(keys[a], keys[b])
	})

	out := make([]T, len(items))
	for i, idx := range order {
		out[i] = items[idx]
	}

	return out
}

// sameSlice reports whether a and b share the same backing array and
// length, meaning no copy was made.
func sameSlice[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}

	if len(a) == 0 {
		return true
	}

	return &a[0] == &b[0]
}
