package tree

import (
	"testing"

	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllBookmarks_PreOrder(t *testing.T) {
	assert.Equal(t, []string{"Alpha", "beta", "Blog", "Go"}, bookmarkNames(AllBookmarks(sampleTree())))
}

func TestAllFolders_PreOrder(t *testing.T) {
	var names []string
	for _, f := range AllFolders(sampleTree()) {
		names = append(names, f.Name)
	}

	assert.Equal(t, []string{"Personal", "Work", "Docs", "Specs"}, names)
}

func TestFavorites(t *testing.T) {
	root, err := ToggleFavorite(sampleTree(), 10)
	require.NoError(t, err)

	favs := Favorites(root)
	require.Len(t, favs, 1)
	assert.Equal(t, int64(10), favs[0].ID)
}

func TestCounts(t *testing.T) {
	folders, bookmarks := Counts(sampleTree())
	assert.Equal(t, 4, folders)
	assert.Equal(t, 4, bookmarks)
}

func TestFolderPath(t *testing.T) {
	path, err := FolderPath(sampleTree(), 4)
	require.NoError(t, err)

	var names []string
	for _, f := range path {
		names = append(names, f.Name)
	}

	assert.Equal(t, []string{"Work", "Docs", "Specs"}, names)

	_, err = FolderPath(sampleTree(), 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSearch(t *testing.T) {
	assert.Equal(t, []string{"Blog"}, bookmarkNames(Search(sampleTree(), "BLOG")))
	assert.Equal(t, []string{"Alpha", "beta", "Blog", "Go"}, bookmarkNames(Search(sampleTree(), "example.com")))
	assert.Empty(t, Search(sampleTree(), "   "))
}
