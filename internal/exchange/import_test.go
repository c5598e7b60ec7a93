package exchange

import (
	"context"
	"fmt"
	"sync"
	"testing"

	apperr "github.com/alexjbarnes/marksync/internal/errors"
	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createCall struct {
	kind   models.ItemKind
	name   string
	parent *int64
}

type fakeCreator struct {
	mu     sync.Mutex
	next   int64
	calls  []createCall
	reject map[string]error
}

func newFakeCreator() *fakeCreator {
	return &fakeCreator{next: 100, reject: map[string]error{}}
}

func (f *fakeCreator) create(kind models.ItemKind, name string, parent *int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.reject[name]; ok {
		return 0, err
	}

	f.next++
	f.calls = append(f.calls, createCall{kind: kind, name: name, parent: parent})

	return f.next, nil
}

func (f *fakeCreator) NewFolder(_ context.Context, name string, parentID *int64) (int64, error) {
	return f.create(models.KindFolder, name, parentID)
}

func (f *fakeCreator) NewBookmark(_ context.Context, name, _ string, folderID *int64) (int64, error) {
	return f.create(models.KindBookmark, name, folderID)
}

func (f *fakeCreator) snapshot() []createCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]createCall(nil), f.calls...)
}

func importTree() models.RootItems {
	return models.RootItems{
		RootFolders: []models.FolderNode{{
			Folder: models.Folder{ID: 1, Name: "Work"},
			Children: []models.FolderNode{{
				Folder: models.Folder{ID: 2, Name: "Docs", ParentID: models.ID(1)},
				Children: []models.FolderNode{{
					Folder: models.Folder{ID: 3, Name: "Specs", ParentID: models.ID(2)},
				}},
			}},
			Bookmarks: []models.Bookmark{{ID: 1, Name: "Go", URL: "https://go.dev", FolderID: models.ID(1)}},
		}},
		RootBookmarks: []models.Bookmark{{ID: 2, Name: "Alpha", URL: "https://a.example"}},
	}
}

func TestImport_ParentsBeforeChildren(t *testing.T) {
	c := newFakeCreator()

	res, err := Import(context.Background(), c, importTree(), nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Folders: 3, Bookmarks: 2}, res)

	assert.Equal(t, []createCall{
		{kind: models.KindFolder, name: "Work", parent: nil},
		{kind: models.KindFolder, name: "Docs", parent: models.ID(101)},
		{kind: models.KindFolder, name: "Specs", parent: models.ID(102)},
		{kind: models.KindBookmark, name: "Go", parent: models.ID(101)},
		{kind: models.KindBookmark, name: "Alpha", parent: nil},
	}, c.snapshot())
}

func TestImport_IntoFolder(t *testing.T) {
	c := newFakeCreator()

	_, err := Import(context.Background(), c, models.RootItems{
		RootBookmarks: []models.Bookmark{{Name: "Alpha", URL: "https://a.example"}},
	}, models.ID(9))
	require.NoError(t, err)

	calls := c.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(9), *calls[0].parent)
}

func TestImport_SkipsInvalid(t *testing.T) {
	c := newFakeCreator()
	c.reject["Docs"] = fmt.Errorf("%w: name too long", apperr.ErrInvalidInput)
	c.reject["Alpha"] = fmt.Errorf("%w: url: must be a valid URL", apperr.ErrInvalidInput)

	res, err := Import(context.Background(), c, importTree(), nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Folders: 1, Bookmarks: 1, Skipped: 2}, res)

	for _, call := range c.snapshot() {
		assert.NotEqual(t, "Specs", call.name, "contents of a skipped folder are not attempted")
	}
}

func TestImport_StopsOnRemoteFailure(t *testing.T) {
	c := newFakeCreator()
	c.reject["Specs"] = fmt.Errorf("sending request: %w", apperr.ErrNetworkFailure)

	res, err := Import(context.Background(), c, importTree(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetworkFailure)
	assert.Contains(t, err.Error(), `"Specs"`)
	assert.Equal(t, Result{Folders: 2}, res)
}
