package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func testDB(t *testing.T) *State {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := LoadAt(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTree() models.RootItems {
	return models.RootItems{
		RootFolders: []models.FolderNode{{
			Folder:   models.Folder{ID: 1, Name: "Work"},
			Children: []models.FolderNode{},
			Bookmarks: []models.Bookmark{{
				ID: 10, Name: "Go", URL: "https://go.dev", FolderID: models.ID(1), Favorite: true,
				Created: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			}},
		}},
		RootBookmarks: []models.Bookmark{{ID: 7, Name: "Alpha", URL: "https://a.example"}},
	}
}

// --- LoadAt / Close ---

func TestLoadAt_CreatesDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "state.db")
	s, err := LoadAt(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestLoadAt_ReopensExistingDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	saved := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s1, err := LoadAt(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.SaveSnapshot(sampleTree(), saved))
	require.NoError(t, s1.Close())

	s2, err := LoadAt(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	snap, ok, err := s2.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Work", snap.Tree.RootFolders[0].Name)
	assert.True(t, saved.Equal(snap.SavedAt))
}

// --- Snapshot ---

func TestLoadSnapshot_EmptyByDefault(t *testing.T) {
	s := testDB(t)

	_, ok, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, s.LastRefresh().IsZero())
}

func TestSaveSnapshot_RoundTrip(t *testing.T) {
	s := testDB(t)
	saved := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveSnapshot(sampleTree(), saved))

	snap, ok, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleTree(), snap.Tree)
	assert.True(t, saved.Equal(s.LastRefresh()))
}

func TestSaveSnapshot_Overwrite(t *testing.T) {
	s := testDB(t)

	require.NoError(t, s.SaveSnapshot(sampleTree(), time.Now()))
	require.NoError(t, s.SaveSnapshot(models.RootItems{
		RootFolders:   []models.FolderNode{},
		RootBookmarks: []models.Bookmark{},
	}, time.Now()))

	snap, ok, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, snap.Tree.RootFolders)
}

func TestLoadSnapshot_ChecksumMismatch(t *testing.T) {
	s := testDB(t)
	require.NoError(t, s.SaveSnapshot(sampleTree(), time.Now()))

	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(checksumKey, []byte{0, 0, 0, 0, 0, 0, 0, 1})
	}))

	_, ok, err := s.LoadSnapshot()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
	assert.ErrorContains(t, err, "checksum")
}

func TestLoadSnapshot_NotZstd(t *testing.T) {
	s := testDB(t)
	require.NoError(t, s.SaveSnapshot(sampleTree(), time.Now()))

	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(snapshotKey, []byte("plain text"))
	}))

	_, ok, err := s.LoadSnapshot()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestLoadSnapshot_MissingChecksum(t *testing.T) {
	s := testDB(t)
	require.NoError(t, s.SaveSnapshot(sampleTree(), time.Now()))

	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Delete(checksumKey)
	}))

	_, _, err := s.LoadSnapshot()
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

// --- Import ledger ---

func TestImported_Ledger(t *testing.T) {
	s := testDB(t)
	sum := ContentSum([]byte("<DL></DL>"))

	assert.False(t, s.Imported("drop/a.html", sum))
	require.NoError(t, s.MarkImported("drop/a.html", sum))
	assert.True(t, s.Imported("drop/a.html", sum))
	assert.Equal(t, 1, s.ImportCount())

	// Same path with new contents is a new import.
	assert.False(t, s.Imported("drop/a.html", ContentSum([]byte("<DL><DT></DL>"))))
	assert.False(t, s.Imported("drop/b.html", sum))
}

func TestContentSum_Stable(t *testing.T) {
	assert.Equal(t, ContentSum([]byte("x")), ContentSum([]byte("x")))
	assert.NotEqual(t, ContentSum([]byte("x")), ContentSum([]byte("y")))
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".marksync", "state.db"), p)
}
