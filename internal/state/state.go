// Package state persists the last good bookmark tree and the import
// ledger in a local bbolt database.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alexjbarnes/marksync/internal/models"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"
	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory (~/.marksync/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

var (
	appBucket     = []byte("app")
	importsBucket = []byte("imports")

	snapshotKey  = []byte("snapshot")
	checksumKey  = []byte("snapshot_xxh3")
	refreshedKey = []byte("refreshed_at")
)

// ErrCorruptSnapshot is returned when the stored snapshot does not match
// its checksum or cannot be decoded.
var ErrCorruptSnapshot = errors.New("stored snapshot is corrupt")

// Shared zstd encoder and decoder; both are safe for concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Snapshot is a stored tree and the time it was fetched from the server.
type Snapshot struct {
	Tree    models.RootItems
	SavedAt time.Time
}

// State wraps a bbolt database for all persistent application state.
type State struct {
	db *bolt.DB
}

// LoadAt opens a state database at the given path, creating it and its
// directory if they do not exist.
func LoadAt(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(appBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(importsBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// SaveSnapshot stores root as the last good tree, fetched at savedAt.
// The tree is stored as zstd-compressed JSON alongside an xxh3 checksum
// of the uncompressed bytes.
func (s *State) SaveSnapshot(root models.RootItems, savedAt time.Time) error {
	data, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	sum := make([]byte, 8)
	binary.BigEndian.PutUint64(sum, xxh3.Hash(data))

	stamp, err := savedAt.UTC().MarshalText()
	if err != nil {
		return fmt.Errorf("encoding snapshot time: %w", err)
	}

	compressed := zstdEncoder.EncodeAll(data, nil)

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(appBucket)
		if err := b.Put(snapshotKey, compressed); err != nil {
			return err
		}

		if err := b.Put(checksumKey, sum); err != nil {
			return err
		}

		return b.Put(refreshedKey, stamp)
	})
}

// LoadSnapshot returns the stored tree. ok is false when nothing has
// been stored. A stored tree that fails its checksum yields
// ErrCorruptSnapshot.
func (s *State) LoadSnapshot() (snap Snapshot, ok bool, err error) {
	var compressed, sum, stamp []byte

	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(appBucket)
		// Values are only valid for the life of the transaction.
		compressed = cloneBytes(b.Get(snapshotKey))
		sum = cloneBytes(b.Get(checksumKey))
		stamp = cloneBytes(b.Get(refreshedKey))

		return nil
	})
	if err != nil {
		return Snapshot{}, false, err
	}

	if compressed == nil {
		return Snapshot{}, false, nil
	}

	data, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: zstd: %w", ErrCorruptSnapshot, err)
	}

	if len(sum) != 8 || binary.BigEndian.Uint64(sum) != xxh3.Hash(data) {
		return Snapshot{}, false, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	if err := json.Unmarshal(data, &snap.Tree); err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	if stamp != nil {
		if err := snap.SavedAt.UnmarshalText(stamp); err != nil {
			return Snapshot{}, false, fmt.Errorf("%w: saved time: %w", ErrCorruptSnapshot, err)
		}
	}

	return snap, true, nil
}

// LastRefresh returns when the stored snapshot was fetched, or the zero
// time if none has been stored.
func (s *State) LastRefresh() time.Time {
	var t time.Time

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(refreshedKey)
		if v == nil {
			return nil
		}

		return t.UnmarshalText(v)
	})

	return t
}

// ContentSum returns the ledger checksum for an import file's contents.
func ContentSum(data []byte) uint64 {
	return xxh3.Hash(data)
}

// Imported reports whether a file at path with the given content sum
// has already been imported.
func (s *State) Imported(path string, sum uint64) bool {
	var found bool

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(importsBucket).Get([]byte(path))
		found = len(v) == 8 && binary.BigEndian.Uint64(v) == sum

		return nil
	})

	return found
}

// MarkImported records that the file at path with the given content sum
// has been imported.
func (s *State) MarkImported(path string, sum uint64) error {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, sum)

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(importsBucket).Put([]byte(path), v)
	})
}

// ImportCount returns the number of files in the import ledger.
func (s *State) ImportCount() int {
	count := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(importsBucket).Stats().KeyN
		return nil
	})

	return count
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	out := make([]byte, len(b))
	copy(out, b)

	return out
}

// DefaultPath returns ~/.marksync/state.db.
func DefaultPath() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(dir, ".marksync", "state.db"), nil
}
