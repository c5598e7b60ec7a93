// Package models defines the bookmark tree entities and the request and
// response shapes exchanged with the bookmark server.
package models

import (
	"fmt"
	"time"
)

// ItemKind distinguishes folders from bookmarks. Folder and bookmark ids
// live in separate id spaces, so every lookup needs both the id and kind.
type ItemKind string

const (
	KindFolder   ItemKind = "folder"
	KindBookmark ItemKind = "bookmark"
)

// Valid reports whether k is one of the known kinds.
func (k ItemKind) Valid() bool {
	return k == KindFolder || k == KindBookmark
}

// ParseKind converts a user-supplied string into an ItemKind.
func ParseKind(s string) (ItemKind, error) {
	k := ItemKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown item kind %q", s)
	}

	return k, nil
}

// Bookmark is a single saved link. FolderID is nil for root-level
// bookmarks.
type Bookmark struct {
	ID         int64     `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	URL        string    `json:"url" yaml:"url"`
	Favicon    string    `json:"favicon,omitempty" yaml:"favicon,omitempty"`
	FaviconURL string    `json:"favicon_url,omitempty" yaml:"favicon_url,omitempty"`
	Created    time.Time `json:"created" yaml:"created"`
	FolderID   *int64    `json:"folder_id" yaml:"folder_id"`
	Favorite   bool      `json:"favorite" yaml:"favorite"`
}

// Folder is the flat folder record. ParentID is nil for top-level folders.
type Folder struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	ParentID *int64 `json:"parent_id" yaml:"parent_id"`
}

// FolderNode is a folder together with its ordered sub-folders and
// bookmarks. The embedded Folder fields are flattened on the wire.
type FolderNode struct {
	Folder    `yaml:",inline"`
	Children  []FolderNode `json:"children" yaml:"children"`
	Bookmarks []Bookmark   `json:"bookmarks" yaml:"bookmarks"`
}

// RootItems is the entry point of the tree.
//
// A RootItems value published by the cache is treated as immutable.
// Functions in the tree package never write through its slices; they
// return new values that share untouched subtrees.
type RootItems struct {
	RootFolders   []FolderNode `json:"root_folders" yaml:"root_folders"`
	RootBookmarks []Bookmark   `json:"root_bookmarks" yaml:"root_bookmarks"`
}

// ID returns a pointer to a copy of v, for populating nullable parent
// fields.
func ID(v int64) *int64 {
	return &v
}

// SameParent reports whether two nullable parent ids refer to the same
// location. Two nils both mean the root.
func SameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}

// ParentString formats a nullable parent id for logs and messages.
func ParentString(p *int64) string {
	if p == nil {
		return "root"
	}

	return fmt.Sprintf("%d", *p)
}

// CreateFolderRequest is the body of POST /create-folder.
type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// CreateBookmarkRequest is the body of POST /create-bookmark.
type CreateBookmarkRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	FolderID *int64 `json:"folder_id"`
}

// CreatedResponse carries the server-assigned id of a new item.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// UpdateFolderRequest is the body of POST /update-folder.
type UpdateFolderRequest struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// UpdateBookmarkRequest is the body of POST /update-bookmark.
type UpdateBookmarkRequest struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	FolderID *int64 `json:"folder_id"`
}

// MoveRequest is the body of POST /move and POST /move-to-root.
type MoveRequest struct {
	ItemType       ItemKind `json:"item_type"`
	ItemID         int64    `json:"item_id"`
	TargetFolderID *int64   `json:"target_folder_id"`
}
