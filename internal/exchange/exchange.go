// Package exchange moves bookmark trees in and out of files: Netscape
// bookmark HTML as written by browsers, and YAML.
package exchange

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/alexjbarnes/marksync/internal/models"
)

// ErrNoBookmarks is returned when a file holds no bookmark list.
var ErrNoBookmarks = errors.New("no bookmark list found")

// Format is a bookmark file format.
type Format string

const (
	FormatHTML Format = "html"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatHTML, FormatYAML:
		return f, nil
	}

	return "", fmt.Errorf("unknown format %q (want html or yaml)", s)
}

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}

	return "", false
}

// Parse reads a detached tree in the given format.
func Parse(f Format, r io.Reader) (models.RootItems, error) {
	switch f {
	case FormatHTML:
		return ParseHTML(r)
	case FormatYAML:
		return ParseYAML(r)
	}

	return models.RootItems{}, fmt.Errorf("unknown format %q", f)
}

// Export writes root in the given format.
func Export(f Format, w io.Writer, root models.RootItems) error {
	switch f {
	case FormatHTML:
		return ExportHTML(w, root)
	case FormatYAML:
		return ExportYAML(w, root)
	}

	return fmt.Errorf("unknown format %q", f)
}
