package exchange

import (
	"errors"
	"fmt"
	"io"

	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/alexjbarnes/marksync/internal/tree"
	"gopkg.in/yaml.v3"
)

// ExportYAML writes root as a YAML document.
func ExportYAML(w io.Writer, root models.RootItems) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}

	return enc.Close()
}

// ParseYAML reads a tree written by ExportYAML. Unknown keys are
// rejected so typos do not silently drop data.
func ParseYAML(r io.Reader) (models.RootItems, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var root models.RootItems
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return models.RootItems{}, fmt.Errorf("parsing yaml: %w", ErrNoBookmarks)
		}

		return models.RootItems{}, fmt.Errorf("parsing yaml: %w", err)
	}

	return tree.Normalize(root), nil
}
