package tree

import (
	"fmt"
	"strings"

	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Outline renders the tree as an indented text listing, one item per
// line. Folders end in a slash, favorites are prefixed with an asterisk.
func Outline(root models.RootItems) string {
	var sb strings.Builder
	writeOutline(&sb, root.RootFolders, root.RootBookmarks, 0)

	return sb.String()
}

func writeOutline(sb *strings.Builder, nodes []models.FolderNode, bookmarks []models.Bookmark, depth int) {
	indent := strings.Repeat("  ", depth)

	for _, n := range nodes {
		fmt.Fprintf(sb, "%s%s/ [%d]\n", indent, n.Name, n.ID)
		writeOutline(sb, n.Children, n.Bookmarks, depth+1)
	}

	for _, b := range bookmarks {
		star := ""
		if b.Favorite {
			star = "* "
		}

		fmt.Fprintf(sb, "%s%s%s <%s> [%d]\n", indent, star, b.Name, b.URL, b.ID)
	}
}

// DiffOp classifies a line of an outline diff.
type DiffOp int

const (
	DiffEqual DiffOp = iota
	DiffInsert
	DiffDelete
)

// DiffLine is one line of an outline diff, without its trailing newline.
type DiffLine struct {
	Op   DiffOp
	Text string
}

// DiffOutline compares the outlines of two trees line by line.
func DiffOutline(before, after models.RootItems) []DiffLine {
	dmp := diffmatchpatch.New()

	a, b, lines := dmp.DiffLinesToChars(Outline(before), Outline(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []DiffLine

	for _, d := range diffs {
		op := DiffEqual

		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = DiffInsert
		case diffmatchpatch.DiffDelete:
			op = DiffDelete
		case diffmatchpatch.DiffEqual:
		}

		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			out = append(out, DiffLine{Op: op, Text: strings.TrimSuffix(line, "\n")})
		}
	}

	return out
}

// FormatDiff renders diff lines with "+ ", "- " and "  " prefixes. Equal
// lines are omitted unless context is true.
func FormatDiff(lines []DiffLine, context bool) string {
	var sb strings.Builder

	for _, l := range lines {
		switch l.Op {
		case DiffInsert:
			sb.WriteString("+ ")
		case DiffDelete:
			sb.WriteString("- ")
		case DiffEqual:
			if !context {
				continue
			}

			sb.WriteString("  ")
		}

		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}

	return sb.String()
}

// Changed reports whether any line differs.
func Changed(lines []DiffLine) bool {
	for _, l := range lines {
		if l.Op != DiffEqual {
			return true
		}
	}

	return false
}
