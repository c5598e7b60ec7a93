package exchange

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alexjbarnes/marksync/internal/models"
	"github.com/alexjbarnes/marksync/internal/tree"
	"golang.org/x/net/html"
)

const netscapeHeader = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file.
     It will be read and overwritten.
     DO NOT EDIT! -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
`

const (
	untitledFolder = "Untitled folder"
)

// ExportHTML writes root as a Netscape bookmark file, the format browsers
// import and export. Within each folder, sub-folders come before
// bookmarks.
func ExportHTML(w io.Writer, root models.RootItems) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(netscapeHeader)
	bw.WriteString("<DL><p>\n")
	writeHTMLList(bw, root.RootFolders, root.RootBookmarks, 1)
	bw.WriteString("</DL>\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing bookmark file: %w", err)
	}

	return nil
}

func writeHTMLList(bw *bufio.Writer, folders []models.FolderNode, bookmarks []models.Bookmark, depth int) {
	indent := strings.Repeat("\t", depth)

	for _, f := range folders {
		fmt.Fprintf(bw, "%s<DT><H3>%s</H3>\n", indent, html.EscapeString(f.Name))

		if len(f.Children) == 0 && len(f.Bookmarks) == 0 {
			continue
		}

		fmt.Fprintf(bw, "%s<DL><p>\n", indent)
		writeHTMLList(bw, f.Children, f.Bookmarks, depth+1)
		fmt.Fprintf(bw, "%s</DL><p>\n", indent)
	}

	for _, b := range bookmarks {
		fmt.Fprintf(bw, "%s<DT><A HREF=\"%s\"", indent, html.EscapeString(b.URL))

		if !b.Created.IsZero() {
			fmt.Fprintf(bw, " ADD_DATE=\"%d\"", b.Created.Unix())
		}

		if b.FaviconURL != "" {
			fmt.Fprintf(bw, " ICON_URI=\"%s\"", html.EscapeString(b.FaviconURL))
		}

		if b.Favicon != "" {
			fmt.Fprintf(bw, " ICON=\"%s\"", html.EscapeString(b.Favicon))
		}

		fmt.Fprintf(bw, ">%s</A>\n", html.EscapeString(b.Name))
	}
}

// ParseHTML reads a Netscape bookmark file into a detached tree. Ids in
// the result are local to the file, numbered from 1 per kind in
// document order; Import maps them to server ids.
func ParseHTML(r io.Reader) (models.RootItems, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return models.RootItems{}, fmt.Errorf("parsing bookmark file: %w", err)
	}

	list := findElement(doc, "dl")
	if list == nil {
		return models.RootItems{}, fmt.Errorf("parsing bookmark file: %w", ErrNoBookmarks)
	}

	p := &htmlParser{}
	folders, bookmarks := p.parseList(list, nil)

	return tree.Normalize(models.RootItems{
		RootFolders:   folders,
		RootBookmarks: bookmarks,
	}), nil
}

type htmlParser struct {
	folderSeq   int64
	bookmarkSeq int64
}

// parseList reads the entries of one <DL>. The HTML parser nests each
// folder's <DL> inside the <DT> that holds its <H3>, but some exporters
// close the <DT> early, leaving the <DL> as the next sibling; both
// shapes are accepted.
func (p *htmlParser) parseList(dl *html.Node, parent *int64) ([]models.FolderNode, []models.Bookmark) {
	folders := []models.FolderNode{}
	bookmarks := []models.Bookmark{}

	for c := dl.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}

		switch c.Data {
		case "p":
			// Stray <p> wrappers are transparent.
			f, b := p.parseList(c, parent)
			folders = append(folders, f...)
			bookmarks = append(bookmarks, b...)
		case "dt":
			if h3 := childElement(c, "h3"); h3 != nil {
				sub := childElement(c, "dl")
				if sub == nil {
					sub = nextListSibling(c)
				}

				folders = append(folders, p.parseFolder(h3, sub, parent))

				continue
			}

			if a := childElement(c, "a"); a != nil {
				if b, ok := p.parseBookmark(a, parent); ok {
					bookmarks = append(bookmarks, b)
				}
			}
		}
	}

	return folders, bookmarks
}

func (p *htmlParser) parseFolder(h3, list *html.Node, parent *int64) models.FolderNode {
	p.folderSeq++
	id := p.folderSeq

	name := textContent(h3)
	if name == "" {
		name = untitledFolder
	}

	node := models.FolderNode{
		Folder:    models.Folder{ID: id, Name: name, ParentID: parent},
		Children:  []models.FolderNode{},
		Bookmarks: []models.Bookmark{},
	}

	if list != nil {
		node.Children, node.Bookmarks = p.parseList(list, models.ID(id))
	}

	return node
}

func (p *htmlParser) parseBookmark(a *html.Node, folderID *int64) (models.Bookmark, bool) {
	href := strings.TrimSpace(attr(a, "href"))
	if href == "" {
		return models.Bookmark{}, false
	}

	p.bookmarkSeq++

	b := models.Bookmark{
		ID:         p.bookmarkSeq,
		Name:       textContent(a),
		URL:        href,
		FaviconURL: attr(a, "icon_uri"),
		Favicon:    attr(a, "icon"),
		FolderID:   folderID,
	}

	if b.Name == "" {
		b.Name = href
	}

	if secs, err := strconv.ParseInt(attr(a, "add_date"), 10, 64); err == nil && secs > 0 {
		b.Created = time.Unix(secs, 0).UTC()
	}

	return b, true
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}

	return nil
}

func childElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
	}

	return nil
}

// nextListSibling returns the <DL> that directly follows n, skipping
// whitespace and <p>. It stops at the next <DT>.
func nextListSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode {
			continue
		}

		switch s.Data {
		case "dl":
			return s
		case "p":
			continue
		}

		return nil
	}

	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}

	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(sb.String()), " ")
}
