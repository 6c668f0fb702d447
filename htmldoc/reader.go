// Package htmldoc reads schedule tables from HTML pages.
package htmldoc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/karlla1220/meetgrid/model"
)

// Reader provides access to HTML document content.
type Reader struct {
	name       string
	doc        *html.Node
	tables     []*model.Table
	paragraphs []string
}

// Open opens an HTML file for reading.
func Open(filename string) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return OpenReader(f, filepath.Base(filename), "")
}

// OpenReader parses HTML from r. contentType, when known, guides charset
// detection; otherwise the page's meta tags and byte content decide.
func OpenReader(r io.Reader, name, contentType string) (*Reader, error) {
	utf8, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}
	doc, err := html.Parse(utf8)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	reader := &Reader{name: name, doc: doc}
	var last string
	reader.walk(doc, &last)
	return reader, nil
}

// Close releases resources associated with the Reader.
func (r *Reader) Close() error {
	return nil
}

// walk visits nodes in document order, remembering the latest block of
// text so each table gets the paragraph that introduces it.
func (r *Reader) walk(n *html.Node, last *string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "table":
			t := parseTable(n)
			t.Context = *last
			if caption := findElement(n, "caption"); caption != nil {
				if text := getTextContent(caption); text != "" {
					t.Context = text
				}
			}
			t.Index = len(r.tables)
			r.tables = append(r.tables, t)
			return
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li":
			if text := collapse(getTextContent(n)); text != "" {
				r.paragraphs = append(r.paragraphs, text)
				*last = text
			}
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c, last)
	}
}

// Document returns the page's tables and paragraphs as a model.Document.
func (r *Reader) Document(sourceID string) (*model.Document, error) {
	doc := model.NewDocument(sourceID, r.name)
	for _, t := range r.tables {
		doc.AddTable(t)
	}
	doc.Paragraphs = append(doc.Paragraphs, r.paragraphs...)
	return doc, nil
}

// ReadDocument opens filename and returns its model.Document.
func ReadDocument(filename, sourceID string) (*model.Document, error) {
	r, err := Open(filename)
	if err != nil {
		return nil, err
	}
	return r.Document(sourceID)
}

// parseTable places cells on the grid. HTML omits cells covered by a rowspan
// from later rows, so covered positions are tracked per row and filled with
// continuation placeholders.
func parseTable(tableNode *html.Node) *model.Table {
	var trs []*html.Node
	collectRows(tableNode, &trs)

	table := &model.Table{Rows: make([]model.Row, len(trs))}
	covered := make(map[model.GridPos]bool)

	for rowIdx, tr := range trs {
		col := 0
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
				continue
			}
			for covered[model.GridPos{Row: rowIdx, Col: col}] {
				col++
			}
			cell := model.Cell{
				Text:    getTextContent(c),
				Col:     col,
				ColSpan: spanAttr(c, "colspan"),
				RowSpan: spanAttr(c, "rowspan"),
				Marker:  background(c),
			}
			if cell.RowSpan > len(trs)-rowIdx {
				cell.RowSpan = len(trs) - rowIdx
			}
			table.Rows[rowIdx].Cells = append(table.Rows[rowIdx].Cells, cell)

			for dr := 1; dr < cell.RowSpan; dr++ {
				for dc := 0; dc < cell.ColSpan; dc++ {
					covered[model.GridPos{Row: rowIdx + dr, Col: col + dc}] = true
				}
				below := &table.Rows[rowIdx+dr]
				below.Cells = append(below.Cells, model.Cell{
					Col: col, ColSpan: cell.ColSpan, RowSpan: 1, Continuation: true, Marker: cell.Marker,
				})
			}
			col += cell.ColSpan
		}
	}

	for i := range table.Rows {
		cells := table.Rows[i].Cells
		sort.SliceStable(cells, func(a, b int) bool { return cells[a].Col < cells[b].Col })
	}
	return table
}

// collectRows gathers tr elements of this table, skipping nested tables.
func collectRows(n *html.Node, out *[]*html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "tr":
			*out = append(*out, c)
		case "thead", "tbody", "tfoot":
			collectRows(c, out)
		}
	}
}

func spanAttr(n *html.Node, key string) int {
	for _, attr := range n.Attr {
		if attr.Key == key {
			if v, err := strconv.Atoi(strings.TrimSpace(attr.Val)); err == nil && v > 0 {
				return v
			}
		}
	}
	return 1
}

// background reads bgcolor or a background colour from the style attribute
// and returns upper-case RRGGBB.
func background(n *html.Node) string {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "bgcolor":
			return normalizeHex(attr.Val)
		case "style":
			for _, decl := range strings.Split(attr.Val, ";") {
				prop, val, ok := strings.Cut(decl, ":")
				if !ok {
					continue
				}
				prop = strings.ToLower(strings.TrimSpace(prop))
				if prop == "background" || prop == "background-color" {
					for _, field := range strings.Fields(val) {
						if hex := normalizeHex(field); hex != "" {
							return hex
						}
					}
				}
			}
		}
	}
	return ""
}

func normalizeHex(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "#") {
		return ""
	}
	v = strings.ToUpper(v[1:])
	if len(v) == 3 {
		v = string([]byte{v[0], v[0], v[1], v[1], v[2], v[2]})
	}
	if len(v) != 6 || v == "FFFFFF" {
		return ""
	}
	if _, err := strconv.ParseUint(v, 16, 32); err != nil {
		return ""
	}
	return v
}

// findElement finds the first element with the given tag name.
func findElement(n *html.Node, tagName string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tagName {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findElement(c, tagName); result != nil {
			return result
		}
	}
	return nil
}

// getTextContent extracts text, turning <br> and block ends into newlines.
func getTextContent(n *html.Node) string {
	var sb strings.Builder
	getTextContentRecursive(n, &sb)
	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func getTextContentRecursive(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return
		case "br":
			sb.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		getTextContentRecursive(c, sb)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "li":
			sb.WriteString("\n")
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
