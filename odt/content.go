package odt

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// ODF XML namespaces
const (
	nsOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsTable  = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	nsText   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
)

// automaticStylesXML is <office:automatic-styles> of content.xml.
type automaticStylesXML struct {
	Styles []styleXML `xml:"style"`
}

// styleXML is a <style:style>; only cell backgrounds matter here.
type styleXML struct {
	Name      string        `xml:"name,attr"`
	Family    string        `xml:"family,attr"`
	CellProps *cellPropsXML `xml:"table-cell-properties"`
}

type cellPropsXML struct {
	BackgroundColor string `xml:"background-color,attr"`
}

// tableXML represents a table (<table:table>).
type tableXML struct {
	Name       string   `xml:"name,attr"`
	HeaderRows []rowXML `xml:"table-header-rows>table-row"`
	Rows       []rowXML `xml:"table-row"`
	RowGroups  []rowXML `xml:"table-rows>table-row"`
}

// allRows returns header rows first, then body rows in document order.
func (t tableXML) allRows() []rowXML {
	rows := make([]rowXML, 0, len(t.HeaderRows)+len(t.Rows)+len(t.RowGroups))
	rows = append(rows, t.HeaderRows...)
	rows = append(rows, t.Rows...)
	return append(rows, t.RowGroups...)
}

// rowXML represents a table row (<table:table-row>).
type rowXML struct {
	Repeated string `xml:"number-rows-repeated,attr"`
	// Cells keeps table-cell and covered-table-cell elements in order.
	Cells []cellXML `xml:",any"`
}

// cellXML is a <table:table-cell> or a <table:covered-table-cell>.
type cellXML struct {
	XMLName     xml.Name
	StyleName   string         `xml:"style-name,attr"`
	ColsSpanned string         `xml:"number-columns-spanned,attr"`
	RowsSpanned string         `xml:"number-rows-spanned,attr"`
	Repeated    string         `xml:"number-columns-repeated,attr"`
	Paragraphs  []paragraphXML `xml:"p"`
}

func (c cellXML) covered() bool {
	return c.XMLName.Local == "covered-table-cell"
}

// text joins the cell's non-empty paragraphs with newlines.
func (c cellXML) text() string {
	parts := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		if t := strings.TrimSpace(p.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// paragraphXML is a <text:p> or <text:h> flattened to text. Spans are
// inlined, <text:line-break> becomes a newline and <text:s> its spaces.
type paragraphXML struct {
	Text string
}

// UnmarshalXML implements xml.Unmarshaler.
func (p *paragraphXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "line-break":
				sb.WriteString("\n")
			case "tab":
				sb.WriteString("\t")
			case "s":
				sb.WriteString(strings.Repeat(" ", attrInt(t, "c", 1)))
			}
			depth++
		case xml.EndElement:
			if depth == 0 {
				p.Text = sb.String()
				return nil
			}
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}
}

func attrInt(el xml.StartElement, local string, def int) int {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return atoiOr(a.Value, def)
		}
	}
	return def
}

func atoiOr(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return def
}
