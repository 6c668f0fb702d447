package docx

import "encoding/xml"

// documentXML represents the structure of word/document.xml
type documentXML struct {
	XMLName xml.Name `xml:"document"`
	Body    *bodyXML `xml:"body"`
}

// bodyXML keeps paragraphs and tables in document order so each table can be
// paired with the paragraph that introduces it.
type bodyXML struct {
	Elements []bodyElement
}

// bodyElement is a paragraph or a table.
type bodyElement struct {
	Paragraph *paragraphXML
	Table     *tableXML
}

// UnmarshalXML decodes the body's direct children in order.
func (b *bodyXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				var p paragraphXML
				if err := d.DecodeElement(&p, &el); err != nil {
					return err
				}
				b.Elements = append(b.Elements, bodyElement{Paragraph: &p})
			case "tbl":
				var t tableXML
				if err := d.DecodeElement(&t, &el); err != nil {
					return err
				}
				b.Elements = append(b.Elements, bodyElement{Table: &t})
			case "sdt":
				// Content controls wrap ordinary body content.
				var inner struct {
					Content bodyXML `xml:"sdtContent"`
				}
				if err := d.DecodeElement(&inner, &el); err != nil {
					return err
				}
				b.Elements = append(b.Elements, inner.Content.Elements...)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if el.Name == start.Name {
				return nil
			}
		}
	}
}

// paragraphXML represents a paragraph element (<w:p>).
type paragraphXML struct {
	XMLName    xml.Name       `xml:"p"`
	Runs       []runXML       `xml:"r"`
	Hyperlinks []hyperlinkXML `xml:"hyperlink"`
}

// runXML represents a text run (<w:r>).
type runXML struct {
	XMLName xml.Name   `xml:"r"`
	Text    []textXML  `xml:"t"`
	Tabs    []tabXML   `xml:"tab"`
	Breaks  []breakXML `xml:"br"`
}

// textXML represents text content (<w:t>).
type textXML struct {
	XMLName xml.Name `xml:"t"`
	Value   string   `xml:",chardata"`
}

// tabXML represents a tab character.
type tabXML struct {
	XMLName xml.Name `xml:"tab"`
}

// breakXML represents a line break.
type breakXML struct {
	XMLName xml.Name `xml:"br"`
	Type    string   `xml:"type,attr"`
}

// hyperlinkXML represents a hyperlink, whose runs carry visible text.
type hyperlinkXML struct {
	Runs []runXML `xml:"r"`
}

// tableXML represents a table (<w:tbl>).
type tableXML struct {
	XMLName xml.Name      `xml:"tbl"`
	Grid    tableGridXML  `xml:"tblGrid"`
	Rows    []tableRowXML `xml:"tr"`
}

// tableGridXML represents table grid definition.
type tableGridXML struct {
	Cols []gridColXML `xml:"gridCol"`
}

// gridColXML represents a grid column.
type gridColXML struct {
	W string `xml:"w,attr"`
}

// tableRowXML represents a table row (<w:tr>).
type tableRowXML struct {
	XMLName    xml.Name       `xml:"tr"`
	Properties rowPropsXML    `xml:"trPr"`
	Cells      []tableCellXML `xml:"tc"`
}

// rowPropsXML represents row properties.
type rowPropsXML struct {
	GridBefore valXML `xml:"gridBefore"` // leading grid columns with no cell
}

// valXML is an element whose only payload is w:val.
type valXML struct {
	Val string `xml:"val,attr"`
}

// tableCellXML represents a table cell (<w:tc>).
type tableCellXML struct {
	XMLName    xml.Name       `xml:"tc"`
	Properties cellPropsXML   `xml:"tcPr"`
	Paragraphs []paragraphXML `xml:"p"`
}

// cellPropsXML represents cell properties.
type cellPropsXML struct {
	GridSpan valXML     `xml:"gridSpan"`
	VMerge   vMergeXML  `xml:"vMerge"`
	Shading  shadingXML `xml:"shd"`
}

// vMergeXML represents vertical merge.
type vMergeXML struct {
	XMLName xml.Name `xml:"vMerge"`
	Val     string   `xml:"val,attr"` // "restart" or empty (continue)
}

// shadingXML represents cell shading.
type shadingXML struct {
	Val  string `xml:"val,attr"`
	Fill string `xml:"fill,attr"` // background color
}
