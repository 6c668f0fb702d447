package model

// Document is a tabular source document after format decoding.
type Document struct {
	SourceID   string   // caller-assigned identity of the source
	Name       string   // file name or other human label
	Tables     []*Table // tables in document order
	Paragraphs []string // free text outside tables, in document order
}

// NewDocument creates an empty document.
func NewDocument(sourceID, name string) *Document {
	return &Document{
		SourceID: sourceID,
		Name:     name,
	}
}

// AddTable appends t and assigns its index.
func (d *Document) AddTable(t *Table) {
	t.Index = len(d.Tables)
	d.Tables = append(d.Tables, t)
}

// RowCount returns the total number of table rows across the document.
func (d *Document) RowCount() int {
	n := 0
	for _, t := range d.Tables {
		n += t.RowCount()
	}
	return n
}
