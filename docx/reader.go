// Package docx reads schedule tables from DOCX (Office Open XML) documents.
package docx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/karlla1220/meetgrid/model"
)

// Reader provides access to DOCX document content.
type Reader struct {
	name      string
	zipReader *zip.ReadCloser
	archive   *zip.Reader
	document  *documentXML
}

// Open opens a DOCX file for reading.
func Open(filename string) (*Reader, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	r := &Reader{name: filepath.Base(filename), zipReader: zr, archive: &zr.Reader}
	if err := r.load(); err != nil {
		zr.Close()
		return nil, err
	}
	return r, nil
}

// NewReader reads a DOCX held in memory or any other io.ReaderAt.
func NewReader(ra io.ReaderAt, size int64, name string) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}
	r := &Reader{name: name, archive: zr}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases resources associated with the Reader.
func (r *Reader) Close() error {
	if r.zipReader != nil {
		err := r.zipReader.Close()
		r.zipReader = nil
		return err
	}
	return nil
}

func (r *Reader) load() error {
	data, err := r.getFileContent("word/document.xml")
	if err != nil {
		return fmt.Errorf("missing required file: %w", err)
	}
	r.document = &documentXML{}
	if err := xml.Unmarshal(data, r.document); err != nil {
		return fmt.Errorf("unmarshaling document.xml: %w", err)
	}
	return nil
}

// getFileContent reads the content of a file from the ZIP archive.
func (r *Reader) getFileContent(name string) ([]byte, error) {
	for _, f := range r.archive.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("file not found: %s", name)
}

// Document converts the body into a model.Document. Each table's Context is
// the last non-empty paragraph seen before it.
func (r *Reader) Document(sourceID string) (*model.Document, error) {
	if r.document == nil || r.document.Body == nil {
		return nil, fmt.Errorf("document not parsed")
	}

	doc := model.NewDocument(sourceID, r.name)
	var lastPara string
	for _, el := range r.document.Body.Elements {
		switch {
		case el.Paragraph != nil:
			text := strings.TrimSpace(paragraphText(*el.Paragraph))
			if text == "" {
				continue
			}
			doc.Paragraphs = append(doc.Paragraphs, text)
			lastPara = text
		case el.Table != nil:
			t := convertTable(*el.Table)
			t.Context = lastPara
			doc.AddTable(t)
		}
	}
	return doc, nil
}

// ReadDocument opens filename and returns its model.Document.
func ReadDocument(filename, sourceID string) (*model.Document, error) {
	r, err := Open(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Document(sourceID)
}
