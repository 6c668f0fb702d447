// Package odt reads schedule tables from OpenDocument text (ODT) documents.
package odt

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/karlla1220/meetgrid/model"
)

// Reader provides access to ODT document content.
type Reader struct {
	name      string
	zipReader *zip.ReadCloser
	archive   *zip.Reader
	content   []byte
}

// Open opens an ODT file for reading.
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

// NewReader reads an ODT held in memory or any other io.ReaderAt.
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
	data, err := r.getFileContent("content.xml")
	if err != nil {
		return fmt.Errorf("missing required file: %w", err)
	}
	r.content = data
	return nil
}

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

// Document walks content.xml and converts it into a model.Document. Cell
// background colours come from the automatic styles, which precede the
// body. Each table's Context is the last non-empty paragraph before it.
func (r *Reader) Document(sourceID string) (*model.Document, error) {
	if r.content == nil {
		return nil, fmt.Errorf("document not parsed")
	}

	doc := model.NewDocument(sourceID, r.name)
	markers := map[string]string{}
	var lastPara string

	dec := xml.NewDecoder(bytes.NewReader(r.content))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing content.xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch {
		case start.Name.Space == nsOffice && start.Name.Local == "automatic-styles":
			var styles automaticStylesXML
			if err := dec.DecodeElement(&styles, &start); err != nil {
				return nil, fmt.Errorf("parsing automatic styles: %w", err)
			}
			for k, v := range cellMarkers(styles) {
				markers[k] = v
			}
		case start.Name.Space == nsText && (start.Name.Local == "p" || start.Name.Local == "h"):
			var p paragraphXML
			if err := dec.DecodeElement(&p, &start); err != nil {
				return nil, fmt.Errorf("parsing paragraph: %w", err)
			}
			text := strings.TrimSpace(p.Text)
			if text == "" {
				continue
			}
			doc.Paragraphs = append(doc.Paragraphs, text)
			lastPara = text
		case start.Name.Space == nsTable && start.Name.Local == "table":
			var tbl tableXML
			if err := dec.DecodeElement(&tbl, &start); err != nil {
				return nil, fmt.Errorf("parsing table %q: %w", tbl.Name, err)
			}
			t := convertTable(tbl, markers)
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
