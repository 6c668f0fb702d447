// Package format detects which reader handles a schedule source file.
package format

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is a supported source document format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// DOCX is a Word document; most schedules arrive this way.
	DOCX
	// XLSX is an Excel workbook.
	XLSX
	// HTML is a saved web page containing a table.
	HTML
	// ODT is an OpenDocument text document.
	ODT
)

const odtMimetype = "application/vnd.oasis.opendocument.text"

func (f Format) String() string {
	switch f {
	case DOCX:
		return "DOCX"
	case XLSX:
		return "XLSX"
	case HTML:
		return "HTML"
	case ODT:
		return "ODT"
	default:
		return "Unknown"
	}
}

// Detect determines the format from the file name extension.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return DOCX
	case ".xlsx":
		return XLSX
	case ".html", ".htm":
		return HTML
	case ".odt":
		return ODT
	default:
		return Unknown
	}
}

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// DetectFromReader inspects content. ZIP archives are told apart by their
// part names; anything that starts like markup is HTML.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	head := make([]byte, 512)
	n, err := r.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	head = head[:n]

	if bytes.HasPrefix(head, zipMagic) {
		zr, err := zip.NewReader(r, size)
		if err != nil {
			return Unknown, err
		}
		for _, f := range zr.File {
			switch {
			case strings.HasPrefix(f.Name, "word/"):
				return DOCX, nil
			case strings.HasPrefix(f.Name, "xl/"):
				return XLSX, nil
			case f.Name == "mimetype" && isODT(f):
				return ODT, nil
			}
		}
		return Unknown, nil
	}

	if looksLikeHTML(head) {
		return HTML, nil
	}
	return Unknown, nil
}

func isODT(f *zip.File) bool {
	rc, err := f.Open()
	if err != nil {
		return false
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, 128))
	return err == nil && strings.TrimSpace(string(data)) == odtMimetype
}

func looksLikeHTML(data []byte) bool {
	upper := strings.ToUpper(strings.TrimSpace(string(data)))
	switch {
	case strings.HasPrefix(upper, "<!DOCTYPE HTML"), strings.HasPrefix(upper, "<HTML"):
		return true
	case strings.HasPrefix(upper, "<?XML"):
		return strings.Contains(upper, "<HTML")
	}
	// Fragments pasted from mail clients often start at the table.
	return strings.HasPrefix(upper, "<TABLE") || strings.HasPrefix(upper, "<META")
}

// DetectFile uses the extension when it is known and falls back to content.
func DetectFile(path string) (Format, error) {
	if f := Detect(path); f != Unknown {
		return f, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return Unknown, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Unknown, fmt.Errorf("stat %s: %w", path, err)
	}
	return DetectFromReader(file, info.Size())
}
