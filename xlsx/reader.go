// Package xlsx reads schedule grids from XLSX (Office Open XML Spreadsheet)
// workbooks.
package xlsx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/karlla1220/meetgrid/model"
)

// Reader provides access to XLSX workbook content.
type Reader struct {
	name          string
	zipReader     *zip.ReadCloser
	archive       *zip.Reader
	workbook      *workbookXML
	sharedStrings []string
	styles        *stylesXML
	sheets        []*Sheet
	sheetRels     map[string]string // RID -> target path
}

// Open opens an XLSX file for reading.
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

// NewReader reads a workbook from any io.ReaderAt.
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
	r.sheetRels = make(map[string]string)
	if err := r.parseRelationships(); err != nil {
		return fmt.Errorf("parsing relationships: %w", err)
	}
	if err := r.parseWorkbook(); err != nil {
		return fmt.Errorf("parsing workbook: %w", err)
	}
	// Shared strings and styles are optional parts.
	_ = r.parseSharedStrings()
	_ = r.parseStyles()

	if err := r.parseWorksheets(); err != nil {
		return fmt.Errorf("parsing worksheets: %w", err)
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

func (r *Reader) parseRelationships() error {
	data, err := r.getFileContent("xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return err
	}
	for _, rel := range rels.Relationship {
		r.sheetRels[rel.ID] = rel.Target
	}
	return nil
}

func (r *Reader) parseWorkbook() error {
	data, err := r.getFileContent("xl/workbook.xml")
	if err != nil {
		return err
	}
	r.workbook = &workbookXML{}
	return xml.Unmarshal(data, r.workbook)
}

func (r *Reader) parseSharedStrings() error {
	data, err := r.getFileContent("xl/sharedStrings.xml")
	if err != nil {
		return err
	}
	var sst sharedStringsXML
	if err := xml.Unmarshal(data, &sst); err != nil {
		return err
	}
	r.sharedStrings = make([]string, len(sst.SI))
	for i, si := range sst.SI {
		r.sharedStrings[i] = joinRuns(si.T, si.R)
	}
	return nil
}

func joinRuns(t string, runs []rXML) string {
	if t != "" || len(runs) == 0 {
		return t
	}
	var sb strings.Builder
	for _, run := range runs {
		sb.WriteString(run.T)
	}
	return sb.String()
}

func (r *Reader) parseStyles() error {
	data, err := r.getFileContent("xl/styles.xml")
	if err != nil {
		return err
	}
	r.styles = &stylesXML{}
	return xml.Unmarshal(data, r.styles)
}

func (r *Reader) parseWorksheets() error {
	if r.workbook == nil {
		return fmt.Errorf("workbook not parsed")
	}

	for i, ref := range r.workbook.Sheets.Sheet {
		target := r.sheetRels[ref.RID]
		if target == "" {
			target = fmt.Sprintf("worksheets/sheet%d.xml", i+1)
		}
		target = strings.TrimPrefix(target, "/")
		if !strings.HasPrefix(target, "xl/") {
			target = "xl/" + target
		}

		data, err := r.getFileContent(target)
		if err != nil {
			continue
		}
		sheet, err := r.parseWorksheet(data, ref.Name, i)
		if err != nil {
			continue
		}
		r.sheets = append(r.sheets, sheet)
	}

	if len(r.sheets) == 0 {
		return fmt.Errorf("no worksheets found")
	}
	return nil
}

// parseWorksheet builds a dense grid and applies merged regions.
func (r *Reader) parseWorksheet(data []byte, name string, index int) (*Sheet, error) {
	var ws worksheetXML
	if err := xml.Unmarshal(data, &ws); err != nil {
		return nil, err
	}

	sheet := &Sheet{Name: name, Index: index}
	if ws.MergeCells != nil {
		for _, mc := range ws.MergeCells.MergeCell {
			startCol, startRow, endCol, endRow, err := ParseRangeRef(mc.Ref)
			if err != nil {
				continue
			}
			sheet.MergedRegions = append(sheet.MergedRegions, MergedRegion{
				StartRow: startRow, StartCol: startCol, EndRow: endRow, EndCol: endCol,
			})
		}
	}

	maxRow, maxCol := 0, -1
	for _, row := range ws.SheetData.Rows {
		if row.R > maxRow {
			maxRow = row.R
		}
		for _, c := range row.Cells {
			if col, _, err := ParseCellRef(c.R); err == nil && col > maxCol {
				maxCol = col
			}
		}
	}
	for _, mr := range sheet.MergedRegions {
		if mr.EndRow+1 > maxRow {
			maxRow = mr.EndRow + 1
		}
		if mr.EndCol > maxCol {
			maxCol = mr.EndCol
		}
	}

	sheet.Rows = make([][]Cell, maxRow)
	for i := range sheet.Rows {
		sheet.Rows[i] = make([]Cell, maxCol+1)
		for j := range sheet.Rows[i] {
			sheet.Rows[i][j] = Cell{Row: i, Col: j, MergeRows: 1, MergeCols: 1}
		}
	}

	for _, row := range ws.SheetData.Rows {
		for _, cx := range row.Cells {
			col, rowIdx, err := ParseCellRef(cx.R)
			if err != nil {
				continue
			}
			cell := sheet.Cell(rowIdx, col)
			if cell == nil {
				continue
			}
			cell.Value = r.cellValue(cx)
			cell.Fill = r.fillFor(cx.S)
		}
	}

	for _, mr := range sheet.MergedRegions {
		for row := mr.StartRow; row <= mr.EndRow; row++ {
			for col := mr.StartCol; col <= mr.EndCol; col++ {
				cell := sheet.Cell(row, col)
				if cell == nil {
					continue
				}
				cell.IsMerged = true
				if row == mr.StartRow && col == mr.StartCol {
					cell.IsMergeRoot = true
					cell.MergeRows = mr.EndRow - mr.StartRow + 1
					cell.MergeCols = mr.EndCol - mr.StartCol + 1
				}
			}
		}
	}
	return sheet, nil
}

func (r *Reader) cellValue(cx cellXML) string {
	switch cx.T {
	case "s":
		idx, err := strconv.Atoi(cx.V)
		if err == nil && idx >= 0 && idx < len(r.sharedStrings) {
			return r.sharedStrings[idx]
		}
		return ""
	case "b":
		if cx.V == "1" {
			return "TRUE"
		}
		return "FALSE"
	case "inlineStr":
		if cx.Is != nil {
			return joinRuns(cx.Is.T, cx.Is.R)
		}
		return ""
	case "str", "e":
		return cx.V
	default:
		return r.formatNumber(cx.V, cx.S)
	}
}

// formatNumber renders time-formatted numbers as HH:MM and leaves other
// numbers as stored.
func (r *Reader) formatNumber(value string, styleIndex int) string {
	if value == "" || r.styles == nil || r.styles.CellXfs == nil {
		return value
	}
	if styleIndex < 0 || styleIndex >= len(r.styles.CellXfs.Xf) {
		return value
	}
	fmtID := r.styles.CellXfs.Xf[styleIndex].NumFmtID
	isTime := builtinTimeFormats[fmtID]
	if !isTime && r.styles.NumFmts != nil {
		for _, nf := range r.styles.NumFmts.NumFmt {
			if nf.NumFmtID == fmtID {
				isTime = isTimeFormat(nf.FormatCode)
				break
			}
		}
	}
	if !isTime {
		return value
	}
	if clock, ok := formatDayFraction(value); ok {
		return clock
	}
	return value
}

// fillFor returns the solid fill colour of a cell style as RRGGBB.
func (r *Reader) fillFor(styleIndex int) string {
	if r.styles == nil || r.styles.CellXfs == nil || r.styles.Fills == nil {
		return ""
	}
	if styleIndex < 0 || styleIndex >= len(r.styles.CellXfs.Xf) {
		return ""
	}
	fillID := r.styles.CellXfs.Xf[styleIndex].FillID
	if fillID < 0 || fillID >= len(r.styles.Fills.Fill) {
		return ""
	}
	p := r.styles.Fills.Fill[fillID].Pattern
	if p.PatternType != "solid" {
		return ""
	}
	rgb := strings.ToUpper(p.FgColor.RGB)
	if len(rgb) == 8 {
		rgb = rgb[2:] // drop alpha
	}
	if len(rgb) != 6 || rgb == "FFFFFF" {
		return ""
	}
	return rgb
}

// Sheets returns the parsed worksheets.
func (r *Reader) Sheets() []*Sheet {
	return r.sheets
}

// Document converts every worksheet with content into a model.Table. The
// sheet name becomes the table context.
func (r *Reader) Document(sourceID string) (*model.Document, error) {
	doc := model.NewDocument(sourceID, r.name)
	for _, sheet := range r.sheets {
		if t := sheetToTable(sheet); t != nil {
			doc.AddTable(t)
		}
	}
	return doc, nil
}

// sheetToTable emits merge roots with their spans and a continuation cell
// for each row a vertical merge covers below its root. Trailing empty rows
// are dropped.
func sheetToTable(sheet *Sheet) *model.Table {
	last := -1
	for i, row := range sheet.Rows {
		for _, c := range row {
			if c.Value != "" {
				last = i
				break
			}
		}
	}
	if last < 0 {
		return nil
	}

	t := &model.Table{Context: sheet.Name}
	for rowIdx := 0; rowIdx <= last; rowIdx++ {
		var out model.Row
		for colIdx, c := range sheet.Rows[rowIdx] {
			if c.IsMerged && !c.IsMergeRoot {
				mr, ok := sheet.regionAt(rowIdx, colIdx)
				if ok && colIdx == mr.StartCol && rowIdx > mr.StartRow {
					out.Cells = append(out.Cells, model.Cell{
						Col:          colIdx,
						ColSpan:      mr.EndCol - mr.StartCol + 1,
						RowSpan:      1,
						Continuation: true,
						Marker:       c.Fill,
					})
				}
				continue
			}
			out.Cells = append(out.Cells, model.Cell{
				Text:    strings.TrimSpace(c.Value),
				Col:     colIdx,
				ColSpan: c.MergeCols,
				RowSpan: c.MergeRows,
				Marker:  c.Fill,
			})
		}
		t.Rows = append(t.Rows, out)
	}
	return t
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
