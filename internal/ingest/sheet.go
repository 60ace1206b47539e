package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Cell is one worksheet cell. Text is false for numbers, booleans, errors and
// blank cells, which never carry parameter blobs.
type Cell struct {
	Value string
	Text  bool
}

// Sheet is the first worksheet of a workbook with its header row split off.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]Cell
}

// Cell returns the cell at (row, col) of the data rows, or a blank cell when
// the position lies outside the sheet.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return Cell{}
	}
	return s.Rows[row][col]
}

// ReadSheet reads the first worksheet of an xlsx workbook. The sheet's header
// row must have at least minCols columns.
func ReadSheet(name string, r io.Reader, minCols int) (*Sheet, error) {
	const op = "read sheet"

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fileError(name, op, fmt.Errorf("invalid workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fileError(name, op, ErrEmptyFile)
	}
	sheetName := sheets[0]

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fileError(name, op, fmt.Errorf("invalid workbook: %w", err))
	}
	if len(rows) == 0 {
		return nil, fileError(name, op, ErrEmptyFile)
	}
	if len(rows[0]) < minCols {
		return nil, fileError(name, op, fmt.Errorf("%w: header has %d, need %d", ErrTooFewColumns, len(rows[0]), minCols))
	}

	sheet := &Sheet{
		Name:   sheetName,
		Header: rows[0],
		Rows:   make([][]Cell, 0, len(rows)-1),
	}

	for i, row := range rows[1:] {
		cells := make([]Cell, len(row))
		for j, v := range row {
			isText, err := textCell(f, sheetName, i+2, j+1, v)
			if err != nil {
				return nil, fileError(name, op, err)
			}
			cells[j] = Cell{Value: v, Text: isText}
		}
		sheet.Rows = append(sheet.Rows, cells)
	}

	return sheet, nil
}

// textCell reports whether the cell at the 1-based (row, col) holds a string.
func textCell(f *excelize.File, sheet string, row, col int, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false, err
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return false, err
	}
	switch typ {
	// CellTypeFormula is t="str": a formula whose cached result is a string.
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return true, nil
	default:
		return false, nil
	}
}
