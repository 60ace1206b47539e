// Package report renders run results as xlsx workbooks.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/tablecfg/internal/core/diff"
	"github.com/JonMunkholm/tablecfg/internal/core/limits"
	"github.com/JonMunkholm/tablecfg/internal/core/tables"
)

const (
	ClearSheet      = "ClearResult"
	ComparisonSheet = "Comparison"
	NoticeSheet     = "Warnings"

	ClearFileName      = "clear_result.xlsx"
	ComparisonFileName = "comparison_result.xlsx"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Style controls the presentation of the comparison sheet.
type Style struct {
	ColumnWidth float64
	FlagColor   string // hex RGB without '#'
}

// DefaultStyle returns the standard comparison presentation.
func DefaultStyle() Style {
	return Style{ColumnWidth: 17, FlagColor: "F4CCCC"}
}

// Notice is a problem that did not stop the run, listed on the Warnings
// sheet so operators who only download the workbook still see it.
type Notice struct {
	Kind    string
	Message string
	Items   []string // table IDs or file names
}

// NoticeHeader is the column layout of the Warnings sheet.
var NoticeHeader = []string{"Kind", "Message", "Items"}

const noticeWidth = 40

// WriteClear writes the Clear & Match table to w, followed by a Warnings
// sheet when notices is not empty.
func WriteClear(w io.Writer, rows [][]string, notices []Notice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ClearSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRows(f, ClearSheet, limits.Header, rows); err != nil {
		return err
	}
	if err := writeNotices(f, notices); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteComparison writes the comparison table to w. Flagged tables get the
// flag fill and bold on their TableID cell, and the flag fill on the Wrong
// cell of every flagged tier. Flags are taken from res as-is. Notices go to
// a Warnings sheet after the comparison.
func WriteComparison(w io.Writer, res *diff.Result, st Style, notices []Notice) error {
	if st.ColumnWidth <= 0 || st.FlagColor == "" {
		def := DefaultStyle()
		if st.ColumnWidth <= 0 {
			st.ColumnWidth = def.ColumnWidth
		}
		if st.FlagColor == "" {
			st.FlagColor = def.FlagColor
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := ComparisonSheet
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := diff.Header()
	if err := writeRows(f, sheet, header, res.Table()); err != nil {
		return err
	}

	styles, err := newComparisonStyles(f, st)
	if err != nil {
		return err
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", last, st.ColumnWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if len(res.Rows) > 0 {
		bottomRight, err := excelize.CoordinatesToCellName(len(header), len(res.Rows)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A2", bottomRight, styles.body); err != nil {
			return fmt.Errorf("style body: %w", err)
		}
	}

	for i, row := range res.Rows {
		sizes := res.Flags[row.TableID]
		if len(sizes) == 0 {
			continue
		}
		excelRow := i + 2
		if err := setStyle(f, sheet, 1, excelRow, styles.flaggedID); err != nil {
			return err
		}
		for _, s := range sizes {
			if err := setStyle(f, sheet, wrongColumn(s), excelRow, styles.flagged); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	if err := writeNotices(f, notices); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// wrongColumn returns the 1-based column of the Wrong cell for size.
func wrongColumn(s tables.Size) int {
	return 2 + int(s)
}

type comparisonStyles struct {
	body      int
	flagged   int
	flaggedID int
}

func newComparisonStyles(f *excelize.File, st Style) (comparisonStyles, error) {
	var out comparisonStyles
	var err error

	wrap := &excelize.Alignment{WrapText: true, Vertical: "top"}
	fill := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{st.FlagColor}}

	if out.body, err = f.NewStyle(&excelize.Style{Alignment: wrap}); err != nil {
		return out, fmt.Errorf("body style: %w", err)
	}
	if out.flagged, err = f.NewStyle(&excelize.Style{Alignment: wrap, Fill: fill}); err != nil {
		return out, fmt.Errorf("flag style: %w", err)
	}
	if out.flaggedID, err = f.NewStyle(&excelize.Style{
		Alignment: wrap,
		Fill:      fill,
		Font:      &excelize.Font{Bold: true},
	}); err != nil {
		return out, fmt.Errorf("flag style: %w", err)
	}
	return out, nil
}

func setStyle(f *excelize.File, sheet string, col, row, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
		return fmt.Errorf("style %s: %w", cell, err)
	}
	return nil
}

func writeNotices(f *excelize.File, notices []Notice) error {
	if len(notices) == 0 {
		return nil
	}
	if _, err := f.NewSheet(NoticeSheet); err != nil {
		return fmt.Errorf("add warnings sheet: %w", err)
	}

	rows := make([][]string, len(notices))
	for i, n := range notices {
		rows[i] = []string{n.Kind, n.Message, strings.Join(n.Items, "\n")}
	}
	if err := writeRows(f, NoticeSheet, NoticeHeader, rows); err != nil {
		return err
	}

	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return fmt.Errorf("warnings style: %w", err)
	}
	bottomRight, err := excelize.CoordinatesToCellName(len(NoticeHeader), len(rows)+1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(NoticeSheet, "A2", bottomRight, wrap); err != nil {
		return fmt.Errorf("style warnings: %w", err)
	}
	if err := f.SetColWidth(NoticeSheet, "A", "C", noticeWidth); err != nil {
		return fmt.Errorf("set warnings width: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]string) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return nil
}
