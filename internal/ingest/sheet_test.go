package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, fill func(f *excelize.File, sheet string)) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	fill(f, sheet)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadSheet(t *testing.T) {
	buf := workbook(t, func(f *excelize.File, sheet string) {
		require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"TableID", "Large", "Medium", "Small", "XSmall"}))
		require.NoError(t, f.SetCellStr(sheet, "A2", "AAAAAAAAAAAAAAAA"))
		require.NoError(t, f.SetCellStr(sheet, "B2", "a=1\nb=2"))
		require.NoError(t, f.SetCellValue(sheet, "C2", 42))
		require.NoError(t, f.SetCellStr(sheet, "E2", "c=3"))
		require.NoError(t, f.SetCellStr(sheet, "A4", "BBBBBBBBBBBBBBBB"))
	})

	sheet, err := ReadSheet("a.xlsx", buf, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"TableID", "Large", "Medium", "Small", "XSmall"}, sheet.Header)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, Cell{Value: "AAAAAAAAAAAAAAAA", Text: true}, sheet.Cell(0, 0))
	assert.Equal(t, Cell{Value: "a=1\nb=2", Text: true}, sheet.Cell(0, 1))
	assert.Equal(t, Cell{Value: "42", Text: false}, sheet.Cell(0, 2))
	assert.Equal(t, Cell{}, sheet.Cell(0, 3))
	assert.Equal(t, Cell{Value: "c=3", Text: true}, sheet.Cell(0, 4))

	// Interior blank row is kept so row positions match the workbook.
	assert.Equal(t, Cell{}, sheet.Cell(1, 0))
	assert.Equal(t, "BBBBBBBBBBBBBBBB", sheet.Cell(2, 0).Value)

	// Out of range positions read as blank.
	assert.Equal(t, Cell{}, sheet.Cell(2, 9))
	assert.Equal(t, Cell{}, sheet.Cell(7, 0))
}

func TestReadSheet_TooFewColumns(t *testing.T) {
	buf := workbook(t, func(f *excelize.File, sheet string) {
		require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"TableID", "Large"}))
	})

	_, err := ReadSheet("b.xlsx", buf, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooFewColumns))
	assert.Contains(t, err.Error(), "b.xlsx")
}

func TestReadSheet_Empty(t *testing.T) {
	buf := workbook(t, func(*excelize.File, string) {})

	_, err := ReadSheet("b.xlsx", buf, 5)
	assert.True(t, errors.Is(err, ErrEmptyFile))
}

func TestReadSheet_NotAWorkbook(t *testing.T) {
	_, err := ReadSheet("a.xlsx", strings.NewReader("TableID,Large\n"), 5)
	require.Error(t, err)

	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "read sheet", fe.Op)
	assert.Contains(t, err.Error(), "invalid workbook")
}

// formulaWorkbook builds a package by hand so cells can carry cached formula
// results, which excelize does not compute on write.
func formulaWorkbook(t *testing.T, row2 string) *bytes.Buffer {
	t.Helper()
	const (
		ns   = `xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"`
		rels = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
	)
	header := ""
	for i, h := range []string{"TableID", "Large", "Medium", "Small", "XSmall"} {
		header += `<c r="` + string(rune('A'+i)) + `1" t="inlineStr"><is><t>` + h + `</t></is></c>`
	}
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>` +
			`<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>` +
			`</Types>`,
		"_rels/.rels": `<Relationships ` + rels + `>` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>` +
			`</Relationships>`,
		"xl/workbook.xml": `<workbook ` + ns + ` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
			`<sheets><sheet name="Sheet1" sheetId="1" r:id="rId1"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<Relationships ` + rels + `>` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>` +
			`</Relationships>`,
		"xl/worksheets/sheet1.xml": `<worksheet ` + ns + `><sheetData>` +
			`<row r="1">` + header + `</row>` +
			`<row r="2">` + row2 + `</row>` +
			`</sheetData></worksheet>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return &buf
}

func TestReadSheet_FormulaResults(t *testing.T) {
	buf := formulaWorkbook(t,
		`<c r="A2" t="inlineStr"><is><t>T1</t></is></c>`+
			`<c r="B2" t="str"><f>"5"</f><v>5</v></c>`+
			`<c r="C2" t="str"><f>"a="&amp;1</f><v>a=1</v></c>`+
			`<c r="D2"><f>1+1</f><v>2</v></c>`)

	sheet, err := ReadSheet("a.xlsx", buf, 5)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)

	assert.Equal(t, Cell{Value: "T1", Text: true}, sheet.Cell(0, 0))
	assert.Equal(t, Cell{Value: "5", Text: true}, sheet.Cell(0, 1), "string result that looks numeric")
	assert.Equal(t, Cell{Value: "a=1", Text: true}, sheet.Cell(0, 2))
	assert.Equal(t, Cell{Value: "2", Text: false}, sheet.Cell(0, 3), "numeric result")
}
