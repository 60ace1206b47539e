package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/tablecfg/internal/core/diff"
	"github.com/JonMunkholm/tablecfg/internal/core/tables"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func cellStyle(t *testing.T, f *excelize.File, cell string) int {
	t.Helper()
	id, err := f.GetCellStyle(ComparisonSheet, cell)
	require.NoError(t, err)
	return id
}

func TestWriteClear(t *testing.T) {
	var buf bytes.Buffer
	err := WriteClear(&buf, [][]string{
		{"AAAAAAAAAAAAAAAA", "limit100", "", "", ""},
	}, nil)
	require.NoError(t, err)

	f := openWorkbook(t, buf.Bytes())
	assert.Equal(t, []string{ClearSheet}, f.GetSheetList())

	rows, err := f.GetRows(ClearSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"tableID", "large", "medium", "small", "xsmall"}, rows[0])
	assert.Equal(t, "AAAAAAAAAAAAAAAA", rows[1][0])
	assert.Equal(t, "limit100", rows[1][1])
}

func TestWriteClear_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteClear(&buf, nil, nil))

	rows, err := openWorkbook(t, buf.Bytes()).GetRows(ClearSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func comparisonFixture() *diff.Result {
	flagged := diff.Row{TableID: "T1"}
	flagged.Tiers[tables.Medium] = diff.TierDiff{
		Wrong:   []string{"a=2", "b=2", "c=2"},
		Correct: []string{"a=1", "b=1", "c=1"},
	}
	plain := diff.Row{TableID: "T2"}
	plain.Tiers[tables.Large] = diff.TierDiff{Correct: []string{"a=1"}}

	return &diff.Result{
		Rows:      []diff.Row{flagged, plain},
		Flags:     diff.FlagSet{"T1": {tables.Medium}},
		Threshold: 2,
	}
}

func TestWriteComparison(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, comparisonFixture(), DefaultStyle(), nil))

	f := openWorkbook(t, buf.Bytes())
	assert.Equal(t, []string{ComparisonSheet}, f.GetSheetList())

	rows, err := f.GetRows(ComparisonSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, diff.Header(), rows[0])
	assert.Equal(t, "T1", rows[1][0])
	assert.Equal(t, "a=2\nb=2\nc=2", rows[1][2])
	assert.Equal(t, "a=1\nb=1\nc=1", rows[1][6])

	for _, col := range []string{"A", "E", "I"} {
		width, err := f.GetColWidth(ComparisonSheet, col)
		require.NoError(t, err)
		assert.Equal(t, 17.0, width, col)
	}

	panes, err := f.GetPanes(ComparisonSheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, "A2", panes.TopLeftCell)
}

func TestWriteComparison_Highlighting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, comparisonFixture(), Style{}, nil))

	f := openWorkbook(t, buf.Bytes())

	body := cellStyle(t, f, "B2")
	flaggedWrong := cellStyle(t, f, "C2")
	flaggedID := cellStyle(t, f, "A2")

	assert.NotEqual(t, body, flaggedWrong, "flagged Wrong cell")
	assert.NotEqual(t, body, flaggedID, "flagged TableID cell")
	assert.NotEqual(t, flaggedWrong, flaggedID, "TableID cell is also bold")

	// Unflagged table and the Full Correct cells keep the body style.
	assert.Equal(t, body, cellStyle(t, f, "A3"))
	assert.Equal(t, body, cellStyle(t, f, "C3"))
	assert.Equal(t, body, cellStyle(t, f, "G2"))

	st, err := f.GetStyle(flaggedID)
	require.NoError(t, err)
	require.NotNil(t, st.Font)
	assert.True(t, st.Font.Bold)
	assert.Equal(t, 1, st.Fill.Pattern)
}

func TestWriteComparison_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, &diff.Result{Flags: diff.FlagSet{}}, DefaultStyle(), nil))

	rows, err := openWorkbook(t, buf.Bytes()).GetRows(ComparisonSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{diff.Header()}, rows)
}

func TestWriteNotices(t *testing.T) {
	notices := []Notice{
		{Kind: "duplicate_table_ids", Message: "duplicate table IDs in submission were not compared", Items: []string{"T1", "T2"}},
		{Kind: "tier_error", Message: "Medium tier skipped", Items: []string{"medium.csv"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, comparisonFixture(), DefaultStyle(), notices))

	f := openWorkbook(t, buf.Bytes())
	assert.Equal(t, []string{ComparisonSheet, NoticeSheet}, f.GetSheetList())
	assert.Equal(t, 0, f.GetActiveSheetIndex(), "comparison stays the active sheet")

	rows, err := f.GetRows(NoticeSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		NoticeHeader,
		{"duplicate_table_ids", "duplicate table IDs in submission were not compared", "T1\nT2"},
		{"tier_error", "Medium tier skipped", "medium.csv"},
	}, rows)

	buf.Reset()
	require.NoError(t, WriteClear(&buf, nil, notices[1:]))
	assert.Equal(t, []string{ClearSheet, NoticeSheet}, openWorkbook(t, buf.Bytes()).GetSheetList())
}
