package limits

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tablecfg/internal/core/tables"
)

const (
	idA = "AAAAAAAAAAAAAAAA"
	idB = "BBBBBBBBBBBBBBBB"
	idC = "cccc-1234-DDDD-5"
)

type staticSource struct {
	name string
	rows [][]string
	err  error
}

func (s staticSource) Name() string              { return s.name }
func (s staticSource) Rows() ([][]string, error) { return s.rows, s.err }

func TestBuildRegistry(t *testing.T) {
	reg := BuildRegistry([]string{
		"  " + idA + " ",
		"bad-id",
		idB,
		"",
		idA,
		"AAAAAAAAAAAAAAAAA",
		idC,
	})

	assert.Equal(t, []string{idA, idB, idC}, reg.IDs())
	assert.Equal(t, 3, reg.Len())

	rec, ok := reg.Get(idA)
	require.True(t, ok)
	assert.Equal(t, [tables.SizeCount]string{}, rec.Slots)

	_, ok = reg.Get("bad-id")
	assert.False(t, ok)
}

func TestIndex_Find(t *testing.T) {
	idx := NewIndex(BuildRegistry([]string{idA, idB, idC}))

	assert.Equal(t, []string{idA}, idx.Find("contains-"+idA+"-here"))
	assert.Equal(t, []string{idB, idA}, idx.Find(idB+";"+idA+";"+idB))
	assert.Nil(t, idx.Find("AAAAAAAAAAAAAAA"))
	assert.Nil(t, idx.Find(""))

	// Overlapping identifiers are both found.
	idx = NewIndex(BuildRegistry([]string{"AAAAAAAAAAAAAAAA", "AAAAAAAAAAAAAAAB"}))
	assert.ElementsMatch(t, []string{"AAAAAAAAAAAAAAAA", "AAAAAAAAAAAAAAAB"}, idx.Find("AAAAAAAAAAAAAAAAB"))

	empty := NewIndex(BuildRegistry(nil))
	assert.Nil(t, empty.Find(idA))
}

func TestScanTier_FirstMatchWins(t *testing.T) {
	idx := NewIndex(BuildRegistry([]string{idA, idB, idC}))

	rows := [][]string{
		{"x", "contains-" + idA + "-here", " limit100 "},
		{"short", idB},
		{"y", idA + "," + idB, "limit200"},
		{"z", idC, ""},
		{"w", idC, "limit300"},
	}

	partial, err := ScanTier(context.Background(), idx, rows)
	require.NoError(t, err)

	assert.Equal(t, "limit100", partial[idA])
	assert.Equal(t, "limit200", partial[idB])
	// An empty setting leaves the identifier open for later rows.
	assert.Equal(t, "limit300", partial[idC])
}

func TestScanTier_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ScanTier(ctx, NewIndex(BuildRegistry([]string{idA})), [][]string{{"x", idA, "l"}})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMerge_NeverOverwrites(t *testing.T) {
	reg := BuildRegistry([]string{idA, idB})
	rec, _ := reg.Get(idA)
	rec.Slots[tables.Large] = "preset"

	Merge(reg, [tables.SizeCount]Partial{
		tables.Large: {idA: "new", idB: "L"},
		tables.Small: {idB: "S"},
	})

	assert.Equal(t, [][]string{
		{idA, "preset", "", "", ""},
		{idB, "L", "", "S", ""},
	}, reg.Rows())
}

func TestMerger_Run(t *testing.T) {
	reg := BuildRegistry([]string{idA, "bad-id", idB})

	sources := [tables.SizeCount]Source{
		tables.Large: staticSource{name: "large.csv", rows: [][]string{
			{"x", "contains-" + idA + "-here", "limit100"},
		}},
		tables.Medium: staticSource{name: "medium.csv", err: errors.New("encoding error")},
		tables.Small: staticSource{name: "small.csv", rows: [][]string{
			{"x", idB, "s1"},
			{"x", idA + " " + idB, "s2"},
		}},
		tables.XSmall: nil,
	}

	out, err := Merger{Workers: 2}.Run(context.Background(), reg, sources)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{idA, "limit100", "", "s2", ""},
		{idB, "", "", "s1", ""},
	}, out.Registry.Rows())

	require.Len(t, out.Failures, 2)
	assert.Equal(t, tables.Medium, out.Failures[0].Size)
	assert.Equal(t, "medium.csv", out.Failures[0].File)
	assert.Contains(t, out.Failures[0].Error(), "Medium tier (medium.csv)")
	assert.Equal(t, tables.XSmall, out.Failures[1].Size)
	assert.True(t, errors.Is(out.Failures[1], ErrNoSource))
}

// Identifier file ["AAAAAAAAAAAAAAAA", "bad-id"] against a single large-tier
// row yields exactly one output row.
func TestMerger_EndToEnd(t *testing.T) {
	reg := BuildRegistry([]string{idA, "bad-id"})
	sources := [tables.SizeCount]Source{
		tables.Large:  staticSource{name: "l", rows: [][]string{{"x", "contains-" + idA + "-here", "limit100"}}},
		tables.Medium: staticSource{name: "m"},
		tables.Small:  staticSource{name: "s"},
		tables.XSmall: staticSource{name: "xs"},
	}

	out, err := Merger{}.Run(context.Background(), reg, sources)
	require.NoError(t, err)
	assert.Empty(t, out.Failures)
	assert.Equal(t, [][]string{{idA, "limit100", "", "", ""}}, out.Registry.Rows())
}
