package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func utf16File(t *testing.T, endian unicode.Endianness, text string) []byte {
	t.Helper()
	enc := unicode.UTF16(endian, unicode.UseBOM).NewEncoder()
	out, err := enc.String(text)
	require.NoError(t, err)
	return []byte(out)
}

func TestReadIdentifiers(t *testing.T) {
	input := "\xEF\xBB\xBFTable ID,Name\nAAAAAAAAAAAAAAAA,Roulette\n bad-id ,x\n\n\"BBBBBBBBBBBBBBBB\"\n"

	ids, err := ReadIdentifiers("ids.csv", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAAAAAAAAAAAAAAA", " bad-id ", "BBBBBBBBBBBBBBBB"}, ids)
}

func TestReadIdentifiers_Errors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := ReadIdentifiers("ids.csv", strings.NewReader(""))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEmptyFile))

		var fe *FileError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "ids.csv", fe.File)
	})

	t.Run("not utf-8", func(t *testing.T) {
		_, err := ReadIdentifiers("ids.csv", bytes.NewReader([]byte("id\ncaf\xe9\n")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEncoding))
		assert.Contains(t, err.Error(), "ids.csv")
	})
}

func TestReadTierFile(t *testing.T) {
	tests := []struct {
		name   string
		endian unicode.Endianness
		text   string
		want   [][]string
	}{
		{
			name:   "tab separated little endian",
			endian: unicode.LittleEndian,
			text:   "Name\tTables\tLimit\nx\tAAAAAAAAAAAAAAAA,BBBBBBBBBBBBBBBB\tlimit100\r\ny\tCCCCCCCCCCCCCCCC\tlimit200\r\n",
			want: [][]string{
				{"x", "AAAAAAAAAAAAAAAA,BBBBBBBBBBBBBBBB", "limit100"},
				{"y", "CCCCCCCCCCCCCCCC", "limit200"},
			},
		},
		{
			name:   "comma separated big endian with quoted list",
			endian: unicode.BigEndian,
			text:   "Name,Tables,Limit\nx,\"AAAAAAAAAAAAAAAA;BBBBBBBBBBBBBBBB\", limit100 \n",
			want: [][]string{
				{"x", "AAAAAAAAAAAAAAAA;BBBBBBBBBBBBBBBB", " limit100 "},
			},
		},
		{
			name:   "ragged rows kept",
			endian: unicode.LittleEndian,
			text:   "a;b;c\nonly;two\n1;2;3\n",
			want: [][]string{
				{"only", "two"},
				{"1", "2", "3"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadTierFile("large.csv", bytes.NewReader(utf16File(t, tt.endian, tt.text)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestReadTierFile_Empty(t *testing.T) {
	_, err := ReadTierFile("small.csv", bytes.NewReader(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyFile))
	assert.Contains(t, err.Error(), "small.csv")
}

func TestReadTierFile_Malformed(t *testing.T) {
	valid := utf16File(t, unicode.LittleEndian, "name,tables,limit\nx,AAAAAAAAAAAAAAAA,limit100\n")

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "odd byte count",
			data: append(append([]byte(nil), valid...), 'x'),
			want: ErrEncoding,
		},
		{
			name: "lone high surrogate",
			data: []byte{0xFF, 0xFE, 'a', 0, ',', 0, 0x00, 0xD8, 'b', 0, '\n', 0},
			want: ErrEncoding,
		},
		{
			name: "lone low surrogate big endian",
			data: []byte{0xFE, 0xFF, 0, 'a', 0, ',', 0xDC, 0x00, 0, '\n'},
			want: ErrEncoding,
		},
		{
			name: "trailing high surrogate",
			data: []byte{0xFF, 0xFE, 'a', 0, ',', 0, 0x3D, 0xD8},
			want: ErrEncoding,
		},
		{
			name: "utf-8 export",
			data: []byte("name,tables,limit\nx,AAAAAAAAAAAAAAAA,limit100\n"),
			want: ErrNoDelimiter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadTierFile("large.csv", bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.Nil(t, rows)
			assert.True(t, errors.Is(err, tt.want), err.Error())

			var fe *FileError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, "large.csv", fe.File)
		})
	}
}

func TestReadTierFile_SurrogatePair(t *testing.T) {
	rows, err := ReadTierFile("large.csv", bytes.NewReader(utf16File(t, unicode.BigEndian, "a,b,c\nx,\U0001F600,y\n")))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x", "\U0001F600", "y"}}, rows)
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want rune
	}{
		{"comma", "a,b,c\n1,2,3\n", ','},
		{"tab beats inconsistent comma", "a\tb\tc\n1\tx,y\t3\n", '\t'},
		{"semicolon", "a;b;c\n1;2;3", ';'},
		{"pipe", "a|b\n1|2", '|'},
		{"quoted delimiters ignored", "a,b,c\n1,\"x;y;z;w\",3\n", ','},
		{"empty", "", ','},
		{"blank lines", "\n\r\n", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SniffDelimiter(tt.text)
			require.NoError(t, err)
			assert.Equal(t, string(tt.want), string(got))
		})
	}
}

func TestSniffDelimiter_NoCandidate(t *testing.T) {
	_, err := SniffDelimiter("id\nAAAA\n")
	assert.True(t, errors.Is(err, ErrNoDelimiter))
}
