package ingest

import (
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// delimiterCandidates are tried in order of preference when sniffing.
var delimiterCandidates = []rune{',', '\t', ';', '|'}

// sniffLines is how many non-empty lines are inspected when sniffing.
const sniffLines = 20

// ReadIdentifiers reads a UTF-8 CSV (BOM tolerated) and returns the first
// column of every data row. The header row is skipped. Rows with no cells
// contribute nothing.
func ReadIdentifiers(name string, r io.Reader) ([]string, error) {
	const op = "read identifiers"

	cr := newCSVReader(NewUTF8Validator(NewBOMSkippingReader(r)), ',')
	rows, err := readRows(cr)
	if err != nil {
		return nil, fileError(name, op, err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		ids = append(ids, row[0])
	}
	return ids, nil
}

// ReadTierFile reads a UTF-16 tier export. The byte order mark decides the
// endianness (little-endian when absent), the delimiter is sniffed from the
// leading lines, and the header row is skipped. Rows keep their own width.
// Input that is not well-formed UTF-16 is rejected with ErrEncoding.
func ReadTierFile(name string, r io.Reader) ([][]string, error) {
	const op = "read tier file"

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fileError(name, op, err)
	}
	if err := checkUTF16(data); err != nil {
		return nil, fileError(name, op, err)
	}

	decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	raw, err := decoder.Bytes(data)
	if err != nil {
		return nil, fileError(name, op, fmt.Errorf("%w: %v", ErrEncoding, err))
	}

	text := string(raw)
	delim, err := SniffDelimiter(text)
	if err != nil {
		return nil, fileError(name, op, err)
	}

	rows, err := readRows(newCSVReader(strings.NewReader(text), delim))
	if err != nil {
		return nil, fileError(name, op, err)
	}
	return rows, nil
}

// checkUTF16 rejects an odd byte count and unpaired surrogates. The decoder
// would otherwise replace them with U+FFFD and carry on.
func checkUTF16(data []byte) error {
	var order binary.ByteOrder = binary.LittleEndian
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		data = data[2:]
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		order = binary.BigEndian
		data = data[2:]
	}

	if len(data)%2 != 0 {
		return fmt.Errorf("%w: odd byte count for UTF-16", ErrEncoding)
	}

	for i := 0; i < len(data); i += 2 {
		r := rune(order.Uint16(data[i:]))
		if !utf16.IsSurrogate(r) {
			continue
		}
		if i+4 > len(data) || utf16.DecodeRune(r, rune(order.Uint16(data[i+2:]))) == utf8.RuneError {
			return fmt.Errorf("%w: unpaired UTF-16 surrogate at byte %d", ErrEncoding, i)
		}
		i += 2
	}
	return nil
}

func newCSVReader(r io.Reader, delim rune) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// readRows reads every record, dropping the header row.
func readRows(cr *csv.Reader) ([][]string, error) {
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, wrapCSVError(err)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}
		rows = append(rows, rec)
	}
}

func wrapCSVError(err error) error {
	if errors.Is(err, ErrEncoding) {
		return err
	}
	return fmt.Errorf("invalid csv: %w", err)
}

// SniffDelimiter picks the delimiter that splits the leading lines into the
// same number of fields. Ties go to the candidate producing more fields,
// then to the earlier candidate. Blank text is treated as comma separated.
// Text whose first line holds no candidate at all is ErrNoDelimiter.
func SniffDelimiter(text string) (rune, error) {
	lines := leadingLines(text, sniffLines)
	if len(lines) == 0 {
		return ',', nil
	}

	best := ','
	bestCount := 0
	bestConsistent := false

	for _, d := range delimiterCandidates {
		count, consistent := delimiterStats(lines, d)
		if count == 0 {
			continue
		}
		switch {
		case consistent && !bestConsistent,
			consistent == bestConsistent && count > bestCount:
			best, bestCount, bestConsistent = d, count, consistent
		}
	}
	if bestCount == 0 {
		return 0, ErrNoDelimiter
	}
	return best, nil
}

// delimiterStats returns how often d occurs outside quotes on the first line
// and whether every other line agrees.
func delimiterStats(lines []string, d rune) (int, bool) {
	if len(lines) == 0 {
		return 0, false
	}
	first := countOutsideQuotes(lines[0], d)
	consistent := true
	for _, l := range lines[1:] {
		if countOutsideQuotes(l, d) != first {
			consistent = false
			break
		}
	}
	return first, consistent
}

func countOutsideQuotes(line string, d rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}

// leadingLines returns up to limit non-empty logical lines. Newlines inside
// quoted fields do not end a line.
func leadingLines(text string, limit int) []string {
	var lines []string
	var b strings.Builder
	quoted := false

	flush := func() {
		l := strings.TrimRight(b.String(), "\r")
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
		b.Reset()
	}

	for _, r := range text {
		if len(lines) >= limit {
			return lines
		}
		if r == '"' {
			quoted = !quoted
		}
		if r == '\n' && !quoted {
			flush()
			continue
		}
		b.WriteRune(r)
	}
	if len(lines) < limit {
		flush()
	}
	return lines
}
