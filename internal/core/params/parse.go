package params

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/tablecfg/internal/ingest"
)

// DuplicateRule decides which assignment survives when a key repeats.
type DuplicateRule int

const (
	// KeepFirst keeps the earliest assignment of a key.
	KeepFirst DuplicateRule = iota
	// KeepLast keeps the most recent assignment of a key.
	KeepLast
)

// Scope decides how assignments are located in a blob.
type Scope int

const (
	// WholeBlob scans the entire text for name=value tokens. A value runs to
	// the end of its line, so line breaks are the only separators.
	WholeBlob Scope = iota
	// PerLine treats every line containing "=" as exactly one assignment,
	// split on the first "=".
	PerLine
)

// Policy selects duplicate handling and tokenization for one call site.
type Policy struct {
	Duplicates DuplicateRule
	Scope      Scope
}

var (
	// FirstWins is used for reference templates: free-form text where the
	// first declared value of a key is authoritative.
	FirstWins = Policy{Duplicates: KeepFirst, Scope: WholeBlob}

	// Clean is used for external submissions: strictly one assignment per
	// line, the latest line wins.
	Clean = Policy{Duplicates: KeepLast, Scope: PerLine}
)

// assignment matches a word-like key, "=", and everything up to a newline.
// Keys start with a letter, digit or underscore and may contain hyphens.
var assignment = regexp.MustCompile(`([\p{L}\p{N}_][\p{L}\p{N}_\-]*?)=([^\n]*)`)

// Parse extracts parameters from text according to p.
// Keys and values are trimmed; empty text yields an empty map.
func Parse(text string, p Policy) *Map {
	m := NewMap()
	store := m.Set
	if p.Duplicates == KeepFirst {
		store = func(k, v string) { m.SetIfAbsent(k, v) }
	}

	switch p.Scope {
	case PerLine:
		for _, line := range splitLines(text) {
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			store(strings.TrimSpace(key), strings.TrimSpace(value))
		}
	default:
		for _, match := range assignment.FindAllStringSubmatch(text, -1) {
			store(match[1], strings.TrimSpace(match[2]))
		}
	}

	return m
}

// ParseCell parses a sheet cell. Cells that do not hold text (numbers,
// booleans, blanks) carry no parameters.
func ParseCell(c ingest.Cell, p Policy) *Map {
	if !c.Text {
		return NewMap()
	}
	return Parse(c.Value, p)
}

// splitLines splits on every line boundary spreadsheet exports are known to
// produce: \n, \r\n, \r, vertical tab, form feed, file/group/record
// separators, NEL, and the Unicode line and paragraph separators.
// A trailing boundary does not produce an empty final line.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isLineBreak(r) {
			i += size
			continue
		}
		lines = append(lines, s[start:i])
		i += size
		if r == '\r' && i < len(s) && s[i] == '\n' {
			i++
		}
		start = i
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}
