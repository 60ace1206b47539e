package limits

import (
	ahocorasick "github.com/BobuSumisu/aho-corasick"
)

// Index finds every registered identifier embedded in a free-text field.
// It is built once per run and is safe for concurrent lookups.
type Index struct {
	trie  *ahocorasick.Trie
	known map[string]struct{}
}

// NewIndex builds the automaton over the registry's identifiers.
func NewIndex(reg *Registry) *Index {
	ids := reg.IDs()
	idx := &Index{known: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		idx.known[id] = struct{}{}
	}
	if len(ids) > 0 {
		idx.trie = ahocorasick.NewTrieBuilder().AddStrings(ids).Build()
	}
	return idx
}

// Find returns the distinct identifiers contained in field, in order of
// their first occurrence.
func (idx *Index) Find(field string) []string {
	if idx.trie == nil || field == "" {
		return nil
	}

	var found []string
	seen := make(map[string]struct{})
	for _, m := range idx.trie.MatchString(field) {
		id := m.MatchString()
		if _, ok := idx.known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		found = append(found, id)
	}
	return found
}
