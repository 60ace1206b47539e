// Package params parses the key=value blobs stored in parameter sheet cells.
//
// A cell holds several settings for one (table, size) pair, one assignment
// per line in well-formed exports:
//
//	minBet=10
//	maxBet=5000
//	autoplay=off
//
// Reference sheets and external submissions are authored by different tools,
// so parsing is driven by a [Policy] chosen at each call site.
package params

// Map is an insertion-ordered mapping of parameter name to value.
// The zero value is not usable; create maps with [NewMap].
type Map struct {
	keys   []string
	values map[string]string
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]string)}
}

// Set stores value under key, replacing any previous value.
// A replaced key keeps its original position.
func (m *Map) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// SetIfAbsent stores value only when key has not been seen yet.
// It reports whether the value was stored.
func (m *Map) SetIfAbsent(key, value string) bool {
	if _, ok := m.values[key]; ok {
		return false
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
	return true
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of parameters.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns parameter names in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Param is a single name/value pair.
type Param struct {
	Name  string
	Value string
}

// String renders the pair as it appears in report cells.
func (p Param) String() string {
	return p.Name + "=" + p.Value
}

// Params returns all pairs in insertion order.
func (m *Map) Params() []Param {
	if m == nil {
		return nil
	}
	out := make([]Param, len(m.keys))
	for i, k := range m.keys {
		out[i] = Param{Name: k, Value: m.values[k]}
	}
	return out
}
