// Package limits implements Clear & Match: building the identifier registry
// and attaching the first-found bet limit of every size tier to each
// registered table.
package limits

import (
	"strings"

	"github.com/JonMunkholm/tablecfg/internal/core/tables"
)

// Header is the column layout of the Clear & Match result.
var Header = []string{"tableID", "large", "medium", "small", "xsmall"}

// Record holds the merged limit settings of one table. An empty slot means
// no setting was found for that tier.
type Record struct {
	TableID string
	Slots   [tables.SizeCount]string
}

// Row returns the record in Header order.
func (r *Record) Row() []string {
	row := make([]string, 0, len(Header))
	row = append(row, r.TableID)
	row = append(row, r.Slots[:]...)
	return row
}

// Registry is the ordered set of valid table identifiers for one run.
type Registry struct {
	order   []string
	records map[string]*Record
}

// BuildRegistry trims every candidate and keeps those that are valid table
// identifiers. Invalid values are dropped without error. A repeated
// identifier re-initialises its record (later one wins) but keeps the
// position of its first occurrence.
func BuildRegistry(values []string) *Registry {
	reg := &Registry{records: make(map[string]*Record)}
	for _, v := range values {
		id := strings.TrimSpace(v)
		if !tables.ValidID(id) {
			continue
		}
		if _, exists := reg.records[id]; !exists {
			reg.order = append(reg.order, id)
		}
		reg.records[id] = &Record{TableID: id}
	}
	return reg
}

// Len returns the number of registered identifiers.
func (r *Registry) Len() int {
	return len(r.order)
}

// IDs returns the registered identifiers in registry order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the record for id.
func (r *Registry) Get(id string) (*Record, bool) {
	rec, ok := r.records[id]
	return rec, ok
}

// Records returns every record in registry order.
func (r *Registry) Records() []*Record {
	out := make([]*Record, len(r.order))
	for i, id := range r.order {
		out[i] = r.records[id]
	}
	return out
}

// Rows returns the Clear & Match table body, one row per record.
func (r *Registry) Rows() [][]string {
	rows := make([][]string, len(r.order))
	for i, rec := range r.Records() {
		rows[i] = rec.Row()
	}
	return rows
}
