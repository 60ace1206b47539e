// Package diff compares reference parameter maps against an external
// submission, table by table and tier by tier.
//
// For every parameter the submission declares, the reference either agrees
// (the reference value is listed as correct), disagrees (the submitted value
// is wrong and the reference value is listed as correct), or has no such
// parameter (the submitted value is wrong and nothing is listed as correct).
// A tier is flagged when its wrong count exceeds the threshold.
package diff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/tablecfg/internal/core/params"
	"github.com/JonMunkholm/tablecfg/internal/core/tables"
)

// Threshold bounds.
const (
	MinThreshold     = 1
	MaxThreshold     = 20
	DefaultThreshold = 5
)

// ErrInvalidThreshold is returned for thresholds outside [MinThreshold, MaxThreshold].
var ErrInvalidThreshold = errors.New("invalid threshold")

// ValidateThreshold checks that n is within the accepted range.
func ValidateThreshold(n int) error {
	if n < MinThreshold || n > MaxThreshold {
		return fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidThreshold, n, MinThreshold, MaxThreshold)
	}
	return nil
}

// Entry is one sheet row: a table and its parameters per tier.
type Entry struct {
	TableID string
	Tiers   [tables.SizeCount]*params.Map
}

// TierDiff is the classification of one tier of one table. Entries are
// rendered as name=value.
type TierDiff struct {
	Wrong   []string // submitted values that are missing from or differ from the reference
	Correct []string // reference values for every submitted parameter the reference knows
}

// Row is the comparison of one table.
type Row struct {
	TableID string
	Tiers   [tables.SizeCount]TierDiff
}

// Cells returns the nine report fields: identifier, four Wrong cells, four
// Full Correct cells. With correctOnlyWhenWrong, a tier's Full Correct cell
// is left empty unless that tier has wrong entries.
func (r Row) Cells(correctOnlyWhenWrong bool) []string {
	cells := make([]string, 1+2*tables.SizeCount)
	cells[0] = r.TableID
	for _, s := range tables.Sizes {
		td := r.Tiers[s]
		cells[1+int(s)] = strings.Join(td.Wrong, "\n")
		if correctOnlyWhenWrong && len(td.Wrong) == 0 {
			continue
		}
		cells[1+tables.SizeCount+int(s)] = strings.Join(td.Correct, "\n")
	}
	return cells
}

// Header returns the report column titles matching Row.Cells.
func Header() []string {
	h := make([]string, 0, 1+2*tables.SizeCount)
	h = append(h, "TableID")
	for _, s := range tables.Sizes {
		h = append(h, fmt.Sprintf("Wrong (%s)", s))
	}
	for _, s := range tables.Sizes {
		h = append(h, fmt.Sprintf("Full Correct (%s)", s))
	}
	return h
}

// FlagSet lists, per table, the tiers whose wrong count exceeded the
// threshold. It drives presentation only.
type FlagSet map[string][]tables.Size

// Flagged reports whether the (table, size) pair is flagged.
func (f FlagSet) Flagged(tableID string, size tables.Size) bool {
	for _, s := range f[tableID] {
		if s == size {
			return true
		}
	}
	return false
}

// Result is the outcome of one comparison.
type Result struct {
	Rows      []Row
	Flags     FlagSet
	Threshold int

	// Duplicates are submission table IDs that appeared more than once.
	// None of their rows were compared.
	Duplicates []string

	// MissingInReference are submission table IDs the reference lacks.
	MissingInReference []string

	// CorrectOnlyWhenWrong is carried from the engine options for rendering.
	CorrectOnlyWhenWrong bool
}

// Table returns the report body, one row of Header-aligned cells per table.
func (r *Result) Table() [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Cells(r.CorrectOnlyWhenWrong)
	}
	return out
}

// Options configures an Engine.
type Options struct {
	Threshold            int
	Workers              int // concurrent table comparisons; zero means unbounded
	CorrectOnlyWhenWrong bool
}

// Engine classifies submissions against a reference.
type Engine struct {
	opts Options
}

// NewEngine validates opts and returns an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if err := ValidateThreshold(opts.Threshold); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// CompareTier classifies every parameter of sub against ref, in sub order.
func CompareTier(ref, sub *params.Map) TierDiff {
	var td TierDiff
	for _, p := range sub.Params() {
		refValue, ok := ref.Get(p.Name)
		if !ok {
			td.Wrong = append(td.Wrong, p.String())
			continue
		}
		if refValue != p.Value {
			td.Wrong = append(td.Wrong, p.String())
		}
		td.Correct = append(td.Correct, params.Param{Name: p.Name, Value: refValue}.String())
	}
	return td
}

// Compare diffs the submission against the reference. Blank table IDs are
// ignored on both sides; a repeated reference ID keeps its last row.
// Output rows follow submission order.
func (e *Engine) Compare(ctx context.Context, ref, sub []Entry) (*Result, error) {
	refByID := make(map[string]Entry, len(ref))
	for _, entry := range ref {
		id := strings.TrimSpace(entry.TableID)
		if id == "" {
			continue
		}
		refByID[id] = entry
	}

	res := &Result{
		Flags:                make(FlagSet),
		Threshold:            e.opts.Threshold,
		CorrectOnlyWhenWrong: e.opts.CorrectOnlyWhenWrong,
	}

	counts := make(map[string]int)
	var order []string
	for _, entry := range sub {
		id := strings.TrimSpace(entry.TableID)
		if id == "" {
			continue
		}
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	for _, id := range order {
		if counts[id] > 1 {
			res.Duplicates = append(res.Duplicates, id)
		}
	}

	type pair struct {
		id       string
		ref, sub Entry
	}
	var work []pair
	for _, entry := range sub {
		id := strings.TrimSpace(entry.TableID)
		if id == "" || counts[id] > 1 {
			continue
		}
		refEntry, ok := refByID[id]
		if !ok {
			res.MissingInReference = append(res.MissingInReference, id)
			continue
		}
		work = append(work, pair{id: id, ref: refEntry, sub: entry})
	}

	res.Rows = make([]Row, len(work))

	g, gctx := errgroup.WithContext(ctx)
	if e.opts.Workers > 0 {
		g.SetLimit(e.opts.Workers)
	}
	for i, w := range work {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row := Row{TableID: w.id}
			for _, s := range tables.Sizes {
				row.Tiers[s] = CompareTier(w.ref.Tiers[s], w.sub.Tiers[s])
			}
			res.Rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compare cancelled: %w", err)
	}

	for _, row := range res.Rows {
		for _, s := range tables.Sizes {
			if len(row.Tiers[s].Wrong) > e.opts.Threshold {
				res.Flags[row.TableID] = append(res.Flags[row.TableID], s)
			}
		}
	}

	return res, nil
}
