package limits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/tablecfg/internal/core/tables"
)

// ContextCheckInterval is how often (in rows) a scan checks for cancellation.
var ContextCheckInterval = 100

// MinColumns is the narrowest row a tier scan considers.
const MinColumns = 3

const (
	idsColumn     = 1
	settingColumn = 2
)

// ErrNoSource is reported for a tier that was given no file.
var ErrNoSource = errors.New("no file provided")

// Source supplies the decoded rows of one tier export.
type Source interface {
	Name() string
	Rows() ([][]string, error)
}

// Partial is the result of scanning one tier: identifier to setting.
type Partial map[string]string

// TierError records a tier whose source could not be read. Other tiers of
// the same run are unaffected.
type TierError struct {
	Size tables.Size
	File string
	Err  error
}

func (e *TierError) Error() string {
	return fmt.Sprintf("%s tier (%s): %v", e.Size, e.File, e.Err)
}

func (e *TierError) Unwrap() error {
	return e.Err
}

// ScanTier assigns to every identifier the setting of the first row, in file
// order, whose identifiers field contains it. Rows narrower than MinColumns
// are skipped. An empty setting does not claim the identifier.
func ScanTier(ctx context.Context, idx *Index, rows [][]string) (Partial, error) {
	partial := make(Partial)
	for i, row := range rows {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("scan cancelled at row %d: %w", i+1, err)
			}
		}
		if len(row) < MinColumns {
			continue
		}

		setting := strings.TrimSpace(row[settingColumn])
		for _, id := range idx.Find(row[idsColumn]) {
			if partial[id] == "" {
				partial[id] = setting
			}
		}
	}
	return partial, nil
}

// Merge applies the partial results to the registry in tier order. A slot
// that already holds a setting is never overwritten.
func Merge(reg *Registry, partials [tables.SizeCount]Partial) {
	for _, size := range tables.Sizes {
		partial := partials[size]
		if partial == nil {
			continue
		}
		for _, rec := range reg.Records() {
			if rec.Slots[size] != "" {
				continue
			}
			rec.Slots[size] = partial[rec.TableID]
		}
	}
}

// Outcome is the result of a Clear & Match merge.
type Outcome struct {
	Registry *Registry
	Failures []*TierError
}

// Merger runs the four tier scans of one Clear & Match run.
type Merger struct {
	// Workers bounds concurrent tier scans; zero scans all four at once.
	Workers int
}

// Run decodes and scans every tier concurrently, then merges the partial
// results into reg. A tier whose source fails is reported in the outcome and
// contributes nothing; the returned error is non-nil only when ctx ends.
func (m Merger) Run(ctx context.Context, reg *Registry, sources [tables.SizeCount]Source) (*Outcome, error) {
	idx := NewIndex(reg)

	var (
		partials [tables.SizeCount]Partial
		failures [tables.SizeCount]*TierError
	)

	g, gctx := errgroup.WithContext(ctx)
	if m.Workers > 0 {
		g.SetLimit(m.Workers)
	}

	for _, size := range tables.Sizes {
		src := sources[size]
		g.Go(func() error {
			if src == nil {
				failures[size] = &TierError{Size: size, Err: ErrNoSource}
				return nil
			}

			rows, err := src.Rows()
			if err != nil {
				failures[size] = &TierError{Size: size, File: src.Name(), Err: err}
				return nil
			}

			partial, err := ScanTier(gctx, idx, rows)
			if err != nil {
				return err
			}
			partials[size] = partial
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	Merge(reg, partials)

	out := &Outcome{Registry: reg}
	for _, f := range failures {
		if f != nil {
			out.Failures = append(out.Failures, f)
		}
	}
	return out, nil
}
