package core

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/tablecfg/internal/core/diff"
	"github.com/JonMunkholm/tablecfg/internal/core/limits"
	"github.com/JonMunkholm/tablecfg/internal/core/params"
	"github.com/JonMunkholm/tablecfg/internal/core/tables"
	"github.com/JonMunkholm/tablecfg/internal/ingest"
	"github.com/JonMunkholm/tablecfg/internal/logging"
	"github.com/JonMunkholm/tablecfg/internal/report"
)

// SheetColumns is the narrowest parameter sheet a Compare run accepts:
// TableID followed by one column per size tier.
const SheetColumns = 1 + tables.SizeCount

// Options configures a Service.
type Options struct {
	// Workers bounds concurrent tier scans and table comparisons within a
	// run. Zero means no bound.
	Workers int

	DefaultThreshold     int
	CorrectOnlyWhenWrong bool

	// RunTimeout caps a single run. Zero means no cap beyond the caller's ctx.
	RunTimeout time.Duration

	Style report.Style
}

// Service runs Clear & Match and Compare.
type Service struct {
	opts    Options
	limiter *RunLimiter
}

// NewService creates a Service. A nil limiter gets the default bounds.
func NewService(opts Options, limiter *RunLimiter) *Service {
	if opts.DefaultThreshold == 0 {
		opts.DefaultThreshold = diff.DefaultThreshold
	}
	if opts.Style == (report.Style{}) {
		opts.Style = report.DefaultStyle()
	}
	if limiter == nil {
		limiter = NewRunLimiter(0, 0)
	}
	return &Service{opts: opts, limiter: limiter}
}

// Limiter exposes the run limiter for health reporting and shutdown.
func (s *Service) Limiter() *RunLimiter {
	return s.limiter
}

// DefaultThreshold is the threshold used when a CompareInput leaves it zero.
func (s *Service) DefaultThreshold() int {
	return s.opts.DefaultThreshold
}

// begin acquires a run slot and prepares the run context. The returned
// finish function must be called when the run ends.
func (s *Service) begin(ctx context.Context) (runCtx context.Context, runID string, finish func(), err error) {
	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, "", nil, err
	}

	runID = uuid.NewString()
	runCtx = logging.WithRunID(ctx, runID)

	cancel := context.CancelFunc(func() {})
	if s.opts.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, s.opts.RunTimeout)
	}

	return runCtx, runID, func() {
		cancel()
		release()
	}, nil
}

func (s *Service) logger(ctx context.Context, pipeline string) *slog.Logger {
	logger := logging.WithFields(ctx, "pipeline", pipeline)
	if ip := ClientIPFromContext(ctx); ip != "" {
		logger = logger.With("client_ip", ip)
	}
	return logger
}

// tierSource reads one tier export lazily, inside the merger's worker.
type tierSource struct {
	upload *Upload
}

func (t tierSource) Name() string {
	return t.upload.Name
}

func (t tierSource) Rows() ([][]string, error) {
	return ingest.ReadTierFile(t.upload.Name, t.upload.Reader)
}

// RunClear runs Clear & Match. Every file must be present. A tier export
// that fails to decode is reported in the result; a failing identifier list
// fails the run.
func (s *Service) RunClear(ctx context.Context, in ClearInput) (*ClearResult, error) {
	if missing := in.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMissingInput, strings.Join(missing, ", "))
	}

	ctx, runID, finish, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer finish()

	start := time.Now()
	logger := s.logger(ctx, "clear")
	logger.Info("run started", "ids_file", in.IDs.Name)

	ids, err := ingest.ReadIdentifiers(in.IDs.Name, in.IDs.Reader)
	if err != nil {
		logger.Error("identifier list rejected", "error", err)
		return nil, err
	}

	reg := limits.BuildRegistry(ids)
	logger.Debug("registry built", "candidates", len(ids), "valid", reg.Len())

	var sources [tables.SizeCount]limits.Source
	for _, size := range tables.Sizes {
		sources[size] = tierSource{upload: in.Tiers[size]}
	}

	out, err := limits.Merger{Workers: s.opts.Workers}.Run(ctx, reg, sources)
	if err != nil {
		logger.Warn("run aborted", "error", err)
		return nil, err
	}
	for _, f := range out.Failures {
		logger.Warn("tier skipped", "size", f.Size.Key(), "file", f.File, "error", f.Err)
	}

	rows := out.Registry.Rows()

	var buf bytes.Buffer
	if err := report.WriteClear(&buf, rows, tierNotices(out.Failures)); err != nil {
		return nil, fmt.Errorf("render clear result: %w", err)
	}

	res := &ClearResult{
		RunID:      runID,
		Rows:       rows,
		TierErrors: out.Failures,
		Workbook:   buf.Bytes(),
		Duration:   time.Since(start),
	}
	logger.Info("run finished",
		"tables", len(rows),
		"tier_errors", len(res.TierErrors),
		"duration", res.Duration,
	)
	return res, nil
}

func (in ClearInput) missing() []string {
	var names []string
	if in.IDs.missing() {
		names = append(names, "ids")
	}
	for _, size := range tables.Sizes {
		if in.Tiers[size].missing() {
			names = append(names, size.Key())
		}
	}
	return names
}

// RunCompare runs Compare: the reference sheet is parsed first-wins, the
// submission clean, and the diff is rendered with the service style.
func (s *Service) RunCompare(ctx context.Context, in CompareInput) (*CompareResult, error) {
	var missing []string
	if in.Reference.missing() {
		missing = append(missing, "reference")
	}
	if in.Submission.missing() {
		missing = append(missing, "submission")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMissingInput, strings.Join(missing, ", "))
	}

	threshold := in.Threshold
	if threshold == 0 {
		threshold = s.opts.DefaultThreshold
	}
	correctOnlyWhenWrong := s.opts.CorrectOnlyWhenWrong
	if in.CorrectOnlyWhenWrong != nil {
		correctOnlyWhenWrong = *in.CorrectOnlyWhenWrong
	}
	engine, err := diff.NewEngine(diff.Options{
		Threshold:            threshold,
		Workers:              s.opts.Workers,
		CorrectOnlyWhenWrong: correctOnlyWhenWrong,
	})
	if err != nil {
		return nil, err
	}

	ctx, runID, finish, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer finish()

	start := time.Now()
	logger := s.logger(ctx, "compare")
	logger.Info("run started",
		"reference", in.Reference.Name,
		"submission", in.Submission.Name,
		"threshold", threshold,
	)

	var ref, sub []diff.Entry
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		sheet, err := ingest.ReadSheet(in.Reference.Name, in.Reference.Reader, SheetColumns)
		if err != nil {
			return err
		}
		ref = SheetEntries(sheet, params.FirstWins)
		return nil
	})
	g.Go(func() error {
		sheet, err := ingest.ReadSheet(in.Submission.Name, in.Submission.Reader, SheetColumns)
		if err != nil {
			return err
		}
		sub = SheetEntries(sheet, params.Clean)
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("sheet rejected", "error", err)
		return nil, err
	}

	result, err := engine.Compare(ctx, ref, sub)
	if err != nil {
		logger.Warn("run aborted", "error", err)
		return nil, err
	}

	warnings := compareWarnings(result)
	for _, w := range warnings {
		logger.Warn(w.Message, "kind", w.Kind, "table_ids", w.TableIDs)
	}

	var buf bytes.Buffer
	if err := report.WriteComparison(&buf, result, s.opts.Style, warningNotices(warnings)); err != nil {
		return nil, fmt.Errorf("render comparison: %w", err)
	}

	res := &CompareResult{
		RunID:    runID,
		Diff:     result,
		Workbook: buf.Bytes(),
		Warnings: warnings,
		Duration: time.Since(start),
	}
	logger.Info("run finished",
		"tables", len(result.Rows),
		"flagged_tables", len(result.Flags),
		"duration", res.Duration,
	)
	return res, nil
}

// SheetEntries converts parameter sheet rows to diff entries. Rows with a
// blank TableID are skipped; non-text parameter cells yield empty maps.
func SheetEntries(sheet *ingest.Sheet, policy params.Policy) []diff.Entry {
	entries := make([]diff.Entry, 0, len(sheet.Rows))
	for i := range sheet.Rows {
		id := strings.TrimSpace(sheet.Cell(i, 0).Value)
		if id == "" {
			continue
		}
		e := diff.Entry{TableID: id}
		for _, size := range tables.Sizes {
			e.Tiers[size] = params.ParseCell(sheet.Cell(i, 1+int(size)), policy)
		}
		entries = append(entries, e)
	}
	return entries
}

func compareWarnings(res *diff.Result) []Warning {
	var out []Warning
	if len(res.Duplicates) > 0 {
		out = append(out, Warning{
			Kind:     WarnDuplicateTableIDs,
			Message:  "duplicate table IDs in submission were not compared",
			TableIDs: res.Duplicates,
		})
	}
	if len(res.MissingInReference) > 0 {
		out = append(out, Warning{
			Kind:     WarnMissingReference,
			Message:  "submission table IDs missing from reference",
			TableIDs: res.MissingInReference,
		})
	}
	return out
}

// NoticeTierError is the Warnings sheet kind of a skipped tier export.
const NoticeTierError = "tier_error"

func tierNotices(failures []*limits.TierError) []report.Notice {
	notices := make([]report.Notice, 0, len(failures))
	for _, f := range failures {
		notices = append(notices, report.Notice{
			Kind:    NoticeTierError,
			Message: fmt.Sprintf("%s tier skipped: %s", f.Size, FormatUserError(f.Err)),
			Items:   []string{f.File},
		})
	}
	return notices
}

func warningNotices(warnings []Warning) []report.Notice {
	notices := make([]report.Notice, 0, len(warnings))
	for _, w := range warnings {
		notices = append(notices, report.Notice{
			Kind:    string(w.Kind),
			Message: w.Message,
			Items:   w.TableIDs,
		})
	}
	return notices
}
