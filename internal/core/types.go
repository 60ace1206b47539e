package core

import (
	"errors"
	"io"
	"time"

	"github.com/JonMunkholm/tablecfg/internal/core/diff"
	"github.com/JonMunkholm/tablecfg/internal/core/limits"
	"github.com/JonMunkholm/tablecfg/internal/core/tables"
)

var (
	// ErrMissingInput is returned before a run starts when a required file
	// was not supplied.
	ErrMissingInput = errors.New("please upload all files")

	// ErrFileTooLarge is returned by transports that cap upload size.
	ErrFileTooLarge = errors.New("file too large")
)

// Upload is a named input file.
type Upload struct {
	Name   string
	Reader io.Reader
}

func (u *Upload) missing() bool {
	return u == nil || u.Reader == nil
}

// ClearInput holds the files of one Clear & Match run.
type ClearInput struct {
	IDs   *Upload
	Tiers [tables.SizeCount]*Upload
}

// ClearResult is the outcome of a Clear & Match run.
type ClearResult struct {
	RunID      string
	Rows       [][]string // limits.Header order
	TierErrors []*limits.TierError
	Workbook   []byte
	Duration   time.Duration
}

// CompareInput holds the files of one Compare run. A zero Threshold selects
// the service default; CorrectOnlyWhenWrong nil selects the service default.
type CompareInput struct {
	Reference            *Upload
	Submission           *Upload
	Threshold            int
	CorrectOnlyWhenWrong *bool
}

// CompareResult is the outcome of a Compare run.
type CompareResult struct {
	RunID    string
	Diff     *diff.Result
	Workbook []byte
	Warnings []Warning
	Duration time.Duration
}

// WarningKind names a data-quality problem that did not abort a run.
type WarningKind string

const (
	WarnDuplicateTableIDs WarningKind = "duplicate_table_ids"
	WarnMissingReference  WarningKind = "missing_in_reference"
)

// Warning lists the table IDs affected by one data-quality problem.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Message  string      `json:"message"`
	TableIDs []string    `json:"table_ids"`
}
