// Package ingest turns uploaded files into the raw tables the pipelines
// consume: the UTF-8 identifier list, the UTF-16 tier exports, and the xlsx
// parameter sheets.
//
// Every reader skips the header row and reports failures as [*FileError] so
// the operator sees which file was rejected and why.
package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding is returned when a file is not in the expected text encoding.
	ErrEncoding = errors.New("encoding error")

	// ErrEmptyFile is returned when a file has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrNoDelimiter is returned when a delimited file's header line holds
	// none of the candidate delimiters.
	ErrNoDelimiter = errors.New("could not determine delimiter")

	// ErrTooFewColumns is returned when a sheet is narrower than required.
	ErrTooFewColumns = errors.New("too few columns")
)

// FileError records a failure to ingest a named file.
type FileError struct {
	File string // Original upload name
	Op   string // "read identifiers", "read tier file", "read sheet"
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func fileError(file, op string, err error) error {
	return &FileError{File: file, Op: op, Err: err}
}
