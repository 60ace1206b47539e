package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/tablecfg/internal/core/diff"
	"github.com/JonMunkholm/tablecfg/internal/ingest"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "wrapped encoding sentinel",
			err:      &ingest.FileError{File: "large.csv", Op: "read tier file", Err: ingest.ErrEncoding},
			wantCode: "FILE003",
		},
		{
			name:     "encoding error text",
			err:      errors.New("read identifiers \"ids.csv\": encoding error: invalid UTF-8 at byte 4"),
			wantCode: "FILE003",
		},
		{
			name:     "invalid csv",
			err:      errors.New("invalid csv: record on line 3: wrong number of fields"),
			wantCode: "FILE002",
		},
		{
			name:     "missing upload",
			err:      fmt.Errorf("clear: %w", ErrMissingInput),
			wantCode: "FILE004",
		},
		{
			name:     "empty file",
			err:      fmt.Errorf("read sheet: %w", ingest.ErrEmptyFile),
			wantCode: "FILE005",
		},
		{
			name:     "invalid workbook",
			err:      errors.New("read sheet \"a.xlsx\": invalid workbook: zip: not a valid zip file"),
			wantCode: "FILE006",
		},
		{
			name:     "too few columns",
			err:      fmt.Errorf("x: %w", ingest.ErrTooFewColumns),
			wantCode: "FILE007",
		},
		{
			name:     "no delimiter",
			err:      fmt.Errorf("read tier file: %w", ingest.ErrNoDelimiter),
			wantCode: "FILE002",
		},
		{
			name:     "malformed form",
			err:      errors.New("invalid upload form: request Content-Type isn't multipart/form-data"),
			wantCode: "FILE008",
		},
		{
			name:     "threshold",
			err:      diff.ValidateThreshold(40),
			wantCode: "CMP001",
		},
		{
			name:     "busy",
			err:      ErrTooManyRuns,
			wantCode: "RUN001",
		},
		{
			name:     "cancelled beats text match",
			err:      fmt.Errorf("scan cancelled at row 1: %w", context.Canceled),
			wantCode: "RUN002",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("compare cancelled: %w", context.DeadlineExceeded),
			wantCode: "RUN003",
		},
		{
			name:     "rate limit",
			err:      errors.New("rate limit exceeded"),
			wantCode: "RATE001",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("FILE TOO LARGE"),
			wantCode: "FILE001",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err); got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrTooManyRuns)
	want := "System is busy with other runs (Code: RUN001). Please wait a moment and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"known error", ingest.ErrEmptyFile, true},
		{"unknown error", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	techErr := fmt.Errorf("read sheet: %w", ingest.ErrEmptyFile)
	userErr := NewUserError(techErr)

	if userErr.Error() != "The uploaded file is empty" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if !errors.Is(userErr, ingest.ErrEmptyFile) {
		t.Error("Unwrap() should expose the technical error")
	}
	if got := MapError(fmt.Errorf("outer: %w", userErr)); got.Code != "FILE005" {
		t.Errorf("MapError(wrapped UserError) = %q", got.Code)
	}
}
