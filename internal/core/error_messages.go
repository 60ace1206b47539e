package core

// Error codes are grouped by category. Operators quote the code when
// reporting a problem; the mapping below is the reference.
//
//	FILE001 file too large          FILE005 empty file
//	FILE002 invalid csv             FILE006 invalid workbook
//	FILE003 encoding error          FILE007 too few columns
//	FILE004 missing upload          FILE008 malformed upload form
//
//	CMP001 threshold out of range
//
//	RUN001 too many concurrent runs
//	RUN002 run cancelled
//	RUN003 run timed out
//
//	RATE001 rate limited
//	ERR000  anything else; check the logs for the technical error
//
// Sentinel errors are matched with errors.Is first. Messages that cross a
// process boundary lose their identity, so each entry also carries a
// lower-case pattern matched against the error text. The first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tablecfg/internal/core/diff"
	"github.com/JonMunkholm/tablecfg/internal/core/limits"
	"github.com/JonMunkholm/tablecfg/internal/ingest"
)

// UserMessage is what an operator sees for a failed run.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	target  error
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		target:  ErrFileTooLarge,
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Trim the export or raise the upload limit",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid delimited text export",
			Action:  "Re-export the file as CSV with consistent quoting",
			Code:    "FILE002",
		},
	},
	{
		target:  ingest.ErrNoDelimiter,
		pattern: "could not determine delimiter",
		msg: UserMessage{
			Message: "File is not a valid delimited text export",
			Action:  "Check that tier exports are saved as UTF-16 text with comma, tab, semicolon or pipe separators",
			Code:    "FILE002",
		},
	},
	{
		target:  ingest.ErrEncoding,
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File is not in the expected text encoding",
			Action:  "Save the identifier list as UTF-8 and tier exports as UTF-16",
			Code:    "FILE003",
		},
	},
	{
		target:  ErrMissingInput,
		pattern: "please upload all files",
		msg: UserMessage{
			Message: "One or more required files were not uploaded",
			Action:  "Please upload all files",
			Code:    "FILE004",
		},
	},
	{
		target:  limits.ErrNoSource,
		pattern: "no file provided",
		msg: UserMessage{
			Message: "One or more required files were not uploaded",
			Action:  "Please upload all files",
			Code:    "FILE004",
		},
	},
	{
		target:  ingest.ErrEmptyFile,
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row and data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "invalid workbook",
		msg: UserMessage{
			Message: "File is not a readable xlsx workbook",
			Action:  "Save the parameter sheet as .xlsx and upload it again",
			Code:    "FILE006",
		},
	},
	{
		target:  ingest.ErrTooFewColumns,
		pattern: "too few columns",
		msg: UserMessage{
			Message: "Sheet does not have the expected columns",
			Action:  "The first sheet needs TableID followed by Large, Medium, Small and XSmall columns",
			Code:    "FILE007",
		},
	},
	{
		pattern: "invalid upload form",
		msg: UserMessage{
			Message: "Request is not a valid file upload",
			Action:  "Submit the files with the upload form or as multipart/form-data",
			Code:    "FILE008",
		},
	},
	{
		target:  diff.ErrInvalidThreshold,
		pattern: "invalid threshold",
		msg: UserMessage{
			Message: "Wrong threshold is out of range",
			Action:  fmt.Sprintf("Choose a threshold between %d and %d", diff.MinThreshold, diff.MaxThreshold),
			Code:    "CMP001",
		},
	},
	{
		target:  ErrTooManyRuns,
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "System is busy with other runs",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		target:  context.Canceled,
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Run was cancelled",
			Action:  "Start the run again when ready",
			Code:    "RUN002",
		},
	},
	{
		target:  context.DeadlineExceeded,
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Run timed out",
			Action:  "Try smaller files or raise the run timeout",
			Code:    "RUN003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator message. Unknown errors
// map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	for _, ep := range errorPatterns {
		if ep.target != nil && errors.Is(err, ep.target) {
			return ep.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logs, with its operator message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
