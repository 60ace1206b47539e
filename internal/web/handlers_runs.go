package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tablecfg/internal/core"
	"github.com/JonMunkholm/tablecfg/internal/core/diff"
	"github.com/JonMunkholm/tablecfg/internal/core/limits"
	"github.com/JonMunkholm/tablecfg/internal/core/tables"
	"github.com/JonMunkholm/tablecfg/internal/report"
	"github.com/JonMunkholm/tablecfg/internal/web/middleware"
)

const (
	// Form fields of the Compare run.
	fieldReference  = "file_a"
	fieldSubmission = "file_b"
	fieldThreshold  = "threshold"
	fieldCorrect    = "correct_only_when_wrong"

	// Form field of the Clear & Match identifier list. Tier exports use
	// the size key.
	fieldIDs = "ids"

	// formOverhead allows for multipart boundaries and plain fields on top
	// of the file parts.
	formOverhead = 1 << 20

	// memoryLimit is how much of a form is kept in memory before parts
	// spill to temporary files.
	memoryLimit = 32 << 20
)

// Response headers describing a run that returned a workbook.
const (
	headerTierErrors         = "X-Tier-Errors"
	headerDuplicates         = "X-Duplicate-Table-IDs"
	headerMissingInReference = "X-Missing-In-Reference"
)

var errInvalidForm = errors.New("invalid upload form")

// ClearResponse is the JSON result of a Clear & Match run.
type ClearResponse struct {
	RunID      string              `json:"run_id"`
	Header     []string            `json:"header"`
	Rows       [][]string          `json:"rows"`
	TierErrors []TierErrorResponse `json:"tier_errors"`
	DurationMs int64               `json:"duration_ms"`
}

// TierErrorResponse describes a tier export that was skipped.
type TierErrorResponse struct {
	Size  string `json:"size"`
	File  string `json:"file"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CompareResponse is the JSON result of a Compare run. Flags maps a table ID
// to the size keys of its flagged tiers.
type CompareResponse struct {
	RunID      string              `json:"run_id"`
	Threshold  int                 `json:"threshold"`
	Header     []string            `json:"header"`
	Rows       [][]string          `json:"rows"`
	Flags      map[string][]string `json:"flags"`
	Warnings   []core.Warning      `json:"warnings"`
	DurationMs int64               `json:"duration_ms"`
}

// uploads holds the files of one multipart request.
type uploads struct {
	form  *multipart.Form
	files map[string]*core.Upload
	open  []multipart.File
}

func (u *uploads) get(field string) *core.Upload {
	return u.files[field]
}

func (u *uploads) close() {
	for _, f := range u.open {
		f.Close()
	}
	if u.form != nil {
		u.form.RemoveAll()
	}
}

// readUploads parses the multipart body and opens the named file fields.
// Fields left empty are absent from the result so the service can report
// every missing file at once.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request, fields []string) (*uploads, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize*int64(len(fields))+formOverhead)

	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %v", errInvalidForm, err)
	}

	u := &uploads{form: r.MultipartForm, files: make(map[string]*core.Upload, len(fields))}
	for _, field := range fields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			u.close()
			return nil, fmt.Errorf("%w: %s: %v", errInvalidForm, field, err)
		}
		u.open = append(u.open, file)

		if header.Size > maxSize {
			u.close()
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", core.ErrFileTooLarge, header.Filename, header.Size, maxSize)
		}
		u.files[field] = &core.Upload{Name: header.Filename, Reader: file}
	}
	return u, nil
}

func clearFields() []string {
	fields := []string{fieldIDs}
	for _, size := range tables.Sizes {
		fields = append(fields, size.Key())
	}
	return fields
}

// handleClear runs Clear & Match on the uploaded identifier list and tier
// exports.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r, clearFields())
	if err != nil {
		s.runError(w, r, err)
		return
	}
	defer files.close()

	in := core.ClearInput{IDs: files.get(fieldIDs)}
	for _, size := range tables.Sizes {
		in.Tiers[size] = files.get(size.Key())
	}

	res, err := s.service.RunClear(withRequestMetadata(r.Context(), r), in)
	if err != nil {
		s.runError(w, r, err)
		return
	}

	w.Header().Set(middleware.RunIDHeader, res.RunID)
	tierErrors := make([]TierErrorResponse, 0, len(res.TierErrors))
	var failed []string
	for _, te := range res.TierErrors {
		failed = append(failed, te.Size.Key())
		tierErrors = append(tierErrors, TierErrorResponse{
			Size:  te.Size.Key(),
			File:  te.File,
			Error: te.Err.Error(),
			Code:  core.MapError(te.Err).Code,
		})
	}

	if wantsJSON(r) {
		rows := res.Rows
		if rows == nil {
			rows = [][]string{}
		}
		writeJSON(w, http.StatusOK, ClearResponse{
			RunID:      res.RunID,
			Header:     clearHeader(),
			Rows:       rows,
			TierErrors: tierErrors,
			DurationMs: res.Duration.Milliseconds(),
		})
		return
	}

	setListHeader(w, headerTierErrors, failed)
	sendWorkbook(w, report.ClearFileName, res.Workbook)
}

// handleCompare runs Compare on the uploaded reference (file_a) and
// submission (file_b) sheets.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r, []string{fieldReference, fieldSubmission})
	if err != nil {
		s.runError(w, r, err)
		return
	}
	defer files.close()

	in := core.CompareInput{
		Reference:  files.get(fieldReference),
		Submission: files.get(fieldSubmission),
	}
	if in.Threshold, err = parseThreshold(r.FormValue(fieldThreshold)); err != nil {
		s.runError(w, r, err)
		return
	}
	// The page sends a hidden "false" after the checkbox; FormValue takes
	// the first value.
	if v := r.FormValue(fieldCorrect); v != "" {
		b := parseCheckbox(v)
		in.CorrectOnlyWhenWrong = &b
	}

	res, err := s.service.RunCompare(withRequestMetadata(r.Context(), r), in)
	if err != nil {
		s.runError(w, r, err)
		return
	}

	w.Header().Set(middleware.RunIDHeader, res.RunID)

	if wantsJSON(r) {
		flags := make(map[string][]string, len(res.Diff.Flags))
		for id, sizes := range res.Diff.Flags {
			keys := make([]string, len(sizes))
			for i, size := range sizes {
				keys[i] = size.Key()
			}
			flags[id] = keys
		}
		warnings := res.Warnings
		if warnings == nil {
			warnings = []core.Warning{}
		}
		writeJSON(w, http.StatusOK, CompareResponse{
			RunID:      res.RunID,
			Threshold:  res.Diff.Threshold,
			Header:     diff.Header(),
			Rows:       res.Diff.Table(),
			Flags:      flags,
			Warnings:   warnings,
			DurationMs: res.Duration.Milliseconds(),
		})
		return
	}

	setListHeader(w, headerDuplicates, res.Diff.Duplicates)
	setListHeader(w, headerMissingInReference, res.Diff.MissingInReference)
	sendWorkbook(w, report.ComparisonFileName, res.Workbook)
}

// runError answers a failed run. A busy service asks the client to retry.
func (s *Server) runError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.Upload.MaxWaitTime.Seconds())))
	}
	respondError(w, r, err, status)
}

// parseThreshold reads the threshold field. Empty selects the default.
func parseThreshold(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", diff.ErrInvalidThreshold, v)
	}
	if err := diff.ValidateThreshold(n); err != nil {
		return 0, err
	}
	return n, nil
}

func parseCheckbox(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func clearHeader() []string {
	return append([]string(nil), limits.Header...)
}

func sendWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// setListHeader joins values into a single header. Values come from uploaded
// files, so line breaks are stripped.
func setListHeader(w http.ResponseWriter, name string, values []string) {
	if len(values) == 0 {
		return
	}
	clean := strings.NewReplacer("\r", "", "\n", "")
	w.Header().Set(name, clean.Replace(strings.Join(values, ",")))
}
