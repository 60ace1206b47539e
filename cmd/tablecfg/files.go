package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tablecfg/internal/core"
)

// openedFiles tracks files opened for one run.
type openedFiles struct {
	files []*os.File
}

// open returns nil for an empty path so the service reports the missing
// input alongside any others.
func (o *openedFiles) open(path string) (*core.Upload, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	o.files = append(o.files, f)
	return &core.Upload{Name: filepath.Base(path), Reader: f}, nil
}

func (o *openedFiles) close() {
	for _, f := range o.files {
		f.Close()
	}
}

// writeWorkbook writes data to path, replacing any existing file.
func writeWorkbook(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
