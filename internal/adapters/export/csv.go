// Package export writes tabular results as delimited text and spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Recorder is anything that can render itself as a header row followed by
// data rows: tables, regional statistics, pivot matrices, grouped series.
type Recorder interface {
	Records() [][]string
}

// WriteCSV writes r as comma-separated text.
func WriteCSV(w io.Writer, r Recorder) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(r.Records()); err != nil {
		return fmt.Errorf("export: write csv: %w", err)
	}
	return nil
}

// SaveCSV writes r to path, creating parent directories.
func SaveCSV(path string, r Recorder) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export: close %s: %w", path, cerr)
		}
	}()
	return WriteCSV(f, r)
}
