package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	maxSheetName = 31
	colWidth     = 20
)

// Sheet is one worksheet of a workbook.
type Sheet struct {
	Name string
	Data Recorder
}

// WriteXLSX writes the sheets as an Excel workbook, in order. Header cells
// stay text; data cells that parse as numbers are written as numbers.
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	f, err := build(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write xlsx: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to path, creating parent directories.
func SaveXLSX(path string, sheets ...Sheet) error {
	f, err := build(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func build(sheets []Sheet) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	f := excelize.NewFile()
	seen := make(map[string]bool, len(sheets))
	for i, s := range sheets {
		name := SheetName(s.Name)
		key := strings.ToLower(name)
		if seen[key] {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSheet, name)
		}
		seen[key] = true

		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("export: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("export: %w", err)
		}
		if err := writeSheet(f, name, s.Data.Records()); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, name string, recs [][]string) error {
	width := 0
	for r, rec := range recs {
		if len(rec) > width {
			width = len(rec)
		}
		row := make([]any, len(rec))
		for c, v := range rec {
			row[c] = cellValue(v, r == 0)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("export: sheet %s row %d: %w", name, r+1, err)
		}
	}
	if width > 0 {
		last, err := excelize.ColumnNumberToName(width)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := f.SetColWidth(name, "A", last, colWidth); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return nil
}

func cellValue(v string, header bool) any {
	if header || v == "" {
		return v
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return v
}

// SheetName strips characters Excel rejects and truncates to 31 runes.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "Sheet"
	}
	if rs := []rune(name); len(rs) > maxSheetName {
		name = string(rs[:maxSheetName])
	}
	return name
}
