// Package normalize flattens nested metadata records into tables with a fixed
// column layout.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okian/wbstats/internal/domain/table"
)

// Record is an untyped nested record as decoded from JSON.
type Record = map[string]any

// pathSeparator separates keys of a nested path, e.g. "region.value".
const pathSeparator = "."

// Lookup resolves a dotted path against rec. A key equal to the full path
// wins over nested traversal. Missing keys, null values and non-scalar
// leaves resolve to def.
func Lookup(rec Record, path string, def table.Value) table.Value {
	if rec == nil {
		return def
	}
	if v, ok := rec[path]; ok {
		return scalarOr(v, def)
	}

	var cur any = rec
	for _, key := range strings.Split(path, pathSeparator) {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		if cur, ok = m[key]; !ok {
			return def
		}
	}
	return scalarOr(cur, def)
}

func scalarOr(v any, def table.Value) table.Value {
	switch v.(type) {
	case string, float64, float32, int, int64, bool, json.Number:
		return v
	default:
		return def
	}
}

// Normalize extracts one row per record. fieldMap maps source paths to output
// column names; keep lists the output columns in order. A column in keep that
// no source path maps to is looked up under its own name. Absent values
// become "".
//
// The only error is a layout error (keep naming a column twice).
func Normalize(records []Record, fieldMap map[string]string, keep []string) (table.Table, error) {
	sources := make(map[string]string, len(keep))
	for src, out := range fieldMap {
		if prev, dup := sources[out]; dup && prev < src {
			continue // deterministic choice when two paths rename to one column
		}
		sources[out] = src
	}

	paths := make([]string, len(keep))
	for i, col := range keep {
		if src, ok := sources[col]; ok {
			paths[i] = src
		} else {
			paths[i] = col
		}
	}

	rows := make([][]table.Value, len(records))
	for i, rec := range records {
		row := make([]table.Value, len(keep))
		for j, p := range paths {
			row[j] = Lookup(rec, p, "")
		}
		rows[i] = row
	}

	t, err := table.New(keep, rows)
	if err != nil {
		return table.Table{}, fmt.Errorf("normalize: %w", err)
	}
	return t, nil
}

// Identity maps every column to itself.
func Identity(columns []string) map[string]string {
	m := make(map[string]string, len(columns))
	for _, c := range columns {
		m[c] = c
	}
	return m
}
