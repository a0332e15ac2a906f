// Package series partitions a table into per-group (date, value) sequences
// for sequential plotting.
package series

import (
	"sort"

	"github.com/okian/wbstats/internal/domain/table"
)

// Point pairs a date and a value exactly as they appear in the source table.
type Point struct {
	Date  table.Value `json:"date"`
	Value table.Value `json:"value"`
}

// Grouped holds one ordered sequence per distinct group value.
type Grouped struct {
	DateField  string
	ValueField string
	GroupField string

	keys   []string
	groups map[string][]Point
}

// Group partitions t by groupField. Row order is preserved within every
// partition; nothing is sorted by date and nothing is coerced.
func Group(t table.Table, dateField, valueField, groupField string) (Grouped, error) {
	di, err := t.Index(dateField)
	if err != nil {
		return Grouped{}, err
	}
	vi, err := t.Index(valueField)
	if err != nil {
		return Grouped{}, err
	}
	gi, err := t.Index(groupField)
	if err != nil {
		return Grouped{}, err
	}

	groups := make(map[string][]Point)
	var keys []string
	for i := 0; i < t.Len(); i++ {
		key := table.Text(t.At(i, gi))
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], Point{Date: t.At(i, di), Value: t.At(i, vi)})
	}
	sort.Strings(keys)

	return Grouped{
		DateField:  dateField,
		ValueField: valueField,
		GroupField: groupField,
		keys:       keys,
		groups:     groups,
	}, nil
}

// Keys returns the group values in ascending order.
func (g Grouped) Keys() []string { return append([]string(nil), g.keys...) }

// Points returns a copy of the sequence for key, or nil if key is unknown.
func (g Grouped) Points(key string) []Point {
	pts, ok := g.groups[key]
	if !ok {
		return nil
	}
	return append([]Point(nil), pts...)
}

// Len returns the total number of points across all groups.
func (g Grouped) Len() int {
	n := 0
	for _, pts := range g.groups {
		n += len(pts)
	}
	return n
}

// Records renders the partitions for delimited export, grouped in key order.
func (g Grouped) Records() [][]string {
	out := [][]string{{g.GroupField, g.DateField, g.ValueField}}
	for _, k := range g.keys {
		for _, p := range g.groups[k] {
			out = append(out, []string{k, table.Text(p.Date), table.Text(p.Value)})
		}
	}
	return out
}
