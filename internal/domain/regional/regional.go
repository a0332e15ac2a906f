// Package regional computes distributional statistics of one numeric column
// restricted to one region, with Tukey-fence outlier detection.
package regional

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/okian/wbstats/internal/domain/table"
)

// fenceFactor is the Tukey multiplier applied to the interquartile range.
const fenceFactor = 1.5

// Quartiles holds the 25th, 50th and 75th percentiles.
type Quartiles struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
}

// Stats describes one region's distribution of a value column.
//
// Rows counts the rows matching the region; Count counts those with a
// numeric value. Std is the sample standard deviation and is NaN when Count
// is 1.
type Stats struct {
	RegionField string
	Region      string
	ValueField  string

	Rows   int
	Count  int
	Mean   float64
	Median float64
	Std    float64
	Min    float64
	Max    float64

	Quartiles  Quartiles
	IQR        float64
	LowerFence float64
	UpperFence float64

	// Outliers are the full matching rows outside the fences, in table order.
	Outliers table.Table

	values []float64
}

// Compute filters t to rows where regionField equals region and summarizes
// valueField over them. Values are coerced once and reused for the outlier
// pass.
func Compute(t table.Table, regionField, region, valueField string) (Stats, error) {
	if _, err := t.Index(valueField); err != nil {
		return Stats{}, err
	}
	positions, err := t.Match(regionField, region)
	if err != nil {
		return Stats{}, err
	}
	if len(positions) == 0 {
		return Stats{}, &EmptyRegionError{RegionField: regionField, Region: region, ValueField: valueField}
	}

	matched := t.Subset(positions)
	nums, err := matched.Floats(valueField)
	if err != nil {
		// Report the row of t, not of the region subset.
		var ce *table.ConversionError
		if errors.As(err, &ce) {
			ce.Row = positions[ce.Row]
		}
		return Stats{}, err
	}
	data := stats.Float64Data(table.Finite(nums))
	if data.Len() == 0 {
		return Stats{}, &EmptyRegionError{RegionField: regionField, Region: region, ValueField: valueField, Rows: len(positions)}
	}

	s := Stats{
		RegionField: regionField,
		Region:      region,
		ValueField:  valueField,
		Rows:        len(positions),
		Count:       data.Len(),
		values:      append([]float64(nil), data...),
	}
	if s.Mean, err = stats.Mean(data); err != nil {
		return Stats{}, fmt.Errorf("mean: %w", err)
	}
	if s.Median, err = stats.Median(data); err != nil {
		return Stats{}, fmt.Errorf("median: %w", err)
	}
	if s.Min, err = stats.Min(data); err != nil {
		return Stats{}, fmt.Errorf("min: %w", err)
	}
	if s.Max, err = stats.Max(data); err != nil {
		return Stats{}, fmt.Errorf("max: %w", err)
	}
	s.Std = math.NaN()
	if data.Len() > 1 {
		if s.Std, err = stats.StandardDeviationSample(data); err != nil {
			return Stats{}, fmt.Errorf("std: %w", err)
		}
	}

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	s.Quartiles = Quartiles{
		P25: Quantile(sorted, 0.25),
		P50: Quantile(sorted, 0.50),
		P75: Quantile(sorted, 0.75),
	}
	s.IQR = s.Quartiles.P75 - s.Quartiles.P25
	s.LowerFence = s.Quartiles.P25 - fenceFactor*s.IQR
	s.UpperFence = s.Quartiles.P75 + fenceFactor*s.IQR

	var outside []int
	for i, v := range nums {
		if s.IsOutlier(v) {
			outside = append(outside, i)
		}
	}
	s.Outliers = matched.Subset(outside)
	return s, nil
}

// Quantile returns the p-th quantile (0..1) of sorted using linear
// interpolation between the closest order statistics. It returns NaN for an
// empty input and the single value for a one-element input.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case n == 1:
		return sorted[0]
	}
	pos := p * float64(n-1)
	if pos <= 0 {
		return sorted[0]
	}
	if pos >= float64(n-1) {
		return sorted[n-1]
	}
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if frac == 0 {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// IsOutlier reports whether v lies strictly outside the Tukey fences.
// NaN is never an outlier.
func (s Stats) IsOutlier(v float64) bool {
	return v < s.LowerFence || v > s.UpperFence
}

// Values returns the numeric values the statistics were computed over, in
// table order.
func (s Stats) Values() []float64 { return append([]float64(nil), s.values...) }

// Records renders the summary as metric/value pairs for delimited export.
func (s Stats) Records() [][]string {
	f := func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return [][]string{
		{"metric", "value"},
		{"region", s.Region},
		{"field", s.ValueField},
		{"rows", strconv.Itoa(s.Rows)},
		{"count", strconv.Itoa(s.Count)},
		{"mean", f(s.Mean)},
		{"median", f(s.Median)},
		{"std", f(s.Std)},
		{"min", f(s.Min)},
		{"max", f(s.Max)},
		{"p25", f(s.Quartiles.P25)},
		{"p50", f(s.Quartiles.P50)},
		{"p75", f(s.Quartiles.P75)},
		{"iqr", f(s.IQR)},
		{"lower_fence", f(s.LowerFence)},
		{"upper_fence", f(s.UpperFence)},
		{"outliers", strconv.Itoa(s.Outliers.Len())},
	}
}
