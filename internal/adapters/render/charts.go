package render

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/okian/wbstats/internal/domain/pivot"
	"github.com/okian/wbstats/internal/domain/regional"
	"github.com/okian/wbstats/internal/domain/series"
	"github.com/okian/wbstats/internal/domain/table"
)

// PointMap places each row at (lon, lat) and colours it by value. Rows with
// no coordinates are skipped; rows with no value are drawn in grey.
func PointMap(t table.Table, title, lonField, latField, valueField string) (*plot.Plot, error) {
	lons, err := t.Floats(lonField)
	if err != nil {
		return nil, err
	}
	lats, err := t.Floats(latField)
	if err != nil {
		return nil, err
	}
	vals, err := t.Floats(valueField)
	if err != nil {
		return nil, err
	}

	var xys plotter.XYs
	var zs []float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range lons {
		if math.IsNaN(lons[i]) || math.IsNaN(lats[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: lons[i], Y: lats[i]})
		zs = append(zs, vals[i])
		if !math.IsNaN(vals[i]) {
			lo, hi = math.Min(lo, vals[i]), math.Max(hi, vals[i])
		}
	}
	if len(xys) == 0 {
		return nil, fmt.Errorf("%w: no rows with %s and %s", ErrNoData, lonField, latField)
	}

	if title == "" {
		title = valueField
	}
	p := newPlot(title)
	p.X.Label.Text = lonField
	p.Y.Label.Text = latField
	p.Add(plotter.NewGrid())

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("render: map: %w", err)
	}
	cols := heat()
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		gs := draw.GlyphStyle{Shape: draw.CircleGlyph{}, Radius: vg.Points(6), Color: missingColor}
		if !math.IsNaN(zs[i]) {
			gs.Color = shade(cols, zs[i], lo, hi)
		}
		return gs
	}
	p.Add(sc)
	if !math.IsInf(lo, 1) {
		p.Legend.Add(fmt.Sprintf("%s: %s .. %s", valueField, format(lo), format(hi)))
	}
	return p, nil
}

// BoxPlot draws the region's distribution using the quartiles, fences and
// outliers already held by s.
func BoxPlot(s regional.Stats) (*plot.Plot, error) {
	vals := s.Values()
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: region %q", ErrNoData, s.Region)
	}

	p := newPlot(fmt.Sprintf("%s in %s", s.ValueField, s.Region))
	p.Y.Label.Text = s.ValueField
	p.X.Label.Text = fmt.Sprintf("n=%d  mean=%s  median=%s  std=%s",
		s.Count, format(s.Mean), format(s.Median), format(s.Std))

	b, err := plotter.NewBoxPlot(vg.Points(60), 0, plotter.Values(vals))
	if err != nil {
		return nil, fmt.Errorf("render: box: %w", err)
	}
	b.Median = s.Quartiles.P50
	b.Quartile1 = s.Quartiles.P25
	b.Quartile3 = s.Quartiles.P75
	b.Outside = b.Outside[:0]
	b.AdjLow, b.AdjHigh = math.Inf(1), math.Inf(-1)
	for i, v := range b.Values {
		if s.IsOutlier(v) {
			b.Outside = append(b.Outside, i)
			continue
		}
		b.AdjLow, b.AdjHigh = math.Min(b.AdjLow, v), math.Max(b.AdjHigh, v)
	}
	if math.IsInf(b.AdjLow, 1) {
		b.AdjLow, b.AdjHigh = b.Quartile1, b.Quartile3
	}
	b.FillColor = plotutil.Color(0)
	p.Add(b)
	p.NominalX(s.Region)
	return p, nil
}

// HeatMap draws the pivot matrix with one annotated cell per category pair.
func HeatMap(m pivot.Matrix) (*plot.Plot, error) {
	if m.Empty() {
		return nil, fmt.Errorf("%w: pivot of %s", ErrNoData, m.ValueField)
	}
	g := newGrid(m)

	p := newPlot(fmt.Sprintf("Average %s by %s and %s", m.ValueField, m.RowField, m.ColField))
	p.X.Label.Text = m.ColField
	p.Y.Label.Text = m.RowField

	h := plotter.NewHeatMap(g, palette.Heat(paletteSize, 1))
	h.NaN = missingColor
	p.Add(h)

	var lxy plotter.XYs
	var labels []string
	for r := range m.Rows() {
		for c := range m.Cols() {
			cell := m.Cell(r, c)
			if cell.Missing() {
				continue
			}
			lxy = append(lxy, plotter.XY{X: float64(c), Y: float64(r)})
			labels = append(labels, strconv.FormatFloat(cell.Mean, 'f', 2, 64))
		}
	}
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: lxy, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("render: heatmap labels: %w", err)
	}
	p.Add(l)

	p.NominalX(m.Cols()...)
	p.NominalY(m.Rows()...)
	return p, nil
}

// grid adapts a pivot matrix to plotter.GridXYZ, with missing cells as NaN.
type grid struct {
	m        pivot.Matrix
	r, c     int
	min, max float64
}

func newGrid(m pivot.Matrix) grid {
	g := grid{m: m, r: len(m.Rows()), c: len(m.Cols()), min: math.Inf(1), max: math.Inf(-1)}
	for r := 0; r < g.r; r++ {
		for c := 0; c < g.c; c++ {
			if cell := m.Cell(r, c); !cell.Missing() {
				g.min, g.max = math.Min(g.min, cell.Mean), math.Max(g.max, cell.Mean)
			}
		}
	}
	if g.max <= g.min {
		g.max = g.min + 1
	}
	return g
}

func (g grid) Dims() (c, r int)   { return g.c, g.r }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }
func (g grid) Min() float64       { return g.min }
func (g grid) Max() float64       { return g.max }
func (g grid) Z(c, r int) float64 { return g.m.Cell(r, c).Mean }

// TimeSeries draws one line with point markers per group. Dates become
// nominal ticks in ascending order; non-numeric values fail, missing values
// are skipped.
func TimeSeries(g series.Grouped) (*plot.Plot, error) {
	dateSet := make(map[string]bool)
	for _, k := range g.Keys() {
		for _, pt := range g.Points(k) {
			dateSet[table.Text(pt.Date)] = true
		}
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	pos := make(map[string]int, len(dates))
	for i, d := range dates {
		pos[d] = i
	}

	p := newPlot(fmt.Sprintf("%s Over Time by %s", g.ValueField, g.GroupField))
	p.X.Label.Text = "Date"
	p.Y.Label.Text = g.ValueField
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	var lines []any
	for _, k := range g.Keys() {
		var xys plotter.XYs
		for i, pt := range g.Points(k) {
			v, err := table.Float(pt.Value)
			if err != nil {
				return nil, &table.ConversionError{Field: g.ValueField, Row: i, Value: pt.Value, Err: err}
			}
			if math.IsNaN(v) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(pos[table.Text(pt.Date)]), Y: v})
		}
		if len(xys) == 0 {
			continue
		}
		sort.SliceStable(xys, func(a, b int) bool { return xys[a].X < xys[b].X })
		lines = append(lines, k, xys)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: series of %s", ErrNoData, g.ValueField)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return nil, fmt.Errorf("render: series: %w", err)
	}
	p.NominalX(dates...)
	return p, nil
}

func format(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
