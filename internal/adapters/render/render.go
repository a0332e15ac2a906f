// Package render draws the pipeline's outputs with gonum/plot. It only
// presents values computed elsewhere and never derives statistics itself.
package render

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/vg"
)

// Default canvas sizes, matching the figure sizes of the notebook charts.
const (
	MapWidth     = 20 * vg.Inch
	MapHeight    = 12 * vg.Inch
	BoxWidth     = 8 * vg.Inch
	BoxHeight    = 8 * vg.Inch
	HeatWidth    = 12 * vg.Inch
	HeatHeight   = 8 * vg.Inch
	SeriesWidth  = 15 * vg.Inch
	SeriesHeight = 8 * vg.Inch
)

const paletteSize = 64

var (
	missingColor = color.Gray{Y: 200}
	titleSize    = vg.Points(16)
)

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = titleSize
	return p
}

func heat() []color.Color {
	return palette.Heat(paletteSize, 1).Colors()
}

// shade maps v within [lo, hi] onto cols.
func shade(cols []color.Color, v, lo, hi float64) color.Color {
	if hi <= lo {
		return cols[len(cols)/2]
	}
	i := int((v - lo) / (hi - lo) * float64(len(cols)-1))
	if i < 0 {
		i = 0
	}
	if i >= len(cols) {
		i = len(cols) - 1
	}
	return cols[i]
}

// WriteTo renders p in format ("png", "svg", "pdf", ...) to w.
func WriteTo(w io.Writer, p *plot.Plot, width, height vg.Length, format string) error {
	wt, err := p.WriterTo(width, height, strings.ToLower(format))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnknownFormat, format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("render: write %s: %w", format, err)
	}
	return nil
}

// WritePNG renders p as PNG to w.
func WritePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	return WriteTo(w, p, width, height, "png")
}

// Save writes p to path, inferring the format from the extension and
// creating parent directories.
func Save(path string, p *plot.Plot, width, height vg.Length) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("render: save %s: %w", path, err)
	}
	return nil
}
