package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/okian/wbstats/internal/adapters/export"
	"github.com/okian/wbstats/internal/adapters/render"
	"github.com/okian/wbstats/pkg/metrics"
)

// Response formats selected with ?format=.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPNG  = "png"
)

var contentTypes = map[string]string{
	FormatCSV:  "text/csv; charset=utf-8",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatPNG:  "image/png",
}

// payload is one result in every shape an endpoint can return it.
type payload struct {
	name    string
	body    any
	records export.Recorder
	chart   func() (*plot.Plot, error)
	width   vg.Length
	height  vg.Length
}

// requestFormat reads ?format=, defaulting to JSON. png is only accepted when
// the endpoint has a chart.
func requestFormat(r *http.Request, charted bool) (string, error) {
	f := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	switch f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV, FormatXLSX:
		return f, nil
	case FormatPNG:
		if charted {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// respond encodes p in the requested format. Non-JSON bodies are buffered so
// an encoding failure can still be reported as an error response.
func respond(w http.ResponseWriter, r *http.Request, p payload) {
	f, err := requestFormat(r, p.chart != nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_format", err)
		return
	}
	if f == FormatJSON {
		writeJSON(w, http.StatusOK, p.body)
		return
	}

	var buf bytes.Buffer
	switch f {
	case FormatCSV:
		err = export.WriteCSV(&buf, p.records)
	case FormatXLSX:
		err = export.WriteXLSX(&buf, export.Sheet{Name: p.name, Data: p.records})
	case FormatPNG:
		var pl *plot.Plot
		if pl, err = p.chart(); err == nil {
			err = render.WritePNG(&buf, pl, p.width, p.height)
		}
	}
	if err != nil {
		writePipelineError(w, err)
		return
	}
	metrics.RecordReportWritten(p.name, f)

	w.Header().Set("Content-Type", contentTypes[f])
	if f != FormatPNG {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", p.name+"."+f))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
