package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"gonum.org/v1/plot"

	"github.com/okian/wbstats/internal/adapters/render"
	"github.com/okian/wbstats/internal/domain/normalize"
	"github.com/okian/wbstats/internal/domain/pivot"
	"github.com/okian/wbstats/internal/domain/regional"
	"github.com/okian/wbstats/internal/domain/series"
	"github.com/okian/wbstats/internal/domain/table"
)

// AnalysisDependencies lists the statistics pipelines.
type AnalysisDependencies interface {
	CountryIndicator(ctx context.Context, indicatorID, date string) (table.Table, error)
	RegionalStats(ctx context.Context, indicatorID, date, region string) (regional.Stats, table.Table, error)
	LendingIncome(ctx context.Context, indicatorID, date string) (pivot.Matrix, error)
	Series(ctx context.Context, indicatorID, date string, countries ...string) (series.Grouped, error)
}

// AnalysisHandler serves the regional, pivot, series and map results. Every
// route accepts ?format=json|csv|xlsx|png.
type AnalysisHandler struct {
	deps AnalysisDependencies
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(deps AnalysisDependencies) *AnalysisHandler {
	return &AnalysisHandler{deps: deps}
}

// HandleRegional handles GET /stats/regional?indicator=&date=&region=.
func (h *AnalysisHandler) HandleRegional(w http.ResponseWriter, r *http.Request) {
	q, ok := indicatorQuery(w, r, "region")
	if !ok {
		return
	}
	region := r.URL.Query().Get("region")
	s, _, err := h.deps.RegionalStats(r.Context(), q.indicator, q.date, region)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	respond(w, r, payload{
		name:    "regional_stats",
		body:    newRegionalResponse(q.indicator, q.date, s),
		records: s,
		chart:   func() (*plot.Plot, error) { return render.BoxPlot(s) },
		width:   render.BoxWidth,
		height:  render.BoxHeight,
	})
}

// HandleMap handles GET /map?indicator=&date=. JSON and delimited formats
// return the joined country table.
func (h *AnalysisHandler) HandleMap(w http.ResponseWriter, r *http.Request) {
	q, ok := indicatorQuery(w, r)
	if !ok {
		return
	}
	t, err := h.deps.CountryIndicator(r.Context(), q.indicator, q.date)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	respond(w, r, payload{
		name:    "country_indicator",
		body:    newTableResponse(t),
		records: t,
		chart: func() (*plot.Plot, error) {
			return render.PointMap(t, q.indicator, normalize.ColLongitude, normalize.ColLatitude, normalize.ColValue)
		},
		width:  render.MapWidth,
		height: render.MapHeight,
	})
}

// HandleLendingIncome handles GET /pivot/lending-income?indicator=&date=.
func (h *AnalysisHandler) HandleLendingIncome(w http.ResponseWriter, r *http.Request) {
	q, ok := indicatorQuery(w, r)
	if !ok {
		return
	}
	m, err := h.deps.LendingIncome(r.Context(), q.indicator, q.date)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	respond(w, r, payload{
		name:    "lending_income",
		body:    newPivotResponse(m),
		records: m,
		chart:   func() (*plot.Plot, error) { return render.HeatMap(m) },
		width:   render.HeatWidth,
		height:  render.HeatHeight,
	})
}

// HandleSeries handles GET /series?indicator=&date=&countries=KEN,TCD.
// Countries may be separated by commas or semicolons; none means all.
func (h *AnalysisHandler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	q, ok := indicatorQuery(w, r)
	if !ok {
		return
	}
	countries := strings.FieldsFunc(r.URL.Query().Get("countries"), func(c rune) bool {
		return c == ',' || c == ';' || c == ' '
	})
	g, err := h.deps.Series(r.Context(), q.indicator, q.date, countries...)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	respond(w, r, payload{
		name:    "series",
		body:    newSeriesResponse(g),
		records: g,
		chart:   func() (*plot.Plot, error) { return render.TimeSeries(g) },
		width:   render.SeriesWidth,
		height:  render.SeriesHeight,
	})
}

type indicatorParams struct {
	indicator string
	date      string
}

// indicatorQuery checks the method and reads indicator and date plus any
// further required parameters, writing a 400 when one is missing.
func indicatorQuery(w http.ResponseWriter, r *http.Request, required ...string) (indicatorParams, bool) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return indicatorParams{}, false
	}
	v := r.URL.Query()
	for _, name := range append([]string{"indicator"}, required...) {
		if strings.TrimSpace(v.Get(name)) == "" {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing %s", ErrBadRequest, name))
			return indicatorParams{}, false
		}
	}
	return indicatorParams{indicator: strings.TrimSpace(v.Get("indicator")), date: strings.TrimSpace(v.Get("date"))}, true
}
