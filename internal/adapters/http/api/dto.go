package api

import (
	"math"

	"github.com/okian/wbstats/internal/domain/pivot"
	"github.com/okian/wbstats/internal/domain/regional"
	"github.com/okian/wbstats/internal/domain/series"
	"github.com/okian/wbstats/internal/domain/table"
)

// number is a float that encodes NaN and infinities as null.
type number = *float64

func num(v float64) number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type tableResponse struct {
	Columns []string        `json:"columns"`
	Rows    [][]table.Value `json:"rows"`
}

func newTableResponse(t table.Table) tableResponse {
	rows := make([][]table.Value, t.Len())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return tableResponse{Columns: t.Columns(), Rows: rows}
}

type quartilesResponse struct {
	P25 number `json:"p25"`
	P50 number `json:"p50"`
	P75 number `json:"p75"`
}

type regionalResponse struct {
	Indicator  string            `json:"indicator"`
	Date       string            `json:"date,omitempty"`
	Region     string            `json:"region"`
	Field      string            `json:"field"`
	Rows       int               `json:"rows"`
	Count      int               `json:"count"`
	Mean       number            `json:"mean"`
	Median     number            `json:"median"`
	Std        number            `json:"std"`
	Min        number            `json:"min"`
	Max        number            `json:"max"`
	Quartiles  quartilesResponse `json:"quartiles"`
	IQR        number            `json:"iqr"`
	LowerFence number            `json:"lowerFence"`
	UpperFence number            `json:"upperFence"`
	Outliers   tableResponse     `json:"outliers"`
}

func newRegionalResponse(indicator, date string, s regional.Stats) regionalResponse {
	return regionalResponse{
		Indicator: indicator,
		Date:      date,
		Region:    s.Region,
		Field:     s.ValueField,
		Rows:      s.Rows,
		Count:     s.Count,
		Mean:      num(s.Mean),
		Median:    num(s.Median),
		Std:       num(s.Std),
		Min:       num(s.Min),
		Max:       num(s.Max),
		Quartiles: quartilesResponse{
			P25: num(s.Quartiles.P25),
			P50: num(s.Quartiles.P50),
			P75: num(s.Quartiles.P75),
		},
		IQR:        num(s.IQR),
		LowerFence: num(s.LowerFence),
		UpperFence: num(s.UpperFence),
		Outliers:   newTableResponse(s.Outliers),
	}
}

type cellResponse struct {
	Mean  number `json:"mean"`
	Count int    `json:"count"`
}

type pivotResponse struct {
	RowField   string           `json:"rowField"`
	ColField   string           `json:"colField"`
	ValueField string           `json:"valueField"`
	Rows       []string         `json:"rows"`
	Cols       []string         `json:"cols"`
	Cells      [][]cellResponse `json:"cells"`
}

func newPivotResponse(m pivot.Matrix) pivotResponse {
	out := pivotResponse{
		RowField:   m.RowField,
		ColField:   m.ColField,
		ValueField: m.ValueField,
		Rows:       m.Rows(),
		Cols:       m.Cols(),
	}
	out.Cells = make([][]cellResponse, len(out.Rows))
	for r := range out.Rows {
		out.Cells[r] = make([]cellResponse, len(out.Cols))
		for c := range out.Cols {
			cell := m.Cell(r, c)
			out.Cells[r][c] = cellResponse{Mean: num(cell.Mean), Count: cell.Count}
		}
	}
	return out
}

type groupResponse struct {
	Key    string         `json:"key"`
	Points []series.Point `json:"points"`
}

type seriesResponse struct {
	GroupField string          `json:"groupField"`
	DateField  string          `json:"dateField"`
	ValueField string          `json:"valueField"`
	Groups     []groupResponse `json:"groups"`
}

func newSeriesResponse(g series.Grouped) seriesResponse {
	out := seriesResponse{
		GroupField: g.GroupField,
		DateField:  g.DateField,
		ValueField: g.ValueField,
		Groups:     make([]groupResponse, 0, len(g.Keys())),
	}
	for _, k := range g.Keys() {
		out.Groups = append(out.Groups, groupResponse{Key: k, Points: g.Points(k)})
	}
	return out
}
