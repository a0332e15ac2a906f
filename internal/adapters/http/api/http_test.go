package api_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/okian/wbstats/internal/adapters/http/api"
	"github.com/okian/wbstats/internal/adapters/worldbank"
	"github.com/okian/wbstats/internal/domain/pivot"
	"github.com/okian/wbstats/internal/domain/regional"
	"github.com/okian/wbstats/internal/domain/series"
	"github.com/okian/wbstats/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

var joinedColumns = []string{"ID", "Name", "Region", "Income Level", "Lending Type", "Longitude", "Latitude", "Country", "Date", "Value"}

func joined() table.Table {
	t, err := table.New(joinedColumns, [][]table.Value{
		{"KEN", "Kenya", "Sub-Saharan Africa", "Lower middle income", "IDA", "36.8126", "-1.27975", "Kenya", "2022", json.Number("2099.3")},
		{"TCD", "Chad", "Sub-Saharan Africa", "Low income", "IDA", "15.0445", "12.1048", "Chad", "2022", json.Number("716.8")},
		{"NGA", "Nigeria", "Sub-Saharan Africa", "Lower middle income", "Blend", "7.48906", "9.05804", "Nigeria", "2022", json.Number("2162.6")},
		{"ZAF", "South Africa", "Sub-Saharan Africa", "Upper middle income", "IBRD", "28.1871", "-25.746", "South Africa", "2022", json.Number("6766.5")},
		{"CHL", "Chile", "Latin America & Caribbean", "High income", "IBRD", "-70.6475", "-33.475", "Chile", "2022", nil},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// mockDependencies computes results from a fixed joined table with the real
// domain stages.
type mockDependencies struct {
	err          error
	gotCountries []string
	gotTopic     int
	gotQuery     string
}

func (m *mockDependencies) Countries(context.Context) (table.Table, error) {
	if m.err != nil {
		return table.Table{}, m.err
	}
	return joined(), nil
}

func (m *mockDependencies) IndicatorsByTopic(_ context.Context, topic int) (table.Table, error) {
	m.gotTopic = topic
	if m.err != nil {
		return table.Table{}, m.err
	}
	return table.New([]string{"Series ID", "Series Name"}, [][]table.Value{{"NY.GDP.PCAP.CD", "GDP per capita, \"current\" US$"}})
}

func (m *mockDependencies) SearchIndicators(_ context.Context, q string) (table.Table, error) {
	m.gotQuery = q
	if m.err != nil {
		return table.Table{}, m.err
	}
	return table.New([]string{"Series ID", "Series Name"}, nil)
}

func (m *mockDependencies) CountryIndicator(context.Context, string, string) (table.Table, error) {
	if m.err != nil {
		return table.Table{}, m.err
	}
	return joined(), nil
}

func (m *mockDependencies) RegionalStats(_ context.Context, _, _, region string) (regional.Stats, table.Table, error) {
	if m.err != nil {
		return regional.Stats{}, table.Table{}, m.err
	}
	t := joined()
	s, err := regional.Compute(t, "Region", region, "Value")
	return s, t, err
}

func (m *mockDependencies) LendingIncome(context.Context, string, string) (pivot.Matrix, error) {
	if m.err != nil {
		return pivot.Matrix{}, m.err
	}
	return pivot.LendingIncome(joined(), "Value")
}

func (m *mockDependencies) Series(_ context.Context, _, _ string, countries ...string) (series.Grouped, error) {
	m.gotCountries = countries
	if m.err != nil {
		return series.Grouped{}, m.err
	}
	return series.Group(joined(), "Date", "Value", "Country")
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"runs": 3}}).Register(context.Background(), mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then the health endpoint exposes Prometheus metrics", func() {
			_ = get(mux, "/countries")
			w := get(mux, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "wbstats_http_requests_total")
		})

		Convey("Then the stats endpoint returns service statistics", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["runs"], ShouldEqual, float64(3))
		})

		Convey("Then every response carries a request id", func() {
			w := get(mux, "/stats")
			So(w.Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			req.Header.Set(api.HeaderRequestID, "abc-123")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Header().Get(api.HeaderRequestID), ShouldEqual, "abc-123")
		})

		Convey("Then non-GET methods are not found", func() {
			req := httptest.NewRequest(http.MethodPost, "/countries", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a nil mux", t, func() {
		So(func() { api.NewServer(&mockDependencies{}, nil).Register(context.Background(), nil) }, ShouldPanic)
	})
}

func TestMetadataHandler(t *testing.T) {
	Convey("Given the metadata routes", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When listing countries as JSON", func() {
			w := get(mux, "/countries")

			Convey("Then columns and rows come back in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Columns []string `json:"columns"`
					Rows    [][]any  `json:"rows"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Columns, ShouldResemble, joinedColumns)
				So(body.Rows, ShouldHaveLength, 5)
				So(body.Rows[0][9], ShouldEqual, 2099.3)
				So(body.Rows[4][9], ShouldBeNil)
			})
		})

		Convey("When listing a topic as CSV", func() {
			w := get(mux, "/indicators?topic=3&format=csv")

			Convey("Then the CSV is quoted and offered as a download", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotTopic, ShouldEqual, 3)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/csv")
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "indicators_topic_3.csv")
				recs, err := csv.NewReader(w.Body).ReadAll()
				So(err, ShouldBeNil)
				So(recs[1][1], ShouldEqual, `GDP per capita, "current" US$`)
			})
		})

		Convey("When the topic is not a positive integer", func() {
			So(get(mux, "/indicators?topic=abc").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/indicators?topic=0").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/indicators").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When searching", func() {
			w := get(mux, "/indicators/search?q=gdp")

			Convey("Then an empty result is still a table", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotQuery, ShouldEqual, "gdp")
				So(w.Body.String(), ShouldContainSubstring, `"rows":[]`)
			})

			Convey("Then a missing query is rejected", func() {
				So(get(mux, "/indicators/search").Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When asking a table for a chart", func() {
			w := get(mux, "/countries?format=png")

			Convey("Then the format is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_format")
			})
		})
	})
}

func TestAnalysisHandler(t *testing.T) {
	Convey("Given the analysis routes", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When requesting regional statistics", func() {
			w := get(mux, "/stats/regional?indicator=NY.GDP.PCAP.CD&date=2022&region=Sub-Saharan+Africa")

			Convey("Then the summary is returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["count"], ShouldEqual, float64(4))
				So(body["region"], ShouldEqual, "Sub-Saharan Africa")
				So(body["mean"], ShouldAlmostEqual, 2936.3, 1e-9)
			})
		})

		Convey("When the region has no numeric values", func() {
			w := get(mux, "/stats/regional?indicator=X&region=Latin+America+%26+Caribbean")

			Convey("Then it is reported as not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, "empty_region")
			})
		})

		Convey("When a required parameter is absent", func() {
			So(get(mux, "/stats/regional?indicator=X").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/pivot/lending-income").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When requesting the pivot as JSON", func() {
			w := get(mux, "/pivot/lending-income?indicator=X&date=2022")

			Convey("Then missing cells are null", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Rows  []string `json:"rows"`
					Cols  []string `json:"cols"`
					Cells [][]struct {
						Mean  *float64 `json:"mean"`
						Count int      `json:"count"`
					} `json:"cells"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Rows[0], ShouldEqual, "High income")
				So(body.Cols, ShouldResemble, []string{"Blend", "IBRD", "IDA"})
				So(body.Cells[0][1].Mean, ShouldBeNil)
				So(body.Cells[0][1].Count, ShouldEqual, 0)
			})
		})

		Convey("When requesting the pivot as XLSX", func() {
			w := get(mux, "/pivot/lending-income?indicator=X&format=xlsx")

			Convey("Then a workbook with the matrix is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
				So(err, ShouldBeNil)
				defer f.Close()
				rows, err := f.GetRows("lending_income")
				So(err, ShouldBeNil)
				So(rows[0], ShouldResemble, []string{"Income Level", "Blend", "IBRD", "IDA"})
			})
		})

		Convey("When requesting charts", func() {
			for _, target := range []string{
				"/stats/regional?indicator=X&region=Sub-Saharan+Africa&format=png",
				"/pivot/lending-income?indicator=X&format=png",
				"/series?indicator=X&format=png",
				"/map?indicator=X&format=png",
			} {
				w := get(mux, target)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
				So(bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")), ShouldBeTrue)
			}
		})

		Convey("When requesting a series for named countries", func() {
			w := get(mux, "/series?indicator=X&countries=KEN,TCD;NGA")

			Convey("Then the list is split and groups come back sorted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotCountries, ShouldResemble, []string{"KEN", "TCD", "NGA"})
				So(strings.Index(w.Body.String(), `"Chad"`), ShouldBeLessThan, strings.Index(w.Body.String(), `"Kenya"`))
			})
		})

		Convey("When the map is requested as CSV", func() {
			w := get(mux, "/map?indicator=X&format=csv")

			Convey("Then missing values are empty cells", func() {
				recs, err := csv.NewReader(w.Body).ReadAll()
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 6)
				So(recs[5][9], ShouldEqual, "")
			})
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given dependencies returning pipeline errors", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{&worldbank.FetchError{Op: "countries", URL: "http://x", StatusCode: 500}, http.StatusBadGateway, "fetch"},
			{&table.ConversionError{Field: "Value", Row: 1, Value: "n/a"}, http.StatusUnprocessableEntity, "conversion"},
			{&table.MissingFieldError{Field: "Region"}, http.StatusUnprocessableEntity, "missing_field"},
			{&regional.EmptyRegionError{Region: "Atlantis"}, http.StatusNotFound, "empty_region"},
			{worldbank.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"},
			{context.DeadlineExceeded, http.StatusGatewayTimeout, "canceled"},
		}
		for _, c := range cases {
			w := get(newMux(&mockDependencies{err: c.err}), "/pivot/lending-income?indicator=X")
			So(w.Code, ShouldEqual, c.status)
			var body struct {
				Code string `json:"code"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Code, ShouldEqual, c.code)
		}
	})
}
