package worldbank_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/okian/wbstats/internal/adapters/worldbank"
	. "github.com/smartystreets/goconvey/convey"
)

// pagedServer serves records split into pages of size per, in the API's
// [meta, records] envelope. per_page comes back as a string, as it does for
// the country endpoint.
func pagedServer(t *testing.T, wantPath string, records []map[string]any, per int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != wantPath {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("format") != "json" {
			http.Error(w, "xml", http.StatusBadRequest)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages := (len(records) + per - 1) / per
		lo := (page - 1) * per
		hi := lo + per
		if hi > len(records) {
			hi = len(records)
		}
		var chunk any
		if lo < hi {
			chunk = records[lo:hi]
		}
		_ = json.NewEncoder(w).Encode([]any{
			map[string]any{"page": page, "pages": pages, "per_page": strconv.Itoa(per), "total": len(records)},
			chunk,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func country(id, name, region string) map[string]any {
	return map[string]any{
		"id":     id,
		"name":   name,
		"region": map[string]any{"id": "X", "value": region},
	}
}

func TestCountries(t *testing.T) {
	Convey("Given an API serving five countries two per page", t, func() {
		recs := []map[string]any{
			country("KEN", "Kenya", "Sub-Saharan Africa"),
			country("CHL", "Chile", "Latin America & Caribbean"),
			country("NPL", "Nepal", "South Asia"),
			country("DEU", "Germany", "Europe & Central Asia"),
			country("TCD", "Chad", "Sub-Saharan Africa"),
		}
		srv, hits := pagedServer(t, "/country", recs, 2)
		c := worldbank.New(worldbank.WithBaseURL(srv.URL+"/"), worldbank.WithPerPage(2))

		Convey("When fetching countries", func() {
			got, err := c.Countries(context.Background())

			Convey("Then every page is followed and order is kept", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 5)
				So(atomic.LoadInt32(hits), ShouldEqual, 3)
				So(got[0]["id"], ShouldEqual, "KEN")
				So(got[4]["id"], ShouldEqual, "TCD")
			})

			Convey("Then nested objects survive decoding", func() {
				region, ok := got[2]["region"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(region["value"], ShouldEqual, "South Asia")
			})
		})

		Convey("When the page cap is lower than the page count", func() {
			capped := worldbank.New(worldbank.WithBaseURL(srv.URL), worldbank.WithPerPage(2), worldbank.WithMaxPages(2))
			got, err := capped.Countries(context.Background())

			Convey("Then the fetch fails instead of returning partial data", func() {
				So(got, ShouldBeNil)
				So(errors.Is(err, worldbank.ErrFetch), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "more than 2 pages")
			})
		})
	})
}

func TestObservations(t *testing.T) {
	Convey("Given an API serving indicator values", t, func() {
		var gotPath, gotDate string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			gotDate = r.URL.Query().Get("date")
			fmt.Fprint(w, `[{"page":1,"pages":1,"per_page":50,"total":2},[
				{"indicator":{"id":"NY.GDP.PCAP.CD","value":"GDP per capita"},"country":{"id":"KE","value":"Kenya"},"countryiso3code":"KEN","date":"2022","value":2099.3},
				{"indicator":{"id":"NY.GDP.PCAP.CD","value":"GDP per capita"},"country":{"id":"TD","value":"Chad"},"countryiso3code":"TCD","date":"2022","value":null}
			]]`)
		}))
		defer srv.Close()
		c := worldbank.New(worldbank.WithBaseURL(srv.URL))

		Convey("When fetching for named countries and a date", func() {
			got, err := c.Observations(context.Background(), "NY.GDP.PCAP.CD", "2022", "KEN", "TCD")

			Convey("Then the request targets the country list and date", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/country/KEN;TCD/indicator/NY.GDP.PCAP.CD")
				So(gotDate, ShouldEqual, "2022")
			})

			Convey("Then numbers are kept as json numbers and nulls as nil", func() {
				So(got[0]["value"], ShouldEqual, json.Number("2099.3"))
				So(got[1]["value"], ShouldBeNil)
			})
		})

		Convey("When no country is named", func() {
			_, err := c.Observations(context.Background(), "SP.POP.TOTL", "")

			Convey("Then all countries are requested without a date filter", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/country/all/indicator/SP.POP.TOTL")
				So(gotDate, ShouldEqual, "")
			})
		})
	})
}

func TestEmptyResult(t *testing.T) {
	Convey("Given an API with no data for a query", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"page":0,"pages":0,"per_page":"50","total":0},null]`)
		}))
		defer srv.Close()

		Convey("Then an empty, non-nil slice is returned", func() {
			got, err := worldbank.New(worldbank.WithBaseURL(srv.URL)).IndicatorsByTopic(context.Background(), 99)
			So(err, ShouldBeNil)
			So(got, ShouldNotBeNil)
			So(len(got), ShouldEqual, 0)
		})
	})
}

func TestFetchErrors(t *testing.T) {
	Convey("Given an API returning an error envelope", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"message":[{"id":"120","key":"Invalid value","value":"The provided parameter value is not valid"}]}]`)
		}))
		defer srv.Close()

		Convey("Then the messages surface on a FetchError", func() {
			_, err := worldbank.New(worldbank.WithBaseURL(srv.URL)).Observations(context.Background(), "BAD.ID", "2022")
			var fe *worldbank.FetchError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Op, ShouldEqual, worldbank.OpObservations)
			So(fe.Messages, ShouldHaveLength, 1)
			So(fe.Messages[0].ID, ShouldEqual, "120")
			So(errors.Is(err, worldbank.ErrFetch), ShouldBeTrue)
		})
	})

	Convey("Given an API answering with a server error", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))
		defer srv.Close()

		Convey("Then the status code is reported", func() {
			_, err := worldbank.New(worldbank.WithBaseURL(srv.URL)).Countries(context.Background())
			var fe *worldbank.FetchError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.StatusCode, ShouldEqual, http.StatusBadGateway)
			So(err.Error(), ShouldContainSubstring, "status 502")
		})
	})

	Convey("Given an API returning a body that is not an envelope", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>maintenance</html>`)
		}))
		defer srv.Close()

		Convey("Then decoding fails as a fetch error", func() {
			_, err := worldbank.New(worldbank.WithBaseURL(srv.URL)).Countries(context.Background())
			So(errors.Is(err, worldbank.ErrFetch), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "malformed")
		})
	})

	Convey("Given a cancelled context", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"page":1,"pages":1},[]]`)
		}))
		defer srv.Close()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Then the transport error is wrapped", func() {
			_, err := worldbank.New(worldbank.WithBaseURL(srv.URL)).Countries(ctx)
			So(errors.Is(err, worldbank.ErrFetch), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestSearchIndicators(t *testing.T) {
	Convey("Given an API listing indicators", t, func() {
		recs := []map[string]any{
			{"id": "NY.GDP.PCAP.CD", "name": "GDP per capita (current US$)"},
			{"id": "SP.POP.TOTL", "name": "Population, total"},
			{"id": "NY.GDP.MKTP.CD", "name": "GDP (current US$)"},
		}
		srv, _ := pagedServer(t, "/indicator", recs, 2)
		c := worldbank.New(worldbank.WithBaseURL(srv.URL), worldbank.WithPerPage(2))

		Convey("When searching case-insensitively", func() {
			got, err := c.SearchIndicators(context.Background(), "gdp")

			Convey("Then only matching names come back in API order", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0]["id"], ShouldEqual, "NY.GDP.PCAP.CD")
				So(got[1]["id"], ShouldEqual, "NY.GDP.MKTP.CD")
			})
		})

		Convey("When nothing matches", func() {
			got, err := c.SearchIndicators(context.Background(), "^zzz")

			Convey("Then the result is empty, not an error", func() {
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When the pattern is invalid", func() {
			_, err := c.SearchIndicators(context.Background(), "gdp(")

			Convey("Then ErrInvalidQuery is returned before any request", func() {
				So(errors.Is(err, worldbank.ErrInvalidQuery), ShouldBeTrue)
				So(strings.Contains(err.Error(), "gdp("), ShouldBeTrue)
			})
		})
	})
}
