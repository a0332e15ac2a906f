package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

const stubCountries = `[{"page":1,"pages":1,"per_page":"50","total":3},[
 {"id":"KEN","name":"Kenya","region":{"value":"Sub-Saharan Africa"},"incomeLevel":{"value":"Lower middle income"},"lendingType":{"value":"IDA"},"capitalCity":"Nairobi","longitude":"36.8126","latitude":"-1.27975"},
 {"id":"TCD","name":"Chad","region":{"value":"Sub-Saharan Africa"},"incomeLevel":{"value":"Low income"},"lendingType":{"value":"IDA"},"capitalCity":"N'Djamena","longitude":"15.0445","latitude":"12.1048"},
 {"id":"ZAF","name":"South Africa","region":{"value":"Sub-Saharan Africa"},"incomeLevel":{"value":"Upper middle income"},"lendingType":{"value":"IBRD"},"capitalCity":"Pretoria","longitude":"28.1871","latitude":"-25.746"}
]]`

const stubObservations = `[{"page":1,"pages":1,"per_page":50,"total":3},[
 {"indicator":{"id":"NY.GDP.PCAP.CD"},"country":{"value":"Kenya"},"countryiso3code":"KEN","date":"2022","value":2099.3},
 {"indicator":{"id":"NY.GDP.PCAP.CD"},"country":{"value":"Chad"},"countryiso3code":"TCD","date":"2022","value":716.8},
 {"indicator":{"id":"NY.GDP.PCAP.CD"},"country":{"value":"South Africa"},"countryiso3code":"ZAF","date":"2022","value":6766.5}
]]`

func TestRunReport(t *testing.T) {
	convey.Convey("Given a stub World Bank API", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.Path, "/indicator/") {
				fmt.Fprint(w, stubObservations)
				return
			}
			fmt.Fprint(w, stubCountries)
		}))
		defer srv.Close()
		_ = os.Setenv("WBSTATS_API_BASE_URL", srv.URL)
		defer func() { _ = os.Unsetenv("WBSTATS_API_BASE_URL") }()
		out := t.TempDir()

		convey.Convey("When running the report command", func() {
			var stderr bytes.Buffer
			code := run(context.Background(), []string{"-region", "Sub-Saharan Africa", "-out", out}, &stderr)

			convey.Convey("Then it exits cleanly and writes the outputs", func() {
				convey.So(code, convey.ShouldEqual, 0)
				for _, name := range []string{"map.png", "regional_box.png", "lending_income.png", "series.png", "report.xlsx", "regional_stats.csv"} {
					_, err := os.Stat(filepath.Join(out, name))
					convey.So(err, convey.ShouldBeNil)
				}
				convey.So(stderr.String(), convey.ShouldContainSubstring, "report complete")
			})
		})

		convey.Convey("When the region does not exist", func() {
			var stderr bytes.Buffer
			code := run(context.Background(), []string{"-region", "Atlantis", "-out", out}, &stderr)

			convey.Convey("Then it fails naming the region", func() {
				convey.So(code, convey.ShouldEqual, 1)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "Atlantis")
			})
		})

		convey.Convey("When flags are invalid", func() {
			var stderr bytes.Buffer
			convey.So(run(context.Background(), []string{"-nope"}, &stderr), convey.ShouldEqual, 2)
		})
	})
}
