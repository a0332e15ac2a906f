package series_test

import (
	"errors"
	"testing"

	"github.com/okian/wbstats/internal/domain/series"
	"github.com/okian/wbstats/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGroup(t *testing.T) {
	Convey("Given observations for several countries in fetch order", t, func() {
		tb, err := table.New([]string{"Country", "Date", "Value"}, [][]table.Value{
			{"Kenya", "2022", "2099.3"},
			{"Chile", "2022", "15355.5"},
			{"Kenya", "2020", "1936.3"},
			{"Kenya", "2021", "2081.8"},
			{"Chile", "2021", ""},
		})
		So(err, ShouldBeNil)

		Convey("When grouping by country", func() {
			g, err := series.Group(tb, "Date", "Value", "Country")
			So(err, ShouldBeNil)

			Convey("Then keys are exactly the distinct countries", func() {
				So(g.Keys(), ShouldResemble, []string{"Chile", "Kenya"})
			})

			Convey("Then source order is preserved inside each group", func() {
				So(g.Points("Kenya"), ShouldResemble, []series.Point{
					{Date: "2022", Value: "2099.3"},
					{Date: "2020", Value: "1936.3"},
					{Date: "2021", Value: "2081.8"},
				})
			})

			Convey("Then values pass through uncoerced", func() {
				So(g.Points("Chile")[1].Value, ShouldEqual, "")
			})

			Convey("Then partition sizes sum to the table length", func() {
				total := 0
				for _, k := range g.Keys() {
					total += len(g.Points(k))
				}
				So(total, ShouldEqual, tb.Len())
				So(g.Len(), ShouldEqual, tb.Len())
			})

			Convey("Then unknown groups have no points", func() {
				So(g.Points("Peru"), ShouldBeNil)
			})

			Convey("Then the export lists groups in key order", func() {
				recs := g.Records()
				So(recs[0], ShouldResemble, []string{"Country", "Date", "Value"})
				So(recs[1], ShouldResemble, []string{"Chile", "2022", "15355.5"})
				So(len(recs), ShouldEqual, 6)
			})
		})

		Convey("When the group field is missing", func() {
			_, err := series.Group(tb, "Date", "Value", "Region")

			Convey("Then a missing field error is raised", func() {
				So(errors.Is(err, table.ErrMissingField), ShouldBeTrue)
			})
		})
	})
}
