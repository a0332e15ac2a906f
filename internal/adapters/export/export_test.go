package export_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/wbstats/internal/adapters/export"
	"github.com/okian/wbstats/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
)

type records [][]string

func (r records) Records() [][]string { return r }

func sample(t *testing.T) table.Table {
	t.Helper()
	tb, err := table.New([]string{"ID", "Name", "Value"}, [][]table.Value{
		{"KEN", "Kenya", 2099.3},
		{"CIV", "Côte d'Ivoire, Rep.", "2486.4"},
		{"TCD", "Chad", nil},
	})
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return tb
}

func TestWriteCSV(t *testing.T) {
	Convey("Given a table with a quoted name and a missing value", t, func() {
		tb := sample(t)

		Convey("When writing it as CSV", func() {
			var buf bytes.Buffer
			err := export.WriteCSV(&buf, tb)

			Convey("Then fields are quoted where needed and missing cells are empty", func() {
				So(err, ShouldBeNil)
				So(buf.String(), ShouldEqual, strings.Join([]string{
					"ID,Name,Value",
					"KEN,Kenya,2099.3",
					`CIV,"Côte d'Ivoire, Rep.",2486.4`,
					"TCD,Chad,",
					"",
				}, "\n"))
			})
		})

		Convey("When saving it under a new directory", func() {
			path := filepath.Join(t.TempDir(), "nested", "countries.csv")
			err := export.SaveCSV(path, tb)

			Convey("Then the file exists with the same content", func() {
				So(err, ShouldBeNil)
				data, rerr := os.ReadFile(path)
				So(rerr, ShouldBeNil)
				So(strings.HasPrefix(string(data), "ID,Name,Value\n"), ShouldBeTrue)
			})
		})
	})
}

func TestWriteXLSX(t *testing.T) {
	Convey("Given two recorders", t, func() {
		tb := sample(t)
		summary := records{{"metric", "value"}, {"mean", "2292.85"}, {"std", ""}}

		Convey("When writing a workbook", func() {
			var buf bytes.Buffer
			err := export.WriteXLSX(&buf,
				export.Sheet{Name: "Countries", Data: tb},
				export.Sheet{Name: "Regional: Sub-Saharan Africa", Data: summary},
			)
			So(err, ShouldBeNil)

			f, oerr := excelize.OpenReader(&buf)
			So(oerr, ShouldBeNil)
			defer f.Close()

			Convey("Then sheets appear in order with sanitized names", func() {
				So(f.GetSheetList(), ShouldResemble, []string{"Countries", "Regional_ Sub-Saharan Africa"})
			})

			Convey("Then cell text round-trips", func() {
				rows, rerr := f.GetRows("Countries")
				So(rerr, ShouldBeNil)
				So(rows[0], ShouldResemble, []string{"ID", "Name", "Value"})
				So(rows[1], ShouldResemble, []string{"KEN", "Kenya", "2099.3"})
				So(rows[3][:2], ShouldResemble, []string{"TCD", "Chad"})
			})

			Convey("Then numeric data cells are stored as numbers", func() {
				typ, terr := f.GetCellType("Countries", "C2")
				So(terr, ShouldBeNil)
				So(typ, ShouldNotEqual, excelize.CellTypeSharedString)
				raw, verr := f.GetCellValue("Countries", "C3", excelize.Options{RawCellValue: true})
				So(verr, ShouldBeNil)
				So(raw, ShouldEqual, "2486.4")
			})
		})

		Convey("When two sheets share a name", func() {
			err := export.WriteXLSX(&bytes.Buffer{},
				export.Sheet{Name: "Data", Data: tb},
				export.Sheet{Name: "data", Data: summary},
			)

			Convey("Then the workbook is rejected", func() {
				So(errors.Is(err, export.ErrDuplicateSheet), ShouldBeTrue)
			})
		})

		Convey("When no sheets are given", func() {
			Convey("Then ErrNoSheets is returned", func() {
				So(errors.Is(export.WriteXLSX(&bytes.Buffer{}), export.ErrNoSheets), ShouldBeTrue)
			})
		})

		Convey("When saving to disk", func() {
			path := filepath.Join(t.TempDir(), "out", "report.xlsx")
			err := export.SaveXLSX(path, export.Sheet{Name: "Countries", Data: tb})

			Convey("Then the file can be reopened", func() {
				So(err, ShouldBeNil)
				f, oerr := excelize.OpenFile(path)
				So(oerr, ShouldBeNil)
				So(f.Close(), ShouldBeNil)
			})
		})
	})
}

func TestSheetName(t *testing.T) {
	Convey("Given names Excel would reject", t, func() {
		Convey("Then forbidden characters are replaced", func() {
			So(export.SheetName("a/b[c]"), ShouldEqual, "a_b_c_")
		})
		Convey("Then long names are truncated to 31 characters", func() {
			So(len([]rune(export.SheetName(strings.Repeat("x", 40)))), ShouldEqual, 31)
		})
		Convey("Then empty names get a default", func() {
			So(export.SheetName("  "), ShouldEqual, "Sheet")
		})
	})
}
