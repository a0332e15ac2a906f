package report

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Defaults used by ParseFlags when the caller has none.
const (
	DefaultIndicator = "NY.GDP.PCAP.CD"
	DefaultRegion    = "Sub-Saharan Africa"
	DefaultOutDir    = "report"
)

// Flags is the parsed command line.
type Flags struct {
	Config  Config
	Verbose bool
	Help    bool
}

// ParseFlags reads args (without the program name). defaults seeds the
// values flags fall back to.
func ParseFlags(args []string, defaults Config, stderr io.Writer) (Flags, error) {
	fs := flag.NewFlagSet("wbreport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		f         Flags
		countries string
	)
	fs.StringVar(&f.Config.Indicator, "indicator", orDefault(defaults.Indicator, DefaultIndicator), "Indicator id")
	fs.StringVar(&f.Config.Date, "date", defaults.Date, "Year (2022) or range (2010:2022)")
	fs.StringVar(&f.Config.Region, "region", orDefault(defaults.Region, DefaultRegion), "Region for distribution statistics")
	fs.StringVar(&countries, "countries", strings.Join(defaults.Countries, ","), "Comma-separated country codes for the time series")
	fs.StringVar(&f.Config.OutDir, "out", orDefault(defaults.OutDir, DefaultOutDir), "Output directory")
	fs.BoolVar(&f.Verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&f.Help, "help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	f.Config.Countries = splitCodes(countries)
	return f, nil
}

func splitCodes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == ' ' })
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ShowHelp prints usage information for the report tool.
func ShowHelp() {
	os.Stdout.WriteString(`wbstats report
==============

Fetches one indicator from the World Bank API and writes charts and
exports for it.

Usage:
  wbreport [options]

Options:
  -indicator string
        Indicator id (default "NY.GDP.PCAP.CD")
  -date string
        Year or range, e.g. 2022 or 2010:2022 (default: configured default_date)
  -region string
        Region for distribution statistics (default "Sub-Saharan Africa")
  -countries string
        Comma-separated country codes for the time series (default: all)
  -out string
        Output directory (default "report")
  -verbose
        Enable debug logging
  -help
        Show this help message

Files written:
  map.png, country_indicator.csv          capitals coloured by value
  regional_box.png, regional_stats.csv,
  outliers.csv                            distribution within the region
  lending_income.png, lending_income.csv  mean by income level and lending type
  series.png, series.csv                  values over time per country
  report.xlsx                             every table above, one sheet each

Configuration is read from WBSTATS_CONFIG and WBSTATS_* variables, as for
the server.

Examples:
  wbreport -indicator NY.GDP.PCAP.CD -date 2022 -region "Sub-Saharan Africa"
  wbreport -indicator SP.POP.TOTL -date 2000:2022 -countries KEN,TCD,NGA -out ./pop
`)
}
