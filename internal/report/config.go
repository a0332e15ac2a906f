package report

import "time"

// Config holds the inputs of one report run.
type Config struct {
	Indicator string   // Indicator id, e.g. NY.GDP.PCAP.CD
	Date      string   // Year or range; empty uses the service default
	Region    string   // Region label for the distribution statistics
	Countries []string // Countries for the time series; empty means all
	OutDir    string   // Directory charts and exports are written to
}

// Stats holds run statistics.
type Stats struct {
	Files     []string
	Skipped   []string
	Countries int
	Outliers  int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
