// Package report runs the full statistics pipeline for one indicator and
// writes its charts and exports to a directory.
package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/okian/wbstats/internal/adapters/export"
	"github.com/okian/wbstats/internal/adapters/render"
	"github.com/okian/wbstats/internal/domain/normalize"
	"github.com/okian/wbstats/internal/domain/pivot"
	"github.com/okian/wbstats/internal/domain/regional"
	"github.com/okian/wbstats/internal/domain/series"
	"github.com/okian/wbstats/internal/domain/table"
	"github.com/okian/wbstats/pkg/logger"
	"github.com/okian/wbstats/pkg/metrics"
)

// Workbook is the name of the spreadsheet holding every table.
const Workbook = "report.xlsx"

// Pipeline is the set of service operations a report needs.
type Pipeline interface {
	CountryIndicator(ctx context.Context, indicatorID, date string) (table.Table, error)
	RegionalStatsFor(ctx context.Context, joined table.Table, region string) (regional.Stats, error)
	LendingIncomeFor(ctx context.Context, joined table.Table) (pivot.Matrix, error)
	Series(ctx context.Context, indicatorID, date string, countries ...string) (series.Grouped, error)
}

type runner struct {
	cfg    *Config
	stats  *Stats
	log    logger.Logger
	sheets []export.Sheet
}

// Run executes the complete report. Countries and observations are fetched
// once; the regional and pivot steps reuse the joined table. A chart with
// nothing to plot is skipped and listed in Stats.Skipped; any other failure
// aborts the run.
func Run(ctx context.Context, p Pipeline, cfg *Config, log logger.Logger) (*Stats, error) {
	if cfg == nil || strings.TrimSpace(cfg.Indicator) == "" {
		return nil, fmt.Errorf("%w: indicator is required", ErrConfig)
	}
	if strings.TrimSpace(cfg.OutDir) == "" {
		return nil, fmt.Errorf("%w: output directory is required", ErrConfig)
	}
	if log == nil {
		log = logger.Nop()
	}
	r := &runner{cfg: cfg, stats: &Stats{StartTime: time.Now()}, log: log}

	log.Info(ctx, "starting report",
		logger.String("indicator", cfg.Indicator),
		logger.String("date", cfg.Date),
		logger.String("region", cfg.Region),
		logger.Int("countries", len(cfg.Countries)),
		logger.String("out", cfg.OutDir),
	)

	// Step 1: Country map
	joined, err := p.CountryIndicator(ctx, cfg.Indicator, cfg.Date)
	if err != nil {
		return nil, fmt.Errorf("country indicator: %w", err)
	}
	r.stats.Countries = joined.Len()
	if err := r.chart(ctx, "map", "map.png", render.MapWidth, render.MapHeight, func() (*plot.Plot, error) {
		return render.PointMap(joined, cfg.Indicator, normalize.ColLongitude, normalize.ColLatitude, normalize.ColValue)
	}); err != nil {
		return nil, err
	}
	if err := r.table(ctx, "country_indicator", joined); err != nil {
		return nil, err
	}

	// Step 2: Regional distribution
	if cfg.Region != "" {
		s, err := p.RegionalStatsFor(ctx, joined, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("regional stats: %w", err)
		}
		r.stats.Outliers = s.Outliers.Len()
		if err := r.chart(ctx, "box", "regional_box.png", render.BoxWidth, render.BoxHeight, func() (*plot.Plot, error) {
			return render.BoxPlot(s)
		}); err != nil {
			return nil, err
		}
		if err := r.table(ctx, "regional_stats", s); err != nil {
			return nil, err
		}
		if err := r.table(ctx, "outliers", s.Outliers); err != nil {
			return nil, err
		}
	}

	// Step 3: Income by lending type
	m, err := p.LendingIncomeFor(ctx, joined)
	if err != nil {
		return nil, fmt.Errorf("lending income: %w", err)
	}
	if err := r.chart(ctx, "heatmap", "lending_income.png", render.HeatWidth, render.HeatHeight, func() (*plot.Plot, error) {
		return render.HeatMap(m)
	}); err != nil {
		return nil, err
	}
	if err := r.table(ctx, "lending_income", m); err != nil {
		return nil, err
	}

	// Step 4: Time series
	g, err := p.Series(ctx, cfg.Indicator, cfg.Date, cfg.Countries...)
	if err != nil {
		return nil, fmt.Errorf("series: %w", err)
	}
	if err := r.chart(ctx, "series", "series.png", render.SeriesWidth, render.SeriesHeight, func() (*plot.Plot, error) {
		return render.TimeSeries(g)
	}); err != nil {
		return nil, err
	}
	if err := r.table(ctx, "series", g); err != nil {
		return nil, err
	}

	// Step 5: Workbook with every table
	path := filepath.Join(cfg.OutDir, Workbook)
	if err := export.SaveXLSX(path, r.sheets...); err != nil {
		return nil, err
	}
	r.written(ctx, "workbook", "xlsx", path)

	r.stats.EndTime = time.Now()
	r.stats.Duration = r.stats.EndTime.Sub(r.stats.StartTime)
	displayFinalStats(ctx, log, r.stats)
	return r.stats, nil
}

func (r *runner) chart(ctx context.Context, kind, name string, w, h vg.Length, build func() (*plot.Plot, error)) error {
	p, err := build()
	if errors.Is(err, render.ErrNoData) {
		r.log.Warn(ctx, "chart skipped", logger.String("chart", kind), logger.Error(err))
		r.stats.Skipped = append(r.stats.Skipped, name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s chart: %w", kind, err)
	}
	path := filepath.Join(r.cfg.OutDir, name)
	if err := render.Save(path, p, w, h); err != nil {
		return err
	}
	r.written(ctx, kind, "png", path)
	return nil
}

// table writes rec as CSV and queues it as a workbook sheet.
func (r *runner) table(ctx context.Context, name string, rec export.Recorder) error {
	path := filepath.Join(r.cfg.OutDir, name+".csv")
	if err := export.SaveCSV(path, rec); err != nil {
		return err
	}
	r.written(ctx, name, "csv", path)
	r.sheets = append(r.sheets, export.Sheet{Name: name, Data: rec})
	return nil
}

func (r *runner) written(ctx context.Context, kind, format, path string) {
	metrics.RecordReportWritten(kind, format)
	r.stats.Files = append(r.stats.Files, path)
	r.log.Debug(ctx, "report file written", logger.String("path", path))
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "report complete",
		logger.Int("files", len(stats.Files)),
		logger.Int("skipped", len(stats.Skipped)),
		logger.Int("countries", stats.Countries),
		logger.Int("outliers", stats.Outliers),
		logger.String("duration", stats.Duration.String()),
	)
}
