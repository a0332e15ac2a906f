// Package service wires the World Bank fetch boundary to the normalize and
// statistics stages and exposes the operations the HTTP API and the report
// CLI depend on.
package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/wbstats/internal/adapters/worldbank"
	"github.com/okian/wbstats/internal/domain/normalize"
	"github.com/okian/wbstats/internal/domain/pivot"
	"github.com/okian/wbstats/internal/domain/regional"
	"github.com/okian/wbstats/internal/domain/series"
	"github.com/okian/wbstats/internal/domain/table"
	"github.com/okian/wbstats/pkg/logger"
	"github.com/okian/wbstats/pkg/metrics"
)

// Stage names used for metrics and logs.
const (
	StageNormalize = "normalize"
	StageJoin      = "join"
	StageRegional  = "regional"
	StagePivot     = "pivot"
	StageSeries    = "series"
)

// Fetcher is the data-fetch collaborator. worldbank.Client implements it.
type Fetcher interface {
	Countries(ctx context.Context) ([]normalize.Record, error)
	IndicatorsByTopic(ctx context.Context, topicID int) ([]normalize.Record, error)
	SearchIndicators(ctx context.Context, query string) ([]normalize.Record, error)
	Observations(ctx context.Context, indicatorID, date string, countries ...string) ([]normalize.Record, error)
}

// Service runs one independent pipeline per call; it holds no data between
// calls.
type Service struct {
	fetcher     Fetcher
	defaultDate string
	logger      logger.Logger

	startedAt time.Time
	runs      atomic.Int64
	failures  atomic.Int64
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFetcher sets the data source.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithDefaultDate sets the date used when a call passes an empty one.
func WithDefaultDate(date string) Option {
	return func(s *Service) {
		s.defaultDate = date
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Without WithFetcher it talks to the public API
// with default client settings.
func New(opts ...Option) *Service {
	s := &Service{
		logger:    logger.Nop(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = worldbank.New(worldbank.WithLogger(s.logger))
	}
	return s
}

// Countries fetches and normalizes country metadata.
func (s *Service) Countries(ctx context.Context) (table.Table, error) {
	return s.run(ctx, "countries", func() (table.Table, error) {
		recs, err := s.fetcher.Countries(ctx)
		if err != nil {
			return table.Table{}, err
		}
		return s.normalize(ctx, normalize.Countries(), recs)
	})
}

// IndicatorsByTopic fetches and normalizes the indicators of a topic.
func (s *Service) IndicatorsByTopic(ctx context.Context, topicID int) (table.Table, error) {
	return s.run(ctx, "indicators_by_topic", func() (table.Table, error) {
		s.logger.Info(ctx, "fetching indicators for topic", logger.Int("topic", topicID))
		recs, err := s.fetcher.IndicatorsByTopic(ctx, topicID)
		if err != nil {
			return table.Table{}, err
		}
		return s.normalize(ctx, normalize.Indicators(), recs)
	})
}

// SearchIndicators fetches and normalizes indicators whose name matches query.
func (s *Service) SearchIndicators(ctx context.Context, query string) (table.Table, error) {
	return s.run(ctx, "search_indicators", func() (table.Table, error) {
		s.logger.Info(ctx, "searching indicators", logger.String("query", query))
		recs, err := s.fetcher.SearchIndicators(ctx, query)
		if err != nil {
			return table.Table{}, err
		}
		return s.normalize(ctx, normalize.Indicators(), recs)
	})
}

// Observations fetches and normalizes indicator values.
func (s *Service) Observations(ctx context.Context, indicatorID, date string, countries ...string) (table.Table, error) {
	return s.run(ctx, "observations", func() (table.Table, error) {
		return s.observations(ctx, indicatorID, date, countries...)
	})
}

// CountryIndicator joins country metadata with one indicator's values: every
// country row is kept and gains Country, Series ID, Date and Value columns.
// When date spans several years the first (most recent) value per country
// is used.
func (s *Service) CountryIndicator(ctx context.Context, indicatorID, date string) (table.Table, error) {
	return s.run(ctx, "country_indicator", func() (table.Table, error) {
		return s.countryIndicator(ctx, indicatorID, date)
	})
}

// RegionalStats computes distribution statistics of an indicator over the
// countries of one region.
func (s *Service) RegionalStats(ctx context.Context, indicatorID, date, region string) (regional.Stats, table.Table, error) {
	var stats regional.Stats
	joined, err := s.run(ctx, "regional_stats", func() (table.Table, error) {
		joined, err := s.countryIndicator(ctx, indicatorID, date)
		if err != nil {
			return table.Table{}, err
		}
		stats, err = s.regionalStats(ctx, joined, region)
		return joined, err
	})
	if err != nil {
		return regional.Stats{}, table.Table{}, err
	}
	return stats, joined, nil
}

// RegionalStatsFor computes regional statistics over a table already built by
// CountryIndicator.
func (s *Service) RegionalStatsFor(ctx context.Context, joined table.Table, region string) (regional.Stats, error) {
	var stats regional.Stats
	_, err := s.run(ctx, "regional_stats", func() (table.Table, error) {
		var err error
		stats, err = s.regionalStats(ctx, joined, region)
		return joined, err
	})
	if err != nil {
		return regional.Stats{}, err
	}
	return stats, nil
}

func (s *Service) regionalStats(ctx context.Context, joined table.Table, region string) (regional.Stats, error) {
	var stats regional.Stats
	err := s.stage(ctx, StageRegional, joined.Len(), func() error {
		var cerr error
		stats, cerr = regional.Compute(joined, normalize.ColRegion, region, normalize.ColValue)
		return cerr
	})
	if err != nil {
		return regional.Stats{}, err
	}
	s.logger.Info(ctx, "regional statistics computed",
		logger.String("region", region),
		logger.Int("count", stats.Count),
		logger.Int("outliers", stats.Outliers.Len()),
	)
	return stats, nil
}

// LendingIncome averages an indicator by income level and lending type.
func (s *Service) LendingIncome(ctx context.Context, indicatorID, date string) (pivot.Matrix, error) {
	var m pivot.Matrix
	_, err := s.run(ctx, "lending_income", func() (table.Table, error) {
		joined, err := s.countryIndicator(ctx, indicatorID, date)
		if err != nil {
			return table.Table{}, err
		}
		m, err = s.lendingIncome(ctx, joined)
		return joined, err
	})
	if err != nil {
		return pivot.Matrix{}, err
	}
	return m, nil
}

// LendingIncomeFor pivots a table already built by CountryIndicator.
func (s *Service) LendingIncomeFor(ctx context.Context, joined table.Table) (pivot.Matrix, error) {
	var m pivot.Matrix
	_, err := s.run(ctx, "lending_income", func() (table.Table, error) {
		var err error
		m, err = s.lendingIncome(ctx, joined)
		return joined, err
	})
	if err != nil {
		return pivot.Matrix{}, err
	}
	return m, nil
}

func (s *Service) lendingIncome(ctx context.Context, joined table.Table) (pivot.Matrix, error) {
	var m pivot.Matrix
	err := s.stage(ctx, StagePivot, joined.Len(), func() error {
		var perr error
		m, perr = pivot.LendingIncome(joined, normalize.ColValue)
		return perr
	})
	return m, err
}

// Series groups an indicator's observations by country for plotting.
func (s *Service) Series(ctx context.Context, indicatorID, date string, countries ...string) (series.Grouped, error) {
	var g series.Grouped
	_, err := s.run(ctx, "series", func() (table.Table, error) {
		obs, err := s.observations(ctx, indicatorID, date, countries...)
		if err != nil {
			return table.Table{}, err
		}
		return obs, s.stage(ctx, StageSeries, obs.Len(), func() error {
			var gerr error
			g, gerr = series.Group(obs, normalize.ColDate, normalize.ColValue, normalize.ColCountry)
			return gerr
		})
	})
	if err != nil {
		return series.Grouped{}, err
	}
	return g, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
		"defaultDate":   s.defaultDate,
		"runs":          s.runs.Load(),
		"failures":      s.failures.Load(),
	}
}

func (s *Service) date(date string) string {
	if date == "" {
		return s.defaultDate
	}
	return date
}

func (s *Service) observations(ctx context.Context, indicatorID, date string, countries ...string) (table.Table, error) {
	if indicatorID == "" {
		return table.Table{}, fmt.Errorf("%w: indicator id", ErrMissingParam)
	}
	recs, err := s.fetcher.Observations(ctx, indicatorID, s.date(date), countries...)
	if err != nil {
		return table.Table{}, err
	}
	return s.normalize(ctx, normalize.Observations(), recs)
}

func (s *Service) countryIndicator(ctx context.Context, indicatorID, date string) (table.Table, error) {
	if indicatorID == "" {
		return table.Table{}, fmt.Errorf("%w: indicator id", ErrMissingParam)
	}
	recs, err := s.fetcher.Countries(ctx)
	if err != nil {
		return table.Table{}, err
	}
	countries, err := s.normalize(ctx, normalize.Countries(), recs)
	if err != nil {
		return table.Table{}, err
	}
	obs, err := s.observations(ctx, indicatorID, date)
	if err != nil {
		return table.Table{}, err
	}

	var joined table.Table
	err = s.stage(ctx, StageJoin, countries.Len(), func() error {
		var jerr error
		joined, jerr = table.LeftJoin(countries, obs, normalize.ColID, normalize.ColCountryCode)
		return jerr
	})
	return joined, err
}

func (s *Service) normalize(ctx context.Context, l normalize.Layout, recs []normalize.Record) (table.Table, error) {
	var t table.Table
	err := s.stage(ctx, StageNormalize, len(recs), func() error {
		var nerr error
		t, nerr = l.Apply(recs)
		return nerr
	})
	return t, err
}

// stage times fn and records it under name.
func (s *Service) stage(ctx context.Context, name string, rows int, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.RecordStage(name, rows, float64(elapsed.Microseconds())/1000)
	if err != nil {
		metrics.RecordErrorByComponent(name, Kind(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	s.logger.Debug(ctx, "stage complete",
		logger.String("stage", name),
		logger.Int("rows", rows),
		logger.Duration("elapsed", elapsed),
	)
	return nil
}

// run counts one pipeline invocation and logs its failure.
func (s *Service) run(ctx context.Context, op string, fn func() (table.Table, error)) (table.Table, error) {
	s.runs.Add(1)
	t, err := fn()
	if err != nil {
		s.failures.Add(1)
		s.logger.Warn(ctx, "pipeline failed", logger.String("op", op), logger.Error(err))
		return table.Table{}, err
	}
	return t, nil
}
