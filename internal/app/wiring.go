package service

import (
	"github.com/okian/wbstats/internal/adapters/worldbank"
	"github.com/okian/wbstats/internal/config"
	"github.com/okian/wbstats/pkg/logger"
)

// NewFromConfig builds a Service backed by a World Bank client configured
// from cfg.
func NewFromConfig(cfg *config.Config, log logger.Logger) *Service {
	client := worldbank.New(
		worldbank.WithBaseURL(cfg.APIBaseURL),
		worldbank.WithTimeout(cfg.RequestTimeout()),
		worldbank.WithPerPage(cfg.PerPage),
		worldbank.WithMaxPages(cfg.MaxPages),
		worldbank.WithUserAgent(cfg.UserAgent),
		worldbank.WithLogger(log.Named("worldbank")),
	)
	return New(
		WithFetcher(client),
		WithDefaultDate(cfg.DefaultDate),
		WithLogger(log.Named("service")),
	)
}
