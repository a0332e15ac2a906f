// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and WBSTATS_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Config contains process configuration for the server and the report CLI.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the World Bank API root, without a trailing slash.
	APIBaseURL string `koanf:"api_base_url"`

	// RequestTimeoutMS bounds a single upstream HTTP call.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// PerPage is the page size requested from the World Bank API.
	PerPage int `koanf:"per_page"`

	// MaxPages caps how many pages one fetch may follow.
	MaxPages int `koanf:"max_pages"`

	// DefaultDate is used when a request does not name a date or range.
	DefaultDate string `koanf:"default_date"`

	// DefaultIndicator is used when the report CLI is given no indicator.
	DefaultIndicator string `koanf:"default_indicator"`

	// ReportDir is where the report CLI writes charts and exports.
	ReportDir string `koanf:"report_dir"`

	// UserAgent is sent on every upstream request.
	UserAgent string `koanf:"user_agent"`
}

// New creates a Config with defaults. Context is accepted first to follow
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		APIBaseURL:       "https://api.worldbank.org/v2",
		RequestTimeoutMS: 30_000,
		PerPage:          1000,
		MaxPages:         50,
		DefaultDate:      "2022",
		DefaultIndicator: "NY.GDP.PCAP.CD",
		ReportDir:        "report",
		UserAgent:        "wbstats/1.0",
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Validate checks values that would otherwise fail late, at first use.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api_base_url %q is not an absolute url", ErrInvalidConfig, c.APIBaseURL)
	}
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.PerPage <= 0 {
		return fmt.Errorf("%w: per_page must be positive", ErrInvalidConfig)
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("%w: max_pages must be positive", ErrInvalidConfig)
	}
	return nil
}
