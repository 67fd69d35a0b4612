// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and the environment on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Roster sources.
const (
	RosterSourceAPI    = "api"
	RosterSourceScrape = "scrape"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text, json, console.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// OrganizationName is the organization whose members are crawled.
	OrganizationName string `koanf:"organization_name"`

	// OrganizationCategory filters the peer table used by /vs comparisons.
	OrganizationCategory string `koanf:"organization_category"`

	// APIBaseURL is the ranking API root, e.g. https://solved.ac/api/v3.
	APIBaseURL string `koanf:"api_base_url"`

	// ScrapeBaseURL is the ranking website root used by the HTML roster source.
	ScrapeBaseURL string `koanf:"scrape_base_url"`

	// ScrapeEnabled allows the HTML roster source as a fallback.
	ScrapeEnabled bool `koanf:"scrape_enabled"`

	// RosterSource picks the primary roster source: api or scrape.
	RosterSource string `koanf:"roster_source"`

	// DataDir holds the persisted snapshot and its history/ archive.
	DataDir string `koanf:"data_dir"`

	// WorkerCount bounds concurrent member fetches.
	WorkerCount int `koanf:"worker_count"`

	// RequestTimeoutMS bounds a single HTTP round-trip.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// Retry policy for a single request.
	RetryMaxAttempts int `koanf:"retry_max_attempts"`
	RetryInitialMS   int `koanf:"retry_initial_ms"`
	RetryMaxMS       int `koanf:"retry_max_ms"`

	// MaxPages caps any paginated listing.
	MaxPages int `koanf:"max_pages"`

	// RunTimeoutS is the coarse upper bound of one pipeline run.
	RunTimeoutS int `koanf:"run_timeout_s"`

	// RefreshAt is the daily trigger time, HH:MM in Timezone.
	RefreshAt string `koanf:"refresh_at"`
	Timezone  string `koanf:"timezone"`

	// CheckIntervalS is how often the scheduler re-checks freshness.
	CheckIntervalS int `koanf:"check_interval_s"`

	// RefreshIntervalH is the age after which a snapshot counts as stale.
	RefreshIntervalH int `koanf:"refresh_interval_h"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		CORSOrigins:          []string{"*"},
		OrganizationName:     "하나고등학교",
		OrganizationCategory: "high_school",
		APIBaseURL:           "https://solved.ac/api/v3",
		ScrapeBaseURL:        "https://www.acmicpc.net",
		ScrapeEnabled:        false,
		RosterSource:         RosterSourceAPI,
		DataDir:              "data",
		WorkerCount:          runtime.NumCPU() * 2,
		RequestTimeoutMS:     10_000,
		RetryMaxAttempts:     5,
		RetryInitialMS:       500,
		RetryMaxMS:           15_000,
		MaxPages:             2_000,
		RunTimeoutS:          3_600,
		RefreshAt:            "00:00",
		Timezone:             "Asia/Seoul",
		CheckIntervalS:       900,
		RefreshIntervalH:     24,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// RunTimeout returns RunTimeoutS as a duration.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutS) * time.Second
}

// CheckInterval returns CheckIntervalS as a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalS) * time.Second
}

// RefreshInterval returns RefreshIntervalH as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalH) * time.Hour
}

// DailyTime parses RefreshAt into hour and minute.
func (c *Config) DailyTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.RefreshAt)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: refresh_at %q: %v", ErrInvalidConfig, c.RefreshAt, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Location loads Timezone, defaulting to UTC when empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.OrganizationName == "":
		return fmt.Errorf("%w: organization_name must not be empty", ErrInvalidConfig)
	case c.APIBaseURL == "":
		return fmt.Errorf("%w: api_base_url must not be empty", ErrInvalidConfig)
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	switch c.RosterSource {
	case RosterSourceAPI:
	case RosterSourceScrape:
		if c.ScrapeBaseURL == "" {
			return fmt.Errorf("%w: scrape_base_url required for roster_source=scrape", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: roster_source must be %q or %q", ErrInvalidConfig, RosterSourceAPI, RosterSourceScrape)
	}
	if _, _, err := c.DailyTime(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
