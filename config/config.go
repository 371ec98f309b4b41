package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/cloudx-io/clickauction/core"
	"github.com/cloudx-io/clickauction/report"
)

// Config holds the simulation runner settings. Fields are populated from
// environment variables; command-line flags may override them afterwards.
type Config struct {
	// Users is the size of the simulated population.
	Users int `env:"SIM_USERS" envDefault:"10"`

	// Rounds is the number of auction rounds to execute.
	Rounds int `env:"SIM_ROUNDS" envDefault:"100"`

	// Seed makes a run reproducible. Zero selects the crypto random source.
	Seed int64 `env:"SIM_SEED" envDefault:"0"`

	// Bidders is a comma-separated list of strategy descriptions, see strategy.Parse.
	Bidders string `env:"SIM_BIDDERS" envDefault:"fixed:0.5,fixed:0.3,learning"`

	// UncontestedPolicy is "zero" or "reject".
	UncontestedPolicy string `env:"SIM_UNCONTESTED_POLICY" envDefault:"zero"`

	// ExportFormat is "json", "cbor" or "csv".
	ExportFormat string `env:"SIM_EXPORT_FORMAT" envDefault:"json"`

	// DBPath is a SQLite file that completed simulations are saved to. Empty disables storage.
	DBPath string `env:"SIM_DB_PATH"`

	Log Logger `envPrefix:"LOG_"`
}

// Logger defines configuration options for the structured logger. Level is
// one of "debug", "info", "warn" and "error"; Format is "text" or "json".
type Logger struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Load reads configuration from environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations that env parsing cannot.
func (c Config) Validate() error {
	if c.Users <= 0 {
		return fmt.Errorf("users must be positive, got %d", c.Users)
	}
	if c.Rounds < 0 {
		return fmt.Errorf("rounds must not be negative, got %d", c.Rounds)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	switch report.Format(strings.ToLower(c.ExportFormat)) {
	case report.FormatJSON, report.FormatCBOR, report.FormatCSV:
	default:
		return fmt.Errorf("unknown export format %q", c.ExportFormat)
	}
	return nil
}

func (c Config) Policy() (core.UncontestedPolicy, error) {
	return core.ParseUncontestedPolicy(strings.ToLower(c.UncontestedPolicy))
}

func (c Config) Format() report.Format {
	return report.Format(strings.ToLower(c.ExportFormat))
}

// RandSource returns the auction's source: seeded, or crypto randomness when Seed is zero.
func (c Config) RandSource() core.RandSource {
	if c.Seed == 0 {
		return core.NewCryptoRandSource()
	}
	return core.NewSeededRandSource(c.Seed)
}

// BidderRandSource returns a source for strategies that draw their own
// prices, kept apart from the auction's so bidders cannot shift its draws.
func (c Config) BidderRandSource() core.RandSource {
	if c.Seed == 0 {
		return core.NewCryptoRandSource()
	}
	return core.NewSeededRandSource(c.Seed + 1)
}

// SlogLevel converts the textual level into a slog.Level. Unknown levels
// default to slog.LevelInfo.
func (c Logger) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a text or JSON slog logger writing to w.
func (c Logger) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.ToLower(c.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
