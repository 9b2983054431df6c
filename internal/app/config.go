package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/fakegridgo/internal/sampling"
	"github.com/vk/fakegridgo/internal/sink"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DeclarationPath string `koanf:"declaration"` // .hcl, .yaml, .yml or .json file or directory
	Count           int    `koanf:"count"`
	Seed            uint64 `koanf:"seed"` // 0 picks a random seed
	RNGMode         string `koanf:"rng_mode"`

	Format      string `koanf:"format"`
	OutputPath  string `koanf:"output"`
	SQLiteTable string `koanf:"sqlite_table"`

	LogFormat string `koanf:"log_format"`
	LogLevel  string `koanf:"log_level"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Count:       1,
		RNGMode:     string(sampling.ModeDerived),
		Format:      sink.FormatJSON,
		SQLiteTable: sink.DefaultTable,
		LogFormat:   "text",
		LogLevel:    "info",
	}
}

// NewConfig validates cfg and returns it.
func NewConfig(cfg Config) (*Config, error) {
	var errs []error
	if cfg.Count < 1 {
		errs = append(errs, fmt.Errorf("count must be at least 1, got %d", cfg.Count))
	}
	if _, err := sampling.ParseMode(cfg.RNGMode); err != nil {
		errs = append(errs, err)
	}
	if !sink.Known(cfg.Format) {
		errs = append(errs, fmt.Errorf("invalid format %q: must be one of %v", cfg.Format, sink.Formats))
	}
	if cfg.Format == sink.FormatSQLite && cfg.OutputPath == "" {
		errs = append(errs, errors.New("the sqlite format requires an output path"))
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		errs = append(errs, fmt.Errorf("invalid log-level %q: must be one of %v", cfg.LogLevel, logLevels))
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		errs = append(errs, fmt.Errorf("invalid log-format %q: must be one of %v", cfg.LogFormat, logFormats))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &cfg, nil
}
