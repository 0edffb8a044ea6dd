package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete analysis configuration
type Config struct {
	Attribution AttributionConfig `json:"attribution" yaml:"attribution"`
	Metrics     MetricsConfig     `json:"metrics" yaml:"metrics"`
	MonteCarlo  MonteCarloConfig  `json:"montecarlo" yaml:"montecarlo"`
	Journal     JournalConfig     `json:"journal" yaml:"journal"`
}

// AttributionConfig controls how trades are split into session days
type AttributionConfig struct {
	// SessionCutoff is the wall-clock time that ends a trading day, "15:04:05".
	SessionCutoff string `json:"session_cutoff" yaml:"session_cutoff"`
	// Workers bounds the number of days attributed concurrently.
	Workers int `json:"workers" yaml:"workers"`
}

// MetricsConfig contains Metrics Engine parameters
type MetricsConfig struct {
	ConcentrationK     int     `json:"concentration_k" yaml:"concentration_k"`
	StationarityPValue float64 `json:"stationarity_p_value" yaml:"stationarity_p_value"`
	ACFLags            int     `json:"acf_lags" yaml:"acf_lags"`
	IgnoreZeroWinRate  bool    `json:"ignore_zero_win_rate" yaml:"ignore_zero_win_rate"`
}

// MonteCarloConfig contains resampling parameters
type MonteCarloConfig struct {
	IterationCount   int     `json:"iteration_count" yaml:"iteration_count"`
	InitialEquity    float64 `json:"initial_equity" yaml:"initial_equity"`
	EquityMultiplier float64 `json:"equity_multiplier" yaml:"equity_multiplier"`
	PeriodType       string  `json:"period_type" yaml:"period_type"` // daily, weekly, monthly, quarterly, trades
	RandomSeed       *uint64 `json:"random_seed,omitempty" yaml:"random_seed,omitempty"`
	Workers          int     `json:"workers" yaml:"workers"`
	MinCompleted     int     `json:"min_completed" yaml:"min_completed"`
	ByYear           bool    `json:"by_year" yaml:"by_year"`
	Trades           bool    `json:"trades" yaml:"trades"` // also resample per-trade PnL
}

// JournalConfig contains output parameters
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	OutputDir   string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgPath     string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"` // Prometheus textfile
}

var periodTypes = []string{"daily", "weekly", "monthly", "quarterly", "trades"}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Start from defaults so a partial file only overrides what it names.
	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.Attribution.Cutoff(); err != nil {
		return err
	}
	if c.Attribution.Workers < 0 {
		return fmt.Errorf("attribution.workers must not be negative")
	}
	if c.Metrics.ConcentrationK != 5 && c.Metrics.ConcentrationK != 10 {
		return fmt.Errorf("metrics.concentration_k must be 5 or 10")
	}
	if c.Metrics.StationarityPValue <= 0 || c.Metrics.StationarityPValue >= 1 {
		return fmt.Errorf("metrics.stationarity_p_value must be between 0 and 1")
	}
	if c.Metrics.ACFLags <= 0 {
		return fmt.Errorf("metrics.acf_lags must be positive")
	}
	if c.MonteCarlo.IterationCount <= 0 {
		return fmt.Errorf("montecarlo.iteration_count must be positive")
	}
	if c.MonteCarlo.InitialEquity <= 0 {
		return fmt.Errorf("montecarlo.initial_equity must be positive")
	}
	if c.MonteCarlo.EquityMultiplier <= 0 {
		return fmt.Errorf("montecarlo.equity_multiplier must be positive")
	}
	if !validPeriod(c.MonteCarlo.PeriodType) {
		return fmt.Errorf("montecarlo.period_type must be one of %s", strings.Join(periodTypes, ", "))
	}
	if c.MonteCarlo.Workers < 0 {
		return fmt.Errorf("montecarlo.workers must not be negative")
	}
	if c.MonteCarlo.MinCompleted < 0 {
		return fmt.Errorf("montecarlo.min_completed must not be negative")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.OutputDir == "" {
			return fmt.Errorf("journal output_dir required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// Cutoff parses SessionCutoff into an offset from midnight.
func (a AttributionConfig) Cutoff() (time.Duration, error) {
	t, err := time.Parse("15:04:05", a.SessionCutoff)
	if err != nil {
		return 0, fmt.Errorf("attribution.session_cutoff %q: want HH:MM:SS", a.SessionCutoff)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

func validPeriod(p string) bool {
	for _, v := range periodTypes {
		if p == v {
			return true
		}
	}
	return false
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Attribution: AttributionConfig{
			SessionCutoff: "16:30:01",
			Workers:       4,
		},
		Metrics: MetricsConfig{
			ConcentrationK:     10,
			StationarityPValue: 0.05,
			ACFLags:            10,
			IgnoreZeroWinRate:  true,
		},
		MonteCarlo: MonteCarloConfig{
			IterationCount:   10000,
			InitialEquity:    50000,
			EquityMultiplier: 10,
			PeriodType:       "daily",
			Workers:          4,
			MinCompleted:     100,
		},
		Journal: JournalConfig{
			Type:      "csv",
			OutputDir: "./out",
		},
	}
}
