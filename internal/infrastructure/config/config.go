// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Keys missing from the file keep their defaults.
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	matching := cfg.MatchingRules()
//	rules, err := cfg.BalanceRules()
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/export"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/matcher"
)

// Config represents the entire application configuration
type Config struct {
	Matching      MatchingConfig      `yaml:"matching"`
	Balance       BalanceConfig       `yaml:"balance"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Export        ExportConfig        `yaml:"export"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// MatchingConfig holds the entity matcher thresholds
type MatchingConfig struct {
	FuzzyThreshold          float64           `yaml:"fuzzy_threshold"`
	HighConfidenceThreshold float64           `yaml:"high_confidence_threshold"`
	KeywordMinLength        int               `yaml:"keyword_min_length"`
	MinSharedKeywords       int               `yaml:"min_shared_keywords"`
	MinKeywordOverlap       float64           `yaml:"min_keyword_overlap"`
	MaxSuggestions          int               `yaml:"max_suggestions"`
	Stopwords               []string          `yaml:"stopwords"`
	KeywordAliases          map[string]string `yaml:"keyword_aliases"`
}

// BalanceConfig holds the combination search bounds. Amounts are strings so
// they reach decimal parsing without passing through a float.
type BalanceConfig struct {
	Tolerance           string `yaml:"tolerance"`
	MaxCombinationSize  int    `yaml:"max_combination_size"`
	MaxCandidatePool    int    `yaml:"max_candidate_pool"`
	LooseToleranceRatio string `yaml:"loose_tolerance_ratio"`
}

// IngestConfig holds upload settings
type IngestConfig struct {
	RequireDescription bool `yaml:"require_description"`
	MaxUploadMB        int  `yaml:"max_upload_mb"`
}

// ExportConfig holds XLSX export settings
type ExportConfig struct {
	Highlight      bool     `yaml:"highlight"`
	HighlightColor string   `yaml:"highlight_color"`
	StatusText     string   `yaml:"status_text"`
	StatusColumns  []string `yaml:"status_columns"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port            int      `yaml:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	SessionMaxAge   string   `yaml:"session_max_age"`
	CleanupInterval string   `yaml:"cleanup_interval"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	m := matcher.DefaultConfig()
	exportDefaults := export.DefaultOptions()

	return &Config{
		Matching: MatchingConfig{
			FuzzyThreshold:          m.FuzzyThreshold,
			HighConfidenceThreshold: m.HighConfidenceThreshold,
			KeywordMinLength:        m.KeywordMinLength,
			MinSharedKeywords:       m.MinSharedKeywords,
			MinKeywordOverlap:       m.MinKeywordOverlap,
			MaxSuggestions:          m.MaxSuggestions,
		},
		Balance: BalanceConfig{
			Tolerance:           "0.01",
			MaxCombinationSize:  5,
			MaxCandidatePool:    10,
			LooseToleranceRatio: "0.1",
		},
		Ingest: IngestConfig{
			MaxUploadMB: 16,
		},
		Export: ExportConfig{
			Highlight:      exportDefaults.Highlight,
			HighlightColor: exportDefaults.HighlightColor,
			StatusText:     exportDefaults.StatusText,
			StatusColumns:  exportDefaults.StatusColumns,
		},
		API: APIConfig{
			Port:            8080,
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
			SessionMaxAge:   "24h",
			CleanupInterval: "1h",
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECONCILE_PORT})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := Default()

	cfg.Matching.FuzzyThreshold = getEnvFloat("RECONCILE_FUZZY_THRESHOLD", cfg.Matching.FuzzyThreshold)
	cfg.Matching.HighConfidenceThreshold = getEnvFloat("RECONCILE_HIGH_CONFIDENCE_THRESHOLD", cfg.Matching.HighConfidenceThreshold)
	cfg.Matching.MinKeywordOverlap = getEnvFloat("RECONCILE_MIN_KEYWORD_OVERLAP", cfg.Matching.MinKeywordOverlap)
	cfg.Matching.MaxSuggestions = getEnvInt("RECONCILE_MAX_SUGGESTIONS", cfg.Matching.MaxSuggestions)

	cfg.Balance.Tolerance = getEnv("RECONCILE_BALANCE_TOLERANCE", cfg.Balance.Tolerance)
	cfg.Balance.MaxCombinationSize = getEnvInt("RECONCILE_MAX_COMBINATION_SIZE", cfg.Balance.MaxCombinationSize)
	cfg.Balance.MaxCandidatePool = getEnvInt("RECONCILE_MAX_CANDIDATE_POOL", cfg.Balance.MaxCandidatePool)

	cfg.Ingest.RequireDescription = getEnvBool("RECONCILE_REQUIRE_DESCRIPTION", cfg.Ingest.RequireDescription)
	cfg.Ingest.MaxUploadMB = getEnvInt("RECONCILE_MAX_UPLOAD_MB", cfg.Ingest.MaxUploadMB)

	cfg.Export.Highlight = getEnvBool("RECONCILE_EXPORT_HIGHLIGHT", cfg.Export.Highlight)
	cfg.Export.StatusText = getEnv("RECONCILE_EXPORT_STATUS_TEXT", cfg.Export.StatusText)
	if columns := os.Getenv("RECONCILE_EXPORT_STATUS_COLUMNS"); columns != "" {
		cfg.Export.StatusColumns = splitList(columns)
	}

	cfg.API.Port = getEnvInt("RECONCILE_PORT", cfg.API.Port)
	if origins := os.Getenv("RECONCILE_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = splitList(origins)
	}
	cfg.API.SessionMaxAge = getEnv("RECONCILE_SESSION_MAX_AGE", cfg.API.SessionMaxAge)

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", cfg.Observability.Logging.Format)

	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Matching.FuzzyThreshold <= 0 || c.Matching.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("matching.fuzzy_threshold must be in (0, 1], got %v", c.Matching.FuzzyThreshold))
	}
	if c.Matching.HighConfidenceThreshold < 0 || c.Matching.HighConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("matching.high_confidence_threshold must be in [0, 1], got %v", c.Matching.HighConfidenceThreshold))
	}
	if c.Balance.MaxCombinationSize < 1 {
		errs = append(errs, fmt.Errorf("balance.max_combination_size must be at least 1, got %d", c.Balance.MaxCombinationSize))
	}
	if c.Balance.MaxCandidatePool < 1 {
		errs = append(errs, fmt.Errorf("balance.max_candidate_pool must be at least 1, got %d", c.Balance.MaxCandidatePool))
	}
	if _, err := c.BalanceRules(); err != nil {
		errs = append(errs, err)
	}
	if _, err := time.ParseDuration(c.API.SessionMaxAge); err != nil {
		errs = append(errs, fmt.Errorf("api.session_max_age: %w", err))
	}

	return errors.Join(errs...)
}

// MatchingRules builds the matcher configuration. Stopwords and aliases
// from the file replace the defaults when given.
func (c *Config) MatchingRules() matcher.Config {
	m := matcher.DefaultConfig()
	m.FuzzyThreshold = c.Matching.FuzzyThreshold
	m.HighConfidenceThreshold = c.Matching.HighConfidenceThreshold
	if c.Matching.KeywordMinLength > 0 {
		m.KeywordMinLength = c.Matching.KeywordMinLength
	}
	if c.Matching.MinSharedKeywords > 0 {
		m.MinSharedKeywords = c.Matching.MinSharedKeywords
	}
	m.MinKeywordOverlap = c.Matching.MinKeywordOverlap
	if c.Matching.MaxSuggestions > 0 {
		m.MaxSuggestions = c.Matching.MaxSuggestions
	}
	if len(c.Matching.Stopwords) > 0 {
		m.Stopwords = append([]string(nil), c.Matching.Stopwords...)
	}
	if len(c.Matching.KeywordAliases) > 0 {
		m.KeywordAliases = make(map[string]string, len(c.Matching.KeywordAliases))
		for k, v := range c.Matching.KeywordAliases {
			m.KeywordAliases[strings.ToLower(k)] = strings.ToLower(v)
		}
	}
	return m
}

// BalanceRules builds the balance calculator configuration. The auto-confirm
// threshold is shared with the matcher so both report the same groups.
func (c *Config) BalanceRules() (balance.Config, error) {
	b := balance.DefaultConfig()

	tolerance, err := decimal.NewFromString(c.Balance.Tolerance)
	if err != nil {
		return b, fmt.Errorf("balance.tolerance %q: %w", c.Balance.Tolerance, err)
	}
	if tolerance.IsNegative() {
		return b, fmt.Errorf("balance.tolerance must not be negative, got %s", tolerance)
	}
	ratio, err := decimal.NewFromString(c.Balance.LooseToleranceRatio)
	if err != nil {
		return b, fmt.Errorf("balance.loose_tolerance_ratio %q: %w", c.Balance.LooseToleranceRatio, err)
	}

	b.Tolerance = tolerance
	b.LooseToleranceRatio = ratio
	b.MaxCombinationSize = c.Balance.MaxCombinationSize
	b.MaxCandidatePool = c.Balance.MaxCandidatePool
	b.HighConfidenceThreshold = c.Matching.HighConfidenceThreshold
	return b, nil
}

// ExportOptions builds the XLSX export options.
func (c *Config) ExportOptions() export.Options {
	return export.Options{
		Highlight:      c.Export.Highlight,
		HighlightColor: c.Export.HighlightColor,
		StatusText:     c.Export.StatusText,
		StatusColumns:  append([]string(nil), c.Export.StatusColumns...),
	}
}

// SessionMaxAge returns how long idle sessions are kept, falling back to a
// day when the setting does not parse.
func (c *Config) SessionMaxAge() time.Duration {
	return parseDuration(c.API.SessionMaxAge, 24*time.Hour)
}

// CleanupInterval returns how often stale sessions are swept.
func (c *Config) CleanupInterval() time.Duration {
	return parseDuration(c.API.CleanupInterval, time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(val); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseFloat(val, 64); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseBool(val); err == nil {
			return result
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
