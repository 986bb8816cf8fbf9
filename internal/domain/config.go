package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Clinical    ClinicalConfig  `mapstructure:"clinical"`
	Chart       ChartConfig     `mapstructure:"chart"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Audit       AuditConfig     `mapstructure:"audit"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	MCP         MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	FormRows       int           `mapstructure:"form_rows"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ClinicalConfig holds the domain constants of the decline model. They are
// configuration because their clinical provenance is site policy.
type ClinicalConfig struct {
	RapidThreshold    float64   `mapstructure:"rapid_threshold"`
	ModerateThreshold float64   `mapstructure:"moderate_threshold"`
	SlowRate          float64   `mapstructure:"slow_rate"`
	ModerateRate      float64   `mapstructure:"moderate_rate"`
	RapidRate         float64   `mapstructure:"rapid_rate"`
	HorizonMonths     int       `mapstructure:"horizon_months"`
	StageLines        []float64 `mapstructure:"stage_lines"`
}

// SeverityThresholds returns the slope thresholds in mL/min/month.
func (c ClinicalConfig) SeverityThresholds() SeverityThresholds {
	return SeverityThresholds{Rapid: c.RapidThreshold, Moderate: c.ModerateThreshold}
}

// ReferenceRates returns the reference decline rates in mL/min/month.
func (c ClinicalConfig) ReferenceRates() ReferenceRates {
	return ReferenceRates{Slow: c.SlowRate, Moderate: c.ModerateRate, Rapid: c.RapidRate}
}

// SeverityThresholds splits monthly slopes into severity buckets. A slope
// strictly below Rapid is rapid, strictly below Moderate is moderate.
type SeverityThresholds struct {
	Rapid    float64
	Moderate float64
}

// DefaultSeverityThresholds returns -0.8 and -0.4 mL/min/month.
func DefaultSeverityThresholds() SeverityThresholds {
	return SeverityThresholds{Rapid: -0.8, Moderate: -0.4}
}

// ReferenceRates are the monthly losses of the three reference trajectories.
type ReferenceRates struct {
	Slow     float64
	Moderate float64
	Rapid    float64
}

// DefaultReferenceRates returns roughly 4, 10 and 15 mL/min/year expressed per month.
func DefaultReferenceRates() ReferenceRates {
	return ReferenceRates{Slow: 0.33, Moderate: 0.83, Rapid: 1.25}
}

// ChartConfig represents chart rendering configuration
type ChartConfig struct {
	DPI          float64 `mapstructure:"dpi"`
	WidthInches  float64 `mapstructure:"width_inches"`
	HeightInches float64 `mapstructure:"height_inches"`
	YMin         float64 `mapstructure:"y_min"`
	YMax         float64 `mapstructure:"y_max"`
}

// PixelSize returns the raster size of the chart.
func (c ChartConfig) PixelSize() (int, int) {
	return int(c.WidthInches * c.DPI), int(c.HeightInches * c.DPI)
}

// CacheConfig represents chart cache configuration. The memory driver keeps
// an LRU per process; the redis driver shares rendered charts between replicas.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Driver   string        `mapstructure:"driver"`
	MaxItems int           `mapstructure:"max_items"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// AuditConfig represents the anonymous generation log
type AuditConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Driver        string `mapstructure:"driver"`
	DBPath        string `mapstructure:"db_path"`
	DatabaseURL   string `mapstructure:"database_url"`
	RetentionDays int    `mapstructure:"retention_days"`
	PruneSchedule string `mapstructure:"prune_schedule"`
}

// Cache and audit drivers.
const (
	CacheDriverMemory   = "memory"
	CacheDriverRedis    = "redis"
	AuditDriverSQLite   = "sqlite"
	AuditDriverPostgres = "postgres"
)

// RateLimitConfig represents per-client request limits on the HTTP API
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
