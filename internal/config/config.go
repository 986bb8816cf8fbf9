package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tfg-report-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return NewManagerFromFile("")
}

// NewManagerFromFile creates a configuration manager that reads the given file
// instead of searching the default paths. An empty path searches the defaults.
func NewManagerFromFile(path string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if path != "" {
		m.v.SetConfigFile(path)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/tfg-report/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix("TFG_REPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "20s")
	v.SetDefault("server.form_rows", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Clinical model defaults (mL/min/month)
	v.SetDefault("clinical.rapid_threshold", -0.8)
	v.SetDefault("clinical.moderate_threshold", -0.4)
	v.SetDefault("clinical.slow_rate", 0.33)
	v.SetDefault("clinical.moderate_rate", 0.83)
	v.SetDefault("clinical.rapid_rate", 1.25)
	v.SetDefault("clinical.horizon_months", domain.DefaultHorizon)
	v.SetDefault("clinical.stage_lines", []float64{60, 30})

	// Chart defaults
	v.SetDefault("chart.dpi", 150)
	v.SetDefault("chart.width_inches", 10)
	v.SetDefault("chart.height_inches", 5)
	v.SetDefault("chart.y_min", 0)
	v.SetDefault("chart.y_max", 100)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.driver", domain.CacheDriverMemory)
	v.SetDefault("cache.max_items", 128)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl", "24h")

	// Audit defaults
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.driver", domain.AuditDriverSQLite)
	v.SetDefault("audit.db_path", "./data/audit.db")
	v.SetDefault("audit.database_url", "")
	v.SetDefault("audit.retention_days", 0)
	v.SetDefault("audit.prune_schedule", "@daily")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)

	// MCP defaults
	v.SetDefault("mcp.server_name", "tfg-report-mcp-server")
	v.SetDefault("mcp.server_version", "v0.1.0")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetClinicalConfig returns the clinical model configuration
func (m *Manager) GetClinicalConfig() *domain.ClinicalConfig {
	return &m.config.Clinical
}

// AllSettings returns the effective settings keyed as in the config file.
func (m *Manager) AllSettings() map[string]interface{} {
	return m.v.AllSettings()
}

// ConfigFileUsed returns the file the settings were read from, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks a configuration for values the pipeline cannot run with.
func Validate(config *domain.Config) error {
	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.FormRows < domain.MinMeasurements || config.Server.FormRows > domain.MaxMeasurements {
		return fmt.Errorf("form rows must be between %d and %d, got %d",
			domain.MinMeasurements, domain.MaxMeasurements, config.Server.FormRows)
	}

	// Validate clinical configuration
	c := config.Clinical
	if c.RapidThreshold >= c.ModerateThreshold {
		return fmt.Errorf("rapid threshold %.2f must be below moderate threshold %.2f",
			c.RapidThreshold, c.ModerateThreshold)
	}
	if c.SlowRate <= 0 || c.ModerateRate <= 0 || c.RapidRate <= 0 {
		return fmt.Errorf("reference rates must be positive")
	}
	if !(c.SlowRate < c.ModerateRate && c.ModerateRate < c.RapidRate) {
		return fmt.Errorf("reference rates must increase from slow to rapid")
	}
	if c.HorizonMonths < 1 {
		return fmt.Errorf("horizon must be at least one month, got %d", c.HorizonMonths)
	}

	// Validate chart configuration
	if config.Chart.DPI <= 0 {
		return fmt.Errorf("invalid chart DPI: %.1f", config.Chart.DPI)
	}
	if config.Chart.WidthInches <= 0 || config.Chart.HeightInches <= 0 {
		return fmt.Errorf("invalid chart size: %.1fx%.1f", config.Chart.WidthInches, config.Chart.HeightInches)
	}
	if config.Chart.YMax <= config.Chart.YMin {
		return fmt.Errorf("invalid chart display range: [%.1f, %.1f]", config.Chart.YMin, config.Chart.YMax)
	}

	switch config.Cache.Driver {
	case domain.CacheDriverMemory:
	case domain.CacheDriverRedis:
		if config.Cache.Enabled && config.Cache.RedisURL == "" {
			return fmt.Errorf("cache redis_url is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown cache driver: %s", config.Cache.Driver)
	}

	switch config.Audit.Driver {
	case domain.AuditDriverSQLite:
		if config.Audit.Enabled && config.Audit.DBPath == "" {
			return fmt.Errorf("audit database path is required when audit is enabled")
		}
	case domain.AuditDriverPostgres:
		if config.Audit.Enabled && config.Audit.DatabaseURL == "" {
			return fmt.Errorf("audit database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown audit driver: %s", config.Audit.Driver)
	}
	if config.Audit.RetentionDays < 0 {
		return fmt.Errorf("audit retention_days must not be negative, got %d", config.Audit.RetentionDays)
	}
	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
