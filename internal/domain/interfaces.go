package domain

import (
	"context"
)

// ReportGenerator runs the full measurement-to-PDF pipeline
type ReportGenerator interface {
	Generate(ctx context.Context, req *ReportRequest) (*Report, error)
	Analyze(ctx context.Context, req *ReportRequest) (*Analysis, error)
}

// ChartCache stores rendered chart images keyed by a series fingerprint
type ChartCache interface {
	Get(key string) ([]byte, bool)
	Add(key string, png []byte)
}

// AuditStore records anonymous generation events
type AuditStore interface {
	Record(ctx context.Context, event *AuditEvent) error
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetClinicalConfig() *ClinicalConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
