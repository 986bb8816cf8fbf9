package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tfg-report-server/internal/domain"
)

// Store is the full audit API implemented by the SQLite and PostgreSQL backends.
type Store interface {
	domain.AuditStore
	Get(ctx context.Context, reportID string) (*domain.AuditEvent, error)
	List(ctx context.Context, limit, offset int) ([]*domain.AuditEvent, error)
	CountBySeverity(ctx context.Context) (map[domain.Severity]int64, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	ExportJSON(ctx context.Context, writer io.Writer) error
}

// Open creates the store selected by cfg.Driver. PostgreSQL schemas are
// migrated to the latest version first.
func Open(cfg domain.AuditConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Driver {
	case domain.AuditDriverSQLite, "":
		return NewSQLiteStore(cfg.DBPath)
	case domain.AuditDriverPostgres:
		runner, err := NewMigrationRunner(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		defer runner.Close()
		if err := runner.Up(); err != nil {
			return nil, err
		}
		return NewPostgresStoreFromURL(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown audit driver: %s", cfg.Driver)
	}
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// Export is the JSON export format.
type Export struct {
	Version    string               `json:"version"`
	ExportedAt time.Time            `json:"exported_at"`
	Count      int                  `json:"count"`
	Events     []*domain.AuditEvent `json:"events"`
}

func exportJSON(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Events:     all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
