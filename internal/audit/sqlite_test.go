package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfg-report-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "audit.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	return store
}

func slope(v float64) *float64 {
	return &v
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	defer store.Close()
	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	ev := &domain.AuditEvent{
		ReportID:         "report-1",
		RequestID:        "req-1",
		Source:           "api",
		MeasurementCount: 4,
		SpanMonths:       18.2,
		SlopePerMonth:    slope(-0.9),
		Severity:         domain.SeverityRapid,
		ProcessingTimeMs: 42,
	}

	require.NoError(t, store.Record(ctx, ev))
	assert.NotZero(t, ev.ID)
	assert.False(t, ev.CreatedAt.IsZero())

	got, err := store.Get(ctx, "report-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, 4, got.MeasurementCount)
	assert.InDelta(t, 18.2, got.SpanMonths, 1e-9)
	require.NotNil(t, got.SlopePerMonth)
	assert.InDelta(t, -0.9, *got.SlopePerMonth, 1e-9)
	assert.Equal(t, domain.SeverityRapid, got.Severity)
}

func TestSQLiteStore_RecordWithoutEstimate(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, &domain.AuditEvent{
		ReportID:         "report-2",
		Source:           "cli",
		MeasurementCount: 2,
		SpanMonths:       3,
	}))

	got, err := store.Get(ctx, "report-2")
	require.NoError(t, err)
	assert.Nil(t, got.SlopePerMonth)
	assert.Equal(t, domain.Severity(""), got.Severity)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	got, err := store.Get(context.Background(), "missing")

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_DuplicateReportID(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	ev := &domain.AuditEvent{ReportID: "dup", Source: "api", MeasurementCount: 2}
	require.NoError(t, store.Record(ctx, ev))

	err := store.Record(ctx, &domain.AuditEvent{ReportID: "dup", Source: "api", MeasurementCount: 2})
	assert.Error(t, err)
}

func TestSQLiteStore_ListAndCount(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	severities := []domain.Severity{
		domain.SeveritySlow, domain.SeverityRapid, domain.SeverityRapid, domain.SeverityModerate,
	}
	for i, s := range severities {
		require.NoError(t, store.Record(ctx, &domain.AuditEvent{
			ReportID:         "report-" + string(rune('a'+i)),
			Source:           "api",
			MeasurementCount: 3,
			SlopePerMonth:    slope(-0.1 * float64(i)),
			Severity:         s,
			CreatedAt:        base.Add(time.Duration(i) * time.Hour),
		}))
	}

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "report-d", page[0].ReportID, "newest first")
	assert.Equal(t, "report-c", page[1].ReportID)

	rest, err := store.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	counts, err := store.CountBySeverity(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.SeverityRapid])
	assert.Equal(t, int64(1), counts[domain.SeverityModerate])
	assert.Equal(t, int64(1), counts[domain.SeveritySlow])
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, &domain.AuditEvent{ReportID: "x", Source: "mcp", MeasurementCount: 5}))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 1, export.Count)
	require.Len(t, export.Events, 1)
	assert.Equal(t, "x", export.Events[0].ReportID)
}

func TestSQLiteStore_Prune(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, age := range []int{40, 31, 5, 0} {
		require.NoError(t, store.Record(ctx, &domain.AuditEvent{
			ReportID:         "prune-" + string(rune('a'+i)),
			Source:           "api",
			MeasurementCount: 2,
			CreatedAt:        base.AddDate(0, 0, -age),
		}))
	}

	removed, err := store.Prune(ctx, base.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	left, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "prune-d", left[0].ReportID)
	assert.Equal(t, "prune-c", left[1].ReportID)
}

func TestOpen(t *testing.T) {
	logger := logrus.New()

	t.Run("sqlite", func(t *testing.T) {
		store, err := Open(domain.AuditConfig{
			Driver: domain.AuditDriverSQLite,
			DBPath: filepath.Join(t.TempDir(), "audit.db"),
		}, logger)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &SQLiteStore{}, store)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(domain.AuditConfig{Driver: "mysql"}, logger)
		assert.Error(t, err)
	})
}
