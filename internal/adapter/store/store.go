// Package store persists prepared datasets to SQLite or PostgreSQL via sqlx.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
	"github.com/couchcryptid/accident-data-etl/internal/observability"
)

// maxBindParams keeps a single INSERT under both SQLite's and PostgreSQL's
// bind-parameter limits.
const maxBindParams = 30000

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store writes runs and their prepared records.
type Store struct {
	db        *sqlx.DB
	batchSize int
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// DriverName picks the database/sql driver for a DSN. postgres:// and
// postgresql:// URLs use lib/pq; anything else is a SQLite path.
func DriverName(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// Open connects to dsn, verifies the connection and applies migrations.
func Open(ctx context.Context, dsn string, batchSize int, metrics *observability.Metrics, logger *slog.Logger) (*Store, error) {
	driver := DriverName(dsn)
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite" {
		// One connection so that :memory: databases are shared and writes serialize.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := New(db, batchSize, metrics, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("store ready", "driver", driver)
	return s, nil
}

// New wraps an open database. Call Migrate before exporting.
func New(db *sqlx.DB, batchSize int, metrics *observability.Metrics, logger *slog.Logger) *Store {
	if limit := maxBindParams / accidentColumns; batchSize <= 0 || batchSize > limit {
		batchSize = limit
	}
	return &Store{db: db, batchSize: batchSize, metrics: metrics, logger: logger}
}

// Name identifies the exporter in logs, metrics and errors.
func (s *Store) Name() string { return "store" }

// Export writes the run, its medians and all records in one transaction.
func (s *Store) Export(ctx context.Context, ds *domain.Dataset) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO runs (run_id, source, prepared_at, row_count, start_time_failures, end_time_failures)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		ds.RunID, ds.Source, ds.PreparedAt.UTC(), ds.Stats.Rows, ds.Stats.StartTimeFailures, ds.Stats.EndTimeFailures,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, wf := range domain.WeatherFields {
		m, ok := ds.Medians[wf.Column]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO run_medians (run_id, column_name, median, imputed) VALUES (?, ?, ?, ?)`),
			ds.RunID, wf.Column, m, ds.Stats.Imputed[wf.Column],
		); err != nil {
			return fmt.Errorf("insert median %s: %w", wf.Column, err)
		}
	}

	for start := 0; start < len(ds.Records); start += s.batchSize {
		end := min(start+s.batchSize, len(ds.Records))
		rows := make([]accidentRow, 0, end-start)
		for i := start; i < end; i++ {
			rows = append(rows, toRow(ds.RunID, &ds.Records[i]))
		}
		if _, err := tx.NamedExecContext(ctx, insertAccident, rows); err != nil {
			return fmt.Errorf("insert records %d-%d: %w", start, end-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordsStored.Add(float64(len(ds.Records)))
	}
	s.logger.Info("dataset stored", "run_id", ds.RunID, "records", len(ds.Records))
	return nil
}

// CountRecords returns how many prepared records a run stored.
func (s *Store) CountRecords(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind("SELECT COUNT(*) FROM prepared_accidents WHERE run_id = ?"), runID)
	return n, err
}

// StateCount is one row of CountByState.
type StateCount struct {
	State string `db:"state"`
	Count int    `db:"n"`
}

// CountByState returns per-state record counts for a run, largest first.
func (s *Store) CountByState(ctx context.Context, runID string) ([]StateCount, error) {
	var out []StateCount
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(
		`SELECT state, COUNT(*) AS n FROM prepared_accidents
		 WHERE run_id = ? AND state IS NOT NULL
		 GROUP BY state ORDER BY n DESC, state`), runID)
	return out, err
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
