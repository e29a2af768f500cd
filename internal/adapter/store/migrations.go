package store

import (
	"context"
	"fmt"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         []string
}

// Statements are kept to the subset both SQLite and PostgreSQL accept.
var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: []string{
			`CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    prepared_at TIMESTAMP NOT NULL,
    row_count INTEGER NOT NULL,
    start_time_failures INTEGER NOT NULL,
    end_time_failures INTEGER NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS prepared_accidents (
    run_id TEXT NOT NULL REFERENCES runs(run_id),
    row_num INTEGER NOT NULL,
    accident_id TEXT NOT NULL,
    severity INTEGER,
    start_time TIMESTAMP,
    end_time TIMESTAMP,
    start_hour INTEGER,
    day_of_week INTEGER,
    start_month INTEGER,
    start_year INTEGER,
    temperature_f DOUBLE PRECISION,
    humidity_pct DOUBLE PRECISION,
    pressure_in DOUBLE PRECISION,
    visibility_mi DOUBLE PRECISION,
    wind_speed_mph DOUBLE PRECISION,
    weather_condition TEXT,
    state TEXT,
    start_lat DOUBLE PRECISION,
    start_lng DOUBLE PRECISION,
    day_index INTEGER,
    day_name TEXT,
    traffic_signal BOOLEAN,
    junction BOOLEAN,
    stop_sign BOOLEAN,
    crossing BOOLEAN,
    PRIMARY KEY (run_id, row_num)
)`,
		},
	},
	{
		Version:     2,
		Description: "Weather medians per run",
		SQL: []string{
			`CREATE TABLE IF NOT EXISTS run_medians (
    run_id TEXT NOT NULL REFERENCES runs(run_id),
    column_name TEXT NOT NULL,
    median DOUBLE PRECISION NOT NULL,
    imputed INTEGER NOT NULL,
    PRIMARY KEY (run_id, column_name)
)`,
		},
	},
	{
		Version:     3,
		Description: "Index accidents by state",
		SQL: []string{
			`CREATE INDEX IF NOT EXISTS idx_prepared_accidents_state ON prepared_accidents(run_id, state)`,
		},
	},
}

// Migrate applies every migration not yet recorded in schema_migrations,
// each in its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	var versions []int
	if err := s.db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations"); err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		s.logger.Info("applying migration", "version", m.Version, "description", m.Description)

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		for _, stmt := range m.SQL {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback() //nolint:errcheck // already failing
				return fmt.Errorf("execute migration %d: %w", m.Version, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			s.db.Rebind("INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)"),
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback() //nolint:errcheck // already failing
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// MigrationVersion returns the highest applied migration, or 0.
func (s *Store) MigrationVersion(ctx context.Context) (int, error) {
	var version *int
	if err := s.db.GetContext(ctx, &version, "SELECT MAX(version) FROM schema_migrations"); err != nil {
		return 0, err
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}
