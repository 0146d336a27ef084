package sqlite

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/interfaces"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite stores risk configurations in one table per entity
type SQLite struct {
	db                *sqlx.DB
	riskConfiguration *riskConfigurationRepository
}

var _ interfaces.Repository = &SQLite{}

// New opens (or creates) the database file at path and ensures the schema exists.
func New(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, goerr.New("sqlite database path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("path", path))
		}
	}

	// foreign_keys must be enabled per connection for ON DELETE CASCADE
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	// A single writer connection serializes transactions on the same file
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to connect sqlite database", goerr.V("path", path))
	}

	s := &SQLite{
		db:                db,
		riskConfiguration: newRiskConfigurationRepository(db),
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate creates every table and index if missing
func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to apply schema", goerr.V("statement", stmt))
		}
	}
	return nil
}

func (s *SQLite) RiskConfiguration() interfaces.RiskConfigurationRepository {
	return s.riskConfiguration
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS risk_configurations (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		name TEXT NOT NULL,
		impact_scale_max INTEGER NOT NULL,
		probability_scale_max INTEGER NOT NULL,
		calculation_method TEXT NOT NULL,
		use_criterias INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_risk_configurations_org
		ON risk_configurations (organization_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS risk_impact_levels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		configuration_id TEXT NOT NULL REFERENCES risk_configurations(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		score REAL NOT NULL,
		sort_order INTEGER NOT NULL,
		color TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS risk_probability_levels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		configuration_id TEXT NOT NULL REFERENCES risk_configurations(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		score REAL NOT NULL,
		sort_order INTEGER NOT NULL,
		color TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS risk_criterias (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		configuration_id TEXT NOT NULL REFERENCES risk_configurations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS risk_criteria_impacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		criteria_id INTEGER NOT NULL REFERENCES risk_criterias(id) ON DELETE CASCADE,
		impact_label TEXT NOT NULL,
		score REAL NOT NULL,
		sort_order INTEGER NOT NULL,
		impact_level_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS risk_score_levels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		configuration_id TEXT NOT NULL REFERENCES risk_configurations(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		min_score INTEGER NOT NULL,
		max_score INTEGER NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL
	)`,
}
