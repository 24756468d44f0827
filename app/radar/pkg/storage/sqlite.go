package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

var sqliteDialect = dialect{
	name:    "sqlite",
	timeArg: textTime,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			news TEXT NOT NULL DEFAULT '',
			worldend REAL NOT NULL,
			reasoning TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_date ON history (date)`,
		`CREATE TABLE IF NOT EXISTS countries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			iso_code TEXT NOT NULL UNIQUE,
			continent TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			current_risk_level REAL NOT NULL DEFAULT 0,
			last_updated TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conflicts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			country_id INTEGER NOT NULL REFERENCES countries (id),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			severity INTEGER NOT NULL DEFAULT 1,
			conflict_type TEXT NOT NULL DEFAULT 'diplomatic',
			status TEXT NOT NULL DEFAULT 'active',
			risk_score REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conflicts_country ON conflicts (country_id, status)`,
		`CREATE TABLE IF NOT EXISTS global_analysis (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			overall_risk_level REAL NOT NULL DEFAULT 0,
			active_conflicts_count INTEGER NOT NULL DEFAULT 0,
			high_risk_countries_count INTEGER NOT NULL DEFAULT 0,
			news_summary TEXT NOT NULL DEFAULT '',
			ai_reasoning TEXT NOT NULL DEFAULT '',
			key_events TEXT NOT NULL DEFAULT '[]',
			trend_direction TEXT NOT NULL DEFAULT 'stable',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL UNIQUE,
			key_events TEXT NOT NULL DEFAULT '[]',
			overall_impact TEXT NOT NULL DEFAULT '',
			average_worldend REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
	},
	upsertCountry: `INSERT INTO countries (name, iso_code, continent, region, current_risk_level, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (iso_code) DO UPDATE SET
			current_risk_level = excluded.current_risk_level,
			last_updated = excluded.last_updated`,
	upsertDaily: `INSERT INTO daily_summaries (date, key_events, overall_impact, average_worldend, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			key_events = excluded.key_events,
			overall_impact = excluded.overall_impact,
			average_worldend = excluded.average_worldend,
			created_at = excluded.created_at`,
}

// OpenSQLite 打开（必要时创建）SQLite 数据库，path 可为 :memory:
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers single writer.
	if path != ":memory:" {
		db.SetConnMaxLifetime(time.Hour)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	return newSQLStore(ctx, db, sqliteDialect, opts)
}
