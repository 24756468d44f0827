package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const defaultPoolSize = 10

var postgresDialect = dialect{
	name:      "postgres",
	numbered:  true,
	returning: true,
	timeArg:   nativeTime,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS history (
			id BIGSERIAL PRIMARY KEY,
			news TEXT NOT NULL DEFAULT '',
			worldend DOUBLE PRECISION NOT NULL,
			reasoning TEXT NOT NULL DEFAULT '',
			date TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_date ON history (date)`,
		`CREATE TABLE IF NOT EXISTS countries (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			iso_code TEXT NOT NULL UNIQUE,
			continent TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			current_risk_level DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS conflicts (
			id BIGSERIAL PRIMARY KEY,
			country_id BIGINT NOT NULL REFERENCES countries (id),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			severity INTEGER NOT NULL DEFAULT 1,
			conflict_type TEXT NOT NULL DEFAULT 'diplomatic',
			status TEXT NOT NULL DEFAULT 'active',
			risk_score DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conflicts_country ON conflicts (country_id, status)`,
		`CREATE TABLE IF NOT EXISTS global_analysis (
			id BIGSERIAL PRIMARY KEY,
			overall_risk_level DOUBLE PRECISION NOT NULL DEFAULT 0,
			active_conflicts_count INTEGER NOT NULL DEFAULT 0,
			high_risk_countries_count INTEGER NOT NULL DEFAULT 0,
			news_summary TEXT NOT NULL DEFAULT '',
			ai_reasoning TEXT NOT NULL DEFAULT '',
			key_events TEXT NOT NULL DEFAULT '[]',
			trend_direction TEXT NOT NULL DEFAULT 'stable',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS daily_summaries (
			id BIGSERIAL PRIMARY KEY,
			date TEXT NOT NULL UNIQUE,
			key_events TEXT NOT NULL DEFAULT '[]',
			overall_impact TEXT NOT NULL DEFAULT '',
			average_worldend DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	upsertCountry: `INSERT INTO countries (name, iso_code, continent, region, current_risk_level, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (iso_code) DO UPDATE SET
			current_risk_level = EXCLUDED.current_risk_level,
			last_updated = EXCLUDED.last_updated`,
	upsertDaily: `INSERT INTO daily_summaries (date, key_events, overall_impact, average_worldend, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			key_events = EXCLUDED.key_events,
			overall_impact = EXCLUDED.overall_impact,
			average_worldend = EXCLUDED.average_worldend,
			created_at = EXCLUDED.created_at`,
}

// OpenPostgres 连接 Postgres，Supabase 也走这里
func OpenPostgres(ctx context.Context, dsn string, maxOpenConns int, opts ...Option) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = defaultPoolSize
	}
	db.SetMaxOpenConns(maxOpenConns)
	return newSQLStore(ctx, db, postgresDialect, opts)
}
