package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name:    "mysql",
	timeArg: nativeTime,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			news TEXT NOT NULL,
			worldend DOUBLE NOT NULL,
			reasoning TEXT NOT NULL,
			date DATETIME(6) NOT NULL,
			INDEX idx_history_date (date)
		)`,
		`CREATE TABLE IF NOT EXISTS countries (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			iso_code VARCHAR(8) NOT NULL UNIQUE,
			continent VARCHAR(64) NOT NULL DEFAULT '',
			region VARCHAR(64) NOT NULL DEFAULT '',
			current_risk_level DOUBLE NOT NULL DEFAULT 0,
			last_updated DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conflicts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			country_id BIGINT NOT NULL,
			title VARCHAR(512) NOT NULL,
			description TEXT NOT NULL,
			severity INT NOT NULL DEFAULT 1,
			conflict_type VARCHAR(32) NOT NULL DEFAULT 'diplomatic',
			status VARCHAR(32) NOT NULL DEFAULT 'active',
			risk_score DOUBLE NOT NULL DEFAULT 0,
			INDEX idx_conflicts_country (country_id, status),
			FOREIGN KEY (country_id) REFERENCES countries (id)
		)`,
		`CREATE TABLE IF NOT EXISTS global_analysis (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			overall_risk_level DOUBLE NOT NULL DEFAULT 0,
			active_conflicts_count INT NOT NULL DEFAULT 0,
			high_risk_countries_count INT NOT NULL DEFAULT 0,
			news_summary TEXT NOT NULL,
			ai_reasoning TEXT NOT NULL,
			key_events TEXT NOT NULL,
			trend_direction VARCHAR(16) NOT NULL DEFAULT 'stable',
			created_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_summaries (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			date VARCHAR(10) NOT NULL UNIQUE,
			key_events TEXT NOT NULL,
			overall_impact TEXT NOT NULL,
			average_worldend DOUBLE NOT NULL DEFAULT 0,
			created_at DATETIME(6) NOT NULL
		)`,
	},
	upsertCountry: `INSERT INTO countries (name, iso_code, continent, region, current_risk_level, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			current_risk_level = VALUES(current_risk_level),
			last_updated = VALUES(last_updated)`,
	upsertDaily: `INSERT INTO daily_summaries (date, key_events, overall_impact, average_worldend, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			key_events = VALUES(key_events),
			overall_impact = VALUES(overall_impact),
			average_worldend = VALUES(average_worldend),
			created_at = VALUES(created_at)`,
}

// OpenMySQL 连接 MySQL，强制 parseTime 并使用 UTC
func OpenMySQL(ctx context.Context, dsn string, maxOpenConns int, opts ...Option) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("mysql dsn is empty")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = defaultPoolSize
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxLifetime(3 * time.Minute)
	return newSQLStore(ctx, db, mysqlDialect, opts)
}
