package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iWorld-y/world_end/app/radar/pkg/model"
)

// dialect 各数据库之间的差异
type dialect struct {
	name string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// INSERT ... RETURNING id instead of LastInsertId
	returning     bool
	schema        []string
	upsertCountry string
	upsertDaily   string
	// timeArg converts a timestamp into a query argument
	timeArg func(time.Time) any
}

func nativeTime(t time.Time) any { return t.UTC() }

// dbtx *sql.DB 与 *sql.Tx 的公共部分
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore 基于 database/sql 的 Store 实现
type SQLStore struct {
	db *sql.DB
	d  dialect
	options
}

var _ Store = (*SQLStore)(nil)

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, opts []Option) (*SQLStore, error) {
	s := &SQLStore{db: db, d: d, options: buildOptions(opts)}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// DB 底层连接池，用于采集连接指标
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, query := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

// rebind 将 ? 占位符转换为当前方言的写法
func (s *SQLStore) rebind(query string) string {
	if !s.d.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *SQLStore) exec(ctx context.Context, q dbtx, query string, args ...any) error {
	_, err := q.ExecContext(ctx, s.rebind(query), args...)
	return err
}

func (s *SQLStore) insertID(ctx context.Context, q dbtx, query string, args ...any) (int64, error) {
	if s.d.returning {
		var id int64
		err := q.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := q.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// --- history ---

func (s *SQLStore) Insert(ctx context.Context, e *model.Evaluation) (*model.Evaluation, error) {
	return s.insertEvaluation(ctx, s.db, e)
}

func (s *SQLStore) insertEvaluation(ctx context.Context, q dbtx, e *model.Evaluation) (*model.Evaluation, error) {
	out := *e
	out.CreatedAt = s.now().UTC()
	id, err := s.insertID(ctx, q,
		`INSERT INTO history (news, worldend, reasoning, date) VALUES (?, ?, ?, ?)`,
		out.NewsSummary, out.Score, out.Reasoning, s.d.timeArg(out.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert evaluation: %w", err)
	}
	out.ID = id
	return &out, nil
}

func (s *SQLStore) Latest(ctx context.Context, n int) ([]*model.Evaluation, error) {
	if n <= 0 {
		return []*model.Evaluation{}, nil
	}
	return s.queryEvaluations(ctx,
		`SELECT id, news, worldend, reasoning, date FROM history ORDER BY id DESC LIMIT ?`, n)
}

func (s *SQLStore) RangeSince(ctx context.Context, since time.Time) ([]*model.Evaluation, error) {
	return s.queryEvaluations(ctx,
		`SELECT id, news, worldend, reasoning, date FROM history WHERE date >= ? ORDER BY date ASC, id ASC LIMIT ?`,
		s.d.timeArg(since), MaxRange)
}

func (s *SQLStore) queryEvaluations(ctx context.Context, query string, args ...any) ([]*model.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Evaluation{}
	for rows.Next() {
		var (
			e  model.Evaluation
			ts dbTime
		)
		if err := rows.Scan(&e.ID, &e.NewsSummary, &e.Score, &e.Reasoning, &ts); err != nil {
			return nil, err
		}
		e.CreatedAt = ts.Time
		out = append(out, &e)
	}
	return out, rows.Err()
}

// --- countries & conflicts ---

const countryColumns = `id, name, iso_code, continent, region, current_risk_level, last_updated`

func (s *SQLStore) UpsertCountry(ctx context.Context, c *model.Country) (*model.Country, error) {
	return s.upsertCountry(ctx, s.db, c)
}

func (s *SQLStore) upsertCountry(ctx context.Context, q dbtx, c *model.Country) (*model.Country, error) {
	iso := strings.ToUpper(strings.TrimSpace(c.ISOCode))
	if iso == "" {
		return nil, fmt.Errorf("country iso code is empty")
	}
	err := s.exec(ctx, q, s.d.upsertCountry,
		c.Name, iso, c.Continent, c.Region, c.CurrentRiskLevel, s.d.timeArg(s.now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert country %s: %w", iso, err)
	}

	row := q.QueryRowContext(ctx, s.rebind(`SELECT `+countryColumns+` FROM countries WHERE iso_code = ?`), iso)
	return scanCountry(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCountry(row scanner) (*model.Country, error) {
	var (
		c  model.Country
		ts dbTime
	)
	if err := row.Scan(&c.ID, &c.Name, &c.ISOCode, &c.Continent, &c.Region, &c.CurrentRiskLevel, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.LastUpdated = ts.Time
	return &c, nil
}

func (s *SQLStore) ListCountries(ctx context.Context) ([]*model.Country, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+countryColumns+` FROM countries ORDER BY current_risk_level DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Country{}
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) ReplaceActiveConflicts(ctx context.Context, countryID int64, conflicts []*model.Conflict) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.replaceActiveConflicts(ctx, tx, countryID, conflicts)
	})
}

func (s *SQLStore) replaceActiveConflicts(ctx context.Context, q dbtx, countryID int64, conflicts []*model.Conflict) error {
	if err := s.exec(ctx, q, `DELETE FROM conflicts WHERE country_id = ? AND status = ?`,
		countryID, model.StatusActive); err != nil {
		return fmt.Errorf("failed to clear conflicts: %w", err)
	}
	for _, c := range conflicts {
		status := c.Status
		if status == "" {
			status = model.StatusActive
		}
		err := s.exec(ctx, q,
			`INSERT INTO conflicts (country_id, title, description, severity, conflict_type, status, risk_score) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			countryID, c.Title, c.Description, c.Severity, c.Type, status, c.RiskScore)
		if err != nil {
			return fmt.Errorf("failed to insert conflict: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) ListActiveConflicts(ctx context.Context) ([]*model.Conflict, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT c.id, c.country_id, c.title, c.description, c.severity, c.conflict_type, c.status, c.risk_score,
			COALESCE(k.name, 'Unknown'), COALESCE(k.iso_code, 'UNK')
		FROM conflicts c
		LEFT JOIN countries k ON k.id = c.country_id
		WHERE c.status = ?
		ORDER BY c.severity DESC, c.id ASC`), model.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Conflict{}
	for rows.Next() {
		var c model.Conflict
		if err := rows.Scan(&c.ID, &c.CountryID, &c.Title, &c.Description, &c.Severity, &c.Type,
			&c.Status, &c.RiskScore, &c.CountryName, &c.CountryISO); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// --- global analysis ---

func (s *SQLStore) InsertGlobalAnalysis(ctx context.Context, g *model.GlobalAnalysis) (*model.GlobalAnalysis, error) {
	return s.insertGlobalAnalysis(ctx, s.db, g)
}

func (s *SQLStore) insertGlobalAnalysis(ctx context.Context, q dbtx, g *model.GlobalAnalysis) (*model.GlobalAnalysis, error) {
	out := *g
	out.CreatedAt = s.now().UTC()
	events, err := encodeEvents(out.KeyEvents)
	if err != nil {
		return nil, err
	}
	id, err := s.insertID(ctx, q,
		`INSERT INTO global_analysis (overall_risk_level, active_conflicts_count, high_risk_countries_count, news_summary, ai_reasoning, key_events, trend_direction, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		out.OverallRiskLevel, out.ActiveConflictsCount, out.HighRiskCountriesCount,
		out.NewsSummary, out.AIReasoning, events, out.TrendDirection, s.d.timeArg(out.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert global analysis: %w", err)
	}
	out.ID = id
	return &out, nil
}

func (s *SQLStore) LatestGlobalAnalysis(ctx context.Context) (*model.GlobalAnalysis, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, overall_risk_level, active_conflicts_count, high_risk_countries_count,
			news_summary, ai_reasoning, key_events, trend_direction, created_at
		FROM global_analysis ORDER BY id DESC LIMIT 1`)

	var (
		g      model.GlobalAnalysis
		events string
		ts     dbTime
	)
	err := row.Scan(&g.ID, &g.OverallRiskLevel, &g.ActiveConflictsCount, &g.HighRiskCountriesCount,
		&g.NewsSummary, &g.AIReasoning, &events, &g.TrendDirection, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	g.CreatedAt = ts.Time
	g.KeyEvents = decodeEvents(events)
	return &g, nil
}

// --- daily summaries ---

func (s *SQLStore) UpsertDailySummary(ctx context.Context, d *model.DailySummary) (*model.DailySummary, error) {
	events, err := encodeEvents(d.KeyEvents)
	if err != nil {
		return nil, err
	}
	err = s.exec(ctx, s.db, s.d.upsertDaily,
		d.Date, events, d.OverallImpact, d.AverageScore, s.d.timeArg(s.now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert daily summary %s: %w", d.Date, err)
	}
	return s.GetDailySummary(ctx, d.Date)
}

func (s *SQLStore) GetDailySummary(ctx context.Context, date string) (*model.DailySummary, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, date, key_events, overall_impact, average_worldend, created_at
		FROM daily_summaries WHERE date = ?`), date)

	var (
		d      model.DailySummary
		events string
		ts     dbTime
	)
	err := row.Scan(&d.ID, &d.Date, &events, &d.OverallImpact, &d.AverageScore, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.CreatedAt = ts.Time
	d.KeyEvents = decodeEvents(events)
	return &d, nil
}

// --- cycle ---

func (s *SQLStore) SaveCycle(ctx context.Context, res *model.CycleResult) (*model.Evaluation, error) {
	var saved *model.Evaluation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		e, err := s.insertEvaluation(ctx, tx, res.Evaluation)
		if err != nil {
			return err
		}
		if res.Analysis != nil {
			if _, err := s.insertGlobalAnalysis(ctx, tx, res.Analysis); err != nil {
				return err
			}
		}
		for _, ca := range res.Countries {
			c, err := s.upsertCountry(ctx, tx, &model.Country{
				Name:             ca.Name,
				ISOCode:          ca.ISOCode,
				CurrentRiskLevel: ca.RiskLevel,
			})
			if err != nil {
				return err
			}
			if ca.Conflicts == nil {
				continue
			}
			if err := s.replaceActiveConflicts(ctx, tx, c.ID, ca.Conflicts); err != nil {
				return err
			}
		}
		saved = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save cycle: %w", err)
	}
	return saved, nil
}

func (s *SQLStore) SeedCountries(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM countries`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range seedCountries {
			if _, err := s.upsertCountry(ctx, tx, &seedCountries[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func encodeEvents(events []string) (string, error) {
	if events == nil {
		events = []string{}
	}
	b, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("encode key events: %w", err)
	}
	return string(b), nil
}

func decodeEvents(raw string) []string {
	events := []string{}
	if raw == "" {
		return events
	}
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return []string{}
	}
	return events
}
