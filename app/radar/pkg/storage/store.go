package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iWorld-y/world_end/app/radar/pkg/config"
	"github.com/iWorld-y/world_end/app/radar/pkg/model"
)

// ErrNotFound 查询结果为空
var ErrNotFound = errors.New("not found")

// MaxRange RangeSince 单次最多返回的记录数
const MaxRange = 10000

// Store 评估历史与扩展模型的持久化接口，读方法无副作用
type Store interface {
	Insert(ctx context.Context, e *model.Evaluation) (*model.Evaluation, error)
	Latest(ctx context.Context, n int) ([]*model.Evaluation, error)
	RangeSince(ctx context.Context, since time.Time) ([]*model.Evaluation, error)

	UpsertCountry(ctx context.Context, c *model.Country) (*model.Country, error)
	ReplaceActiveConflicts(ctx context.Context, countryID int64, conflicts []*model.Conflict) error
	ListCountries(ctx context.Context) ([]*model.Country, error)
	ListActiveConflicts(ctx context.Context) ([]*model.Conflict, error)

	InsertGlobalAnalysis(ctx context.Context, g *model.GlobalAnalysis) (*model.GlobalAnalysis, error)
	LatestGlobalAnalysis(ctx context.Context) (*model.GlobalAnalysis, error)

	UpsertDailySummary(ctx context.Context, d *model.DailySummary) (*model.DailySummary, error)
	GetDailySummary(ctx context.Context, date string) (*model.DailySummary, error)

	// SaveCycle 原子写入一个周期的评估、全局分析、国家与冲突
	SaveCycle(ctx context.Context, res *model.CycleResult) (*model.Evaluation, error)
	SeedCountries(ctx context.Context) error
	Close() error
}

// Option 存储选项
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock 注入写入时间来源
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New 按配置打开存储并初始化表结构
func New(ctx context.Context, cfg config.DBConfig, opts ...Option) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "memory":
		s = NewMemory(opts...)
	case "sqlite", "":
		s, err = OpenSQLite(ctx, cfg.DSN, opts...)
	case "postgres", "supabase":
		s, err = OpenPostgres(ctx, cfg.DSN, cfg.MaxOpenConns, opts...)
	case "mysql":
		s, err = OpenMySQL(ctx, cfg.DSN, cfg.MaxOpenConns, opts...)
	default:
		return nil, fmt.Errorf("unknown db driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.SeedCountries {
		if err := s.SeedCountries(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("seed countries: %w", err)
		}
	}
	return s, nil
}
