package biz

import (
	"context"
	"errors"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/world_end/app/radar/pkg/engine"
	"github.com/iWorld-y/world_end/app/radar/pkg/model"
)

// Error reasons returned to the service layer.
const (
	ReasonAnalysisNotFound = "ANALYSIS_NOT_FOUND"
	ReasonSummaryNotFound  = "SUMMARY_NOT_FOUND"
	ReasonInvalidDate      = "INVALID_DATE"
	ReasonCycleInProgress  = "CYCLE_IN_PROGRESS"
	ReasonRadarDisabled    = "RADAR_DISABLED"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
	DefaultPeriod       = "24h"
	dateLayout          = "2006-01-02"
)

var periods = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// AnalysisRepo 只读查询
type AnalysisRepo interface {
	Latest(ctx context.Context, n int) ([]*model.Evaluation, error)
	Since(ctx context.Context, since time.Time) ([]*model.Evaluation, error)
	Countries(ctx context.Context) ([]*model.Country, error)
	Conflicts(ctx context.Context) ([]*model.Conflict, error)
	GlobalAnalysis(ctx context.Context) (*model.GlobalAnalysis, error)
	DailySummary(ctx context.Context, date string) (*model.DailySummary, error)
}

// CycleRunner 手动触发一次分析周期
type CycleRunner interface {
	RunCycle(ctx context.Context) (engine.Outcome, error)
}

// TrendPoint 历史曲线上的一个点
type TrendPoint struct {
	OverallRiskLevel float64   `json:"overall_risk_level"`
	CreatedAt        time.Time `json:"created_at"`
}

// TriggerResult 手动触发结果
type TriggerResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Outcome engine.Outcome `json:"outcome"`
}

type AnalysisUseCase struct {
	repo   AnalysisRepo
	runner CycleRunner
	now    func() time.Time
	log    *log.Helper
}

func NewAnalysisUseCase(repo AnalysisRepo, runner CycleRunner, logger log.Logger) *AnalysisUseCase {
	return &AnalysisUseCase{repo: repo, runner: runner, now: time.Now, log: log.NewHelper(logger)}
}

// ClampLimit 0 视为未指定
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultHistoryLimit
	case limit < 1:
		return 1
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

// PeriodWindow 未知周期按 24h 处理
func PeriodWindow(period string) time.Duration {
	if d, ok := periods[period]; ok {
		return d
	}
	return periods[DefaultPeriod]
}

func (uc *AnalysisUseCase) Latest(ctx context.Context) (*model.Evaluation, error) {
	rows, err := uc.repo.Latest(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, kerrors.NotFound(ReasonAnalysisNotFound, "no evaluation recorded yet")
	}
	return rows[0], nil
}

func (uc *AnalysisUseCase) History(ctx context.Context, limit int) ([]*model.Evaluation, error) {
	return uc.repo.Latest(ctx, ClampLimit(limit))
}

// Trend 返回周期内的分数曲线，按时间升序
func (uc *AnalysisUseCase) Trend(ctx context.Context, period string) ([]TrendPoint, error) {
	rows, err := uc.repo.Since(ctx, uc.now().Add(-PeriodWindow(period)))
	if err != nil {
		return nil, err
	}
	points := make([]TrendPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, TrendPoint{OverallRiskLevel: r.Score, CreatedAt: r.CreatedAt})
	}
	return points, nil
}

func (uc *AnalysisUseCase) Countries(ctx context.Context) ([]*model.Country, error) {
	return uc.repo.Countries(ctx)
}

func (uc *AnalysisUseCase) Conflicts(ctx context.Context) ([]*model.Conflict, error) {
	return uc.repo.Conflicts(ctx)
}

func (uc *AnalysisUseCase) GlobalAnalysis(ctx context.Context) (*model.GlobalAnalysis, error) {
	return uc.repo.GlobalAnalysis(ctx)
}

// DailySummary date 为空时取昨天
func (uc *AnalysisUseCase) DailySummary(ctx context.Context, date string) (*model.DailySummary, error) {
	if date == "" {
		date = uc.now().AddDate(0, 0, -1).Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, kerrors.BadRequest(ReasonInvalidDate, "date must be formatted as YYYY-MM-DD")
	}
	return uc.repo.DailySummary(ctx, date)
}

// Trigger 同步执行一次周期
func (uc *AnalysisUseCase) Trigger(ctx context.Context) (*TriggerResult, error) {
	if uc.runner == nil {
		return nil, kerrors.ServiceUnavailable(ReasonRadarDisabled, "analysis engine is not configured")
	}

	uc.log.WithContext(ctx).Info("manual analysis trigger requested")
	outcome, err := uc.runner.RunCycle(ctx)
	if errors.Is(err, engine.ErrCycleInProgress) {
		return nil, kerrors.Conflict(ReasonCycleInProgress, "an analysis cycle is already running")
	}
	if err != nil {
		return nil, err
	}

	res := &TriggerResult{Success: true, Outcome: outcome}
	switch outcome {
	case engine.OutcomeCompleted:
		res.Message = "Analysis triggered successfully"
	case engine.OutcomeThrottled:
		res.Message = "Analysis skipped, minimum interval between AI calls not reached"
	case engine.OutcomeNoNews:
		res.Message = "No relevant news available, analysis skipped"
	case engine.OutcomeDuplicate:
		res.Message = "News unchanged since the last analysis"
	default:
		res.Success = false
		res.Message = "AI analysis failed"
	}
	return res, nil
}
