package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/iWorld-y/world_end/app/radar/pkg/broadcast"
	"github.com/iWorld-y/world_end/app/radar/pkg/config"
	"github.com/iWorld-y/world_end/app/radar/pkg/evaluator"
	"github.com/iWorld-y/world_end/app/radar/pkg/logger"
	"github.com/iWorld-y/world_end/app/radar/pkg/metrics"
	"github.com/iWorld-y/world_end/app/radar/pkg/model"
	"github.com/iWorld-y/world_end/app/radar/pkg/news"
	"github.com/iWorld-y/world_end/app/radar/pkg/news/factory"
	"github.com/iWorld-y/world_end/app/radar/pkg/storage"
)

// ErrCycleInProgress 已有周期在运行
var ErrCycleInProgress = errors.New("analysis cycle already in progress")

// Fetcher 新闻获取，返回 nil 表示本周期无新闻
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.Article, error)
}

// Evaluator 风险评估
type Evaluator interface {
	Evaluate(ctx context.Context, articles []model.Article, history []*model.Evaluation) (*model.Assessment, error)
	SummarizeDay(ctx context.Context, date string, records []*model.Evaluation, average float64) (*model.DailySummary, error)
}

// State 调度器当前所处阶段
type State string

const (
	StateIdle         State = "idle"
	StateFetching     State = "fetching"
	StateEvaluating   State = "evaluating"
	StatePersisting   State = "persisting"
	StateBroadcasting State = "broadcasting"
)

// Outcome 一个周期的结果
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeThrottled        Outcome = "throttled"
	OutcomeNoNews           Outcome = "no_news"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeEvaluationFailed Outcome = "evaluation_failed"
)

// Engine 调度器：拉取新闻、评估、持久化并推送
type Engine struct {
	fetcher     Fetcher
	evaluator   Evaluator
	store       storage.Store
	broadcaster broadcast.Broadcaster

	interval     time.Duration
	minInterval  time.Duration
	historyDepth int
	runOnStart   bool
	dailyRollup  bool
	now          func() time.Time
	loc          *time.Location

	runMu sync.Mutex

	mu                sync.RWMutex
	state             State
	lastEvaluatorCall time.Time
	lastFingerprint   string
	lastOutcome       Outcome
}

// Option Engine 选项
type Option func(*Engine)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation 日汇总使用的时区，默认本地时区
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// New 创建引擎，broadcaster 可为 nil
func New(cfg *config.Config, fetcher Fetcher, ev Evaluator, store storage.Store, b broadcast.Broadcaster, opts ...Option) (*Engine, error) {
	interval, err := cfg.SchedulerInterval()
	if err != nil {
		return nil, err
	}
	minInterval, err := cfg.SchedulerMinInterval()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		fetcher:      fetcher,
		evaluator:    ev,
		store:        store,
		broadcaster:  b,
		interval:     interval,
		minInterval:  minInterval,
		historyDepth: cfg.Scheduler.HistoryDepth,
		runOnStart:   cfg.ShouldRunOnStart(),
		dailyRollup:  cfg.Scheduler.DailyRollup,
		now:          time.Now,
		loc:          time.Local,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewFromConfig 按配置组装新闻源与 LLM 并创建引擎
func NewFromConfig(ctx context.Context, cfg *config.Config, store storage.Store, b broadcast.Broadcaster) (*Engine, error) {
	fetcher, err := factory.NewFetcher(&cfg.News)
	if err != nil {
		return nil, fmt.Errorf("新闻源初始化失败: %w", err)
	}
	cm, err := evaluator.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	return New(cfg, fetcher, evaluator.New(cm, cfg), store, b)
}

// State 当前阶段
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Status 调度器状态快照
type Status struct {
	State             State     `json:"state"`
	LastEvaluatorCall time.Time `json:"last_evaluator_call"`
	LastOutcome       Outcome   `json:"last_outcome,omitempty"`
}

// Status 返回状态快照
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{State: e.state, LastEvaluatorCall: e.lastEvaluatorCall, LastOutcome: e.lastOutcome}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// RunCycle 执行一个分析周期；已有周期在运行时返回 ErrCycleInProgress
func (e *Engine) RunCycle(ctx context.Context) (outcome Outcome, err error) {
	if !e.runMu.TryLock() {
		return "", ErrCycleInProgress
	}
	defer e.runMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			outcome, err = "", fmt.Errorf("analysis cycle panic: %v", r)
		}
		e.mu.Lock()
		e.state = StateIdle
		if err == nil {
			e.lastOutcome = outcome
		}
		e.mu.Unlock()

		label := string(outcome)
		if err != nil {
			label = "error"
		}
		metrics.CyclesTotal.WithLabelValues(label).Inc()
	}()

	return e.runCycle(ctx)
}

func (e *Engine) runCycle(ctx context.Context) (Outcome, error) {
	now := e.now()

	e.mu.RLock()
	last := e.lastEvaluatorCall
	lastFingerprint := e.lastFingerprint
	e.mu.RUnlock()

	if !last.IsZero() && now.Sub(last) < e.minInterval {
		remaining := int(math.Ceil((e.minInterval - now.Sub(last)).Minutes()))
		logger.Log.Infof("AI analysis skipped - %d minutes remaining until next allowed call", remaining)
		return OutcomeThrottled, nil
	}

	logger.Log.Info("Starting global conflict analysis...")
	if e.fetcher == nil {
		return OutcomeNoNews, nil
	}
	e.setState(StateFetching)
	articles, err := e.fetcher.Fetch(ctx)
	if err != nil {
		logger.Log.Errorf("Error fetching news: %v", err)
		return OutcomeNoNews, nil
	}
	if len(articles) == 0 {
		logger.Log.Info("No current news available for analysis - skipping this cycle")
		return OutcomeNoNews, nil
	}

	fingerprint := news.Fingerprint(articles)
	if fingerprint == lastFingerprint {
		logger.Log.Info("News unchanged since last analysis - skipping this cycle")
		return OutcomeDuplicate, nil
	}

	e.setState(StateEvaluating)
	history, err := e.store.Latest(ctx, e.historyDepth)
	if err != nil {
		logger.Log.Warnf("读取历史评分失败，不带历史继续: %v", err)
		history = nil
	}

	logger.Log.Infof("Analyzing %d relevant news articles...", len(articles))
	assessment, err := e.evaluator.Evaluate(ctx, articles, history)
	if err != nil {
		logger.Log.Errorf("AI analysis failed: %v", err)
		return OutcomeEvaluationFailed, nil
	}

	e.mu.Lock()
	e.lastEvaluatorCall = e.now()
	e.lastFingerprint = fingerprint
	e.mu.Unlock()

	e.setState(StatePersisting)
	saved, err := e.store.SaveCycle(ctx, model.NewCycleResult(assessment))
	if err != nil {
		return "", fmt.Errorf("persist analysis: %w", err)
	}
	metrics.LatestScore.Set(saved.Score)

	e.setState(StateBroadcasting)
	e.emit(broadcast.EventUpdate, saved)
	if len(assessment.Countries) > 0 {
		e.emit(broadcast.EventAnalysisUpdate, map[string]any{
			"overall_risk_level":        assessment.Score,
			"active_conflicts_count":    assessment.ActiveConflictsCount(),
			"high_risk_countries_count": assessment.HighRiskCountriesCount(),
			"timestamp":                 saved.CreatedAt,
		})
	}

	logger.Log.Infof("Global analysis completed - Risk Level: %.2f%%", saved.Score)
	return OutcomeCompleted, nil
}

func (e *Engine) emit(event string, payload any) {
	if e.broadcaster == nil {
		return
	}
	e.broadcaster.Emit(event, payload)
}

// Run 启动时可先执行一次，之后按间隔执行，并在本地零点生成前一日汇总；ctx 取消后返回
func (e *Engine) Run(ctx context.Context) {
	if e.runOnStart {
		logger.Log.Info("Running initial global analysis...")
		e.tick(ctx)
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	var midnight <-chan time.Time
	var timer *time.Timer
	if e.dailyRollup {
		timer = time.NewTimer(e.untilMidnight())
		defer timer.Stop()
		midnight = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		case <-midnight:
			yesterday := e.startOfDay(e.now()).AddDate(0, 0, -1)
			e.rollupSafely(ctx, yesterday)
			timer.Reset(e.untilMidnight())
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	outcome, err := e.RunCycle(ctx)
	switch {
	case errors.Is(err, ErrCycleInProgress):
		logger.Log.Info("Previous analysis still running - skipping tick")
	case err != nil:
		logger.Log.Errorf("Error in global analysis: %v", err)
	default:
		logger.Log.Debugf("analysis cycle finished: %s", outcome)
	}
}

func (e *Engine) rollupSafely(ctx context.Context, day time.Time) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("daily rollup panic: %v", r)
		}
	}()
	if _, err := e.RunDailyRollup(ctx, day); err != nil {
		logger.Log.Errorf("daily rollup failed: %v", err)
	}
}

func (e *Engine) startOfDay(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.loc)
}

func (e *Engine) untilMidnight() time.Duration {
	now := e.now()
	return e.startOfDay(now).AddDate(0, 0, 1).Sub(now)
}

// RunDailyRollup 汇总 day 当天 [00:00, 次日 00:00) 的评分；无记录时不写入并返回 nil
func (e *Engine) RunDailyRollup(ctx context.Context, day time.Time) (*model.DailySummary, error) {
	start := e.startOfDay(day)
	end := start.AddDate(0, 0, 1)
	date := start.Format(time.DateOnly)

	since, err := e.store.RangeSince(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("load records for %s: %w", date, err)
	}
	var records []*model.Evaluation
	var total float64
	for _, r := range since {
		if !r.CreatedAt.Before(end) {
			continue
		}
		records = append(records, r)
		total += r.Score
	}
	if len(records) == 0 {
		logger.Log.Infof("No records for %s - skipping daily summary", date)
		return nil, nil
	}
	average := evaluator.Round2(total / float64(len(records)))

	summary, err := e.evaluator.SummarizeDay(ctx, date, records, average)
	if err != nil {
		logger.Log.Warnf("每日总结生成失败，仅保存平均分 [%s]: %v", date, err)
		summary = &model.DailySummary{KeyEvents: []string{}}
	}
	summary.Date = date
	summary.AverageScore = average

	saved, err := e.store.UpsertDailySummary(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("save daily summary %s: %w", date, err)
	}
	e.emit(broadcast.EventDailySummary, saved)
	logger.Log.Infof("Daily summary for %s saved - average %.2f over %d records", date, average, len(records))
	return saved, nil
}
