package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/world_end/app/radar/pkg/broadcast"
	"github.com/iWorld-y/world_end/app/radar/pkg/config"
	"github.com/iWorld-y/world_end/app/radar/pkg/logger"
	"github.com/iWorld-y/world_end/app/radar/pkg/model"
	"github.com/iWorld-y/world_end/app/radar/pkg/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

type fakeFetcher struct {
	mu       sync.Mutex
	articles []model.Article
	err      error
	calls    int
	block    chan struct{}
	entered  chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]model.Article, error) {
	f.mu.Lock()
	f.calls++
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return f.articles, f.err
}

type fakeEvaluator struct {
	mu         sync.Mutex
	assessment *model.Assessment
	err        error
	calls      int
	history    []*model.Evaluation
	summaryErr error
	days       []string
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ []model.Article, history []*model.Evaluation) (*model.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.history = history
	if f.err != nil {
		return nil, f.err
	}
	a := *f.assessment
	return &a, nil
}

func (f *fakeEvaluator) SummarizeDay(_ context.Context, date string, _ []*model.Evaluation, average float64) (*model.DailySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days = append(f.days, date)
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return &model.DailySummary{Date: date, KeyEvents: []string{"e"}, OverallImpact: "impact", AverageScore: average}, nil
}

type recorder struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (r *recorder) Emit(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.data = append(r.data, payload)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.events...)
}

type failingStore struct {
	storage.Store
}

func (failingStore) SaveCycle(context.Context, *model.CycleResult) (*model.Evaluation, error) {
	return nil, errors.New("disk full")
}

var articles = []model.Article{{Title: "Troops mass", Description: "Border buildup"}}

type harness struct {
	engine    *Engine
	clock     *fakeClock
	fetcher   *fakeFetcher
	evaluator *fakeEvaluator
	store     *storage.MemoryStore
	events    *recorder
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	logger.Discard()

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	for _, m := range mutate {
		m(cfg)
	}

	h := &harness{
		clock:   &fakeClock{cur: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		fetcher: &fakeFetcher{articles: articles},
		evaluator: &fakeEvaluator{assessment: &model.Assessment{
			Score: 55.5, NewsSummary: "tense", Reasoning: "buildup",
			Countries: []model.CountryAssessment{{Name: "Ukraine", ISOCode: "UKR", RiskLevel: 88, Conflicts: []*model.Conflict{
				{Title: "front", Severity: 9, Type: model.ConflictWar, Status: model.StatusActive},
			}}},
		}},
		events: &recorder{},
	}
	h.store = storage.NewMemory(storage.WithClock(h.clock.Now))

	e, err := New(cfg, h.fetcher, h.evaluator, h.store, h.events,
		WithClock(h.clock.Now), WithLocation(time.UTC))
	require.NoError(t, err)
	h.engine = e
	return h
}

func TestRunCycleCompleted(t *testing.T) {
	h := newHarness(t)

	outcome, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Equal(t, StateIdle, h.engine.State())

	latest, err := h.store.Latest(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 55.5, latest[0].Score)

	g, err := h.store.LatestGlobalAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, g.ActiveConflictsCount)
	assert.Equal(t, 1, g.HighRiskCountriesCount)

	assert.Equal(t, []string{broadcast.EventUpdate, broadcast.EventAnalysisUpdate}, h.events.Events())
	analysis := h.events.data[1].(map[string]any)
	assert.Equal(t, 55.5, analysis["overall_risk_level"])
	assert.Equal(t, 1, analysis["active_conflicts_count"])
}

func TestRunCycleNoNews(t *testing.T) {
	h := newHarness(t)
	h.fetcher.articles = nil

	outcome, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoNews, outcome)
	assert.Zero(t, h.evaluator.calls)
	assert.Empty(t, h.events.Events())

	latest, _ := h.store.Latest(context.Background(), 10)
	assert.Empty(t, latest)
}

func TestRunCycleFetchErrorSkips(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = errors.New("503")

	outcome, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoNews, outcome)
	assert.Zero(t, h.evaluator.calls)
}

func TestRunCycleThrottled(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)

	h.fetcher.articles = []model.Article{{Title: "Other", Description: "news"}}
	h.clock.Advance(10 * time.Minute)
	outcome, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeThrottled, outcome)
	assert.Equal(t, 1, h.fetcher.calls)
	assert.Equal(t, 1, h.evaluator.calls)

	h.clock.Advance(21 * time.Minute)
	outcome, err = h.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Equal(t, 2, h.evaluator.calls)
	assert.Len(t, h.evaluator.history, 1)
}

func TestRunCycleDuplicate(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Scheduler.MinInterval = "0s" })

	_, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)

	outcome, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, h.evaluator.calls)
}

func TestRunCycleEvaluationFailed(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Scheduler.MinInterval = "0s" })
	h.evaluator.err = errors.New("no json")

	outcome, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeEvaluationFailed, outcome)
	assert.Empty(t, h.events.Events())

	// a failed evaluation neither throttles nor marks the news as seen
	h.evaluator.err = nil
	outcome, err = h.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
}

func TestRunCycleStoreFailure(t *testing.T) {
	logger.Discard()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	events := &recorder{}
	ev := &fakeEvaluator{assessment: &model.Assessment{Score: 10}}
	e, err := New(cfg, &fakeFetcher{articles: articles}, ev, failingStore{storage.NewMemory()}, events)
	require.NoError(t, err)

	_, err = e.RunCycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, events.Events())
	assert.Equal(t, StateIdle, e.State())
}

func TestRunCycleSingleFlight(t *testing.T) {
	h := newHarness(t)
	h.fetcher.block = make(chan struct{})
	h.fetcher.entered = make(chan struct{}, 1)

	done := make(chan Outcome)
	go func() {
		outcome, _ := h.engine.RunCycle(context.Background())
		done <- outcome
	}()
	<-h.fetcher.entered
	assert.Equal(t, StateFetching, h.engine.State())

	_, err := h.engine.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(h.fetcher.block)
	assert.Equal(t, OutcomeCompleted, <-done)
	assert.Equal(t, 1, h.evaluator.calls)
}

func TestRunCycleWithoutCountriesSkipsAnalysisUpdate(t *testing.T) {
	h := newHarness(t)
	h.evaluator.assessment = &model.Assessment{Score: 30, NewsSummary: "quiet"}

	_, err := h.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{broadcast.EventUpdate}, h.events.Events())

	_, err = h.store.LatestGlobalAnalysis(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunCyclePanicIsRecovered(t *testing.T) {
	h := newHarness(t)
	h.evaluator.assessment = nil // dereference panics inside Evaluate

	_, err := h.engine.RunCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateIdle, h.engine.State())

	h.evaluator.assessment = &model.Assessment{Score: 1}
	_, err = h.engine.RunCycle(context.Background())
	assert.NoError(t, err)
}

func insertAt(t *testing.T, h *harness, at time.Time, score float64) {
	t.Helper()
	h.clock.mu.Lock()
	h.clock.cur = at
	h.clock.mu.Unlock()
	_, err := h.store.Insert(context.Background(), &model.Evaluation{Score: score})
	require.NoError(t, err)
}

func TestRunDailyRollup(t *testing.T) {
	h := newHarness(t)
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	insertAt(t, h, day.Add(-time.Minute), 99)
	insertAt(t, h, day.Add(time.Hour), 40)
	insertAt(t, h, day.Add(13*time.Hour), 50.02)
	insertAt(t, h, day.Add(24*time.Hour), 1)

	sum, err := h.engine.RunDailyRollup(context.Background(), day.Add(15*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, "2025-03-01", sum.Date)
	assert.Equal(t, 45.01, sum.AverageScore)
	assert.Equal(t, "impact", sum.OverallImpact)

	got, err := h.store.GetDailySummary(context.Background(), "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, 45.01, got.AverageScore)
	assert.Equal(t, []string{broadcast.EventDailySummary}, h.events.Events())

	// rerun overwrites the same row
	again, err := h.engine.RunDailyRollup(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, sum.ID, again.ID)
}

func TestRunDailyRollupEmptyDay(t *testing.T) {
	h := newHarness(t)
	sum, err := h.engine.RunDailyRollup(context.Background(), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, sum)
	assert.Empty(t, h.evaluator.days)

	_, err = h.store.GetDailySummary(context.Background(), "2025-02-01")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunDailyRollupEvaluatorFailureKeepsAverage(t *testing.T) {
	h := newHarness(t)
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	insertAt(t, h, day.Add(time.Hour), 20)
	h.evaluator.summaryErr = errors.New("llm down")

	sum, err := h.engine.RunDailyRollup(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 20.0, sum.AverageScore)
	assert.Empty(t, sum.KeyEvents)
}

func TestRunLoop(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Scheduler.Interval = "5ms"
		c.Scheduler.MinInterval = "0s"
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.engine.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		h.fetcher.mu.Lock()
		defer h.fetcher.mu.Unlock()
		return h.fetcher.calls >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	h.evaluator.mu.Lock()
	defer h.evaluator.mu.Unlock()
	assert.Equal(t, 1, h.evaluator.calls, "unchanged news is evaluated once")
}

func TestUntilMidnight(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 12*time.Hour, h.engine.untilMidnight())
}
