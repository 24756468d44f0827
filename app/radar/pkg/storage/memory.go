package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iWorld-y/world_end/app/radar/pkg/model"
)

// MemoryStore 进程内存储，用于测试与无数据库运行
type MemoryStore struct {
	mu        sync.RWMutex
	history   []model.Evaluation
	countries []model.Country
	conflicts []model.Conflict
	analyses  []model.GlobalAnalysis
	daily     map[string]model.DailySummary
	nextID    int64
	options
}

var _ Store = (*MemoryStore)(nil)

// NewMemory 创建空的内存存储
func NewMemory(opts ...Option) *MemoryStore {
	return &MemoryStore{
		daily:   make(map[string]model.DailySummary),
		options: buildOptions(opts),
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) Insert(_ context.Context, e *model.Evaluation) (*model.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(e), nil
}

func (m *MemoryStore) insertLocked(e *model.Evaluation) *model.Evaluation {
	out := *e
	out.ID = m.id()
	out.CreatedAt = m.now().UTC()
	m.history = append(m.history, out)
	return &out
}

func (m *MemoryStore) Latest(_ context.Context, n int) ([]*model.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*model.Evaluation{}
	for i := len(m.history) - 1; i >= 0 && len(out) < n; i-- {
		e := m.history[i]
		out = append(out, &e)
	}
	return out, nil
}

func (m *MemoryStore) RangeSince(_ context.Context, since time.Time) ([]*model.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*model.Evaluation{}
	for _, e := range m.history {
		if e.CreatedAt.Before(since) {
			continue
		}
		out = append(out, &e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > MaxRange {
		out = out[:MaxRange]
	}
	return out, nil
}

func (m *MemoryStore) UpsertCountry(_ context.Context, c *model.Country) (*model.Country, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertCountryLocked(c)
}

func (m *MemoryStore) upsertCountryLocked(c *model.Country) (*model.Country, error) {
	iso := strings.ToUpper(strings.TrimSpace(c.ISOCode))
	if iso == "" {
		return nil, fmt.Errorf("country iso code is empty")
	}
	now := m.now().UTC()
	for i := range m.countries {
		if m.countries[i].ISOCode == iso {
			m.countries[i].CurrentRiskLevel = c.CurrentRiskLevel
			m.countries[i].LastUpdated = now
			out := m.countries[i]
			return &out, nil
		}
	}
	out := *c
	out.ID = m.id()
	out.ISOCode = iso
	out.LastUpdated = now
	m.countries = append(m.countries, out)
	return &out, nil
}

func (m *MemoryStore) ReplaceActiveConflicts(_ context.Context, countryID int64, conflicts []*model.Conflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceConflictsLocked(countryID, conflicts)
	return nil
}

func (m *MemoryStore) replaceConflictsLocked(countryID int64, conflicts []*model.Conflict) {
	kept := m.conflicts[:0]
	for _, c := range m.conflicts {
		if c.CountryID == countryID && c.Status == model.StatusActive {
			continue
		}
		kept = append(kept, c)
	}
	m.conflicts = kept

	for _, c := range conflicts {
		out := *c
		out.ID = m.id()
		out.CountryID = countryID
		out.CountryName, out.CountryISO = "", ""
		if out.Status == "" {
			out.Status = model.StatusActive
		}
		m.conflicts = append(m.conflicts, out)
	}
}

func (m *MemoryStore) ListCountries(_ context.Context) ([]*model.Country, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Country, 0, len(m.countries))
	for _, c := range m.countries {
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CurrentRiskLevel > out[j].CurrentRiskLevel })
	return out, nil
}

func (m *MemoryStore) ListActiveConflicts(_ context.Context) ([]*model.Conflict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byID := make(map[int64]model.Country, len(m.countries))
	for _, c := range m.countries {
		byID[c.ID] = c
	}

	out := []*model.Conflict{}
	for _, c := range m.conflicts {
		if c.Status != model.StatusActive {
			continue
		}
		if country, ok := byID[c.CountryID]; ok {
			c.CountryName, c.CountryISO = country.Name, country.ISOCode
		} else {
			c.CountryName, c.CountryISO = "Unknown", "UNK"
		}
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Severity > out[j].Severity })
	return out, nil
}

func (m *MemoryStore) InsertGlobalAnalysis(_ context.Context, g *model.GlobalAnalysis) (*model.GlobalAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertAnalysisLocked(g), nil
}

func (m *MemoryStore) insertAnalysisLocked(g *model.GlobalAnalysis) *model.GlobalAnalysis {
	out := *g
	out.ID = m.id()
	out.CreatedAt = m.now().UTC()
	out.KeyEvents = append([]string{}, g.KeyEvents...)
	m.analyses = append(m.analyses, out)
	return &out
}

func (m *MemoryStore) LatestGlobalAnalysis(_ context.Context) (*model.GlobalAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.analyses) == 0 {
		return nil, ErrNotFound
	}
	out := m.analyses[len(m.analyses)-1]
	out.KeyEvents = append([]string{}, out.KeyEvents...)
	return &out, nil
}

func (m *MemoryStore) UpsertDailySummary(_ context.Context, d *model.DailySummary) (*model.DailySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := *d
	out.KeyEvents = append([]string{}, d.KeyEvents...)
	out.CreatedAt = m.now().UTC()
	if prev, ok := m.daily[d.Date]; ok {
		out.ID = prev.ID
	} else {
		out.ID = m.id()
	}
	m.daily[d.Date] = out
	return &out, nil
}

func (m *MemoryStore) GetDailySummary(_ context.Context, date string) (*model.DailySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.daily[date]
	if !ok {
		return nil, ErrNotFound
	}
	d.KeyEvents = append([]string{}, d.KeyEvents...)
	return &d, nil
}

// SaveCycle 在同一把锁内完成全部写入，失败时不留下部分数据
func (m *MemoryStore) SaveCycle(_ context.Context, res *model.CycleResult) (*model.Evaluation, error) {
	for _, ca := range res.Countries {
		if strings.TrimSpace(ca.ISOCode) == "" {
			return nil, fmt.Errorf("save cycle: country iso code is empty")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.insertLocked(res.Evaluation)
	if res.Analysis != nil {
		m.insertAnalysisLocked(res.Analysis)
	}
	for _, ca := range res.Countries {
		c, err := m.upsertCountryLocked(&model.Country{
			Name:             ca.Name,
			ISOCode:          ca.ISOCode,
			CurrentRiskLevel: ca.RiskLevel,
		})
		if err != nil {
			return nil, err
		}
		if ca.Conflicts != nil {
			m.replaceConflictsLocked(c.ID, ca.Conflicts)
		}
	}
	return e, nil
}

func (m *MemoryStore) SeedCountries(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.countries) > 0 {
		return nil
	}
	for i := range seedCountries {
		if _, err := m.upsertCountryLocked(&seedCountries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
