package model

import "time"

// Article 新闻条目
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	Content     string `json:"-"` // optional body pulled for the prompt
}

// Evaluation 一次分析周期的持久化结果
type Evaluation struct {
	ID          int64     `json:"id"`
	Score       float64   `json:"worldend"`
	NewsSummary string    `json:"news"`
	Reasoning   string    `json:"reasoning"`
	CreatedAt   time.Time `json:"date"`
}

// Conflict types accepted from the evaluator.
const (
	ConflictWar             = "war"
	ConflictPoliticalUnrest = "political_unrest"
	ConflictEconomic        = "economic"
	ConflictNaturalDisaster = "natural_disaster"
	ConflictTerrorist       = "terrorist"
	ConflictCyber           = "cyber"
	ConflictDiplomatic      = "diplomatic"
)

// Conflict statuses.
const (
	StatusActive       = "active"
	StatusResolved     = "resolved"
	StatusEscalating   = "escalating"
	StatusDeEscalating = "de-escalating"
)

// Trend directions.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// HighRiskThreshold 国家风险高于该值计为高风险
const HighRiskThreshold = 60

// Country 国家及其当前风险
type Country struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	ISOCode          string    `json:"iso_code"`
	Continent        string    `json:"continent,omitempty"`
	Region           string    `json:"region,omitempty"`
	CurrentRiskLevel float64   `json:"current_risk_level"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Conflict 某国的一项冲突
type Conflict struct {
	ID          int64   `json:"id"`
	CountryID   int64   `json:"country_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Severity    int     `json:"severity"`
	Type        string  `json:"conflict_type"`
	Status      string  `json:"status"`
	RiskScore   float64 `json:"risk_score"`

	// populated by ListActiveConflicts
	CountryName string `json:"country_name,omitempty"`
	CountryISO  string `json:"iso_code,omitempty"`
}

// GlobalAnalysis 全局分析快照
type GlobalAnalysis struct {
	ID                     int64     `json:"id"`
	OverallRiskLevel       float64   `json:"overall_risk_level"`
	ActiveConflictsCount   int       `json:"active_conflicts_count"`
	HighRiskCountriesCount int       `json:"high_risk_countries_count"`
	NewsSummary            string    `json:"news_summary"`
	AIReasoning            string    `json:"ai_reasoning"`
	KeyEvents              []string  `json:"key_events"`
	TrendDirection         string    `json:"trend_direction"`
	CreatedAt              time.Time `json:"created_at"`
}

// DailySummary 每日汇总，按日期唯一
type DailySummary struct {
	ID            int64     `json:"id"`
	Date          string    `json:"date"` // YYYY-MM-DD
	KeyEvents     []string  `json:"key_events"`
	OverallImpact string    `json:"overall_impact"`
	AverageScore  float64   `json:"average_worldend"`
	CreatedAt     time.Time `json:"created_at"`
}

// CountryAssessment 评估器给出的单国结果
type CountryAssessment struct {
	Name      string
	ISOCode   string
	RiskLevel float64
	// nil means the evaluator sent no list; existing conflicts are kept.
	Conflicts []*Conflict
}

// Assessment 评估器一次调用的规范化输出
type Assessment struct {
	Score          float64
	NewsSummary    string
	Reasoning      string
	KeyEvents      []string
	TrendDirection string
	Countries      []CountryAssessment
}

// ActiveConflictsCount 所有国家冲突数之和
func (a *Assessment) ActiveConflictsCount() int {
	n := 0
	for _, c := range a.Countries {
		n += len(c.Conflicts)
	}
	return n
}

// HighRiskCountriesCount 风险高于阈值的国家数
func (a *Assessment) HighRiskCountriesCount() int {
	n := 0
	for _, c := range a.Countries {
		if c.RiskLevel > HighRiskThreshold {
			n++
		}
	}
	return n
}

// CycleResult 一个周期需要原子写入的全部数据
type CycleResult struct {
	Evaluation *Evaluation
	Analysis   *GlobalAnalysis // nil when the evaluator returned no structured fields
	Countries  []CountryAssessment
}

// NewCycleResult 由评估结果构造待写入数据
func NewCycleResult(a *Assessment) *CycleResult {
	res := &CycleResult{
		Evaluation: &Evaluation{
			Score:       a.Score,
			NewsSummary: a.NewsSummary,
			Reasoning:   a.Reasoning,
		},
		Countries: a.Countries,
	}
	if len(a.Countries) > 0 || len(a.KeyEvents) > 0 {
		res.Analysis = &GlobalAnalysis{
			OverallRiskLevel:       a.Score,
			ActiveConflictsCount:   a.ActiveConflictsCount(),
			HighRiskCountriesCount: a.HighRiskCountriesCount(),
			NewsSummary:            a.NewsSummary,
			AIReasoning:            a.Reasoning,
			KeyEvents:              a.KeyEvents,
			TrendDirection:         a.TrendDirection,
		}
	}
	return res
}
