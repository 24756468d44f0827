package evaluator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iWorld-y/world_end/app/radar/pkg/model"
)

// ErrNoJSONObject 响应中找不到完整的顶层 JSON 对象
var ErrNoJSONObject = errors.New("no json object in model response")

// DecodeError 响应中的 JSON 对象无法解析
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode model response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ExtractJSON 返回文本中第一个括号配平的顶层 {...}，跳过前后说明文字
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONObject
}

// decodeObject 提取并解析第一个 JSON 对象
func decodeObject(text string, v any) error {
	obj, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return &DecodeError{Raw: obj, Err: err}
	}
	return nil
}

type rawConflict struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    json.RawMessage `json:"severity"`
	Type        string          `json:"type"`
	RiskScore   json.RawMessage `json:"risk_score"`
}

type rawCountry struct {
	Name      string          `json:"name"`
	ISOCode   string          `json:"iso_code"`
	RiskLevel json.RawMessage `json:"risk_level"`
	Conflicts []rawConflict   `json:"conflicts"`
}

// rawAssessment 兼容 overall_risk_level 与旧版 worldend 字段
type rawAssessment struct {
	OverallRiskLevel json.RawMessage `json:"overall_risk_level"`
	Worldend         json.RawMessage `json:"worldend"`
	NewsSummary      string          `json:"news_summary"`
	News             string          `json:"news"`
	AIReasoning      string          `json:"ai_reasoning"`
	Reasoning        string          `json:"reasoning"`
	KeyEvents        []string        `json:"key_events"`
	TrendDirection   string          `json:"trend_direction"`
	Countries        []rawCountry    `json:"countries"`
}

type rawDaily struct {
	KeyEvents     []string `json:"key_events"`
	OverallImpact string   `json:"overall_impact"`
}

var conflictTypes = map[string]bool{
	model.ConflictWar:             true,
	model.ConflictPoliticalUnrest: true,
	model.ConflictEconomic:        true,
	model.ConflictNaturalDisaster: true,
	model.ConflictTerrorist:       true,
	model.ConflictCyber:           true,
	model.ConflictDiplomatic:      true,
}

// DecodeAssessment 解析并规范化一次评估响应
func DecodeAssessment(text string) (*model.Assessment, error) {
	var raw rawAssessment
	if err := decodeObject(text, &raw); err != nil {
		return nil, err
	}

	scoreRaw := raw.OverallRiskLevel
	if len(scoreRaw) == 0 {
		scoreRaw = raw.Worldend
	}
	score, err := ParseScore(scoreRaw)
	if err != nil {
		return nil, err
	}

	a := &model.Assessment{
		Score:          score,
		NewsSummary:    strings.TrimSpace(firstNonEmpty(raw.NewsSummary, raw.News)),
		Reasoning:      strings.TrimSpace(firstNonEmpty(raw.AIReasoning, raw.Reasoning)),
		KeyEvents:      cleanEvents(raw.KeyEvents),
		TrendDirection: normalizeTrend(raw.TrendDirection),
	}
	for _, rc := range raw.Countries {
		if c, ok := normalizeCountry(rc); ok {
			a.Countries = append(a.Countries, c)
		}
	}
	return a, nil
}

func normalizeCountry(rc rawCountry) (model.CountryAssessment, bool) {
	iso := strings.ToUpper(strings.TrimSpace(rc.ISOCode))
	name := strings.TrimSpace(rc.Name)
	if iso == "" || name == "" {
		return model.CountryAssessment{}, false
	}
	risk, err := ParseScore(rc.RiskLevel)
	if err != nil {
		return model.CountryAssessment{}, false
	}

	c := model.CountryAssessment{Name: name, ISOCode: iso, RiskLevel: risk}
	if rc.Conflicts != nil {
		c.Conflicts = make([]*model.Conflict, 0, len(rc.Conflicts))
	}
	for _, raw := range rc.Conflicts {
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			continue
		}
		riskScore, err := ParseScore(raw.RiskScore)
		if err != nil {
			riskScore = 0
		}
		c.Conflicts = append(c.Conflicts, &model.Conflict{
			Title:       title,
			Description: strings.TrimSpace(raw.Description),
			Severity:    normalizeSeverity(raw.Severity),
			Type:        normalizeType(raw.Type),
			Status:      model.StatusActive,
			RiskScore:   riskScore,
		})
	}
	return c, true
}

func normalizeSeverity(raw json.RawMessage) int {
	v, err := parseNumber(raw)
	if err != nil {
		return 1
	}
	switch {
	case math.IsNaN(v), v < 1:
		return 1
	case v > 10:
		return 10
	}
	return int(math.Round(v))
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if conflictTypes[t] {
		return t
	}
	return model.ConflictDiplomatic
}

func normalizeTrend(t string) string {
	switch t = strings.ToLower(strings.TrimSpace(t)); t {
	case model.TrendIncreasing, model.TrendDecreasing:
		return t
	}
	return model.TrendStable
}

func cleanEvents(events []string) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
