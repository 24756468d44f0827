package evaluator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/world_end/app/radar/pkg/model"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`42`, 42},
		{`105.678`, 100},
		{`-3.2`, 0},
		{`"42.5%"`, 42.5},
		{`12.346`, 12.35},
		{`"  77 "`, 77},
	}
	for _, tt := range tests {
		got, err := ParseScore(json.RawMessage(tt.raw))
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestParseScoreInvalid(t *testing.T) {
	for _, raw := range []string{``, `null`, `"high"`, `true`, `{}`} {
		_, err := ParseScore(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrInvalidScore, raw)
	}
}

func TestExtractJSON(t *testing.T) {
	obj, err := ExtractJSON(`{"a": 1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, obj)

	obj, err = ExtractJSON("Sure! Here is the analysis:\n```json\n{\"a\": {\"b\": \"}\"}}\n```\nLet me know {if} more.")
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": "}"}}`, obj)

	obj, err = ExtractJSON(`{"q": "say \"{hi}\""} trailing {"second": 2}`)
	require.NoError(t, err)
	assert.Equal(t, `{"q": "say \"{hi}\""}`, obj)

	_, err = ExtractJSON("no json here")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = ExtractJSON(`{"unterminated": 1`)
	assert.ErrorIs(t, err, ErrNoJSONObject)
}

func TestDecodeAssessmentMalformed(t *testing.T) {
	_, err := DecodeAssessment(`{"overall_risk_level": 10,}`)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, `{"overall_risk_level": 10,}`, de.Raw)
}

func TestDecodeAssessmentMissingScore(t *testing.T) {
	_, err := DecodeAssessment(`{"news_summary": "x"}`)
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestDecodeAssessmentNormalizes(t *testing.T) {
	a, err := DecodeAssessment(`{
		"overall_risk_level": "68%",
		"trend_direction": "sideways",
		"key_events": ["  e1 ", ""],
		"countries": [
			{"name": "Russia", "iso_code": "RUS", "risk_level": 75, "conflicts": [
				{"title": "Border clash", "severity": 0, "type": "skirmish", "risk_score": 80},
				{"title": "  ", "severity": 5}
			]},
			{"name": "Nowhere", "iso_code": "", "risk_level": 10},
			{"name": "Canada", "iso_code": "CAN", "risk_level": "n/a"},
			{"name": "Japan", "iso_code": "JPN", "risk_level": 20}
		]
	}`)
	require.NoError(t, err)

	assert.Equal(t, 68.0, a.Score)
	assert.Equal(t, model.TrendStable, a.TrendDirection)
	assert.Equal(t, []string{"e1"}, a.KeyEvents)

	require.Len(t, a.Countries, 2)
	rus := a.Countries[0]
	require.Len(t, rus.Conflicts, 1)
	assert.Equal(t, 1, rus.Conflicts[0].Severity)
	assert.Equal(t, model.ConflictDiplomatic, rus.Conflicts[0].Type)
	assert.Equal(t, model.StatusActive, rus.Conflicts[0].Status)

	// no conflicts key keeps existing conflicts
	assert.Nil(t, a.Countries[1].Conflicts)

	assert.Equal(t, 1, a.ActiveConflictsCount())
	assert.Equal(t, 1, a.HighRiskCountriesCount())
}
