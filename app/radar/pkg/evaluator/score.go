package evaluator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidScore 评分缺失或不是有限数值
var ErrInvalidScore = errors.New("invalid risk score")

const (
	minScore = 0
	maxScore = 100
)

// ParseScore 接受数字或数字字符串（如 "42.5%"），夹到 [0,100] 并保留两位小数
func ParseScore(raw json.RawMessage) (float64, error) {
	v, err := parseNumber(raw)
	if err != nil {
		return 0, err
	}
	return NormalizeScore(v)
}

// NormalizeScore 非有限值报错，其余夹到 [0,100] 并四舍五入到两位小数
func NormalizeScore(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, v)
	}
	return Round2(math.Max(minScore, math.Min(maxScore, v))), nil
}

// Round2 四舍五入到两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func parseNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: missing", ErrInvalidScore)
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidScore, string(raw))
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, s)
	}
	return v, nil
}
