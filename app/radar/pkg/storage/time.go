package storage

import (
	"fmt"
	"time"
)

// textTimeLayout 定长 UTC 格式，字符串比较即时间比较
const textTimeLayout = "2006-01-02T15:04:05.000000Z"

func textTime(t time.Time) any { return t.UTC().Format(textTimeLayout) }

// dbTime 兼容驱动返回 time.Time 或文本两种时间列
type dbTime struct {
	Time time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
	return nil
}

var textTimeLayouts = []string{
	textTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999",
	time.DateTime,
}

func (t *dbTime) parse(s string) error {
	for _, layout := range textTimeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", s)
}
