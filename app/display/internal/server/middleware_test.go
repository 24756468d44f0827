package server

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		remote string
		want   string
	}{
		{"first forwarded hop", "203.0.113.7, 10.0.0.1", "10.0.0.1:5000", "203.0.113.7"},
		{"single forwarded", " 198.51.100.2 ", "10.0.0.1:5000", "198.51.100.2"},
		{"remote addr", "", "192.0.2.10:4321", "192.0.2.10"},
		{"empty first hop", ", 10.0.0.1", "192.0.2.10:4321", "192.0.2.10"},
		{"remote without port", "", "192.0.2.11", "192.0.2.11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(nethttp.MethodGet, "/api/latest", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestIPLimiterWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPLimiter(15*time.Minute, 100)
	l.now = func() time.Time { return now }

	// 300 次请求均匀分布在同一个窗口内
	allowed := 0
	for i := 0; i < 300; i++ {
		if l.allow("a") {
			allowed++
		}
		now = now.Add(3 * time.Second)
	}
	assert.Equal(t, 100, allowed)
	assert.True(t, l.allow("b"), "other ips keep their own window")

	// 窗口结束后重新计数
	now = time.Date(2025, 3, 1, 0, 15, 0, 0, time.UTC)
	assert.True(t, l.allow("a"))
}

func TestIPLimiterRejectsUntilWindowEnds(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPLimiter(15*time.Minute, 100)
	l.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		assert.True(t, l.allow("a"), "request %d", i)
	}
	assert.False(t, l.allow("a"))

	now = now.Add(15*time.Minute - time.Second)
	assert.False(t, l.allow("a"))
	now = now.Add(time.Second)
	assert.True(t, l.allow("a"))
}

func TestIPLimiterSweep(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPLimiter(time.Minute, 5)
	l.now = func() time.Time { return now }

	l.allow("stale")
	now = now.Add(2 * time.Minute)
	l.allow("fresh")
	l.sweep(now)

	assert.NotContains(t, l.visitors, "stale")
	assert.Contains(t, l.visitors, "fresh")
}

func TestIPLimiterDefaults(t *testing.T) {
	l := NewIPLimiter(0, 0)
	assert.Equal(t, defaultLimitWindow, l.window)
	assert.Equal(t, defaultLimitMax, l.max)
}
