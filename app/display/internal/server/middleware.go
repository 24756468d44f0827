package server

import (
	"net"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/iWorld-y/world_end/app/radar/pkg/metrics"
)

const (
	defaultLimitWindow = 15 * time.Minute
	defaultLimitMax    = 100
	sweepThreshold     = 10000
	rateLimitedBody    = `{"error":"Too many requests from this IP, please try again later."}`
)

// NoCache 所有响应都禁止缓存
func NoCache(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		h.Set("Surrogate-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type visitor struct {
	start time.Time
	count int
}

// IPLimiter 每个客户端 IP 一个固定窗口计数器，窗口内最多放行 max 次
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	window   time.Duration
	max      int
	now      func() time.Time
}

func NewIPLimiter(window time.Duration, limit int) *IPLimiter {
	if window <= 0 {
		window = defaultLimitWindow
	}
	if limit <= 0 {
		limit = defaultLimitMax
	}
	return &IPLimiter{
		visitors: make(map[string]*visitor),
		window:   window,
		max:      limit,
		now:      time.Now,
	}
}

func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		if len(l.visitors) >= sweepThreshold {
			l.sweep(now)
		}
		v = &visitor{start: now}
		l.visitors[ip] = v
	}
	if now.Sub(v.start) >= l.window {
		v.start = now
		v.count = 0
	}
	if v.count >= l.max {
		return false
	}
	v.count++
	return true
}

// sweep 清理窗口已过期的 IP
func (l *IPLimiter) sweep(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.start) >= l.window {
			delete(l.visitors, ip)
		}
	}
}

// Filter 超限返回 429
func (l *IPLimiter) Filter(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !l.allow(ClientIP(r)) {
			metrics.APIRateLimitedTotal.Inc()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(nethttp.StatusTooManyRequests)
			_, _ = w.Write([]byte(rateLimitedBody))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP 优先取 X-Forwarded-For 第一跳
func ClientIP(r *nethttp.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
