package server

import (
	"embed"
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iWorld-y/world_end/app/display/internal/conf"
	"github.com/iWorld-y/world_end/app/display/internal/service"
	"github.com/iWorld-y/world_end/app/radar/pkg/broadcast"
	"github.com/iWorld-y/world_end/app/radar/pkg/engine"
)

//go:embed assets/*
var assets embed.FS

// StatusReporter 提供调度器状态给 /healthz
type StatusReporter interface {
	Status() engine.Status
}

func NewHTTPServer(c *conf.Server, s *service.DisplayService, hub *broadcast.Hub, status StatusReporter, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
		http.Filter(NoCache),
	}

	window, limit := defaultLimitWindow, defaultLimitMax
	if c != nil && c.Http != nil {
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != "" {
			if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
				opts = append(opts, http.Timeout(d))
			}
		}
		if l := c.Http.Limit; l != nil {
			if d, err := time.ParseDuration(l.Window); err == nil {
				window = d
			}
			if l.Max > 0 {
				limit = int(l.Max)
			}
		}
	}

	srv := http.NewServer(opts...)
	service.RegisterDisplayHTTPServer(srv, s, NewIPLimiter(window, limit).Filter)

	srv.HandleFunc("/ws", hub.HandleWebSocket)
	srv.Handle("/metrics", promhttp.Handler())
	srv.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{"status": "ok", "clients": hub.ClientCount()}
		if status != nil {
			body["scheduler"] = status.Status()
		}
		_ = json.NewEncoder(w).Encode(body)
	})

	srv.HandleFunc("/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		content, err := assets.ReadFile("assets/index.html")
		if err != nil {
			nethttp.Error(w, "dashboard unavailable", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(content)
	})

	return srv
}
