package server

import (
	"context"
	"sync"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"

	"github.com/iWorld-y/world_end/app/display/internal/conf"
	"github.com/iWorld-y/world_end/app/display/internal/data"
	"github.com/iWorld-y/world_end/app/radar/pkg/broadcast"
	"github.com/iWorld-y/world_end/app/radar/pkg/config"
	"github.com/iWorld-y/world_end/app/radar/pkg/engine"
	radarLogger "github.com/iWorld-y/world_end/app/radar/pkg/logger"
)

// RadarConfig 将 conf.Radar 转换为 pkg/config.Config，并补全环境变量与默认值
func RadarConfig(c *conf.Radar) (*config.Config, error) {
	cfg := &config.Config{}
	if c != nil {
		if l := c.Llm; l != nil {
			cfg.LLM = config.LLMConfig{
				BaseURL:     l.BaseUrl,
				APIKey:      l.ApiKey,
				Model:       l.Model,
				Temperature: l.Temperature,
				MaxTokens:   int(l.MaxTokens),
			}
		}
		if n := c.News; n != nil {
			cfg.News.Provider = n.Provider
			cfg.News.EnrichContent = n.EnrichContent
			if a := n.Newsapi; a != nil {
				cfg.News.NewsAPI = config.NewsAPIConfig{
					APIKey:   a.ApiKey,
					BaseURL:  a.BaseUrl,
					Category: a.Category,
					PageSize: int(a.PageSize),
				}
			}
			if t := n.Tavily; t != nil {
				cfg.News.Tavily = config.TavilyConfig{
					APIKey:     t.ApiKey,
					Query:      t.Query,
					MaxResults: int(t.MaxResults),
				}
			}
			if x := n.Searxng; x != nil {
				cfg.News.SearXNG = config.SearXNGConfig{
					BaseURL: x.BaseUrl,
					Query:   x.Query,
					Timeout: int(x.Timeout),
				}
			}
			if r := n.Rss; r != nil {
				cfg.News.RSS = config.RSSConfig{Feeds: r.Feeds, Timeout: int(r.Timeout)}
			}
			if f := n.Filter; f != nil {
				cfg.News.Filter = config.FilterConfig{
					Disabled: f.Disabled,
					High:     f.High,
					Medium:   f.Medium,
					Exclude:  f.Exclude,
				}
			}
		}
		if s := c.Scheduler; s != nil {
			cfg.Scheduler = config.SchedulerConfig{
				Interval:     s.Interval,
				MinInterval:  s.MinInterval,
				RunOnStart:   s.RunOnStart,
				DailyRollup:  s.DailyRollup,
				HistoryDepth: int(s.HistoryDepth),
			}
		}
		if e := c.Evaluator; e != nil {
			cfg.Evaluator = config.EvaluatorConfig{
				MaxStep:    e.MaxStep,
				MaxRetries: int(e.MaxRetries),
			}
		}
		if l := c.Log; l != nil {
			cfg.Log = config.LogConfig{Level: l.Level, File: l.File}
		}
		if cc := c.Concurrency; cc != nil {
			cfg.Concurrency = config.ConcurrencyConfig{QPS: int(cc.Qps), RPM: int(cc.Rpm)}
		}
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewRadarEngine 初始化分析引擎，与展示服务共用同一个存储与推送 Hub
func NewRadarEngine(c *conf.Radar, d *data.Data, hub *broadcast.Hub, logger log.Logger) (*engine.Engine, error) {
	helper := log.NewHelper(logger)

	cfg, err := RadarConfig(c)
	if err != nil {
		helper.Errorf("invalid radar config: %v", err)
		return nil, err
	}

	if err := radarLogger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		helper.Errorf("Failed to init radar logger: %v", err)
		_ = radarLogger.InitLogger("info", "") // 降级处理
	}

	eng, err := engine.NewFromConfig(context.Background(), cfg, d.Store(), hub)
	if err != nil {
		helper.Errorf("Failed to init engine: %v", err)
		return nil, err
	}
	return eng, nil
}

// NewHub 推送 Hub，由 RadarServer 驱动
func NewHub() *broadcast.Hub {
	return broadcast.NewHub()
}

// RadarServer 作为 kratos transport.Server 运行推送 Hub 与调度循环
type RadarServer struct {
	hub    *broadcast.Hub
	eng    *engine.Engine
	log    *log.Helper
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

var _ transport.Server = (*RadarServer)(nil)

func NewRadarServer(hub *broadcast.Hub, eng *engine.Engine, logger log.Logger) *RadarServer {
	return &RadarServer{hub: hub, eng: eng, log: log.NewHelper(logger)}
}

// Start 阻塞直到 Stop 被调用
func (s *RadarServer) Start(ctx context.Context) error {
	s.mu.Lock()
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(2)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.eng.Run(ctx)
	}()

	s.log.Info("radar scheduler started")
	<-ctx.Done()
	return nil
}

func (s *RadarServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("radar scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
