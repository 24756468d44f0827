package factory

import (
	"fmt"

	"github.com/iWorld-y/world_end/app/radar/pkg/config"
	"github.com/iWorld-y/world_end/app/radar/pkg/extract"
	"github.com/iWorld-y/world_end/app/radar/pkg/news"
	"github.com/iWorld-y/world_end/app/radar/pkg/newsapi"
	"github.com/iWorld-y/world_end/app/radar/pkg/rss"
	"github.com/iWorld-y/world_end/app/radar/pkg/searxng"
	"github.com/iWorld-y/world_end/app/radar/pkg/tavily"
)

// NewSource 根据配置创建新闻源
func NewSource(cfg *config.NewsConfig) (news.Source, error) {
	switch cfg.Provider {
	case "", "newsapi":
		return newsapi.NewClient(cfg.NewsAPI.APIKey, cfg.NewsAPI.BaseURL, cfg.NewsAPI.Category, cfg.NewsAPI.PageSize), nil
	case "tavily":
		return tavily.NewClient(cfg.Tavily.APIKey, cfg.Tavily.Query, cfg.Tavily.MaxResults), nil
	case "searxng":
		return searxng.NewClient(cfg.SearXNG.BaseURL, cfg.SearXNG.Query, cfg.SearXNG.Timeout), nil
	case "rss":
		return rss.NewClient(cfg.RSS.Feeds, cfg.RSS.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown news provider: %s", cfg.Provider)
	}
}

// NewFetcher 根据配置组装过滤器与正文抓取
func NewFetcher(cfg *config.NewsConfig) (*news.Fetcher, error) {
	source, err := NewSource(cfg)
	if err != nil {
		return nil, err
	}

	var opts []news.Option
	if cfg.Filter.Disabled {
		opts = append(opts, news.WithFilter(nil))
	} else {
		opts = append(opts, news.WithFilter(news.NewFilter(cfg.Filter.High, cfg.Filter.Medium, cfg.Filter.Exclude)))
	}
	if cfg.EnrichContent {
		opts = append(opts, news.WithExtractor(extract.Readability))
	}
	return news.NewFetcher(source, opts...), nil
}
