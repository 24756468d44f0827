package news

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/iWorld-y/world_end/app/radar/pkg/logger"
	"github.com/iWorld-y/world_end/app/radar/pkg/model"
)

// ErrMissingAPIKey 新闻源未配置 API Key
var ErrMissingAPIKey = errors.New("news api key is missing")

// Source 定义通用的新闻源接口
type Source interface {
	Fetch(ctx context.Context) ([]model.Article, error)
}

// ContentExtractor 抓取文章正文
type ContentExtractor func(ctx context.Context, url string) (string, error)

const (
	enrichBelow = 200
	maxContent  = 2000
)

// Fetcher 拉取、过滤并可选补全正文
type Fetcher struct {
	source    Source
	filter    *Filter
	extractor ContentExtractor
}

// Option Fetcher 选项
type Option func(*Fetcher)

// WithFilter 设置关键词过滤器，nil 表示不过滤
func WithFilter(f *Filter) Option {
	return func(ft *Fetcher) { ft.filter = f }
}

// WithExtractor 描述过短时用于补全正文
func WithExtractor(e ContentExtractor) Option {
	return func(ft *Fetcher) { ft.extractor = e }
}

// NewFetcher 创建 Fetcher，默认启用内置关键词过滤
func NewFetcher(source Source, opts ...Option) *Fetcher {
	f := &Fetcher{source: source, filter: DefaultFilter()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch 返回相关文章；无 Key、无文章或过滤后为空时返回 nil, nil
func (f *Fetcher) Fetch(ctx context.Context) ([]model.Article, error) {
	articles, err := f.source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrMissingAPIKey) {
			logger.Log.Warn("No News API key found")
			return nil, nil
		}
		return nil, err
	}
	if len(articles) == 0 {
		logger.Log.Info("No articles found")
		return nil, nil
	}

	relevant := articles
	if f.filter != nil {
		relevant = f.filter.Apply(articles)
		logger.Log.Infof("Filtered %d relevant articles from %d total", len(relevant), len(articles))
	}
	if len(relevant) == 0 {
		return nil, nil
	}

	if f.extractor != nil {
		f.enrich(ctx, relevant)
	}
	return relevant, nil
}

func (f *Fetcher) enrich(ctx context.Context, articles []model.Article) {
	for i := range articles {
		a := &articles[i]
		if len(a.Description) >= enrichBelow || a.URL == "" {
			continue
		}
		content, err := f.extractor(ctx, a.URL)
		if err != nil {
			logger.Log.Warnf("原文抓取失败，使用摘要 [%s]: %v", a.Title, err)
			continue
		}
		a.Content = truncate(strings.TrimSpace(content), maxContent)
	}
}

// truncate 截断到 n 字节以内，不切开多字节字符
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Fingerprint 文章集合的稳定标识，用于跳过重复周期
func Fingerprint(articles []model.Article) string {
	var sb strings.Builder
	for _, a := range articles {
		sb.WriteString(a.Title)
		sb.WriteByte('\x1f')
		sb.WriteString(a.Description)
		sb.WriteByte('\x1e')
	}
	return sb.String()
}
