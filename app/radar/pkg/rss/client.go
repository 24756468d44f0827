// Package rss 以 RSS/Atom 订阅作为新闻源
package rss

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/iWorld-y/world_end/app/radar/pkg/logger"
	"github.com/iWorld-y/world_end/app/radar/pkg/model"
	"github.com/iWorld-y/world_end/app/radar/pkg/news"
)

// ErrNoFeeds 未配置订阅地址
var ErrNoFeeds = errors.New("rss feeds are not configured")

// Client 依次解析多个订阅，只保留最近一天的条目
type Client struct {
	feeds  []string
	parser *gofeed.Parser
	window time.Duration
	now    func() time.Time
}

// Ensure Client implements news.Source
var _ news.Source = (*Client)(nil)

// NewClient timeout 单位为秒
func NewClient(feeds []string, timeout int) *Client {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	fp := gofeed.NewParser()
	fp.Client = &http.Client{Timeout: t}
	return &Client{
		feeds:  feeds,
		parser: fp,
		window: 24 * time.Hour,
		now:    time.Now,
	}
}

// Fetch implements news.Source；单个订阅失败只记录日志，全部失败才返回错误
func (c *Client) Fetch(ctx context.Context) ([]model.Article, error) {
	if len(c.feeds) == 0 {
		return nil, ErrNoFeeds
	}

	var (
		articles []model.Article
		seen     = make(map[string]bool)
		failed   int
		lastErr  error
	)
	for _, url := range c.feeds {
		feed, err := c.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			failed++
			lastErr = err
			logger.Log.Warnf("解析 RSS 失败 [%s]: %v", url, err)
			continue
		}

		for _, item := range feed.Items {
			// 没有发布时间的条目默认保留
			if item.PublishedParsed != nil && c.now().Sub(*item.PublishedParsed) > c.window {
				continue
			}
			if item.Link != "" && seen[item.Link] {
				continue
			}
			seen[item.Link] = true

			published := item.Published
			if item.PublishedParsed != nil {
				published = item.PublishedParsed.UTC().Format(time.RFC3339)
			}
			articles = append(articles, model.Article{
				Title:       item.Title,
				Description: item.Description,
				URL:         item.Link,
				Source:      feed.Title,
				PublishedAt: published,
			})
		}
	}

	if failed == len(c.feeds) {
		return nil, fmt.Errorf("all %d rss feeds failed: %w", failed, lastErr)
	}
	return articles, nil
}
