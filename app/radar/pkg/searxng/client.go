package searxng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iWorld-y/world_end/app/radar/pkg/model"
	"github.com/iWorld-y/world_end/app/radar/pkg/news"
)

// ErrMissingBaseURL 未配置实例地址
var ErrMissingBaseURL = errors.New("searxng base url is missing")

// Client 自建 SearXNG 实例，用 news 分类作为新闻源，无需 API key
type Client struct {
	baseURL string
	query   string
	client  *http.Client
}

// NewClient 创建一个新的 SearXNG 客户端，timeout 单位为秒
func NewClient(baseURL, query string, timeout int) *Client {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		query:   query,
		client: &http.Client{
			Timeout: t,
		},
	}
}

// Ensure Client implements news.Source
var _ news.Source = (*Client)(nil)

// SearchResponse SearXNG 响应结构
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// SearchResult SearXNG 单条结果
type SearchResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	Engine        string `json:"engine"`
	PublishedDate string `json:"publishedDate"`
}

// Fetch implements news.Source，只取最近一天
func (c *Client) Fetch(ctx context.Context) ([]model.Article, error) {
	if c.baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/search"

	q := u.Query()
	q.Set("q", c.query)
	q.Set("format", "json")
	q.Set("categories", "news")
	q.Set("time_range", "day")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	// 部分实例的 limiter 会拦截无 UA 的请求
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (compatible; world-end-radar)")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("searxng api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	articles := make([]model.Article, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		source := r.Engine
		if source == "" {
			source = "searxng"
		}
		articles = append(articles, model.Article{
			Title:       r.Title,
			Description: r.Content,
			URL:         r.URL,
			Source:      source,
			PublishedAt: r.PublishedDate,
		})
	}
	return articles, nil
}
