package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iWorld-y/world_end/app/radar/pkg/model"
	"github.com/iWorld-y/world_end/app/radar/pkg/news"
)

const defaultBaseURL = "https://api.tavily.com/search"

// Client Tavily API 客户端，以新闻搜索作为新闻源
type Client struct {
	apiKey     string
	baseURL    string
	query      string
	maxResults int
	now        func() time.Time
	client     *http.Client
}

// NewClient 创建一个新的 Tavily 客户端
func NewClient(apiKey, query string, maxResults int) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		query:      query,
		maxResults: maxResults,
		now:        time.Now,
		client:     http.DefaultClient,
	}
}

// Ensure Client implements news.Source
var _ news.Source = (*Client)(nil)

// SearchRequest Tavily 搜索请求参数
type SearchRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth,omitempty"` // basic or advanced
	Topic             string `json:"topic,omitempty"`        // general or news
	MaxResults        int    `json:"max_results,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content,omitempty"`
	StartDate         string `json:"start_date,omitempty"`
	EndDate           string `json:"end_date,omitempty"`
}

// SearchResponse Tavily 搜索响应
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// SearchResult 单个搜索结果
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

// Fetch implements news.Source，检索最近一天的新闻
func (c *Client) Fetch(ctx context.Context) ([]model.Article, error) {
	if c.apiKey == "" {
		return nil, news.ErrMissingAPIKey
	}

	now := c.now()
	resp, err := c.search(ctx, SearchRequest{
		Query:      c.query,
		Topic:      "news",
		MaxResults: c.maxResults,
		StartDate:  now.AddDate(0, 0, -1).Format(time.DateOnly),
		EndDate:    now.Format(time.DateOnly),
	})
	if err != nil {
		return nil, err
	}

	articles := make([]model.Article, 0, len(resp.Results))
	for _, r := range resp.Results {
		articles = append(articles, model.Article{
			Title:       r.Title,
			Description: r.Content,
			URL:         r.URL,
			Source:      "tavily",
			PublishedAt: r.PublishedDate,
		})
	}
	return articles, nil
}

func (c *Client) search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if req.SearchDepth == "" {
		req.SearchDepth = "basic"
	}
	if req.MaxResults == 0 {
		req.MaxResults = 5
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Add("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Add("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	return &searchResp, nil
}
