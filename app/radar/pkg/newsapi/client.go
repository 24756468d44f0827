package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iWorld-y/world_end/app/radar/pkg/model"
	"github.com/iWorld-y/world_end/app/radar/pkg/news"
)

const defaultBaseURL = "https://newsapi.org"

// Client newsapi.org top-headlines 客户端
type Client struct {
	apiKey   string
	baseURL  string
	category string
	pageSize int
	client   *http.Client
}

// NewClient 创建一个新的 newsapi 客户端
func NewClient(apiKey, baseURL, category string, pageSize int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if category == "" {
		category = "general"
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Client{
		apiKey:   apiKey,
		baseURL:  baseURL,
		category: category,
		pageSize: pageSize,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Ensure Client implements news.Source
var _ news.Source = (*Client)(nil)

// Response top-headlines 响应
type Response struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// Article newsapi 单条新闻
type Article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Fetch implements news.Source
func (c *Client) Fetch(ctx context.Context) ([]model.Article, error) {
	if c.apiKey == "" {
		return nil, news.ErrMissingAPIKey
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/v2/top-headlines"
	q := u.Query()
	q.Set("category", c.category)
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

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
		return nil, fmt.Errorf("newsapi error (status %d): %s", res.StatusCode, string(body))
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi error %s: %s", resp.Code, resp.Message)
	}

	articles := make([]model.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		articles = append(articles, model.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, nil
}
