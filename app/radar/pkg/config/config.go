package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	News        NewsConfig        `yaml:"news"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Evaluator   EvaluatorConfig   `yaml:"evaluator"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature *float32 `yaml:"temperature"` // nil 取默认 0.7，允许显式配置 0
	MaxTokens   int     `yaml:"max_tokens"`
}

// NewsConfig 新闻源配置
type NewsConfig struct {
	Provider      string        `yaml:"provider"` // newsapi, tavily, searxng or rss
	NewsAPI       NewsAPIConfig `yaml:"newsapi"`
	Tavily        TavilyConfig  `yaml:"tavily"`
	SearXNG       SearXNGConfig `yaml:"searxng"`
	RSS           RSSConfig     `yaml:"rss"`
	Filter        FilterConfig  `yaml:"filter"`
	EnrichContent bool          `yaml:"enrich_content"`
}

// NewsAPIConfig newsapi.org 配置
type NewsAPIConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Category string `yaml:"category"`
	PageSize int    `yaml:"page_size"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey     string `yaml:"api_key"`
	Query      string `yaml:"query"`
	MaxResults int    `yaml:"max_results"`
}

// SearXNGConfig 自建 SearXNG 实例配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Query   string `yaml:"query"`
	Timeout int    `yaml:"timeout"` // seconds
}

// RSSConfig RSS/Atom 订阅配置
type RSSConfig struct {
	Feeds   []string `yaml:"feeds"`
	Timeout int      `yaml:"timeout"` // seconds
}

// FilterConfig 关键词过滤配置，留空则使用内置词表
type FilterConfig struct {
	Disabled bool     `yaml:"disabled"`
	High     []string `yaml:"high"`
	Medium   []string `yaml:"medium"`
	Exclude  []string `yaml:"exclude"`
}

// SchedulerConfig 调度配置
type SchedulerConfig struct {
	Interval     string `yaml:"interval"`
	MinInterval  string `yaml:"min_interval"`
	RunOnStart   *bool  `yaml:"run_on_start"`
	DailyRollup  bool   `yaml:"daily_rollup"`
	HistoryDepth int    `yaml:"history_depth"`
}

// EvaluatorConfig 评估器配置
type EvaluatorConfig struct {
	MaxStep    float64 `yaml:"max_step"`
	MaxRetries int     `yaml:"max_retries"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Driver        string `yaml:"driver"` // memory, sqlite, postgres, supabase, mysql
	DSN           string `yaml:"dsn"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
	SeedCountries bool   `yaml:"seed_countries"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// LoadConfig 从指定路径加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv 用环境变量补全未配置的密钥
func (c *Config) ApplyEnv() {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fill(&c.LLM.APIKey, "OPENROUTER_API_KEY")
	fill(&c.News.NewsAPI.APIKey, "NEWS_API_KEY")
	fill(&c.News.Tavily.APIKey, "TAVILY_API_KEY")
	fill(&c.DB.DSN, "DATABASE_URL")
}

// ApplyDefaults 填充默认值
func (c *Config) ApplyDefaults() {
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "openai/gpt-4o"
	}
	if c.LLM.Temperature == nil {
		t := float32(0.7)
		c.LLM.Temperature = &t
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4000
	}
	if c.News.Provider == "" {
		c.News.Provider = "newsapi"
	}
	if c.News.NewsAPI.BaseURL == "" {
		c.News.NewsAPI.BaseURL = "https://newsapi.org"
	}
	if c.News.NewsAPI.Category == "" {
		c.News.NewsAPI.Category = "general"
	}
	if c.News.NewsAPI.PageSize == 0 {
		c.News.NewsAPI.PageSize = 50
	}
	if c.News.Tavily.Query == "" {
		c.News.Tavily.Query = "global conflict war military crisis"
	}
	if c.News.Tavily.MaxResults == 0 {
		c.News.Tavily.MaxResults = 20
	}
	if c.News.SearXNG.Query == "" {
		c.News.SearXNG.Query = c.News.Tavily.Query
	}
	if len(c.News.RSS.Feeds) == 0 {
		c.News.RSS.Feeds = []string{
			"https://feeds.bbci.co.uk/news/world/rss.xml",
			"https://www.aljazeera.com/xml/rss/all.xml",
		}
	}
	if c.Scheduler.Interval == "" {
		c.Scheduler.Interval = "6h"
	}
	if c.Scheduler.MinInterval == "" {
		c.Scheduler.MinInterval = "30m"
	}
	if c.Scheduler.HistoryDepth == 0 {
		c.Scheduler.HistoryDepth = 5
	}
	if c.Evaluator.MaxStep == 0 {
		c.Evaluator.MaxStep = 5
	}
	if c.Evaluator.MaxRetries == 0 {
		c.Evaluator.MaxRetries = 3
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.DSN == "" && c.DB.Driver == "sqlite" {
		c.DB.DSN = "data/world-end.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.RPM == 0 {
		c.Concurrency.RPM = 20
	}
	if c.Concurrency.QPS == 0 {
		c.Concurrency.QPS = 1
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if _, err := c.SchedulerInterval(); err != nil {
		return err
	}
	if _, err := c.SchedulerMinInterval(); err != nil {
		return err
	}
	switch c.News.Provider {
	case "newsapi", "tavily", "searxng", "rss":
	default:
		return fmt.Errorf("unknown news provider: %s", c.News.Provider)
	}
	return nil
}

// SchedulerInterval 周期任务间隔
func (c *Config) SchedulerInterval() (time.Duration, error) {
	return parsePositive("scheduler.interval", c.Scheduler.Interval)
}

// SchedulerMinInterval 两次 LLM 调用的最小间隔
func (c *Config) SchedulerMinInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scheduler.MinInterval)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid scheduler.min_interval %q", c.Scheduler.MinInterval)
	}
	return d, nil
}

// ShouldRunOnStart 启动时是否立即执行一次
func (c *Config) ShouldRunOnStart() bool {
	return c.Scheduler.RunOnStart == nil || *c.Scheduler.RunOnStart
}

func parsePositive(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return d, nil
}
