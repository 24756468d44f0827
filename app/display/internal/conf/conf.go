package conf

type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Radar  *Radar  `json:"radar"`
}

type Server struct {
	Http *HTTP `json:"http"`
}

type HTTP struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
	Limit   *Limit `json:"limit"`
}

// Limit /api 下按 IP 限流，Window 内最多 Max 次
type Limit struct {
	Window string `json:"window"`
	Max    int32  `json:"max"`
}

type Data struct {
	Database *Database `json:"database"`
}

type Database struct {
	Driver        string `json:"driver"`
	Source        string `json:"source"`
	MaxOpenConns  int32  `json:"max_open_conns"`
	SeedCountries bool   `json:"seed_countries"`
}

type Radar struct {
	Llm         *LLM         `json:"llm"`
	News        *News        `json:"news"`
	Scheduler   *Scheduler   `json:"scheduler"`
	Evaluator   *Evaluator   `json:"evaluator"`
	Log         *Log         `json:"log"`
	Concurrency *Concurrency `json:"concurrency"`
}

type LLM struct {
	BaseUrl     string  `json:"base_url"`
	ApiKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	Temperature *float32 `json:"temperature"`
	MaxTokens   int32   `json:"max_tokens"`
}

type News struct {
	Provider      string   `json:"provider"`
	Newsapi       *NewsAPI `json:"newsapi"`
	Tavily        *Tavily  `json:"tavily"`
	Searxng       *SearXNG `json:"searxng"`
	Rss           *RSS     `json:"rss"`
	Filter        *Filter  `json:"filter"`
	EnrichContent bool     `json:"enrich_content"`
}

type NewsAPI struct {
	ApiKey   string `json:"api_key"`
	BaseUrl  string `json:"base_url"`
	Category string `json:"category"`
	PageSize int32  `json:"page_size"`
}

type Tavily struct {
	ApiKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int32  `json:"max_results"`
}

type SearXNG struct {
	BaseUrl string `json:"base_url"`
	Query   string `json:"query"`
	Timeout int32  `json:"timeout"`
}

type RSS struct {
	Feeds   []string `json:"feeds"`
	Timeout int32    `json:"timeout"`
}

type Filter struct {
	Disabled bool     `json:"disabled"`
	High     []string `json:"high"`
	Medium   []string `json:"medium"`
	Exclude  []string `json:"exclude"`
}

type Scheduler struct {
	Interval     string `json:"interval"`
	MinInterval  string `json:"min_interval"`
	RunOnStart   *bool  `json:"run_on_start"`
	DailyRollup  bool   `json:"daily_rollup"`
	HistoryDepth int32  `json:"history_depth"`
}

type Evaluator struct {
	MaxStep    float64 `json:"max_step"`
	MaxRetries int32   `json:"max_retries"`
}

type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type Concurrency struct {
	Qps int32 `json:"qps"`
	Rpm int32 `json:"rpm"`
}
