package evaluator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/world_end/app/radar/pkg/config"
	"github.com/iWorld-y/world_end/app/radar/pkg/logger"
	"github.com/iWorld-y/world_end/app/radar/pkg/metrics"
	"github.com/iWorld-y/world_end/app/radar/pkg/model"
)

// Generator 评估器依赖的最小 ChatModel 能力
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// NewChatModel 初始化 OpenAI 兼容的 ChatModel（默认 OpenRouter）
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	maxTokens := cfg.MaxTokens
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   &maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return cm, nil
}

// Evaluator 调用 LLM 评估新闻风险
type Evaluator struct {
	cm         Generator
	limiter    *rate.Limiter
	maxRetries int
	maxStep    float64
	baseDelay  time.Duration
	now        func() time.Time
}

// Option Evaluator 选项
type Option func(*Evaluator)

// WithLimiter 覆盖默认限流器
func WithLimiter(l *rate.Limiter) Option {
	return func(e *Evaluator) { e.limiter = l }
}

// WithBackoff 设置 429 重试的基础等待时间
func WithBackoff(d time.Duration) Option {
	return func(e *Evaluator) { e.baseDelay = d }
}

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// New 创建评估器
func New(cm Generator, cfg *config.Config, opts ...Option) *Evaluator {
	e := &Evaluator{
		cm:         cm,
		limiter:    NewLimiter(cfg.Concurrency),
		maxRetries: cfg.Evaluator.MaxRetries,
		maxStep:    cfg.Evaluator.MaxStep,
		baseDelay:  2 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewLimiter 按 RPM 与突发量 QPS 创建限流器
func NewLimiter(cfg config.ConcurrencyConfig) *rate.Limiter {
	if cfg.RPM <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := cfg.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), burst)
}

// Evaluate 根据文章与历史评分生成一次风险评估
func (e *Evaluator) Evaluate(ctx context.Context, articles []model.Article, history []*model.Evaluation) (*model.Assessment, error) {
	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles to evaluate")
	}

	prompt := buildAssessmentPrompt(e.now(), articles, history, e.maxStep)
	content, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	assessment, err := DecodeAssessment(content)
	if err != nil {
		metrics.EvaluatorCallsTotal.WithLabelValues(metrics.ResultDecodeError).Inc()
		logger.Log.Debugf("无法解析的模型输出: %s", content)
		return nil, err
	}
	metrics.EvaluatorCallsTotal.WithLabelValues(metrics.ResultOK).Inc()
	return assessment, nil
}

// SummarizeDay 生成某日的要点与整体影响，date 为 YYYY-MM-DD
func (e *Evaluator) SummarizeDay(ctx context.Context, date string, records []*model.Evaluation, average float64) (*model.DailySummary, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records for %s", date)
	}

	content, err := e.generate(ctx, buildDailyPrompt(date, records, average))
	if err != nil {
		return nil, err
	}

	var raw rawDaily
	if err := decodeObject(content, &raw); err != nil {
		metrics.EvaluatorCallsTotal.WithLabelValues(metrics.ResultDecodeError).Inc()
		return nil, err
	}
	metrics.EvaluatorCallsTotal.WithLabelValues(metrics.ResultOK).Inc()

	return &model.DailySummary{
		Date:          date,
		KeyEvents:     cleanEvents(raw.KeyEvents),
		OverallImpact: strings.TrimSpace(raw.OverallImpact),
		AverageScore:  Round2(average),
	}, nil
}

// generate 限流后调用模型，429 时指数退避重试
func (e *Evaluator) generate(ctx context.Context, prompt string) (string, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: prompt},
	}

	for i := 0; ; i++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := e.cm.Generate(ctx, messages)
		if err == nil {
			if resp == nil {
				return "", fmt.Errorf("empty model response")
			}
			return resp.Content, nil
		}

		if !isRateLimited(err) || i >= e.maxRetries {
			metrics.EvaluatorCallsTotal.WithLabelValues(metrics.ResultError).Inc()
			return "", fmt.Errorf("LLM 调用失败: %w", err)
		}

		metrics.EvaluatorCallsTotal.WithLabelValues(metrics.ResultRateLimited).Inc()
		delay := e.baseDelay * time.Duration(math.Pow(2, float64(i)))
		logger.Log.Warnf("LLM 触发限流，%v 后重试 (%d/%d)", delay, i+1, e.maxRetries)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}
