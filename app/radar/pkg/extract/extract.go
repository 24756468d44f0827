package extract

import (
	"context"
	"time"

	"github.com/go-shiori/go-readability"
)

const fetchTimeout = 30 * time.Second

// Readability 抓取 URL 并提取核心文本
func Readability(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	article, err := readability.FromURL(url, fetchTimeout)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
