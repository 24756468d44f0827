package news

import (
	"strings"

	"github.com/iWorld-y/world_end/app/radar/pkg/model"
)

var (
	defaultHigh = []string{
		"war", "warfare", "conflict", "invasion", "attack", "bombing", "missile",
		"sanctions", "military", "troops", "forces", "violence", "terrorism",
		"ceasefire", "peace talks", "diplomatic crisis", "nuclear", "weapons",
	}
	defaultMedium = []string{
		"tension", "crisis", "protest", "election", "coup", "government",
		"security", "threat", "intelligence", "cyber attack", "embargo",
	}
	defaultExclude = []string{
		"sport", "football", "basketball", "movie", "celebrity", "music",
		"weather", "stock market", "earnings", "technology review",
	}
)

// Filter 关键词相关性过滤，大小写不敏感的子串匹配
type Filter struct {
	include []string
	exclude []string
}

// NewFilter high 与 medium 均为空时使用内置关注词，exclude 为空时使用内置排除词
func NewFilter(high, medium, exclude []string) *Filter {
	if len(high) == 0 && len(medium) == 0 {
		high, medium = defaultHigh, defaultMedium
	}
	if len(exclude) == 0 {
		exclude = defaultExclude
	}
	f := &Filter{}
	for _, k := range append(append([]string{}, high...), medium...) {
		f.include = append(f.include, strings.ToLower(k))
	}
	for _, k := range exclude {
		f.exclude = append(f.exclude, strings.ToLower(k))
	}
	return f
}

// DefaultFilter 内置冲突词表
func DefaultFilter() *Filter {
	return NewFilter(nil, nil, nil)
}

// Keep 标题和描述都存在，命中至少一个关注词且不含排除词
func (f *Filter) Keep(a model.Article) bool {
	if a.Title == "" || a.Description == "" {
		return false
	}
	text := strings.ToLower(a.Title + " " + a.Description)
	for _, k := range f.exclude {
		if strings.Contains(text, k) {
			return false
		}
	}
	for _, k := range f.include {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Apply 返回保留下来的文章
func (f *Filter) Apply(articles []model.Article) []model.Article {
	var kept []model.Article
	for _, a := range articles {
		if f.Keep(a) {
			kept = append(kept, a)
		}
	}
	return kept
}
