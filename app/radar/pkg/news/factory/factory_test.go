package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/world_end/app/radar/pkg/config"
	"github.com/iWorld-y/world_end/app/radar/pkg/newsapi"
	"github.com/iWorld-y/world_end/app/radar/pkg/rss"
	"github.com/iWorld-y/world_end/app/radar/pkg/searxng"
	"github.com/iWorld-y/world_end/app/radar/pkg/tavily"
)

func TestNewSource(t *testing.T) {
	tests := []struct {
		provider string
		check    func(t *testing.T, src any)
	}{
		{"", func(t *testing.T, src any) { assert.IsType(t, &newsapi.Client{}, src) }},
		{"newsapi", func(t *testing.T, src any) { assert.IsType(t, &newsapi.Client{}, src) }},
		{"tavily", func(t *testing.T, src any) { assert.IsType(t, &tavily.Client{}, src) }},
		{"searxng", func(t *testing.T, src any) { assert.IsType(t, &searxng.Client{}, src) }},
		{"rss", func(t *testing.T, src any) { assert.IsType(t, &rss.Client{}, src) }},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			src, err := NewSource(&config.NewsConfig{Provider: tt.provider})
			require.NoError(t, err)
			tt.check(t, src)
		})
	}

	_, err := NewSource(&config.NewsConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNewFetcher(t *testing.T) {
	f, err := NewFetcher(&config.NewsConfig{Provider: "newsapi", EnrichContent: true})
	require.NoError(t, err)
	assert.NotNil(t, f)

	f, err = NewFetcher(&config.NewsConfig{Provider: "tavily", Filter: config.FilterConfig{Disabled: true}})
	require.NoError(t, err)
	assert.NotNil(t, f)

	_, err = NewFetcher(&config.NewsConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
