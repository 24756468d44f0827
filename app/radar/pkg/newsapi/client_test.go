package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/world_end/app/radar/pkg/news"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/top-headlines", r.URL.Path)
		assert.Equal(t, "general", r.URL.Query().Get("category"))
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "k", r.URL.Query().Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":1,"articles":[{"source":{"name":"Wire"},"title":"Troops move","description":"Buildup","url":"https://x","publishedAt":"2025-03-01T00:00:00Z"}]}`))
	}))
	defer srv.Close()

	articles, err := NewClient("k", srv.URL, "", 0).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Troops move", articles[0].Title)
	assert.Equal(t, "Wire", articles[0].Source)
	assert.Equal(t, "2025-03-01T00:00:00Z", articles[0].PublishedAt)
}

func TestFetchMissingKey(t *testing.T) {
	_, err := NewClient("", "", "", 0).Fetch(context.Background())
	assert.ErrorIs(t, err, news.ErrMissingAPIKey)
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid"}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL, "", 0).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL, "", 0).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rateLimited")
}
