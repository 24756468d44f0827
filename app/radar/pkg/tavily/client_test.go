package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "news", req.Topic)
		assert.Equal(t, "2025-02-28", req.StartDate)
		assert.Equal(t, "2025-03-01", req.EndDate)
		assert.Equal(t, 5, req.MaxResults)
		_, _ = w.Write([]byte(`{"results":[{"title":"Ceasefire talks","url":"https://t","content":"Envoys meet","published_date":"2025-03-01"}]}`))
	}))
	defer srv.Close()

	c := NewClient("key", "conflict", 0)
	c.baseURL = srv.URL
	c.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

	articles, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Ceasefire talks", articles[0].Title)
	assert.Equal(t, "Envoys meet", articles[0].Description)
	assert.Equal(t, "tavily", articles[0].Source)
}
