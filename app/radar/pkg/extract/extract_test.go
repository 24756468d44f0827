package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><title>Border talks</title></head><body>
<nav>home | world | sport</nav>
<article><h1>Border talks resume</h1>
<p>Negotiators from both governments met on Tuesday to discuss the ceasefire line and the return of displaced families to the valley.</p>
<p>Officials said the talks would continue next week, with observers from neighbouring states expected to attend the second round.</p>
</article></body></html>`

func TestReadability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	text, err := Readability(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "ceasefire line")
}

func TestReadabilityCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Readability(ctx, "http://127.0.0.1:1")
	assert.ErrorIs(t, err, context.Canceled)
}
