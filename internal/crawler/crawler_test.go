package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfigBuilder(t *testing.T) {
	cfg := NewConfig(
		WithMaxHops(5),
		WithMaxURLLength(1000),
		WithRequestTimeout(10*time.Second),
		WithRateLimitDelay(500*time.Millisecond),
		WithAllowedSchemes([]string{"https"}),
		WithUserAgent("Test/1.0"),
		WithDetectMetaRefresh(true),
	)

	assert.Equal(t, 5, cfg.MaxHops)
	assert.Equal(t, 1000, cfg.MaxURLLength)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimitDelay)
	assert.Equal(t, []string{"https"}, cfg.AllowedSchemes)
	assert.Equal(t, "Test/1.0", cfg.UserAgent)
	assert.True(t, cfg.DetectMetaRefresh)
}

func TestCrawlRedirectChainNoRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(zap.NewNop())
	result, err := c.CrawlRedirectChain(context.Background(), srv.URL, NewConfig())
	require.NoError(t, err)
	assert.Len(t, result.Chain, 1)
	assert.Equal(t, 0, result.HopCount)
}

func TestCrawlRedirectChainFollowsLocation(t *testing.T) {
	var targetURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, targetURL, http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	targetURL = srv.URL + "/end"

	c := New(zap.NewNop())
	result, err := c.CrawlRedirectChain(context.Background(), srv.URL+"/start", NewConfig(WithRateLimitDelay(0)))
	require.NoError(t, err)
	assert.Equal(t, 1, result.HopCount)
	assert.Len(t, result.Chain, 2)
	assert.Equal(t, srv.URL+"/end", result.Chain[1])
}

func TestCrawlRedirectChainStopsAtMaxHops(t *testing.T) {
	mux := http.NewServeMux()
	// Every hop redirects to a new, never-visited path, so only the hop cap
	// can end the crawl.
	mux.HandleFunc("/hop/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(zap.NewNop())
	result, err := c.CrawlRedirectChain(context.Background(), srv.URL+"/hop/", NewConfig(WithMaxHops(3), WithRateLimitDelay(0)))
	require.NoError(t, err)
	assert.Equal(t, 3, result.HopCount)
}

func TestDetectClientRedirectMetaRefresh(t *testing.T) {
	body := `<html><head><meta http-equiv="refresh" content="0; url=https://example.com/next"></head></html>`
	target, found := detectClientRedirect(body)
	require.True(t, found)
	assert.Equal(t, "https://example.com/next", target)
}

func TestDetectClientRedirectJSLocation(t *testing.T) {
	body := `<html><script>window.location.href = "https://example.com/js-next";</script></html>`
	target, found := detectClientRedirect(body)
	require.True(t, found)
	assert.Equal(t, "https://example.com/js-next", target)
}

func TestCrawlManyPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(zap.NewNop())
	urls := []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"}
	results, errs := c.CrawlMany(context.Background(), urls, NewConfig(), 2)

	for i, u := range urls {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Equal(t, u, results[i].Chain[0])
	}
}
