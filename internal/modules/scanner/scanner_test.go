package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/content-machine/core/internal/config"
)

func newTestService(cfg config.ScannerConfig) *Service {
	svc := NewService(cfg, zap.NewNop())
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	svc.jitter = func() float64 { return 0 }
	return svc
}

const trendingJSON = `{
	"coins": [
		{"item": {"id": "bitcoin", "symbol": "btc", "name": "Bitcoin", "market_cap_rank": 1}},
		{"item": {"id": "monero", "symbol": "xmr", "name": "Monero", "market_cap_rank": 30}},
		{"item": {"id": "nameless", "symbol": "", "name": ""}}
	]
}`

func TestTrendingCoins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(trendingJSON))
	}))
	defer server.Close()

	svc := newTestService(config.ScannerConfig{})
	svc.coinGeckoURL = server.URL

	items := svc.TrendingCoins(context.Background(), 5)
	require.Len(t, items, 2)
	assert.Equal(t, "$BTC (Bitcoin) is trending", items[0].Topic)
	assert.Equal(t, "CoinGecko", items[0].Source)
	assert.Equal(t, "trend", items[0].Type)
	assert.Equal(t, "https://www.coingecko.com/en/coins/bitcoin", items[0].URL)
	assert.Equal(t, "XMR", items[1].Details["symbol"])
}

func TestTrendingCoinsRespectsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(trendingJSON))
	}))
	defer server.Close()

	svc := newTestService(config.ScannerConfig{})
	svc.coinGeckoURL = server.URL

	items := svc.TrendingCoins(context.Background(), 1)
	require.Len(t, items, 1)
}

func TestNewsArticlesSkipsWithoutKey(t *testing.T) {
	svc := newTestService(config.ScannerConfig{NewsQueries: []string{"crypto"}})
	assert.Empty(t, svc.NewsArticles(context.Background(), 5))
}

func TestNewsArticlesFiltersAndDedupes(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		assert.Equal(t, "publishedAt", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{"source": {"name": "CoinDesk"}, "title": "Privacy coins rally on new listings", "description": "desc", "url": "https://example.com/a"},
				{"source": {"name": "CoinDesk"}, "title": "Privacy coins rally on new listings", "description": "dup", "url": "https://example.com/a"},
				{"source": {"name": ""}, "title": "[Removed]", "url": ""},
				{"source": {"name": "Wire"}, "title": "short", "url": ""}
			]
		}`))
	}))
	defer server.Close()

	svc := newTestService(config.ScannerConfig{
		NewsAPIKey:  "test-key",
		NewsQueries: []string{"crypto privacy", "defi", "never queried"},
	})
	svc.newsAPIURL = server.URL

	items := svc.NewsArticles(context.Background(), 5)
	require.Len(t, items, 1)
	assert.Equal(t, "Privacy coins rally on new listings", items[0].Topic)
	assert.Equal(t, "CoinDesk", items[0].Source)
	assert.Equal(t, "news", items[0].Type)

	// only the first two configured queries run
	assert.Equal(t, []string{"crypto privacy", "defi"}, queries)
}

func TestNewsArticlesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "message": "rate limited"}`))
	}))
	defer server.Close()

	svc := newTestService(config.ScannerConfig{NewsAPIKey: "k", NewsQueries: []string{"crypto"}})
	svc.newsAPIURL = server.URL

	assert.Empty(t, svc.NewsArticles(context.Background(), 5))
}

func rssBody(pubDate string) string {
	return `<?xml version="1.0"?>
<rss version="2.0"><channel>
<item><title>Exchange outflows hit a yearly high</title><link>https://example.com/1</link><description>flows</description><pubDate>` + pubDate + `</pubDate></item>
<item><title>short</title><link>https://example.com/2</link></item>
<item><title>Stablecoin settlement volume keeps climbing</title><link>https://example.com/3</link><description>vol</description></item>
</channel></rss>`
}

func TestRSSFeeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody(time.Now().UTC().Format(time.RFC1123Z))))
	}))
	defer server.Close()

	svc := newTestService(config.ScannerConfig{
		Feeds: []config.FeedConfig{{Name: "TestWire", URL: server.URL, Priority: 1}},
	})

	items := svc.RSSFeeds(context.Background(), 5)
	require.Len(t, items, 2)
	assert.Equal(t, "Exchange outflows hit a yearly high", items[0].Topic)
	assert.Equal(t, "TestWire", items[0].Source)
	assert.Equal(t, "flows", items[0].Details["description"])
}

func TestRSSFeedsSkipsStaleEntries(t *testing.T) {
	stale := time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC1123Z)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody(stale)))
	}))
	defer server.Close()

	svc := newTestService(config.ScannerConfig{
		Feeds: []config.FeedConfig{{Name: "TestWire", URL: server.URL, Priority: 1}},
	})

	items := svc.RSSFeeds(context.Background(), 5)
	require.Len(t, items, 1)
	assert.Equal(t, "Stablecoin settlement volume keeps climbing", items[0].Topic)
}

func TestRSSFeedsUsesFallbackURL(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody(time.Now().UTC().Format(time.RFC1123Z))))
	}))
	defer fallback.Close()

	svc := newTestService(config.ScannerConfig{
		Feeds: []config.FeedConfig{{Name: "TestWire", URL: primary.URL, Fallback: fallback.URL, Priority: 1}},
	})

	items := svc.RSSFeeds(context.Background(), 5)
	require.NotEmpty(t, items)
}

func TestRequestWithRetryHonorsRetryAfter(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	var slept []time.Duration
	svc := newTestService(config.ScannerConfig{})
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	body, err := svc.requestWithRetry(context.Background(), server.URL, nil, "rss")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 2, attempts)
	assert.Contains(t, slept, 7*time.Second)
}

func TestRequestWithRetryExhausts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := newTestService(config.ScannerConfig{})

	_, err := svc.requestWithRetry(context.Background(), server.URL, nil, "rss")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestScanAllStampsAndDedupes(t *testing.T) {
	trending := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(trendingJSON))
	}))
	defer trending.Close()
	rss := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody(time.Now().UTC().Format(time.RFC1123Z))))
	}))
	defer rss.Close()

	svc := newTestService(config.ScannerConfig{
		Feeds:    []config.FeedConfig{{Name: "TestWire", URL: rss.URL, Priority: 1}},
		MaxItems: 10,
	})
	svc.coinGeckoURL = trending.URL

	items, err := svc.ScanAll(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 4)

	seen := map[string]struct{}{}
	for _, item := range items {
		assert.Len(t, item.ContentHash, 12)
		assert.False(t, item.ScannedAt.IsZero())
		_, dup := seen[item.ContentHash]
		assert.False(t, dup)
		seen[item.ContentHash] = struct{}{}
	}
}

func TestScanAllCapsItems(t *testing.T) {
	trending := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(trendingJSON))
	}))
	defer trending.Close()

	svc := newTestService(config.ScannerConfig{})
	svc.coinGeckoURL = trending.URL

	items, err := svc.ScanAll(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
