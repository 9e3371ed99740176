// Package scanner pulls candidate topics from CoinGecko trending, NewsAPI,
// and RSS feeds, with per-source pacing and retry.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/content-machine/core/internal/config"
	"github.com/content-machine/core/internal/modules/pipeline"
	"github.com/content-machine/core/internal/pkg/contenthash"
)

const (
	defaultCoinGeckoURL = "https://api.coingecko.com/api/v3/search/trending"
	defaultNewsAPIURL   = "https://newsapi.org/v2/everything"

	requestTimeout = 15 * time.Second
)

// Item is one scanned topic, ready to feed into a pipeline run.
type Item struct {
	pipeline.TopicData
	ScannedAt time.Time `json:"scanned_at"`
}

// Service scans the configured sources. Free-tier rate limits are handled
// with fixed per-source delays plus jitter.
type Service struct {
	cfg    config.ScannerConfig
	log    *zap.Logger
	client *http.Client

	delays     map[string]time.Duration
	maxRetries int
	backoff    float64

	coinGeckoURL string
	newsAPIURL   string

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
	now    func() time.Time
}

func NewService(cfg config.ScannerConfig, log *zap.Logger) *Service {
	return &Service{
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: requestTimeout},
		delays: map[string]time.Duration{
			"coingecko": 2 * time.Second,
			"newsapi":   1500 * time.Millisecond,
			"rss":       500 * time.Millisecond,
		},
		maxRetries:   3,
		backoff:      2.0,
		coinGeckoURL: defaultCoinGeckoURL,
		newsAPIURL:   defaultNewsAPIURL,
		sleep:        sleepContext,
		jitter:       rand.Float64,
		now:          time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ScanAll runs every source, stamps content hashes, and deduplicates across
// sources. maxItems falls back to the configured cap when <= 0.
func (s *Service) ScanAll(ctx context.Context, maxItems int) ([]Item, error) {
	if maxItems <= 0 {
		maxItems = s.cfg.MaxItems
	}
	if maxItems <= 0 {
		maxItems = 10
	}

	var all []Item
	all = append(all, s.TrendingCoins(ctx, 3)...)
	all = append(all, s.NewsArticles(ctx, 4)...)
	all = append(all, s.RSSFeeds(ctx, 4)...)

	scannedAt := s.now().UTC()
	for i := range all {
		all[i].ContentHash = contenthash.Generate(all[i].Topic)
		all[i].ScannedAt = scannedAt
	}

	unique := dedupeBy(all, func(item Item) string { return item.ContentHash })
	s.log.Info("scan complete",
		zap.Int("unique", len(unique)),
		zap.Int("total", len(all)))

	if len(unique) > maxItems {
		unique = unique[:maxItems]
	}
	return unique, nil
}

// dedupeBy keeps the first item per key, preserving order. Empty keys are
// dropped.
func dedupeBy(items []Item, key func(Item) string) []Item {
	seen := make(map[string]struct{}, len(items))
	var out []Item
	for _, item := range items {
		k := key(item)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// requestWithRetry paces, retries with exponential backoff, and honors 429
// Retry-After. Every retry-after wait still consumes an attempt.
func (s *Service) requestWithRetry(ctx context.Context, rawURL string, params url.Values, sourceType string) ([]byte, error) {
	delay, ok := s.delays[sourceType]
	if !ok {
		delay = time.Second
	}

	target := rawURL
	if len(params) > 0 {
		target = rawURL + "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		jitter := time.Duration(s.jitter() * 0.5 * float64(time.Second))
		if err := s.sleep(ctx, delay+jitter); err != nil {
			return nil, err
		}

		body, retryAfter, err := s.doRequest(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if retryAfter > 0 {
			s.log.Warn("rate limited",
				zap.String("source", sourceType),
				zap.Duration("retry_after", retryAfter))
			if err := s.sleep(ctx, retryAfter); err != nil {
				return nil, err
			}
			continue
		}

		if attempt < s.maxRetries-1 {
			backoff := time.Duration(float64(delay) * pow(s.backoff, attempt))
			s.log.Warn("request retry",
				zap.String("source", sourceType),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if err := s.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", rawURL, s.maxRetries, lastErr)
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

// doRequest returns the body, or a positive retryAfter when the server sent
// a 429.
func (s *Service) doRequest(ctx context.Context, target string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 60 * time.Second
		if raw := resp.Header.Get("Retry-After"); raw != "" {
			if secs, err := strconv.Atoi(raw); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, retryAfter, fmt.Errorf("status 429 from %s", target)
	}
	if resp.StatusCode >= 400 {
		return nil, 0, fmt.Errorf("status %d from %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, err
	}
	return body, 0, nil
}

type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID            string `json:"id"`
			Symbol        string `json:"symbol"`
			Name          string `json:"name"`
			MarketCapRank int    `json:"market_cap_rank"`
		} `json:"item"`
	} `json:"coins"`
}

// TrendingCoins fetches CoinGecko trending search results. Failures degrade
// to an empty slice; a scan never fails on one source.
func (s *Service) TrendingCoins(ctx context.Context, limit int) []Item {
	body, err := s.requestWithRetry(ctx, s.coinGeckoURL, nil, "coingecko")
	if err != nil {
		s.log.Error("coingecko fetch failed", zap.Error(err))
		return nil
	}

	var parsed trendingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		s.log.Error("coingecko response unparseable", zap.Error(err))
		return nil
	}

	var items []Item
	for _, coin := range parsed.Coins {
		if len(items) >= limit {
			break
		}
		symbol := strings.ToUpper(coin.Item.Symbol)
		if symbol == "" || coin.Item.Name == "" {
			continue
		}
		items = append(items, Item{TopicData: pipeline.TopicData{
			Type:   "trend",
			Source: "CoinGecko",
			Topic:  fmt.Sprintf("$%s (%s) is trending", symbol, coin.Item.Name),
			Details: map[string]any{
				"symbol":          symbol,
				"name":            coin.Item.Name,
				"market_cap_rank": coin.Item.MarketCapRank,
			},
			URL: "https://www.coingecko.com/en/coins/" + coin.Item.ID,
		}})
	}
	s.log.Info("trending coins fetched", zap.Int("count", len(items)))
	return items
}

type newsResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
	} `json:"articles"`
}

// NewsArticles fetches NewsAPI results for the first two configured queries,
// which keeps a daily free-tier key inside its quota.
func (s *Service) NewsArticles(ctx context.Context, limit int) []Item {
	if s.cfg.NewsAPIKey == "" {
		s.log.Warn("news api key not set, skipping news fetch")
		return nil
	}

	queries := s.cfg.NewsQueries
	if len(queries) > 2 {
		queries = queries[:2]
	}

	var items []Item
	for _, query := range queries {
		params := url.Values{}
		params.Set("q", query)
		params.Set("sortBy", "publishedAt")
		params.Set("language", "en")
		params.Set("pageSize", "3")
		params.Set("apiKey", s.cfg.NewsAPIKey)

		body, err := s.requestWithRetry(ctx, s.newsAPIURL, params, "newsapi")
		if err != nil {
			s.log.Error("newsapi fetch failed", zap.String("query", query), zap.Error(err))
			continue
		}

		var parsed newsResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			s.log.Error("newsapi response unparseable", zap.Error(err))
			continue
		}
		if parsed.Status == "error" {
			s.log.Warn("newsapi error", zap.String("query", query), zap.String("message", parsed.Message))
			continue
		}

		for _, article := range parsed.Articles {
			if article.Title == "" || article.Title == "[Removed]" || len(article.Title) <= 10 {
				continue
			}
			source := article.Source.Name
			if source == "" {
				source = "Unknown"
			}
			items = append(items, Item{TopicData: pipeline.TopicData{
				Type:    "news",
				Source:  source,
				Topic:   article.Title,
				Details: map[string]any{"description": article.Description},
				URL:     article.URL,
			}})
		}
	}

	unique := dedupeBy(items, func(item Item) string { return item.Topic })
	if len(unique) > limit {
		unique = unique[:limit]
	}
	s.log.Info("news articles fetched", zap.Int("count", len(unique)))
	return unique
}
