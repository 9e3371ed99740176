// Package llm wraps the model providers with caching, rate limiting,
// retries and usage accounting.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/content-machine/core/internal/config"
	"github.com/content-machine/core/internal/modules/cache"
	"github.com/content-machine/core/internal/modules/telemetry"
	"github.com/content-machine/core/internal/pkg/ratelimit"
)

// Generator is the interface pipeline stages call.
type Generator interface {
	GenerateJSON(ctx context.Context, stage, persona, prompt string) (map[string]any, error)
}

// Client generates JSON responses with cache-first semantics. A cache hit
// skips both the rate limit wait and the provider call.
type Client struct {
	call      modelCaller
	model     string
	runID     string
	cache     *cache.Store
	gate      *ratelimit.Gate
	telemetry *telemetry.Service
	log       *zap.Logger

	maxRetries      int
	backoff         time.Duration
	promptPer1K     float64
	completionPer1K float64

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a client for one pipeline run. The gate is shared across
// clients so the provider spacing holds process-wide.
func NewClient(
	cfg config.LLMConfig,
	limits config.RateLimitConfig,
	costs config.CostConfig,
	runID string,
	cacheStore *cache.Store,
	gate *ratelimit.Gate,
	tel *telemetry.Service,
	log *zap.Logger,
) (*Client, error) {
	call, err := newModelCaller(cfg)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}
	return &Client{
		call:            call,
		model:           cfg.Model,
		runID:           runID,
		cache:           cacheStore,
		gate:            gate,
		telemetry:       tel,
		log:             log,
		maxRetries:      limits.MaxRetries,
		backoff:         time.Duration(limits.BackoffSeconds * float64(time.Second)),
		promptPer1K:     costs.PromptPer1K,
		completionPer1K: costs.CompletionPer1K,
		sleep:           sleepContext,
	}, nil
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

// GenerateJSON returns the parsed JSON object for a stage prompt.
func (c *Client) GenerateJSON(ctx context.Context, stage, persona, prompt string) (map[string]any, error) {
	key := CacheKey(stage, persona, c.model, prompt)

	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			var parsed map[string]any
			if err := json.Unmarshal(raw, &parsed); err == nil {
				c.record(stage, persona, prompt, string(raw), true)
				return parsed, nil
			}
			// unreadable hit falls through to a fresh call
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.backoff*time.Duration(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.gate.Wait(ctx); err != nil {
			return nil, err
		}

		text, err := c.call(ctx, prompt)
		if err != nil {
			lastErr = err
			c.log.Warn("llm call failed",
				zap.String("stage", stage),
				zap.String("persona", persona),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		parsed, err := ParseJSON(text)
		if err != nil {
			lastErr = err
			c.log.Warn("llm response unparseable",
				zap.String("stage", stage),
				zap.String("persona", persona),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		if c.cache != nil {
			if encoded, err := json.Marshal(parsed); err == nil {
				if err := c.cache.Set(key, encoded); err != nil {
					c.log.Warn("cache write failed", zap.Error(err))
				}
			}
		}
		c.record(stage, persona, prompt, text, false)
		return parsed, nil
	}

	return nil, fmt.Errorf("llm %s call failed after %d attempts: %w", stage, c.maxRetries, lastErr)
}

func (c *Client) record(stage, persona, prompt, response string, cached bool) {
	if c.telemetry == nil {
		return
	}

	inputTokens := telemetry.EstimateTokens(prompt)
	outputTokens := telemetry.EstimateTokens(response)
	// cache hits are priced like live calls, so run totals reflect what the
	// run would have cost without the cache
	cost := telemetry.EstimateCost(inputTokens, outputTokens, c.promptPer1K, c.completionPer1K)

	if err := c.telemetry.Record(c.runID, persona, stage, inputTokens, outputTokens, cost, cached); err != nil {
		c.log.Warn("usage record failed", zap.Error(err))
	}
}
