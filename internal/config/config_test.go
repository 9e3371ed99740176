package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, 8400, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 0.8, cfg.LLM.Temperature)
	assert.Equal(t, 900, cfg.LLM.MaxOutputTokens)
	assert.Equal(t, 7.0, cfg.Pipeline.QualityMinScore)
	assert.Equal(t, 1, cfg.Pipeline.MaxRevisionPasses)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 604800, cfg.Cache.TTLSeconds)
	assert.Equal(t, 5000, cfg.Cache.MaxEntries)
	assert.True(t, cfg.Dedupe.Enabled)
	assert.Equal(t, 0.82, cfg.Dedupe.Threshold)
	assert.Equal(t, 24, cfg.Dedupe.WindowHours)
	assert.Equal(t, 5.0, cfg.RateLimit.MinDelaySeconds)
	assert.Equal(t, 3, cfg.RateLimit.MaxRetries)
	assert.Equal(t, 12.0, cfg.RateLimit.BackoffSeconds)
	assert.Equal(t, 0.15, cfg.Costs.PromptPer1K)
	assert.Equal(t, 0.60, cfg.Costs.CompletionPer1K)
	assert.Equal(t, "csv", cfg.Exports.Format)
	assert.False(t, cfg.Runtime.DryRun)
}

func TestParseOverrides(t *testing.T) {
	content := []byte(`
server:
  port: 9000
  env: production
llm:
  provider: anthropic
  model: claude-sonnet-4-0
  temperature: 0.3
pipeline:
  quality_min_score: 8.5
  max_revision_passes: 2
cache:
  enabled: false
dedupe:
  enabled: false
  threshold: 0.9
rate_limit:
  max_retries: 5
runtime:
  dry_run: true
`)
	cfg, err := Parse(content)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-0", cfg.LLM.Model)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 8.5, cfg.Pipeline.QualityMinScore)
	assert.Equal(t, 2, cfg.Pipeline.MaxRevisionPasses)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Dedupe.Enabled)
	assert.Equal(t, 0.9, cfg.Dedupe.Threshold)
	assert.Equal(t, 5, cfg.RateLimit.MaxRetries)
	assert.True(t, cfg.Runtime.DryRun)
	// untouched groups keep defaults
	assert.Equal(t, 604800, cfg.Cache.TTLSeconds)
	assert.Equal(t, 12.0, cfg.RateLimit.BackoffSeconds)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("llm:\n  modle: typo\n"))
	require.Error(t, err)
}

func TestParseValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad provider", "llm:\n  provider: gemini\n"},
		{"temperature out of range", "llm:\n  temperature: 3.0\n"},
		{"quality score out of range", "pipeline:\n  quality_min_score: 11\n"},
		{"negative revision passes", "pipeline:\n  max_revision_passes: -1\n"},
		{"threshold above one", "dedupe:\n  threshold: 1.5\n"},
		{"zero cache ttl", "cache:\n  ttl_seconds: 0\n"},
		{"zero retries", "rate_limit:\n  max_retries: 0\n"},
		{"bad export format", "exports:\n  format: sheets\n"},
		{"s3 without bucket", "exports:\n  format: s3\n"},
		{"compatible without endpoint", "llm:\n  provider: openai_compatible\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.content))
			assert.Error(t, err)
		})
	}
}

func TestDryRunEnvOverride(t *testing.T) {
	t.Setenv(EnvDryRun, "true")

	cfg, err := Parse([]byte("runtime:\n  dry_run: false\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Runtime.DryRun)
}

func TestModelEnvOverride(t *testing.T) {
	t.Setenv(EnvLLMModel, "gpt-4.1")

	cfg, err := Parse([]byte("llm:\n  model: gpt-4o-mini\n"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
}

func TestDSNValue(t *testing.T) {
	db := DatabaseConfig{
		Host: "db.internal", Port: 3307, User: "cm", Password: "secret",
		Name: "content_machine", Charset: "utf8mb4", Loc: "Local",
	}
	dsn := db.DSNValue()
	assert.Contains(t, dsn, "cm:secret@tcp(db.internal:3307)/content_machine?")
	assert.Contains(t, dsn, "parseTime=true")

	explicit := DatabaseConfig{DSN: "user@tcp(x)/y"}
	assert.Equal(t, "user@tcp(x)/y", explicit.DSNValue())
}

func TestRedisURLValue(t *testing.T) {
	r := RedisConfig{Host: "localhost", Port: 6379, DB: 2}
	assert.Equal(t, "redis://localhost:6379/2", r.URLValue())

	withURL := RedisConfig{URL: "localhost:6380"}
	assert.Equal(t, "redis://localhost:6380", withURL.URLValue())
}
