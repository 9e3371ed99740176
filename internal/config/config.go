package config

import (
	"bytes"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort = 8400
	defaultEnv  = "development"

	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "content_machine"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0

	defaultPersonasPath = "config/personas.yaml"

	defaultLLMProvider     = "openai"
	defaultLLMModel        = "gpt-4o-mini"
	defaultTemperature     = 0.8
	defaultMaxOutputTokens = 900
	defaultMaxRetries      = 3
	defaultBackoffSeconds  = 12.0

	defaultQualityMinScore   = 7.0
	defaultMaxRevisionPasses = 1

	defaultCacheTTLSeconds = 604800
	defaultCacheMaxEntries = 5000

	defaultDedupeThreshold   = 0.82
	defaultDedupeWindowHours = 24

	defaultMinDelaySeconds = 5.0

	defaultCostPromptPer1K     = 0.15
	defaultCostCompletionPer1K = 0.60

	defaultExportFormat = "csv"
	defaultExportDir    = "exports"
)

// EnvDryRun overrides runtime.dry_run when set ("1"/"true"/"0"/"false").
const EnvDryRun = "DRY_RUN"

// EnvLLMModel overrides llm.model when set.
const EnvLLMModel = "CM_LLM_MODEL"

// Settings holds runtime startup configuration loaded from YAML.
type Settings struct {
	Server       ServerConfig    `yaml:"server"`
	Database     DatabaseConfig  `yaml:"database"`
	Redis        RedisConfig     `yaml:"redis"`
	PersonasPath string          `yaml:"personas_path"`
	LLM          LLMConfig       `yaml:"llm"`
	Pipeline     PipelineConfig  `yaml:"pipeline"`
	Cache        CacheConfig     `yaml:"cache"`
	Dedupe       DedupeConfig    `yaml:"dedupe"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	Costs        CostConfig      `yaml:"costs"`
	Runtime      RuntimeConfig   `yaml:"runtime"`
	Exports      ExportConfig    `yaml:"exports"`
	Scanner      ScannerConfig   `yaml:"scanner"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Env            string   `yaml:"env"` // "development" | "production"
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

type LLMConfig struct {
	Provider        string  `yaml:"provider"` // "openai" | "anthropic" | "openai_compatible"
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"api_key"`
	Endpoint        string  `yaml:"endpoint"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

type PipelineConfig struct {
	QualityMinScore   float64 `yaml:"quality_min_score"`
	MaxRevisionPasses int     `yaml:"max_revision_passes"`
}

type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds"`
	MaxEntries int  `yaml:"max_entries"`
}

type DedupeConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Threshold   float64 `yaml:"threshold"`
	WindowHours int     `yaml:"window_hours"`
}

type RateLimitConfig struct {
	MinDelaySeconds float64 `yaml:"min_delay_seconds"`
	MaxRetries      int     `yaml:"max_retries"`
	BackoffSeconds  float64 `yaml:"backoff_seconds"`
}

type CostConfig struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k_tokens"`
	CompletionPer1K float64 `yaml:"completion_per_1k_tokens"`
}

type RuntimeConfig struct {
	DryRun bool `yaml:"dry_run"`
}

type ExportConfig struct {
	Format     string `yaml:"format"` // "csv" | "s3" | "both"
	Dir        string `yaml:"dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3KeyID    string `yaml:"s3_key_id"`
	S3Secret   string `yaml:"s3_secret"`
}

type ScannerConfig struct {
	NewsAPIKey  string       `yaml:"news_api_key"`
	NewsQueries []string     `yaml:"news_queries"`
	Feeds       []FeedConfig `yaml:"feeds"`
	MaxItems    int          `yaml:"max_items"`
}

type FeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Fallback string `yaml:"fallback"`
	Priority int    `yaml:"priority"`
}

type rawSettings struct {
	Server       rawServerConfig    `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        rawRedisConfig     `yaml:"redis"`
	PersonasPath string             `yaml:"personas_path"`
	LLM          rawLLMConfig       `yaml:"llm"`
	Pipeline     rawPipelineConfig  `yaml:"pipeline"`
	Cache        rawCacheConfig     `yaml:"cache"`
	Dedupe       rawDedupeConfig    `yaml:"dedupe"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
	Costs        rawCostConfig      `yaml:"costs"`
	Runtime      rawRuntimeConfig   `yaml:"runtime"`
	Exports      ExportConfig       `yaml:"exports"`
	Scanner      rawScannerConfig   `yaml:"scanner"`
}

type rawServerConfig struct {
	Port           int      `yaml:"port"`
	Env            string   `yaml:"env"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type rawRedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       *int   `yaml:"db"`
	TLS      *bool  `yaml:"tls"`
}

type rawLLMConfig struct {
	Provider        string   `yaml:"provider"`
	Model           string   `yaml:"model"`
	APIKey          string   `yaml:"api_key"`
	Endpoint        string   `yaml:"endpoint"`
	Temperature     *float64 `yaml:"temperature"`
	MaxOutputTokens *int     `yaml:"max_output_tokens"`
}

type rawPipelineConfig struct {
	QualityMinScore   *float64 `yaml:"quality_min_score"`
	MaxRevisionPasses *int     `yaml:"max_revision_passes"`
}

type rawCacheConfig struct {
	Enabled    *bool `yaml:"enabled"`
	TTLSeconds *int  `yaml:"ttl_seconds"`
	MaxEntries *int  `yaml:"max_entries"`
}

type rawDedupeConfig struct {
	Enabled     *bool    `yaml:"enabled"`
	Threshold   *float64 `yaml:"threshold"`
	WindowHours *int     `yaml:"window_hours"`
}

type rawRateLimitConfig struct {
	MinDelaySeconds *float64 `yaml:"min_delay_seconds"`
	MaxRetries      *int     `yaml:"max_retries"`
	BackoffSeconds  *float64 `yaml:"backoff_seconds"`
}

type rawCostConfig struct {
	PromptPer1K     *float64 `yaml:"prompt_per_1k_tokens"`
	CompletionPer1K *float64 `yaml:"completion_per_1k_tokens"`
}

type rawRuntimeConfig struct {
	DryRun *bool `yaml:"dry_run"`
}

type rawScannerConfig struct {
	NewsAPIKey  string       `yaml:"news_api_key"`
	NewsQueries []string     `yaml:"news_queries"`
	Feeds       []FeedConfig `yaml:"feeds"`
	MaxItems    *int         `yaml:"max_items"`
}

// Load reads the YAML settings file, applies defaults and env overrides,
// and validates ranges. Unknown keys are fatal.
func Load(configPath string) (*Settings, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML settings content, applying defaults, env overrides and
// validation.
func Parse(content []byte) (*Settings, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	raw := rawSettings{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	applyRaw(&cfg, raw)
	applyEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in settings used when keys are absent.
func Default() Settings {
	return Settings{
		Server: ServerConfig{
			Port: defaultPort,
			Env:  defaultEnv,
		},
		Database: DatabaseConfig{
			Host:     defaultDBHost,
			Port:     defaultDBPort,
			User:     defaultDBUser,
			Password: defaultDBPassword,
			Name:     defaultDBName,
			Charset:  defaultDBCharset,
			Loc:      defaultDBLoc,
		},
		Redis: RedisConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		PersonasPath: defaultPersonasPath,
		LLM: LLMConfig{
			Provider:        defaultLLMProvider,
			Model:           defaultLLMModel,
			Temperature:     defaultTemperature,
			MaxOutputTokens: defaultMaxOutputTokens,
		},
		Pipeline: PipelineConfig{
			QualityMinScore:   defaultQualityMinScore,
			MaxRevisionPasses: defaultMaxRevisionPasses,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: defaultCacheTTLSeconds,
			MaxEntries: defaultCacheMaxEntries,
		},
		Dedupe: DedupeConfig{
			Enabled:     true,
			Threshold:   defaultDedupeThreshold,
			WindowHours: defaultDedupeWindowHours,
		},
		RateLimit: RateLimitConfig{
			MinDelaySeconds: defaultMinDelaySeconds,
			MaxRetries:      defaultMaxRetries,
			BackoffSeconds:  defaultBackoffSeconds,
		},
		Costs: CostConfig{
			PromptPer1K:     defaultCostPromptPer1K,
			CompletionPer1K: defaultCostCompletionPer1K,
		},
		Exports: ExportConfig{
			Format: defaultExportFormat,
			Dir:    defaultExportDir,
		},
	}
}

func applyRaw(cfg *Settings, raw rawSettings) {
	if raw.Server.Port != 0 {
		cfg.Server.Port = raw.Server.Port
	}
	if v := strings.ToLower(strings.TrimSpace(raw.Server.Env)); v != "" {
		cfg.Server.Env = v
	}
	if raw.Server.AllowedOrigins != nil {
		cfg.Server.AllowedOrigins = normalizeOrigins(raw.Server.AllowedOrigins)
	}

	cfg.Database = applyRawDatabase(cfg.Database, raw.Database)
	cfg.Redis = applyRawRedis(cfg.Redis, raw.Redis)

	if v := strings.TrimSpace(raw.PersonasPath); v != "" {
		cfg.PersonasPath = v
	}

	if v := strings.ToLower(strings.TrimSpace(raw.LLM.Provider)); v != "" {
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(raw.LLM.Model); v != "" {
		cfg.LLM.Model = v
	}
	if v := strings.TrimSpace(raw.LLM.APIKey); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := strings.TrimSpace(raw.LLM.Endpoint); v != "" {
		cfg.LLM.Endpoint = v
	}
	if raw.LLM.Temperature != nil {
		cfg.LLM.Temperature = *raw.LLM.Temperature
	}
	if raw.LLM.MaxOutputTokens != nil {
		cfg.LLM.MaxOutputTokens = *raw.LLM.MaxOutputTokens
	}

	if raw.Pipeline.QualityMinScore != nil {
		cfg.Pipeline.QualityMinScore = *raw.Pipeline.QualityMinScore
	}
	if raw.Pipeline.MaxRevisionPasses != nil {
		cfg.Pipeline.MaxRevisionPasses = *raw.Pipeline.MaxRevisionPasses
	}

	if raw.Cache.Enabled != nil {
		cfg.Cache.Enabled = *raw.Cache.Enabled
	}
	if raw.Cache.TTLSeconds != nil {
		cfg.Cache.TTLSeconds = *raw.Cache.TTLSeconds
	}
	if raw.Cache.MaxEntries != nil {
		cfg.Cache.MaxEntries = *raw.Cache.MaxEntries
	}

	if raw.Dedupe.Enabled != nil {
		cfg.Dedupe.Enabled = *raw.Dedupe.Enabled
	}
	if raw.Dedupe.Threshold != nil {
		cfg.Dedupe.Threshold = *raw.Dedupe.Threshold
	}
	if raw.Dedupe.WindowHours != nil {
		cfg.Dedupe.WindowHours = *raw.Dedupe.WindowHours
	}

	if raw.RateLimit.MinDelaySeconds != nil {
		cfg.RateLimit.MinDelaySeconds = *raw.RateLimit.MinDelaySeconds
	}
	if raw.RateLimit.MaxRetries != nil {
		cfg.RateLimit.MaxRetries = *raw.RateLimit.MaxRetries
	}
	if raw.RateLimit.BackoffSeconds != nil {
		cfg.RateLimit.BackoffSeconds = *raw.RateLimit.BackoffSeconds
	}

	if raw.Costs.PromptPer1K != nil {
		cfg.Costs.PromptPer1K = *raw.Costs.PromptPer1K
	}
	if raw.Costs.CompletionPer1K != nil {
		cfg.Costs.CompletionPer1K = *raw.Costs.CompletionPer1K
	}

	if raw.Runtime.DryRun != nil {
		cfg.Runtime.DryRun = *raw.Runtime.DryRun
	}

	if v := strings.ToLower(strings.TrimSpace(raw.Exports.Format)); v != "" {
		cfg.Exports.Format = v
	}
	if v := strings.TrimSpace(raw.Exports.Dir); v != "" {
		cfg.Exports.Dir = v
	}
	cfg.Exports.S3Bucket = strings.TrimSpace(raw.Exports.S3Bucket)
	cfg.Exports.S3Region = strings.TrimSpace(raw.Exports.S3Region)
	cfg.Exports.S3Endpoint = strings.TrimSpace(raw.Exports.S3Endpoint)
	cfg.Exports.S3Prefix = strings.TrimSpace(raw.Exports.S3Prefix)
	cfg.Exports.S3KeyID = strings.TrimSpace(raw.Exports.S3KeyID)
	cfg.Exports.S3Secret = raw.Exports.S3Secret

	cfg.Scanner.NewsAPIKey = strings.TrimSpace(raw.Scanner.NewsAPIKey)
	if raw.Scanner.NewsQueries != nil {
		cfg.Scanner.NewsQueries = raw.Scanner.NewsQueries
	}
	if raw.Scanner.Feeds != nil {
		cfg.Scanner.Feeds = raw.Scanner.Feeds
	}
	if raw.Scanner.MaxItems != nil {
		cfg.Scanner.MaxItems = *raw.Scanner.MaxItems
	}
}

func applyRawDatabase(current DatabaseConfig, raw DatabaseConfig) DatabaseConfig {
	cfg := current
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Host); v != "" {
		cfg.Host = v
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Charset); v != "" {
		cfg.Charset = v
	}
	if v := strings.TrimSpace(raw.Loc); v != "" {
		cfg.Loc = v
	}
	return cfg
}

func applyRawRedis(current RedisConfig, raw rawRedisConfig) RedisConfig {
	cfg := current
	if v := strings.TrimSpace(raw.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.Host); v != "" {
		cfg.Host = v
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.Password); v != "" {
		cfg.Password = v
	}
	if raw.DB != nil {
		cfg.DB = *raw.DB
	}
	if raw.TLS != nil {
		cfg.TLS = *raw.TLS
	}
	return cfg
}

func applyEnv(cfg *Settings) {
	if v := strings.TrimSpace(os.Getenv(EnvLLMModel)); v != "" {
		cfg.LLM.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDryRun)); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Runtime.DryRun = parsed
		}
	}
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.APIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
		default:
			cfg.LLM.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		}
	}
	if cfg.Scanner.NewsAPIKey == "" {
		cfg.Scanner.NewsAPIKey = strings.TrimSpace(os.Getenv("NEWS_API_KEY"))
	}
}

func validate(cfg *Settings) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d, expected 1-65535", cfg.Server.Port)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", cfg.Database.Port)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", cfg.Redis.Port)
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", cfg.Redis.DB)
	}

	switch cfg.LLM.Provider {
	case "openai", "anthropic", "openai_compatible":
	default:
		return fmt.Errorf("invalid llm.provider %q, expected openai, anthropic or openai_compatible", cfg.LLM.Provider)
	}
	if cfg.LLM.Provider == "openai_compatible" && cfg.LLM.Endpoint == "" {
		return fmt.Errorf("llm.endpoint is required for provider openai_compatible")
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("invalid llm.temperature %v, expected 0-2", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxOutputTokens < 1 {
		return fmt.Errorf("invalid llm.max_output_tokens %d, expected >= 1", cfg.LLM.MaxOutputTokens)
	}

	if cfg.Pipeline.QualityMinScore < 0 || cfg.Pipeline.QualityMinScore > 10 {
		return fmt.Errorf("invalid pipeline.quality_min_score %v, expected 0-10", cfg.Pipeline.QualityMinScore)
	}
	if cfg.Pipeline.MaxRevisionPasses < 0 {
		return fmt.Errorf("invalid pipeline.max_revision_passes %d, expected >= 0", cfg.Pipeline.MaxRevisionPasses)
	}

	if cfg.Cache.TTLSeconds < 1 {
		return fmt.Errorf("invalid cache.ttl_seconds %d, expected >= 1", cfg.Cache.TTLSeconds)
	}
	if cfg.Cache.MaxEntries < 1 {
		return fmt.Errorf("invalid cache.max_entries %d, expected >= 1", cfg.Cache.MaxEntries)
	}

	if cfg.Dedupe.Threshold < 0 || cfg.Dedupe.Threshold > 1 {
		return fmt.Errorf("invalid dedupe.threshold %v, expected 0-1", cfg.Dedupe.Threshold)
	}
	if cfg.Dedupe.WindowHours < 1 {
		return fmt.Errorf("invalid dedupe.window_hours %d, expected >= 1", cfg.Dedupe.WindowHours)
	}

	if cfg.RateLimit.MinDelaySeconds < 0 {
		return fmt.Errorf("invalid rate_limit.min_delay_seconds %v, expected >= 0", cfg.RateLimit.MinDelaySeconds)
	}
	if cfg.RateLimit.MaxRetries < 1 {
		return fmt.Errorf("invalid rate_limit.max_retries %d, expected >= 1", cfg.RateLimit.MaxRetries)
	}
	if cfg.RateLimit.BackoffSeconds < 0 {
		return fmt.Errorf("invalid rate_limit.backoff_seconds %v, expected >= 0", cfg.RateLimit.BackoffSeconds)
	}

	if cfg.Costs.PromptPer1K < 0 || cfg.Costs.CompletionPer1K < 0 {
		return fmt.Errorf("invalid costs, per-1k rates must be >= 0")
	}

	switch cfg.Exports.Format {
	case "csv", "s3", "both":
	default:
		return fmt.Errorf("invalid exports.format %q, expected csv, s3 or both", cfg.Exports.Format)
	}
	if cfg.Exports.Format != "csv" && cfg.Exports.S3Bucket == "" {
		return fmt.Errorf("exports.s3_bucket is required for format %q", cfg.Exports.Format)
	}

	if cfg.Scanner.MaxItems < 0 {
		return fmt.Errorf("invalid scanner.max_items %d, expected >= 0", cfg.Scanner.MaxItems)
	}

	return nil
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// DSNValue returns the MySQL DSN, building one from parts when database.dsn
// is not set.
func (c DatabaseConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	host := c.Host
	if host == "" {
		host = defaultDBHost
	}
	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	charset := c.Charset
	if charset == "" {
		charset = defaultDBCharset
	}
	loc := c.Loc
	if loc == "" {
		loc = defaultDBLoc
	}

	params := neturl.Values{}
	params.Set("charset", charset)
	params.Set("parseTime", "true")
	params.Set("loc", loc)

	auth := c.User
	if c.Password != "" {
		auth += ":" + c.Password
	}

	return fmt.Sprintf("%s@tcp(%s)/%s?%s",
		auth, net.JoinHostPort(host, strconv.Itoa(port)), c.Name, params.Encode())
}

// URLValue returns the redis connection URL, building one from parts when
// redis.url is not set.
func (c RedisConfig) URLValue() string {
	if v := strings.TrimSpace(c.URL); v != "" {
		if strings.HasPrefix(v, "redis://") || strings.HasPrefix(v, "rediss://") {
			return v
		}
		return "redis://" + v
	}

	scheme := "redis"
	if c.TLS {
		scheme = "rediss"
	}
	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + strconv.Itoa(c.DB),
	}
	if c.Username != "" {
		if c.Password != "" {
			u.User = neturl.UserPassword(c.Username, c.Password)
		} else {
			u.User = neturl.User(c.Username)
		}
	} else if c.Password != "" {
		u.User = neturl.UserPassword("", c.Password)
	}
	return u.String()
}

// IsDev reports whether the server runs in development mode.
func (c *Settings) IsDev() bool {
	return strings.EqualFold(c.Server.Env, defaultEnv)
}
