package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yanqian/askcache/internal/domain/qacache"
)

// Persist queue backends.
const (
	QueueInline = "inline"
	QueueValkey = "valkey"
)

// Embedder backends.
const (
	EmbedderOpenAI        = "openai"
	EmbedderDeterministic = "deterministic"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	LLM           LLMConfig           `yaml:"llm"`
	Matching      MatchingConfig      `yaml:"matching"`
	Cache         CacheConfig         `yaml:"cache"`
	TimeSensitive TimeSensitiveConfig `yaml:"timeSensitive"`
	Semantic      SemanticConfig      `yaml:"semantic"`
	Persist       PersistConfig       `yaml:"persist"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Valkey        ValkeyConfig        `yaml:"valkey"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address         string          `yaml:"address"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	AllowedOrigins  []string        `yaml:"allowedOrigins"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
	Retry           RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for read-only requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
}

// LLMConfig contains OpenAI-compatible API settings.
type LLMConfig struct {
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseUrl"`
	Model          string        `yaml:"model"`
	EmbeddingModel string        `yaml:"embeddingModel"`
	Temperature    float32       `yaml:"temperature"`
	Prompt         string        `yaml:"prompt"`
	Timeout        time.Duration `yaml:"timeout"`
	WebSearch      WebSearch     `yaml:"webSearch"`
}

// WebSearch toggles retrieval-augmented answers for time-sensitive questions.
type WebSearch struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

// MatchingConfig holds the cache scoring policy.
type MatchingConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzyThreshold"`
	LexicalFloor   float64 `yaml:"lexicalFloor"`
	CandidateLimit int     `yaml:"candidateLimit"`
	CosineFloor    float64 `yaml:"cosineFloor"`
	OverlapFloor   float64 `yaml:"overlapFloor"`
	CosineWeight   float64 `yaml:"cosineWeight"`
	OverlapWeight  float64 `yaml:"overlapWeight"`
}

// CacheConfig controls entry lifetimes and trending output.
type CacheConfig struct {
	LongTTL     time.Duration `yaml:"longTtl"`
	ShortTTL    time.Duration `yaml:"shortTtl"`
	TopTrending int           `yaml:"topTrending"`
}

// TimeSensitiveConfig controls the volatile-topic classifier.
type TimeSensitiveConfig struct {
	Policy   string   `yaml:"policy"`
	Keywords []string `yaml:"keywords"`
}

// SemanticConfig toggles the embedding tier.
type SemanticConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Embedder   string `yaml:"embedder"`
	Dimensions int    `yaml:"dimensions"`
}

// PersistConfig controls how answers are written back.
type PersistConfig struct {
	Async    bool   `yaml:"async"`
	Queue    string `yaml:"queue"`
	QueueKey string `yaml:"queueKey"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxConns     int32  `yaml:"maxConns"`
	MinConns     int32  `yaml:"minConns"`
	EnsureSchema bool   `yaml:"ensureSchema"`
}

// ValkeyConfig contains connection information for counters and queues.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// MetricsConfig exposes the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.HTTP.Address = "0.0.0.0:" + v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	envBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	envInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	envInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	envBool("HTTP_RETRY_ENABLED", &cfg.HTTP.Retry.Enabled)
	envInt("HTTP_RETRY_MAX_ATTEMPTS", &cfg.HTTP.Retry.MaxAttempts)
	envDuration("HTTP_RETRY_BASE_BACKOFF", &cfg.HTTP.Retry.BaseBackoff)

	if v := firstEnv("LLM_API_KEY", "OPENAI_API_KEY", "OPENAI_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("LLM_PROMPT"); v != "" {
		cfg.LLM.Prompt = v
	}
	envBool("LLM_WEB_SEARCH_ENABLED", &cfg.LLM.WebSearch.Enabled)

	envFloat("MATCH_FUZZY_THRESHOLD", &cfg.Matching.FuzzyThreshold)
	envFloat("MATCH_LEXICAL_FLOOR", &cfg.Matching.LexicalFloor)
	envInt("MATCH_CANDIDATE_LIMIT", &cfg.Matching.CandidateLimit)
	envFloat("MATCH_COSINE_FLOOR", &cfg.Matching.CosineFloor)
	envFloat("MATCH_OVERLAP_FLOOR", &cfg.Matching.OverlapFloor)

	envDuration("CACHE_LONG_TTL", &cfg.Cache.LongTTL)
	envDuration("CACHE_SHORT_TTL", &cfg.Cache.ShortTTL)
	if v := os.Getenv("CACHE_TIME_SENSITIVE_POLICY"); v != "" {
		cfg.TimeSensitive.Policy = v
	}
	envBool("SEMANTIC_ENABLED", &cfg.Semantic.Enabled)
	if v := os.Getenv("SEMANTIC_EMBEDDER"); v != "" {
		cfg.Semantic.Embedder = v
	}
	envInt("SEMANTIC_DIMENSIONS", &cfg.Semantic.Dimensions)
	envBool("PERSIST_ASYNC", &cfg.Persist.Async)
	if v := os.Getenv("PERSIST_QUEUE"); v != "" {
		cfg.Persist.Queue = v
	}

	if v := firstEnv("POSTGRES_DSN", "DATABASE_URL", "DATABASE_PUBLIC_URL", "DATABASE_PRIVATE_URL"); v != "" {
		dsn, err := databaseURLToDSN(v)
		if err != nil {
			return err
		}
		cfg.Postgres.DSN = dsn
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}
	envBool("POSTGRES_ENSURE_SCHEMA", &cfg.Postgres.EnsureSchema)

	envBool("VALKEY_ENABLED", &cfg.Valkey.Enabled)
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Valkey.Addr = v
	}
	envBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
	return nil
}

// databaseURLToDSN turns a postgres:// URL into a pgx connection string that
// requires TLS unless the URL already chooses an sslmode. Key/value DSNs pass
// through unchanged.
func databaseURLToDSN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
	default:
		return "", fmt.Errorf("unsupported database url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("database url has no host")
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "require")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// splitList parses a comma-separated env value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
			},
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
			Timeout:        60 * time.Second,
			WebSearch: WebSearch{
				Enabled: true,
				Model:   "gpt-4o-mini",
			},
		},
		Matching: MatchingConfig{
			FuzzyThreshold: 0.85,
			LexicalFloor:   0.55,
			CandidateLimit: 25,
			CosineFloor:    0.90,
			OverlapFloor:   0.35,
			CosineWeight:   0.75,
			OverlapWeight:  0.25,
		},
		Cache: CacheConfig{
			LongTTL:     30 * 24 * time.Hour,
			ShortTTL:    10 * time.Minute,
			TopTrending: 10,
		},
		TimeSensitive: TimeSensitiveConfig{
			Policy: qacache.PolicyBypass,
		},
		Semantic: SemanticConfig{
			Enabled:    true,
			Embedder:   EmbedderOpenAI,
			Dimensions: 1536,
		},
		Persist: PersistConfig{
			Async:    true,
			Queue:    QueueInline,
			QueueKey: "askcache:persist",
		},
		Postgres: PostgresConfig{
			MaxConns:     4,
			MinConns:     0,
			EnsureSchema: true,
		},
		Valkey: ValkeyConfig{
			Prefix: "askcache",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	m := c.Matching
	for name, v := range map[string]float64{
		"matching.fuzzyThreshold": m.FuzzyThreshold,
		"matching.lexicalFloor":   m.LexicalFloor,
		"matching.cosineFloor":    m.CosineFloor,
		"matching.overlapFloor":   m.OverlapFloor,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1]", name)
		}
	}
	if m.CandidateLimit <= 0 {
		return errors.New("matching.candidateLimit must be positive")
	}
	if m.CosineWeight < 0 || m.OverlapWeight < 0 || m.CosineWeight+m.OverlapWeight == 0 {
		return errors.New("matching weights must be non-negative and not both zero")
	}
	if c.Cache.LongTTL <= 0 || c.Cache.ShortTTL <= 0 {
		return errors.New("cache ttls must be positive")
	}
	if c.Cache.TopTrending < 0 {
		return errors.New("cache.topTrending cannot be negative")
	}
	switch c.TimeSensitive.Policy {
	case qacache.PolicyBypass, qacache.PolicyShortTTL:
	default:
		return fmt.Errorf("timeSensitive.policy %q must be bypass or short_ttl", c.TimeSensitive.Policy)
	}
	if c.Semantic.Dimensions < 0 {
		return errors.New("semantic.dimensions cannot be negative")
	}
	switch c.Semantic.Embedder {
	case EmbedderOpenAI, EmbedderDeterministic:
	default:
		return fmt.Errorf("semantic.embedder %q must be openai or deterministic", c.Semantic.Embedder)
	}
	switch c.Persist.Queue {
	case QueueInline:
	case QueueValkey:
		if !c.Valkey.Enabled {
			return errors.New("persist.queue valkey requires valkey.enabled")
		}
	default:
		return fmt.Errorf("persist.queue %q must be inline or valkey", c.Persist.Queue)
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when valkey is enabled")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}
