package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the candex configuration shared by the server and the ingest command.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	Source      SourceConfig      `yaml:"source"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Cache       CacheConfig       `yaml:"cache"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Expansion   ExpansionConfig   `yaml:"expansion"`
	Sync        SyncConfig        `yaml:"sync"`
	Search      SearchConfig      `yaml:"search"`
	LabelsFile  string            `yaml:"labels_file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SourceConfig holds the PostgreSQL source store settings.
type SourceConfig struct {
	DSN              string       `yaml:"dsn"`
	MaxConns         int32        `yaml:"max_conns"`
	MinConns         int32        `yaml:"min_conns"`
	ReadinessTimeout int          `yaml:"readiness_timeout_sec"`
	Tables           TablesConfig `yaml:"tables"`
}

// TablesConfig overrides source table names.
type TablesConfig struct {
	Users      string `yaml:"users"`
	Candidates string `yaml:"candidates"`
	Findworks  string `yaml:"findworks"`
}

// VectorStoreConfig holds vector store settings for both drivers.
type VectorStoreConfig struct {
	Driver string `yaml:"driver"` // qdrant, redis (default: qdrant)

	// qdrant
	Addr       string `yaml:"addr"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`

	// redis
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	Index    string   `yaml:"index"`
	Prefix   string   `yaml:"prefix"`

	Layout            string `yaml:"layout"` // single, named (default: named)
	Dimensions        int    `yaml:"dimensions"`
	HNSWM             int    `yaml:"hnsw_m"`               // 0 = backend default
	HNSWEFConstruct   int    `yaml:"hnsw_ef_construction"` // 0 = backend default
	WaitForDurability *bool  `yaml:"wait_for_durability"`
	InitAttempts      int    `yaml:"init_attempts"`
	InitDelayMs       int    `yaml:"init_delay_ms"`
	ReadinessTimeout  int    `yaml:"readiness_timeout_sec"`
}

// Wait reports whether upserts wait for the write to be applied (default true).
func (c VectorStoreConfig) Wait() bool {
	return c.WaitForDurability == nil || *c.WaitForDurability
}

// InitDelay returns the delay between collection bootstrap attempts.
func (c VectorStoreConfig) InitDelay() time.Duration {
	return time.Duration(c.InitDelayMs) * time.Millisecond
}

// CacheConfig holds embedding cache settings. Addrs defaults to the redis vector store.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	Prefix   string   `yaml:"prefix"`
	TTLSec   int      `yaml:"ttl_sec"` // 0 = no expiry
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	BatchSize           int    `yaml:"batch_size"`
	Parallel            int    `yaml:"parallel"`
	TimeoutSec          int    `yaml:"timeout_sec"`
}

// ExpansionConfig holds query expansion provider settings.
// APIKey and BaseURL default to the embedding provider.
type ExpansionConfig struct {
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"system_prompt"`
	MaxWords     int     `yaml:"max_words"`
	RatePerSec   float64 `yaml:"rate_per_sec"`
	Burst        int     `yaml:"burst"`
	TimeoutSec   int     `yaml:"timeout_sec"`
}

// SyncConfig holds synchronization engine settings.
type SyncConfig struct {
	PageSize         int    `yaml:"page_size"`
	MinTextChars     int    `yaml:"min_text_chars"`
	MaxTextChars     int    `yaml:"max_text_chars"`
	SkillsClause     string `yaml:"skills_clause"`
	CursorUpperBound int64  `yaml:"cursor_upper_bound"`
	CursorWindow     int    `yaml:"cursor_window"`
	UpsertAttempts   int    `yaml:"upsert_attempts"`
	UpsertDelayMs    int    `yaml:"upsert_delay_ms"`
	BatchDelayMs     int    `yaml:"batch_delay_ms"`
	StartID          int64  `yaml:"start_id"`
	ForceStart       bool   `yaml:"force_start"`
	CatchUpOnStart   *bool  `yaml:"catch_up_on_start"`
}

// UpsertDelay returns the delay between upsert attempts.
func (c SyncConfig) UpsertDelay() time.Duration {
	return time.Duration(c.UpsertDelayMs) * time.Millisecond
}

// BatchDelay returns the pause between batches.
func (c SyncConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMs) * time.Millisecond
}

// CatchUp reports whether the server starts a catch-up sync on startup (default true).
func (c SyncConfig) CatchUp() bool {
	return c.CatchUpOnStart == nil || *c.CatchUpOnStart
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	Fusion        string            `yaml:"fusion"` // rrf, dbsf, none (default: rrf)
	Limit         int               `yaml:"limit"`
	PrefetchLimit int               `yaml:"prefetch_limit"`
	Facets        map[string]string `yaml:"facets"` // facet -> required|optional
	Lexical       LexicalConfig     `yaml:"lexical"`
	Expansion     QueryExpansion    `yaml:"expansion"`
	TimeoutSec    int               `yaml:"timeout_sec"`
}

// LexicalConfig toggles the lexical probe.
type LexicalConfig struct {
	Enabled bool `yaml:"enabled"`
}

// QueryExpansion decides when queries are expanded.
type QueryExpansion struct {
	Enabled   bool `yaml:"enabled"`
	MaxTokens int  `yaml:"max_tokens"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Source.MaxConns <= 0 {
		c.Source.MaxConns = 10
	}
	if c.Source.ReadinessTimeout <= 0 {
		c.Source.ReadinessTimeout = 10
	}

	if c.VectorStore.Driver == "" {
		c.VectorStore.Driver = "qdrant"
	}
	if c.VectorStore.Layout == "" {
		c.VectorStore.Layout = "named"
	}
	if c.VectorStore.Dimensions <= 0 {
		c.VectorStore.Dimensions = 384
	}
	if c.VectorStore.InitAttempts <= 0 {
		c.VectorStore.InitAttempts = 5
	}
	if c.VectorStore.InitDelayMs <= 0 {
		c.VectorStore.InitDelayMs = 3000
	}
	if c.VectorStore.ReadinessTimeout <= 0 {
		c.VectorStore.ReadinessTimeout = 10
	}

	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "candex:emb:"
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 && c.VectorStore.Driver == "redis" {
		c.Cache.Addrs = c.VectorStore.Addrs
		if c.Cache.Password == "" {
			c.Cache.Password = c.VectorStore.Password
		}
	}

	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = c.VectorStore.Dimensions
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 100
	}
	if c.Embedding.Parallel <= 0 {
		c.Embedding.Parallel = 1
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}

	if c.Expansion.APIKey == "" {
		c.Expansion.APIKey = c.Embedding.APIKey
	}
	if c.Expansion.BaseURL == "" {
		c.Expansion.BaseURL = c.Embedding.BaseURL
	}
	if c.Expansion.MaxWords <= 0 {
		c.Expansion.MaxWords = 12
	}
	if c.Expansion.RatePerSec <= 0 {
		c.Expansion.RatePerSec = 5
	}
	if c.Expansion.Burst <= 0 {
		c.Expansion.Burst = 1
	}
	if c.Expansion.TimeoutSec <= 0 {
		c.Expansion.TimeoutSec = 3
	}

	if c.Sync.PageSize <= 0 {
		c.Sync.PageSize = 100
	}
	if c.Sync.MinTextChars <= 0 {
		c.Sync.MinTextChars = 5
	}
	if c.Sync.MaxTextChars <= 0 {
		c.Sync.MaxTextChars = 1000
	}
	if c.Sync.SkillsClause == "" {
		c.Sync.SkillsClause = "Kỹ năng: "
	}
	if c.Sync.CursorUpperBound <= 0 {
		c.Sync.CursorUpperBound = 2_000_000
	}
	if c.Sync.CursorWindow <= 0 {
		c.Sync.CursorWindow = 100
	}
	if c.Sync.UpsertAttempts <= 0 {
		c.Sync.UpsertAttempts = 3
	}
	if c.Sync.UpsertDelayMs <= 0 {
		c.Sync.UpsertDelayMs = 2000
	}
	if c.Sync.BatchDelayMs <= 0 {
		c.Sync.BatchDelayMs = 100
	}

	if c.Search.Fusion == "" {
		c.Search.Fusion = "rrf"
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = 30
	}
	if c.Search.PrefetchLimit <= 0 {
		c.Search.PrefetchLimit = 100
	}
	if c.Search.Expansion.MaxTokens <= 0 {
		c.Search.Expansion.MaxTokens = 8
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Source.DSN == "" {
		return fmt.Errorf("source.dsn is required")
	}
	if c.Source.MinConns > c.Source.MaxConns {
		return fmt.Errorf("source.min_conns (%d) must not exceed source.max_conns (%d)",
			c.Source.MinConns, c.Source.MaxConns)
	}

	switch c.VectorStore.Driver {
	case "qdrant":
		if c.VectorStore.Addr == "" {
			return fmt.Errorf("vector_store.addr is required for the qdrant driver")
		}
	case "redis":
		if len(c.VectorStore.Addrs) == 0 {
			return fmt.Errorf("vector_store.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("vector_store.driver must be \"qdrant\" or \"redis\", got %q", c.VectorStore.Driver)
	}
	if c.VectorStore.HNSWM < 0 || c.VectorStore.HNSWEFConstruct < 0 {
		return fmt.Errorf("vector_store.hnsw_m and hnsw_ef_construction must not be negative")
	}
	switch c.VectorStore.Layout {
	case "single", "named":
	default:
		return fmt.Errorf("vector_store.layout must be \"single\" or \"named\", got %q", c.VectorStore.Layout)
	}
	if c.Embedding.Dimensions != c.VectorStore.Dimensions {
		return fmt.Errorf("embedding.dimensions (%d) must match vector_store.dimensions (%d)",
			c.Embedding.Dimensions, c.VectorStore.Dimensions)
	}

	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when the cache is enabled")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Search.Expansion.Enabled && c.Expansion.Model == "" {
		return fmt.Errorf("expansion.model is required when search.expansion is enabled")
	}

	if c.Sync.MinTextChars > c.Sync.MaxTextChars {
		return fmt.Errorf("sync.min_text_chars (%d) must not exceed sync.max_text_chars (%d)",
			c.Sync.MinTextChars, c.Sync.MaxTextChars)
	}
	if c.Sync.StartID < 0 {
		return fmt.Errorf("sync.start_id must be >= 0, got %d", c.Sync.StartID)
	}

	switch c.Search.Fusion {
	case "rrf", "dbsf", "none":
	default:
		return fmt.Errorf("search.fusion must be \"rrf\", \"dbsf\" or \"none\", got %q", c.Search.Fusion)
	}
	if c.Search.Fusion == "none" && c.Search.Lexical.Enabled {
		return fmt.Errorf("search.lexical.enabled needs search.fusion rrf or dbsf")
	}
	for name, mode := range c.Search.Facets {
		switch mode {
		case "required", "optional":
		default:
			return fmt.Errorf(
				"search.facets.%s must be \"required\" or \"optional\", got %q",
				name, mode,
			)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

// ResolvePath resolves a path relative to the working directory or the project root.
func ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || fileExists(path) {
		return path
	}
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if p := filepath.Join(projectRoot, path); fileExists(p) {
		return p
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
