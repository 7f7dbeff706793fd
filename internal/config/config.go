// Package config provides configuration loading and structs for the imi server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. IMI_SERVER_PORT or
// IMI_CACHE_QUERIES_TTL.
const EnvPrefix = "IMI"

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Corpus source types.
const (
	CorpusFile      = "file"
	CorpusDirectory = "directory"
	CorpusSQLite    = "sqlite"
)

// CorpusConfig describes where searchable items come from.
type CorpusConfig struct {
	Type       string   `yaml:"type"`
	Path       string   `yaml:"path"`
	Extensions []string `yaml:"extensions"`
	Watch      *bool    `yaml:"watch"`
}

// WatchOrDefault returns whether to reload the corpus on change; defaults to true when unset.
func (c *CorpusConfig) WatchOrDefault() bool {
	if c.Watch != nil {
		return *c.Watch
	}
	return true
}

// Embedding providers.
const (
	ProviderMock   = "mock"
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
)

// EmbeddingConfig selects and tunes the embedding generator.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"`
	Dimensions int           `yaml:"dimensions"`
	ModelPath  string        `yaml:"model_path" split_words:"true"`
	MaxTokens  int           `yaml:"max_tokens" split_words:"true"`
	Host       string        `yaml:"host"`
	Model      string        `yaml:"model"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	Retry      RetryConfig   `yaml:"retry"`
}

// RetryConfig controls retries around the embedding generator.
type RetryConfig struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay" split_words:"true"`
}

// SearchConfig holds ranking and orchestration settings.
type SearchConfig struct {
	Threshold    float64 `yaml:"threshold"`
	MaxResults   int     `yaml:"max_results" split_words:"true"`
	Prewarm      *bool   `yaml:"prewarm"`
	Workers      int     `yaml:"workers"`
	DedupQueries *bool   `yaml:"dedup_queries" split_words:"true"`
}

// PrewarmOrDefault returns whether to embed the corpus at startup; defaults to true.
func (s *SearchConfig) PrewarmOrDefault() bool {
	if s.Prewarm != nil {
		return *s.Prewarm
	}
	return true
}

// DedupQueriesOrDefault returns whether concurrent identical queries share one generation.
func (s *SearchConfig) DedupQueriesOrDefault() bool {
	if s.DedupQueries != nil {
		return *s.DedupQueries
	}
	return true
}

// CacheBounds configures one embedding cache. Capacity -1 means unbounded; capacity 0 is
// rejected. TTL 0 is allowed and disables reuse. Unset fields take defaults.
type CacheBounds struct {
	TTL      *time.Duration `yaml:"ttl"`
	Capacity *int           `yaml:"capacity"`
}

// Resolve returns the configured bounds. Unset fields read as zero.
func (b CacheBounds) Resolve() (ttl time.Duration, capacity int) {
	if b.TTL != nil {
		ttl = *b.TTL
	}
	if b.Capacity != nil {
		capacity = *b.Capacity
	}
	return ttl, capacity
}

func (b CacheBounds) validate() error {
	if _, capacity := b.Resolve(); capacity == 0 {
		return ErrInvalidCapacity
	}
	return nil
}

// CacheConfig configures the item and query caches independently.
type CacheConfig struct {
	Items           CacheBounds   `yaml:"items"`
	Queries         CacheBounds   `yaml:"queries"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" split_words:"true"`
}

var (
	// ErrInvalidCapacity is returned when a cache capacity is zero.
	ErrInvalidCapacity = errors.New("cache capacity must be positive or -1 (unbounded)")
	// ErrInvalidThreshold is returned when the similarity threshold is outside [-1, 1].
	ErrInvalidThreshold = errors.New("search threshold must be within [-1, 1]")
)

// Load reads and parses the config file at path, applies defaults, expands paths and
// overlays IMI_* environment variables. Returns an error if the file cannot be read or
// parsed, or if the result is invalid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Corpus.Path = expandPath(cfg.Corpus.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	return envconfig.Process(EnvPrefix, cfg)
}

// Validate reports configuration that cannot produce a working service.
func (c *Config) Validate() error {
	if err := c.Cache.Items.validate(); err != nil {
		return fmt.Errorf("items: %w", err)
	}
	if err := c.Cache.Queries.validate(); err != nil {
		return fmt.Errorf("queries: %w", err)
	}
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		return ErrInvalidThreshold
	}
	switch c.Corpus.Type {
	case CorpusFile, CorpusDirectory, CorpusSQLite:
	default:
		return fmt.Errorf("unknown corpus type: %s (supported: file, directory, sqlite)", c.Corpus.Type)
	}
	switch c.Embedding.Provider {
	case ProviderMock, ProviderONNX, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown embedding provider: %s (supported: mock, onnx, openai)", c.Embedding.Provider)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
