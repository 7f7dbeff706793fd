package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Corpus.Type == "" {
		cfg.Corpus.Type = CorpusFile
	}
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "/usr/local/var/imi/items.yaml"
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".xlsx", ".docx", ".pptx", ".odt", ".odp", ".ods", ".rtf"}
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderMock
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/imi/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.Host == "" {
		cfg.Embedding.Host = "http://localhost:11434/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "embeddinggemma"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 10 * time.Second
	}
	if cfg.Embedding.Retry.Attempts == 0 {
		cfg.Embedding.Retry.Attempts = 3
	}
	if cfg.Embedding.Retry.BaseDelay == 0 {
		cfg.Embedding.Retry.BaseDelay = 200 * time.Millisecond
	}
	// Threshold 0 is a valid setting, so it has no default.
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 20
	}
	if cfg.Search.Workers == 0 {
		cfg.Search.Workers = 4
	}
	// Items are stable text: long TTL, large capacity.
	defaultBounds(&cfg.Cache.Items, 24*time.Hour, 10000)
	// Queries churn with every keystroke: short TTL, small capacity.
	defaultBounds(&cfg.Cache.Queries, 5*time.Minute, 256)
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = time.Minute
	}
}

// defaultBounds fills only the fields left out of the config, so an explicit ttl of 0
// survives and an explicit capacity of 0 reaches Validate.
func defaultBounds(b *CacheBounds, ttl time.Duration, capacity int) {
	if b.TTL == nil {
		b.TTL = &ttl
	}
	if b.Capacity == nil {
		b.Capacity = &capacity
	}
}
