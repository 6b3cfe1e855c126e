// Copyright 2025 The Legal-MCP Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the process configuration for the legal-mcp server.
//
// Configuration is loaded from environment variables (a .env file is honored
// when present). Every section follows the SetDefaults/Validate convention:
// zero values are filled in by SetDefaults, and Validate rejects combinations
// that cannot work at runtime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the root configuration object.
type Config struct {
	Ingest    IngestConfig    `yaml:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Cache     CacheConfig     `yaml:"cache"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Log       LogConfig       `yaml:"log"`
}

// IngestConfig bounds file-based ingestion.
type IngestConfig struct {
	// Root is the allowlisted directory for file-based ingestion.
	// All relative paths supplied by callers resolve under this root.
	Root string `yaml:"root"`

	// MaxTextBytes caps plain text and markdown reads.
	MaxTextBytes int64 `yaml:"max_text_bytes"`

	// MaxConvertedBytes caps converter output (PDF derived markdown).
	MaxConvertedBytes int64 `yaml:"max_converted_bytes"`

	// Workers bounds the corpus ingestion worker pool.
	Workers int `yaml:"workers"`
}

// EmbeddingConfig configures the embedding gateway.
type EmbeddingConfig struct {
	// Endpoints is the ordered list of embedding replica base URLs.
	// Empty means the in-process fallback model is used.
	Endpoints []string `yaml:"endpoints"`

	// Model is the logical model identifier recorded on every chunk.
	Model string `yaml:"model"`

	// Dimension is the embedding vector dimension.
	Dimension int `yaml:"dimension"`

	// MaxBatchSize is the per-request text cap imposed by the backend.
	MaxBatchSize int `yaml:"max_batch_size"`

	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// MaxRetries bounds retry attempts per endpoint before failover.
	MaxRetries int `yaml:"max_retries"`

	// CooldownSeconds is how long a failing endpoint stays unhealthy.
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// VectorConfig selects and configures the vector store backend.
type VectorConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant".
	Provider string `yaml:"provider"`

	// Path is the persistence directory for the embedded provider.
	Path string `yaml:"path"`

	// Compress enables gzip persistence for the embedded provider.
	Compress bool `yaml:"compress,omitempty"`

	// Qdrant connection settings (used when Provider == "qdrant").
	QdrantHost   string `yaml:"qdrant_host,omitempty"`
	QdrantPort   int    `yaml:"qdrant_port,omitempty"`
	QdrantAPIKey string `yaml:"qdrant_api_key,omitempty"`
	QdrantUseTLS bool   `yaml:"qdrant_use_tls,omitempty"`
}

// CacheConfig bounds the reference cache.
type CacheConfig struct {
	// Backend is "memory" (default) or "redis".
	Backend string `yaml:"backend"`

	// Capacity is the maximum number of live entries.
	Capacity int `yaml:"capacity"`

	// DefaultTTLSeconds is the entry lifetime when the caller omits one.
	DefaultTTLSeconds int `yaml:"default_ttl_seconds"`

	// RedisURL connects the redis backend (redis://host:port/db).
	RedisURL string `yaml:"redis_url,omitempty"`
}

// CatalogConfig locates the offline catalog databases.
type CatalogConfig struct {
	// Dir holds one SQLite file per registered source.
	Dir string `yaml:"dir"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
	JSON  bool   `yaml:"json,omitempty"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Ingest: IngestConfig{
			Root:    os.Getenv("LEGAL_MCP_INGEST_ROOT"),
			Workers: envInt("LEGAL_MCP_INGEST_WORKERS", 0),
		},
		Embedding: EmbeddingConfig{
			Endpoints:      splitList(os.Getenv("EMBEDDING_ENDPOINTS")),
			Model:          os.Getenv("EMBEDDING_MODEL"),
			Dimension:      envInt("EMBEDDING_DIMENSION", 0),
			MaxBatchSize:   envInt("EMBEDDING_MAX_BATCH_SIZE", 0),
			TimeoutSeconds: envInt("EMBEDDING_TIMEOUT_SECONDS", 0),
		},
		Vector: VectorConfig{
			Provider:     os.Getenv("VECTOR_STORE_PROVIDER"),
			Path:         os.Getenv("VECTOR_STORE_PATH"),
			QdrantHost:   os.Getenv("QDRANT_HOST"),
			QdrantPort:   envInt("QDRANT_PORT", 0),
			QdrantAPIKey: os.Getenv("QDRANT_API_KEY"),
			QdrantUseTLS: envBool("QDRANT_USE_TLS"),
		},
		Cache: CacheConfig{
			Backend:           os.Getenv("CACHE_BACKEND"),
			Capacity:          envInt("CACHE_CAPACITY", 0),
			DefaultTTLSeconds: envInt("CACHE_DEFAULT_TTL_SECONDS", 0),
			RedisURL:          os.Getenv("REDIS_URL"),
		},
		Catalog: CatalogConfig{
			Dir: os.Getenv("CATALOG_DIR"),
		},
		Log: LogConfig{
			Level: os.Getenv("LOG_LEVEL"),
			File:  os.Getenv("LOG_FILE"),
			JSON:  envBool("LOG_JSON"),
		},
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills zero values with working defaults.
func (c *Config) SetDefaults() {
	if c.Ingest.Root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		c.Ingest.Root = filepath.Join(cwd, ".agent", "tmp")
	}
	if c.Ingest.MaxTextBytes == 0 {
		c.Ingest.MaxTextBytes = 2_000_000
	}
	if c.Ingest.MaxConvertedBytes == 0 {
		c.Ingest.MaxConvertedBytes = 5_000_000
	}
	if c.Ingest.Workers == 0 {
		c.Ingest.Workers = 16
	}

	if c.Embedding.Model == "" {
		c.Embedding.Model = "intfloat/multilingual-e5-base"
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = 768
	}
	if c.Embedding.MaxBatchSize == 0 {
		c.Embedding.MaxBatchSize = 32
	}
	if c.Embedding.TimeoutSeconds == 0 {
		c.Embedding.TimeoutSeconds = 30
	}
	if c.Embedding.MaxRetries == 0 {
		c.Embedding.MaxRetries = 3
	}
	if c.Embedding.CooldownSeconds == 0 {
		c.Embedding.CooldownSeconds = 30
	}

	if c.Vector.Provider == "" {
		c.Vector.Provider = "chromem"
	}
	if c.Vector.Path == "" {
		c.Vector.Path = filepath.Join(".", ".legalmcp", "vectors")
	}
	if c.Vector.QdrantHost == "" {
		c.Vector.QdrantHost = "localhost"
	}
	if c.Vector.QdrantPort == 0 {
		c.Vector.QdrantPort = 6334
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 1000
	}
	if c.Cache.DefaultTTLSeconds == 0 {
		c.Cache.DefaultTTLSeconds = 86400
	}

	if c.Catalog.Dir == "" {
		c.Catalog.Dir = filepath.Join(".", "catalogs")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configurations that cannot work at runtime.
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.Ingest.Root) {
		abs, err := filepath.Abs(c.Ingest.Root)
		if err != nil {
			return fmt.Errorf("ingest root %q cannot be made absolute: %w", c.Ingest.Root, err)
		}
		c.Ingest.Root = abs
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest workers must be >= 1, got %d", c.Ingest.Workers)
	}

	for _, ep := range c.Embedding.Endpoints {
		if !strings.HasPrefix(ep, "http://") && !strings.HasPrefix(ep, "https://") {
			return fmt.Errorf("embedding endpoint %q must be an http(s) URL", ep)
		}
	}
	if c.Embedding.Dimension < 1 {
		return fmt.Errorf("embedding dimension must be >= 1, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.MaxBatchSize < 1 {
		return fmt.Errorf("embedding max batch size must be >= 1, got %d", c.Embedding.MaxBatchSize)
	}

	switch c.Vector.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unknown vector provider %q (want chromem or qdrant)", c.Vector.Provider)
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache backend redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (want memory or redis)", c.Cache.Backend)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache capacity must be >= 1, got %d", c.Cache.Capacity)
	}
	if c.Cache.DefaultTTLSeconds < 1 {
		return fmt.Errorf("cache default TTL must be >= 1s, got %d", c.Cache.DefaultTTLSeconds)
	}

	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}
