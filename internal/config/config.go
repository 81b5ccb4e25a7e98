// Package config loads and validates leasehound configuration.
//
// Configuration is resolved in three layers, later layers winning:
//  1. Built-in defaults
//  2. YAML config file (~/.leasehound/config.yaml or --config)
//  3. LEASEHOUND_* environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML support for values like "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the complete leasehound configuration.
type Config struct {
	Version int           `yaml:"version"`
	Search  SearchConfig  `yaml:"search"`
	AI      AIConfig      `yaml:"ai"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`
}

// SearchConfig configures hybrid retrieval and rank fusion.
// Weights need not sum to 1; only their relative magnitude matters.
type SearchConfig struct {
	// VectorWeight is the RRF weight for the semantic (vector) list.
	VectorWeight float64 `yaml:"vector_weight"`

	// LexicalWeight is the RRF weight for the keyword (BM25) list.
	LexicalWeight float64 `yaml:"lexical_weight"`

	// RRFConstant is the RRF smoothing parameter k. Larger values flatten
	// the influence of low ranks. Default: 60.
	RRFConstant int `yaml:"rrf_constant"`

	// TopN is the number of fused passages handed to the answer generator.
	TopN int `yaml:"top_n"`

	// VectorK is the candidate count requested from the vector index.
	VectorK int `yaml:"vector_k"`

	// LexicalK is the candidate count requested from the lexical index.
	LexicalK int `yaml:"lexical_k"`

	// SearchTimeout bounds each sub-index search call.
	SearchTimeout Duration `yaml:"search_timeout"`
}

// AIConfig configures the embedding and language-model collaborators.
// Both speak the OpenAI-compatible API.
type AIConfig struct {
	EmbeddingHost  string `yaml:"embedding_host"`
	EmbeddingModel string `yaml:"embedding_model"`

	// EmbeddingDimensions is the fixed embedding vector length.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`

	// EmbeddingCacheSize is the LRU entry count for cached query embeddings.
	EmbeddingCacheSize int `yaml:"embedding_cache_size"`

	LLMHost  string `yaml:"llm_host"`
	LLMModel string `yaml:"llm_model"`

	// APIKey authenticates against hosted endpoints. Usually supplied via
	// LEASEHOUND_API_KEY rather than the config file.
	APIKey string `yaml:"api_key"`

	EmbedTimeout       Duration `yaml:"embed_timeout"`
	ReformulateTimeout Duration `yaml:"reformulate_timeout"`
	GenerateTimeout    Duration `yaml:"generate_timeout"`
}

// SessionConfig configures conversation sessions.
type SessionConfig struct {
	// ContextWindow is the number of recent turn pairs fed to reformulation
	// and generation.
	ContextWindow int `yaml:"context_window"`

	// IdleTimeout is how long an untouched session survives eviction sweeps.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// MaxSessions caps concurrently tracked sessions (0 = unlimited).
	MaxSessions int `yaml:"max_sessions"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	FilePath  string `yaml:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// StorageConfig configures on-disk locations for the indices and chunk store.
type StorageConfig struct {
	// DataDir is the root directory for index and metadata files.
	DataDir string `yaml:"data_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			VectorWeight:  0.6,
			LexicalWeight: 0.4,
			RRFConstant:   60,
			TopN:          10,
			VectorK:       20,
			LexicalK:      20,
			SearchTimeout: Duration(5 * time.Second),
		},
		AI: AIConfig{
			EmbeddingHost:       "https://api.openai.com/v1",
			EmbeddingModel:      "text-embedding-3-small",
			EmbeddingDimensions: 1536,
			EmbeddingCacheSize:  1000,
			LLMHost:             "https://api.openai.com/v1",
			LLMModel:            "gpt-4o",
			EmbedTimeout:        Duration(10 * time.Second),
			ReformulateTimeout:  Duration(10 * time.Second),
			GenerateTimeout:     Duration(30 * time.Second),
		},
		Session: SessionConfig{
			ContextWindow: 3,
			IdleTimeout:   Duration(time.Hour),
			MaxSessions:   0,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "leasehound")
	}
	return filepath.Join(home, ".leasehound")
}

// Load reads configuration from path, layered over defaults and under
// environment overrides. A missing file is not an error when path is the
// default location; an explicit path must exist.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// applyEnv overrides config fields from LEASEHOUND_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("LEASEHOUND_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.VectorWeight = f
		}
	}
	if v := os.Getenv("LEASEHOUND_LEXICAL_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.LexicalWeight = f
		}
	}
	if v := os.Getenv("LEASEHOUND_RRF_CONSTANT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.RRFConstant = n
		}
	}
	if v := os.Getenv("LEASEHOUND_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("LEASEHOUND_EMBEDDING_HOST"); v != "" {
		c.AI.EmbeddingHost = v
	}
	if v := os.Getenv("LEASEHOUND_LLM_HOST"); v != "" {
		c.AI.LLMHost = v
	}
	if v := os.Getenv("LEASEHOUND_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("LEASEHOUND_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Search.VectorWeight < 0 || c.Search.LexicalWeight < 0 {
		return fmt.Errorf("search weights must be non-negative (vector=%.2f lexical=%.2f)",
			c.Search.VectorWeight, c.Search.LexicalWeight)
	}
	if c.Search.VectorWeight == 0 && c.Search.LexicalWeight == 0 {
		return fmt.Errorf("at least one search weight must be positive")
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.Search.TopN)
	}
	if c.Search.VectorK <= 0 || c.Search.LexicalK <= 0 {
		return fmt.Errorf("vector_k and lexical_k must be positive")
	}
	if c.AI.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding_dimensions must be positive, got %d", c.AI.EmbeddingDimensions)
	}
	if c.Session.ContextWindow < 0 {
		return fmt.Errorf("context_window must be non-negative, got %d", c.Session.ContextWindow)
	}
	return nil
}
