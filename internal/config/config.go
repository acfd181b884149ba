// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (ASISTENTE_* prefix, plus DATABASE_URL)
//  2. Config file (config.yaml in the working directory or /etc/asistente)
//  3. Default values
//
// Main categories:
//   - Ollama: base URL, generation model, embedding model, generation options
//   - Storage: PostgreSQL connection (see storage.go)
//   - RAG: chunking, similarity threshold, topK bounds, cache TTL
//   - Serve: listen address, CORS origins, rate limiting
//
// Sensitive values (the Postgres password) are never logged.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation, checked with errors.Is.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidOllamaHost indicates the Ollama base URL is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidChunking indicates the chunk size/overlap pair is unusable.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidSimilarity indicates the similarity threshold is out of [0,1].
	ErrInvalidSimilarity = errors.New("invalid similarity threshold")

	// ErrInvalidTopK indicates the topK bounds are inconsistent.
	ErrInvalidTopK = errors.New("invalid topK bounds")

	// ErrInvalidPostgres indicates the PostgreSQL settings are incomplete.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")
)

// Default model identifiers. These match the models the deployment pulls
// into Ollama; the embedder model fixes the vector dimension used by the
// chunks table (nomic-embed-text → 768, see db/migrations).
const (
	DefaultGenerationModel = "mistral:7b-instruct"
	DefaultEmbeddingModel  = "nomic-embed-text"
)

// Config stores application configuration.
type Config struct {
	// Ollama configuration
	OllamaHost      string  `mapstructure:"ollama_host"`
	GenerationModel string  `mapstructure:"generation_model"`
	EmbeddingModel  string  `mapstructure:"embedding_model"`
	Temperature     float64 `mapstructure:"temperature"`
	ContextWindow   int     `mapstructure:"context_window"`

	// RAG tuning
	ChunkMaxChars  int           `mapstructure:"chunk_max_chars"`
	ChunkOverlap   int           `mapstructure:"chunk_overlap"`
	MinSimilarity  float64       `mapstructure:"min_similarity"`
	DefaultTopK    int           `mapstructure:"default_top_k"`
	MaxTopK        int           `mapstructure:"max_top_k"`
	FinalTopK      int           `mapstructure:"final_top_k"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	CacheSize      int           `mapstructure:"cache_size"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never log
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Serve configuration
	ListenAddr  string   `mapstructure:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	RateBurst   int      `mapstructure:"rate_burst"`
	TrustProxy  bool     `mapstructure:"trust_proxy"`
}

// Load reads configuration from defaults, an optional config file, and
// environment variables, in increasing priority.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/asistente")

	v.SetEnvPrefix("ASISTENTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine: defaults + env carry the configuration.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("generation_model", DefaultGenerationModel)
	v.SetDefault("embedding_model", DefaultEmbeddingModel)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("context_window", 4096)

	v.SetDefault("chunk_max_chars", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("min_similarity", 0.80)
	v.SetDefault("default_top_k", 5)
	v.SetDefault("max_top_k", 20)
	v.SetDefault("final_top_k", 5)
	v.SetDefault("cache_ttl", 30*time.Minute)
	v.SetDefault("cache_size", 1024)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "app")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "salud")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("rate_burst", 60)
	v.SetDefault("trust_proxy", false)
}
