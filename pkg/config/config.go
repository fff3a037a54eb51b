package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Retrieval engine tuning
	Retrieval RetrievalConfig `mapstructure:"retrieval"`

	// QueryLog configures where queries with no results are recorded
	QueryLog QueryLogConfig `mapstructure:"query_log"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache"`

	// Hints configures the optional hint producer
	Hints HintsConfig `mapstructure:"hints"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	// ParquetPath receives error-level log records when set
	ParquetPath string `mapstructure:"parquet_path"`
	// BatchSize is the number of records buffered before a parquet file is written
	BatchSize int `mapstructure:"batch_size"`
	// SQLDialect and SQLDSN mirror error-level records into a postgres or mysql table
	SQLDialect string `mapstructure:"sql_dialect"`
	SQLDSN     string `mapstructure:"sql_dsn"`
	SQLTable   string `mapstructure:"sql_table"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig holds graph store configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // neo4j, ladybug
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	GroupID  string `mapstructure:"group_id"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai, embedeverything
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// RetrievalConfig tunes the retrieval pipeline.
type RetrievalConfig struct {
	Weights                WeightsConfig `mapstructure:"weights"`
	TopK                   int           `mapstructure:"top_k"`
	VectorThreshold        float64       `mapstructure:"vector_threshold"`
	RerankThreshold        float64       `mapstructure:"rerank_threshold"`
	RelaxedVectorThreshold float64       `mapstructure:"relaxed_vector_threshold"`
	RelaxedRerankThreshold float64       `mapstructure:"relaxed_rerank_threshold"`
	EarlyStopScore         float64       `mapstructure:"early_stop_score"`
	EarlyStopMinResults    int           `mapstructure:"early_stop_min_results"`
	MaxHops                int           `mapstructure:"max_hops"`
	MaxConcurrency         int           `mapstructure:"max_concurrency"`
	QueryTimeout           time.Duration `mapstructure:"query_timeout"`
	EmbedTimeout           time.Duration `mapstructure:"embed_timeout"`
	RecencyWindow          time.Duration `mapstructure:"recency_window"`
}

// WeightsConfig holds the reranker weight profile.
type WeightsConfig struct {
	TextMatch       float64 `mapstructure:"text_match"`
	GraphRelevance  float64 `mapstructure:"graph_relevance"`
	DataQuality     float64 `mapstructure:"data_quality"`
	UsageFrequency  float64 `mapstructure:"usage_frequency"`
	BusinessContext float64 `mapstructure:"business_context"`
}

// QueryLogConfig selects the missing-query log backend.
type QueryLogConfig struct {
	Backend string `mapstructure:"backend"` // slog, parquet, postgres, mysql
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// CacheConfig configures the badger-backed cache.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Path     string        `mapstructure:"path"`
	InMemory bool          `mapstructure:"in_memory"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// HintsConfig selects the optional hint analyzer.
type HintsConfig struct {
	Analyzer string   `mapstructure:"analyzer"` // none, keyword, gliner
	Model    string   `mapstructure:"model"`
	Labels   []string `mapstructure:"labels"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.driver", "neo4j")
	viper.SetDefault("database.uri", "bolt://localhost:7687")
	viper.SetDefault("database.username", "neo4j")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.database", "neo4j")
	viper.SetDefault("database.group_id", "")

	// Embedding defaults
	viper.SetDefault("embedding.provider", "embedeverything")
	viper.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	viper.SetDefault("embedding.dimensions", 384)
	viper.SetDefault("embedding.max_retries", 2)

	// Retrieval defaults
	viper.SetDefault("retrieval.weights.text_match", 0.30)
	viper.SetDefault("retrieval.weights.graph_relevance", 0.25)
	viper.SetDefault("retrieval.weights.data_quality", 0.20)
	viper.SetDefault("retrieval.weights.usage_frequency", 0.15)
	viper.SetDefault("retrieval.weights.business_context", 0.10)
	viper.SetDefault("retrieval.top_k", 5)
	viper.SetDefault("retrieval.vector_threshold", 0.5)
	viper.SetDefault("retrieval.rerank_threshold", 0.25)
	viper.SetDefault("retrieval.relaxed_vector_threshold", 0.25)
	viper.SetDefault("retrieval.relaxed_rerank_threshold", 0.15)
	viper.SetDefault("retrieval.early_stop_score", 0.90)
	viper.SetDefault("retrieval.early_stop_min_results", 3)
	viper.SetDefault("retrieval.max_hops", 2)
	viper.SetDefault("retrieval.max_concurrency", 8)
	viper.SetDefault("retrieval.query_timeout", "10s")
	viper.SetDefault("retrieval.embed_timeout", "15s")
	viper.SetDefault("retrieval.recency_window", "720h")

	// Query log defaults
	viper.SetDefault("query_log.backend", "slog")
	viper.SetDefault("query_log.table", "missing_queries")

	// Cache defaults
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.in_memory", true)
	viper.SetDefault("cache.ttl", "1h")

	viper.SetDefault("telemetry.batch_size", 100)
	viper.SetDefault("telemetry.sql_table", "telemetry_logs")

	viper.SetDefault("hints.analyzer", "none")
	viper.SetDefault("hints.labels", []string{"table", "column", "business entity", "metric"})

	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("query_log.path", filepath.Join(home, ".schemagraph", "missing_queries"))
		viper.SetDefault("cache.path", filepath.Join(home, ".schemagraph", "cache"))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && config.Embedding.APIKey == "" {
		config.Embedding.APIKey = apiKey
	}

	// Database credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Database.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Database.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Database.Password = pass
	}

	// ladybug database path
	if dbPath := os.Getenv("LADYBUG_DB_PATH"); dbPath != "" {
		config.Database.URI = dbPath
	}

	// Generic database settings
	if dbDriver := os.Getenv("DB_DRIVER"); dbDriver != "" {
		config.Database.Driver = dbDriver
	}
	if dbURI := os.Getenv("DB_URI"); dbURI != "" {
		config.Database.URI = dbURI
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil && p > 0 {
			config.Server.Port = p
		}
	}

	if dsn := os.Getenv("QUERY_LOG_DSN"); dsn != "" {
		config.QueryLog.DSN = dsn
	}
}
