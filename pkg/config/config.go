package config

import "time"

// Config represents the top-level configuration for the career coach service.
type Config struct {
	// Completion configures the chat/analysis completion service
	Completion CompletionConfig `yaml:"completion"`

	// Embedding configures the embedding service used by the memory store
	Embedding EmbeddingConfig `yaml:"embedding"`

	// LTM configures the long-term memory storage
	LTM LTMConfig `yaml:"ltm"`

	// Profile configures the profile fetcher
	Profile ProfileConfig `yaml:"profile"`

	// Server configures the HTTP façade
	Server ServerConfig `yaml:"server"`

	// Logging configures the logging behavior
	Logging LoggingConfig `yaml:"logging"`
}

// CompletionConfig configures an OpenAI-compatible completion service.
type CompletionConfig struct {
	// Provider is the completion provider ("openai", "mock")
	Provider string `yaml:"provider"`

	// APIKey authenticates against the completion service. Empty disables it.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the API endpoint (Groq by default)
	BaseURL string `yaml:"base_url"`

	// Model is the chat model name
	Model string `yaml:"model"`

	// AnalysisMaxTokens bounds the output of a profile analysis
	AnalysisMaxTokens int `yaml:"analysis_max_tokens"`
}

// EmbeddingConfig configures an OpenAI-compatible embedding service.
type EmbeddingConfig struct {
	// Provider is the embedding provider ("openai", "mock")
	Provider string `yaml:"provider"`

	// APIKey authenticates against the embedding service
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the API endpoint (OpenAI by default)
	BaseURL string `yaml:"base_url"`

	// Model is the embedding model name
	Model string `yaml:"model"`
}

// LTMConfig configures the long-term memory storage.
type LTMConfig struct {
	// Type specifies the similarity backend ("chromemgo", "pgvector", "mock")
	Type string `yaml:"type"`

	// Ledger specifies the recency ledger paired with chromemgo ("boltdb", "sql")
	Ledger string `yaml:"ledger"`

	// ChromemGo configures chromem-go vector storage
	ChromemGo ChromemGoConfig `yaml:"chromemgo"`

	// PgVector configures PostgreSQL pgvector storage
	PgVector PgVectorConfig `yaml:"pgvector"`

	// BoltDB configures the bbolt ledger
	BoltDB BoltDBConfig `yaml:"boltdb"`

	// SQL configures the SQL ledger
	SQL SQLConfig `yaml:"sql"`
}

// ChromemGoConfig configures chromem-go vector storage.
type ChromemGoConfig struct {
	// StoragePath is the directory for on-disk persistence (if empty, in-memory is used)
	StoragePath string `yaml:"storage_path"`

	// Compress gzips the persisted documents
	Compress bool `yaml:"compress"`

	// CollectionPrefix names per-user collections as <prefix><user>
	CollectionPrefix string `yaml:"collection_prefix"`
}

// PgVectorConfig configures PostgreSQL with pgvector extension
type PgVectorConfig struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string `yaml:"connection_string"`

	// TableName is the name of the table to use
	TableName string `yaml:"table_name"`

	// Dimensions specifies the embedding dimensions
	Dimensions int `yaml:"dimensions"`

	// DistanceMetric is the distance metric to use (cosine, euclidean, dot)
	DistanceMetric string `yaml:"distance_metric"`
}

// BoltDBConfig configures the bbolt recency ledger.
type BoltDBConfig struct {
	// Path is the database file. Defaults to <chromemgo.storage_path>/ledger.bolt
	Path string `yaml:"path"`
}

// SQLConfig configures the SQL recency ledger.
type SQLConfig struct {
	// Driver is the SQL driver ("sqlite3", "postgres")
	Driver string `yaml:"driver"`

	// DSN is the data source name (connection string)
	DSN string `yaml:"dsn"`
}

// ProfileConfig configures the profile fetcher.
type ProfileConfig struct {
	// Provider is the fetcher implementation ("apify", "mock")
	Provider string `yaml:"provider"`

	// Apify configures the Apify actor based fetcher
	Apify ApifyConfig `yaml:"apify"`
}

// ApifyConfig configures the Apify actor run used to scrape profiles.
type ApifyConfig struct {
	Token   string `yaml:"token"`
	ActorID string `yaml:"actor_id"`
	BaseURL string `yaml:"base_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address
	Addr string `yaml:"addr"`

	// RequestTimeout bounds each HTTP request, including the upstream calls it makes
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level is the logging level ("debug", "info", "warn", "error")
	Level string `yaml:"level"`

	// Format is the output format ("text", "json")
	Format string `yaml:"format"`
}
