package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by validateConfig when a setting is left empty.
const (
	DefaultCompletionBaseURL  = "https://api.groq.com/openai/v1"
	DefaultChatModel          = "llama-3.1-8b-instant"
	DefaultAnalysisMaxTokens  = 900
	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultChromaDir          = "./chroma_db"
	DefaultCollectionPrefix   = "careercoach_"
	DefaultApifyActorID       = "simpleapi/linkedin-profile-scraper"
	DefaultApifyBaseURL       = "https://api.apify.com"
	DefaultAddr               = ":8005"
	DefaultRequestTimeout     = 120 * time.Second
	DefaultPgVectorTable      = "memory_vectors"
	DefaultPgVectorDimensions = 1536
)

// Load builds a configuration from an optional YAML file plus the environment.
// An empty path means environment and defaults only.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}
	return LoadFromFile(path)
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from a byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	var config Config

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnvironmentOverrides(&config); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func applyEnvironmentOverrides(config *Config) error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&config.Completion.Provider, "COMPLETION_PROVIDER")
	setString(&config.Completion.APIKey, "GROQ_API_KEY", "COMPLETION_API_KEY")
	setString(&config.Completion.BaseURL, "COMPLETION_BASE_URL")
	setString(&config.Completion.Model, "CHAT_MODEL")
	if v := os.Getenv("ANALYZE_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("ANALYZE_MAX_TOKENS: %w", err)
		}
		config.Completion.AnalysisMaxTokens = n
	}

	setString(&config.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&config.Embedding.APIKey, "OPENAI_API_KEY")
	setString(&config.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setString(&config.Embedding.Model, "EMBEDDING_MODEL")

	setString(&config.LTM.Type, "LTM_TYPE")
	setString(&config.LTM.Ledger, "LTM_LEDGER")
	setString(&config.LTM.ChromemGo.StoragePath, "CHROMA_DIR")
	setString(&config.LTM.SQL.DSN, "LTM_SQL_DSN")
	setString(&config.LTM.PgVector.ConnectionString, "PGVECTOR_URL")

	setString(&config.Profile.Provider, "PROFILE_PROVIDER")
	setString(&config.Profile.Apify.Token, "APIFY_API_TOKEN")
	setString(&config.Profile.Apify.ActorID, "APIFY_ACTOR_ID")

	setString(&config.Server.Addr, "ADDR")

	setString(&config.Logging.Level, "LOG_LEVEL")
	setString(&config.Logging.Format, "LOG_FORMAT")
	return nil
}

// validateConfig validates the configuration and fills in defaults.
func validateConfig(config *Config) error {
	// Completion
	if config.Completion.Provider == "" {
		config.Completion.Provider = "openai"
	}
	switch strings.ToLower(config.Completion.Provider) {
	case "openai", "mock":
	default:
		return fmt.Errorf("unsupported completion provider: %s", config.Completion.Provider)
	}
	if config.Completion.BaseURL == "" {
		config.Completion.BaseURL = DefaultCompletionBaseURL
	}
	if config.Completion.Model == "" {
		config.Completion.Model = DefaultChatModel
	}
	if config.Completion.AnalysisMaxTokens <= 0 {
		config.Completion.AnalysisMaxTokens = DefaultAnalysisMaxTokens
	}

	// Embedding
	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "openai"
	}
	switch strings.ToLower(config.Embedding.Provider) {
	case "openai", "mock":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", config.Embedding.Provider)
	}
	if config.Embedding.Model == "" {
		config.Embedding.Model = DefaultEmbeddingModel
	}

	// LTM
	if config.LTM.Type == "" {
		config.LTM.Type = "chromemgo"
	}
	switch strings.ToLower(config.LTM.Type) {
	case "chromemgo":
		if config.LTM.ChromemGo.StoragePath == "" {
			config.LTM.ChromemGo.StoragePath = DefaultChromaDir
		}
		if config.LTM.ChromemGo.CollectionPrefix == "" {
			config.LTM.ChromemGo.CollectionPrefix = DefaultCollectionPrefix
		}
		if err := validateLedger(config); err != nil {
			return err
		}
	case "pgvector":
		if config.LTM.PgVector.ConnectionString == "" {
			return fmt.Errorf("connection string is required for pgvector LTM type")
		}
		if config.LTM.PgVector.TableName == "" {
			config.LTM.PgVector.TableName = DefaultPgVectorTable
		}
		if config.LTM.PgVector.Dimensions <= 0 {
			config.LTM.PgVector.Dimensions = DefaultPgVectorDimensions
		}
		if config.LTM.PgVector.DistanceMetric == "" {
			config.LTM.PgVector.DistanceMetric = "cosine"
		} else {
			metric := strings.ToLower(config.LTM.PgVector.DistanceMetric)
			if metric != "cosine" && metric != "euclidean" && metric != "dot" {
				return fmt.Errorf("unsupported distance metric for pgvector: %s (must be cosine, euclidean, or dot)",
					config.LTM.PgVector.DistanceMetric)
			}
		}
	case "mock", "none":
		// Mock store doesn't require additional validation; none disables memory
	default:
		return fmt.Errorf("unsupported LTM type: %s", config.LTM.Type)
	}

	// Profile
	if config.Profile.Provider == "" {
		config.Profile.Provider = "apify"
	}
	switch strings.ToLower(config.Profile.Provider) {
	case "apify", "mock":
	default:
		return fmt.Errorf("unsupported profile provider: %s", config.Profile.Provider)
	}
	if config.Profile.Apify.ActorID == "" {
		config.Profile.Apify.ActorID = DefaultApifyActorID
	}
	if config.Profile.Apify.BaseURL == "" {
		config.Profile.Apify.BaseURL = DefaultApifyBaseURL
	}

	// Server
	if config.Server.Addr == "" {
		config.Server.Addr = DefaultAddr
	}
	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = DefaultRequestTimeout
	}

	// Logging
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}

	return nil
}

func validateLedger(config *Config) error {
	if config.LTM.Ledger == "" {
		config.LTM.Ledger = "boltdb"
	}
	switch strings.ToLower(config.LTM.Ledger) {
	case "boltdb":
		if config.LTM.BoltDB.Path == "" {
			config.LTM.BoltDB.Path = filepath.Join(config.LTM.ChromemGo.StoragePath, "ledger.bolt")
		}
	case "sql", "sqlstore":
		if config.LTM.SQL.Driver == "" {
			config.LTM.SQL.Driver = "sqlite3"
		}
		switch config.LTM.SQL.Driver {
		case "sqlite3", "postgres":
		default:
			return fmt.Errorf("unsupported sql driver: %s", config.LTM.SQL.Driver)
		}
		if config.LTM.SQL.DSN == "" {
			if config.LTM.SQL.Driver != "sqlite3" {
				return fmt.Errorf("sql DSN is required for the %s ledger", config.LTM.SQL.Driver)
			}
			config.LTM.SQL.DSN = filepath.Join(config.LTM.ChromemGo.StoragePath, "ledger.db")
		}
	default:
		return fmt.Errorf("unsupported LTM ledger: %s", config.LTM.Ledger)
	}
	return nil
}
