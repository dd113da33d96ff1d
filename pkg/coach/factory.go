package coach

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexlapax/careercoach/pkg/config"
	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/mem/ltm"
	"github.com/lexlapax/careercoach/pkg/mem/ltm/adapters/kv/boltdb"
	ltmMock "github.com/lexlapax/careercoach/pkg/mem/ltm/adapters/mock"
	"github.com/lexlapax/careercoach/pkg/mem/ltm/adapters/sqlstore"
	"github.com/lexlapax/careercoach/pkg/mem/ltm/adapters/vector/chromem_go"
	"github.com/lexlapax/careercoach/pkg/mem/ltm/adapters/vector/pgvector"
	"github.com/lexlapax/careercoach/pkg/mmu"
	"github.com/lexlapax/careercoach/pkg/profile"
	"github.com/lexlapax/careercoach/pkg/profile/adapters/apify"
	profileMock "github.com/lexlapax/careercoach/pkg/profile/adapters/mock"
	"github.com/lexlapax/careercoach/pkg/reasoning"
	reasoningMock "github.com/lexlapax/careercoach/pkg/reasoning/adapters/mock"
	reasoningOpenAI "github.com/lexlapax/careercoach/pkg/reasoning/adapters/openai"

	bolt "go.etcd.io/bbolt"
)

// MockAnalysisReply is what the mock completion provider answers.
const MockAnalysisReply = "The profile shows solid engineering experience but little quantified impact.\n" +
	`{"match_score": 62, "recommendations": ["Quantify the impact of recent projects", "Add role-specific keywords to the headline", "List the core tools used in each position", "Highlight cross-functional collaboration", "Add a short summary of leadership experience"], ` +
	`"rewritten_sections": {"headline": "Software Engineer | Backend Services | Developer Tooling", "about": "Engineer who builds reliable backend services and internal tools.", "experience": ["Built internal services used by several teams", "Improved deployment tooling for faster releases"]}, ` +
	`"notes": "Mock analysis."}`

// Closer releases the resources opened by NewFromConfig.
type Closer func() error

// NewFromConfig builds every service handle described by cfg. Missing
// completion credentials leave the service without a completer; a memory
// backend that cannot be opened disables memory with a warning. The
// returned Closer must be called on shutdown.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Service, Closer, error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return stderrors.Join(errs...)
	}

	completer, err := initCompleter(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize completion service: %w", err)
	}

	embedder, err := initEmbedder(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedding service: %w", err)
	}

	fetcher, err := initFetcher(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize profile fetcher: %w", err)
	}

	var memory mmu.MMU = mmu.Disabled()
	store, storeClosers, err := initLTMStore(ctx, cfg)
	switch {
	case err != nil:
		log.Warn("Long-term memory unavailable, continuing without memory", "type", cfg.LTM.Type, "error", err)
	case store == nil:
		log.Info("Long-term memory disabled by configuration")
	case embedder == nil:
		log.Warn("No embedding service configured, continuing without memory")
		closers = append(closers, storeClosers...)
	default:
		closers = append(closers, storeClosers...)
		memory = mmu.NewMMU(store, embedder)
	}

	service := NewService(fetcher, completer, memory, Config{
		AnalysisMaxTokens: cfg.Completion.AnalysisMaxTokens,
	})

	log.Info("Career coach initialized from config",
		"completion_provider", cfg.Completion.Provider,
		"completion_available", completer != nil,
		"embedding_provider", cfg.Embedding.Provider,
		"ltm_type", cfg.LTM.Type,
		"memory_enabled", memory.Enabled(),
		"profile_provider", cfg.Profile.Provider,
	)

	return service, closeAll, nil
}

// initCompleter returns nil, not an error, when no API key is configured.
func initCompleter(cfg *config.Config) (reasoning.Completer, error) {
	switch strings.ToLower(cfg.Completion.Provider) {
	case "mock":
		log.Info("Using mock completion service")
		return reasoningMock.NewMockEngine(reasoningMock.WithDefaultResponse(MockAnalysisReply)), nil
	case "openai", "":
		if cfg.Completion.APIKey == "" {
			log.Warn("Completion API key not set; analysis is unavailable and chat answers with a fixed reply")
			return nil, nil
		}
		adapter, err := reasoningOpenAI.NewOpenAIAdapter(reasoningOpenAI.Config{
			APIKey:    cfg.Completion.APIKey,
			BaseURL:   cfg.Completion.BaseURL,
			ChatModel: cfg.Completion.Model,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Using OpenAI-compatible completion service",
			"base_url", cfg.Completion.BaseURL,
			"model", cfg.Completion.Model)
		return adapter, nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Completion.Provider)
	}
}

// initEmbedder returns nil, not an error, when no API key is configured.
func initEmbedder(cfg *config.Config) (reasoning.Embedder, error) {
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "mock":
		log.Info("Using mock embedding service")
		return reasoningMock.NewMockEngine(), nil
	case "openai", "":
		if cfg.Embedding.APIKey == "" {
			log.Warn("Embedding API key not set")
			return nil, nil
		}
		adapter, err := reasoningOpenAI.NewOpenAIAdapter(reasoningOpenAI.Config{
			APIKey:         cfg.Embedding.APIKey,
			BaseURL:        cfg.Embedding.BaseURL,
			EmbeddingModel: cfg.Embedding.Model,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Using OpenAI-compatible embedding service", "model", cfg.Embedding.Model)
		return adapter, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func initFetcher(cfg *config.Config) (profile.Fetcher, error) {
	switch strings.ToLower(cfg.Profile.Provider) {
	case "mock":
		log.Info("Using mock profile fetcher")
		return profileMock.NewMockFetcher(nil), nil
	case "apify", "":
		if cfg.Profile.Apify.Token == "" {
			log.Warn("Apify token not set; profile analysis will fail until it is configured")
		}
		return apify.New(apify.Config{
			Token:   cfg.Profile.Apify.Token,
			ActorID: cfg.Profile.Apify.ActorID,
			BaseURL: cfg.Profile.Apify.BaseURL,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported profile provider: %s", cfg.Profile.Provider)
	}
}

// initLTMStore opens the configured memory backend. A nil store with a nil
// error means memory is switched off.
func initLTMStore(ctx context.Context, cfg *config.Config) (ltm.Store, []func() error, error) {
	ltmType := strings.ToLower(cfg.LTM.Type)
	log.Info("Initializing LTM store", "type", ltmType)

	switch ltmType {
	case "none":
		return nil, nil, nil

	case "mock":
		log.Info("Using mock LTM store")
		return ltmMock.NewMockStore(), nil, nil

	case "pgvector":
		adapter, err := pgvector.NewPgvectorAdapter(ctx, pgvector.PgvectorConfig{
			ConnectionString: cfg.LTM.PgVector.ConnectionString,
			TableName:        cfg.LTM.PgVector.TableName,
			DimensionSize:    cfg.LTM.PgVector.Dimensions,
			DistanceMetric:   cfg.LTM.PgVector.DistanceMetric,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgvector adapter: %w", err)
		}
		return adapter, []func() error{func() error { adapter.Close(); return nil }}, nil

	case "chromemgo", "":
		index, err := chromem_go.NewChromemGoIndexWithConfig(chromem_go.Config{
			StoragePath:      cfg.LTM.ChromemGo.StoragePath,
			Compress:         cfg.LTM.ChromemGo.Compress,
			CollectionPrefix: cfg.LTM.ChromemGo.CollectionPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		ledger, closer, err := initLedger(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return ltm.NewCompositeStore(index, ledger), []func() error{closer}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported LTM store type: %s", ltmType)
	}
}

func initLedger(ctx context.Context, cfg *config.Config) (ltm.Ledger, func() error, error) {
	switch strings.ToLower(cfg.LTM.Ledger) {
	case "boltdb", "":
		dbPath := cfg.LTM.BoltDB.Path
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create directory for BoltDB: %w", err)
		}
		log.Info("Using BoltDB ledger", "path", dbPath)
		db, err := bolt.Open(dbPath, 0600, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open BoltDB database: %w", err)
		}
		ledger := boltdb.NewBoltLedger(db)
		if err := ledger.Initialize(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize BoltDB ledger: %w", err)
		}
		return ledger, db.Close, nil

	case "sql", "sqlstore":
		driver := cfg.LTM.SQL.Driver
		if driver == sqlstore.DriverSQLite {
			if err := os.MkdirAll(filepath.Dir(cfg.LTM.SQL.DSN), 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create directory for SQLite DB: %w", err)
			}
		}
		log.Info("Using SQL ledger", "driver", driver)
		db, err := sqlstore.Open(driver, cfg.LTM.SQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		return sqlstore.NewSQLLedger(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported LTM ledger: %s", cfg.LTM.Ledger)
	}
}
