package backend

import (
	"context"
	"fmt"
	"time"

	"haushalt/internal/cache"
	gstore "haushalt/internal/kv/google"
	"haushalt/internal/kv/memory"
	rstore "haushalt/internal/kv/redis"
	"haushalt/internal/log"
	"haushalt/internal/storage"
)

// Every Sheets read fetches the whole key column, so reads are cached.
const (
	sheetsCacheSize = 16
	sheetsCacheTTL  = time.Minute
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case RedisBackend:
		return f.createRedisBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Debug("Initialized SQLite backend",
		log.FieldBackend, SQLiteBackend,
		"db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Debug("Initialized memory backend",
		log.FieldBackend, MemoryBackend,
		"data_directory", dataDir)

	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createRedisBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := rstore.New(ctx, rstore.Config{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
		Prefix:   config.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
	}

	f.logger.Debug("Initialized Redis backend",
		log.FieldBackend, RedisBackend,
		"addr", config.RedisAddr,
		"db", config.RedisDB)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := gstore.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Debug("Initialized Google Sheets backend",
		log.FieldBackend, SheetsBackend,
		"sheet", config.GoogleSheetName)

	return &BackendResult{Store: cache.NewStore(store, sheetsCacheSize, sheetsCacheTTL)}, nil
}
