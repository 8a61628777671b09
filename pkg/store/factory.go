package store

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendDynamo = "dynamo"
)

// Config selects and configures a backend.
type Config struct {
	// Backend is one of BackendMemory, BackendSQLite, BackendDynamo.
	Backend string

	// SQLitePath and MigrationsPath configure the sqlite backend.
	SQLitePath     string
	MigrationsPath string

	// DynamoClient configures the dynamo backend.
	DynamoClient DynamoAPI

	Logger *logrus.Logger
}

// New builds the store named by cfg.Backend.
func New(cfg *Config) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	switch cfg.Backend {
	case BackendMemory:
		logger.Info("Using in-memory item store")
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(&SQLiteConfig{
			Path:           cfg.SQLitePath,
			MigrationsPath: cfg.MigrationsPath,
			Logger:         logger,
		})
	case BackendDynamo:
		if cfg.DynamoClient == nil {
			return nil, fmt.Errorf("dynamo backend requires a client")
		}
		return NewDynamoStore(cfg.DynamoClient, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
