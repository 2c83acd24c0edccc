package backend

import (
	"context"

	"haushalt/internal/kv"
)

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// BackendResult contains the store and an optional cleanup function
type BackendResult struct {
	Store   kv.Store
	Cleanup CleanupFunc
}

// Close runs Cleanup when one is set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a store based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Google Sheets specific; credentials are read from the environment
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Memory backend seed directory
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
	RedisBackend  BackendType = "redis"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend, RedisBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
