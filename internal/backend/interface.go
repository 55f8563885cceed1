package backend

import (
	"context"
	"time"

	"relief/internal/sheets"
	"relief/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the store instance and optional cleanup function
type StoreResult struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// ExporterResult contains the spreadsheet exporter
type ExporterResult struct {
	Exporter sheets.Exporter
	Cleanup  CleanupFunc
}

// Factory creates stores and exporters based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	CreateExporter(ctx context.Context, config Config) (*ExporterResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type     BackendType
	DeviceID string

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Read-through cache in front of the store, disabled when CacheSize is 0
	CacheSize int
	CacheTTL  time.Duration

	// Export
	Export                   ExportTarget
	GoogleSpreadsheetID      string
	GoogleDonationsSheet     string
	GoogleTallySheet         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of store backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, RedisBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// ExportTarget selects where the worker mirrors activity.
type ExportTarget string

const (
	ExportMemory ExportTarget = "memory"
	ExportSheets ExportTarget = "sheets"
)
