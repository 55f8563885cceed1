package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relief/internal/amqp"
	"relief/internal/cache"
	applog "relief/internal/log"
	gsheet "relief/internal/sheets/google"
	sheetmem "relief/internal/sheets/memory"
	"relief/internal/store"
	"relief/internal/store/memory"
	"relief/internal/store/redis"
	"relief/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *StoreResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteStore(config)
	case RedisBackend:
		result, err = f.createRedisStore(ctx, config)
	case MemoryBackend:
		result = f.createMemoryStore(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.CacheSize > 0 {
		result = f.withCache(result, config)
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (*StoreResult, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath, config.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath, applog.FieldDeviceID, config.DeviceID)

	return &StoreResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createRedisStore(ctx context.Context, config Config) (*StoreResult, error) {
	s := redis.New(config.RedisAddr, config.RedisPassword, config.RedisDB, config.DeviceID)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", config.RedisAddr, err)
	}

	f.logger.Info("Initialized Redis store", "addr", config.RedisAddr, "db", config.RedisDB, applog.FieldDeviceID, config.DeviceID)

	return &StoreResult{Store: s, Cleanup: s.Close}, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) *StoreResult {
	f.logger.Info("Initialized memory store", applog.FieldDeviceID, config.DeviceID)
	return &StoreResult{Store: memory.New(config.DeviceID)}
}

func (f *DefaultFactory) withCache(result *StoreResult, config Config) *StoreResult {
	lru := cache.NewLRUCache[string](config.CacheSize, config.CacheTTL)
	manager := cache.NewManager(f.logger.Logger.With(applog.FieldComponent, applog.ComponentCache))
	manager.Register(lru)
	manager.StartCleanup(config.CacheTTL)

	f.logger.Info("Enabled store cache", "size", config.CacheSize, "ttl", config.CacheTTL)

	inner := result.Cleanup
	return &StoreResult{
		Store: store.NewCached(result.Store, lru, config.DeviceID),
		Cleanup: func() error {
			manager.Stop()
			stats := lru.Stats()
			f.logger.Info("Store cache stopped",
				"hits", stats.Hits,
				"misses", stats.Misses,
				"hit_ratio", stats.HitRatio(),
				"evictions", stats.Evictions)
			if inner != nil {
				return inner()
			}
			return nil
		},
	}
}

// CreateExporter implements Factory.CreateExporter
func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (*ExporterResult, error) {
	switch config.Export {
	case ExportSheets:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			DonationsSheet:     config.GoogleDonationsSheet,
			TallySheet:         config.GoogleTallySheet,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		}, f.logger.WithComponent(applog.ComponentSheets))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
		}
		f.logger.Info("Initialized Google Sheets exporter", "spreadsheet_id", config.GoogleSpreadsheetID)
		return &ExporterResult{Exporter: cli}, nil
	case ExportMemory, "":
		f.logger.Info("Initialized memory exporter")
		return &ExporterResult{Exporter: sheetmem.New()}, nil
	default:
		return nil, fmt.Errorf("unsupported export target: %s", config.Export)
	}
}

// CreatePublisher connects to the broker. A nil client with a nil error means
// publishing is disabled.
func (f *DefaultFactory) CreatePublisher(url, exchange, queue string) (*amqp.Client, error) {
	if url == "" {
		f.logger.Info("AMQP disabled, events will not be published")
		return nil, nil
	}
	client, err := amqp.NewClient(url, exchange, queue, f.logger.WithComponent(applog.ComponentAMQP))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	f.logger.Info("Initialized AMQP client", "exchange", exchange, "queue", queue)
	return client, nil
}

// Cleanups runs every non-nil cleanup and joins their errors.
func Cleanups(fns ...CleanupFunc) error {
	var errs []error
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
