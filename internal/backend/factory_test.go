package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relief/internal/config"
	applog "relief/internal/log"
	sheetmem "relief/internal/sheets/memory"
	"relief/internal/store"
	"relief/internal/store/memory"
	"relief/internal/store/sqlite"
)

func TestFromAppConfig(t *testing.T) {
	cfg := config.Load()
	cfg.StoreBackend = config.BackendSQLite
	cfg.SQLiteDBPath = "/tmp/x.db"
	cfg.DeviceID = "phone"
	cfg.CacheSize = 16

	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, bc.Type)
	assert.Equal(t, "phone", bc.DeviceID)
	assert.Equal(t, "/tmp/x.db", bc.SQLiteDBPath)
	assert.Equal(t, 16, bc.CacheSize)
	assert.Equal(t, ExportMemory, bc.Export)

	cfg.StoreBackend = "postgres"
	_, err = FromAppConfig(cfg)
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, DeviceID: "local"}, false},
		{"bad type", Config{Type: "ftp", DeviceID: "local"}, true},
		{"bad device", Config{Type: MemoryBackend, DeviceID: "a:b"}, true},
		{"sqlite without path", Config{Type: SQLiteBackend, DeviceID: "local"}, true},
		{"redis without addr", Config{Type: RedisBackend, DeviceID: "local"}, true},
		{"cache without ttl", Config{Type: MemoryBackend, DeviceID: "local", CacheSize: 4}, true},
		{"cache", Config{Type: MemoryBackend, DeviceID: "local", CacheSize: 4, CacheTTL: time.Second}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateMemoryStore(t *testing.T) {
	f := NewFactory(applog.Discard())
	res, err := f.CreateStore(context.Background(), Config{Type: MemoryBackend, DeviceID: "local"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Store)
	assert.Nil(t, res.Cleanup)
}

func TestCreateSQLiteStoreWithCache(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)
	res, err := f.CreateStore(ctx, Config{
		Type:         SQLiteBackend,
		DeviceID:     "local",
		SQLiteDBPath: filepath.Join(t.TempDir(), "relief.db"),
		CacheSize:    8,
		CacheTTL:     time.Minute,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Cleanup)
	assert.IsType(t, &store.Cached{}, res.Store)

	require.NoError(t, res.Store.Set(ctx, store.KeyDonations, `[]`, true))
	v, found, err := res.Store.Get(ctx, store.KeyDonations, true)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[]`, v)

	assert.NoError(t, res.Cleanup())
}

func TestCreateSQLiteStoreUncached(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateStore(context.Background(), Config{
		Type:         SQLiteBackend,
		DeviceID:     "local",
		SQLiteDBPath: filepath.Join(t.TempDir(), "relief.db"),
	})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Repository{}, res.Store)
	assert.NoError(t, res.Cleanup())
}

func TestCreateRedisStoreUnreachable(t *testing.T) {
	f := NewFactory(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := f.CreateStore(ctx, Config{Type: RedisBackend, DeviceID: "local", RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestCreateExporter(t *testing.T) {
	f := NewFactory(nil)

	res, err := f.CreateExporter(context.Background(), Config{Export: ExportMemory})
	require.NoError(t, err)
	assert.IsType(t, &sheetmem.Store{}, res.Exporter)

	_, err = f.CreateExporter(context.Background(), Config{Export: ExportSheets})
	assert.Error(t, err, "sheets export without a spreadsheet id")

	_, err = f.CreateExporter(context.Background(), Config{Export: "s3"})
	assert.Error(t, err)
}

func TestCreatePublisherDisabled(t *testing.T) {
	client, err := NewFactory(nil).CreatePublisher("", "relief", "relief_events")
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestCleanupsJoinsErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	calls := 0
	err := Cleanups(
		func() error { calls++; return errA },
		nil,
		func() error { calls++; return nil },
		func() error { calls++; return errB },
	)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.NoError(t, Cleanups())
}
