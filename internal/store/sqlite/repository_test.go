package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"relief/internal/store"
)

func newTestRepo(t *testing.T, deviceID string) (*Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "relief.db")
	repo, err := NewRepository(path, deviceID)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestRepositoryGetSetAndReplace(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t, "phone")

	if _, found, err := repo.Get(ctx, store.KeyDonations, true); err != nil || found {
		t.Fatalf("expected absent, found=%v err=%v", found, err)
	}

	for _, v := range []string{`[{"id":1}]`, `[{"id":1},{"id":2}]`} {
		if err := repo.Set(ctx, store.KeyDonations, v, true); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	v, found, err := repo.Get(ctx, store.KeyDonations, true)
	if err != nil || !found || v != `[{"id":1},{"id":2}]` {
		t.Fatalf("unexpected value %q found=%v err=%v", v, found, err)
	}
}

func TestRepositoryDeviceScope(t *testing.T) {
	ctx := context.Background()
	repo, path := newTestRepo(t, "a")

	if err := repo.Set(ctx, store.KeyUserVotes, `{"1":true}`, false); err != nil {
		t.Fatal(err)
	}

	// Reopening runs migrations again (no change) and sees persisted data.
	other, err := NewRepository(path, "b")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer other.Close()

	if _, found, _ := other.Get(ctx, store.KeyUserVotes, false); found {
		t.Fatalf("device b must not see device a votes")
	}

	same, err := NewRepository(path, "a")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer same.Close()
	if v, found, _ := same.Get(ctx, store.KeyUserVotes, false); !found || v != `{"1":true}` {
		t.Fatalf("expected persisted votes, got %q found=%v", v, found)
	}
}

func TestRepositoryWithMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWithDB(db, "dev")
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("shared", store.KeyProposals, "[]", fixed).
		WillReturnError(errors.New("disk I/O error"))

	if err := repo.Set(ctx, store.KeyProposals, "[]", true); err == nil {
		t.Fatalf("expected write error")
	}

	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("device:dev", store.KeyUserVotes).
		WillReturnError(errors.New("database is locked"))

	if _, _, err := repo.Get(ctx, store.KeyUserVotes, false); err == nil {
		t.Fatalf("expected read error")
	}

	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("shared", store.KeyDonations).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[]`))

	v, found, err := repo.Get(ctx, store.KeyDonations, true)
	if err != nil || !found || v != "[]" {
		t.Fatalf("unexpected get: %q %v %v", v, found, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relief.db")
	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if version != 1 {
			t.Fatalf("run %d: schema version = %d, want 1", i, version)
		}
	}
}
