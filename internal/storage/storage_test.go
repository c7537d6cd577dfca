package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"apiguard/internal/compare"
	"apiguard/internal/contract"
)

func setupTestStore(t *testing.T) (*Store, *DB) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), ".apiguard", "apiguard.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return NewStore(db), db
}

func TestDatabaseInitialization(t *testing.T) {
	_, db := setupTestStore(t)

	version, err := schemaVersion(context.Background(), db.conn)
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("Expected schema version %d, got %d", len(migrations), version)
	}

	for _, table := range []string{"snapshots", "changes"} {
		var name string
		err := db.conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apiguard.db")
	ctx := context.Background()

	db, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewStore(db).SaveSnapshot(ctx, "api.go", "h1", []contract.Contract{{Method: contract.MethodGet, Path: "/users"}}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	got, ok, err := NewStore(db).LatestSnapshot(ctx, "api.go")
	if err != nil || !ok {
		t.Fatalf("LatestSnapshot after reopen = %v, %v", ok, err)
	}
	if len(got) != 1 || got[0].Path != "/users" {
		t.Errorf("contracts = %+v", got)
	}
}

func TestSnapshots(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.LatestSnapshot(ctx, "routes.py"); err != nil || ok {
		t.Fatalf("empty store LatestSnapshot = %v, %v", ok, err)
	}

	v1 := []contract.Contract{{
		Method:     contract.MethodPost,
		Path:       "/orders",
		Parameters: []contract.Parameter{{Name: "order", Type: "OrderIn", Required: true, Location: contract.LocationBody}},
		Source:     contract.SourceLocation{File: "routes.py", Line: 4},
	}}
	v2 := append([]contract.Contract{{Method: contract.MethodGet, Path: "/orders/{id}"}}, v1...)

	if err := store.SaveSnapshot(ctx, "routes.py", ContentHash([]byte("v1")), v1); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSnapshot(ctx, "routes.py", ContentHash([]byte("v2")), v2); err != nil {
		t.Fatal(err)
	}

	got, ok, err := store.LatestSnapshot(ctx, "routes.py")
	if err != nil || !ok {
		t.Fatalf("LatestSnapshot = %v, %v", ok, err)
	}
	if !reflect.DeepEqual(got, v2) {
		t.Errorf("latest = %+v\nwant %+v", got, v2)
	}

	if _, ok, _ := store.LatestSnapshot(ctx, "other.py"); ok {
		t.Error("snapshots must be per file")
	}
}

func TestSaveSnapshot_SameHashIsNoop(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()
	hash := ContentHash([]byte("package api"))

	for i := 0; i < 3; i++ {
		if err := store.SaveSnapshot(ctx, "api.go", hash, nil); err != nil {
			t.Fatal(err)
		}
	}

	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}

	got, ok, err := store.LatestSnapshot(ctx, "api.go")
	if err != nil || !ok || got == nil || len(got) != 0 {
		t.Errorf("an empty snapshot is still a snapshot: %v %v %v", got, ok, err)
	}
}

func TestChanges(t *testing.T) {
	store, _ := setupTestStore(t)
	store.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	changes := compare.Compare(
		[]contract.Contract{{Method: contract.MethodGet, Path: "/legacy"}},
		[]contract.Contract{{Method: contract.MethodPost, Path: "/orders"}},
	)
	runID := NewRunID()

	if err := store.SaveChanges(ctx, runID, "api.go", changes); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveChanges(ctx, NewRunID(), "api.go", changes[:1]); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveChanges(ctx, runID, "empty.go", nil); err != nil {
		t.Fatal(err)
	}

	records, err := store.ListChanges(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != len(changes) {
		t.Fatalf("records = %d, want %d", len(records), len(changes))
	}
	for i, rec := range records {
		if rec.RunID != runID || rec.File != "api.go" {
			t.Errorf("record %d = %+v", i, rec)
		}
		if !reflect.DeepEqual(rec.Change, changes[i]) {
			t.Errorf("record %d change = %+v\nwant %+v", i, rec.Change, changes[i])
		}
		if !rec.CreatedAt.Equal(store.now()) {
			t.Errorf("CreatedAt = %v", rec.CreatedAt)
		}
	}

	none, err := store.ListChanges(ctx, "no-such-run")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("unknown run = %v, %v", none, err)
	}
}

func TestLatestRunID(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.LatestRunID(ctx); ok || err != nil {
		t.Fatalf("empty store = %v, %v", ok, err)
	}

	changes := compare.Compare(nil, []contract.Contract{{Method: contract.MethodGet, Path: "/a"}})
	first, second := NewRunID(), NewRunID()
	_ = store.SaveChanges(ctx, first, "a.go", changes)
	_ = store.SaveChanges(ctx, second, "a.go", changes)

	got, ok, err := store.LatestRunID(ctx)
	if err != nil || !ok || got != second {
		t.Errorf("LatestRunID = %q, %v, %v; want %q", got, ok, err, second)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO snapshots (file, content_hash, contracts_json, created_at) VALUES ('x', 'h', '[]', '')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}
	if _, ok, _ := store.LatestSnapshot(ctx, "x"); ok {
		t.Error("rolled back insert is visible")
	}
}

func TestRunIDAndHash(t *testing.T) {
	if a, b := NewRunID(), NewRunID(); a == b || len(a) != 36 {
		t.Errorf("run ids %q %q", a, b)
	}
	if ContentHash([]byte("a")) == ContentHash([]byte("b")) {
		t.Error("different content, same hash")
	}
	if h := ContentHash(nil); len(h) != 16 {
		t.Errorf("hash %q should be 16 hex digits", h)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apiguard.db")
	db, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.conn.Exec(`PRAGMA user_version = 99`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if db, err := Open(path, nil); err == nil {
		db.Close()
		t.Fatal("Open should refuse a schema from a newer release")
	}
}
