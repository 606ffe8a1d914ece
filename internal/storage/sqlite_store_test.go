package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	if err := store.Put(context.Background(), "progress:v1:key-a", []byte(`{"v":1}`), time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, ok, err := store.Get(context.Background(), "progress:v1:key-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("value should be present")
	}
	if string(value) != `{"v":1}` {
		t.Fatalf("value: got %s", value)
	}
}

func TestGetMissing(t *testing.T) {
	store := newSQLiteStore(t)
	_, ok, err := store.Get(context.Background(), "progress:v1:never-written")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("missing key should report ok=false")
	}
}

func TestPutReplaces(t *testing.T) {
	store := newSQLiteStore(t)
	if err := store.Put(context.Background(), "progress:v1:key-a", []byte(`{"v":1}`), time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(context.Background(), "progress:v1:key-a", []byte(`{"v":2}`), time.Hour); err != nil {
		t.Fatalf("second put: %v", err)
	}
	value, ok, err := store.Get(context.Background(), "progress:v1:key-a")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(value) != `{"v":2}` {
		t.Fatalf("value not replaced: got %s", value)
	}
}

func TestExpiredLooksMissing(t *testing.T) {
	store := newSQLiteStore(t)
	base := time.Now()
	store.now = func() time.Time { return base }
	if err := store.Put(context.Background(), "progress:v1:key-a", []byte(`{"v":1}`), time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok, err := store.Get(context.Background(), "progress:v1:key-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expired key should report ok=false")
	}
}

func TestPutRestartsRetention(t *testing.T) {
	store := newSQLiteStore(t)
	base := time.Now()
	store.now = func() time.Time { return base }
	if err := store.Put(context.Background(), "progress:v1:key-a", []byte(`{"v":1}`), time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	store.now = func() time.Time { return base.Add(50 * time.Second) }
	if err := store.Put(context.Background(), "progress:v1:key-a", []byte(`{"v":2}`), time.Minute); err != nil {
		t.Fatalf("second put: %v", err)
	}
	store.now = func() time.Time { return base.Add(100 * time.Second) }
	_, ok, err := store.Get(context.Background(), "progress:v1:key-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("rewrite should have extended the retention window")
	}
}

func TestPutSweepsExpiredRows(t *testing.T) {
	store := newSQLiteStore(t)
	base := time.Now()
	store.now = func() time.Time { return base }
	if err := store.Put(context.Background(), "progress:v1:stale", []byte(`{"v":1}`), time.Minute); err != nil {
		t.Fatalf("put stale: %v", err)
	}
	store.now = func() time.Time { return base.Add(time.Hour) }
	if err := store.Put(context.Background(), "progress:v1:fresh", []byte(`{"v":2}`), time.Minute); err != nil {
		t.Fatalf("put fresh: %v", err)
	}
	var count int
	row := store.db.QueryRow("SELECT COUNT(*) FROM sync_state")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expired rows should be swept on write: got %d rows", count)
	}
}

func TestPutRejectsBadTTL(t *testing.T) {
	store := newSQLiteStore(t)
	if err := store.Put(context.Background(), "progress:v1:key-a", []byte(`{}`), 0); err == nil {
		t.Fatalf("zero ttl should be rejected")
	}
	if err := store.Put(context.Background(), "", []byte(`{}`), time.Hour); err == nil {
		t.Fatalf("empty key should be rejected")
	}
}
