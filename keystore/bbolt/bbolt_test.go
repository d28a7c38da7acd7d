package bbolt

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/quicksandd/mirror/keystore"
)

func openTestStore(t *testing.T, opts ...keystore.Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.db")
	s, err := NewStoreFromFile(path, nil, opts...)
	if err != nil {
		t.Fatalf("NewStoreFromFile failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func testKey(b byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = b
	}
	return k
}

func TestPutGetRemove(t *testing.T) {
	s, _ := openTestStore(t)
	key := testKey(0x42)

	if err := s.Put("report-1", key); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get("report-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != key {
		t.Error("Get returned a different key than Put stored")
	}

	if err := s.Remove("report-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := s.Get("report-1"); !errors.Is(err, keystore.ErrNotFound) {
		t.Errorf("expected ErrNotFound after Remove, got %v", err)
	}
	if err := s.Remove("report-1"); !errors.Is(err, keystore.ErrNotFound) {
		t.Errorf("expected ErrNotFound removing twice, got %v", err)
	}
}

func TestTTLExpiryEvicts(t *testing.T) {
	now := time.Now()
	current := now
	s, _ := openTestStore(t, keystore.WithClock(func() time.Time { return current }))

	if err := s.Put("report-1", testKey(1)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	current = now.Add(29 * 24 * time.Hour)
	if _, err := s.Get("report-1"); err != nil {
		t.Errorf("entry at 29 days should still be returned, got %v", err)
	}

	current = now.Add(31 * 24 * time.Hour)
	if _, err := s.Get("report-1"); !errors.Is(err, keystore.ErrNotFound) {
		t.Errorf("entry at 31 days should be treated as absent, got %v", err)
	}

	ids, err := s.ListIDs()
	if err != nil {
		t.Fatalf("ListIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expired entry should have been deleted from the db, got %v", ids)
	}
}

func TestListIDsAndClear(t *testing.T) {
	s, _ := openTestStore(t)
	for _, id := range []string{"a", "b"} {
		if err := s.Put(id, testKey(9)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	ids, err := s.ListIDs()
	if err != nil {
		t.Fatalf("ListIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %v", ids)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	ids, _ = s.ListIDs()
	if len(ids) != 0 {
		t.Errorf("expected empty store after Clear, got %v", ids)
	}

	// The bucket must still accept writes after Clear.
	if err := s.Put("c", testKey(3)); err != nil {
		t.Errorf("Put after Clear failed: %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.db")
	s, err := NewStoreFromFile(path, nil)
	if err != nil {
		t.Fatalf("NewStoreFromFile failed: %v", err)
	}
	key := testKey(7)
	if err := s.Put("report-1", key); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewStoreFromFile(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get("report-1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got != key {
		t.Error("key did not survive a close/reopen cycle")
	}
}
