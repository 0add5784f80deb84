package tle

import (
	"testing"
	"time"
)

func TestCacheWriteAndLoadLatest(t *testing.T) {
	cache := NewCache(t.TempDir(), 5)

	t1 := time.Unix(1700000000, 0)
	t2 := time.Unix(1700000100, 0)

	if err := cache.Write([]byte("older"), t1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := cache.Write([]byte("newer"), t2); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, ts, err := cache.LoadLatest()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(data) != "newer" {
		t.Errorf("data = %q, want %q", data, "newer")
	}
	if !ts.Equal(t2) {
		t.Errorf("timestamp = %v, want %v", ts, t2)
	}
}

func TestCachePrune(t *testing.T) {
	cache := NewCache(t.TempDir(), 2)

	for i := 0; i < 5; i++ {
		ts := time.Unix(int64(1700000000+i*60), 0)
		if err := cache.Write([]byte("data"), ts); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	files, err := cache.listFiles()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files after prune, got %d", len(files))
	}

	// The survivors must be the newest two.
	_, ts, err := cache.LoadLatest()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := time.Unix(1700000240, 0); !ts.Equal(want) {
		t.Errorf("latest timestamp = %v, want %v", ts, want)
	}
}

func TestCacheLoadLatestEmpty(t *testing.T) {
	cache := NewCache(t.TempDir(), 5)
	if _, _, err := cache.LoadLatest(); err == nil {
		t.Fatal("expected error for empty cache, got nil")
	}
}
