package cache

import (
	"testing"
	"time"
)

type payload struct {
	Total float64 `json:"total"`
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(16, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestRoundTrip(t *testing.T) {
	c := newTestCache(t)
	c.Set("est:painting:500", payload{Total: 84000})

	var got payload
	if !c.Get("est:painting:500", time.Hour, &got) {
		t.Fatal("expected hit")
	}
	if got.Total != 84000 {
		t.Errorf("total = %v, want 84000", got.Total)
	}
}

func TestMiss(t *testing.T) {
	c := newTestCache(t)
	var got payload
	if c.Get("est:tiling:200", time.Hour, &got) {
		t.Fatal("expected miss on absent key")
	}
}

func TestExpiry(t *testing.T) {
	c := newTestCache(t)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("est:painting:500", payload{Total: 84000})

	c.now = func() time.Time { return base.Add(59 * time.Minute) }
	var got payload
	if !c.Get("est:painting:500", time.Hour, &got) {
		t.Fatal("entry inside TTL should hit")
	}

	c.now = func() time.Time { return base.Add(61 * time.Minute) }
	if c.Get("est:painting:500", time.Hour, &got) {
		t.Fatal("entry past TTL should miss")
	}
	if c.Len() != 0 {
		t.Error("expired entry should be evicted on read")
	}
}

func TestOverwriteResetsClock(t *testing.T) {
	c := newTestCache(t)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("k", payload{Total: 1})

	c.now = func() time.Time { return base.Add(50 * time.Minute) }
	c.Set("k", payload{Total: 2})

	c.now = func() time.Time { return base.Add(90 * time.Minute) }
	var got payload
	if !c.Get("k", time.Hour, &got) {
		t.Fatal("rewritten entry should be judged from its new timestamp")
	}
	if got.Total != 2 {
		t.Errorf("total = %v, want 2", got.Total)
	}
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	c1, err := New(16, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c1.Set("market:prices", payload{Total: 415})
	c1.Close()

	c2, err := New(16, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c2.Close)

	var got payload
	if !c2.Get("market:prices", time.Hour, &got) {
		t.Fatal("entry should survive restart via snapshot")
	}
	if got.Total != 415 {
		t.Errorf("total = %v, want 415", got.Total)
	}
}

func TestKey(t *testing.T) {
	if got := Key("est", "painting", "500"); got != "est:painting:500" {
		t.Errorf("Key = %q", got)
	}
}
