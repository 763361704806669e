package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ajayprojects/portal/pkg/models"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore("")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProfileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	p := &models.Profile{ID: "c1", FullName: "Ravi Kumar", Phone: "9876543210", Location: "Madhapur", CreatedAt: now, UpdatedAt: now}
	if err := s.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	got, err := s.GetProfile(ctx, "c1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.FullName != "Ravi Kumar" || got.Premium {
		t.Errorf("unexpected profile: %+v", got)
	}

	// Upsert replaces
	p.Premium = true
	if err := s.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	got, _ = s.GetProfile(ctx, "c1")
	if !got.Premium {
		t.Error("upsert should replace the profile")
	}
}

func TestGetProfileNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProfile(context.Background(), "ghost")
	var nf *ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListEstimatesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"e1", "e2", "e3"} {
		err := s.CreateEstimate(ctx, &models.EstimateRecord{
			ID:        id,
			ClientID:  "c1",
			TaskID:    "painting",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateEstimate: %v", err)
		}
	}
	_ = s.CreateEstimate(ctx, &models.EstimateRecord{ID: "other", ClientID: "c2", CreatedAt: base})

	got, err := s.ListEstimates(ctx, "c1", 2)
	if err != nil {
		t.Fatalf("ListEstimates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].ID != "e3" || got[1].ID != "e2" {
		t.Errorf("order = %s, %s; want e3, e2", got[0].ID, got[1].ID)
	}
}

func TestQuotaDefaultsToZeroState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	state, err := s.GetQuota(ctx, "new-client")
	if err != nil {
		t.Fatalf("GetQuota: %v", err)
	}
	if state.ConsumedCount != 0 || state.Upgraded || state.CooldownDeadline != nil {
		t.Errorf("expected zero state, got %+v", state)
	}

	deadline := time.Now().Add(2 * time.Minute)
	if err := s.PutQuota(ctx, "new-client", models.QuotaState{ConsumedCount: 2, CooldownDeadline: &deadline}); err != nil {
		t.Fatalf("PutQuota: %v", err)
	}
	state, _ = s.GetQuota(ctx, "new-client")
	if state.ConsumedCount != 2 || state.CooldownDeadline == nil {
		t.Errorf("state not persisted: %+v", state)
	}
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1 := NewMemoryStore(dir)
	_ = s1.UpsertProfile(ctx, &models.Profile{ID: "c1", FullName: "Ravi"})
	_ = s1.PutQuota(ctx, "c1", models.QuotaState{ConsumedCount: 3})
	_ = s1.Close()

	s2 := NewMemoryStore(dir)
	t.Cleanup(func() { _ = s2.Close() })

	p, err := s2.GetProfile(ctx, "c1")
	if err != nil {
		t.Fatalf("profile lost across restart: %v", err)
	}
	if p.FullName != "Ravi" {
		t.Errorf("profile = %+v", p)
	}
	state, _ := s2.GetQuota(ctx, "c1")
	if state.ConsumedCount != 3 {
		t.Errorf("quota lost across restart: %+v", state)
	}
}
