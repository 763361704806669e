// Package store provides the storage interface and implementations for the
// estimation portal. The in-memory store with JSON snapshots covers local
// runs and tests; PostgreSQL backs production deployments.
package store

import (
	"context"

	"github.com/ajayprojects/portal/pkg/models"
)

// Store is the primary storage interface. Handler and orchestrator code
// depends on this interface, so the in-memory and PostgreSQL backends are
// interchangeable.
type Store interface {
	ProfileStore
	EstimateStore
	QuotaStore

	// Ping checks if the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// ── Profile Store ───────────────────────────────────────────

type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}

// ── Estimate Store ──────────────────────────────────────────

type EstimateStore interface {
	CreateEstimate(ctx context.Context, rec *models.EstimateRecord) error
	GetEstimate(ctx context.Context, id string) (*models.EstimateRecord, error)
	// ListEstimates returns a client's saved estimates, newest first.
	ListEstimates(ctx context.Context, clientID string, limit int) ([]models.EstimateRecord, error)
}

// ── Quota Store ─────────────────────────────────────────────

type QuotaStore interface {
	// GetQuota returns the client's quota state; a client never seen
	// before gets the zero state, not an error.
	GetQuota(ctx context.Context, clientID string) (models.QuotaState, error)
	PutQuota(ctx context.Context, clientID string, state models.QuotaState) error
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
