// Package store — in-memory Store implementation.
// Used when PostgreSQL is not configured (local dev, tests).
// Supports file-based snapshot persistence so data survives restarts.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ajayprojects/portal/pkg/models"
	"github.com/rs/zerolog/log"
)

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	Profiles  map[string]*models.Profile        `json:"profiles"`
	Estimates map[string]*models.EstimateRecord `json:"estimates"`
	Quotas    map[string]models.QuotaState      `json:"quotas"` // key: client_id
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu        sync.RWMutex
	profiles  map[string]*models.Profile
	estimates map[string]*models.EstimateRecord
	quotas    map[string]models.QuotaState

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{}
}

// NewMemoryStore creates a new in-memory store. A non-empty dataDir enables
// JSON snapshot persistence in that directory.
func NewMemoryStore(dataDir string) *MemoryStore {
	m := &MemoryStore{
		profiles:  make(map[string]*models.Profile),
		estimates: make(map[string]*models.EstimateRecord),
		quotas:    make(map[string]models.QuotaState),
		saveCh:    make(chan struct{}, 1),
		doneCh:    make(chan struct{}),
	}

	if dataDir != "" {
		m.snapshotPath = filepath.Join(dataDir, "data.json")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
			m.snapshotPath = ""
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("Memory store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

// saveLoop runs in a goroutine, debouncing save requests.
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond) // debounce
			m.saveSnapshot()
		}
	}
}

func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		Profiles:  m.profiles,
		Estimates: m.estimates,
		Quotas:    m.quotas,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Write to temp file then rename for atomicity
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to rename snapshot")
		return
	}

	log.Debug().Str("path", m.snapshotPath).Msg("Snapshot saved")
}

func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("No snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to parse snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Profiles != nil {
		m.profiles = snap.Profiles
	}
	if snap.Estimates != nil {
		m.estimates = snap.Estimates
	}
	if snap.Quotas != nil {
		m.quotas = snap.Quotas
	}

	log.Info().
		Int("profiles", len(m.profiles)).
		Int("estimates", len(m.estimates)).
		Int("quotas", len(m.quotas)).
		Str("path", m.snapshotPath).
		Msg("Snapshot loaded")
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close stops the save goroutine and forces a final snapshot write.
// Safe to call multiple times.
func (m *MemoryStore) Close() error {
	select {
	case <-m.doneCh:
		return nil
	default:
		close(m.doneCh)
	}

	if m.snapshotPath != "" {
		m.saveSnapshot()
	}
	log.Info().Msg("Memory store closed")
	return nil
}

// ── Profile Store ───────────────────────────────────────────

func (m *MemoryStore) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "profile", Key: id}
	}
	copy := *p
	return &copy, nil
}

func (m *MemoryStore) UpsertProfile(_ context.Context, profile *models.Profile) error {
	m.mu.Lock()
	copy := *profile
	m.profiles[profile.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Estimate Store ──────────────────────────────────────────

func (m *MemoryStore) CreateEstimate(_ context.Context, rec *models.EstimateRecord) error {
	m.mu.Lock()
	copy := *rec
	m.estimates[rec.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) GetEstimate(_ context.Context, id string) (*models.EstimateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.estimates[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "estimate", Key: id}
	}
	copy := *r
	return &copy, nil
}

func (m *MemoryStore) ListEstimates(_ context.Context, clientID string, limit int) ([]models.EstimateRecord, error) {
	m.mu.RLock()
	var result []models.EstimateRecord
	for _, r := range m.estimates {
		if r.ClientID == clientID {
			result = append(result, *r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ── Quota Store ─────────────────────────────────────────────

func (m *MemoryStore) GetQuota(_ context.Context, clientID string) (models.QuotaState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quotas[clientID], nil
}

func (m *MemoryStore) PutQuota(_ context.Context, clientID string, state models.QuotaState) error {
	m.mu.Lock()
	m.quotas[clientID] = state
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
