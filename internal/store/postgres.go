package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ajayprojects/portal/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresStore implements Store on a pgx connection pool. Estimate inputs
// and results are stored as JSONB so the schema follows the collaborator's
// output without migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, connURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	log.Info().Msg("Postgres store initialized")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS portal_profiles (
			id         TEXT PRIMARY KEY,
			full_name  TEXT NOT NULL DEFAULT '',
			phone      TEXT NOT NULL DEFAULT '',
			location   TEXT NOT NULL DEFAULT '',
			premium    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS portal_estimates (
			id          TEXT PRIMARY KEY,
			client_id   TEXT NOT NULL,
			client_name TEXT NOT NULL DEFAULT '',
			phone       TEXT NOT NULL DEFAULT '',
			task_id     TEXT NOT NULL,
			task_title  TEXT NOT NULL DEFAULT '',
			area        TEXT NOT NULL DEFAULT '',
			inputs      JSONB NOT NULL DEFAULT '{}',
			result      JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_portal_estimates_client ON portal_estimates (client_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS portal_quotas (
			client_id         TEXT PRIMARY KEY,
			consumed_count    INT NOT NULL DEFAULT 0,
			upgraded          BOOLEAN NOT NULL DEFAULT FALSE,
			cooldown_deadline TIMESTAMPTZ
		);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// ── Profile Store ───────────────────────────────────────────

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, full_name, phone, location, premium, created_at, updated_at
		 FROM portal_profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.FullName, &p.Phone, &p.Location, &p.Premium, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "profile", Key: id}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO portal_profiles (id, full_name, phone, location, premium, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			phone = EXCLUDED.phone,
			location = EXCLUDED.location,
			premium = EXCLUDED.premium,
			updated_at = EXCLUDED.updated_at`,
		profile.ID, profile.FullName, profile.Phone, profile.Location,
		profile.Premium, profile.CreatedAt, profile.UpdatedAt)
	return err
}

// ── Estimate Store ──────────────────────────────────────────

func (s *PostgresStore) CreateEstimate(ctx context.Context, rec *models.EstimateRecord) error {
	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO portal_estimates (id, client_id, client_name, phone, task_id, task_title, area, inputs, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.ClientID, rec.ClientName, rec.Phone, rec.TaskID,
		rec.TaskTitle, rec.Area, inputs, result, rec.CreatedAt)
	return err
}

func (s *PostgresStore) GetEstimate(ctx context.Context, id string) (*models.EstimateRecord, error) {
	rec, err := scanEstimate(s.pool.QueryRow(ctx,
		`SELECT id, client_id, client_name, phone, task_id, task_title, area, inputs, result, created_at
		 FROM portal_estimates WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "estimate", Key: id}
	}
	return rec, err
}

func (s *PostgresStore) ListEstimates(ctx context.Context, clientID string, limit int) ([]models.EstimateRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, client_id, client_name, phone, task_id, task_title, area, inputs, result, created_at
		 FROM portal_estimates WHERE client_id = $1
		 ORDER BY created_at DESC LIMIT $2`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.EstimateRecord
	for rows.Next() {
		rec, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func scanEstimate(row pgx.Row) (*models.EstimateRecord, error) {
	var rec models.EstimateRecord
	var inputs, result []byte
	if err := row.Scan(&rec.ID, &rec.ClientID, &rec.ClientName, &rec.Phone, &rec.TaskID,
		&rec.TaskTitle, &rec.Area, &inputs, &result, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(inputs, &rec.Inputs); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal(result, &rec.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &rec, nil
}

// ── Quota Store ─────────────────────────────────────────────

func (s *PostgresStore) GetQuota(ctx context.Context, clientID string) (models.QuotaState, error) {
	var state models.QuotaState
	err := s.pool.QueryRow(ctx,
		`SELECT consumed_count, upgraded, cooldown_deadline
		 FROM portal_quotas WHERE client_id = $1`, clientID,
	).Scan(&state.ConsumedCount, &state.Upgraded, &state.CooldownDeadline)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.QuotaState{}, nil
	}
	return state, err
}

func (s *PostgresStore) PutQuota(ctx context.Context, clientID string, state models.QuotaState) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO portal_quotas (client_id, consumed_count, upgraded, cooldown_deadline)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (client_id) DO UPDATE SET
			consumed_count = EXCLUDED.consumed_count,
			upgraded = EXCLUDED.upgraded,
			cooldown_deadline = EXCLUDED.cooldown_deadline`,
		clientID, state.ConsumedCount, state.Upgraded, state.CooldownDeadline)
	return err
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
