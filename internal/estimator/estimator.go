// Package estimator orchestrates an estimate request end to end: input
// validation, the quota gate, the response cache, the retried collaborator
// call, persistence, and the lead notification.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ajayprojects/portal/internal/cache"
	"github.com/ajayprojects/portal/internal/catalog"
	"github.com/ajayprojects/portal/internal/forms"
	"github.com/ajayprojects/portal/internal/notify"
	"github.com/ajayprojects/portal/internal/quota"
	"github.com/ajayprojects/portal/internal/store"
	"github.com/ajayprojects/portal/pkg/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrQuotaExceeded is returned when a guest has used all free estimates.
var ErrQuotaExceeded = errors.New("estimator: free estimate limit reached")

// UnknownTaskError is returned for a task id outside the catalog.
type UnknownTaskError struct {
	TaskID string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q", e.TaskID)
}

// Generator is the collaborator call the orchestrator retries.
type Generator interface {
	GenerateEstimate(ctx context.Context, task models.TaskConfig, inputs models.FormInputs) (*models.EstimationResult, error)
}

// Classifier buckets a collaborator failure for the retry schedule.
type Classifier func(error) Class

// Class mirrors the collaborator error taxonomy.
type Class int

const (
	ClassPermanent Class = iota
	ClassTransient
	ClassRateLimited
)

// Request is one estimate submission.
type Request struct {
	ClientID string
	TaskID   string
	Inputs   models.FormInputs
}

// Result is the orchestrator's answer.
type Result struct {
	Record *models.EstimateRecord
	Cached bool
}

// Estimator runs estimate requests.
type Estimator struct {
	catalog  *catalog.Catalog
	cache    *cache.Cache
	client   Generator
	classify Classifier
	store    store.Store
	notifier *notify.Service

	cacheTTL  time.Duration
	freeLimit int

	// Injected for tests.
	newBackoff func() backoff.BackOff
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

const maxAttempts = 3

// New wires the orchestrator. classify may be nil, in which case every
// failure is treated as transient.
func New(cat *catalog.Catalog, c *cache.Cache, client Generator, classify Classifier,
	st store.Store, notifier *notify.Service, cacheTTL time.Duration, freeLimit int) *Estimator {
	if classify == nil {
		classify = func(error) Class { return ClassTransient }
	}
	return &Estimator{
		catalog:    cat,
		cache:      c,
		client:     client,
		classify:   classify,
		store:      st,
		notifier:   notifier,
		cacheTTL:   cacheTTL,
		freeLimit:  freeLimit,
		newBackoff: defaultBackoff,
		sleep:      sleepCtx,
		now:        time.Now,
	}
}

// defaultBackoff is the retry schedule: 400ms growing by 1.5x, no jitter
// so the schedule is reproducible.
func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 400 * time.Millisecond
	b.Multiplier = 1.5
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// RequestEstimate validates the submission, enforces the quota gate, and
// returns a quote from cache or from the collaborator. Cache hits do not
// consume quota.
func (e *Estimator) RequestEstimate(ctx context.Context, req Request) (*Result, error) {
	task, ok := e.catalog.Get(req.TaskID)
	if !ok {
		return nil, &UnknownTaskError{TaskID: req.TaskID}
	}
	if err := forms.ValidateContact(req.Inputs); err != nil {
		return nil, err
	}
	inputs := forms.Prune(task, req.Inputs)

	state, err := e.store.GetQuota(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load quota: %w", err)
	}
	if !quota.CanRequest(state, e.freeLimit) {
		return nil, ErrQuotaExceeded
	}

	key := cache.Key("est", req.TaskID, dominantSize(task, inputs))

	var cached models.EstimationResult
	if e.cache != nil && e.cache.Get(key, e.cacheTTL, &cached) {
		rec := e.record(req, task, inputs, &cached)
		e.persist(ctx, rec)
		log.Info().Str("task", req.TaskID).Str("key", key).Msg("Estimate served from cache")
		return &Result{Record: rec, Cached: true}, nil
	}

	result, err := e.callWithRetry(ctx, task, inputs)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(key, result)
	}
	rec := e.record(req, task, inputs, result)
	e.persist(ctx, rec)

	state = quota.RecordConsumption(state)
	if err := e.store.PutQuota(ctx, req.ClientID, state); err != nil {
		log.Error().Err(err).Str("client_id", req.ClientID).Msg("Failed to persist quota")
	}

	if e.notifier != nil {
		go e.notifier.Publish(context.Background(), models.LeadEvent{
			Kind:       models.EventQuoteRequested,
			ClientName: inputs["clientName"],
			Phone:      inputs["clientPhone"],
			Location:   inputs["area_location"],
			Task:       task.Title,
			Total:      result.TotalEstimatedCost,
			Inputs:     inputs,
		})
	}

	return &Result{Record: rec, Cached: false}, nil
}

// callWithRetry makes up to maxAttempts collaborator calls. Permanent
// failures propagate immediately; rate-limited failures wait double the
// scheduled interval.
func (e *Estimator) callWithRetry(ctx context.Context, task models.TaskConfig, inputs models.FormInputs) (*models.EstimationResult, error) {
	bo := e.newBackoff()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := e.client.GenerateEstimate(ctx, task, inputs)
		if err == nil {
			return result, nil
		}
		lastErr = err

		class := e.classify(err)
		if class == ClassPermanent {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		if class == ClassRateLimited {
			wait *= 2
		}
		log.Warn().Err(err).
			Str("task", task.ID).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("Estimate call failed, retrying")
		if err := e.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("estimate failed after %d attempts: %w", maxAttempts, lastErr)
}

func (e *Estimator) record(req Request, task models.TaskConfig, inputs models.FormInputs, result *models.EstimationResult) *models.EstimateRecord {
	return &models.EstimateRecord{
		ID:         uuid.NewString(),
		ClientID:   req.ClientID,
		ClientName: inputs["clientName"],
		Phone:      inputs["clientPhone"],
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		Area:       dominantSize(task, inputs),
		Inputs:     inputs,
		Result:     *result,
		CreatedAt:  e.now().UTC(),
	}
}

// persist saves the record; a storage failure degrades the ledger, not the
// quote.
func (e *Estimator) persist(ctx context.Context, rec *models.EstimateRecord) {
	if err := e.store.CreateEstimate(ctx, rec); err != nil {
		log.Error().Err(err).Str("estimate_id", rec.ID).Msg("Failed to persist estimate")
	}
}

// QuoteRef renders the short human-facing reference for a saved estimate.
func QuoteRef(id string) string {
	clean := strings.ReplaceAll(id, "-", "")
	if len(clean) > 6 {
		clean = clean[:6]
	}
	return "#AJ-" + strings.ToUpper(clean)
}

// dominantSize picks the value that most determines the quote's scale: the
// first filled number field of the task. It keys the cache so two quotes
// for different sizes never collide.
func dominantSize(task models.TaskConfig, inputs models.FormInputs) string {
	for _, f := range task.Fields {
		if f.Kind != models.FieldNumber {
			continue
		}
		if v := inputs[f.Name]; v != "" {
			return v
		}
	}
	return "na"
}
