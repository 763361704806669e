// Package handlers implements the HTTP handlers for the estimation portal.
// All state flows through the Store interface and the orchestrator; handlers
// stay thin and map domain errors onto HTTP statuses.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ajayprojects/portal/internal/api/middleware"
	"github.com/ajayprojects/portal/internal/catalog"
	"github.com/ajayprojects/portal/internal/chat"
	"github.com/ajayprojects/portal/internal/config"
	"github.com/ajayprojects/portal/internal/estimator"
	"github.com/ajayprojects/portal/internal/forms"
	"github.com/ajayprojects/portal/internal/notify"
	"github.com/ajayprojects/portal/internal/pricing"
	"github.com/ajayprojects/portal/internal/quota"
	"github.com/ajayprojects/portal/internal/store"
	"github.com/ajayprojects/portal/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Invoice terms surfaced on the invoice payload.
const (
	quoteValidityDays = 15
	advancePercent    = 5
)

// retryMessage is what callers see when the collaborator stays unavailable.
const retryMessage = "I'm experiencing a high load. Please try again shortly."

// Handlers holds all handler dependencies.
type Handlers struct {
	Store     store.Store
	Estimator *estimator.Estimator
	Pricing   *pricing.Service
	Chat      *chat.Manager
	Notifier  *notify.Service
	Watcher   *quota.Watcher
	Catalog   *catalog.Catalog
	Quota     config.QuotaConfig
}

// New creates a Handlers instance with all dependencies.
func New(s store.Store, est *estimator.Estimator, pr *pricing.Service, cm *chat.Manager,
	n *notify.Service, w *quota.Watcher, cat *catalog.Catalog, qc config.QuotaConfig) *Handlers {
	return &Handlers{
		Store:     s,
		Estimator: est,
		Pricing:   pr,
		Chat:      cm,
		Notifier:  n,
		Watcher:   w,
		Catalog:   cat,
		Quota:     qc,
	}
}

// ── Task Catalog Handlers ────────────────────────────────────

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Catalog.List())
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	task, ok := h.Catalog.Get(taskID)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown task: "+taskID)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// ResolveFields returns the fields visible for the submitted inputs, so the
// UI can re-render conditional branches as the user types.
func (h *Handlers) ResolveFields(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	task, ok := h.Catalog.Get(taskID)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown task: "+taskID)
		return
	}

	var inputs models.FormInputs
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"taskId": task.ID,
		"fields": forms.VisibleFields(task, inputs),
	})
}

// ── Estimate Handlers ────────────────────────────────────────

func (h *Handlers) CreateEstimate(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())

	var body struct {
		TaskID string            `json:"taskId"`
		Inputs models.FormInputs `json:"inputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.Estimator.RequestEstimate(r.Context(), estimator.Request{
		ClientID: clientID,
		TaskID:   body.TaskID,
		Inputs:   body.Inputs,
	})
	if err != nil {
		h.respondEstimateError(w, r, clientID, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"estimate": res.Record,
		"quoteRef": estimator.QuoteRef(res.Record.ID),
		"cached":   res.Cached,
	})
}

func (h *Handlers) respondEstimateError(w http.ResponseWriter, r *http.Request, clientID string, err error) {
	var missing *forms.MissingFieldError
	var unknown *estimator.UnknownTaskError
	switch {
	case errors.As(err, &missing):
		respondError(w, http.StatusBadRequest, missing.Error())
	case errors.As(err, &unknown):
		respondError(w, http.StatusNotFound, unknown.Error())
	case errors.Is(err, estimator.ErrQuotaExceeded):
		state, _ := h.Store.GetQuota(r.Context(), clientID)
		respondJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":    "Free estimate limit reached",
			"limit":    h.Quota.FreeLimit,
			"consumed": state.ConsumedCount,
			"upgrade":  "/api/v1/quota/upgrade",
		})
	case errors.Is(err, context.Canceled):
		// Client went away; nothing to send.
	default:
		// Detail goes to the log, not to the caller.
		log.Error().Err(err).Str("client_id", clientID).Msg("Estimate request failed")
		respondError(w, http.StatusBadGateway, retryMessage)
	}
}

func (h *Handlers) ListEstimates(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())

	records, err := h.Store.ListEstimates(r.Context(), clientID, 20)
	if err != nil {
		// The ledger is best-effort; a read failure degrades to empty.
		log.Warn().Err(err).Str("client_id", clientID).Msg("Estimate history read failed")
		records = nil
	}
	if records == nil {
		records = []models.EstimateRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handlers) GetEstimate(w http.ResponseWriter, r *http.Request) {
	estimateID := chi.URLParam(r, "estimateID")

	rec, err := h.Store.GetEstimate(r.Context(), estimateID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// GenerateInvoice builds the invoice payload for a saved estimate and records
// the lead event. Rendering is the caller's concern.
func (h *Handlers) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	estimateID := chi.URLParam(r, "estimateID")

	rec, err := h.Store.GetEstimate(r.Context(), estimateID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	quoteRef := estimator.QuoteRef(rec.ID)
	advance := pricing.AdvanceAmount(rec.Result.TotalEstimatedCost)

	if h.Notifier != nil && h.Notifier.Enabled() {
		go h.Notifier.Publish(context.Background(), models.LeadEvent{
			Kind:       models.EventInvoiceGenerated,
			ClientName: rec.ClientName,
			Phone:      rec.Phone,
			Task:       rec.TaskTitle,
			Total:      rec.Result.TotalEstimatedCost,
			Details:    map[string]any{"quoteRef": quoteRef, "advance": advance.StringFixed(0)},
		})
	}

	log.Info().Str("estimate_id", rec.ID).Str("quote_ref", quoteRef).Msg("Invoice generated")
	respondJSON(w, http.StatusOK, map[string]any{
		"quoteRef":       quoteRef,
		"clientName":     rec.ClientName,
		"clientPhone":    rec.Phone,
		"task":           rec.TaskTitle,
		"total":          rec.Result.TotalEstimatedCost,
		"advanceAmount":  advance.StringFixed(0),
		"advancePercent": advancePercent,
		"validityDays":   quoteValidityDays,
		"generatedAt":    time.Now().UTC(),
	})
}

// ── Price Index Handlers ─────────────────────────────────────

func (h *Handlers) GetPrices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Pricing.PriceList(r.Context()))
}

func (h *Handlers) GetTicker(w http.ResponseWriter, r *http.Request) {
	list := h.Pricing.PriceList(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{
		"text":        pricing.TickerText(list),
		"lastUpdated": list.LastUpdated,
	})
}

// ── Quota Handlers ───────────────────────────────────────────

func (h *Handlers) GetQuota(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())

	state, err := h.Store.GetQuota(r.Context(), clientID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.quotaView(state))
}

func (h *Handlers) quotaView(state models.QuotaState) map[string]any {
	now := time.Now()
	view := map[string]any{
		"limit":     h.Quota.FreeLimit,
		"consumed":  state.ConsumedCount,
		"remaining": quota.Remaining(state, h.Quota.FreeLimit),
		"upgraded":  state.Upgraded,
	}
	if quota.CooldownActive(state, now) {
		view["cooldownSeconds"] = int(quota.RemainingCooldown(state, now).Seconds())
	}
	return view
}

// RequestUpgrade arms the payment-confirmation cooldown and forwards the
// upgrade lead. A second request during an active cooldown is rejected.
func (h *Handlers) RequestUpgrade(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())

	state, err := h.Store.GetQuota(r.Context(), clientID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now()
	if state.Upgraded {
		respondJSON(w, http.StatusOK, h.quotaView(state))
		return
	}
	if quota.CooldownActive(state, now) {
		respondJSON(w, http.StatusTooManyRequests, h.quotaView(state))
		return
	}

	var body struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state = quota.BeginCooldown(state, now, h.Quota.Cooldown)
	if err := h.Store.PutQuota(r.Context(), clientID, state); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Watcher.Arm(clientID, *state.CooldownDeadline, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cur, err := h.Store.GetQuota(ctx, clientID)
		if err != nil {
			log.Warn().Err(err).Str("client_id", clientID).Msg("Cooldown expiry: quota read failed")
			return
		}
		if err := h.Store.PutQuota(ctx, clientID, quota.ClearCooldown(cur)); err != nil {
			log.Warn().Err(err).Str("client_id", clientID).Msg("Cooldown expiry: quota write failed")
		}
	})

	if h.Notifier != nil && h.Notifier.Enabled() {
		go h.Notifier.Publish(context.Background(), models.LeadEvent{
			Kind:       models.EventUpgradeRequested,
			ClientName: body.Name,
			Phone:      body.Phone,
		})
	}

	log.Info().Str("client_id", clientID).Dur("cooldown", h.Quota.Cooldown).Msg("Upgrade requested, cooldown armed")
	respondJSON(w, http.StatusAccepted, h.quotaView(state))
}

// ── Lead Handlers ────────────────────────────────────────────

func (h *Handlers) RequestCallback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Location string `json:"location"`
		Message  string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Phone == "" {
		respondError(w, http.StatusBadRequest, "phone is required")
		return
	}

	if h.Notifier != nil && h.Notifier.Enabled() {
		go h.Notifier.Publish(context.Background(), models.LeadEvent{
			Kind:       models.EventCallbackRequested,
			ClientName: body.Name,
			Phone:      body.Phone,
			Location:   body.Location,
			Details:    map[string]string{"message": body.Message},
		})
	}

	log.Info().Str("phone", body.Phone).Msg("Callback requested")
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}

// ── Profile Handlers ─────────────────────────────────────────

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())

	profile, err := h.Store.GetProfile(r.Context(), clientID)
	if err != nil {
		if _, ok := err.(*store.ErrNotFound); ok {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *Handlers) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())

	var req models.Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FullName == "" || req.Phone == "" {
		respondError(w, http.StatusBadRequest, "full_name and phone are required")
		return
	}

	req.ID = clientID
	now := time.Now().UTC()
	if existing, err := h.Store.GetProfile(r.Context(), clientID); err == nil {
		req.CreatedAt = existing.CreatedAt
		req.Premium = req.Premium || existing.Premium
	} else {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	if err := h.Store.UpsertProfile(r.Context(), &req); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// A premium profile lifts the free-estimate gate and any pending
	// cooldown.
	if req.Premium {
		state, err := h.Store.GetQuota(r.Context(), clientID)
		if err != nil {
			log.Warn().Err(err).Str("client_id", clientID).Msg("Premium upgrade: quota read failed")
		} else if !state.Upgraded {
			if err := h.Store.PutQuota(r.Context(), clientID, quota.Upgrade(state)); err != nil {
				log.Warn().Err(err).Str("client_id", clientID).Msg("Premium upgrade: quota write failed")
			}
		}
	}

	log.Info().Str("client_id", clientID).Msg("Profile saved")
	respondJSON(w, http.StatusOK, req)
}

// ── Chat History ─────────────────────────────────────────────

func (h *Handlers) ChatHistory(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())
	session := h.Chat.Session(clientID)
	respondJSON(w, http.StatusOK, session.Messages())
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
