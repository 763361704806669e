package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ajayprojects/portal/pkg/models"
)

func TestPublishPostsEvent(t *testing.T) {
	var got models.LeadEvent
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		header = r.Header.Get("X-Portal-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewService(srv.URL, "")
	s.Publish(context.Background(), models.LeadEvent{
		Kind:       models.EventQuoteRequested,
		ClientName: "Ravi",
		Phone:      "9876543210",
		Task:       "Painting Work",
		Total:      84000,
	})

	if got.Kind != models.EventQuoteRequested {
		t.Errorf("event kind = %q", got.Kind)
	}
	if got.ClientName != "Ravi" || got.Total != 84000 {
		t.Errorf("payload mismatch: %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp should be stamped when unset")
	}
	if header != string(models.EventQuoteRequested) {
		t.Errorf("X-Portal-Event = %q", header)
	}
}

func TestPublishSignsWhenSecretSet(t *testing.T) {
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get("X-Portal-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewService(srv.URL, "shhh")
	s.Publish(context.Background(), models.LeadEvent{Kind: models.EventAccess, ClientName: "Guest"})

	if len(sig) != len("sha256=")+64 {
		t.Errorf("signature header = %q", sig)
	}
}

func TestPublishSwallowsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close() // refuse connections entirely

	s := NewService(srv.URL, "")

	// Must not panic or block; delivery failure is not the caller's problem.
	s.Publish(context.Background(), models.LeadEvent{Kind: models.EventCallbackRequested, ClientName: "Ravi"})
}

func TestPublishPostsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewService(srv.URL, "")
	s.Publish(context.Background(), models.LeadEvent{Kind: models.EventQuoteRequested, ClientName: "Ravi"})

	// A failed delivery is logged, never reattempted.
	if hits.Load() != 1 {
		t.Errorf("webhook posts = %d, want 1", hits.Load())
	}
}

func TestPublishDisabledWithoutURL(t *testing.T) {
	s := NewService("", "")
	if s.Enabled() {
		t.Error("empty URL should disable forwarding")
	}
	s.Publish(context.Background(), models.LeadEvent{Kind: models.EventAccess})
}
