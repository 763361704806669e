package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func identityProbe(t *testing.T, mutate func(*http.Request)) string {
	t.Helper()
	var got string
	h := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClientID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil)
	mutate(req)
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestIdentityFromHeader(t *testing.T) {
	got := identityProbe(t, func(r *http.Request) {
		r.Header.Set("X-Client-Id", " c42 ")
	})
	if got != "c42" {
		t.Errorf("client = %q, want c42", got)
	}
}

func TestIdentityFromQuery(t *testing.T) {
	got := identityProbe(t, func(r *http.Request) {
		r.URL.RawQuery = "client_id=c7"
	})
	if got != "c7" {
		t.Errorf("client = %q, want c7", got)
	}
}

func TestIdentityHeaderWinsOverQuery(t *testing.T) {
	got := identityProbe(t, func(r *http.Request) {
		r.Header.Set("X-Client-Id", "header")
		r.URL.RawQuery = "client_id=query"
	})
	if got != "header" {
		t.Errorf("client = %q, want header", got)
	}
}

func TestIdentityDefaultsToGuest(t *testing.T) {
	got := identityProbe(t, func(*http.Request) {})
	if got != GuestClient {
		t.Errorf("client = %q, want %q", got, GuestClient)
	}
}
