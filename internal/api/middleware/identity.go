package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// ClientIDKey is the context key for the portal client identity.
const ClientIDKey contextKey = "client_id"

// GuestClient is the identity assigned to requests that carry none.
const GuestClient = "guest"

// Identity extracts the client identity from the request. It checks the
// X-Client-Id header, then the client_id query parameter, and falls back
// to the shared guest identity.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := ""

		if h := r.Header.Get("X-Client-Id"); h != "" {
			clientID = strings.TrimSpace(h)
		}
		if clientID == "" {
			if q := r.URL.Query().Get("client_id"); q != "" {
				clientID = strings.TrimSpace(q)
			}
		}
		if clientID == "" {
			clientID = GuestClient
		}

		ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientID retrieves the client identity from the request context.
func GetClientID(ctx context.Context) string {
	if v, ok := ctx.Value(ClientIDKey).(string); ok {
		return v
	}
	return GuestClient
}
