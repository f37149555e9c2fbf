// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/studiomcp/gateway/pkg/gateway"
)

// KeyValidator resolves a bearer API key to an AuthContext.
// The capability matrix is attached here, before the request reaches any
// gateway component.
type KeyValidator interface {
	// ValidateKey returns the AuthContext for a key, or an error wrapping
	// gateway.ErrUnauthenticated if the key is unknown or revoked.
	ValidateKey(ctx context.Context, key string) (*AuthContext, error)
}

// Middleware returns an HTTP middleware that authenticates requests with a
// bearer API key and injects the resulting AuthContext into the request
// context. Requests without a valid credential get 401.
func Middleware(validator KeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, "missing bearer credentials")
				return
			}

			ac, err := validator.ValidateKey(r.Context(), token)
			if err != nil {
				slog.Debug("API key validation failed", "error", err)
				writeAuthError(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), ac)))
		})
	}
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": gateway.ErrUnauthenticated.Error() + ": " + msg,
	})
}
