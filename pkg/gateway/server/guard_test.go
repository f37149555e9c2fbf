// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway/session"
)

type guardFixture struct {
	manager *session.Manager
	handler http.Handler
	called  *bool
	body    *string
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()

	manager := session.NewManager(session.NewLocalStorage(), time.Hour, nil)
	t.Cleanup(func() { _ = manager.Stop() })

	called := false
	body := ""
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	})

	guard := newSessionGuard(manager, nil)
	return &guardFixture{
		manager: manager,
		handler: guard.Middleware(next),
		called:  &called,
		body:    &body,
	}
}

func (f *guardFixture) request(t *testing.T, method, sessionID, body string, ac *auth.AuthContext) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/mcp", reader)
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	if ac != nil {
		req = req.WithContext(auth.WithAuthContext(req.Context(), ac))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func authFor(principalID, tenantID string) *auth.AuthContext {
	return &auth.AuthContext{
		PrincipalID:   principalID,
		TenantID:      tenantID,
		Authenticated: true,
	}
}

func bindSession(t *testing.T, f *guardFixture, sessionID, principalID, tenantID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.manager.AddPlaceholder(ctx, sessionID))
	require.NoError(t, f.manager.Bind(ctx, sessionID, principalID, tenantID))
}

func TestGuardRejectsForeignPrincipal(t *testing.T) {
	t.Parallel()
	f := newGuardFixture(t)
	bindSession(t, f, "s-42", "user-1", "org-1")

	rec := f.request(t, http.MethodPost, "s-42", `{"jsonrpc":"2.0","method":"tools/list","id":1}`,
		authFor("user-1", "org-2"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Session belongs to a different principal"}`, rec.Body.String())
	assert.False(t, *f.called, "a hijacked session must never reach the handler")

	// The session itself is untouched: its rightful owner continues.
	rec = f.request(t, http.MethodPost, "s-42", `{"jsonrpc":"2.0","method":"tools/list","id":2}`,
		authFor("user-1", "org-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *f.called)
}

func TestGuardUnknownSessionIs404(t *testing.T) {
	t.Parallel()
	f := newGuardFixture(t)

	rec := f.request(t, http.MethodPost, "s-nope", `{}`, authFor("user-1", "org-1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Session not found"}`, rec.Body.String())
	assert.False(t, *f.called)
}

func TestGuardSessionlessPostRequiresInitialize(t *testing.T) {
	t.Parallel()
	f := newGuardFixture(t)

	// Non-initialize without a session: 400.
	rec := f.request(t, http.MethodPost, "", `{"jsonrpc":"2.0","method":"tools/list","id":1}`,
		authFor("user-1", "org-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing session ID"}`, rec.Body.String())
	assert.False(t, *f.called)
}

func TestGuardSessionlessInitializePasses(t *testing.T) {
	t.Parallel()

	initBody := `{"jsonrpc":"2.0","method":"initialize","id":1,"params":{}}`
	batchBody := `[{"jsonrpc":"2.0","method":"initialize","id":1,"params":{}}]`

	for name, body := range map[string]string{"single": initBody, "batch": batchBody} {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := newGuardFixture(t)

			rec := f.request(t, http.MethodPost, "", body, authFor("user-1", "org-1"))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, *f.called)
			// The guard read the body to classify it; the handler must still
			// see it in full.
			assert.Equal(t, body, *f.body)
		})
	}
}

func TestGuardGetWithoutSessionIs400(t *testing.T) {
	t.Parallel()
	f := newGuardFixture(t)

	rec := f.request(t, http.MethodGet, "", "", authFor("user-1", "org-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing session ID"}`, rec.Body.String())
}

func TestGuardGetDestroysSessionAfterStreamClose(t *testing.T) {
	t.Parallel()
	f := newGuardFixture(t)
	bindSession(t, f, "s-1", "user-1", "org-1")

	rec := f.request(t, http.MethodGet, "s-1", "", authFor("user-1", "org-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *f.called)

	// The stream handler returned, so the session is gone.
	assert.False(t, f.manager.Exists(context.Background(), "s-1"))
}

func TestGuardDeleteAuthorizesBeforeForwarding(t *testing.T) {
	t.Parallel()
	f := newGuardFixture(t)
	bindSession(t, f, "s-1", "user-1", "org-1")

	rec := f.request(t, http.MethodDelete, "s-1", "", authFor("user-2", "org-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *f.called)

	rec = f.request(t, http.MethodDelete, "s-1", "", authFor("user-1", "org-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *f.called)
}

func TestGuardUnauthenticatedRequestIs401(t *testing.T) {
	t.Parallel()
	f := newGuardFixture(t)
	bindSession(t, f, "s-1", "user-1", "org-1")

	rec := f.request(t, http.MethodPost, "s-1", `{}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *f.called)
}

func TestGuardUnsupportedMethod(t *testing.T) {
	t.Parallel()
	f := newGuardFixture(t)

	rec := f.request(t, http.MethodPut, "s-1", "", authFor("user-1", "org-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIsInitializeBody(t *testing.T) {
	t.Parallel()

	assert.True(t, isInitializeBody([]byte(`{"method":"initialize"}`)))
	assert.True(t, isInitializeBody([]byte(`[{"method":"ping"},{"method":"initialize"}]`)))
	assert.False(t, isInitializeBody([]byte(`{"method":"tools/call"}`)))
	assert.False(t, isInitializeBody([]byte(`[]`)))
	assert.False(t, isInitializeBody([]byte(`not json`)))
}
