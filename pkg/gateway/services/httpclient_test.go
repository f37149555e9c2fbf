// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiomcp/gateway/pkg/audit"
	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway"
)

type capturedRequest struct {
	method string
	path   string
	query  string
	tenant string
	actor  string
	auth   string
	body   []byte
}

// apiStub is an httptest-backed platform API that records every request and
// serves canned responses by path.
type apiStub struct {
	mu        sync.Mutex
	requests  []capturedRequest
	responses map[string]string
	status    int
	server    *httptest.Server
}

func newAPIStub(t *testing.T) *apiStub {
	t.Helper()
	s := &apiStub{responses: map[string]string{}, status: http.StatusOK}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			tenant: r.Header.Get("X-Studio-Tenant-Id"),
			actor:  r.Header.Get("X-Studio-Actor-Id"),
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		resp, ok := s.responses[r.URL.Path]
		status := s.status
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if ok {
			_, _ = w.Write([]byte(resp))
		}
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *apiStub) respond(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = body
}

func (s *apiStub) failWith(status int, path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.responses[path] = body
}

func (s *apiStub) last(t *testing.T) capturedRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func newTestClient(t *testing.T, stub *apiStub) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(HTTPClientConfig{
		BaseURL:      stub.server.URL,
		ServiceToken: "svc-token",
	})
	require.NoError(t, err)
	return client
}

func clientAuth() *auth.AuthContext {
	return &auth.AuthContext{PrincipalID: "user-1", TenantID: "org-1", Authenticated: true}
}

func TestHTTPClientSendsScopingHeaders(t *testing.T) {
	t.Parallel()
	stub := newAPIStub(t)
	stub.respond("/v1/workflows", `[{"id":"wf-1"}]`)
	client := newTestClient(t, stub)

	out, err := client.List(context.Background(), clientAuth(), ListOptions{Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, out, 1)

	req := stub.last(t)
	assert.Equal(t, "org-1", req.tenant)
	assert.Equal(t, "user-1", req.actor)
	assert.Equal(t, "Bearer svc-token", req.auth)
	assert.Contains(t, req.query, "limit=10")
	assert.Contains(t, req.query, "offset=20")
}

func TestHTTPClientStatusErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, gateway.ErrNotFound},
		{http.StatusUnauthorized, gateway.ErrUnauthenticated},
		{http.StatusForbidden, gateway.ErrPermissionDenied},
		{http.StatusBadRequest, gateway.ErrInvalidInput},
		{http.StatusUnprocessableEntity, gateway.ErrInvalidInput},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			stub := newAPIStub(t)
			stub.failWith(tt.status, "/v1/workflows/wf-1", `{"error":"nope"}`)
			client := newTestClient(t, stub)

			_, err := client.FindByID(context.Background(), clientAuth(), "wf-1")
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestHTTPClientServerErrorIsNotSentinel(t *testing.T) {
	t.Parallel()
	stub := newAPIStub(t)
	stub.failWith(http.StatusInternalServerError, "/v1/workflows/wf-1", `{"message":"boom"}`)
	client := newTestClient(t, stub)

	_, err := client.FindByID(context.Background(), clientAuth(), "wf-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, gateway.ErrNotFound)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Contains(t, err.Error(), "boom")
}

func TestHTTPClientRunReturnsRunID(t *testing.T) {
	t.Parallel()
	stub := newAPIStub(t)
	stub.respond("/v1/workflows/wf-1/runs", `{"runId":"run-7"}`)
	client := newTestClient(t, stub)

	runID, err := client.Run(context.Background(), clientAuth(), "wf-1", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "run-7", runID)

	req := stub.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	var body map[string]any
	require.NoError(t, json.Unmarshal(req.body, &body))
	assert.Equal(t, map[string]any{"x": float64(1)}, body["inputs"])
}

func TestHTTPClientRunRejectsEmptyRunID(t *testing.T) {
	t.Parallel()
	stub := newAPIStub(t)
	stub.respond("/v1/workflows/wf-1/runs", `{}`)
	client := newTestClient(t, stub)

	_, err := client.Run(context.Background(), clientAuth(), "wf-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run ID")
}

func TestHTTPClientEnsureRunAccess(t *testing.T) {
	t.Parallel()
	stub := newAPIStub(t)
	stub.respond("/v1/runs/run-1", `{"ID":"run-1","Status":"RUNNING"}`)
	client := newTestClient(t, stub)

	require.NoError(t, client.EnsureRunAccess(context.Background(), clientAuth(), "run-1"))
	req := stub.last(t)
	assert.Equal(t, "org-1", req.tenant, "access check must be tenant-scoped")

	stub.failWith(http.StatusNotFound, "/v1/runs/run-2", `{"error":"not yours"}`)
	err := client.EnsureRunAccess(context.Background(), clientAuth(), "run-2")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestHTTPClientHumanInputResolveWrapsResponseData(t *testing.T) {
	t.Parallel()
	stub := newAPIStub(t)
	stub.respond("/v1/human-inputs/hi-1/resolve", `{"id":"hi-1","status":"resolved"}`)
	client := newTestClient(t, stub)

	out, err := client.HumanInputs().Resolve(context.Background(), clientAuth(), "hi-1",
		map[string]any{"status": "approved"})
	require.NoError(t, err)
	assert.Equal(t, "resolved", out["status"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(stub.last(t).body, &body))
	assert.Equal(t, map[string]any{"status": "approved"}, body["responseData"])
}

func TestHTTPClientAuditStoreWrite(t *testing.T) {
	t.Parallel()
	stub := newAPIStub(t)
	client := newTestClient(t, stub)

	err := client.AuditStore().Write(context.Background(), &audit.Record{
		Action:   "secret.delete",
		Actor:    "user-1",
		TenantID: "org-1",
	})
	require.NoError(t, err)

	req := stub.last(t)
	assert.Equal(t, "/v1/audit", req.path)
	assert.Equal(t, "org-1", req.tenant)
	assert.Equal(t, "user-1", req.actor)
}

func TestHTTPClientDepsAreFullyWired(t *testing.T) {
	t.Parallel()
	stub := newAPIStub(t)
	deps := newTestClient(t, stub).Deps()

	assert.NotNil(t, deps.Workflows)
	assert.NotNil(t, deps.Engine)
	assert.NotNil(t, deps.Runs)
	assert.NotNil(t, deps.Trace)
	assert.NotNil(t, deps.Logs)
	assert.NotNil(t, deps.NodeIO)
	assert.NotNil(t, deps.Artifacts)
	assert.NotNil(t, deps.Schedules)
	assert.NotNil(t, deps.Secrets)
	assert.NotNil(t, deps.HumanInputs)
	assert.NotNil(t, deps.Components)
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	t.Parallel()
	_, err := NewHTTPClient(HTTPClientConfig{})
	assert.Error(t, err)
}
