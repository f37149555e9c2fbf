// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/studiomcp/gateway/pkg/audit"
	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway"
)

// Tenant scoping headers sent on every backing-service call.
const (
	headerTenantID  = "X-Studio-Tenant-Id"
	headerActorID   = "X-Studio-Actor-Id"
	defaultHTTPWait = 30 * time.Second
)

// HTTPClientConfig configures the REST client for the Studio platform API.
type HTTPClientConfig struct {
	// BaseURL is the platform API root, e.g. "http://studio-api:8080".
	BaseURL string

	// ServiceToken authenticates the gateway itself to the platform API.
	ServiceToken string

	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration
}

// HTTPClient is a thin typed REST client implementing every backing-service
// interface. Tenant scoping is enforced by headers derived from the
// AuthContext (or the explicit tenant ID on legacy surfaces); the platform
// API rejects rows outside the tenant.
type HTTPClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewHTTPClient creates a platform API client.
func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("platform API base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid platform API base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultHTTPWait
	}
	return &HTTPClient{
		base:  base,
		token: cfg.ServiceToken,
		http:  &http.Client{Timeout: timeout},
	}, nil
}

// Deps wires the client into a fully populated dependencies record.
func (c *HTTPClient) Deps() *Deps {
	return &Deps{
		Workflows:   c,
		Engine:      c,
		Runs:        c,
		Trace:       c,
		Logs:        c,
		NodeIO:      c,
		Artifacts:   c,
		Schedules:   c.Schedules(),
		Secrets:     c.Secrets(),
		HumanInputs: c.HumanInputs(),
		Components:  c.Components(),
	}
}

// do performs one API call. A nil out skips response decoding.
func (c *HTTPClient) do(ctx context.Context, method, path, tenantID, actorID string, query url.Values, body, out any) error {
	raw, err := c.doRaw(ctx, method, path, tenantID, actorID, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *HTTPClient) doRaw(ctx context.Context, method, path, tenantID, actorID string, query url.Values, body any) ([]byte, error) {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if tenantID != "" {
		req.Header.Set(headerTenantID, tenantID)
	}
	if actorID != "" {
		req.Header.Set(headerActorID, actorID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform API response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, data)
	}
	return data, nil
}

// statusError maps API status codes onto the gateway's sentinel errors so
// callers can branch with errors.Is.
func statusError(code int, body []byte) error {
	msg := apiErrorMessage(body)
	switch code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", gateway.ErrNotFound, msg)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", gateway.ErrUnauthenticated, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", gateway.ErrPermissionDenied, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", gateway.ErrInvalidInput, msg)
	default:
		return fmt.Errorf("platform API error (HTTP %d): %s", code, msg)
	}
}

func apiErrorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return "no error detail"
}

func pagingQuery(opts ListOptions) url.Values {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	return q
}

// --- WorkflowService ---

// List implements WorkflowService.
func (c *HTTPClient) List(ctx context.Context, ac *auth.AuthContext, opts ListOptions) ([]map[string]any, error) {
	var out []map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/workflows", ac.TenantID, ac.PrincipalID, pagingQuery(opts), nil, &out)
	return out, err
}

// FindByID implements WorkflowService.
func (c *HTTPClient) FindByID(ctx context.Context, ac *auth.AuthContext, workflowID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/workflows/"+workflowID, ac.TenantID, ac.PrincipalID, nil, nil, &out)
	return out, err
}

// Create implements WorkflowService.
func (c *HTTPClient) Create(ctx context.Context, ac *auth.AuthContext, def map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/v1/workflows", ac.TenantID, ac.PrincipalID, nil, def, &out)
	return out, err
}

// Update implements WorkflowService.
func (c *HTTPClient) Update(ctx context.Context, ac *auth.AuthContext, workflowID string, def map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPut, "/v1/workflows/"+workflowID, ac.TenantID, ac.PrincipalID, nil, def, &out)
	return out, err
}

// UpdateMetadata implements WorkflowService.
func (c *HTTPClient) UpdateMetadata(ctx context.Context, ac *auth.AuthContext, workflowID string, meta map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPatch, "/v1/workflows/"+workflowID+"/metadata", ac.TenantID, ac.PrincipalID, nil, meta, &out)
	return out, err
}

// Delete implements WorkflowService.
func (c *HTTPClient) Delete(ctx context.Context, ac *auth.AuthContext, workflowID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/workflows/"+workflowID, ac.TenantID, ac.PrincipalID, nil, nil, nil)
}

// Run implements WorkflowService.
func (c *HTTPClient) Run(ctx context.Context, ac *auth.AuthContext, workflowID string, inputs map[string]any) (string, error) {
	var out struct {
		RunID string `json:"runId"`
	}
	body := map[string]any{"inputs": inputs}
	if err := c.do(ctx, http.MethodPost, "/v1/workflows/"+workflowID+"/runs", ac.TenantID, ac.PrincipalID, nil, body, &out); err != nil {
		return "", err
	}
	if out.RunID == "" {
		return "", fmt.Errorf("platform API returned no run ID for workflow %s", workflowID)
	}
	return out.RunID, nil
}

// ListRuns implements WorkflowService.
func (c *HTTPClient) ListRuns(ctx context.Context, ac *auth.AuthContext, workflowID string, opts ListOptions) ([]map[string]any, error) {
	var out []map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/workflows/"+workflowID+"/runs", ac.TenantID, ac.PrincipalID, pagingQuery(opts), nil, &out)
	return out, err
}

// GetRunResult implements WorkflowService.
func (c *HTTPClient) GetRunResult(ctx context.Context, ac *auth.AuthContext, runID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/runs/"+runID+"/result", ac.TenantID, ac.PrincipalID, nil, nil, &out)
	return out, err
}

// GetRunConfig implements WorkflowService.
func (c *HTTPClient) GetRunConfig(ctx context.Context, ac *auth.AuthContext, runID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/runs/"+runID+"/config", ac.TenantID, ac.PrincipalID, nil, nil, &out)
	return out, err
}

// ListChildRuns implements WorkflowService.
func (c *HTTPClient) ListChildRuns(ctx context.Context, ac *auth.AuthContext, runID string) ([]map[string]any, error) {
	var out []map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/runs/"+runID+"/children", ac.TenantID, ac.PrincipalID, nil, nil, &out)
	return out, err
}

// CancelRun implements WorkflowService.
func (c *HTTPClient) CancelRun(ctx context.Context, ac *auth.AuthContext, runID string) error {
	return c.do(ctx, http.MethodPost, "/v1/runs/"+runID+"/cancel", ac.TenantID, ac.PrincipalID, nil, nil, nil)
}

// EnsureRunAccess implements WorkflowService by fetching the run record
// tenant-scoped; a cross-tenant run surfaces as ErrNotFound.
func (c *HTTPClient) EnsureRunAccess(ctx context.Context, ac *auth.AuthContext, runID string) error {
	_, err := c.GetRun(ctx, ac.TenantID, runID)
	return err
}

// --- EngineClient ---

// DescribeRun implements EngineClient.
func (c *HTTPClient) DescribeRun(ctx context.Context, runID string) (*EngineRunState, error) {
	var out struct {
		Status    string     `json:"status"`
		CloseTime *time.Time `json:"closeTime"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/engine/runs/"+runID, "", "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &EngineRunState{Status: out.Status, CloseTime: out.CloseTime}, nil
}

// --- RunRepository ---

// GetRun implements RunRepository.
func (c *HTTPClient) GetRun(ctx context.Context, tenantID, runID string) (*gateway.RunRecord, error) {
	var out gateway.RunRecord
	if err := c.do(ctx, http.MethodGet, "/v1/runs/"+runID, tenantID, "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CacheTerminalStatus implements RunRepository. The platform API keeps the
// cache monotonic; redundant terminal writes are accepted and ignored.
func (c *HTTPClient) CacheTerminalStatus(ctx context.Context, runID string, status gateway.RunStatus, closeTime time.Time) error {
	body := map[string]any{
		"status":    string(status),
		"closeTime": closeTime.UTC().Format(time.RFC3339Nano),
	}
	return c.do(ctx, http.MethodPost, "/v1/runs/"+runID+"/terminal-status", "", "", nil, body, nil)
}

// --- TraceService ---

// CountEvents implements TraceService.
func (c *HTTPClient) CountEvents(ctx context.Context, tenantID, runID string) (gateway.TraceCounts, error) {
	var out gateway.TraceCounts
	err := c.do(ctx, http.MethodGet, "/v1/runs/"+runID+"/trace/counts", tenantID, "", nil, nil, &out)
	return out, err
}

// ListEvents implements TraceService.
func (c *HTTPClient) ListEvents(ctx context.Context, tenantID, runID string, opts ListOptions) ([]map[string]any, error) {
	var out []map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/runs/"+runID+"/trace", tenantID, "", pagingQuery(opts), nil, &out)
	return out, err
}

// --- LogService ---

// GetRunLogs implements LogService.
func (c *HTTPClient) GetRunLogs(ctx context.Context, tenantID, runID string, opts ListOptions) ([]map[string]any, error) {
	var out []map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/runs/"+runID+"/logs", tenantID, "", pagingQuery(opts), nil, &out)
	return out, err
}

// --- NodeIOService ---

// ListRunNodeIO implements NodeIOService.
func (c *HTTPClient) ListRunNodeIO(ctx context.Context, tenantID, runID string) ([]map[string]any, error) {
	var out []map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/runs/"+runID+"/node-io", tenantID, "", nil, nil, &out)
	return out, err
}

// GetNodeIO implements NodeIOService.
func (c *HTTPClient) GetNodeIO(ctx context.Context, tenantID, nodeIOID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/node-io/"+nodeIOID, tenantID, "", nil, nil, &out)
	return out, err
}

// --- ArtifactService ---

// ListArtifacts implements ArtifactService; the raw shape goes through
// NormalizeArtifactList at the tool layer.
func (c *HTTPClient) ListArtifacts(ctx context.Context, ac *auth.AuthContext, opts ListOptions) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/v1/artifacts", ac.TenantID, ac.PrincipalID, pagingQuery(opts), nil)
}

// ListRunArtifacts implements ArtifactService.
func (c *HTTPClient) ListRunArtifacts(ctx context.Context, ac *auth.AuthContext, runID string) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/v1/runs/"+runID+"/artifacts", ac.TenantID, ac.PrincipalID, nil, nil)
}

// DownloadArtifact implements ArtifactService: metadata first, then content.
func (c *HTTPClient) DownloadArtifact(ctx context.Context, ac *auth.AuthContext, artifactID string) (*ArtifactDownload, error) {
	var meta Artifact
	if err := c.do(ctx, http.MethodGet, "/v1/artifacts/"+artifactID, ac.TenantID, ac.PrincipalID, nil, nil, &meta); err != nil {
		return nil, err
	}
	buf, err := c.doRaw(ctx, http.MethodGet, "/v1/artifacts/"+artifactID+"/content", ac.TenantID, ac.PrincipalID, nil, nil)
	if err != nil {
		return nil, err
	}
	return &ArtifactDownload{Buffer: buf, Artifact: meta}, nil
}

// DeleteArtifact implements ArtifactService.
func (c *HTTPClient) DeleteArtifact(ctx context.Context, ac *auth.AuthContext, artifactID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/artifacts/"+artifactID, ac.TenantID, ac.PrincipalID, nil, nil, nil)
}

// --- ScheduleService ---

// The schedule, secret, human-input and component surfaces live on small
// sub-clients: their method names (List, Get, Create…) would otherwise
// collide with the workflow surface on HTTPClient itself.

type scheduleClient struct{ c *HTTPClient }

// Schedules returns the schedule surface of the client.
func (c *HTTPClient) Schedules() ScheduleService { return &scheduleClient{c: c} }

func (s *scheduleClient) List(ctx context.Context, ac *auth.AuthContext, opts ListOptions) ([]map[string]any, error) {
	var out []map[string]any
	err := s.c.do(ctx, http.MethodGet, "/v1/schedules", ac.TenantID, ac.PrincipalID, pagingQuery(opts), nil, &out)
	return out, err
}

func (s *scheduleClient) Get(ctx context.Context, ac *auth.AuthContext, scheduleID string) (map[string]any, error) {
	var out map[string]any
	err := s.c.do(ctx, http.MethodGet, "/v1/schedules/"+scheduleID, ac.TenantID, ac.PrincipalID, nil, nil, &out)
	return out, err
}

func (s *scheduleClient) Create(ctx context.Context, ac *auth.AuthContext, dto ScheduleDTO) (map[string]any, error) {
	var out map[string]any
	err := s.c.do(ctx, http.MethodPost, "/v1/schedules", ac.TenantID, ac.PrincipalID, nil, dto, &out)
	return out, err
}

func (s *scheduleClient) Update(ctx context.Context, ac *auth.AuthContext, scheduleID string, dto ScheduleDTO) (map[string]any, error) {
	var out map[string]any
	err := s.c.do(ctx, http.MethodPatch, "/v1/schedules/"+scheduleID, ac.TenantID, ac.PrincipalID, nil, dto, &out)
	return out, err
}

func (s *scheduleClient) Pause(ctx context.Context, ac *auth.AuthContext, scheduleID string) error {
	return s.c.do(ctx, http.MethodPost, "/v1/schedules/"+scheduleID+"/pause", ac.TenantID, ac.PrincipalID, nil, nil, nil)
}

func (s *scheduleClient) Resume(ctx context.Context, ac *auth.AuthContext, scheduleID string) error {
	return s.c.do(ctx, http.MethodPost, "/v1/schedules/"+scheduleID+"/resume", ac.TenantID, ac.PrincipalID, nil, nil, nil)
}

func (s *scheduleClient) Trigger(ctx context.Context, ac *auth.AuthContext, scheduleID string) (string, error) {
	var out struct {
		RunID string `json:"runId"`
	}
	if err := s.c.do(ctx, http.MethodPost, "/v1/schedules/"+scheduleID+"/trigger", ac.TenantID, ac.PrincipalID, nil, nil, &out); err != nil {
		return "", err
	}
	return out.RunID, nil
}

func (s *scheduleClient) Delete(ctx context.Context, ac *auth.AuthContext, scheduleID string) error {
	return s.c.do(ctx, http.MethodDelete, "/v1/schedules/"+scheduleID, ac.TenantID, ac.PrincipalID, nil, nil, nil)
}

// --- SecretService ---

type secretClient struct{ c *HTTPClient }

// Secrets returns the secret surface of the client.
func (c *HTTPClient) Secrets() SecretService { return &secretClient{c: c} }

func (s *secretClient) List(ctx context.Context, ac *auth.AuthContext) ([]SecretMeta, error) {
	var out []SecretMeta
	err := s.c.do(ctx, http.MethodGet, "/v1/secrets", ac.TenantID, ac.PrincipalID, nil, nil, &out)
	return out, err
}

func (s *secretClient) Create(ctx context.Context, ac *auth.AuthContext, name, value, description string) (*SecretMeta, error) {
	var out SecretMeta
	body := map[string]any{"name": name, "value": value, "description": description}
	if err := s.c.do(ctx, http.MethodPost, "/v1/secrets", ac.TenantID, ac.PrincipalID, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *secretClient) Rotate(ctx context.Context, ac *auth.AuthContext, secretID, value string) (*SecretMeta, error) {
	var out SecretMeta
	body := map[string]any{"value": value}
	if err := s.c.do(ctx, http.MethodPost, "/v1/secrets/"+secretID+"/rotate", ac.TenantID, ac.PrincipalID, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *secretClient) Update(ctx context.Context, ac *auth.AuthContext, secretID string, patch map[string]any) (*SecretMeta, error) {
	var out SecretMeta
	if err := s.c.do(ctx, http.MethodPatch, "/v1/secrets/"+secretID, ac.TenantID, ac.PrincipalID, nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *secretClient) Delete(ctx context.Context, ac *auth.AuthContext, secretID string) error {
	return s.c.do(ctx, http.MethodDelete, "/v1/secrets/"+secretID, ac.TenantID, ac.PrincipalID, nil, nil, nil)
}

// --- HumanInputService ---

type humanInputClient struct{ c *HTTPClient }

// HumanInputs returns the human-input surface of the client.
func (c *HTTPClient) HumanInputs() HumanInputService { return &humanInputClient{c: c} }

func (h *humanInputClient) List(ctx context.Context, ac *auth.AuthContext, opts ListOptions) ([]map[string]any, error) {
	var out []map[string]any
	err := h.c.do(ctx, http.MethodGet, "/v1/human-inputs", ac.TenantID, ac.PrincipalID, pagingQuery(opts), nil, &out)
	return out, err
}

func (h *humanInputClient) Get(ctx context.Context, ac *auth.AuthContext, inputID string) (map[string]any, error) {
	var out map[string]any
	err := h.c.do(ctx, http.MethodGet, "/v1/human-inputs/"+inputID, ac.TenantID, ac.PrincipalID, nil, nil, &out)
	return out, err
}

func (h *humanInputClient) Resolve(ctx context.Context, ac *auth.AuthContext, inputID string, responseData map[string]any) (map[string]any, error) {
	var out map[string]any
	body := map[string]any{"responseData": responseData}
	err := h.c.do(ctx, http.MethodPost, "/v1/human-inputs/"+inputID+"/resolve", ac.TenantID, ac.PrincipalID, nil, body, &out)
	return out, err
}

func (h *humanInputClient) HasPendingForRun(ctx context.Context, tenantID, runID string) (bool, error) {
	var out struct {
		Pending bool `json:"pending"`
	}
	if err := h.c.do(ctx, http.MethodGet, "/v1/runs/"+runID+"/human-inputs/pending", tenantID, "", nil, nil, &out); err != nil {
		return false, err
	}
	return out.Pending, nil
}

// --- Audit store ---

type auditClient struct{ c *HTTPClient }

// AuditStore returns the audit surface of the client, consumed by the audit
// emitter. Writes are append-only; the platform API owns the records.
func (c *HTTPClient) AuditStore() audit.Store { return &auditClient{c: c} }

func (a *auditClient) Write(ctx context.Context, rec *audit.Record) error {
	return a.c.do(ctx, http.MethodPost, "/v1/audit", rec.TenantID, rec.Actor, nil, rec, nil)
}

// --- ComponentService ---

type componentClient struct{ c *HTTPClient }

// Components returns the component catalog surface of the client.
func (c *HTTPClient) Components() ComponentService { return &componentClient{c: c} }

func (cc *componentClient) List(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := cc.c.do(ctx, http.MethodGet, "/v1/components", "", "", nil, nil, &out)
	return out, err
}

func (cc *componentClient) Get(ctx context.Context, ref string) (map[string]any, error) {
	var out map[string]any
	err := cc.c.do(ctx, http.MethodGet, "/v1/components/"+url.PathEscape(ref), "", "", nil, nil, &out)
	return out, err
}
