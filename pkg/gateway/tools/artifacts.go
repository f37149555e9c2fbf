// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studiomcp/gateway/pkg/gateway"
	"github.com/studiomcp/gateway/pkg/gateway/services"
)

const (
	// defaultViewLimit is the window size when view_artifact gets no limit.
	defaultViewLimit = 4096

	// binaryProbeSize is how many leading bytes are scanned for a null byte
	// when the MIME type does not identify the content as text.
	binaryProbeSize = 512
)

func artifactTools() []Definition {
	return []Definition{
		{
			Name:        "list_artifacts",
			Description: "List artifacts in the caller's workspace.",
			Permission:  "artifacts.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {"type": "integer", "minimum": 1, "maximum": 200},
					"offset": {"type": "integer", "minimum": 0}
				},
				"additionalProperties": false
			}`),
			Handler: handleListArtifacts,
		},
		{
			Name:        "list_run_artifacts",
			Description: "List the artifacts produced by one run.",
			Permission:  "artifacts.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"runId": {"type": "string"}
				},
				"required": ["runId"],
				"additionalProperties": false
			}`),
			Handler: handleListRunArtifacts,
		},
		{
			Name: "view_artifact",
			Description: "Read a window of an artifact's content. Text-like artifacts return " +
				"a UTF-8 slice with a hasMore flag; binary artifacts return metadata only.",
			Permission: "artifacts.read",
			Kind:       KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"artifactId": {"type": "string"},
					"offset": {"type": "integer", "minimum": 0},
					"limit": {"type": "integer", "minimum": 1, "maximum": 262144}
				},
				"required": ["artifactId"],
				"additionalProperties": false
			}`),
			Handler: handleViewArtifact,
		},
	}
}

func handleListArtifacts(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireArtifacts()
	if err != nil {
		return nil, err
	}
	raw, err := svc.ListArtifacts(ctx, inv.Auth, listOpts(inv.Args))
	if err != nil {
		return nil, err
	}
	return services.NormalizeArtifactList(raw)
}

func handleListRunArtifacts(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireArtifacts()
	if err != nil {
		return nil, err
	}
	runID, err := stringArg(inv.Args, "runId")
	if err != nil {
		return nil, err
	}
	raw, err := svc.ListRunArtifacts(ctx, inv.Auth, runID)
	if err != nil {
		return nil, err
	}
	return services.NormalizeArtifactList(raw)
}

func handleViewArtifact(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireArtifacts()
	if err != nil {
		return nil, err
	}
	artifactID, err := stringArg(inv.Args, "artifactId")
	if err != nil {
		return nil, err
	}
	offset := optIntArg(inv.Args, "offset", 0)
	limit := optIntArg(inv.Args, "limit", defaultViewLimit)
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0 and limit > 0", gateway.ErrInvalidInput)
	}

	dl, err := svc.DownloadArtifact(ctx, inv.Auth, artifactID)
	if err != nil {
		return nil, err
	}
	totalSize := len(dl.Buffer)

	if !isTextLike(dl.Artifact.MimeType, dl.Buffer) {
		return map[string]any{
			"artifact":  dl.Artifact,
			"totalSize": totalSize,
			"binary":    true,
		}, nil
	}

	end := offset + limit
	if offset > totalSize {
		offset = totalSize
	}
	if end > totalSize {
		end = totalSize
	}
	return map[string]any{
		"artifact":  dl.Artifact,
		"totalSize": totalSize,
		"offset":    offset,
		"limit":     limit,
		"content":   string(dl.Buffer[offset:end]),
		"hasMore":   offset+limit < totalSize,
	}, nil
}

// isTextLike classifies content for windowed viewing: a text-ish MIME type,
// or no null byte in the first 512 bytes. The null-byte heuristic can
// misclassify UTF-16; callers see such content as binary metadata.
func isTextLike(mimeType string, buf []byte) bool {
	mt := strings.ToLower(mimeType)
	for _, prefix := range []string{"text/", "application/json", "application/xml", "application/yaml"} {
		if strings.HasPrefix(mt, prefix) {
			return true
		}
	}
	probe := buf
	if len(probe) > binaryProbeSize {
		probe = probe[:binaryProbeSize]
	}
	return bytes.IndexByte(probe, 0) < 0
}
