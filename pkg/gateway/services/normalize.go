// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/studiomcp/gateway/pkg/gateway"
)

// NormalizeArtifactList presents a single shape regardless of what the
// backing service returned: a bare JSON array, an object with "artifacts",
// or an object with "items". Either "mimeType" or "contentType" populates
// MimeType.
func NormalizeArtifactList(raw []byte) ([]Artifact, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	parsed := gjson.ParseBytes(raw)
	list := parsed
	if !parsed.IsArray() {
		switch {
		case parsed.Get("artifacts").Exists():
			list = parsed.Get("artifacts")
		case parsed.Get("items").Exists():
			list = parsed.Get("items")
		default:
			return nil, fmt.Errorf("%w: unrecognized artifact list shape", gateway.ErrInvalidInput)
		}
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: artifact list is not an array", gateway.ErrInvalidInput)
	}

	var out []Artifact
	list.ForEach(func(_, item gjson.Result) bool {
		out = append(out, artifactFromJSON(item))
		return true
	})
	return out, nil
}

func artifactFromJSON(item gjson.Result) Artifact {
	a := Artifact{
		ID:        item.Get("id").String(),
		Name:      item.Get("name").String(),
		MimeType:  item.Get("mimeType").String(),
		SizeBytes: item.Get("sizeBytes").Int(),
		RunID:     item.Get("runId").String(),
	}
	if a.MimeType == "" {
		a.MimeType = item.Get("contentType").String()
	}
	if a.SizeBytes == 0 {
		a.SizeBytes = item.Get("size").Int()
	}
	if created := item.Get("createdAt").String(); created != "" {
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			a.CreatedAt = ts
		}
	}
	return a
}

// NormalizeItemList extracts a []map[string]any from a response that may be
// a bare array or an object wrapping the rows under "items".
func NormalizeItemList(raw []byte) ([]map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	parsed := gjson.ParseBytes(raw)
	list := parsed
	if !parsed.IsArray() {
		if items := parsed.Get("items"); items.Exists() {
			list = items
		} else {
			return nil, fmt.Errorf("%w: unrecognized list shape", gateway.ErrInvalidInput)
		}
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: list is not an array", gateway.ErrInvalidInput)
	}

	var out []map[string]any
	list.ForEach(func(_, item gjson.Result) bool {
		if m, ok := item.Value().(map[string]any); ok {
			out = append(out, m)
		}
		return true
	})
	return out, nil
}
