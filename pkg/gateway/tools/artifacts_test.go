// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway/services"
)

func artifactDeps(svc services.ArtifactService) *Deps {
	return &Deps{Services: &services.Deps{Artifacts: svc}}
}

func downloadOf(mimeType string, content []byte) *fakeArtifactService {
	return &fakeArtifactService{
		downloadFn: func(context.Context, *auth.AuthContext, string) (*services.ArtifactDownload, error) {
			return &services.ArtifactDownload{
				Buffer: content,
				Artifact: services.Artifact{
					ID:        "art-1",
					Name:      "report",
					MimeType:  mimeType,
					SizeBytes: int64(len(content)),
				},
			}, nil
		},
	}
}

func viewArtifact(t *testing.T, svc services.ArtifactService, args map[string]any) map[string]any {
	t.Helper()
	inv := &Invocation{Auth: memberAuth(), Deps: artifactDeps(svc), Args: args}
	result, err := handleViewArtifact(context.Background(), inv)
	require.NoError(t, err)
	out, ok := result.(map[string]any)
	require.True(t, ok)
	return out
}

func TestViewArtifactWindowing(t *testing.T) {
	t.Parallel()

	content := []byte(strings.Repeat("abcdefghij", 10)) // 100 bytes
	svc := downloadOf("text/plain", content)

	out := viewArtifact(t, svc, map[string]any{
		"artifactId": "art-1",
		"offset":     float64(10),
		"limit":      float64(20),
	})
	assert.Equal(t, string(content[10:30]), out["content"])
	assert.Equal(t, 100, out["totalSize"])
	assert.Equal(t, true, out["hasMore"])

	// Window reaching exactly the end: no more content.
	out = viewArtifact(t, svc, map[string]any{
		"artifactId": "art-1",
		"offset":     float64(80),
		"limit":      float64(20),
	})
	assert.Equal(t, string(content[80:]), out["content"])
	assert.Equal(t, false, out["hasMore"])

	// Offset past the end clamps to empty content.
	out = viewArtifact(t, svc, map[string]any{
		"artifactId": "art-1",
		"offset":     float64(500),
		"limit":      float64(20),
	})
	assert.Equal(t, "", out["content"])
	assert.Equal(t, false, out["hasMore"])
}

func TestViewArtifactDefaultWindow(t *testing.T) {
	t.Parallel()

	content := []byte(strings.Repeat("x", defaultViewLimit+1))
	out := viewArtifact(t, downloadOf("text/plain", content), map[string]any{
		"artifactId": "art-1",
	})
	assert.Len(t, out["content"], defaultViewLimit)
	assert.Equal(t, true, out["hasMore"])
}

func TestViewArtifactBinaryReturnsMetadataOnly(t *testing.T) {
	t.Parallel()

	// Null byte in the probe window and a non-text MIME type.
	content := append([]byte{0x89, 'P', 'N', 'G', 0x00}, []byte("....")...)
	out := viewArtifact(t, downloadOf("image/png", content), map[string]any{
		"artifactId": "art-1",
	})

	assert.Equal(t, true, out["binary"])
	assert.Equal(t, len(content), out["totalSize"])
	_, hasContent := out["content"]
	assert.False(t, hasContent, "binary artifacts must not leak content bytes")
}

func TestViewArtifactJSONMimeIsTextLike(t *testing.T) {
	t.Parallel()

	out := viewArtifact(t, downloadOf("application/json; charset=utf-8", []byte(`{"a":1}`)), map[string]any{
		"artifactId": "art-1",
	})
	assert.Equal(t, `{"a":1}`, out["content"])
}

func TestViewArtifactUnknownMimeWithoutNullBytesIsText(t *testing.T) {
	t.Parallel()

	out := viewArtifact(t, downloadOf("application/octet-stream", []byte("plain enough")), map[string]any{
		"artifactId": "art-1",
	})
	assert.Equal(t, "plain enough", out["content"])
}

func TestIsTextLike(t *testing.T) {
	t.Parallel()

	assert.True(t, isTextLike("text/csv", nil))
	assert.True(t, isTextLike("application/yaml", nil))
	assert.True(t, isTextLike("", []byte("no nulls here")))
	assert.False(t, isTextLike("application/octet-stream", []byte{'a', 0x00, 'b'}))

	// A null byte beyond the probe window does not flip the verdict.
	buf := append(make([]byte, 0, binaryProbeSize+1), []byte(strings.Repeat("a", binaryProbeSize))...)
	buf = append(buf, 0x00)
	assert.True(t, isTextLike("", buf))
}
