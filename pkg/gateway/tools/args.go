// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"fmt"

	"github.com/studiomcp/gateway/pkg/gateway"
	"github.com/studiomcp/gateway/pkg/gateway/services"
)

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required argument %q", gateway.ErrInvalidInput, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: argument %q must be a non-empty string", gateway.ErrInvalidInput, key)
	}
	return s, nil
}

// optStringArg extracts an optional string argument, returning def when
// absent.
func optStringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

// optIntArg extracts an optional integer argument. JSON numbers arrive as
// float64.
func optIntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// optBoolArg extracts an optional bool argument as a pointer, nil when
// absent.
func optBoolArg(args map[string]any, key string) *bool {
	if v, ok := args[key].(bool); ok {
		return &v
	}
	return nil
}

// mapArg extracts an optional object argument, returning nil when absent.
func mapArg(args map[string]any, key string) (map[string]any, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: argument %q must be an object", gateway.ErrInvalidInput, key)
	}
	return m, nil
}

// requiredMapArg extracts a required object argument.
func requiredMapArg(args map[string]any, key string) (map[string]any, error) {
	m, err := mapArg(args, key)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: missing required argument %q", gateway.ErrInvalidInput, key)
	}
	return m, nil
}

// listOpts builds paging options from the conventional limit/offset
// arguments.
func listOpts(args map[string]any) services.ListOptions {
	return services.ListOptions{
		Limit:  optIntArg(args, "limit", 0),
		Offset: optIntArg(args, "offset", 0),
	}
}
