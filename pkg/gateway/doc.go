// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gateway contains the domain types and errors shared by the
// Studio MCP Gateway subpackages.
//
// The gateway exposes the Studio workflow-automation platform as a Model
// Context Protocol (MCP) server over streamable HTTP. Subpackages implement
// the session layer, the permission-gated tool dispatcher, the background
// task engine and the run-status resolver; this package holds what they all
// agree on: run statuses, cached snapshots, and sentinel errors.
package gateway
