// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package telemetry exposes the gateway's Prometheus metrics: tool call
// counts by outcome, permission denials, and gauges for active sessions and
// background tasks.
//
// A nil *Metrics is valid and records nothing, so instrumented code never
// needs to nil-check before recording.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels one tool call's result.
type Outcome string

// Tool call outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// Metrics is the gateway's Prometheus surface. Each Metrics owns its own
// registry so tests never collide on duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls *prometheus.CounterVec
	denials   *prometheus.CounterVec
}

// NewMetrics creates the metric set on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio_gateway",
			Name:      "tool_calls_total",
			Help:      "MCP tool calls by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio_gateway",
			Name:      "permission_denials_total",
			Help:      "Tool calls denied by the permission gate, by permission path.",
		}, []string{"permission"}),
	}
	registry.MustRegister(m.toolCalls, m.denials)
	return m
}

// RecordToolCall counts one tool invocation.
func (m *Metrics) RecordToolCall(tool string, outcome Outcome) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, string(outcome)).Inc()
}

// RecordDenial counts one permission-gate denial.
func (m *Metrics) RecordDenial(permission string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(permission).Inc()
}

// ObserveActiveSessions registers a gauge backed by the given callback.
func (m *Metrics) ObserveActiveSessions(fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "studio_gateway",
		Name:      "active_sessions",
		Help:      "Number of live MCP sessions.",
	}, fn))
}

// ObserveActiveTasks registers a gauge backed by the given callback.
func (m *Metrics) ObserveActiveTasks(fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "studio_gateway",
		Name:      "active_tasks",
		Help:      "Number of background tasks not yet evicted.",
	}, fn))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the registry for tests.
func (m *Metrics) Gather() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
