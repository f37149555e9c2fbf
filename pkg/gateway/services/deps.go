// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"fmt"

	"github.com/studiomcp/gateway/pkg/gateway"
)

// Deps is the explicit dependencies record handed to the tool dispatcher at
// session construction. Optional services are nil; tools must go through the
// Require accessors, which turn a missing service into a structured
// "<name> service is not available" error instead of a nil dereference.
type Deps struct {
	Workflows   WorkflowService
	Engine      EngineClient
	Runs        RunRepository
	Trace       TraceService
	Logs        LogService
	NodeIO      NodeIOService
	Artifacts   ArtifactService
	Schedules   ScheduleService
	Secrets     SecretService
	HumanInputs HumanInputService
	Components  ComponentService
}

func unavailable(name string) error {
	return fmt.Errorf("%s %w", name, gateway.ErrServiceUnavailable)
}

// RequireWorkflows returns the workflow service or an unavailability error.
func (d *Deps) RequireWorkflows() (WorkflowService, error) {
	if d == nil || d.Workflows == nil {
		return nil, unavailable("workflow")
	}
	return d.Workflows, nil
}

// RequireEngine returns the engine client or an unavailability error.
func (d *Deps) RequireEngine() (EngineClient, error) {
	if d == nil || d.Engine == nil {
		return nil, unavailable("workflow engine")
	}
	return d.Engine, nil
}

// RequireRuns returns the run repository or an unavailability error.
func (d *Deps) RequireRuns() (RunRepository, error) {
	if d == nil || d.Runs == nil {
		return nil, unavailable("run")
	}
	return d.Runs, nil
}

// RequireTrace returns the trace service or an unavailability error.
func (d *Deps) RequireTrace() (TraceService, error) {
	if d == nil || d.Trace == nil {
		return nil, unavailable("trace")
	}
	return d.Trace, nil
}

// RequireLogs returns the log service or an unavailability error.
func (d *Deps) RequireLogs() (LogService, error) {
	if d == nil || d.Logs == nil {
		return nil, unavailable("log")
	}
	return d.Logs, nil
}

// RequireNodeIO returns the node-I/O service or an unavailability error.
func (d *Deps) RequireNodeIO() (NodeIOService, error) {
	if d == nil || d.NodeIO == nil {
		return nil, unavailable("node I/O")
	}
	return d.NodeIO, nil
}

// RequireArtifacts returns the artifact service or an unavailability error.
func (d *Deps) RequireArtifacts() (ArtifactService, error) {
	if d == nil || d.Artifacts == nil {
		return nil, unavailable("artifact")
	}
	return d.Artifacts, nil
}

// RequireSchedules returns the schedule service or an unavailability error.
func (d *Deps) RequireSchedules() (ScheduleService, error) {
	if d == nil || d.Schedules == nil {
		return nil, unavailable("schedule")
	}
	return d.Schedules, nil
}

// RequireSecrets returns the secret service or an unavailability error.
func (d *Deps) RequireSecrets() (SecretService, error) {
	if d == nil || d.Secrets == nil {
		return nil, unavailable("secret")
	}
	return d.Secrets, nil
}

// RequireHumanInputs returns the human-input service or an unavailability error.
func (d *Deps) RequireHumanInputs() (HumanInputService, error) {
	if d == nil || d.HumanInputs == nil {
		return nil, unavailable("human input")
	}
	return d.HumanInputs, nil
}

// RequireComponents returns the component catalog or an unavailability error.
func (d *Deps) RequireComponents() (ComponentService, error) {
	if d == nil || d.Components == nil {
		return nil, unavailable("component")
	}
	return d.Components, nil
}
