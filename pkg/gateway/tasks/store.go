// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tasks implements the background-task engine for long-running
// workflow runs.
//
// A task-supporting tool creates a Task, starts the run, and spawns a
// detached monitor that polls run status and finalizes the task. Tasks are
// owned by the process, not by the session that created them: a client may
// reconnect on a new session and still query its tasks.
package tasks

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studiomcp/gateway/pkg/gateway"
)

// State is a task's logical state.
type State string

// Task states. The three non-working states are terminal.
const (
	StateWorking   State = "working"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// IsTerminal reports whether the state never changes again.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Task is a background handle for one workflow run.
type Task struct {
	mu sync.RWMutex

	id        string
	runID     string
	state     State
	status    string // engine-observed status string, echoed for display
	result    map[string]any
	createdAt time.Time
	expiresAt time.Time
}

// ID returns the opaque task ID.
func (t *Task) ID() string { return t.id }

// RunID returns the associated workflow run ID.
func (t *Task) RunID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.runID
}

// Snapshot is an immutable copy of a task's observable fields.
type Snapshot struct {
	TaskID    string         `json:"taskId"`
	RunID     string         `json:"runId,omitempty"`
	State     State          `json:"state"`
	Status    string         `json:"status,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Snapshot returns a consistent copy of the task's state.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		TaskID:    t.id,
		RunID:     t.runID,
		State:     t.state,
		Status:    t.status,
		Result:    t.result,
		CreatedAt: t.createdAt,
		ExpiresAt: t.expiresAt,
	}
}

// Store holds tasks keyed by ID with TTL eviction. It is shared between
// monitors (writers) and the task-query tools (readers); all state
// transitions are per-task atomic, and writes to terminal tasks are
// rejected so terminality is monotonic.
type Store struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	stopCh chan struct{}
	once   sync.Once
}

// NewStore creates a task store and starts its TTL eviction worker.
func NewStore(sweepInterval time.Duration) *Store {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	s := &Store{
		tasks:  make(map[string]*Task),
		stopCh: make(chan struct{}),
	}
	go s.evictionLoop(sweepInterval)
	return s
}

func (s *Store) evictionLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictExpired(time.Now())
		case <-s.stopCh:
			return
		}
	}
}

func (s *Store) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tasks {
		t.mu.RLock()
		expired := now.After(t.expiresAt)
		t.mu.RUnlock()
		if expired {
			delete(s.tasks, id)
		}
	}
}

// Create registers a new working task with the given TTL.
func (s *Store) Create(ttl time.Duration) *Task {
	now := time.Now().UTC()
	t := &Task{
		id:        uuid.New().String(),
		state:     StateWorking,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	s.mu.Lock()
	s.tasks[t.id] = t
	s.mu.Unlock()
	return t
}

// Get returns the task with the given ID.
func (s *Store) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gateway.ErrTaskNotFound, id)
	}
	return t, nil
}

// BindRun associates the task with its workflow run. Called once, right
// after the engine accepts the run.
func (s *Store) BindRun(taskID, runID string) error {
	t, err := s.Get(taskID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runID = runID
	return nil
}

// UpdateTaskStatus records a non-terminal progress update: the mapped task
// state plus the engine-observed status string. Rejected once the task is
// terminal.
func (s *Store) UpdateTaskStatus(taskID string, state State, engineStatus string) error {
	t, err := s.Get(taskID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsTerminal() {
		return fmt.Errorf("%w: %s", gateway.ErrTaskTerminal, taskID)
	}
	t.state = state
	t.status = engineStatus
	return nil
}

// StoreTaskResult performs the terminal transition: it sets the terminal
// state and the result payload in one atomic step. A task that is already
// terminal rejects the write, which makes concurrent finalization attempts
// (monitor vs. explicit cancel) safe: first writer wins.
func (s *Store) StoreTaskResult(taskID string, state State, result map[string]any) error {
	if !state.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal state", gateway.ErrInvalidInput, state)
	}
	t, err := s.Get(taskID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsTerminal() {
		return fmt.Errorf("%w: %s", gateway.ErrTaskTerminal, taskID)
	}
	t.state = state
	t.result = result
	return nil
}

// Len returns the number of live tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Stop terminates the eviction worker. Idempotent.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}
