// Package history records connector runs. The start time of the last
// successful run is the watermark for incremental request syncs.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoExecution is returned when an instance has no successful run yet.
var ErrNoExecution = errors.New("no successful execution recorded")

// Execution is one finished run.
type Execution struct {
	RunID      uuid.UUID `json:"run_id"`
	InstanceID string    `json:"instance_id"`
	StartedOn  time.Time `json:"started_on"`
	EndedOn    time.Time `json:"ended_on"`
	Success    bool      `json:"success"`
}

// Duration returns how long the run took.
func (e Execution) Duration() time.Duration {
	return e.EndedOn.Sub(e.StartedOn)
}

// Store persists executions per integration instance.
type Store interface {
	// LastSuccessful returns the most recent successful execution, or
	// ErrNoExecution.
	LastSuccessful(ctx context.Context, instanceID string) (Execution, error)

	// Record stores a finished execution.
	Record(ctx context.Context, exec Execution) error
}

// Watermark returns the StartedOn of the last successful execution, or
// now minus lookback when there is none.
func Watermark(ctx context.Context, s Store, instanceID string, now time.Time, lookback time.Duration) (time.Time, error) {
	exec, err := s.LastSuccessful(ctx, instanceID)
	if errors.Is(err, ErrNoExecution) {
		return now.Add(-lookback), nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return exec.StartedOn, nil
}

// MemoryStore keeps executions in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string][]Execution
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]Execution)}
}

// LastSuccessful implements Store.
func (m *MemoryStore) LastSuccessful(ctx context.Context, instanceID string) (Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := m.runs[instanceID]
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Success {
			return runs[i], nil
		}
	}
	return Execution{}, ErrNoExecution
}

// Record implements Store.
func (m *MemoryStore) Record(ctx context.Context, exec Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[exec.InstanceID] = append(m.runs[exec.InstanceID], exec)
	return nil
}

// Executions returns every recorded execution for an instance, oldest first.
func (m *MemoryStore) Executions(instanceID string) []Execution {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Execution(nil), m.runs[instanceID]...)
}
