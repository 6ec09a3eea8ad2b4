// Package integration runs ingestion steps as a dependency graph. Steps
// declare their upstream steps; the Executor orders them topologically,
// skips dependents of failed steps and records the run in the history store.
package integration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/spoke-connector/pkg/client"
	"github.com/Sternrassler/spoke-connector/pkg/graph"
	"github.com/rs/zerolog"
)

// ErrNoAccount is returned by Account before the account step ran.
var ErrNoAccount = errors.New("account entity not available in execution context")

// StepHandler does the work of one step.
type StepHandler func(ctx context.Context, exec *ExecutionContext) error

// Step is one unit of ingestion work.
type Step struct {
	ID   string
	Name string

	// Entities and Relationships list the _types the step produces.
	Entities      []string
	Relationships []string

	// DependsOn lists the ids of steps that must succeed first.
	DependsOn []string

	Handler StepHandler
}

// Instance identifies the configured integration instance.
type Instance struct {
	ID   string
	Name string
}

// ExecutionContext is the run-scoped state handed to every step.
type ExecutionContext struct {
	Instance Instance
	Client   *client.Client
	JobState graph.JobState
	Logger   zerolog.Logger

	// Watermark is the start of the last successful run. The executor sets
	// it from history before the first step.
	Watermark time.Time
	Lookback  time.Duration

	// RequestCap bounds fetched requests; 0 is uncapped.
	RequestCap int

	// Now defaults to time.Now.
	Now func() time.Time

	runID   string
	mu      sync.RWMutex
	account *graph.Entity
}

// RunID returns the id the executor assigned to this run.
func (e *ExecutionContext) RunID() string {
	return e.runID
}

// SetAccount stores the account entity for later steps.
func (e *ExecutionContext) SetAccount(account *graph.Entity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.account = account
}

// Account returns the entity stored by SetAccount, or ErrNoAccount.
func (e *ExecutionContext) Account() (*graph.Entity, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.account == nil {
		return nil, ErrNoAccount
	}
	return e.account, nil
}

func (e *ExecutionContext) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
