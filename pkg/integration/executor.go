package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/spoke-connector/pkg/history"
	"github.com/Sternrassler/spoke-connector/pkg/logging"
	"github.com/Sternrassler/spoke-connector/pkg/pagination"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "spoke_step_duration_seconds",
	Help:    "Ingestion step duration in seconds by step and outcome",
	Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
}, []string{"step", "outcome"})

// StepStatus is the outcome of one step.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepResult reports one step of a run.
type StepResult struct {
	ID       string        `json:"id"`
	Status   StepStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`

	// SkippedBecause names the failed or skipped dependency.
	SkippedBecause string `json:"skipped_because,omitempty"`
}

// Summary reports a whole run.
type Summary struct {
	RunID     string       `json:"run_id"`
	StartedOn time.Time    `json:"started_on"`
	EndedOn   time.Time    `json:"ended_on"`
	Watermark time.Time    `json:"watermark"`
	Steps     []StepResult `json:"steps"`
}

// Succeeded reports whether every step succeeded.
func (s *Summary) Succeeded() bool {
	for _, r := range s.Steps {
		if r.Status != StepSucceeded {
			return false
		}
	}
	return true
}

// StepFailure is one failed step.
type StepFailure struct {
	StepID string
	Err    error
}

// RunError aggregates the failures of a run.
type RunError struct {
	Failures []StepFailure
	Skipped  []string
}

// Error implements the error interface.
func (e *RunError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("step %s: %v", f.StepID, f.Err)
	}
	msg := fmt.Sprintf("run failed: %s", strings.Join(parts, "; "))
	if len(e.Skipped) > 0 {
		msg += fmt.Sprintf(" (skipped: %s)", strings.Join(e.Skipped, ", "))
	}
	return msg
}

// Unwrap exposes every step error to errors.Is and errors.As.
func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Executor runs a validated step graph.
type Executor struct {
	plan    *plan
	history history.Store
	logger  zerolog.Logger
}

// NewExecutor validates steps. store may be nil, in which case no watermark
// is read and no execution is recorded.
func NewExecutor(steps []Step, store history.Store) (*Executor, error) {
	p, err := buildPlan(steps)
	if err != nil {
		return nil, err
	}
	return &Executor{
		plan:    p,
		history: store,
		logger:  log.With().Str("component", "executor").Logger(),
	}, nil
}

// Order returns step ids in the order Run executes them.
func (e *Executor) Order() []string {
	return e.plan.orderedIDs()
}

// Run executes every step once, in topological order. A failed step's
// transitive dependents are skipped; independent steps still run. Entities
// written before a failure stay in the job state. The returned error is a
// *RunError when any step failed.
func (e *Executor) Run(ctx context.Context, exec *ExecutionContext) (*Summary, error) {
	if exec == nil || exec.JobState == nil {
		return nil, fmt.Errorf("execution context with job state is required")
	}

	if exec.Lookback <= 0 {
		exec.Lookback = pagination.DefaultLookback
	}

	runUUID := uuid.New()
	runID := runUUID.String()
	exec.runID = runID
	exec.Logger = logging.WithRun(exec.Logger, runID)
	logger := logging.WithRun(e.logger, runID)

	summary := &Summary{RunID: runID, StartedOn: exec.now()}

	if e.history != nil {
		wm, err := history.Watermark(ctx, e.history, exec.Instance.ID, summary.StartedOn, exec.Lookback)
		if err != nil {
			return nil, fmt.Errorf("read execution history: %w", err)
		}
		exec.Watermark = wm
	}
	summary.Watermark = exec.Watermark

	logger.Info().
		Str("instance", exec.Instance.ID).
		Time("watermark", exec.Watermark).
		Strs("order", e.Order()).
		Msg("Run started")

	status := make(map[string]StepStatus, len(e.plan.steps))
	runErr := &RunError{}

	for _, idx := range e.plan.order {
		step := e.plan.steps[idx]
		stepLogger := logger.With().Str("step", step.ID).Logger()

		if blocker := blockedBy(step, status); blocker != "" {
			status[step.ID] = StepSkipped
			runErr.Skipped = append(runErr.Skipped, step.ID)
			summary.Steps = append(summary.Steps, StepResult{ID: step.ID, Status: StepSkipped, SkippedBecause: blocker})
			stepLogger.Warn().Str("dependency", blocker).Msg("Step skipped")
			continue
		}

		stepLogger.Info().Str("name", step.Name).Msg("Step started")
		start := time.Now()
		err := ctx.Err()
		if err == nil {
			err = step.Handler(ctx, exec)
		}
		elapsed := time.Since(start)

		result := StepResult{ID: step.ID, Duration: elapsed}
		if err != nil {
			result.Status = StepFailed
			result.Error = err.Error()
			runErr.Failures = append(runErr.Failures, StepFailure{StepID: step.ID, Err: err})
			stepLogger.Error().Err(err).Dur("duration", elapsed).Msg("Step failed")
		} else {
			result.Status = StepSucceeded
			stepLogger.Info().Dur("duration", elapsed).Msg("Step completed")
		}
		status[step.ID] = result.Status
		summary.Steps = append(summary.Steps, result)
		stepDuration.WithLabelValues(step.ID, string(result.Status)).Observe(elapsed.Seconds())
	}

	summary.EndedOn = exec.now()

	if e.history != nil {
		record := history.Execution{
			RunID:      runUUID,
			InstanceID: exec.Instance.ID,
			StartedOn:  summary.StartedOn,
			EndedOn:    summary.EndedOn,
			Success:    summary.Succeeded(),
		}
		// A detached context so a cancelled run is still recorded as failed.
		if err := e.history.Record(context.WithoutCancel(ctx), record); err != nil {
			logger.Error().Err(err).Msg("Failed to record execution")
			if len(runErr.Failures) == 0 {
				return summary, fmt.Errorf("record execution: %w", err)
			}
		}
	}

	logger.Info().
		Bool("success", summary.Succeeded()).
		Int("failed", len(runErr.Failures)).
		Int("skipped", len(runErr.Skipped)).
		Dur("duration", summary.EndedOn.Sub(summary.StartedOn)).
		Msg("Run finished")

	if len(runErr.Failures) > 0 {
		return summary, runErr
	}
	return summary, nil
}

// blockedBy returns the first dependency that did not succeed.
func blockedBy(step Step, status map[string]StepStatus) string {
	for _, dep := range step.DependsOn {
		if status[dep] != StepSucceeded {
			return dep
		}
	}
	return ""
}

// IsRunError reports whether err carries a *RunError.
func IsRunError(err error) bool {
	var runErr *RunError
	return errors.As(err, &runErr)
}
