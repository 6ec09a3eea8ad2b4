package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/spoke-connector/pkg/graph"
	"github.com/Sternrassler/spoke-connector/pkg/history"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder builds steps that append their id to a shared trace.
type recorder struct {
	trace []string
	fail  map[string]error
}

func (r *recorder) step(id string, deps ...string) Step {
	return Step{
		ID:        id,
		Name:      "Fetch " + id,
		DependsOn: deps,
		Handler: func(ctx context.Context, exec *ExecutionContext) error {
			r.trace = append(r.trace, id)
			return r.fail[id]
		},
	}
}

func newExec() *ExecutionContext {
	return &ExecutionContext{
		Instance: Instance{ID: "inst", Name: "atSpoke"},
		JobState: graph.NewMemoryStore(),
		Logger:   zerolog.Nop(),
		Lookback: 14 * 24 * time.Hour,
	}
}

func TestBuildPlan_Validation(t *testing.T) {
	r := &recorder{}
	tests := []struct {
		name  string
		steps []Step
		want  error
	}{
		{
			name:  "duplicate id",
			steps: []Step{r.step("a"), r.step("a")},
			want:  ErrDuplicateStep,
		},
		{
			name:  "unknown dependency",
			steps: []Step{r.step("a", "missing")},
			want:  ErrUnknownDependency,
		},
		{
			name:  "self cycle",
			steps: []Step{r.step("a", "a")},
			want:  ErrCycle,
		},
		{
			name:  "two step cycle",
			steps: []Step{r.step("root"), r.step("a", "b"), r.step("b", "a")},
			want:  ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExecutor(tt.steps, nil)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuildPlan_RequiresHandler(t *testing.T) {
	_, err := NewExecutor([]Step{{ID: "a"}}, nil)
	require.Error(t, err)
}

func TestExecutor_OrderIsTopologicalAndDeterministic(t *testing.T) {
	r := &recorder{}
	steps := []Step{
		r.step("fetch-requests", "fetch-request-types"),
		r.step("fetch-users", "fetch-account"),
		r.step("fetch-account"),
		r.step("fetch-request-types", "fetch-account"),
		r.step("fetch-teams", "fetch-account"),
	}

	ex, err := NewExecutor(steps, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"fetch-account",
		"fetch-users",
		"fetch-request-types",
		"fetch-requests",
		"fetch-teams",
	}, ex.Order())

	_, err = ex.Run(context.Background(), newExec())
	require.NoError(t, err)
	assert.Equal(t, ex.Order(), r.trace)
}

func TestExecutor_SkipsTransitiveDependents(t *testing.T) {
	boom := errors.New("boom")
	r := &recorder{fail: map[string]error{"b": boom}}
	steps := []Step{
		r.step("a"),
		r.step("b", "a"),
		r.step("c", "b"),
		r.step("d", "c"),
		r.step("e", "a"),
	}

	ex, err := NewExecutor(steps, nil)
	require.NoError(t, err)

	summary, err := ex.Run(context.Background(), newExec())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsRunError(err))

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Len(t, runErr.Failures, 1)
	assert.Equal(t, "b", runErr.Failures[0].StepID)
	assert.Equal(t, []string{"c", "d"}, runErr.Skipped)

	assert.Equal(t, []string{"a", "b", "e"}, r.trace)
	require.Len(t, summary.Steps, 5)
	assert.Equal(t, StepSkipped, summary.Steps[2].Status)
	assert.Equal(t, "b", summary.Steps[2].SkippedBecause)
	assert.Equal(t, "c", summary.Steps[3].SkippedBecause)
	assert.Equal(t, StepSucceeded, summary.Steps[4].Status)
	assert.False(t, summary.Succeeded())
	assert.Contains(t, err.Error(), "step b: boom")
}

func TestExecutor_MultipleFailures(t *testing.T) {
	r := &recorder{fail: map[string]error{
		"users": errors.New("users down"),
		"teams": errors.New("teams down"),
	}}
	ex, err := NewExecutor([]Step{r.step("users"), r.step("teams"), r.step("webhooks")}, nil)
	require.NoError(t, err)

	_, err = ex.Run(context.Background(), newExec())
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Len(t, runErr.Failures, 2)
	assert.Equal(t, []string{"users", "teams", "webhooks"}, r.trace)
}

func TestExecutor_CancelledContextFailsRemainingSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	steps := []Step{
		{ID: "first", Handler: func(ctx context.Context, exec *ExecutionContext) error {
			ran++
			cancel()
			return nil
		}},
		{ID: "second", Handler: func(ctx context.Context, exec *ExecutionContext) error {
			ran++
			return nil
		}},
	}
	ex, err := NewExecutor(steps, nil)
	require.NoError(t, err)

	_, err = ex.Run(ctx, newExec())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ran)
}

func TestExecutor_AccountHandoff(t *testing.T) {
	acct, err := graph.NewEntity(graph.EntitySpec{Key: "at-spoke-account:inst", Type: "atspoke_account", Class: []string{"Account"}})
	require.NoError(t, err)

	var seen *graph.Entity
	steps := []Step{
		{ID: "child", DependsOn: []string{"account"}, Handler: func(ctx context.Context, exec *ExecutionContext) error {
			a, err := exec.Account()
			seen = a
			return err
		}},
		{ID: "account", Handler: func(ctx context.Context, exec *ExecutionContext) error {
			exec.SetAccount(acct)
			return nil
		}},
	}
	ex, err := NewExecutor(steps, nil)
	require.NoError(t, err)

	_, err = ex.Run(context.Background(), newExec())
	require.NoError(t, err)
	assert.Same(t, acct, seen)
}

func TestExecutionContext_AccountMissing(t *testing.T) {
	_, err := newExec().Account()
	assert.ErrorIs(t, err, ErrNoAccount)
}

func TestExecutor_HistoryWatermarkAndRecording(t *testing.T) {
	store := history.NewMemoryStore()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	lookback := 14 * 24 * time.Hour

	var watermarks []time.Time
	steps := []Step{{ID: "requests", Handler: func(ctx context.Context, exec *ExecutionContext) error {
		watermarks = append(watermarks, exec.Watermark)
		return nil
	}}}
	ex, err := NewExecutor(steps, store)
	require.NoError(t, err)

	exec := newExec()
	exec.Now = func() time.Time { return now }
	summary, err := ex.Run(context.Background(), exec)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, summary.RunID, exec.RunID())

	second := newExec()
	second.Now = func() time.Time { return now.Add(time.Hour) }
	_, err = ex.Run(context.Background(), second)
	require.NoError(t, err)

	require.Len(t, watermarks, 2)
	assert.True(t, watermarks[0].Equal(now.Add(-lookback)), "first run uses the lookback window")
	assert.True(t, watermarks[1].Equal(now), "second run uses the first run's start")

	runs := store.Executions("inst")
	require.Len(t, runs, 2)
	assert.True(t, runs[0].Success)
	assert.Equal(t, summary.RunID, runs[0].RunID.String())
}

func TestExecutor_FailedRunDoesNotAdvanceWatermark(t *testing.T) {
	store := history.NewMemoryStore()
	start := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(context.Background(), history.Execution{InstanceID: "inst", StartedOn: start, EndedOn: start, Success: true}))

	ex, err := NewExecutor([]Step{{ID: "x", Handler: func(ctx context.Context, exec *ExecutionContext) error {
		return errors.New("fail")
	}}}, store)
	require.NoError(t, err)

	_, err = ex.Run(context.Background(), newExec())
	require.Error(t, err)

	last, err := store.LastSuccessful(context.Background(), "inst")
	require.NoError(t, err)
	assert.True(t, last.StartedOn.Equal(start))
	assert.False(t, store.Executions("inst")[1].Success)
}

func TestExecutor_RequiresJobState(t *testing.T) {
	ex, err := NewExecutor(nil, nil)
	require.NoError(t, err)
	_, err = ex.Run(context.Background(), &ExecutionContext{})
	assert.Error(t, err)
}
