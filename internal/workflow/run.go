package workflow

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/cloo-solutions/postcraft/internal/telemetry"
)

// Run is one execution instance of a committed workflow. Every run gets a
// fresh execution context; independent runs share nothing but the immutable
// workflow definition.
type Run struct {
	ID       string
	workflow *Workflow
}

// RunResult is the outcome of a completed run.
type RunResult struct {
	RunID   string
	Results map[string]StepResult
}

// Failed reports whether any recorded step failed.
func (r *RunResult) Failed() bool {
	for _, result := range r.Results {
		if result.Status == StatusFailed {
			return true
		}
	}
	return false
}

// RequirePayload returns the payload of a successful step in the run's
// results, or an error naming the step if it is missing or failed. Callers
// adopting a nested run's terminal result use this.
func (r *RunResult) RequirePayload(stepID string) (any, error) {
	result, ok := r.Results[stepID]
	if !ok {
		return nil, fmt.Errorf("run %s: step %q has no recorded result", r.RunID, stepID)
	}
	if result.Status != StatusSuccess {
		return nil, fmt.Errorf("run %s: step %q did not succeed: %s", r.RunID, stepID, result.Error)
	}
	return result.Payload, nil
}

// FirstError returns the error description of the first failed step, if any.
func (r *RunResult) FirstError() (stepID, errMsg string, ok bool) {
	for id, result := range r.Results {
		if result.Status == StatusFailed {
			return id, result.Error, true
		}
	}
	return "", "", false
}

// CreateRun returns a new run of a committed workflow.
func (w *Workflow) CreateRun() (*Run, error) {
	if !w.committed {
		return nil, fmt.Errorf("workflow %q is not committed", w.name)
	}
	return &Run{
		ID:       uuid.NewString(),
		workflow: w,
	}, nil
}

// Start validates the trigger data and executes the committed steps in
// order. A step failure records a failed result and halts the chain; steps
// after the failure never execute and get no entry. A trigger validation
// failure is returned as an error before any step runs.
func (r *Run) Start(ctx context.Context, triggerData any) (*RunResult, error) {
	if r.workflow.validate != nil {
		if err := r.workflow.validate(triggerData); err != nil {
			return nil, fmt.Errorf("invalid trigger for workflow %q: %w", r.workflow.name, err)
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "workflow.run", telemetry.SpanAttributes{
		Workflow: r.workflow.name,
		RunID:    r.ID,
	})
	defer span.End()

	ec := newExecutionContext(triggerData)

	for _, step := range r.workflow.steps {
		result := r.executeStep(ctx, step, ec)
		if err := ec.record(step.ID, result); err != nil {
			// Unreachable for a committed workflow: step ids are unique.
			return nil, err
		}
		if result.Status == StatusFailed {
			log.Printf("workflow %s run %s: step %s failed: %s", r.workflow.name, r.ID, step.ID, result.Error)
			span.SetError(fmt.Errorf("step %s failed: %s", step.ID, result.Error))
			break
		}
	}

	return &RunResult{
		RunID:   r.ID,
		Results: ec.StepResults(),
	}, nil
}

func (r *Run) executeStep(ctx context.Context, step Step, ec *ExecutionContext) StepResult {
	stepCtx, span := telemetry.StartSpan(ctx, "workflow.step", telemetry.SpanAttributes{
		Workflow: r.workflow.name,
		RunID:    r.ID,
		StepID:   step.ID,
	})
	defer span.End()

	payload, err := step.Execute(stepCtx, ec)
	if err != nil {
		span.SetError(err)
		return StepResult{
			Status: StatusFailed,
			Error:  err.Error(),
		}
	}

	return StepResult{
		Status:  StatusSuccess,
		Payload: payload,
	}
}

// RunToCompletion creates a run of the workflow, starts it, and returns its
// terminal result. This is the composition primitive: a step's executor may
// itself run a nested workflow to completion and adopt the outcome.
func RunToCompletion(ctx context.Context, w *Workflow, triggerData any) (*RunResult, error) {
	run, err := w.CreateRun()
	if err != nil {
		return nil, err
	}
	return run.Start(ctx, triggerData)
}
