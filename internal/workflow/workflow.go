// Package workflow implements the execution engine behind the content
// pipelines: committed step chains, append-only execution contexts, isolated
// runs, and the parallel fan-out coordinator.
package workflow

import (
	"context"
	"fmt"
)

// Step is a named unit of work. Execute receives the run's context and the
// shared execution context holding the trigger data and all prior step
// results. The returned value becomes the step's success payload.
type Step struct {
	ID      string
	Execute func(ctx context.Context, ec *ExecutionContext) (any, error)
}

// TriggerValidator validates a run's trigger data before the first step
// executes.
type TriggerValidator func(triggerData any) error

// Workflow is an ordered chain of steps fixed at commit time. A committed
// workflow is immutable and can back any number of independent runs.
type Workflow struct {
	name      string
	validate  TriggerValidator
	steps     []Step
	committed bool
	buildErr  error
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithTriggerValidator sets the trigger validator run at the start of every
// run.
func WithTriggerValidator(validate TriggerValidator) Option {
	return func(w *Workflow) {
		w.validate = validate
	}
}

// New creates an uncommitted workflow.
func New(name string, opts ...Option) *Workflow {
	w := &Workflow{name: name}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the workflow name.
func (w *Workflow) Name() string {
	return w.name
}

// Step appends the first step of the chain. Returns the workflow for
// chaining; construction errors surface at Commit.
func (w *Workflow) Step(s Step) *Workflow {
	return w.append(s)
}

// Then appends the next step of the chain.
func (w *Workflow) Then(s Step) *Workflow {
	return w.append(s)
}

func (w *Workflow) append(s Step) *Workflow {
	if w.buildErr != nil {
		return w
	}
	if w.committed {
		w.buildErr = fmt.Errorf("workflow %q is already committed", w.name)
		return w
	}
	if s.ID == "" {
		w.buildErr = fmt.Errorf("workflow %q: step id is required", w.name)
		return w
	}
	if s.Execute == nil {
		w.buildErr = fmt.Errorf("workflow %q: step %q has no executor", w.name, s.ID)
		return w
	}
	for _, existing := range w.steps {
		if existing.ID == s.ID {
			w.buildErr = fmt.Errorf("workflow %q: duplicate step id %q", w.name, s.ID)
			return w
		}
	}
	w.steps = append(w.steps, s)
	return w
}

// Commit freezes the step chain. An empty workflow is invalid. After Commit
// the workflow definition never changes.
func (w *Workflow) Commit() error {
	if w.buildErr != nil {
		return w.buildErr
	}
	if w.committed {
		return fmt.Errorf("workflow %q is already committed", w.name)
	}
	if len(w.steps) == 0 {
		return fmt.Errorf("workflow %q has no steps", w.name)
	}
	w.committed = true
	return nil
}

// MustCommit commits the workflow and panics on error. Intended for
// workflows assembled at startup.
func (w *Workflow) MustCommit() *Workflow {
	if err := w.Commit(); err != nil {
		panic(err)
	}
	return w
}
