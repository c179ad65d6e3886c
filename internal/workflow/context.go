package workflow

import "fmt"

// Status is the terminal state of one executed step.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StepResult is the recorded outcome of one step. It is terminal: once
// written into an ExecutionContext it is never revised.
type StepResult struct {
	Status  Status
	Payload any
	Error   string
}

// ExecutionContext carries the trigger data of a run and the append-only map
// of step results, in execution order. Steps read predecessors through it and
// never mutate anything except by appending their own result.
type ExecutionContext struct {
	triggerData any
	results     map[string]StepResult
	order       []string
}

func newExecutionContext(triggerData any) *ExecutionContext {
	return &ExecutionContext{
		triggerData: triggerData,
		results:     make(map[string]StepResult),
	}
}

// TriggerData returns the validated trigger data of the run.
func (ec *ExecutionContext) TriggerData() any {
	return ec.triggerData
}

// StepResult returns the recorded result for a step id.
func (ec *ExecutionContext) StepResult(stepID string) (StepResult, bool) {
	result, ok := ec.results[stepID]
	return result, ok
}

// StepResults returns a copy of all recorded results keyed by step id.
func (ec *ExecutionContext) StepResults() map[string]StepResult {
	out := make(map[string]StepResult, len(ec.results))
	for id, result := range ec.results {
		out[id] = result
	}
	return out
}

// StepOrder returns the step ids in the order their results were recorded.
func (ec *ExecutionContext) StepOrder() []string {
	out := make([]string, len(ec.order))
	copy(out, ec.order)
	return out
}

// record appends a step result. A result for a step id may be written exactly
// once.
func (ec *ExecutionContext) record(stepID string, result StepResult) error {
	if _, exists := ec.results[stepID]; exists {
		return fmt.Errorf("step %q already has a recorded result", stepID)
	}
	ec.results[stepID] = result
	ec.order = append(ec.order, stepID)
	return nil
}

// RequireSuccess returns the payload of a predecessor step, or an error
// naming the step if it is missing or did not succeed. Steps that depend on
// a predecessor's payload must call this rather than assuming success.
func (ec *ExecutionContext) RequireSuccess(stepID string) (any, error) {
	result, ok := ec.results[stepID]
	if !ok {
		return nil, fmt.Errorf("required step %q has no recorded result", stepID)
	}
	if result.Status != StatusSuccess {
		return nil, fmt.Errorf("required step %q did not succeed: %s", stepID, result.Error)
	}
	return result.Payload, nil
}
