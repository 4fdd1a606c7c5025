package reasoning

import (
	"errors"
	"time"
)

// Chain lifecycle errors.
var (
	ErrChainNotFound   = errors.New("chain not found")
	ErrChainCompleted  = errors.New("chain already completed")
	ErrContextNotFound = errors.New("context not found")
	ErrNoCurrentStep   = errors.New("no current step")
)

// ChainState is the lifecycle position of a chain. "All steps executed" and
// "response synthesized" are deliberately distinct: the first means the step
// cursor ran off the end, the second means a final answer was recorded.
type ChainState string

const (
	StatePlanning            ChainState = "planning"
	StateExecuting           ChainState = "executing"
	StateAllStepsExecuted    ChainState = "all_steps_executed"
	StateResponseSynthesized ChainState = "response_synthesized"
)

// IsTerminal reports whether the chain accepts no further step results.
func (s ChainState) IsTerminal() bool {
	return s == StateAllStepsExecuted || s == StateResponseSynthesized
}

// Chain is an ordered, stateful sequence of steps addressing one query.
// All mutation goes through the owning Engine.
type Chain struct {
	ID             string
	Query          string
	Steps          []*Step
	CurrentStepIdx int
	State          ChainState
	FinalResponse  string
	CreatedAt      time.Time
	CompletedAt    time.Time
}

func newChain(id, query string) *Chain {
	return &Chain{
		ID:        id,
		Query:     query,
		State:     StatePlanning,
		CreatedAt: time.Now(),
	}
}

// appendSteps adds planned steps, assigning sequential identities and
// validating tool bindings. A step whose tool name or arguments do not
// validate is kept with ArgsErr set so execution can fail it in order.
func (c *Chain) appendSteps(planned []PlannedStep) {
	for _, p := range planned {
		step := &Step{
			ID:          len(c.Steps),
			Description: p.Description,
			Tool:        ToolName(p.ToolName),
		}
		args, err := ParseToolArgs(step.Tool, p.ToolArgs)
		if err != nil {
			step.ArgsErr = err
		} else {
			step.Args = args
		}
		c.Steps = append(c.Steps, step)
	}
	if len(c.Steps) > 0 && c.State == StatePlanning {
		c.State = StateExecuting
	}
}

// currentStep returns the step at the cursor.
func (c *Chain) currentStep() (*Step, error) {
	if c.CurrentStepIdx >= len(c.Steps) {
		return nil, ErrNoCurrentStep
	}
	return c.Steps[c.CurrentStepIdx], nil
}

// recordStepResult completes the current step and advances the cursor.
// Running off the end transitions to StateAllStepsExecuted; the final
// response stays unset until the orchestrator synthesizes one. A chain in
// a terminal state accepts no further results, so a truncating completion
// can never be undone by a late step.
func (c *Chain) recordStepResult(result StepResult) error {
	if c.State.IsTerminal() {
		if c.CurrentStepIdx >= len(c.Steps) {
			return ErrNoCurrentStep
		}
		return ErrChainCompleted
	}
	step, err := c.currentStep()
	if err != nil {
		return err
	}
	step.complete(result)
	c.CurrentStepIdx++
	if c.CurrentStepIdx == len(c.Steps) {
		c.State = StateAllStepsExecuted
	}
	return nil
}

// complete records the final response. Allowed from any state; completing a
// chain with steps remaining truncates it, which the early-exit paths rely on.
func (c *Chain) complete(finalResponse string) {
	c.FinalResponse = finalResponse
	c.State = StateResponseSynthesized
	c.CompletedAt = time.Now()
}

// Completed reports whether the chain reached a terminal state.
func (c *Chain) Completed() bool {
	return c.State.IsTerminal()
}
