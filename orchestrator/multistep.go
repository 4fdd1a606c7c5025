// Multi-step path: plan a chain, drive it step by step, synthesize.
//
// Information Hiding:
// - Planning prompt and plan decoding
// - Per-step dispatch and failure containment
// - Chain/context eviction after completion

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/merlin/internal/jsonx"
	"github.com/richinex/merlin/llm"
	"github.com/richinex/merlin/reasoning"
)

// respondMultiStep creates a chain, plans it, executes every step, and
// synthesizes the final response. An empty or failed plan falls back to the
// single-shot path for the same query rather than completing a no-op chain.
func (p *Processor) respondMultiStep(ctx context.Context, input string, history []llm.ChatMessage) (string, error) {
	chainID := p.engine.CreateChain(input)
	reasCtx := p.contexts.CreateContext(chainID, p.dirs.GetAllDirectories(), p.workingDir)

	planned, err := p.plan(ctx, input)
	if err != nil {
		p.logger.Warn("planning failed, falling back to single-shot",
			zap.String("chain_id", chainID), zap.Error(err))
	}
	if len(planned) == 0 {
		response, err := p.respondSingleShot(ctx, input, history)
		final := response
		if err != nil {
			// Complete the chain with the failure so it never lingers in
			// the planning state beyond eviction's reach.
			final = fmt.Sprintf("Error: %v", err)
		}
		_ = p.engine.CompleteChain(chainID, final)
		p.notifyCompleted(chainID)
		p.evict()
		return response, err
	}

	if err := p.engine.Plan(chainID, planned); err != nil {
		return "", fmt.Errorf("recording plan: %w", err)
	}
	return p.runChain(ctx, chainID, reasCtx)
}

// respondEscalated runs a plan the model proposed from the single-shot
// path after labeling the request as requiring multiple steps.
func (p *Processor) respondEscalated(ctx context.Context, input string, planned []reasoning.PlannedStep) (string, error) {
	chainID := p.engine.CreateChain(input)
	reasCtx := p.contexts.CreateContext(chainID, p.dirs.GetAllDirectories(), p.workingDir)

	if max := p.settings.Assistant.MaxPlanSteps; max > 0 && len(planned) > max {
		planned = planned[:max]
	}
	if err := p.engine.Plan(chainID, planned); err != nil {
		return "", fmt.Errorf("recording plan: %w", err)
	}
	return p.runChain(ctx, chainID, reasCtx)
}

// runChain drives a planned chain through every step, synthesizes the
// final response, and completes and evicts the chain.
func (p *Processor) runChain(ctx context.Context, chainID string, reasCtx *reasoning.Context) (string, error) {
	for {
		step, err := p.engine.CurrentStep(chainID)
		if errors.Is(err, reasoning.ErrNoCurrentStep) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("fetching current step: %w", err)
		}

		result := p.executeStep(ctx, chainID, step, reasCtx)
		reasCtx.RecordStepResult(step.ID, result)
		if err := p.engine.ExecuteStep(chainID, result); err != nil {
			return "", fmt.Errorf("recording step result: %w", err)
		}
	}

	final := p.synthesize(ctx, chainID, reasCtx)
	if err := p.engine.CompleteChain(chainID, final); err != nil {
		return "", fmt.Errorf("completing chain: %w", err)
	}
	p.notifyCompleted(chainID)
	p.evict()
	return final, nil
}

// planEscalation decodes a plan_reasoning call made outside the planning
// prompt. A non-empty decode is the model explicitly labeling the request
// as one that requires multiple steps.
func planEscalation(call llm.ToolCall) []reasoning.PlannedStep {
	if call.Name != "plan_reasoning" {
		return nil
	}
	var envelope planEnvelope
	if err := json.Unmarshal(call.Arguments, &envelope); err != nil {
		return nil
	}
	return envelope.Steps
}

// planEnvelope is the argument shape of the plan_reasoning tool call.
type planEnvelope struct {
	Steps []reasoning.PlannedStep `json:"steps"`
}

// plan asks the model to decompose the query. The model may answer with a
// plan_reasoning tool call or with a bare JSON plan in the content.
func (p *Processor) plan(ctx context.Context, input string) ([]reasoning.PlannedStep, error) {
	prompt := fmt.Sprintf(`Decompose the user's request into at most %d ordered steps.

Each step has a "description", an optional "tool_name" (execute_commands, search_files, or synthesize), and optional "tool_args" matching the tool. Use execute_commands with a "commands" array of shell lines, search_files with a "query". End with a synthesize step only when the results need summarizing.

Call the plan_reasoning tool with the steps, or answer with a JSON array of steps.`,
		p.settings.Assistant.MaxPlanSteps)

	messages := []llm.ChatMessage{
		llm.SystemMessage(prompt),
		llm.UserMessage(input),
	}

	mctx, cancel := p.modelContext(ctx)
	defer cancel()

	response, err := p.provider.ChatWithTools(mctx, messages, []llm.ToolDefinition{planReasoningTool()})
	if err != nil {
		return nil, fmt.Errorf("planning call failed: %w", err)
	}

	var planned []reasoning.PlannedStep
	if len(response.ToolCalls) > 0 && response.ToolCalls[0].Name == "plan_reasoning" {
		var envelope planEnvelope
		if err := json.Unmarshal(response.ToolCalls[0].Arguments, &envelope); err != nil {
			return nil, fmt.Errorf("invalid plan arguments: %w", err)
		}
		planned = envelope.Steps
	} else {
		envelope, err := jsonx.Decode[planEnvelope](response.Content)
		if err == nil && len(envelope.Steps) > 0 {
			planned = envelope.Steps
		} else if planned, err = jsonx.Decode[[]reasoning.PlannedStep](response.Content); err != nil {
			return nil, fmt.Errorf("invalid plan response: %w", err)
		}
	}

	if max := p.settings.Assistant.MaxPlanSteps; max > 0 && len(planned) > max {
		planned = planned[:max]
	}
	return planned, nil
}

// executeStep dispatches one step to its tool. Every failure mode is
// contained here and converted into a failure result so the chain proceeds.
func (p *Processor) executeStep(ctx context.Context, chainID string, step reasoning.Step, reasCtx *reasoning.Context) reasoning.StepResult {
	p.logger.Debug("executing step",
		zap.String("chain_id", chainID),
		zap.Int("step_id", step.ID),
		zap.String("tool", string(step.Tool)))

	switch step.Tool {
	case reasoning.ToolExecuteCommands:
		batch := p.executor.ExecuteStep(ctx, step, p.execContext())
		reasCtx.UpdateFromCommandResult(batch.Outcome())
		return batch.StepResult()

	case reasoning.ToolSearchFiles:
		outcome, err := p.search.ExecuteStep(step)
		if err != nil {
			return failureResult(err)
		}
		reasCtx.UpdateFromSearchResult(outcome.ContextOutcome())
		return outcome.StepResult()

	case reasoning.ToolNone, reasoning.ToolSynthesize:
		return p.synthesizeStep(ctx, chainID, step)

	default:
		// Unknown tool name: appendSteps recorded the parse error.
		err := step.ArgsErr
		if err == nil {
			err = fmt.Errorf("unknown tool: %q", step.Tool)
		}
		return failureResult(err)
	}
}

// synthesizeStep answers an untooled step with a direct model call, feeding
// in the accumulated prior-step results.
func (p *Processor) synthesizeStep(ctx context.Context, chainID string, step reasoning.Step) reasoning.StepResult {
	stepCtx, err := p.contexts.StepContext(chainID, step.ID)
	if err != nil {
		return failureResult(err)
	}

	prompt := step.Description
	if prior := priorResultsText(stepCtx, step.ID); prior != "" {
		prompt = fmt.Sprintf("%s\n\nResults from earlier steps:\n%s", step.Description, prior)
	}

	mctx, cancel := p.modelContext(ctx)
	defer cancel()

	response, err := p.provider.Chat(mctx, []llm.ChatMessage{
		llm.SystemMessage("You are completing one step of a larger task. Answer concisely."),
		llm.UserMessage(prompt),
	})
	if err != nil {
		return failureResult(fmt.Errorf("model call failed: %w", err))
	}
	return reasoning.StepResult{Success: true, Output: response.Content}
}

// priorResultsText renders the previous_step_<i>_result entries for a prompt.
func priorResultsText(stepCtx map[string]interface{}, stepID int) string {
	var b strings.Builder
	for i := 0; i < stepID; i++ {
		value, ok := stepCtx[fmt.Sprintf("previous_step_%d_result", i)]
		if !ok {
			continue
		}
		result, ok := value.(reasoning.StepResult)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "Step %d (success=%t):\n%s\n", i, result.Success, result.Output)
	}
	return b.String()
}

// evict drops completed chains beyond the retention limit together with
// their contexts.
func (p *Processor) evict() {
	if evicted := p.engine.EvictCompleted(); len(evicted) > 0 {
		p.contexts.Remove(evicted...)
	}
}

func failureResult(err error) reasoning.StepResult {
	return reasoning.StepResult{
		Success: false,
		Output:  fmt.Sprintf("Error: %v", err),
		Error:   err.Error(),
	}
}
