// Final-response synthesis over a finished chain.
//
// Information Hiding:
// - Local summary templates for the all-success and partial-failure cases
// - Model-delegated summarization and its fallback

package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/merlin/llm"
	"github.com/richinex/merlin/reasoning"
)

// synthesize produces the final text for a chain whose steps have all been
// attempted. Failures are summarized locally so the error reporting is
// deterministic; full success is summarized by the model with a local
// template as the fallback.
func (p *Processor) synthesize(ctx context.Context, chainID string, reasCtx *reasoning.Context) string {
	chain, err := p.engine.Snapshot(chainID)
	if err != nil {
		p.logger.Error("cannot snapshot chain for synthesis",
			zap.String("chain_id", chainID), zap.Error(err))
		return "I could not complete the request."
	}

	failed := failedStepIDs(chain)
	if len(failed) > 0 {
		return failureSummary(chain, failed)
	}

	if summary, err := p.summarizeWithModel(ctx, chain); err == nil {
		return summary
	} else {
		p.logger.Warn("model summarization failed, using local summary",
			zap.String("chain_id", chainID), zap.Error(err))
	}
	return successSummary(chain, reasCtx)
}

// summarizeWithModel asks the model to compose the final answer from the
// step descriptions and results.
func (p *Processor) summarizeWithModel(ctx context.Context, chain reasoning.Chain) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n\nSteps taken:\n", chain.Query)
	for _, step := range chain.Steps {
		fmt.Fprintf(&b, "%d. %s\n", step.ID+1, step.Description)
		if step.Result != nil {
			fmt.Fprintf(&b, "   Result: %s\n", firstLines(step.Result.Output, 10))
		}
	}

	mctx, cancel := p.modelContext(ctx)
	defer cancel()

	response, err := p.provider.Chat(mctx, []llm.ChatMessage{
		llm.SystemMessage("Summarize the completed task for the user in a short, direct answer. Mention concrete outcomes, not the mechanics."),
		llm.UserMessage(b.String()),
	})
	if err != nil {
		return "", err
	}
	if response.Content == "" {
		return "", fmt.Errorf("empty summary")
	}
	return response.Content, nil
}

// successSummary is the local template for a fully successful chain.
func successSummary(chain reasoning.Chain, reasCtx *reasoning.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Completed %d step(s) successfully.", len(chain.Steps))

	if value, ok := reasCtx.Get("last_search_files"); ok {
		if files, ok := value.([]string); ok && len(files) > 0 {
			fmt.Fprintf(&b, " Found %d file(s)", len(files))
			if len(files) <= 5 {
				fmt.Fprintf(&b, ": %s", strings.Join(files, ", "))
			}
			b.WriteString(".")
		}
	}
	if value, ok := reasCtx.Get("command_history"); ok {
		if history, ok := value.([]reasoning.CommandOutcome); ok && len(history) > 0 {
			fmt.Fprintf(&b, " Ran %d command(s).", len(history))
		}
	}
	return b.String()
}

// failureSummary names the failing step indices and surfaces the first
// error message.
func failureSummary(chain reasoning.Chain, failed []int) string {
	succeeded := len(chain.Steps) - len(failed)

	indices := make([]string, 0, len(failed))
	firstError := ""
	for _, id := range failed {
		indices = append(indices, fmt.Sprintf("%d", id+1))
		if firstError == "" && chain.Steps[id].Result != nil {
			firstError = chain.Steps[id].Result.Error
		}
	}

	summary := fmt.Sprintf("Completed %d of %d step(s). Step(s) %s failed.",
		succeeded, len(chain.Steps), strings.Join(indices, ", "))
	if firstError != "" {
		summary += fmt.Sprintf(" First error: %s", firstError)
	}
	return summary
}

// failedStepIDs returns the ids of attempted steps that failed.
func failedStepIDs(chain reasoning.Chain) []int {
	var failed []int
	for _, step := range chain.Steps {
		if step.Result != nil && !step.Result.Success {
			failed = append(failed, step.ID)
		}
	}
	return failed
}

// firstLines truncates text to at most n lines for prompt construction.
func firstLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[:n], "\n") + "\n..."
}
