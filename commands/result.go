package commands

import (
	"fmt"
	"strings"

	"github.com/richinex/merlin/reasoning"
)

// Result is the outcome of one command invocation. Produced fresh per
// invocation and never mutated after return.
type Result struct {
	Command    string `json:"command"`
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	ReturnCode *int   `json:"return_code,omitempty"`
}

// Outcome converts the result into the slice the reasoning context records.
func (r Result) Outcome() reasoning.CommandOutcome {
	return reasoning.CommandOutcome{
		Command: r.Command,
		Success: r.Success,
		Output:  r.Output,
		Error:   r.Error,
	}
}

// rejectedResult builds the refusal returned for commands that fail
// verification. The triggering reason is preserved verbatim.
func rejectedResult(command, reason string) Result {
	return Result{
		Command: command,
		Success: false,
		Output:  fmt.Sprintf("Command rejected for safety: %s", reason),
		Error:   fmt.Sprintf("command rejected: %s", reason),
	}
}

// BatchResult aggregates sequential command invocations. Success is the
// logical AND of the individual results.
type BatchResult struct {
	Success bool     `json:"success"`
	Output  string   `json:"output"`
	Error   string   `json:"error,omitempty"`
	Results []Result `json:"results"`
}

// aggregate builds a BatchResult from ordered sub-results, concatenating
// outputs under per-command headers.
func aggregate(results []Result) BatchResult {
	batch := BatchResult{Success: true, Results: results}
	var out strings.Builder
	for i, r := range results {
		if i > 0 {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, "$ %s\n%s", r.Command, r.Output)
		if !r.Success {
			batch.Success = false
			if batch.Error == "" {
				batch.Error = r.Error
			}
		}
	}
	batch.Output = out.String()
	return batch
}

// failedBatch builds a batch-shaped failure with no sub-results.
func failedBatch(message string) BatchResult {
	return BatchResult{Success: false, Error: message}
}

// Outcome summarizes the batch for the reasoning context. The command field
// carries the individual command lines joined with "; ".
func (b BatchResult) Outcome() reasoning.CommandOutcome {
	cmds := make([]string, 0, len(b.Results))
	for _, r := range b.Results {
		cmds = append(cmds, r.Command)
	}
	return reasoning.CommandOutcome{
		Command: strings.Join(cmds, "; "),
		Success: b.Success,
		Output:  b.Output,
		Error:   b.Error,
	}
}

// StepResult converts the batch into a reasoning step result.
func (b BatchResult) StepResult() reasoning.StepResult {
	return reasoning.StepResult{
		Success: b.Success,
		Output:  b.Output,
		Error:   b.Error,
		Payload: b.Results,
	}
}
