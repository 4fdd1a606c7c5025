// Command execution - verified subprocess runs with structured results.
//
// Information Hiding:
// - Subprocess invocation and stream capture
// - Output classification into success/failure
// - History log and unsafe-attempt accounting

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/merlin/reasoning"
)

// noOutputMarker is returned when a command succeeds silently.
const noOutputMarker = "(no output)"

// Executor runs verified shell commands and keeps process-wide execution
// accounting. Safe for concurrent use.
type Executor struct {
	verifier *Verifier
	timeout  time.Duration
	logger   *zap.Logger

	mu             sync.Mutex
	history        []string
	unsafeAttempts int
}

// NewExecutor creates an executor with a 30 second default timeout.
func NewExecutor(verifier *Verifier, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		verifier: verifier,
		timeout:  30 * time.Second,
		logger:   logger,
	}
}

// WithTimeout sets the per-command timeout.
func (e *Executor) WithTimeout(timeout time.Duration) *Executor {
	e.timeout = timeout
	return e
}

// Execute verifies and runs one command. Rejections and subprocess failures
// are reported in the result, never as an error to the caller.
func (e *Executor) Execute(ctx context.Context, command string, ec ExecContext) Result {
	safe, reason := e.verifier.VerifyWithContext(command, ec)
	if !safe {
		e.recordRejection(command, reason)
		return rejectedResult(command, reason)
	}

	e.recordAccepted(command)
	return e.run(ctx, command)
}

// run launches the command under the shell and classifies its output.
func (e *Executor) run(ctx context.Context, command string) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctxErr := ctx.Err(); ctxErr != nil {
		msg := fmt.Sprintf("command canceled: %v", ctxErr)
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			msg = fmt.Sprintf("command timed out after %s", e.timeout)
		}
		return Result{
			Command: command,
			Success: false,
			Output:  "Error: " + msg,
			Error:   msg,
		}
	}

	result := Result{Command: command}
	if cmd.ProcessState != nil {
		code := cmd.ProcessState.ExitCode()
		result.ReturnCode = &code
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// The subprocess never launched.
			result.Error = err.Error()
			result.Output = fmt.Sprintf("Error: %v", err)
			return result
		}
	}

	out := strings.TrimRight(stdout.String(), "\n")
	errOut := strings.TrimRight(stderr.String(), "\n")
	switch {
	case out != "":
		result.Success = true
		result.Output = out
	case errOut != "":
		result.Success = false
		result.Output = fmt.Sprintf("Error: %s", errOut)
		result.Error = errOut
	default:
		result.Success = true
		result.Output = noOutputMarker
	}
	return result
}

// ExecuteBatch runs commands sequentially, preserving ordering effects such
// as a mkdir one command and a mv into it the next.
func (e *Executor) ExecuteBatch(ctx context.Context, cmds []string, ec ExecContext) BatchResult {
	results := make([]Result, 0, len(cmds))
	for _, command := range cmds {
		results = append(results, e.Execute(ctx, command, ec))
	}
	return aggregate(results)
}

// ExecuteBackground verifies and launches a command detached from the
// process group with both streams discarded. Success reflects the launch
// only; completion is never observed.
func (e *Executor) ExecuteBackground(ctx context.Context, command string, ec ExecContext) Result {
	safe, reason := e.verifier.VerifyWithContext(command, ec)
	if !safe {
		e.recordRejection(command, reason)
		return rejectedResult(command, reason)
	}

	e.recordAccepted(command)

	cmd := exec.Command("sh", "-c", command)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return Result{
			Command: command,
			Success: false,
			Output:  fmt.Sprintf("Error: %v", err),
			Error:   err.Error(),
		}
	}
	// Reap without observing.
	go func() { _ = cmd.Wait() }()

	e.logger.Debug("launched background command",
		zap.String("command", command), zap.Int("pid", cmd.Process.Pid))
	return Result{
		Command: command,
		Success: true,
		Output:  fmt.Sprintf("Started in background (pid %d)", cmd.Process.Pid),
	}
}

// GenerateCommand maps a file-organization action to a shell command line.
// Move and copy create the target directory first. An unknown action yields
// an empty string; the caller must treat that as a no-op.
func GenerateCommand(action string, files []string, targetDir string) string {
	if len(files) == 0 || (targetDir == "" && action != "delete") {
		return ""
	}

	quoted := make([]string, 0, len(files))
	for _, f := range files {
		quoted = append(quoted, quotePath(f))
	}
	joined := strings.Join(quoted, " ")

	switch action {
	case "move":
		return fmt.Sprintf("mkdir -p %s && mv %s %s", quotePath(targetDir), joined, quotePath(targetDir))
	case "copy":
		return fmt.Sprintf("mkdir -p %s && cp %s %s", quotePath(targetDir), joined, quotePath(targetDir))
	case "delete":
		return fmt.Sprintf("rm %s", joined)
	default:
		return ""
	}
}

// ExecuteStep dispatches an execute_commands step. Explicit commands win;
// the action triple is the fallback. A step carrying neither fails.
func (e *Executor) ExecuteStep(ctx context.Context, step reasoning.Step, ec ExecContext) BatchResult {
	if step.Tool != reasoning.ToolExecuteCommands {
		return failedBatch(fmt.Sprintf("step %d is bound to %q, not execute_commands", step.ID, step.Tool))
	}
	if step.ArgsErr != nil {
		return failedBatch(step.ArgsErr.Error())
	}
	args := step.Args.Execute
	if args == nil {
		return failedBatch("execute_commands step has no arguments")
	}

	if len(args.Commands) > 0 {
		if args.Background && len(args.Commands) == 1 {
			result := e.ExecuteBackground(ctx, args.Commands[0], ec)
			return aggregate([]Result{result})
		}
		return e.ExecuteBatch(ctx, args.Commands, ec)
	}

	if args.Action != "" && len(args.Files) > 0 {
		command := GenerateCommand(args.Action, args.Files, args.TargetDir)
		if command == "" {
			return failedBatch(fmt.Sprintf("cannot generate a command for action %q", args.Action))
		}
		return aggregate([]Result{e.Execute(ctx, command, ec)})
	}

	return failedBatch("execute_commands step has neither commands nor an action")
}

// History returns a copy of the accepted-command log.
func (e *Executor) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.history...)
}

// UnsafeAttempts returns how many commands verification has rejected.
func (e *Executor) UnsafeAttempts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unsafeAttempts
}

func (e *Executor) recordAccepted(command string) {
	e.mu.Lock()
	e.history = append(e.history, command)
	e.mu.Unlock()
}

func (e *Executor) recordRejection(command, reason string) {
	e.mu.Lock()
	e.unsafeAttempts++
	count := e.unsafeAttempts
	e.mu.Unlock()

	e.logger.Warn("rejected unsafe command",
		zap.String("command", command),
		zap.String("reason", reason),
		zap.Int("unsafe_attempts", count))
}

// quotePath shell-quotes a path using single quotes.
func quotePath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
