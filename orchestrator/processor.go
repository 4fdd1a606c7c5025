// Response processor - turns raw user text into a final answer.
//
// Information Hiding:
// - Routing between single-shot and multi-step paths
// - Prompt construction and model-call timeouts
// - Tool-call dispatch to the executor and the search manager

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/merlin/commands"
	"github.com/richinex/merlin/config"
	"github.com/richinex/merlin/dirs"
	"github.com/richinex/merlin/filesearch"
	"github.com/richinex/merlin/llm"
	"github.com/richinex/merlin/reasoning"
)

// Processor owns one user turn end-to-end: route, execute, synthesize.
// Turns are processed sequentially; the underlying registries are safe for
// concurrent use should that ever change.
type Processor struct {
	provider   llm.Provider
	executor   *commands.Executor
	search     *filesearch.Manager
	engine     *reasoning.Engine
	contexts   *reasoning.ContextManager
	dirs       *dirs.Manager
	router     *Router
	settings   config.Settings
	logger     *zap.Logger
	workingDir string
	onComplete func(reasoning.Chain)
}

// NewProcessor wires a processor from its collaborators.
func NewProcessor(
	provider llm.Provider,
	executor *commands.Executor,
	search *filesearch.Manager,
	dirManager *dirs.Manager,
	settings config.Settings,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &Processor{
		provider:   provider,
		executor:   executor,
		search:     search,
		engine:     reasoning.NewEngine(settings.Assistant.ChainRetention, logger),
		contexts:   reasoning.NewContextManager(logger),
		dirs:       dirManager,
		router:     NewRouter(),
		settings:   settings,
		logger:     logger,
		workingDir: wd,
	}
}

// WithRouter replaces the routing policy.
func (p *Processor) WithRouter(router *Router) *Processor {
	p.router = router
	return p
}

// WithWorkingDir overrides the working directory used for path resolution
// and context seeding.
func (p *Processor) WithWorkingDir(dir string) *Processor {
	p.workingDir = dir
	return p
}

// WithChainObserver registers a callback invoked with a snapshot of every
// chain the processor completes, before the chain may be evicted.
func (p *Processor) WithChainObserver(fn func(reasoning.Chain)) *Processor {
	p.onComplete = fn
	return p
}

// Engine exposes the chain registry for inspection.
func (p *Processor) Engine() *reasoning.Engine {
	return p.engine
}

// notifyCompleted hands a snapshot of the completed chain to the observer.
func (p *Processor) notifyCompleted(chainID string) {
	if p.onComplete == nil {
		return
	}
	chain, err := p.engine.Snapshot(chainID)
	if err != nil {
		p.logger.Warn("cannot snapshot completed chain",
			zap.String("chain_id", chainID), zap.Error(err))
		return
	}
	p.onComplete(chain)
}

// Respond processes one user turn without conversation history.
func (p *Processor) Respond(ctx context.Context, input string) (string, error) {
	return p.RespondWithHistory(ctx, input, nil)
}

// RespondWithHistory processes one user turn. History is carried into the
// single-shot path; the multi-step path plans from the input alone.
func (p *Processor) RespondWithHistory(ctx context.Context, input string, history []llm.ChatMessage) (string, error) {
	route := RouteSingleShot
	if p.settings.Assistant.MultiStep {
		route = p.router.Route(input, false)
	}
	p.logger.Debug("routed request",
		zap.String("route", route.String()),
		zap.String("input", input))

	if route == RouteMultiStep {
		return p.respondMultiStep(ctx, input, history)
	}
	return p.respondSingleShot(ctx, input, history)
}

// respondSingleShot delegates the whole request to the model with tool
// access. At most one round of tool calling is performed per turn.
func (p *Processor) respondSingleShot(ctx context.Context, input string, history []llm.ChatMessage) (string, error) {
	messages := p.conversation(input, history)

	mctx, cancel := p.modelContext(ctx)
	defer cancel()

	response, err := p.provider.ChatWithTools(mctx, messages, assistantTools())
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}

	if len(response.ToolCalls) == 0 {
		return response.Content, nil
	}

	call := response.ToolCalls[0]

	// A plan_reasoning call is the model classifying the request as
	// multi-step; the router confirms the escalation with the hint set.
	if planned := planEscalation(call); len(planned) > 0 && p.settings.Assistant.MultiStep {
		if p.router.Route(input, true) == RouteMultiStep {
			p.logger.Debug("model labeled request as multi-step",
				zap.String("input", input), zap.Int("steps", len(planned)))
			return p.respondEscalated(ctx, input, planned)
		}
	}

	// One round: execute the first requested tool, feed the result back.
	output := p.invokeToolCall(ctx, call)

	messages = append(messages, llm.ChatMessage{
		Role:      "assistant",
		Content:   response.Content,
		ToolCalls: []llm.ToolCall{call},
	})
	messages = append(messages, llm.ToolResultMessage(call.ID, output))

	fctx, fcancel := p.modelContext(ctx)
	defer fcancel()

	final, err := p.provider.ChatWithTools(fctx, messages, assistantTools())
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	return final.Content, nil
}

// invokeToolCall executes one model-requested tool call and renders its
// result as the text fed back to the model. Failures are reported in the
// text, never as errors.
func (p *Processor) invokeToolCall(ctx context.Context, call llm.ToolCall) string {
	tool := reasoning.ToolName(call.Name)
	args, err := reasoning.ParseToolArgs(tool, call.Arguments)
	if err != nil {
		p.logger.Warn("rejected tool call", zap.String("tool", call.Name), zap.Error(err))
		return fmt.Sprintf("Error: %v", err)
	}
	step := reasoning.Step{Tool: tool, Args: args}

	switch tool {
	case reasoning.ToolExecuteCommands:
		batch := p.executor.ExecuteStep(ctx, step, p.execContext())
		if batch.Output == "" && batch.Error != "" {
			return fmt.Sprintf("Error: %s", batch.Error)
		}
		return batch.Output
	case reasoning.ToolSearchFiles:
		outcome, err := p.search.ExecuteStep(step)
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		return outcome.StepResult().Output
	default:
		return fmt.Sprintf("Error: tool %q cannot be invoked directly", call.Name)
	}
}

// conversation assembles the message list for a model call, prepending the
// system prompt when the history does not carry one.
func (p *Processor) conversation(input string, history []llm.ChatMessage) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(history)+2)
	if len(history) == 0 || history[0].Role != "system" {
		messages = append(messages, llm.SystemMessage(p.systemPrompt()))
	}
	messages = append(messages, history...)
	messages = append(messages, llm.UserMessage(input))
	return messages
}

// systemPrompt states the assistant's capabilities and constraints.
func (p *Processor) systemPrompt() string {
	approved := p.dirs.GetAllDirectories()
	return fmt.Sprintf(`You are Merlin, a desktop assistant that can run shell commands and search the user's files.

Approved directories:
%s

Working directory: %s

Use the execute_commands tool for filesystem and system tasks and the search_files tool to look up indexed files. Commands are safety-verified; destructive or out-of-scope commands will be rejected. When a request needs several coordinated steps, call the plan_reasoning tool with the full plan instead of invoking tools one at a time. Answer plainly when no tool is needed.`,
		"- "+strings.Join(approved, "\n- "), p.workingDir)
}

// execContext builds the verification context for command execution.
func (p *Processor) execContext() commands.ExecContext {
	return commands.ExecContext{
		ApprovedDirs: p.dirs.GetAllDirectories(),
		WorkingDir:   p.workingDir,
	}
}

// modelContext bounds one model call by the configured timeout.
func (p *Processor) modelContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(p.settings.Assistant.ModelTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
