// Command execution for CLI commands.
//
// Information Hiding:
// - Provider/settings/assistant wiring hidden
// - Chat loop, history trimming, and session persistence hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/richinex/merlin/commands"
	"github.com/richinex/merlin/config"
	"github.com/richinex/merlin/dirs"
	"github.com/richinex/merlin/filesearch"
	"github.com/richinex/merlin/llm"
	"github.com/richinex/merlin/orchestrator"
	"github.com/richinex/merlin/reasoning"
	"github.com/richinex/merlin/storage"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	Verbose  bool
}

// configDirName is the per-user state directory under the home directory.
const configDirName = ".merlin"

// dbFileName is the conversation database inside the config directory.
const dbFileName = "merlin.db"

// configDirPath resolves (and creates) the per-user config directory.
func configDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	dir := filepath.Join(home, configDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return dir, nil
}

// newLogger builds the CLI logger. Verbose mode uses the development
// console encoder at debug level; otherwise only warnings surface.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

// assistant bundles the processor with the settings it was built from.
type assistant struct {
	processor *orchestrator.Processor
	settings  config.Settings
	logger    *zap.Logger
}

// buildAssistant wires the full assistant stack for the chosen provider.
func buildAssistant(opts Options, logger *zap.Logger) (*assistant, error) {
	if opts.Provider == "" {
		return nil, fmt.Errorf("--provider is required for this command")
	}

	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}

	provider, err := createProvider(opts.Provider, settings)
	if err != nil {
		return nil, err
	}

	configDir, err := configDirPath()
	if err != nil {
		return nil, err
	}

	verifier := commands.NewVerifier(logger).
		WithPermissiveParse(settings.Assistant.PermissiveParse)
	executor := commands.NewExecutor(verifier, logger).
		WithTimeout(time.Duration(settings.Assistant.CommandTimeoutSecs) * time.Second)

	search, err := filesearch.NewManager(configDir, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize file search: %w", err)
	}
	dirManager, err := dirs.NewManager(configDir, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize directory manager: %w", err)
	}

	processor := orchestrator.NewProcessor(provider, executor, search, dirManager, settings, logger)
	return &assistant{processor: processor, settings: settings, logger: logger}, nil
}

func createProvider(providerName string, settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(providerName)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(providerName)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}

// Ask answers a single query and prints the response.
func Ask(ctx context.Context, query string, opts Options) error {
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := buildAssistant(opts, logger)
	if err != nil {
		return err
	}

	response, err := a.processor.Respond(ctx, query)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", response)
	return nil
}

// Chat starts an interactive session. When a session ID is given the
// conversation and completed-chain summaries persist to SQLite.
func Chat(ctx context.Context, sessionID, dbPath string, opts Options) error {
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := buildAssistant(opts, logger)
	if err != nil {
		return err
	}

	// A named session persists to SQLite and records chain summaries;
	// without one the conversation lives in the in-memory store for the
	// lifetime of the REPL.
	var conv storage.ConversationStorage = storage.NewInMemoryStorage()
	var chains storage.ChainStorage
	if sessionID != "" {
		if dbPath == "" {
			configDir, err := configDirPath()
			if err != nil {
				return err
			}
			dbPath = filepath.Join(configDir, dbFileName)
		}
		s, err := storage.OpenSqlite(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer s.Close()
		conv, chains = s, s
	}

	session := sessionID
	if session == "" {
		session = "default"
	}

	if chains != nil {
		a.processor.WithChainObserver(func(chain reasoning.Chain) {
			summary := storage.NewChainSummary(session, chain.Query)
			summary.State = string(chain.State)
			summary.StepCount = len(chain.Steps)
			summary.SucceededSteps = succeededSteps(chain)
			summary.FinalResponse = chain.FinalResponse
			if err := chains.StoreChainSummary(ctx, summary); err != nil {
				logger.Warn("failed to store chain summary",
					zap.String("chain_id", chain.ID), zap.Error(err))
			}
		})
	}

	history, err := conv.Load(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(history) > 0 {
		fmt.Printf("Resuming session '%s' (%d messages)\n\n", session, len(history))
	}

	fmt.Printf("Merlin chat. Type 'exit' to quit.\n\n")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		updated, response, err := a.chatTurn(ctx, conv, session, input, history)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			continue
		}
		history = updated

		fmt.Printf("\n%s\n\n", response)
	}

	return scanner.Err()
}

// chatTurn processes one input, appends the exchange to the trimmed
// history, and saves it through the conversation store. The saved history
// is returned for the next turn; a failed save is logged, not fatal.
func (a *assistant) chatTurn(ctx context.Context, conv storage.ConversationStorage, session, input string, history []llm.ChatMessage) ([]llm.ChatMessage, string, error) {
	response, err := a.processor.RespondWithHistory(ctx, input, history)
	if err != nil {
		return history, "", err
	}

	history = append(history,
		llm.UserMessage(input),
		llm.AssistantMessage(response),
	)
	history = trimHistory(history, a.settings.Assistant.HistoryLimit)

	if err := conv.Save(ctx, session, history); err != nil {
		a.logger.Warn("failed to save history",
			zap.String("session", session), zap.Error(err))
	}
	return history, response, nil
}

// trimHistory keeps the most recent messages within the limit, dropping
// whole user/assistant pairs so the window never starts mid-exchange.
func trimHistory(history []llm.ChatMessage, limit int) []llm.ChatMessage {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	drop := len(history) - limit
	if drop%2 != 0 {
		drop++
	}
	if drop >= len(history) {
		return history[:0]
	}
	return history[drop:]
}

// succeededSteps counts the attempted steps that reported success.
func succeededSteps(chain reasoning.Chain) int {
	count := 0
	for _, step := range chain.Steps {
		if step.Result != nil && step.Result.Success {
			count++
		}
	}
	return count
}
