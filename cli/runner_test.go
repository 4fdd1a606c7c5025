package cli

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/richinex/merlin/commands"
	"github.com/richinex/merlin/config"
	"github.com/richinex/merlin/dirs"
	"github.com/richinex/merlin/filesearch"
	"github.com/richinex/merlin/llm"
	"github.com/richinex/merlin/orchestrator"
	"github.com/richinex/merlin/storage"
)

// scriptedProvider replays canned responses in order.
type scriptedProvider struct {
	responses []llm.LLMResponse
}

func (s *scriptedProvider) Name() string  { return "scripted" }
func (s *scriptedProvider) Model() string { return "scripted-model" }

func (s *scriptedProvider) next() (llm.LLMResponse, error) {
	if len(s.responses) == 0 {
		return llm.LLMResponse{}, fmt.Errorf("no scripted response left")
	}
	response := s.responses[0]
	s.responses = s.responses[1:]
	return response, nil
}

func (s *scriptedProvider) Chat(context.Context, []llm.ChatMessage) (llm.LLMResponse, error) {
	return s.next()
}

func (s *scriptedProvider) ChatWithTools(context.Context, []llm.ChatMessage, []llm.ToolDefinition) (llm.LLMResponse, error) {
	return s.next()
}

var _ llm.Provider = (*scriptedProvider)(nil)

func newTestAssistant(t *testing.T, provider llm.Provider, historyLimit int) *assistant {
	t.Helper()

	logger := zap.NewNop()
	executor := commands.NewExecutor(commands.NewVerifier(logger), logger)
	search, err := filesearch.NewManager(t.TempDir(), logger)
	require.NoError(t, err)
	dirManager, err := dirs.NewManager(t.TempDir(), logger)
	require.NoError(t, err)

	settings := config.Settings{
		Assistant: config.AssistantConfig{
			MaxPlanSteps:     8,
			ModelTimeoutSecs: 10,
			HistoryLimit:     historyLimit,
		},
	}

	processor := orchestrator.NewProcessor(provider, executor, search, dirManager, settings, logger)
	return &assistant{processor: processor, settings: settings, logger: logger}
}

func TestChatTurnPersistsTrimmedHistory(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.LLMResponse{
		{Content: "first answer"},
		{Content: "second answer"},
		{Content: "third answer"},
	}}
	a := newTestAssistant(t, provider, 4)
	conv := storage.NewInMemoryStorage()
	ctx := context.Background()

	var history []llm.ChatMessage
	var response string
	var err error
	for _, input := range []string{"one", "two", "three"} {
		history, response, err = a.chatTurn(ctx, conv, "default", input, history)
		require.NoError(t, err)
		require.NotEmpty(t, response)
	}

	// Three exchanges trimmed to the last two, and the store holds the
	// same window the next turn will read.
	require.Len(t, history, 4)
	require.Equal(t, "two", history[0].Content)

	saved, err := conv.Load(ctx, "default")
	require.NoError(t, err)
	require.Equal(t, history, saved)
}

func TestChatTurnErrorLeavesHistoryUnchanged(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.LLMResponse{
		{Content: "only answer"},
	}}
	a := newTestAssistant(t, provider, 10)
	conv := storage.NewInMemoryStorage()
	ctx := context.Background()

	history, _, err := a.chatTurn(ctx, conv, "default", "hello", nil)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// The script is exhausted; the failed turn must not grow the history.
	after, _, err := a.chatTurn(ctx, conv, "default", "again", history)
	require.Error(t, err)
	require.Equal(t, history, after)
}
