package filesearch

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/richinex/merlin/reasoning"
)

func searchStep(t *testing.T, raw string) reasoning.Step {
	t.Helper()
	args, err := reasoning.ParseToolArgs(reasoning.ToolSearchFiles, json.RawMessage(raw))
	require.NoError(t, err)
	return reasoning.Step{Tool: reasoning.ToolSearchFiles, Args: args}
}

func TestExecuteStepGeneralSearch(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)
	_, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	outcome, err := m.ExecuteStep(searchStep(t, `{"query": "report"}`))
	require.NoError(t, err)
	require.False(t, outcome.Filtered)
	require.Equal(t, 1, outcome.Result.Total)

	sr := outcome.StepResult()
	require.True(t, sr.Success)
	require.Contains(t, sr.Output, "quarterly_report.pdf")
}

func TestExecuteStepTypedDispatch(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)
	_, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	outcome, err := m.ExecuteStep(searchStep(t, `{"search_type": "type", "file_type": "audio"}`))
	require.NoError(t, err)
	require.Equal(t, 2, outcome.Result.Total)
	require.Equal(t, "category:audio", outcome.Result.Query)

	outcome, err = m.ExecuteStep(searchStep(t, `{"search_type": "extension", "extension": "jpg"}`))
	require.NoError(t, err)
	require.Equal(t, 1, outcome.Result.Total)

	outcome, err = m.ExecuteStep(searchStep(t,
		`{"search_type": "name", "name_pattern": "track", "directory": "`+filepath.Join(dir, "music")+`"}`))
	require.NoError(t, err)
	require.Equal(t, 2, outcome.Result.Total)
}

func TestExecuteStepAppliesFilters(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)
	_, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	// track01.mp3 is 30 bytes, track02.mp3 is 40.
	outcome, err := m.ExecuteStep(searchStep(t, `{"query": "track", "min_size": 35}`))
	require.NoError(t, err)
	require.True(t, outcome.Filtered)
	require.Equal(t, 1, outcome.FilteredCount)
	require.Equal(t, "track02.mp3", outcome.FilteredFiles[0].Name)

	ctxOutcome := outcome.ContextOutcome()
	require.Equal(t, 1, ctxOutcome.Count)
	require.Equal(t, []string{"track02.mp3"}, ctxOutcome.Files)
}

func TestExecuteStepCategoryFilterOnGeneralSearch(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)
	_, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	outcome, err := m.ExecuteStep(searchStep(t, `{"query": "track", "file_type": "document"}`))
	require.NoError(t, err)
	require.True(t, outcome.Filtered)
	require.Zero(t, outcome.FilteredCount)
}

func TestExecuteStepUnknownSearchType(t *testing.T) {
	m := newTestManager(t)
	_, err := m.ExecuteStep(searchStep(t, `{"search_type": "semantic"}`))
	require.Error(t, err)
}

func TestExecuteStepWrongTool(t *testing.T) {
	m := newTestManager(t)
	_, err := m.ExecuteStep(reasoning.Step{Tool: reasoning.ToolExecuteCommands})
	require.Error(t, err)
}
