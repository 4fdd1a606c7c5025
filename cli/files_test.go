package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/richinex/merlin/filesearch"
	"github.com/richinex/merlin/llm"
)

func newTestManager(t *testing.T) *filesearch.Manager {
	t.Helper()
	m, err := filesearch.NewManager(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return m
}

func populateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "song.mp3", "report.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	return dir
}

func TestIndexFilesReportsCounts(t *testing.T) {
	m := newTestManager(t)
	dir := populateDir(t)

	result := indexFiles(m, dir, "", 0)
	require.True(t, result.Success, result.Message)
	require.Contains(t, result.Message, "3 file(s)")
}

func TestSearchIndexFindsByName(t *testing.T) {
	m := newTestManager(t)
	dir := populateDir(t)
	require.True(t, indexFiles(m, dir, "", 0).Success)

	result := searchIndex(m, "song", "", 10)
	require.True(t, result.Success)
	require.Contains(t, result.Message, "song.mp3")
}

func TestSearchIndexUnknownStoreFails(t *testing.T) {
	m := newTestManager(t)

	result := searchIndex(m, "anything", "missing", 10)
	require.False(t, result.Success)
	require.Contains(t, result.Message, "vector store not found")
}

func TestListIndexedRejectsUnknownKind(t *testing.T) {
	m := newTestManager(t)

	result := listIndexed(m, "bogus")
	require.False(t, result.Success)

	require.True(t, listIndexed(m, "dirs").Success)
	require.True(t, listIndexed(m, "stores").Success)
	require.True(t, listIndexed(m, "all").Success)
}

func TestRemoveIndexedUnknownDirFails(t *testing.T) {
	m := newTestManager(t)

	result := removeIndexed(m, "/nowhere/indexed")
	require.False(t, result.Success)
}

func TestClearIndexRequiresConfirmation(t *testing.T) {
	m := newTestManager(t)
	dir := populateDir(t)
	require.True(t, indexFiles(m, dir, "", 0).Success)

	declined := clearIndex(m, false, strings.NewReader("n\n"))
	require.False(t, declined.Success)
	require.Len(t, m.IndexedDirectories(), 1)

	confirmed := clearIndex(m, false, strings.NewReader("y\n"))
	require.True(t, confirmed.Success)
	require.Empty(t, m.IndexedDirectories())
}

func TestClearIndexForceSkipsPrompt(t *testing.T) {
	m := newTestManager(t)
	dir := populateDir(t)
	require.True(t, indexFiles(m, dir, "", 0).Success)

	result := clearIndex(m, true, strings.NewReader(""))
	require.True(t, result.Success)
	require.Empty(t, m.IndexedDirectories())
}

func TestTrimHistoryKeepsWholePairs(t *testing.T) {
	var history []llm.ChatMessage
	for i := 0; i < 5; i++ {
		history = append(history,
			llm.UserMessage("q"),
			llm.AssistantMessage("a"),
		)
	}

	trimmed := trimHistory(history, 4)
	require.Len(t, trimmed, 4)
	require.Equal(t, "user", trimmed[0].Role)

	// An odd limit still starts the window on a user message.
	trimmed = trimHistory(history, 5)
	require.Len(t, trimmed, 4)
	require.Equal(t, "user", trimmed[0].Role)

	// No trimming below the limit.
	require.Len(t, trimHistory(history[:2], 10), 2)
}
