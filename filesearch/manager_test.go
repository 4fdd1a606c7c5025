package filesearch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return m
}

func seedFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "quarterly_report.pdf"), 10)
	writeFile(t, filepath.Join(dir, "summer_photo.jpg"), 20)
	writeFile(t, filepath.Join(dir, "music", "track01.mp3"), 30)
	writeFile(t, filepath.Join(dir, "music", "track02.mp3"), 40)
	return dir
}

func TestIndexDirectoryCreatesStore(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)

	snapshot, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)
	require.Equal(t, 4, snapshot.Stats.IndexedFiles)

	stores := m.Stores()
	require.Len(t, stores, 1)
	require.Equal(t, DefaultStore, stores[0].Name)
	require.NotEmpty(t, stores[0].ID)
	require.Equal(t, 4, stores[0].FileCount)
	require.Equal(t, []string{snapshot.Path}, stores[0].Directories)
}

func TestIndexRoundTrip(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)

	indexed, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	fetched, err := m.GetDirectoryIndex(dir)
	require.NoError(t, err)
	require.Equal(t, indexed.Stats.IndexedFiles, fetched.Stats.IndexedFiles)
	require.Equal(t, indexed.Path, fetched.Path)
}

func TestReindexReplacesSnapshot(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)

	_, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "new_doc.txt"), 5)
	snapshot, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)
	require.Equal(t, 5, snapshot.Stats.IndexedFiles)

	stores := m.Stores()
	require.Len(t, stores[0].Directories, 1, "re-index must not duplicate the directory")
	require.Equal(t, 5, stores[0].FileCount)
}

func TestSearchByFileName(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)
	_, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	result, err := m.Search("REPORT", "", 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Equal(t, "quarterly_report.pdf", result.Files[0].Name)
	require.Equal(t, 1, result.Categories[CategoryDocument])
}

func TestSearchDirectoryFallback(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)
	_, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	// No file name contains "music"; the directory fallback finds the tracks.
	result, err := m.Search("music", "", 10)
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	for _, f := range result.Files {
		require.Equal(t, CategoryAudio, f.Category)
	}
}

func TestSearchCapsResults(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)
	_, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	result, err := m.Search("track", "", 1)
	require.NoError(t, err)
	require.Equal(t, 2, result.Total, "total reflects all matches")
	require.Len(t, result.Files, 1, "files are capped at max results")
}

func TestSearchUnknownStore(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Search("anything", "nope", 10)
	require.ErrorIs(t, err, ErrStoreNotFound)
}

func TestRemoveDirectory(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)
	snapshot, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	require.NoError(t, m.RemoveDirectory(dir))
	_, err = m.GetDirectoryIndex(dir)
	require.ErrorIs(t, err, ErrDirectoryNotIndexed)
	require.NotContains(t, m.Stores()[0].Directories, snapshot.Path)

	require.ErrorIs(t, m.RemoveDirectory(dir), ErrDirectoryNotIndexed)
}

func TestClear(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)
	_, err := m.IndexDirectory(dir, "archive", 3)
	require.NoError(t, err)

	m.Clear()
	require.Empty(t, m.Stores())
	require.Empty(t, m.IndexedDirectories())
}

func TestStatePersistsAcrossReload(t *testing.T) {
	configDir := t.TempDir()
	dir := seedFiles(t)

	m, err := NewManager(configDir, zap.NewNop())
	require.NoError(t, err)
	_, err = m.IndexDirectory(dir, "docs", 3)
	require.NoError(t, err)

	reloaded, err := NewManager(configDir, zap.NewNop())
	require.NoError(t, err)

	stores := reloaded.Stores()
	require.Len(t, stores, 1)
	require.Equal(t, "docs", stores[0].Name)

	result, err := reloaded.Search("report", "docs", 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
}

func TestTypedSearches(t *testing.T) {
	m := newTestManager(t)
	dir := seedFiles(t)
	_, err := m.IndexDirectory(dir, "", 3)
	require.NoError(t, err)

	byType, err := m.SearchByType(CategoryAudio, "")
	require.NoError(t, err)
	require.Len(t, byType, 2)

	byExt, err := m.SearchByExtension("pdf", "")
	require.NoError(t, err)
	require.Len(t, byExt, 1)

	byName, err := m.SearchByName("PHOTO", "")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	scoped, err := m.SearchByType(CategoryAudio, filepath.Join(dir, "music"))
	require.NoError(t, err)
	require.Len(t, scoped, 2)

	scopedOut, err := m.SearchByType(CategoryDocument, filepath.Join(dir, "music"))
	require.NoError(t, err)
	require.Empty(t, scopedOut)
}
