// Vector store management and search over indexed directories.
//
// Information Hiding:
// - Store-to-directory bookkeeping and JSON persistence
// - Substring matching policy with the directory-path fallback
// - Post-hoc result filtering

package filesearch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultStore is the store used when callers name none.
const DefaultStore = "default"

// DefaultMaxDepth is the indexing depth used when callers pass none.
const DefaultMaxDepth = 5

// Lookup errors.
var (
	ErrStoreNotFound       = errors.New("vector store not found")
	ErrDirectoryNotIndexed = errors.New("directory not indexed")
)

const (
	storeConfigFile   = "file_search.json"
	indexSnapshotFile = "directory_index.json"
)

// VectorStore is a named logical grouping of indexed directories.
type VectorStore struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	FileCount   int       `json:"file_count"`
	Directories []string  `json:"directories"`
}

// SearchResult is a structured search response.
type SearchResult struct {
	Query      string         `json:"query"`
	Store      string         `json:"store"`
	Files      []FileEntry    `json:"files"`
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories,omitempty"`
	Extensions map[string]int `json:"extensions,omitempty"`
}

type managerState struct {
	Stores    map[string]*VectorStore       `json:"stores"`
	Snapshots map[string]*DirectorySnapshot `json:"snapshots"`
}

// Manager owns the vector stores and directory snapshots. State is loaded
// at construction and rewritten on every mutating operation.
type Manager struct {
	mu        sync.RWMutex
	stores    map[string]*VectorStore
	snapshots map[string]*DirectorySnapshot
	configDir string
	indexer   *Indexer
	logger    *zap.Logger
}

// NewManager loads persisted state from configDir. Corrupt state files are
// logged and replaced with an empty initial state.
func NewManager(configDir string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		stores:    make(map[string]*VectorStore),
		snapshots: make(map[string]*DirectorySnapshot),
		configDir: configDir,
		indexer:   NewIndexer(logger),
		logger:    logger,
	}
	m.load()
	return m, nil
}

func (m *Manager) load() {
	loadJSON := func(name string, target interface{}) {
		data, err := os.ReadFile(filepath.Join(m.configDir, name))
		if err != nil {
			if !os.IsNotExist(err) {
				m.logger.Warn("failed to read state file", zap.String("file", name), zap.Error(err))
			}
			return
		}
		if err := json.Unmarshal(data, target); err != nil {
			m.logger.Warn("state file corrupt, starting empty",
				zap.String("file", name), zap.Error(err))
		}
	}

	var stores map[string]*VectorStore
	loadJSON(storeConfigFile, &stores)
	if stores != nil {
		m.stores = stores
	}

	var snapshots map[string]*DirectorySnapshot
	loadJSON(indexSnapshotFile, &snapshots)
	if snapshots != nil {
		m.snapshots = snapshots
	}
}

// save persists both state files. Caller must hold the write lock.
// Persistence is best-effort; failures are logged, not returned.
func (m *Manager) save() {
	writeJSON := func(name string, value interface{}) {
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			m.logger.Warn("failed to encode state", zap.String("file", name), zap.Error(err))
			return
		}
		if err := os.WriteFile(filepath.Join(m.configDir, name), data, 0644); err != nil {
			m.logger.Warn("failed to write state", zap.String("file", name), zap.Error(err))
		}
	}
	writeJSON(storeConfigFile, m.stores)
	writeJSON(indexSnapshotFile, m.snapshots)
}

// IndexDirectory indexes path into the named store, creating the store on
// first use and replacing any prior snapshot for the same absolute path.
func (m *Manager) IndexDirectory(path, storeName string, maxDepth int) (*DirectorySnapshot, error) {
	if storeName == "" {
		storeName = DefaultStore
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	snapshot, err := m.indexer.Index(path, maxDepth)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	store, ok := m.stores[storeName]
	if !ok {
		store = &VectorStore{
			ID:        uuid.NewString(),
			Name:      storeName,
			CreatedAt: time.Now(),
		}
		m.stores[storeName] = store
	}
	if !contains(store.Directories, snapshot.Path) {
		store.Directories = append(store.Directories, snapshot.Path)
		sort.Strings(store.Directories)
	}
	m.snapshots[snapshot.Path] = snapshot
	m.refreshFileCounts()
	m.save()
	return snapshot, nil
}

// GetDirectoryIndex returns the snapshot for an indexed directory.
func (m *Manager) GetDirectoryIndex(path string) (*DirectorySnapshot, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid directory path %q: %w", path, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot, ok := m.snapshots[abs]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotIndexed, abs)
	}
	return snapshot, nil
}

// RemoveDirectory drops a directory from every store and deletes its
// snapshot.
func (m *Manager) RemoveDirectory(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid directory path %q: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.snapshots[abs]; !ok {
		return fmt.Errorf("%w: %s", ErrDirectoryNotIndexed, abs)
	}
	delete(m.snapshots, abs)
	for _, store := range m.stores {
		store.Directories = remove(store.Directories, abs)
	}
	m.refreshFileCounts()
	m.save()
	return nil
}

// Clear drops all stores and snapshots.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores = make(map[string]*VectorStore)
	m.snapshots = make(map[string]*DirectorySnapshot)
	m.save()
}

// Stores returns the stores sorted by name.
func (m *Manager) Stores() []VectorStore {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]VectorStore, 0, len(m.stores))
	for _, s := range m.stores {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// IndexedDirectories returns every indexed directory path, sorted.
func (m *Manager) IndexedDirectories() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, 0, len(m.snapshots))
	for path := range m.snapshots {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Search matches query case-insensitively as a substring of file names in
// the named store's directories. When no file name matches, directory
// relative paths are tried and files under matching directories returned.
// Results are capped at maxResults when positive.
func (m *Manager) Search(query, storeName string, maxResults int) (*SearchResult, error) {
	if storeName == "" {
		storeName = DefaultStore
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	store, ok := m.stores[storeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, storeName)
	}

	needle := strings.ToLower(query)
	var matched []FileEntry
	for _, dir := range store.Directories {
		snapshot, ok := m.snapshots[dir]
		if !ok {
			continue
		}
		for _, f := range snapshot.Files {
			if strings.Contains(strings.ToLower(f.Name), needle) {
				matched = append(matched, f)
			}
		}
	}

	if len(matched) == 0 {
		matched = m.searchDirectoryPaths(store, needle)
	}

	result := &SearchResult{Query: query, Store: storeName, Total: len(matched)}
	if maxResults > 0 && len(matched) > maxResults {
		matched = matched[:maxResults]
	}
	result.Files = matched
	result.Categories, result.Extensions = summarize(matched)
	return result, nil
}

// searchDirectoryPaths is the fallback: substring match against directory
// relative paths, returning files under any matching directory.
func (m *Manager) searchDirectoryPaths(store *VectorStore, needle string) []FileEntry {
	var matched []FileEntry
	for _, dir := range store.Directories {
		snapshot, ok := m.snapshots[dir]
		if !ok {
			continue
		}
		for _, f := range snapshot.Files {
			rel, err := filepath.Rel(dir, filepath.Dir(f.Path))
			if err != nil {
				continue
			}
			if rel != "." && strings.Contains(strings.ToLower(rel), needle) {
				matched = append(matched, f)
			}
		}
	}
	return matched
}

// SearchByType returns files of one category, optionally scoped to a
// directory subtree.
func (m *Manager) SearchByType(category, directory string) ([]FileEntry, error) {
	return m.filterAll(directory, func(f FileEntry) bool {
		return f.Category == category
	})
}

// SearchByExtension returns files with the given extension.
func (m *Manager) SearchByExtension(ext, directory string) ([]FileEntry, error) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)
	return m.filterAll(directory, func(f FileEntry) bool {
		return strings.ToLower(filepath.Ext(f.Name)) == ext
	})
}

// SearchByName returns files whose name contains pattern, case-insensitive.
func (m *Manager) SearchByName(pattern, directory string) ([]FileEntry, error) {
	needle := strings.ToLower(pattern)
	return m.filterAll(directory, func(f FileEntry) bool {
		return strings.Contains(strings.ToLower(f.Name), needle)
	})
}

// SearchByContent approximates content search by matching query terms
// against names and paths. Real content inspection is out of scope.
func (m *Manager) SearchByContent(terms, directory string) ([]FileEntry, error) {
	words := strings.Fields(strings.ToLower(terms))
	return m.filterAll(directory, func(f FileEntry) bool {
		haystack := strings.ToLower(f.Path)
		for _, w := range words {
			if strings.Contains(haystack, w) {
				return true
			}
		}
		return false
	})
}

// filterAll applies pred over every snapshot, optionally scoped under
// directory.
func (m *Manager) filterAll(directory string, pred func(FileEntry) bool) ([]FileEntry, error) {
	var scope string
	if directory != "" {
		abs, err := filepath.Abs(directory)
		if err != nil {
			return nil, fmt.Errorf("invalid directory path %q: %w", directory, err)
		}
		scope = abs
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []FileEntry
	for _, snapshot := range m.snapshots {
		for _, f := range snapshot.Files {
			if scope != "" && !strings.HasPrefix(f.Path, scope+string(filepath.Separator)) && filepath.Dir(f.Path) != scope {
				continue
			}
			if pred(f) {
				matched = append(matched, f)
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Path < matched[j].Path })
	return matched, nil
}

// refreshFileCounts recomputes store file counts from snapshots. Caller
// must hold the write lock.
func (m *Manager) refreshFileCounts() {
	for _, store := range m.stores {
		count := 0
		for _, dir := range store.Directories {
			if snapshot, ok := m.snapshots[dir]; ok {
				count += snapshot.Stats.IndexedFiles
			}
		}
		store.FileCount = count
	}
}

func summarize(files []FileEntry) (map[string]int, map[string]int) {
	if len(files) == 0 {
		return nil, nil
	}
	categories := make(map[string]int)
	extensions := make(map[string]int)
	for _, f := range files {
		categories[f.Category]++
		if ext := strings.ToLower(filepath.Ext(f.Name)); ext != "" {
			extensions[ext]++
		}
	}
	return categories, extensions
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func remove(list []string, value string) []string {
	result := list[:0]
	for _, v := range list {
		if v != value {
			result = append(result, v)
		}
	}
	return result
}
