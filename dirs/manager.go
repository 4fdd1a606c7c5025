// Package dirs manages the approved-directory allowlist.
//
// The allowlist bounds where path-mutating commands may read and write. It is
// persisted as a JSON file under the user's config directory and rewritten on
// every mutation.
package dirs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// configFileName is the on-disk allowlist, relative to the config dir.
const configFileName = "approved_dirs.json"

// defaultSubdirs are seeded under the user's home on first run, when present.
var defaultSubdirs = []string{"Documents", "Downloads", "Desktop", "Music", "Pictures"}

type configFile struct {
	Directories []string `json:"directories"`
}

// Manager owns the approved-directory set.
type Manager struct {
	mu     sync.RWMutex
	path   string
	dirs   map[string]struct{}
	logger *zap.Logger
}

// NewManager loads the allowlist from configDir, seeding defaults on first
// run. A corrupt file is logged and replaced by the default set rather than
// aborting startup.
func NewManager(configDir string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		path:   filepath.Join(configDir, configFileName),
		dirs:   make(map[string]struct{}),
		logger: logger,
	}

	data, err := os.ReadFile(m.path)
	switch {
	case err == nil:
		var cfg configFile
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
			logger.Warn("approved directories file corrupt, reseeding defaults",
				zap.String("path", m.path), zap.Error(jsonErr))
			m.seedDefaults()
		} else {
			for _, d := range cfg.Directories {
				m.dirs[d] = struct{}{}
			}
		}
	case os.IsNotExist(err):
		m.seedDefaults()
		if saveErr := m.save(); saveErr != nil {
			logger.Warn("failed to persist default directories", zap.Error(saveErr))
		}
	default:
		return nil, fmt.Errorf("failed to read approved directories: %w", err)
	}

	return m, nil
}

// seedDefaults adds the user's common home subdirectories that exist.
func (m *Manager) seedDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	for _, sub := range defaultSubdirs {
		dir := filepath.Join(home, sub)
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			m.dirs[dir] = struct{}{}
		}
	}
}

// GetAllDirectories returns the approved directories, sorted.
func (m *Manager) GetAllDirectories() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, 0, len(m.dirs))
	for d := range m.dirs {
		result = append(result, d)
	}
	sort.Strings(result)
	return result
}

// Add absolutizes and records a directory, persisting the new set.
// Fails if the path does not exist or is not a directory.
func (m *Manager) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid directory path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("directory does not exist: %s", abs)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", abs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[abs] = struct{}{}
	return m.save()
}

// Remove drops a directory from the allowlist, persisting the new set.
// Returns an error if the directory was not in the set.
func (m *Manager) Remove(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid directory path %q: %w", dir, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dirs[abs]; !ok {
		return fmt.Errorf("directory not in approved list: %s", abs)
	}
	delete(m.dirs, abs)
	return m.save()
}

// Contains reports whether a directory is approved.
func (m *Manager) Contains(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.dirs[abs]
	return ok
}

// save writes the current set. Caller must hold the write lock.
func (m *Manager) save() error {
	dirs := make([]string, 0, len(m.dirs))
	for d := range m.dirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	data, err := json.MarshalIndent(configFile{Directories: dirs}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode approved directories: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write approved directories: %w", err)
	}
	return nil
}
