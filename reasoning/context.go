// Per-chain reasoning context.
//
// Information Hiding:
// - Entry storage and access accounting
// - Sequence numbering for derived result keys
// - Heuristic extraction from command output

package reasoning

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Entry sources tag who produced a context value.
const (
	SourceSystem           = "system"
	SourceCommandExecution = "command_execution"
	SourceFileSearch       = "file_search"
	SourceReasoning        = "reasoning"
)

// Entry is one context value with provenance and access accounting.
type Entry struct {
	Key         string                 `json:"key"`
	Value       interface{}            `json:"value"`
	Source      string                 `json:"source"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	AccessCount int                    `json:"access_count"`
}

// CommandOutcome is the slice of a command result the context records.
type CommandOutcome struct {
	Command string `json:"command"`
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// SearchOutcome is the slice of a search result the context records.
type SearchOutcome struct {
	Query      string         `json:"query"`
	Count      int            `json:"count"`
	Files      []string       `json:"files,omitempty"`
	Categories map[string]int `json:"categories,omitempty"`
	Extensions map[string]int `json:"extensions,omitempty"`
	Raw        interface{}    `json:"raw,omitempty"`
}

// Context is the per-chain key/value store feeding earlier step outputs
// into later steps. Derived result keys use a per-chain sequence counter so
// two updates in the same instant cannot collide.
type Context struct {
	mu      sync.Mutex
	chainID string
	entries map[string]*Entry
	seq     int
}

// NewContext seeds a context with the approved directories and working
// directory every step may rely on.
func NewContext(chainID string, approvedDirs []string, workingDir string) *Context {
	c := &Context{
		chainID: chainID,
		entries: make(map[string]*Entry),
	}
	c.Set("approved_directories", approvedDirs, SourceSystem, nil)
	c.Set("current_directory", workingDir, SourceSystem, nil)
	return c
}

// ChainID returns the owning chain's identifier.
func (c *Context) ChainID() string {
	return c.chainID
}

// Get returns the value for key, counting the access. The second return is
// false when the key is absent.
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry.AccessCount++
	return entry.Value, true
}

// GetOr returns the value for key or the supplied default.
func (c *Context) GetOr(key string, def interface{}) interface{} {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Set stores a value, overwriting any previous entry for the key.
func (c *Context) Set(key string, value interface{}, source string, metadata map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, source, metadata)
}

func (c *Context) setLocked(key string, value interface{}, source string, metadata map[string]interface{}) {
	c.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		Source:    source,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// Update overwrites an existing entry's value in place, preserving its
// access count. Returns false without mutating when the key is absent.
func (c *Context) Update(key string, value interface{}, source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	entry.Value = value
	entry.Timestamp = time.Now()
	if source != "" {
		entry.Source = source
	}
	return true
}

// Delete removes an entry, reporting whether it existed.
func (c *Context) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// GetAll returns a key-to-value snapshot. Snapshot reads do not count as
// accesses.
func (c *Context) GetAll() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make(map[string]interface{}, len(c.entries))
	for key, entry := range c.entries {
		snapshot[key] = entry.Value
	}
	return snapshot
}

// GetBySource returns a snapshot restricted to entries from one producer.
func (c *Context) GetBySource(source string) map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make(map[string]interface{})
	for key, entry := range c.entries {
		if entry.Source == source {
			snapshot[key] = entry.Value
		}
	}
	return snapshot
}

// AccessCount returns how many times a key has been read.
func (c *Context) AccessCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		return entry.AccessCount
	}
	return 0
}

// UpdateFromCommandResult records a command outcome under a sequenced key
// and refreshes the last-command summary entries. When the command created
// a directory, its path is surfaced as last_created_directory so later
// steps can target it.
func (c *Context) UpdateFromCommandResult(outcome CommandOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := fmt.Sprintf("command_result_%d", c.seq)
	c.seq++

	c.setLocked(key, outcome, SourceCommandExecution, nil)
	c.setLocked("last_command", outcome.Command, SourceCommandExecution, nil)
	c.setLocked("last_command_output", outcome.Output, SourceCommandExecution, nil)
	c.setLocked("last_command_success", outcome.Success, SourceCommandExecution, nil)

	var list []CommandOutcome
	if history, ok := c.entries["command_history"]; ok {
		if existing, ok := history.Value.([]CommandOutcome); ok {
			list = existing
		}
	}
	c.setLocked("command_history", append(list, outcome), SourceCommandExecution, nil)

	if dir := extractCreatedDirectory(outcome.Command); dir != "" {
		c.setLocked("last_created_directory", dir, SourceCommandExecution, nil)
	}
}

// UpdateFromSearchResult records a search outcome under a sequenced key and
// refreshes the last-search summary entries.
func (c *Context) UpdateFromSearchResult(outcome SearchOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := fmt.Sprintf("search_result_%d", c.seq)
	c.seq++

	c.setLocked(key, outcome, SourceFileSearch, nil)
	c.setLocked("last_search_files", outcome.Files, SourceFileSearch, nil)
	c.setLocked("last_search_count", outcome.Count, SourceFileSearch, nil)
	if len(outcome.Categories) > 0 {
		c.setLocked("search_categories", outcome.Categories, SourceFileSearch, nil)
	}
	if len(outcome.Extensions) > 0 {
		c.setLocked("search_extensions", outcome.Extensions, SourceFileSearch, nil)
	}
}

// RecordStepResult stores a completed step's result so later steps can
// observe it through StepContext.
func (c *Context) RecordStepResult(stepID int, result StepResult) {
	c.Set(fmt.Sprintf("step_%d_result", stepID), result, SourceReasoning, nil)
}

// StepContext assembles the full snapshot plus every prior step's recorded
// result under previous_step_<i>_result keys.
func (c *Context) StepContext(stepID int) map[string]interface{} {
	snapshot := c.GetAll()
	for i := 0; i < stepID; i++ {
		if result, ok := snapshot[fmt.Sprintf("step_%d_result", i)]; ok {
			snapshot[fmt.Sprintf("previous_step_%d_result", i)] = result
		}
	}
	return snapshot
}

// extractCreatedDirectory pulls the directory argument out of a mkdir
// command line. Returns "" when the command is not a mkdir.
func extractCreatedDirectory(command string) string {
	if !strings.Contains(command, "mkdir") {
		return ""
	}
	fields := strings.Fields(command)
	for i, f := range fields {
		if f != "mkdir" {
			continue
		}
		for _, arg := range fields[i+1:] {
			if strings.HasPrefix(arg, "-") {
				continue
			}
			if arg == "&&" || arg == ";" || arg == "|" {
				break
			}
			return strings.Trim(arg, `"'`)
		}
		break
	}
	return ""
}
