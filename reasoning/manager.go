package reasoning

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ContextManager is the process-wide registry of per-chain contexts. It is
// keyed by chain id, mirroring the engine's registry by convention.
type ContextManager struct {
	mu       sync.RWMutex
	contexts map[string]*Context
	logger   *zap.Logger
}

// NewContextManager creates an empty context registry.
func NewContextManager(logger *zap.Logger) *ContextManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextManager{
		contexts: make(map[string]*Context),
		logger:   logger,
	}
}

// CreateContext allocates and registers a context for a chain, seeded with
// the approved directories and working directory.
func (m *ContextManager) CreateContext(chainID string, approvedDirs []string, workingDir string) *Context {
	ctx := NewContext(chainID, approvedDirs, workingDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts[chainID] = ctx

	m.logger.Debug("created reasoning context", zap.String("chain_id", chainID))
	return ctx
}

// GetContext returns the context for a chain, or an explicit not-found error.
func (m *ContextManager) GetContext(chainID string) (*Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ctx, ok := m.contexts[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, chainID)
	}
	return ctx, nil
}

// StepContext assembles the step input snapshot for a chain's step.
func (m *ContextManager) StepContext(chainID string, stepID int) (map[string]interface{}, error) {
	ctx, err := m.GetContext(chainID)
	if err != nil {
		return nil, err
	}
	return ctx.StepContext(stepID), nil
}

// Remove drops the contexts for evicted chains.
func (m *ContextManager) Remove(chainIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range chainIDs {
		delete(m.contexts, id)
	}
}

// Count returns the number of registered contexts.
func (m *ContextManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contexts)
}
