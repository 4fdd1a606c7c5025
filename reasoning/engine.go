// Reasoning engine - owns the chain registry and the step state machine.
//
// Information Hiding:
// - Chain storage and synchronization
// - Chain identifier generation
// - Eviction of completed chains

package reasoning

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine is the process-wide chain registry. All chain mutation is mediated
// through engine operations; callers never hold a chain across operations.
type Engine struct {
	mu        sync.RWMutex
	chains    map[string]*Chain
	order     []string
	retention int
	logger    *zap.Logger
}

// NewEngine creates an engine retaining at most retention completed chains.
// A retention of zero or less disables eviction.
func NewEngine(retention int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		chains:    make(map[string]*Chain),
		retention: retention,
		logger:    logger,
	}
}

// CreateChain allocates a fresh chain in the planning state and returns its id.
func (e *Engine) CreateChain(query string) string {
	id := uuid.NewString()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.chains[id] = newChain(id, query)
	e.order = append(e.order, id)

	e.logger.Debug("created reasoning chain",
		zap.String("chain_id", id), zap.String("query", query))
	return id
}

// Plan appends steps to a chain. Appending zero steps is legal; such a chain
// trivially runs off the end on first advance.
func (e *Engine) Plan(chainID string, steps []PlannedStep) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	chain, ok := e.chains[chainID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	chain.appendSteps(steps)

	e.logger.Debug("planned chain",
		zap.String("chain_id", chainID), zap.Int("steps", len(chain.Steps)))
	return nil
}

// CurrentStep returns a copy of the step at the chain's cursor.
func (e *Engine) CurrentStep(chainID string) (Step, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	chain, ok := e.chains[chainID]
	if !ok {
		return Step{}, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	step, err := chain.currentStep()
	if err != nil {
		return Step{}, err
	}
	return *step, nil
}

// ExecuteStep records the result for the current step and advances the
// cursor. Calling with no current step is an error, not a no-op.
func (e *Engine) ExecuteStep(chainID string, result StepResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	chain, ok := e.chains[chainID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	if err := chain.recordStepResult(result); err != nil {
		return err
	}

	e.logger.Debug("recorded step result",
		zap.String("chain_id", chainID),
		zap.Int("cursor", chain.CurrentStepIdx),
		zap.Bool("success", result.Success))
	return nil
}

// CompleteChain records the final response unconditionally, truncating any
// steps still pending. Used both for normal completion and early-exit paths.
func (e *Engine) CompleteChain(chainID, finalResponse string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	chain, ok := e.chains[chainID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	chain.complete(finalResponse)
	return nil
}

// Snapshot returns a copy of a chain for inspection. Step results are
// shared references; callers must not mutate them.
func (e *Engine) Snapshot(chainID string) (Chain, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	chain, ok := e.chains[chainID]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	snap := *chain
	snap.Steps = make([]*Step, len(chain.Steps))
	for i, s := range chain.Steps {
		copied := *s
		snap.Steps[i] = &copied
	}
	return snap, nil
}

// ChainCount returns the number of chains currently retained.
func (e *Engine) ChainCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.chains)
}

// EvictCompleted drops the oldest terminal chains until the registry is
// within the retention limit, returning the evicted ids so the caller can
// drop the matching contexts.
func (e *Engine) EvictCompleted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.retention <= 0 || len(e.chains) <= e.retention {
		return nil
	}

	var evicted []string
	remaining := e.order[:0]
	excess := len(e.chains) - e.retention
	for _, id := range e.order {
		chain := e.chains[id]
		if excess > 0 && chain != nil && chain.Completed() {
			delete(e.chains, id)
			evicted = append(evicted, id)
			excess--
			continue
		}
		remaining = append(remaining, id)
	}
	e.order = remaining

	if len(evicted) > 0 {
		e.logger.Debug("evicted completed chains", zap.Int("count", len(evicted)))
	}
	return evicted
}
