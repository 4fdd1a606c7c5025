// Package storage: persisted summaries of completed reasoning chains.
//
// Information Hiding:
// - Summary row layout hidden behind ChainSummary struct
// - Storage backend details behind ChainStorage interface

package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChainSummary is a compact record of a finished reasoning chain.
// The live chain is evicted from memory after completion; this row
// is what remains for later inspection.
type ChainSummary struct {
	ID             string
	SessionID      string
	Request        string
	State          string
	StepCount      int
	SucceededSteps int
	FinalResponse  string
	CreatedAt      int64
}

// NewChainSummary creates a summary with a fresh ID and current timestamp.
func NewChainSummary(sessionID, request string) ChainSummary {
	return ChainSummary{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Request:   request,
		CreatedAt: time.Now().Unix(),
	}
}

// ChainStorage defines the interface for persisting chain summaries.
type ChainStorage interface {
	// StoreChainSummary stores a summary of a completed chain.
	StoreChainSummary(ctx context.Context, summary ChainSummary) error

	// ChainSummaries returns the most recent summaries for a session,
	// newest first.
	ChainSummaries(ctx context.Context, sessionID string, limit int) ([]ChainSummary, error)

	// DeleteSessionChains deletes all chain summaries for a session.
	DeleteSessionChains(ctx context.Context, sessionID string) error
}
