package services

import (
	"context"
	"sync"

	"relief/internal/core"
	"relief/internal/store"
)

// VoteGuard holds the current voter's vote record and enforces at most one
// vote per proposal. The record lives in the per-device store scope.
type VoteGuard struct {
	mu     sync.Mutex
	store  store.Store
	record core.VoteRecord
}

func NewVoteGuard(s store.Store) *VoteGuard {
	return &VoteGuard{store: s, record: core.VoteRecord{}}
}

func (g *VoteGuard) Load(record core.VoteRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record = record.Clone()
}

func (g *VoteGuard) HasVoted(proposalID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.record[proposalID]
}

// RegisterVote marks proposalID as voted and persists the record.
// Check and set happen under one lock: concurrent attempts on the same
// proposal cannot both succeed. A failed write leaves the mark in place and
// returns a *core.StoreError.
func (g *VoteGuard) RegisterVote(ctx context.Context, proposalID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.record[proposalID] {
		return core.ErrAlreadyVoted
	}
	g.record[proposalID] = true

	return persist(ctx, g.store, store.KeyUserVotes, false, g.record)
}

// Record returns a copy of the vote record.
func (g *VoteGuard) Record() core.VoteRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.record.Clone()
}
