package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"relief/internal/core"
	"relief/internal/store"
)

// errBoardUnsynced withholds board writes while the stored proposals are
// unreadable, so a local seed never replaces them.
var errBoardUnsynced = errors.New("stored proposals not read yet, board not saved")

// ProposalBoard owns the proposals and their vote counts.
type ProposalBoard struct {
	mu          sync.Mutex
	store       store.Store
	guard       *VoteGuard
	now         func() time.Time
	proposals   []core.Proposal
	initialized bool
	unsynced    bool
}

func NewProposalBoard(s store.Store, guard *VoteGuard, now func() time.Time) *ProposalBoard {
	if now == nil {
		now = time.Now
	}
	return &ProposalBoard{store: s, guard: guard, now: now}
}

// Initialize loads existing proposals verbatim when found. Otherwise it seeds
// the default board and persists it, unless the board is already initialized.
// A seed write failure is returned but the seeded board stays in memory.
func (b *ProposalBoard) Initialize(ctx context.Context, existing []core.Proposal, found bool) ([]core.Proposal, error) {
	return b.initialize(ctx, existing, found, true)
}

// seedLocal installs the default board without writing it, used when the
// stored value could not be read and may still exist.
func (b *ProposalBoard) seedLocal() []core.Proposal {
	out, _ := b.initialize(context.Background(), nil, false, false)
	return out
}

func (b *ProposalBoard) initialize(ctx context.Context, existing []core.Proposal, found, persistSeed bool) ([]core.Proposal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if found {
		b.proposals = append([]core.Proposal(nil), existing...)
		b.initialized = true
		b.unsynced = false
		return b.snapshot(), nil
	}
	if b.initialized {
		return b.snapshot(), nil
	}

	b.proposals = core.DefaultProposals(b.now())
	b.initialized = true
	if !persistSeed {
		b.unsynced = true
		return b.snapshot(), nil
	}
	return b.snapshot(), persist(ctx, b.store, store.KeyProposals, true, b.proposals)
}

// ApplyVote records the voter's vote through the VoteGuard and increments the
// proposal's count by one. Unknown ids are a silent no-op. ErrAlreadyVoted
// leaves all state untouched. Store write failures are returned after the
// in-memory update has been applied.
//
// A board seeded locally after a failed read first re-reads the stored
// proposals. While that read keeps failing the vote is applied in memory
// only and a retryable write error is returned.
func (b *ProposalBoard) ApplyVote(ctx context.Context, proposalID int64) ([]core.Proposal, error) {
	b.resync(ctx)
	if _, ok := b.Get(proposalID); !ok {
		return b.Proposals(), nil
	}

	guardErr := b.guard.RegisterVote(ctx, proposalID)
	if errors.Is(guardErr, core.ErrAlreadyVoted) {
		return nil, guardErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.proposals {
		if b.proposals[i].ID == proposalID {
			b.proposals[i].Votes++
			break
		}
	}

	var boardErr error
	if b.unsynced {
		boardErr = &core.StoreError{Op: "set", Key: store.KeyProposals, Err: errBoardUnsynced}
	} else {
		boardErr = persist(ctx, b.store, store.KeyProposals, true, b.proposals)
	}
	return b.snapshot(), errors.Join(guardErr, boardErr)
}

// resync replaces a locally seeded board with the stored one once the
// proposals key can be read. An absent or undecodable value keeps the seed,
// which the next write then persists.
func (b *ProposalBoard) resync(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.unsynced {
		return
	}
	raw, found, err := b.store.Get(ctx, store.KeyProposals, true)
	if err != nil {
		return
	}
	var stored []core.Proposal
	if found && json.Unmarshal([]byte(raw), &stored) == nil {
		b.proposals = stored
	}
	b.unsynced = false
}

func (b *ProposalBoard) Get(proposalID int64) (core.Proposal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.proposals {
		if p.ID == proposalID {
			return p, true
		}
	}
	return core.Proposal{}, false
}

func (b *ProposalBoard) Proposals() []core.Proposal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *ProposalBoard) snapshot() []core.Proposal {
	return append([]core.Proposal(nil), b.proposals...)
}
