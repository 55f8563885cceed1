// Package services holds the donation ledger, the proposal board, the vote
// guard and the Engine that composes them over a key-value store.
package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"relief/internal/core"
	applog "relief/internal/log"
	"relief/internal/store"
)

// EventPublisher receives notifications about committed mutations.
type EventPublisher interface {
	PublishDonation(ctx context.Context, d core.Donation) error
	PublishVote(ctx context.Context, proposalID int64, votes int) error
}

// Metrics is the sink the engine reports activity to.
type Metrics interface {
	DonationRecorded(amount core.Money)
	VoteCast(proposalID int64)
	VoteRejected(reason string)
	StoreFailure(op, key string)
}

// LoadReport describes what Load found in the store.
type LoadReport struct {
	Warnings        []error
	SeededProposals bool
	Donations       int
	Proposals       int
}

type Option func(*Engine)

func WithPublisher(p EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *applog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.WithComponent(applog.ComponentEngine)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine composes the ledger, the proposal board and the vote guard over one
// store. It is the single entry point used by the HTTP API and the CLI.
type Engine struct {
	store     store.Store
	logger    *applog.Logger
	now       func() time.Time
	publisher EventPublisher
	metrics   Metrics

	ledger *Ledger
	guard  *VoteGuard
	board  *ProposalBoard

	loaded atomic.Bool
}

func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		now:    time.Now,
		logger: applog.Discard().WithComponent(applog.ComponentEngine),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ledger = NewLedger(s, e.now)
	e.guard = NewVoteGuard(s)
	e.board = NewProposalBoard(s, e.guard, e.now)
	return e
}

// Load reads donations, proposals and the vote record. Read and decode
// failures never abort the load: the affected collection starts empty (or
// seeded, for proposals) and the failure is reported as a warning.
func (e *Engine) Load(ctx context.Context) (LoadReport, error) {
	var (
		donations    []core.Donation
		donationsErr error
		proposals    []core.Proposal
		proposalsOK  bool
		proposalsErr error
		record       core.VoteRecord
		recordErr    error
		g            errgroup.Group
	)

	g.Go(func() error {
		donations, _, donationsErr = fetch[[]core.Donation](ctx, e.store, store.KeyDonations, true)
		return nil
	})
	g.Go(func() error {
		proposals, proposalsOK, proposalsErr = fetch[[]core.Proposal](ctx, e.store, store.KeyProposals, true)
		return nil
	})
	g.Go(func() error {
		record, _, recordErr = fetch[core.VoteRecord](ctx, e.store, store.KeyUserVotes, false)
		return nil
	})
	_ = g.Wait()

	var report LoadReport

	if donationsErr != nil {
		e.warn(ctx, applog.OpLoad, "Failed to load donations", donationsErr, store.KeyDonations, true)
		report.Warnings = append(report.Warnings, donationsErr)
		donations = nil
	}
	e.ledger.Load(donations)

	if recordErr != nil {
		e.warn(ctx, applog.OpLoad, "Failed to load vote record", recordErr, store.KeyUserVotes, false)
		report.Warnings = append(report.Warnings, recordErr)
		record = nil
	}
	e.guard.Load(record)

	var board []core.Proposal
	switch {
	case proposalsErr != nil:
		e.warn(ctx, applog.OpLoad, "Failed to load proposals, using default board", proposalsErr, store.KeyProposals, true)
		report.Warnings = append(report.Warnings, proposalsErr)
		board = e.board.seedLocal()
		report.SeededProposals = true
	default:
		var seedErr error
		board, seedErr = e.board.Initialize(ctx, proposals, proposalsOK)
		report.SeededProposals = !proposalsOK
		if seedErr != nil {
			e.warn(ctx, applog.OpSeed, "Failed to persist default proposals", seedErr, store.KeyProposals, true)
			report.Warnings = append(report.Warnings, seedErr)
		}
	}

	report.Donations = len(donations)
	report.Proposals = len(board)
	e.loaded.Store(true)

	e.logger.InfoContext(ctx, "Engine loaded",
		applog.FieldOperation, applog.OpLoad,
		"donations", report.Donations,
		"proposals", report.Proposals,
		"seeded", report.SeededProposals,
		"warnings", len(report.Warnings))

	return report, ctx.Err()
}

// Donate records a donation and returns the updated totals. Validation
// failures leave everything unchanged. A *core.StoreError means the donation
// was applied in memory but not persisted.
func (e *Engine) Donate(ctx context.Context, amount core.Money, donor string) (core.Totals, error) {
	d, err := e.ledger.RecordDonation(ctx, amount, donor)
	if err != nil {
		if errors.Is(err, core.ErrInvalidDonation) {
			e.logger.DebugContext(ctx, "Donation rejected",
				applog.FieldErrorType, applog.ErrorTypeValidation,
				applog.FieldError, err)
			return e.Totals(), err
		}
		e.storeFailure(ctx, "Failed to persist donation", err)
		return e.Totals(), err
	}

	e.logger.InfoContext(ctx, "Donation recorded",
		applog.NewFields().WithOperation(applog.OpDonate).WithDonation(d.ID, d.Donor, d.Amount.Cents).ToSlice()...)
	if e.metrics != nil {
		e.metrics.DonationRecorded(d.Amount)
	}
	if e.publisher != nil {
		if perr := e.publisher.PublishDonation(ctx, d); perr != nil {
			e.logger.WarnContext(ctx, "Failed to publish donation event",
				applog.FieldOperation, applog.OpPublish,
				applog.FieldDonationID, d.ID,
				applog.FieldError, perr)
		}
	}
	return e.Totals(), nil
}

// Vote casts the current voter's vote on proposalID and returns the board.
// Unknown proposals fail with core.ErrProposalNotFound before the vote record
// is touched.
func (e *Engine) Vote(ctx context.Context, proposalID int64) ([]core.Proposal, error) {
	if _, ok := e.board.Get(proposalID); !ok {
		e.rejected("not_found")
		e.logger.DebugContext(ctx, "Vote rejected",
			applog.FieldProposalID, proposalID,
			applog.FieldErrorType, applog.ErrorTypeNotFound)
		return e.board.Proposals(), core.ErrProposalNotFound
	}

	proposals, err := e.board.ApplyVote(ctx, proposalID)
	if errors.Is(err, core.ErrAlreadyVoted) {
		e.rejected("already_voted")
		e.logger.DebugContext(ctx, "Vote rejected",
			applog.FieldProposalID, proposalID,
			applog.FieldErrorType, applog.ErrorTypeConflict)
		return e.board.Proposals(), err
	}
	if err != nil {
		e.storeFailure(ctx, "Failed to persist vote", err)
		return proposals, err
	}

	p, ok := e.board.Get(proposalID)
	if !ok {
		// the stored board read back after a failed load no longer has it
		e.rejected("not_found")
		return proposals, core.ErrProposalNotFound
	}
	e.logger.InfoContext(ctx, "Vote cast",
		applog.NewFields().WithOperation(applog.OpVote).WithProposal(p.ID, p.Votes).ToSlice()...)
	if e.metrics != nil {
		e.metrics.VoteCast(proposalID)
	}
	if e.publisher != nil {
		if perr := e.publisher.PublishVote(ctx, p.ID, p.Votes); perr != nil {
			e.logger.WarnContext(ctx, "Failed to publish vote event",
				applog.FieldOperation, applog.OpPublish,
				applog.FieldProposalID, p.ID,
				applog.FieldError, perr)
		}
	}
	return proposals, nil
}

// Donations returns the history in insertion order.
func (e *Engine) Donations() []core.Donation { return e.ledger.Donations() }

// RecentDonations returns the history newest first.
func (e *Engine) RecentDonations() []core.Donation {
	return core.MostRecentFirst(e.ledger.Donations())
}

func (e *Engine) DonorCount() int { return core.DistinctDonors(e.ledger.Donations()) }

func (e *Engine) Proposals() []core.Proposal { return e.board.Proposals() }

func (e *Engine) Proposal(id int64) (core.Proposal, bool) { return e.board.Get(id) }

func (e *Engine) HasVoted(id int64) bool { return e.guard.HasVoted(id) }

func (e *Engine) VoteRecord() core.VoteRecord { return e.guard.Record() }

func (e *Engine) Totals() core.Totals {
	return core.ComputeTotals(e.ledger.Donations(), e.board.Proposals())
}

// Loaded reports whether Load has completed at least once.
func (e *Engine) Loaded() bool { return e.loaded.Load() }

func (e *Engine) warn(ctx context.Context, op, msg string, err error, key string, shared bool) {
	e.logger.WarnContext(ctx, msg,
		applog.NewFields().WithOperation(op).WithStoreKey(key, shared).
			WithError(err).WithErrorType(applog.ErrorTypeStorage).ToSlice()...)
	var se *core.StoreError
	if e.metrics != nil && errors.As(err, &se) {
		e.metrics.StoreFailure(se.Op, se.Key)
	}
}

func (e *Engine) storeFailure(ctx context.Context, msg string, err error) {
	e.logger.ErrorContext(ctx, msg,
		applog.FieldOperation, applog.OpWrite,
		applog.FieldErrorType, applog.ErrorTypeStorage,
		applog.FieldError, err)
	if e.metrics == nil {
		return
	}
	// A vote can fail two writes at once.
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, one := range errs {
		var se *core.StoreError
		if errors.As(one, &se) {
			e.metrics.StoreFailure(se.Op, se.Key)
		}
	}
}

func (e *Engine) rejected(reason string) {
	if e.metrics != nil {
		e.metrics.VoteRejected(reason)
	}
}
