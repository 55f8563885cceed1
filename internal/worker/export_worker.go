// Package worker mirrors relief activity into the spreadsheet export.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"relief/internal/amqp"
	"relief/internal/core"
	applog "relief/internal/log"
	"relief/internal/sheets"
	"relief/internal/store"
)

// Recorder counts export attempts.
type Recorder interface {
	ExportRecorded(kind string, err error)
}

// Config holds configuration for the export worker
type Config struct {
	// RefreshInterval is how often the full tally is rewritten (default: 5m)
	RefreshInterval time.Duration
}

func DefaultConfig() Config {
	return Config{RefreshInterval: 5 * time.Minute}
}

// ExportWorker appends donation rows as donation events arrive and rewrites
// the tally from the shared proposals collection on vote events and on a
// timer, so a lost vote event is repaired by the next refresh.
type ExportWorker struct {
	donations sheets.DonationWriter
	tally     sheets.TallyWriter
	store     store.Store
	logger    *applog.Logger
	metrics   Recorder
	config    Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewExportWorker builds a worker reading s. The collections it exports are
// written by other processes, so any cache around s is bypassed.
func NewExportWorker(exporter sheets.Exporter, s store.Store, logger *applog.Logger, metrics Recorder, config Config) *ExportWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultConfig().RefreshInterval
	}
	return &ExportWorker{
		donations: exporter,
		tally:     exporter,
		store:     store.Uncached(s),
		logger:    logger.WithComponent(applog.ComponentWorker),
		metrics:   metrics,
		config:    config,
	}
}

// HandleDonation processes a donation.recorded event.
func (w *ExportWorker) HandleDonation(ctx context.Context, d core.Donation) error {
	ref, err := w.donations.AppendDonation(ctx, d)
	w.record("donation", err)
	if err != nil {
		return fmt.Errorf("export donation %d: %w", d.ID, err)
	}
	w.logger.InfoContext(ctx, "Exported donation",
		applog.NewFields().WithOperation(applog.OpExport).WithDonation(d.ID, d.Donor, d.Amount.Cents).ToSlice()...)
	w.logger.DebugContext(ctx, "Donation row", applog.FieldDonationID, d.ID, "sheets_ref", ref)
	return nil
}

// HandleVote processes a vote.cast event. The event only triggers a refresh:
// the stored board is the source of truth for counts.
func (w *ExportWorker) HandleVote(ctx context.Context, v amqp.VotePayload) error {
	w.logger.DebugContext(ctx, "Vote event received", applog.FieldProposalID, v.ProposalID, applog.FieldVotes, v.Votes)
	return w.RefreshTally(ctx)
}

// RefreshTally rewrites the tally from the stored proposals. A missing
// proposals key means nothing has been seeded yet and is not an error.
func (w *ExportWorker) RefreshTally(ctx context.Context) error {
	proposals, found, err := readShared[[]core.Proposal](ctx, w.store, store.KeyProposals)
	if err != nil {
		w.record("tally", err)
		return err
	}
	if !found {
		w.logger.DebugContext(ctx, "No proposals stored yet, skipping tally")
		return nil
	}

	err = w.tally.WriteTally(ctx, proposals)
	w.record("tally", err)
	if err != nil {
		return fmt.Errorf("write tally: %w", err)
	}
	w.logger.InfoContext(ctx, "Tally refreshed", applog.FieldOperation, applog.OpExport, "proposals", len(proposals))
	return nil
}

// StartupSync re-exports every stored donation and refreshes the tally, to
// recover from events missed while the worker was down. Row appends are
// idempotent per donation id.
func (w *ExportWorker) StartupSync(ctx context.Context) error {
	donations, _, err := readShared[[]core.Donation](ctx, w.store, store.KeyDonations)
	if err != nil {
		return err
	}

	synced, failed := 0, 0
	for _, d := range donations {
		if err := w.HandleDonation(ctx, d); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export donation during startup",
				applog.FieldDonationID, d.ID, applog.FieldError, err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		applog.FieldOperation, applog.OpStartup,
		"total", len(donations),
		"synced", synced,
		"errors", failed)

	return w.RefreshTally(ctx)
}

// Start begins the periodic refresh loop. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Export worker started", "refresh_interval", w.config.RefreshInterval)
	return nil
}

// Stop stops the refresh loop and waits for it to exit.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Export worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}
}

func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExportWorker) runLoop(ctx context.Context) {
	w.mu.Lock()
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()
	defer close(doneCh)

	ticker := time.NewTicker(w.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RefreshTally(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic tally refresh failed", applog.FieldError, err)
			}
		}
	}
}

func (w *ExportWorker) record(kind string, err error) {
	if w.metrics != nil {
		w.metrics.ExportRecorded(kind, err)
	}
}

func readShared[T any](ctx context.Context, s store.Store, key string) (out T, found bool, err error) {
	raw, found, err := s.Get(ctx, key, true)
	if err != nil {
		return out, false, &core.StoreError{Op: "get", Key: key, Err: err}
	}
	if !found {
		return out, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, false, &core.StoreError{Op: "get", Key: key, Err: fmt.Errorf("decode: %w", err)}
	}
	return out, true, nil
}
