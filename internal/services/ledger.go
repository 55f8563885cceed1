package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"relief/internal/core"
	"relief/internal/store"
)

// Ledger owns the append-only donation history and the running total.
type Ledger struct {
	mu        sync.Mutex
	store     store.Store
	now       func() time.Time
	donations []core.Donation
	total     core.Money
	lastID    int64
}

func NewLedger(s store.Store, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: s, now: now}
}

// Load replaces the in-memory history with donations read from storage.
func (l *Ledger) Load(donations []core.Donation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.donations = append([]core.Donation(nil), donations...)
	l.lastID = 0
	for _, d := range l.donations {
		if d.ID > l.lastID {
			l.lastID = d.ID
		}
	}
	l.recompute()
}

// RecordDonation validates and appends a donation, then persists the whole
// history under the shared donations key.
//
// The append is applied before the write and is kept when the write fails:
// the donation is returned together with a *core.StoreError in that case.
func (l *Ledger) RecordDonation(ctx context.Context, amount core.Money, donor string) (core.Donation, error) {
	d := core.Donation{
		Amount: amount,
		Donor:  strings.TrimSpace(donor),
	}
	if err := d.Validate(); err != nil {
		return core.Donation{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	d.ID = l.nextID(now)
	d.Timestamp = core.NewMillis(now)

	l.donations = append(l.donations, d)
	l.recompute()

	// Written under mu so a stale snapshot never overwrites a newer one.
	return d, persist(ctx, l.store, store.KeyDonations, true, l.donations)
}

// Donations returns the history in insertion order.
func (l *Ledger) Donations() []core.Donation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Donation(nil), l.donations...)
}

func (l *Ledger) TotalFunds() core.Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// nextID is time based like the stored ids, bumped to stay strictly increasing.
func (l *Ledger) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return id
}

func (l *Ledger) recompute() {
	var total core.Money
	for _, d := range l.donations {
		total = total.Add(d.Amount)
	}
	l.total = total
}
