package memory

import (
	"context"
	"fmt"
	"sync"

	"relief/internal/core"
	"relief/internal/sheets"
)

// Store is an in-process spreadsheet used for local runs and tests.
type Store struct {
	mu          sync.Mutex
	donations   []core.Donation
	rows        map[int64]int
	tally       []core.Proposal
	tallyWrites int
}

var _ sheets.Exporter = (*Store)(nil)

func New() *Store {
	return &Store{rows: map[int64]int{}}
}

// AppendDonation stores the donation and returns a synthetic row reference.
func (s *Store) AppendDonation(_ context.Context, d core.Donation) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[d.ID]; ok {
		return fmt.Sprintf("mem:%d", row), nil
	}
	s.donations = append(s.donations, d)
	s.rows[d.ID] = len(s.donations)
	return fmt.Sprintf("mem:%d", len(s.donations)), nil
}

func (s *Store) WriteTally(_ context.Context, proposals []core.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tally = append([]core.Proposal(nil), proposals...)
	s.tallyWrites++
	return nil
}

func (s *Store) Donations() []core.Donation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Donation(nil), s.donations...)
}

// Tally returns the last written board and how many times it was written.
func (s *Store) Tally() ([]core.Proposal, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Proposal(nil), s.tally...), s.tallyWrites
}
