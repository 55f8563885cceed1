package memory

import (
	"context"
	"errors"
	"testing"

	"relief/internal/core"
)

func TestAppendDonationIsIdempotent(t *testing.T) {
	s := New()
	d := core.Donation{ID: 10, Amount: core.Money{Cents: 500}, Donor: "Ana"}

	ref, err := s.AppendDonation(context.Background(), d)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, err = s.AppendDonation(context.Background(), d)
	if err != nil || ref != "mem:1" {
		t.Fatalf("duplicate append: ref=%q err=%v", ref, err)
	}
	if got := len(s.Donations()); got != 1 {
		t.Fatalf("expected 1 row, got %d", got)
	}
}

func TestAppendDonationValidates(t *testing.T) {
	s := New()
	_, err := s.AppendDonation(context.Background(), core.Donation{ID: 1, Donor: "Ana"})
	if !errors.Is(err, core.ErrInvalidDonation) {
		t.Fatalf("expected invalid donation, got %v", err)
	}
}

func TestWriteTallyReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.WriteTally(ctx, []core.Proposal{{ID: 1, Votes: 1}, {ID: 2}})
	_ = s.WriteTally(ctx, []core.Proposal{{ID: 1, Votes: 2}})

	tally, writes := s.Tally()
	if writes != 2 || len(tally) != 1 || tally[0].Votes != 2 {
		t.Fatalf("unexpected tally %+v after %d writes", tally, writes)
	}
}
