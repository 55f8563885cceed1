package sheets

import (
	"context"

	"relief/internal/core"
)

// Ports for outbound adapters.
type (
	// DonationWriter appends one row per donation. Appending a donation id
	// that is already present returns the existing row reference.
	DonationWriter interface {
		AppendDonation(ctx context.Context, d core.Donation) (rowRef string, err error)
	}

	// TallyWriter replaces the published vote tally with the given board.
	TallyWriter interface {
		WriteTally(ctx context.Context, proposals []core.Proposal) error
	}

	Exporter interface {
		DonationWriter
		TallyWriter
	}
)
