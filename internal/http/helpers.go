package http

import (
	"strings"

	"relief/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ProposalView is a proposal as rendered to a client, with the current
// voter's flag and the category's display label and color.
type ProposalView struct {
	ID            int64               `json:"id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Amount        core.Money          `json:"amount"`
	Category      string              `json:"emergencyCategory"`
	CategoryColor string              `json:"categoryColor"`
	Votes         int                 `json:"votes"`
	Status        core.ProposalStatus `json:"status"`
	CreatedAt     core.Millis         `json:"createdAt"`
	HasVoted      bool                `json:"hasVoted"`
}

// StateView is the full dashboard payload.
type StateView struct {
	Totals          core.Totals     `json:"totals"`
	Proposals       []ProposalView  `json:"proposals"`
	DonorCount      int             `json:"donorCount"`
	DonationCount   int             `json:"donationCount"`
	RecentDonations []core.Donation `json:"recentDonations"`
}

const recentDonationsLimit = 10

func proposalViews(proposals []core.Proposal, voted core.VoteRecord) []ProposalView {
	out := make([]ProposalView, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, ProposalView{
			ID:            p.ID,
			Title:         p.Title,
			Description:   p.Description,
			Amount:        p.Amount,
			Category:      p.EmergencyCategory.Label(),
			CategoryColor: p.EmergencyCategory.Color(),
			Votes:         p.Votes,
			Status:        p.Status,
			CreatedAt:     p.CreatedAt,
			HasVoted:      voted[p.ID],
		})
	}
	return out
}
