package core

import (
	"sort"
	"time"
)

// Totals are the fund aggregates derived from donations and proposals.
// They are never persisted.
type Totals struct {
	TotalFunds     Money `json:"totalFunds"`
	DeployedFunds  Money `json:"deployedFunds"`
	AvailableFunds Money `json:"availableFunds"`
}

// ComputeTotals sums donations and debits the amounts of approved proposals.
// Nothing approves proposals yet, so DeployedFunds is zero in practice.
func ComputeTotals(donations []Donation, proposals []Proposal) Totals {
	var t Totals
	for _, d := range donations {
		t.TotalFunds = t.TotalFunds.Add(d.Amount)
	}
	for _, p := range proposals {
		if p.Status == StatusApproved {
			t.DeployedFunds = t.DeployedFunds.Add(p.Amount)
		}
	}
	t.AvailableFunds = t.TotalFunds.Sub(t.DeployedFunds)
	return t
}

// MostRecentFirst returns a copy of donations ordered newest first.
// Ties keep the reverse of insertion order.
func MostRecentFirst(donations []Donation) []Donation {
	out := make([]Donation, len(donations))
	for i, d := range donations {
		out[len(donations)-1-i] = d
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp.Time)
	})
	return out
}

// DistinctDonors counts donors by trimmed display name.
func DistinctDonors(donations []Donation) int {
	seen := make(map[string]struct{}, len(donations))
	for _, d := range donations {
		seen[d.Donor] = struct{}{}
	}
	return len(seen)
}

// DefaultProposals is the seed board used when no proposals are stored.
func DefaultProposals(now time.Time) []Proposal {
	created := NewMillis(now)
	return []Proposal{
		{
			ID:                1,
			Title:             "Emergency Food Supplies",
			Description:       "Purchase and distribute food packages to 50 families affected by recent flooding",
			Amount:            Money{Cents: 500000},
			EmergencyCategory: Flooding,
			Status:            StatusActive,
			CreatedAt:         created,
		},
		{
			ID:                2,
			Title:             "Medical Supplies & First Aid",
			Description:       "Acquire essential medical supplies and first aid kits for community health workers",
			Amount:            Money{Cents: 300000},
			EmergencyCategory: DiseaseOutbreak,
			Status:            StatusActive,
			CreatedAt:         created,
		},
		{
			ID:                3,
			Title:             "Temporary Shelter Materials",
			Description:       "Provide tarpaulins, tents, and basic shelter materials for displaced families",
			Amount:            Money{Cents: 450000},
			EmergencyCategory: StormDamage,
			Status:            StatusActive,
			CreatedAt:         created,
		},
	}
}
