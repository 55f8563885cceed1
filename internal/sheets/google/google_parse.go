package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"relief/internal/core"
)

var tallyHeader = []any{"ID", "Title", "Category", "Amount", "Votes", "Status"}

// parseDonationRows maps donation ids found in column A to their 1-based row.
// Header and blank rows are skipped.
func parseDonationRows(values [][]any) map[int64]int {
	out := make(map[int64]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
		if err != nil {
			continue
		}
		if _, seen := out[id]; !seen {
			out[id] = i + 1
		}
	}
	return out
}

// donationRow is ID | Timestamp | Donor | Amount. The id is written as text
// so large values survive spreadsheet number formatting.
func donationRow(d core.Donation) []any {
	return []any{
		strconv.FormatInt(d.ID, 10),
		d.Timestamp.UTC().Format(time.RFC3339),
		d.Donor,
		d.Amount.Units(),
	}
}

func tallyValues(proposals []core.Proposal) [][]any {
	out := make([][]any, 0, len(proposals)+1)
	out = append(out, tallyHeader)
	for _, p := range proposals {
		out = append(out, []any{
			p.ID,
			p.Title,
			p.EmergencyCategory.Label(),
			p.Amount.Units(),
			p.Votes,
			string(p.Status),
		})
	}
	return out
}
