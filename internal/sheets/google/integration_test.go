//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"relief/internal/core"
)

// Integration tests require a real spreadsheet and service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, Config{
		SpreadsheetID:      spreadsheetID,
		DonationsSheet:     os.Getenv("GOOGLE_DONATIONS_SHEET"),
		TallySheet:         os.Getenv("GOOGLE_TALLY_SHEET"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}, nil)
	if err != nil {
		t.Skipf("credentials not usable: %v", err)
	}

	now := time.Now()
	d := core.Donation{ID: now.UnixMilli(), Amount: core.Money{Cents: 1}, Donor: "integration-test", Timestamp: core.NewMillis(now)}
	first, err := client.AppendDonation(ctx, d)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := client.AppendDonation(ctx, d)
	if err != nil {
		t.Fatalf("re-append: %v", err)
	}
	t.Logf("appended %s, duplicate resolved to %s", first, second)

	if err := client.WriteTally(ctx, core.DefaultProposals(now)); err != nil {
		t.Fatalf("write tally: %v", err)
	}
}
