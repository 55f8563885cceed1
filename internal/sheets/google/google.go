// Package google exports donations and the vote tally to a Google Sheets
// spreadsheet using service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"relief/internal/core"
	applog "relief/internal/log"
	ports "relief/internal/sheets"
)

const (
	defaultDonationsSheet = "Donations"
	defaultTallySheet     = "Proposals"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	DonationsSheet     string
	TallySheet         string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	donationsSheet string
	tallySheet     string
	logger         *applog.Logger

	// serializes the duplicate check with the append
	appendMu sync.Mutex
}

var _ ports.Exporter = (*Client)(nil)

// New creates a Sheets client from cfg. GOOGLE_APPLICATION_CREDENTIALS is
// used when cfg names no credentials.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = applog.Discard()
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *gsheet.Service, cfg Config, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.Discard()
	}
	donations := strings.TrimSpace(cfg.DonationsSheet)
	if donations == "" {
		donations = defaultDonationsSheet
	}
	tally := strings.TrimSpace(cfg.TallySheet)
	if tally == "" {
		tally = defaultTallySheet
	}
	return &Client{
		svc:            svc,
		spreadsheetID:  strings.TrimSpace(cfg.SpreadsheetID),
		donationsSheet: donations,
		tallySheet:     tally,
		logger:         logger.WithComponent(applog.ComponentSheets),
	}
}

func newSheetsService(ctx context.Context, cfg Config, logger *applog.Logger) (*gsheet.Service, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inline != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(inline)
	case file != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// AppendDonation adds a row for d unless a row with its id already exists,
// so redelivered events do not duplicate rows.
func (c *Client) AppendDonation(ctx context.Context, d core.Donation) (string, error) {
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	idRange := fmt.Sprintf("%s!A:A", c.donationsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, idRange).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", idRange, err)
	}
	if row, ok := parseDonationRows(resp.Values)[d.ID]; ok {
		ref := fmt.Sprintf("%s!A%d:D%d", c.donationsSheet, row, row)
		c.logger.DebugContext(ctx, "Donation already exported", applog.FieldDonationID, d.ID, "ref", ref)
		return ref, nil
	}

	rng := fmt.Sprintf("%s!A:D", c.donationsSheet)
	vr := &gsheet.ValueRange{Values: [][]any{donationRow(d)}}
	out, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.donationsSheet, err)
	}

	ref := rng
	if out.Updates != nil && out.Updates.UpdatedRange != "" {
		ref = out.Updates.UpdatedRange
	}
	return ref, nil
}

// WriteTally rewrites the tally sheet with a header row and one row per
// proposal, clearing rows left over from a longer board.
func (c *Client) WriteTally(ctx context.Context, proposals []core.Proposal) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	values := tallyValues(proposals)
	last := len(values)
	rng := fmt.Sprintf("%s!A1:F%d", c.tallySheet, last)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	stale := fmt.Sprintf("%s!A%d:F", c.tallySheet, last+1)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, stale, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", stale, err)
	}
	return nil
}
