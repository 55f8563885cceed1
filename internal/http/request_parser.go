// Package http serves the relief engine as a JSON API.
//
// This file implements parsing and validation of request bodies and path
// parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"relief/internal/core"
)

const maxBodyBytes = 1 << 16 // 64KB

var errEmptyBody = errors.New("request body is empty")

// DonationRequest is the decoded body of POST /api/donations.
type DonationRequest struct {
	Amount core.Money
	Donor  string
}

type donationPayload struct {
	Amount json.RawMessage `json:"amount"`
	Donor  string          `json:"donor"`
}

// ParseDonationRequest reads a donation from a JSON or form-encoded body.
// Amounts may be JSON numbers or decimal strings ("12.50", "12,50").
// Amount errors wrap core.ErrInvalidDonation; malformed bodies do not.
func ParseDonationRequest(r *http.Request) (DonationRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return DonationRequest{}, fmt.Errorf("parse form: %w", err)
		}
		amount, err := parseAmountString(r.PostForm.Get("amount"))
		if err != nil {
			return DonationRequest{}, err
		}
		return DonationRequest{Amount: amount, Donor: sanitizeInput(r.PostForm.Get("donor"))}, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return DonationRequest{}, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return DonationRequest{}, fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return DonationRequest{}, errEmptyBody
	}

	var p donationPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return DonationRequest{}, fmt.Errorf("decode body: %w", err)
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return DonationRequest{}, err
	}
	return DonationRequest{Amount: amount, Donor: sanitizeInput(p.Donor)}, nil
}

func parseAmount(raw json.RawMessage) (core.Money, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return core.Money{}, invalidAmount("amount is required")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return core.Money{}, invalidAmount("amount must be a number")
		}
		return parseAmountString(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return core.Money{}, invalidAmount("amount must be a number")
	}
	f, err := n.Float64()
	if err != nil {
		return core.Money{}, invalidAmount("amount must be a number")
	}
	m, err := core.MoneyFromFloat(f)
	if err != nil {
		return core.Money{}, invalidAmount("amount must be a positive number")
	}
	return m, nil
}

func parseAmountString(s string) (core.Money, error) {
	if strings.TrimSpace(s) == "" {
		return core.Money{}, invalidAmount("amount is required")
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, invalidAmount("amount must be a positive number")
	}
	return core.Money{Cents: cents}, nil
}

func invalidAmount(msg string) error {
	return fmt.Errorf("%s: %w", msg, errors.Join(core.ErrInvalidDonation, core.ErrInvalidAmount))
}

// ParseProposalID reads the {id} route parameter.
func ParseProposalID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q", raw)
	}
	return id, nil
}
