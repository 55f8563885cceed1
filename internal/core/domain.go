package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	StatusActive   ProposalStatus = "active"
	StatusApproved ProposalStatus = "approved"
	StatusRejected ProposalStatus = "rejected"
)

const (
	Flooding         EmergencyCategory = "Flooding"
	DiseaseOutbreak  EmergencyCategory = "Disease Outbreak"
	StormDamage      EmergencyCategory = "Storm Damage"
	Fire             EmergencyCategory = "Fire"
	Earthquake       EmergencyCategory = "Earthquake"
	UnknownEmergency EmergencyCategory = "Other"
)

type (
	ProposalStatus string

	// EmergencyCategory is an open label set: labels outside the known
	// constants are valid and fall back to default presentation.
	EmergencyCategory string

	// Millis is a point in time encoded as unix milliseconds on the wire.
	Millis struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Donation struct {
		ID        int64  `json:"id"`
		Amount    Money  `json:"amount"`
		Donor     string `json:"donor"`
		Timestamp Millis `json:"timestamp"`
		Anonymous bool   `json:"anonymous"` // reserved, always false for now
	}

	Proposal struct {
		ID                int64             `json:"id"`
		Title             string            `json:"title"`
		Description       string            `json:"description"`
		Amount            Money             `json:"amount"`
		EmergencyCategory EmergencyCategory `json:"emergencyCategory"`
		Votes             int               `json:"votes"`
		Status            ProposalStatus    `json:"status"`
		CreatedAt         Millis            `json:"createdAt"`
	}

	// VoteRecord maps proposal id to "has voted" for the current voter.
	VoteRecord map[int64]bool
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDonor       = errors.New("empty donor name")
	ErrInvalidDonation  = errors.New("invalid donation")
	ErrAlreadyVoted     = errors.New("already voted on this proposal")
	ErrProposalNotFound = errors.New("proposal not found")
)

var categoryColors = map[EmergencyCategory]string{
	Flooding:        "blue",
	DiseaseOutbreak: "red",
	StormDamage:     "purple",
	Fire:            "orange",
	Earthquake:      "yellow",
}

// NewMillis truncates t to millisecond precision so it survives a JSON round-trip.
func NewMillis(t time.Time) Millis {
	return Millis{Time: time.UnixMilli(t.UnixMilli()).UTC()}
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.UnixMilli())
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	m.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

func (c EmergencyCategory) Known() bool {
	_, ok := categoryColors[c]
	return ok
}

// Color returns the badge color for the category, "gray" for unknown labels.
func (c EmergencyCategory) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return "gray"
}

// Label returns the display label, substituting a default for blank categories.
func (c EmergencyCategory) Label() string {
	if strings.TrimSpace(string(c)) == "" {
		return string(UnknownEmergency)
	}
	return string(c)
}

func (s ProposalStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Donation) Validate() error {
	if err := d.Amount.Validate(); err != nil {
		return errors.Join(ErrInvalidDonation, err)
	}
	if strings.TrimSpace(d.Donor) == "" {
		return errors.Join(ErrInvalidDonation, ErrEmptyDonor)
	}
	return nil
}

// UnmarshalJSON accepts the legacy "emergency" field written by earlier clients.
func (p *Proposal) UnmarshalJSON(data []byte) error {
	type plain Proposal
	aux := struct {
		*plain
		Emergency EmergencyCategory `json:"emergency"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.EmergencyCategory == "" {
		p.EmergencyCategory = aux.Emergency
	}
	return nil
}

// Clone returns an independent copy of the record.
func (r VoteRecord) Clone() VoteRecord {
	out := make(VoteRecord, len(r))
	for id, voted := range r {
		out[id] = voted
	}
	return out
}
