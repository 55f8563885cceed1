package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"relief/internal/core"
)

// Event types carried on the relief exchange.
const (
	TypeDonationRecorded = "donation.recorded"
	TypeVoteCast         = "vote.cast"
)

// VotePayload is the vote part of a vote.cast event: the proposal and its
// count right after the vote was applied.
type VotePayload struct {
	ProposalID int64 `json:"proposalId"`
	Votes      int   `json:"votes"`
}

// Event is the envelope published for every committed mutation. Exactly one
// of Donation and Vote is set, matching Type.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Donation  *core.Donation `json:"donation,omitempty"`
	Vote      *VotePayload   `json:"vote,omitempty"`
}

func NewDonationEvent(d core.Donation) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      TypeDonationRecorded,
		Timestamp: time.Now().UTC(),
		Donation:  &d,
	}
}

func NewVoteEvent(proposalID int64, votes int) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      TypeVoteCast,
		Timestamp: time.Now().UTC(),
		Vote:      &VotePayload{ProposalID: proposalID, Votes: votes},
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and checks that its payload matches its type.
func EventFromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case TypeDonationRecorded:
		if ev.Donation == nil {
			return nil, fmt.Errorf("event %s: missing donation payload", ev.Type)
		}
	case TypeVoteCast:
		if ev.Vote == nil {
			return nil, fmt.Errorf("event %s: missing vote payload", ev.Type)
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return &ev, nil
}
