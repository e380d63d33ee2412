package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Participant is a trip member together with the budget they brought.
type Participant struct {
	User   string          `json:"user"`
	Budget decimal.Decimal `json:"budget"`
}

// Trip is an owner-managed plan with a destination, a date range and a
// participant list. The owner is always a participant.
type Trip struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Owner        string        `json:"owner"`
	Destination  string        `json:"destination"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Participants []Participant `json:"participants"`
	Finalized    bool          `json:"finalized"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ParticipantIndex returns the index of user in the participant list, or -1.
func (t *Trip) ParticipantIndex(user string) int {
	for i, p := range t.Participants {
		if p.User == user {
			return i
		}
	}
	return -1
}
