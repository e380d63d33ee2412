package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Itinerary groups the proposed events for one trip. Events holds the IDs of
// approved events and is derived from the events themselves on every read.
type Itinerary struct {
	ID        string    `json:"id"`
	Trip      string    `json:"trip"`
	Events    []string  `json:"events"`
	Finalized bool      `json:"finalized"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is a proposed itinerary entry. A new event is pending; approval
// clears Pending and records the decision in Approved.
type Event struct {
	ID          string          `json:"id"`
	ItineraryID string          `json:"itinerary_id"`
	Name        string          `json:"name"`
	Cost        decimal.Decimal `json:"cost"`
	Pending     bool            `json:"pending"`
	Approved    bool            `json:"approved"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InApprovedSet reports whether the event belongs in its itinerary's
// approved set.
func (e *Event) InApprovedSet() bool {
	return !e.Pending && e.Approved
}
