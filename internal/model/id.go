package model

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID string for use as an entity identifier.
// IDs from one process sort in creation order.
func NewID() string {
	return ulid.Make().String()
}

// NewActivityID generates a random identifier for an activity record.
func NewActivityID() uuid.UUID {
	return uuid.New()
}
