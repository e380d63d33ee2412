package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Activity is an audit record of one successful engine action.
type Activity struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	EntityID  string          `json:"entity_id"`
	Actor     string          `json:"actor,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
