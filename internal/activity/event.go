// Package activity records successful engine actions. Records are persisted
// asynchronously and published to the live change feed of the entity they
// concern.
package activity

import (
	"encoding/json"
	"time"

	"github.com/seantiz/wayfarer/internal/model"
)

// Event is an activity record on its way to storage.
type Event struct {
	model.Activity
	// Final marks the last record for the entity; its change feed is closed
	// after the record is published.
	Final bool `json:"-"`
}

// Option configures an Event.
type Option func(*Event)

// WithActor sets the user who performed the action.
func WithActor(user string) Option {
	return func(e *Event) {
		e.Actor = user
	}
}

// WithData attaches a JSON-encodable payload. Payloads that fail to encode
// are left out.
func WithData(data any) Option {
	return func(e *Event) {
		if b, err := json.Marshal(data); err == nil {
			e.Data = b
		}
	}
}

// Final marks the event as the last one for its entity.
func Final() Option {
	return func(e *Event) {
		e.Final = true
	}
}

// NewEvent builds an event of the given type for entityID.
func NewEvent(eventType, entityID string, opts ...Option) Event {
	e := Event{
		Activity: model.Activity{
			ID:        model.NewActivityID(),
			Type:      eventType,
			EntityID:  entityID,
			CreatedAt: time.Now().UTC(),
		},
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Recorder accepts activity events. Implementations must not block the
// caller on storage.
type Recorder interface {
	Record(e Event)
}

// Discard is a Recorder that drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Event) {}
