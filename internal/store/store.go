package store

import (
	"context"
	"errors"

	"github.com/seantiz/wayfarer/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
	// ErrStale is returned when a conditional update finds the row at a
	// different version than the caller read.
	ErrStale = errors.New("stale version")
	// ErrLocked is returned when an event write finds its itinerary finalized.
	ErrLocked = errors.New("itinerary locked")
)

// Store defines the persistence operations for every engine.
//
// Update methods write conditionally on the version carried by the argument
// and advance it on success.
type Store interface {
	CreateExpense(ctx context.Context, e *model.Expense) error
	GetExpense(ctx context.Context, id string) (*model.Expense, error)
	GetExpenseByItem(ctx context.Context, item string) (*model.Expense, error)
	ListExpenses(ctx context.Context) ([]*model.Expense, error)
	UpdateExpense(ctx context.Context, e *model.Expense) error
	DeleteExpense(ctx context.Context, id string) error

	CreatePoll(ctx context.Context, p *model.Poll) error
	GetPoll(ctx context.Context, id string) (*model.Poll, error)
	ListPollsForUser(ctx context.Context, user string) ([]*model.Poll, error)
	UpdatePoll(ctx context.Context, p *model.Poll) error

	CreateItinerary(ctx context.Context, it *model.Itinerary) error
	GetItinerary(ctx context.Context, id string) (*model.Itinerary, error)
	GetItineraryByTrip(ctx context.Context, trip string) (*model.Itinerary, error)
	UpdateItinerary(ctx context.Context, it *model.Itinerary) error
	CreateEvent(ctx context.Context, it *model.Itinerary, ev *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, itineraryID string, approvedOnly bool) ([]*model.Event, error)
	UpdateEvent(ctx context.Context, it *model.Itinerary, ev *model.Event) error
	DeleteEvent(ctx context.Context, it *model.Itinerary, eventID string) error

	CreateTrip(ctx context.Context, t *model.Trip) error
	GetTrip(ctx context.Context, id string) (*model.Trip, error)
	ListTripsByOwner(ctx context.Context, owner string) ([]*model.Trip, error)
	UpdateTrip(ctx context.Context, t *model.Trip) error
	DeleteTrip(ctx context.Context, id string) error

	InsertActivity(ctx context.Context, a *model.Activity) error
	ListActivity(ctx context.Context, entityID string) ([]*model.Activity, error)

	Ping(ctx context.Context) error
	Close() error
}
