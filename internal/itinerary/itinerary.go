// Package itinerary implements the event approval workflow for trip
// itineraries.
//
// Events start pending. Approval settles them as approved or rejected, and an
// itinerary's approved set is always derived from its events. Once an
// itinerary is finalized no event can be added, changed, approved or removed
// until it is unfinalized again.
package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/seantiz/wayfarer/internal/activity"
	"github.com/seantiz/wayfarer/internal/errs"
	"github.com/seantiz/wayfarer/internal/model"
	"github.com/seantiz/wayfarer/internal/store"
)

// Activity types recorded by the planner.
const (
	EventCreated       = "itinerary.created"
	EventFinalized     = "itinerary.finalized"
	EventUnfinalized   = "itinerary.unfinalized"
	EventEventAdded    = "itinerary.event_added"
	EventEventUpdated  = "itinerary.event_updated"
	EventEventApproved = "itinerary.event_approved"
	EventEventRejected = "itinerary.event_rejected"
	EventEventRemoved  = "itinerary.event_removed"
)

// Planner owns the itineraries and events collections.
type Planner struct {
	store  store.Store
	rec    activity.Recorder
	logger *slog.Logger
}

// New creates a planner. rec may be nil.
func New(s store.Store, rec activity.Recorder, logger *slog.Logger) *Planner {
	if rec == nil {
		rec = activity.Discard
	}
	return &Planner{store: s, rec: rec, logger: logger}
}

// Create starts the itinerary for trip.
func (p *Planner) Create(ctx context.Context, trip string) (*model.Itinerary, error) {
	if trip == "" {
		return nil, errs.ErrEmptyTrip
	}

	it := &model.Itinerary{ID: model.NewID(), Trip: trip}
	if err := p.store.CreateItinerary(ctx, it); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.ErrDuplicateTrip
		}
		return nil, fmt.Errorf("create itinerary: %w", err)
	}

	p.rec.Record(activity.NewEvent(EventCreated, it.ID, activity.WithData(map[string]string{"trip": trip})))
	return it, nil
}

// open loads an itinerary that must still accept event changes.
func (p *Planner) open(ctx context.Context, itineraryID string) (*model.Itinerary, error) {
	it, err := p.store.GetItinerary(ctx, itineraryID)
	if err != nil {
		return nil, translate(err, errs.ErrItineraryNotFound, "get itinerary")
	}
	if it.Finalized {
		return nil, errs.ErrItineraryFinalized
	}
	return it, nil
}

// event loads an event that must belong to it.
func (p *Planner) event(ctx context.Context, it *model.Itinerary, eventID string) (*model.Event, error) {
	ev, err := p.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, translate(err, errs.ErrEventNotFound, "get event")
	}
	if ev.ItineraryID != it.ID {
		return nil, errs.ErrEventNotFound
	}
	return ev, nil
}

// AddEvent proposes a new pending event.
func (p *Planner) AddEvent(ctx context.Context, name string, cost decimal.Decimal, itineraryID string) (*model.Event, error) {
	if name == "" {
		return nil, errs.ErrEmptyName
	}
	if cost.IsNegative() {
		return nil, errs.ErrNegativeCost
	}
	it, err := p.open(ctx, itineraryID)
	if err != nil {
		return nil, err
	}

	ev := &model.Event{
		ID:      model.NewID(),
		Name:    name,
		Cost:    cost,
		Pending: true,
	}
	if err := p.store.CreateEvent(ctx, it, ev); err != nil {
		return nil, translate(err, errs.ErrItineraryNotFound, "add event")
	}

	p.rec.Record(activity.NewEvent(EventEventAdded, it.ID,
		activity.WithData(map[string]any{"event": ev.ID, "name": name, "cost": cost})))
	return ev, nil
}

// UpdateEvent changes an event's name and cost. Its approval state is kept.
func (p *Planner) UpdateEvent(ctx context.Context, eventID, name string, cost decimal.Decimal, itineraryID string) (*model.Event, error) {
	if name == "" {
		return nil, errs.ErrEmptyName
	}
	if cost.IsNegative() {
		return nil, errs.ErrNegativeCost
	}
	it, err := p.open(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	ev, err := p.event(ctx, it, eventID)
	if err != nil {
		return nil, err
	}

	ev.Name, ev.Cost = name, cost
	if err := p.store.UpdateEvent(ctx, it, ev); err != nil {
		return nil, translate(err, errs.ErrEventNotFound, "update event")
	}

	p.rec.Record(activity.NewEvent(EventEventUpdated, it.ID,
		activity.WithData(map[string]any{"event": ev.ID, "name": name, "cost": cost})))
	return ev, nil
}

// ApproveEvent settles an event as approved or rejected. Calling it again
// with the same decision leaves the event unchanged.
func (p *Planner) ApproveEvent(ctx context.Context, eventID string, approved bool, itineraryID string) (*model.Event, error) {
	it, err := p.open(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	ev, err := p.event(ctx, it, eventID)
	if err != nil {
		return nil, err
	}

	ev.Pending, ev.Approved = false, approved
	if err := p.store.UpdateEvent(ctx, it, ev); err != nil {
		return nil, translate(err, errs.ErrEventNotFound, "approve event")
	}

	typ := EventEventRejected
	if approved {
		typ = EventEventApproved
	}
	p.rec.Record(activity.NewEvent(typ, it.ID, activity.WithData(map[string]string{"event": ev.ID})))
	return ev, nil
}

// RemoveEvent deletes an event, dropping it from the approved set.
func (p *Planner) RemoveEvent(ctx context.Context, eventID, itineraryID string) error {
	it, err := p.open(ctx, itineraryID)
	if err != nil {
		return err
	}
	if _, err := p.event(ctx, it, eventID); err != nil {
		return err
	}

	if err := p.store.DeleteEvent(ctx, it, eventID); err != nil {
		return translate(err, errs.ErrEventNotFound, "remove event")
	}

	p.rec.Record(activity.NewEvent(EventEventRemoved, it.ID, activity.WithData(map[string]string{"event": eventID})))
	return nil
}

// Finalize sets or clears the itinerary lock.
func (p *Planner) Finalize(ctx context.Context, itineraryID string, finalized bool) (*model.Itinerary, error) {
	it, err := p.store.GetItinerary(ctx, itineraryID)
	if err != nil {
		return nil, translate(err, errs.ErrItineraryNotFound, "get itinerary")
	}

	it.Finalized = finalized
	if err := p.store.UpdateItinerary(ctx, it); err != nil {
		return nil, translate(err, errs.ErrItineraryNotFound, "finalize itinerary")
	}

	typ := EventUnfinalized
	if finalized {
		typ = EventFinalized
	}
	p.logger.Info("itinerary lock changed", "itinerary_id", it.ID, "finalized", finalized)
	p.rec.Record(activity.NewEvent(typ, it.ID))
	return it, nil
}

// Get returns an itinerary by ID.
func (p *Planner) Get(ctx context.Context, itineraryID string) (*model.Itinerary, error) {
	it, err := p.store.GetItinerary(ctx, itineraryID)
	if err != nil {
		return nil, translate(err, errs.ErrItineraryNotFound, "get itinerary")
	}
	return it, nil
}

// GetByTrip returns the itinerary of trip.
func (p *Planner) GetByTrip(ctx context.Context, trip string) (*model.Itinerary, error) {
	it, err := p.store.GetItineraryByTrip(ctx, trip)
	if err != nil {
		return nil, translate(err, errs.ErrItineraryNotFound, "get itinerary by trip")
	}
	return it, nil
}

// Events returns every event of an itinerary in creation order.
func (p *Planner) Events(ctx context.Context, itineraryID string) ([]*model.Event, error) {
	return p.listEvents(ctx, itineraryID, false)
}

// ApprovedEvents returns the approved events of an itinerary.
func (p *Planner) ApprovedEvents(ctx context.Context, itineraryID string) ([]*model.Event, error) {
	return p.listEvents(ctx, itineraryID, true)
}

func (p *Planner) listEvents(ctx context.Context, itineraryID string, approvedOnly bool) ([]*model.Event, error) {
	if _, err := p.Get(ctx, itineraryID); err != nil {
		return nil, err
	}
	events, err := p.store.ListEvents(ctx, itineraryID, approvedOnly)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*model.Event{}
	}
	return events, nil
}

// GetEvent returns an event by ID.
func (p *Planner) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	ev, err := p.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, translate(err, errs.ErrEventNotFound, "get event")
	}
	return ev, nil
}

func translate(err, notFound error, op string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound
	case errors.Is(err, store.ErrLocked):
		return errs.ErrItineraryFinalized
	case errors.Is(err, store.ErrStale):
		return errs.ErrStale
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
