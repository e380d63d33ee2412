// Package trip manages owner-run trips and their participant budgets.
package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seantiz/wayfarer/internal/activity"
	"github.com/seantiz/wayfarer/internal/errs"
	"github.com/seantiz/wayfarer/internal/model"
	"github.com/seantiz/wayfarer/internal/store"
)

// Activity types recorded by the planner.
const (
	EventCreated            = "trip.created"
	EventUpdated            = "trip.updated"
	EventFinalized          = "trip.finalized"
	EventDeleted            = "trip.deleted"
	EventParticipantAdded   = "trip.participant_added"
	EventParticipantUpdated = "trip.participant_updated"
	EventParticipantRemoved = "trip.participant_removed"
)

// Details are the owner-editable fields of a trip.
type Details struct {
	Name        string
	Destination string
	Start       time.Time
	End         time.Time
}

func (d *Details) normalize() error {
	if d.Destination == "" {
		return errs.New(errs.ErrValidation, "destination must not be empty")
	}
	if d.Start.IsZero() || d.End.IsZero() {
		return errs.New(errs.ErrValidation, "start and end dates are required")
	}
	d.Start, d.End = day(d.Start), day(d.End)
	if d.End.Before(d.Start) {
		return errs.ErrInvalidDateRange
	}
	return nil
}

// day truncates t to midnight UTC of its calendar date.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Planner owns the trips collection.
type Planner struct {
	store  store.Store
	rec    activity.Recorder
	logger *slog.Logger
}

// New creates a trip planner. rec may be nil.
func New(s store.Store, rec activity.Recorder, logger *slog.Logger) *Planner {
	if rec == nil {
		rec = activity.Discard
	}
	return &Planner{store: s, rec: rec, logger: logger}
}

// Create starts a trip owned by owner, who joins as its first participant
// with a zero budget.
func (p *Planner) Create(ctx context.Context, owner string, d Details) (*model.Trip, error) {
	if owner == "" {
		return nil, errs.ErrEmptyUser
	}
	if err := d.normalize(); err != nil {
		return nil, err
	}

	t := &model.Trip{
		ID:           model.NewID(),
		Name:         d.Name,
		Owner:        owner,
		Destination:  d.Destination,
		Start:        d.Start,
		End:          d.End,
		Participants: []model.Participant{{User: owner, Budget: decimal.Zero}},
	}
	if err := p.store.CreateTrip(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.ErrDuplicateTripPlan
		}
		return nil, fmt.Errorf("create trip: %w", err)
	}

	p.rec.Record(activity.NewEvent(EventCreated, t.ID, activity.WithActor(owner),
		activity.WithData(map[string]any{"destination": t.Destination, "start": t.Start, "end": t.End})))
	return t, nil
}

// owned loads a trip and checks that owner runs it. Trips owned by someone
// else are reported as missing.
func (p *Planner) owned(ctx context.Context, owner, tripID string) (*model.Trip, error) {
	t, err := p.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, translate(err, "get trip")
	}
	if t.Owner != owner {
		return nil, errs.ErrTripNotFound
	}
	return t, nil
}

func (p *Planner) save(ctx context.Context, t *model.Trip, op string) error {
	if err := p.store.UpdateTrip(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return errs.ErrDuplicateTripPlan
		}
		return translate(err, op)
	}
	return nil
}

// Update replaces the trip's name, destination and dates.
func (p *Planner) Update(ctx context.Context, owner, tripID string, d Details) (*model.Trip, error) {
	if err := d.normalize(); err != nil {
		return nil, err
	}
	t, err := p.owned(ctx, owner, tripID)
	if err != nil {
		return nil, err
	}

	t.Name, t.Destination, t.Start, t.End = d.Name, d.Destination, d.Start, d.End
	if err := p.save(ctx, t, "update trip"); err != nil {
		return nil, err
	}

	p.rec.Record(activity.NewEvent(EventUpdated, t.ID, activity.WithActor(owner)))
	return t, nil
}

// Finalize sets or clears the trip's finalized flag.
func (p *Planner) Finalize(ctx context.Context, owner, tripID string, finalized bool) (*model.Trip, error) {
	t, err := p.owned(ctx, owner, tripID)
	if err != nil {
		return nil, err
	}

	t.Finalized = finalized
	if err := p.save(ctx, t, "finalize trip"); err != nil {
		return nil, err
	}

	p.rec.Record(activity.NewEvent(EventFinalized, t.ID, activity.WithActor(owner),
		activity.WithData(map[string]bool{"finalized": finalized})))
	return t, nil
}

// Delete removes a trip.
func (p *Planner) Delete(ctx context.Context, owner, tripID string) error {
	if _, err := p.owned(ctx, owner, tripID); err != nil {
		return err
	}
	if err := p.store.DeleteTrip(ctx, tripID); err != nil {
		return translate(err, "delete trip")
	}

	p.logger.Info("trip deleted", "trip_id", tripID, "owner", owner)
	p.rec.Record(activity.NewEvent(EventDeleted, tripID, activity.WithActor(owner), activity.Final()))
	return nil
}

// AddParticipant adds user to the trip with the given budget.
func (p *Planner) AddParticipant(ctx context.Context, owner, tripID, user string, budget decimal.Decimal) (*model.Trip, error) {
	if user == "" {
		return nil, errs.ErrEmptyUser
	}
	if budget.IsNegative() {
		return nil, errs.ErrNegativeBudget
	}
	t, err := p.owned(ctx, owner, tripID)
	if err != nil {
		return nil, err
	}
	if t.ParticipantIndex(user) >= 0 {
		return nil, errs.ErrParticipantExists
	}

	t.Participants = append(t.Participants, model.Participant{User: user, Budget: budget})
	if err := p.save(ctx, t, "add participant"); err != nil {
		return nil, err
	}

	p.rec.Record(activity.NewEvent(EventParticipantAdded, t.ID, activity.WithActor(owner),
		activity.WithData(model.Participant{User: user, Budget: budget})))
	return t, nil
}

// UpdateParticipant sets a participant's budget.
func (p *Planner) UpdateParticipant(ctx context.Context, owner, tripID, user string, budget decimal.Decimal) (*model.Trip, error) {
	if budget.IsNegative() {
		return nil, errs.ErrNegativeBudget
	}
	t, err := p.owned(ctx, owner, tripID)
	if err != nil {
		return nil, err
	}
	i := t.ParticipantIndex(user)
	if i < 0 {
		return nil, errs.ErrParticipantNotFound
	}

	t.Participants[i].Budget = budget
	if err := p.save(ctx, t, "update participant"); err != nil {
		return nil, err
	}

	p.rec.Record(activity.NewEvent(EventParticipantUpdated, t.ID, activity.WithActor(owner),
		activity.WithData(t.Participants[i])))
	return t, nil
}

// RemoveParticipant removes user from the trip. The owner cannot be removed.
func (p *Planner) RemoveParticipant(ctx context.Context, owner, tripID, user string) (*model.Trip, error) {
	t, err := p.owned(ctx, owner, tripID)
	if err != nil {
		return nil, err
	}
	if err := p.removeParticipant(ctx, t, owner, user); err != nil {
		return nil, err
	}
	return t, nil
}

// RemoveSelf lets a participant leave a trip. Owners cannot leave their own
// trip.
func (p *Planner) RemoveSelf(ctx context.Context, user, tripID string) error {
	t, err := p.store.GetTrip(ctx, tripID)
	if err != nil {
		return translate(err, "get trip")
	}
	return p.removeParticipant(ctx, t, user, user)
}

func (p *Planner) removeParticipant(ctx context.Context, t *model.Trip, actor, user string) error {
	if user == t.Owner {
		return errs.ErrCannotRemoveOwner
	}
	if t.ParticipantIndex(user) < 0 {
		return errs.ErrParticipantNotFound
	}

	t.Participants = slices.DeleteFunc(t.Participants, func(pt model.Participant) bool { return pt.User == user })
	if err := p.save(ctx, t, "remove participant"); err != nil {
		return err
	}

	p.rec.Record(activity.NewEvent(EventParticipantRemoved, t.ID, activity.WithActor(actor),
		activity.WithData(map[string]string{"user": user})))
	return nil
}

// Get returns a trip by ID.
func (p *Planner) Get(ctx context.Context, tripID string) (*model.Trip, error) {
	t, err := p.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, translate(err, "get trip")
	}
	return t, nil
}

// ListByOwner returns the trips owner runs.
func (p *Planner) ListByOwner(ctx context.Context, owner string) ([]*model.Trip, error) {
	trips, err := p.store.ListTripsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	if trips == nil {
		trips = []*model.Trip{}
	}
	return trips, nil
}

// Participants returns the participants of a trip, owner first.
func (p *Planner) Participants(ctx context.Context, tripID string) ([]model.Participant, error) {
	t, err := p.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return t.Participants, nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errs.ErrTripNotFound
	case errors.Is(err, store.ErrStale):
		return errs.ErrStale
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
