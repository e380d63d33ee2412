package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seantiz/wayfarer/internal/model"
)

const (
	itineraryColumns = `id, trip, finalized, version, created_at, updated_at`
	eventColumns     = `id, itinerary_id, name, cost, pending, approved, version, created_at, updated_at`
)

// CreateItinerary inserts a new itinerary at version 1.
func (s *SQLStore) CreateItinerary(ctx context.Context, it *model.Itinerary) error {
	ts := now()
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO itineraries (`+itineraryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		it.ID, it.Trip, it.Finalized, 1, ts, ts,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert itinerary: %w", err)
	}

	it.Version, it.CreatedAt, it.UpdatedAt = 1, ts, ts
	it.Events = []string{}
	return nil
}

// GetItinerary retrieves an itinerary by ID together with its approved
// event IDs.
func (s *SQLStore) GetItinerary(ctx context.Context, id string) (*model.Itinerary, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+itineraryColumns+` FROM itineraries WHERE id = ?`), id)
	return s.loadItinerary(ctx, row)
}

// GetItineraryByTrip retrieves the itinerary for trip.
func (s *SQLStore) GetItineraryByTrip(ctx context.Context, trip string) (*model.Itinerary, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+itineraryColumns+` FROM itineraries WHERE trip = ?`), trip)
	return s.loadItinerary(ctx, row)
}

func (s *SQLStore) loadItinerary(ctx context.Context, row *sql.Row) (*model.Itinerary, error) {
	it := &model.Itinerary{}
	err := row.Scan(&it.ID, &it.Trip, &it.Finalized, &it.Version, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan itinerary: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id FROM events WHERE itinerary_id = ? AND pending = ? AND approved = ? ORDER BY id`),
		it.ID, false, true,
	)
	if err != nil {
		return nil, fmt.Errorf("list approved events: %w", err)
	}
	defer rows.Close()

	it.Events = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event id: %w", err)
		}
		it.Events = append(it.Events, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approved events: %w", err)
	}
	return it, nil
}

// UpdateItinerary writes the finalized flag if the stored version still
// matches it.Version.
func (s *SQLStore) UpdateItinerary(ctx context.Context, it *model.Itinerary) error {
	ts := now()
	res, err := s.db.ExecContext(ctx, s.q(
		`UPDATE itineraries SET finalized = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`),
		it.Finalized, ts, it.ID, it.Version,
	)
	if err != nil {
		return fmt.Errorf("update itinerary: %w", err)
	}
	if err := s.casResult(ctx, s.db, res, "itineraries", it.ID); err != nil {
		return err
	}

	it.Version++
	it.UpdatedAt = ts
	return nil
}

// claimItinerary advances the itinerary version inside tx, but only while it
// is unfinalized and still at the version the caller read. Every event write
// goes through it, so an event write and a finalize cannot both win.
func (s *SQLStore) claimItinerary(ctx context.Context, tx *sql.Tx, it *model.Itinerary) error {
	res, err := tx.ExecContext(ctx, s.q(
		`UPDATE itineraries SET version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND finalized = ?`),
		now(), it.ID, it.Version, false,
	)
	if err != nil {
		return fmt.Errorf("claim itinerary: %w", err)
	}
	err = s.casResult(ctx, tx, res, "itineraries", it.ID)
	if !errors.Is(err, ErrStale) {
		return err
	}

	var finalized bool
	if err := tx.QueryRowContext(ctx, s.q(`SELECT finalized FROM itineraries WHERE id = ?`), it.ID).Scan(&finalized); err != nil {
		return fmt.Errorf("probe itinerary: %w", err)
	}
	if finalized {
		return ErrLocked
	}
	return ErrStale
}

// CreateEvent inserts ev under the itinerary it.
func (s *SQLStore) CreateEvent(ctx context.Context, it *model.Itinerary, ev *model.Event) error {
	ts := now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.claimItinerary(ctx, tx, it); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			ev.ID, it.ID, ev.Name, ev.Cost, ev.Pending, ev.Approved, 1, ts, ts,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	it.Version++
	ev.ItineraryID = it.ID
	ev.Version, ev.CreatedAt, ev.UpdatedAt = 1, ts, ts
	return nil
}

// GetEvent retrieves an event by ID.
func (s *SQLStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+eventColumns+` FROM events WHERE id = ?`), id)
	return scanEvent(row)
}

// ListEvents returns the events of an itinerary in creation order. With
// approvedOnly set it returns only the approved set.
func (s *SQLStore) ListEvents(ctx context.Context, itineraryID string, approvedOnly bool) ([]*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE itinerary_id = ?`
	args := []any{itineraryID}
	if approvedOnly {
		query += ` AND pending = ? AND approved = ?`
		args = append(args, false, true)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// UpdateEvent writes name, cost and approval state of ev, which must belong
// to it.
func (s *SQLStore) UpdateEvent(ctx context.Context, it *model.Itinerary, ev *model.Event) error {
	ts := now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.claimItinerary(ctx, tx, it); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(
			`UPDATE events SET name = ?, cost = ?, pending = ?, approved = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND itinerary_id = ? AND version = ?`),
			ev.Name, ev.Cost, ev.Pending, ev.Approved, ts, ev.ID, it.ID, ev.Version,
		)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return s.casResult(ctx, tx, res, "events", ev.ID)
	})
	if err != nil {
		return err
	}

	it.Version++
	ev.Version++
	ev.UpdatedAt = ts
	return nil
}

// DeleteEvent removes an event of the itinerary it.
func (s *SQLStore) DeleteEvent(ctx context.Context, it *model.Itinerary, eventID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.claimItinerary(ctx, tx, it); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM events WHERE id = ? AND itinerary_id = ?`), eventID, it.ID)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return deleteResult(res)
	})
	if err != nil {
		return err
	}

	it.Version++
	return nil
}

func scanEvent(sc scanner) (*model.Event, error) {
	ev := &model.Event{}
	err := sc.Scan(&ev.ID, &ev.ItineraryID, &ev.Name, &ev.Cost, &ev.Pending, &ev.Approved, &ev.Version, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return ev, nil
}
