package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/seantiz/wayfarer/internal/model"
)

const tripColumns = `id, name, owner, destination, start_date, end_date, participants, finalized, version, created_at, updated_at`

// CreateTrip inserts a new trip at version 1.
func (s *SQLStore) CreateTrip(ctx context.Context, t *model.Trip) error {
	participants, err := marshalParticipants(t.Participants)
	if err != nil {
		return err
	}

	ts := now()
	_, err = s.db.ExecContext(ctx, s.q(
		`INSERT INTO trips (`+tripColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.Name, t.Owner, t.Destination, t.Start, t.End, participants, t.Finalized, 1, ts, ts,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}

	t.Version, t.CreatedAt, t.UpdatedAt = 1, ts, ts
	return nil
}

// GetTrip retrieves a trip by ID.
func (s *SQLStore) GetTrip(ctx context.Context, id string) (*model.Trip, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+tripColumns+` FROM trips WHERE id = ?`), id)
	return scanTrip(row)
}

// ListTripsByOwner returns the trips owned by owner, oldest first.
func (s *SQLStore) ListTripsByOwner(ctx context.Context, owner string) ([]*model.Trip, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+tripColumns+` FROM trips WHERE owner = ? ORDER BY id`), owner)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []*model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trips: %w", err)
	}
	return trips, nil
}

// UpdateTrip writes every mutable trip field if the stored version still
// matches t.Version.
func (s *SQLStore) UpdateTrip(ctx context.Context, t *model.Trip) error {
	participants, err := marshalParticipants(t.Participants)
	if err != nil {
		return err
	}

	ts := now()
	res, err := s.db.ExecContext(ctx, s.q(
		`UPDATE trips SET name = ?, destination = ?, start_date = ?, end_date = ?, participants = ?,
			finalized = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`),
		t.Name, t.Destination, t.Start, t.End, participants, t.Finalized, ts, t.ID, t.Version,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("update trip: %w", err)
	}
	if err := s.casResult(ctx, s.db, res, "trips", t.ID); err != nil {
		return err
	}

	t.Version++
	t.UpdatedAt = ts
	return nil
}

// DeleteTrip removes a trip.
func (s *SQLStore) DeleteTrip(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM trips WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	return deleteResult(res)
}

func scanTrip(sc scanner) (*model.Trip, error) {
	t := &model.Trip{}
	var participants string
	err := sc.Scan(&t.ID, &t.Name, &t.Owner, &t.Destination, &t.Start, &t.End, &participants,
		&t.Finalized, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan trip: %w", err)
	}
	if err := json.Unmarshal([]byte(participants), &t.Participants); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	if t.Participants == nil {
		t.Participants = []model.Participant{}
	}
	t.Start, t.End = t.Start.UTC(), t.End.UTC()
	return t, nil
}

func marshalParticipants(p []model.Participant) (string, error) {
	if p == nil {
		p = []model.Participant{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode participants: %w", err)
	}
	return string(data), nil
}
