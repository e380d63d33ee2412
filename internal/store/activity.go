package store

import (
	"context"
	"fmt"

	"github.com/seantiz/wayfarer/internal/model"
)

// InsertActivity records an activity entry.
func (s *SQLStore) InsertActivity(ctx context.Context, a *model.Activity) error {
	var data any
	if len(a.Data) > 0 {
		data = string(a.Data)
	}
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO activity (id, type, entity_id, actor, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		a.ID.String(), a.Type, a.EntityID, a.Actor, data, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListActivity returns the activity recorded for an entity, oldest first.
func (s *SQLStore) ListActivity(ctx context.Context, entityID string) ([]*model.Activity, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, type, entity_id, actor, data, created_at FROM activity
		WHERE entity_id = ? ORDER BY created_at, id`), entityID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []*model.Activity
	for rows.Next() {
		a := &model.Activity{}
		var data *string
		if err := rows.Scan(&a.ID, &a.Type, &a.EntityID, &a.Actor, &data, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if data != nil {
			a.Data = []byte(*data)
		}
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return entries, nil
}
