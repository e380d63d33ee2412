package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/seantiz/wayfarer/internal/model"
)

const pollColumns = `id, name, creator, users, options, votes, closed, version, created_at, updated_at`

// CreatePoll inserts a new poll at version 1.
func (s *SQLStore) CreatePoll(ctx context.Context, p *model.Poll) error {
	users, options, votes, err := marshalPoll(p)
	if err != nil {
		return err
	}

	ts := now()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO polls (`+pollColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			p.ID, p.Name, p.Creator, users, options, votes, p.Closed, 1, ts, ts,
		)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("insert poll: %w", err)
		}
		return s.syncPollUsers(ctx, tx, p)
	})
	if err != nil {
		return err
	}

	p.Version, p.CreatedAt, p.UpdatedAt = 1, ts, ts
	return nil
}

// GetPoll retrieves a poll by ID.
func (s *SQLStore) GetPoll(ctx context.Context, id string) (*model.Poll, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+pollColumns+` FROM polls WHERE id = ?`), id)
	return scanPoll(row)
}

// ListPollsForUser returns the polls user may vote on, oldest first.
func (s *SQLStore) ListPollsForUser(ctx context.Context, user string) ([]*model.Poll, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+pollColumns+` FROM polls
		WHERE id IN (SELECT poll_id FROM poll_users WHERE user_id = ?)
		ORDER BY id`), user)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	defer rows.Close()

	var polls []*model.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate polls: %w", err)
	}
	return polls, nil
}

// UpdatePoll writes users, options, votes and the closed flag if the stored
// version still matches p.Version.
func (s *SQLStore) UpdatePoll(ctx context.Context, p *model.Poll) error {
	users, options, votes, err := marshalPoll(p)
	if err != nil {
		return err
	}

	ts := now()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(
			`UPDATE polls SET users = ?, options = ?, votes = ?, closed = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`),
			users, options, votes, p.Closed, ts, p.ID, p.Version,
		)
		if err != nil {
			return fmt.Errorf("update poll: %w", err)
		}
		if err := s.casResult(ctx, tx, res, "polls", p.ID); err != nil {
			return err
		}
		return s.syncPollUsers(ctx, tx, p)
	})
	if err != nil {
		return err
	}

	p.Version++
	p.UpdatedAt = ts
	return nil
}

// syncPollUsers rewrites the membership index used by ListPollsForUser.
func (s *SQLStore) syncPollUsers(ctx context.Context, tx *sql.Tx, p *model.Poll) error {
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM poll_users WHERE poll_id = ?`), p.ID); err != nil {
		return fmt.Errorf("clear poll users: %w", err)
	}
	for _, u := range p.Users {
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO poll_users (poll_id, user_id) VALUES (?, ?)`), p.ID, u); err != nil {
			return fmt.Errorf("insert poll user: %w", err)
		}
	}
	return nil
}

func scanPoll(sc scanner) (*model.Poll, error) {
	p := &model.Poll{}
	var users, options, votes string
	err := sc.Scan(&p.ID, &p.Name, &p.Creator, &users, &options, &votes, &p.Closed, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan poll: %w", err)
	}
	if err := json.Unmarshal([]byte(users), &p.Users); err != nil {
		return nil, fmt.Errorf("decode poll users: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &p.Options); err != nil {
		return nil, fmt.Errorf("decode poll options: %w", err)
	}
	if err := json.Unmarshal([]byte(votes), &p.Votes); err != nil {
		return nil, fmt.Errorf("decode poll votes: %w", err)
	}
	if p.Users == nil {
		p.Users = []string{}
	}
	if p.Options == nil {
		p.Options = []model.Option{}
	}
	if p.Votes == nil {
		p.Votes = map[string]string{}
	}
	return p, nil
}

func marshalPoll(p *model.Poll) (users, options, votes string, err error) {
	u := p.Users
	if u == nil {
		u = []string{}
	}
	o := p.Options
	if o == nil {
		o = []model.Option{}
	}
	v := p.Votes
	if v == nil {
		v = map[string]string{}
	}

	ub, err := json.Marshal(u)
	if err != nil {
		return "", "", "", fmt.Errorf("encode poll users: %w", err)
	}
	ob, err := json.Marshal(o)
	if err != nil {
		return "", "", "", fmt.Errorf("encode poll options: %w", err)
	}
	vb, err := json.Marshal(v)
	if err != nil {
		return "", "", "", fmt.Errorf("encode poll votes: %w", err)
	}
	return string(ub), string(ob), string(vb), nil
}
