package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/seantiz/wayfarer/internal/model"
)

const expenseColumns = `id, item, cost, contributors, version, created_at, updated_at`

// CreateExpense inserts a new expense at version 1.
func (s *SQLStore) CreateExpense(ctx context.Context, e *model.Expense) error {
	contributors, err := marshalContributors(e.Contributors)
	if err != nil {
		return err
	}

	ts := now()
	_, err = s.db.ExecContext(ctx, s.q(
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Item, e.Cost, contributors, 1, ts, ts,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	e.Version, e.CreatedAt, e.UpdatedAt = 1, ts, ts
	return nil
}

// GetExpense retrieves an expense by ID.
func (s *SQLStore) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`), id)
	return scanExpense(row)
}

// GetExpenseByItem retrieves the expense recorded for item.
func (s *SQLStore) GetExpenseByItem(ctx context.Context, item string) (*model.Expense, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+expenseColumns+` FROM expenses WHERE item = ?`), item)
	return scanExpense(row)
}

// ListExpenses returns every expense, oldest first.
func (s *SQLStore) ListExpenses(ctx context.Context) ([]*model.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpense writes cost and contributors if the stored version still
// matches e.Version.
func (s *SQLStore) UpdateExpense(ctx context.Context, e *model.Expense) error {
	contributors, err := marshalContributors(e.Contributors)
	if err != nil {
		return err
	}

	ts := now()
	res, err := s.db.ExecContext(ctx, s.q(
		`UPDATE expenses SET cost = ?, contributors = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`),
		e.Cost, contributors, ts, e.ID, e.Version,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if err := s.casResult(ctx, s.db, res, "expenses", e.ID); err != nil {
		return err
	}

	e.Version++
	e.UpdatedAt = ts
	return nil
}

// DeleteExpense removes an expense.
func (s *SQLStore) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM expenses WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return deleteResult(res)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(sc scanner) (*model.Expense, error) {
	e := &model.Expense{}
	var contributors string
	err := sc.Scan(&e.ID, &e.Item, &e.Cost, &contributors, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	if err := json.Unmarshal([]byte(contributors), &e.Contributors); err != nil {
		return nil, fmt.Errorf("decode contributors: %w", err)
	}
	if e.Contributors == nil {
		e.Contributors = map[string]decimal.Decimal{}
	}
	return e, nil
}

func marshalContributors(c map[string]decimal.Decimal) (string, error) {
	if c == nil {
		c = map[string]decimal.Decimal{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode contributors: %w", err)
	}
	return string(data), nil
}
