// Package ledger implements cost splitting: each expense collects
// contributions from users until its cost is covered, and the sum of
// contributions is never allowed to grow past the cost.
package ledger

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

// Activity types recorded by the ledger.
const (
	EventCreated             = "expense.created"
	EventRemoved             = "expense.removed"
	EventCostUpdated         = "expense.cost_updated"
	EventContributionAdded   = "expense.contribution_added"
	EventContributionUpdated = "expense.contribution_updated"
)

// Ledger owns the expenses collection.
type Ledger struct {
	store  store.Store
	rec    activity.Recorder
	logger *slog.Logger
}

// New creates a ledger. rec may be nil.
func New(s store.Store, rec activity.Recorder, logger *slog.Logger) *Ledger {
	if rec == nil {
		rec = activity.Discard
	}
	return &Ledger{store: s, rec: rec, logger: logger}
}

// Create opens a new uncovered expense for item.
func (l *Ledger) Create(ctx context.Context, item string, cost decimal.Decimal) (*model.Expense, error) {
	if item == "" {
		return nil, errs.ErrEmptyItem
	}
	if !cost.IsPositive() {
		return nil, errs.ErrInvalidCost
	}

	e := &model.Expense{
		ID:           model.NewID(),
		Item:         item,
		Cost:         cost,
		Contributors: map[string]decimal.Decimal{},
	}
	if err := l.store.CreateExpense(ctx, e); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.ErrDuplicateItem
		}
		return nil, fmt.Errorf("create expense: %w", err)
	}

	l.rec.Record(activity.NewEvent(EventCreated, e.ID,
		activity.WithData(map[string]any{"item": item, "cost": cost})))
	return e, nil
}

// Remove deletes an expense.
func (l *Ledger) Remove(ctx context.Context, expenseID string) error {
	if err := l.store.DeleteExpense(ctx, expenseID); err != nil {
		return translate(err, "remove expense")
	}
	l.rec.Record(activity.NewEvent(EventRemoved, expenseID, activity.Final()))
	return nil
}

// UpdateCost changes the cost of an expense. Existing contributions are
// kept even when they now exceed the cost.
func (l *Ledger) UpdateCost(ctx context.Context, expenseID string, newCost decimal.Decimal) (*model.Expense, error) {
	if !newCost.IsPositive() {
		return nil, errs.ErrInvalidCost
	}

	e, err := l.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, translate(err, "get expense")
	}

	old := e.Cost
	e.Cost = newCost
	if err := l.store.UpdateExpense(ctx, e); err != nil {
		return nil, translate(err, "update expense cost")
	}

	if e.Total().GreaterThan(newCost) {
		l.logger.Debug("expense over-covered after cost change",
			"expense_id", e.ID, "cost", newCost.String(), "total", e.Total().String())
	}
	l.rec.Record(activity.NewEvent(EventCostUpdated, e.ID,
		activity.WithData(map[string]any{"from": old, "to": newCost})))
	return e, nil
}

// AddContribution adds amount to user's contribution, creating it if the
// user has not contributed yet.
func (l *Ledger) AddContribution(ctx context.Context, user, expenseID string, amount decimal.Decimal) (*model.Expense, error) {
	if user == "" {
		return nil, errs.ErrEmptyUser
	}
	if !amount.IsPositive() {
		return nil, errs.ErrInvalidAmount
	}

	e, err := l.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, translate(err, "get expense")
	}
	if e.Covered() {
		return nil, errs.ErrAlreadyCovered
	}

	merged := e.Contributors[user].Add(amount)
	if e.TotalExcept(user).Add(merged).GreaterThan(e.Cost) {
		return nil, errs.ErrExceedsCost
	}

	e.Contributors[user] = merged
	if err := l.store.UpdateExpense(ctx, e); err != nil {
		return nil, translate(err, "add contribution")
	}

	l.rec.Record(activity.NewEvent(EventContributionAdded, e.ID,
		activity.WithActor(user),
		activity.WithData(map[string]any{"amount": amount, "contribution": merged, "covered": e.Covered()})))
	return e, nil
}

// UpdateContribution replaces user's existing contribution with newAmount.
func (l *Ledger) UpdateContribution(ctx context.Context, user, expenseID string, newAmount decimal.Decimal) (*model.Expense, error) {
	if user == "" {
		return nil, errs.ErrEmptyUser
	}
	if newAmount.IsNegative() {
		return nil, errs.ErrNegativeAmount
	}

	e, err := l.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, translate(err, "get expense")
	}
	if _, ok := e.Contributors[user]; !ok {
		return nil, errs.ErrContributorNotFound
	}
	if e.TotalExcept(user).Add(newAmount).GreaterThan(e.Cost) {
		return nil, errs.ErrExceedsCost
	}

	e.Contributors[user] = newAmount
	if err := l.store.UpdateExpense(ctx, e); err != nil {
		return nil, translate(err, "update contribution")
	}

	l.rec.Record(activity.NewEvent(EventContributionUpdated, e.ID,
		activity.WithActor(user),
		activity.WithData(map[string]any{"contribution": newAmount, "covered": e.Covered()})))
	return e, nil
}

// Get returns an expense by ID.
func (l *Ledger) Get(ctx context.Context, expenseID string) (*model.Expense, error) {
	e, err := l.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, translate(err, "get expense")
	}
	return e, nil
}

// GetByItem returns the expense recorded for item.
func (l *Ledger) GetByItem(ctx context.Context, item string) (*model.Expense, error) {
	e, err := l.store.GetExpenseByItem(ctx, item)
	if err != nil {
		return nil, translate(err, "get expense by item")
	}
	return e, nil
}

// List returns every expense.
func (l *Ledger) List(ctx context.Context) ([]*model.Expense, error) {
	expenses, err := l.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Total returns the sum of contributions to an expense.
func (l *Ledger) Total(ctx context.Context, expenseID string) (decimal.Decimal, error) {
	e, err := l.Get(ctx, expenseID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.Total(), nil
}

// UserContribution returns the amount user has contributed to an expense.
func (l *Ledger) UserContribution(ctx context.Context, user, expenseID string) (decimal.Decimal, error) {
	e, err := l.Get(ctx, expenseID)
	if err != nil {
		return decimal.Zero, err
	}
	amt, ok := e.Contributors[user]
	if !ok {
		return decimal.Zero, errs.ErrContributorNotFound
	}
	return amt, nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errs.ErrExpenseNotFound
	case errors.Is(err, store.ErrStale):
		return errs.ErrStale
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
