package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/seantiz/wayfarer/internal/errs"
	"github.com/seantiz/wayfarer/internal/store"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustCreate(t *testing.T, l *Ledger, item, cost string) string {
	t.Helper()
	e, err := l.Create(context.Background(), item, dec(cost))
	if err != nil {
		t.Fatalf("Create(%q, %s): %v", item, cost, err)
	}
	return e.ID
}

func assertCovered(t *testing.T, l *Ledger, id string) {
	t.Helper()
	e, err := l.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := e.Total().GreaterThanOrEqual(e.Cost)
	if e.Covered() != want {
		t.Errorf("Covered() = %v with total %s and cost %s", e.Covered(), e.Total(), e.Cost)
	}
}

func TestCreate(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	e, err := l.Create(ctx, "hotel", dec("300"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.Covered() {
		t.Error("new expense is covered")
	}
	if len(e.Contributors) != 0 {
		t.Errorf("Contributors = %v, want empty", e.Contributors)
	}
}

func TestCreateValidation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name string
		item string
		cost string
		want error
	}{
		{"zero cost", "hotel", "0", errs.ErrInvalidCost},
		{"negative cost", "hotel", "-5", errs.ErrInvalidCost},
		{"empty item", "", "10", errs.ErrEmptyItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.Create(ctx, tt.item, dec(tt.cost)); !errors.Is(err, tt.want) {
				t.Errorf("Create error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateDuplicateItem(t *testing.T) {
	l := newTestLedger(t)
	mustCreate(t, l, "hotel", "300")

	_, err := l.Create(context.Background(), "hotel", dec("50"))
	if !errors.Is(err, errs.ErrDuplicateItem) {
		t.Errorf("Create duplicate error = %v, want ErrDuplicateItem", err)
	}
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("Create duplicate kind = %v, want conflict", errs.Kind(err))
	}
}

func TestAddContributionMerges(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")

	if _, err := l.AddContribution(ctx, "alice", id, dec("20")); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	if _, err := l.AddContribution(ctx, "alice", id, dec("15.50")); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}

	got, err := l.UserContribution(ctx, "alice", id)
	if err != nil {
		t.Fatalf("UserContribution: %v", err)
	}
	if !got.Equal(dec("35.50")) {
		t.Errorf("UserContribution = %s, want 35.50", got)
	}
	assertCovered(t, l, id)
}

func TestAddContributionCap(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")

	if _, err := l.AddContribution(ctx, "alice", id, dec("60")); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}

	_, err := l.AddContribution(ctx, "bob", id, dec("50"))
	if !errors.Is(err, errs.ErrExceedsCost) {
		t.Fatalf("AddContribution error = %v, want ErrExceedsCost", err)
	}

	if _, err := l.UserContribution(ctx, "bob", id); !errors.Is(err, errs.ErrContributorNotFound) {
		t.Errorf("bob contribution error = %v, want ErrContributorNotFound", err)
	}
	alice, err := l.UserContribution(ctx, "alice", id)
	if err != nil {
		t.Fatalf("UserContribution: %v", err)
	}
	if !alice.Equal(dec("60")) {
		t.Errorf("alice = %s, want 60", alice)
	}
}

func TestAddContributionCapCountsMergedAmount(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")

	if _, err := l.AddContribution(ctx, "alice", id, dec("70")); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	if _, err := l.AddContribution(ctx, "alice", id, dec("31")); !errors.Is(err, errs.ErrExceedsCost) {
		t.Errorf("AddContribution error = %v, want ErrExceedsCost", err)
	}
}

func TestAddContributionCoversAndLocks(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")

	if _, err := l.AddContribution(ctx, "alice", id, dec("60")); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	e, err := l.AddContribution(ctx, "bob", id, dec("40"))
	if err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	if !e.Covered() {
		t.Error("Covered() = false, want true")
	}

	if _, err := l.AddContribution(ctx, "carol", id, dec("1")); !errors.Is(err, errs.ErrAlreadyCovered) {
		t.Errorf("AddContribution on covered error = %v, want ErrAlreadyCovered", err)
	}
}

func TestAddContributionValidation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")

	tests := []struct {
		name   string
		user   string
		id     string
		amount string
		want   error
	}{
		{"zero amount", "alice", id, "0", errs.ErrInvalidAmount},
		{"negative amount", "alice", id, "-1", errs.ErrInvalidAmount},
		{"empty user", "", id, "1", errs.ErrEmptyUser},
		{"missing expense", "alice", "nonexistent", "1", errs.ErrExpenseNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.AddContribution(ctx, tt.user, tt.id, dec(tt.amount)); !errors.Is(err, tt.want) {
				t.Errorf("AddContribution error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdateContributionReplaces(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")

	if _, err := l.AddContribution(ctx, "alice", id, dec("60")); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	if _, err := l.UpdateContribution(ctx, "alice", id, dec("25")); err != nil {
		t.Fatalf("UpdateContribution: %v", err)
	}

	got, err := l.UserContribution(ctx, "alice", id)
	if err != nil {
		t.Fatalf("UserContribution: %v", err)
	}
	if !got.Equal(dec("25")) {
		t.Errorf("UserContribution = %s, want 25", got)
	}
	assertCovered(t, l, id)
}

func TestUpdateContributionCanUncover(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")

	if _, err := l.AddContribution(ctx, "alice", id, dec("100")); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	e, err := l.UpdateContribution(ctx, "alice", id, dec("0"))
	if err != nil {
		t.Fatalf("UpdateContribution: %v", err)
	}
	if e.Covered() {
		t.Error("Covered() = true after lowering contribution to 0")
	}
	if _, err := l.AddContribution(ctx, "bob", id, dec("10")); err != nil {
		t.Errorf("AddContribution after uncover: %v", err)
	}
}

func TestUpdateContributionErrors(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")
	if _, err := l.AddContribution(ctx, "alice", id, dec("60")); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}
	if _, err := l.AddContribution(ctx, "bob", id, dec("30")); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}

	tests := []struct {
		name   string
		user   string
		id     string
		amount string
		want   error
	}{
		{"negative", "alice", id, "-1", errs.ErrNegativeAmount},
		{"not a contributor", "carol", id, "5", errs.ErrContributorNotFound},
		{"missing expense", "alice", "nonexistent", "5", errs.ErrExpenseNotFound},
		{"exceeds cost", "alice", id, "71", errs.ErrExceedsCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.UpdateContribution(ctx, tt.user, tt.id, dec(tt.amount)); !errors.Is(err, tt.want) {
				t.Errorf("UpdateContribution error = %v, want %v", err, tt.want)
			}
		})
	}

	got, err := l.UserContribution(ctx, "alice", id)
	if err != nil {
		t.Fatalf("UserContribution: %v", err)
	}
	if !got.Equal(dec("60")) {
		t.Errorf("alice = %s after failed updates, want 60", got)
	}
}

func TestUpdateCostKeepsOverCoverage(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")
	if _, err := l.AddContribution(ctx, "alice", id, dec("80")); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}

	e, err := l.UpdateCost(ctx, id, dec("50"))
	if err != nil {
		t.Fatalf("UpdateCost: %v", err)
	}
	if !e.Covered() {
		t.Error("Covered() = false after lowering cost below total")
	}
	total, err := l.Total(ctx, id)
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if !total.Equal(dec("80")) {
		t.Errorf("Total = %s, want 80 (no clawback)", total)
	}
	assertCovered(t, l, id)

	e, err = l.UpdateCost(ctx, id, dec("200"))
	if err != nil {
		t.Fatalf("UpdateCost: %v", err)
	}
	if e.Covered() {
		t.Error("Covered() = true after raising cost above total")
	}
	assertCovered(t, l, id)
}

func TestUpdateCostErrors(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")

	if _, err := l.UpdateCost(ctx, id, dec("0")); !errors.Is(err, errs.ErrInvalidCost) {
		t.Errorf("UpdateCost(0) error = %v, want ErrInvalidCost", err)
	}
	if _, err := l.UpdateCost(ctx, "nonexistent", dec("10")); !errors.Is(err, errs.ErrExpenseNotFound) {
		t.Errorf("UpdateCost missing error = %v, want ErrExpenseNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")

	if err := l.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := l.Get(ctx, id); !errors.Is(err, errs.ErrExpenseNotFound) {
		t.Errorf("Get after remove error = %v, want ErrExpenseNotFound", err)
	}
	if err := l.Remove(ctx, id); !errors.Is(err, errs.ErrExpenseNotFound) {
		t.Errorf("Remove twice error = %v, want ErrExpenseNotFound", err)
	}

	// The item is free again.
	mustCreate(t, l, "hotel", "120")
}

func TestQueries(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")
	mustCreate(t, l, "car", "40")

	e, err := l.GetByItem(ctx, "hotel")
	if err != nil {
		t.Fatalf("GetByItem: %v", err)
	}
	if e.ID != id {
		t.Errorf("GetByItem ID = %q, want %q", e.ID, id)
	}
	if _, err := l.GetByItem(ctx, "boat"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("GetByItem missing error = %v, want not found", err)
	}
	if _, err := l.Total(ctx, "nonexistent"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Total missing error = %v, want not found", err)
	}

	all, err := l.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List len = %d, want 2", len(all))
	}
}

func TestConcurrentContributionsNeverExceedCost(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	id := mustCreate(t, l, "hotel", "100")

	users := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o"}
	var g errgroup.Group
	for _, u := range users {
		g.Go(func() error {
			for {
				_, err := l.AddContribution(ctx, u, id, dec("10"))
				if errs.Retryable(err) {
					continue
				}
				if err == nil || errors.Is(err, errs.ErrExceedsCost) || errors.Is(err, errs.ErrAlreadyCovered) {
					return nil
				}
				return err
			}
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("AddContribution: %v", err)
	}

	e, err := l.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !e.Total().Equal(dec("100")) {
		t.Errorf("Total = %s, want exactly 100", e.Total())
	}
	if len(e.Contributors) != 10 {
		t.Errorf("contributors = %d, want 10", len(e.Contributors))
	}
	if !e.Covered() {
		t.Error("Covered() = false, want true")
	}
}
