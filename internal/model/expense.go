package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a shared cost that participants pay into. Contributors maps a
// user to the amount that user has pledged.
type Expense struct {
	ID           string                     `json:"id"`
	Item         string                     `json:"item"`
	Cost         decimal.Decimal            `json:"cost"`
	Contributors map[string]decimal.Decimal `json:"contributors"`
	Version      int64                      `json:"version"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// Total returns the sum of all contributions.
func (e *Expense) Total() decimal.Decimal {
	return e.TotalExcept("")
}

// TotalExcept returns the sum of every contribution other than user's.
func (e *Expense) TotalExcept(user string) decimal.Decimal {
	total := decimal.Zero
	for u, amt := range e.Contributors {
		if user != "" && u == user {
			continue
		}
		total = total.Add(amt)
	}
	return total
}

// Covered reports whether contributions have reached the cost. It is always
// computed from the current contributors and cost, never stored.
func (e *Expense) Covered() bool {
	return e.Total().GreaterThanOrEqual(e.Cost)
}

// MarshalJSON includes the derived total and covered fields.
func (e Expense) MarshalJSON() ([]byte, error) {
	type expense Expense
	if e.Contributors == nil {
		e.Contributors = map[string]decimal.Decimal{}
	}
	return json.Marshal(struct {
		expense
		Total   decimal.Decimal `json:"total"`
		Covered bool            `json:"covered"`
	}{expense(e), e.Total(), e.Covered()})
}
