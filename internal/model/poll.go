package model

import (
	"slices"
	"time"
)

// Option is a single choice on a poll.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Poll is a creator-managed vote among a fixed set of users. Options keep
// the order they were added in; Votes maps a user to the chosen option ID.
type Poll struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Creator   string            `json:"creator"`
	Users     []string          `json:"users"`
	Options   []Option          `json:"options"`
	Votes     map[string]string `json:"votes"`
	Closed    bool              `json:"closed"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// HasUser reports whether user may vote on the poll.
func (p *Poll) HasUser(user string) bool {
	return slices.Contains(p.Users, user)
}

// Option returns the option with the given ID.
func (p *Poll) Option(id string) (Option, bool) {
	for _, o := range p.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// HasLabel reports whether an option with label already exists.
func (p *Poll) HasLabel(label string) bool {
	return slices.ContainsFunc(p.Options, func(o Option) bool { return o.Label == label })
}

// OptionCount is the number of votes cast for a single option.
type OptionCount struct {
	Option Option `json:"option"`
	Votes  int    `json:"votes"`
}

// Tally counts votes per option, in option order. Votes referencing an
// option that no longer exists are ignored.
func (p *Poll) Tally() []OptionCount {
	counts := make(map[string]int, len(p.Options))
	for _, optionID := range p.Votes {
		counts[optionID]++
	}
	tally := make([]OptionCount, len(p.Options))
	for i, o := range p.Options {
		tally[i] = OptionCount{Option: o, Votes: counts[o.ID]}
	}
	return tally
}

// Winner returns the option with the most votes. Ties go to the option that
// was added to the poll first. It returns false when no votes are cast.
func (p *Poll) Winner() (Option, bool) {
	var (
		best  Option
		top   int
		found bool
	)
	for _, c := range p.Tally() {
		if c.Votes > top {
			best, top, found = c.Option, c.Votes, true
		}
	}
	return best, found
}
