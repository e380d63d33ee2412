// Package tally implements creator-managed polls: one vote per eligible
// user, a one-way close, and a plurality result.
package tally

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/seantiz/wayfarer/internal/activity"
	"github.com/seantiz/wayfarer/internal/errs"
	"github.com/seantiz/wayfarer/internal/model"
	"github.com/seantiz/wayfarer/internal/store"
)

// Activity types recorded by the tally engine.
const (
	EventCreated       = "poll.created"
	EventOptionAdded   = "poll.option_added"
	EventOptionRemoved = "poll.option_removed"
	EventUserAdded     = "poll.user_added"
	EventUserRemoved   = "poll.user_removed"
	EventVoted         = "poll.voted"
	EventVoteChanged   = "poll.vote_changed"
	EventClosed        = "poll.closed"
)

// Tally owns the polls collection.
type Tally struct {
	store  store.Store
	rec    activity.Recorder
	logger *slog.Logger
}

// New creates a tally engine. rec may be nil.
func New(s store.Store, rec activity.Recorder, logger *slog.Logger) *Tally {
	if rec == nil {
		rec = activity.Discard
	}
	return &Tally{store: s, rec: rec, logger: logger}
}

// Create opens a poll owned by user. The creator is its first voter.
func (t *Tally) Create(ctx context.Context, user, name string) (*model.Poll, error) {
	if user == "" {
		return nil, errs.ErrEmptyUser
	}
	if name == "" {
		return nil, errs.ErrEmptyName
	}

	p := &model.Poll{
		ID:      model.NewID(),
		Name:    name,
		Creator: user,
		Users:   []string{user},
		Options: []model.Option{},
		Votes:   map[string]string{},
	}
	if err := t.store.CreatePoll(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.ErrDuplicatePoll
		}
		return nil, fmt.Errorf("create poll: %w", err)
	}

	t.rec.Record(activity.NewEvent(EventCreated, p.ID, activity.WithActor(user),
		activity.WithData(map[string]string{"name": name})))
	return p, nil
}

// loadOpen fetches a poll for a creator-only mutation.
func (t *Tally) loadOpen(ctx context.Context, actingUser, pollID string) (*model.Poll, error) {
	p, err := t.store.GetPoll(ctx, pollID)
	if err != nil {
		return nil, translate(err, "get poll")
	}
	if p.Creator != actingUser {
		return nil, errs.ErrNotCreator
	}
	if p.Closed {
		return nil, errs.ErrPollClosed
	}
	return p, nil
}

func (t *Tally) save(ctx context.Context, p *model.Poll, op string) error {
	if err := t.store.UpdatePoll(ctx, p); err != nil {
		return translate(err, op)
	}
	return nil
}

// AddOption appends an option with a label unique within the poll.
func (t *Tally) AddOption(ctx context.Context, actingUser, pollID, label string) (*model.Option, error) {
	if label == "" {
		return nil, errs.ErrEmptyLabel
	}
	p, err := t.loadOpen(ctx, actingUser, pollID)
	if err != nil {
		return nil, err
	}
	if p.HasLabel(label) {
		return nil, errs.ErrDuplicateLabel
	}

	opt := model.Option{ID: model.NewID(), Label: label}
	p.Options = append(p.Options, opt)
	if err := t.save(ctx, p, "add option"); err != nil {
		return nil, err
	}

	t.rec.Record(activity.NewEvent(EventOptionAdded, p.ID, activity.WithActor(actingUser),
		activity.WithData(opt)))
	return &opt, nil
}

// RemoveOption deletes an option along with every vote cast for it.
func (t *Tally) RemoveOption(ctx context.Context, actingUser, pollID, optionID string) error {
	p, err := t.loadOpen(ctx, actingUser, pollID)
	if err != nil {
		return err
	}
	opt, ok := p.Option(optionID)
	if !ok {
		return errs.ErrOptionNotFound
	}

	p.Options = slices.DeleteFunc(p.Options, func(o model.Option) bool { return o.ID == optionID })
	dropped := 0
	for user, voted := range p.Votes {
		if voted == optionID {
			delete(p.Votes, user)
			dropped++
		}
	}
	if err := t.save(ctx, p, "remove option"); err != nil {
		return err
	}

	t.rec.Record(activity.NewEvent(EventOptionRemoved, p.ID, activity.WithActor(actingUser),
		activity.WithData(map[string]any{"option": opt, "votes_removed": dropped})))
	return nil
}

// AddUser makes user eligible to vote.
func (t *Tally) AddUser(ctx context.Context, actingUser, pollID, user string) error {
	if user == "" {
		return errs.ErrEmptyUser
	}
	p, err := t.loadOpen(ctx, actingUser, pollID)
	if err != nil {
		return err
	}
	if p.HasUser(user) {
		return errs.ErrUserAlreadyInPoll
	}

	p.Users = append(p.Users, user)
	if err := t.save(ctx, p, "add user"); err != nil {
		return err
	}

	t.rec.Record(activity.NewEvent(EventUserAdded, p.ID, activity.WithActor(actingUser),
		activity.WithData(map[string]string{"user": user})))
	return nil
}

// RemoveUser revokes user's eligibility and discards their vote. The
// creator cannot be removed.
func (t *Tally) RemoveUser(ctx context.Context, actingUser, pollID, user string) error {
	p, err := t.loadOpen(ctx, actingUser, pollID)
	if err != nil {
		return err
	}
	if user == p.Creator {
		return errs.ErrCannotRemoveCreator
	}
	if !p.HasUser(user) {
		return errs.ErrUserNotInPoll
	}

	p.Users = slices.DeleteFunc(p.Users, func(u string) bool { return u == user })
	delete(p.Votes, user)
	if err := t.save(ctx, p, "remove user"); err != nil {
		return err
	}

	t.rec.Record(activity.NewEvent(EventUserRemoved, p.ID, activity.WithActor(actingUser),
		activity.WithData(map[string]string{"user": user})))
	return nil
}

// AddVote records user's first vote.
func (t *Tally) AddVote(ctx context.Context, user, optionID, pollID string) error {
	p, err := t.store.GetPoll(ctx, pollID)
	if err != nil {
		return translate(err, "get poll")
	}
	if p.Closed {
		return errs.ErrPollClosed
	}
	if !p.HasUser(user) {
		return errs.ErrUserNotInPoll
	}
	if _, ok := p.Option(optionID); !ok {
		return errs.ErrOptionNotFound
	}
	if _, voted := p.Votes[user]; voted {
		return errs.ErrAlreadyVoted
	}

	p.Votes[user] = optionID
	if err := t.save(ctx, p, "add vote"); err != nil {
		return err
	}

	t.rec.Record(activity.NewEvent(EventVoted, p.ID, activity.WithActor(user),
		activity.WithData(map[string]string{"option": optionID})))
	return nil
}

// UpdateVote moves user's existing vote to newOptionID.
func (t *Tally) UpdateVote(ctx context.Context, user, newOptionID, pollID string) error {
	p, err := t.store.GetPoll(ctx, pollID)
	if err != nil {
		return translate(err, "get poll")
	}
	if p.Closed {
		return errs.ErrPollClosed
	}
	if _, ok := p.Option(newOptionID); !ok {
		return errs.ErrOptionNotFound
	}
	old, voted := p.Votes[user]
	if !voted {
		return errs.ErrVoteNotFound
	}

	p.Votes[user] = newOptionID
	if err := t.save(ctx, p, "update vote"); err != nil {
		return err
	}

	t.rec.Record(activity.NewEvent(EventVoteChanged, p.ID, activity.WithActor(user),
		activity.WithData(map[string]string{"from": old, "to": newOptionID})))
	return nil
}

// Close ends voting on a poll. A closed poll cannot be reopened.
func (t *Tally) Close(ctx context.Context, actingUser, pollID string) (*model.Poll, error) {
	p, err := t.store.GetPoll(ctx, pollID)
	if err != nil {
		return nil, translate(err, "get poll")
	}
	if p.Creator != actingUser {
		return nil, errs.ErrNotCreator
	}
	if p.Closed {
		return nil, errs.ErrPollAlreadyClosed
	}

	p.Closed = true
	if err := t.save(ctx, p, "close poll"); err != nil {
		return nil, err
	}

	opts := []activity.Option{activity.WithActor(actingUser), activity.Final()}
	if winner, ok := p.Winner(); ok {
		opts = append(opts, activity.WithData(map[string]any{"winner": winner}))
		t.logger.Info("poll closed", "poll_id", p.ID, "winner", winner.Label)
	} else {
		t.logger.Info("poll closed without votes", "poll_id", p.ID)
	}
	t.rec.Record(activity.NewEvent(EventClosed, p.ID, opts...))
	return p, nil
}

// Result returns the option with the most votes, or nil when nobody has
// voted. Ties go to the option added first.
func (t *Tally) Result(ctx context.Context, pollID string) (*model.Option, error) {
	p, err := t.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	winner, ok := p.Winner()
	if !ok {
		return nil, nil
	}
	return &winner, nil
}

// Counts returns the number of votes per option in option order.
func (t *Tally) Counts(ctx context.Context, pollID string) ([]model.OptionCount, error) {
	p, err := t.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return p.Tally(), nil
}

// Get returns a poll by ID.
func (t *Tally) Get(ctx context.Context, pollID string) (*model.Poll, error) {
	p, err := t.store.GetPoll(ctx, pollID)
	if err != nil {
		return nil, translate(err, "get poll")
	}
	return p, nil
}

// UserVote returns the option user voted for.
func (t *Tally) UserVote(ctx context.Context, user, pollID string) (*model.Option, error) {
	p, err := t.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	optionID, ok := p.Votes[user]
	if !ok {
		return nil, errs.ErrVoteNotFound
	}
	opt, ok := p.Option(optionID)
	if !ok {
		return nil, errs.ErrOptionNotFound
	}
	return &opt, nil
}

// Votes returns every vote on a poll keyed by user.
func (t *Tally) Votes(ctx context.Context, pollID string) (map[string]string, error) {
	p, err := t.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return p.Votes, nil
}

// ListForUser returns the polls user may vote on.
func (t *Tally) ListForUser(ctx context.Context, user string) ([]*model.Poll, error) {
	polls, err := t.store.ListPollsForUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return polls, nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errs.ErrPollNotFound
	case errors.Is(err, store.ErrStale):
		return errs.ErrStale
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
