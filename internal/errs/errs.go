// Package errs defines the error kinds every engine reports and the specific
// errors that belong to each kind.
//
// Callers classify with errors.Is against a kind:
//
//	if errors.Is(err, errs.ErrNotFound) { ... }
package errs

import "errors"

// Error kinds.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")
	ErrStateViolation = errors.New("state violation")
)

// Error is a specific failure that belongs to one kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap returns the kind.
func (e *Error) Unwrap() error { return e.kind }

// New returns an error of the given kind.
func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// ErrStale is returned when the entity changed between read and write.
// The caller may retry the whole operation.
var ErrStale = New(ErrConflict, "entity was modified concurrently, retry")

// ErrEmptyUser is returned when an action names no user.
var ErrEmptyUser = New(ErrValidation, "user must not be empty")

// Ledger errors.
var (
	ErrEmptyItem           = New(ErrValidation, "item must not be empty")
	ErrInvalidCost         = New(ErrValidation, "cost must be greater than zero")
	ErrInvalidAmount       = New(ErrValidation, "amount must be greater than zero")
	ErrNegativeAmount      = New(ErrValidation, "amount must not be negative")
	ErrExpenseNotFound     = New(ErrNotFound, "expense not found")
	ErrContributorNotFound = New(ErrNotFound, "user has not contributed to this expense")
	ErrDuplicateItem       = New(ErrConflict, "an expense already exists for this item")
	ErrAlreadyCovered      = New(ErrConflict, "expense is already covered")
	ErrExceedsCost         = New(ErrStateViolation, "contribution would exceed the expense cost")
)

// Polling errors.
var (
	ErrEmptyName           = New(ErrValidation, "name must not be empty")
	ErrEmptyLabel          = New(ErrValidation, "label must not be empty")
	ErrPollNotFound        = New(ErrNotFound, "poll not found")
	ErrOptionNotFound      = New(ErrNotFound, "option not found")
	ErrUserNotInPoll       = New(ErrNotFound, "user is not in this poll")
	ErrVoteNotFound        = New(ErrNotFound, "user has not voted")
	ErrDuplicatePoll       = New(ErrConflict, "a poll with this name already exists")
	ErrDuplicateLabel      = New(ErrConflict, "an option with this label already exists")
	ErrUserAlreadyInPoll   = New(ErrConflict, "user is already in this poll")
	ErrAlreadyVoted        = New(ErrConflict, "user has already voted, update the vote instead")
	ErrPollAlreadyClosed   = New(ErrConflict, "poll is already closed")
	ErrNotCreator          = New(ErrForbidden, "only the poll creator can do this")
	ErrCannotRemoveCreator = New(ErrForbidden, "the poll creator cannot be removed")
	ErrPollClosed          = New(ErrStateViolation, "poll is closed")
)

// Itinerary errors.
var (
	ErrEmptyTrip          = New(ErrValidation, "trip must not be empty")
	ErrNegativeCost       = New(ErrValidation, "cost must not be negative")
	ErrItineraryNotFound  = New(ErrNotFound, "itinerary not found")
	ErrEventNotFound      = New(ErrNotFound, "event not found in this itinerary")
	ErrDuplicateTrip      = New(ErrConflict, "an itinerary already exists for this trip")
	ErrItineraryFinalized = New(ErrStateViolation, "itinerary is finalized")
)

// Trip errors.
var (
	ErrInvalidDateRange    = New(ErrValidation, "end date must not be before start date")
	ErrNegativeBudget      = New(ErrValidation, "budget must not be negative")
	ErrTripNotFound        = New(ErrNotFound, "trip not found")
	ErrParticipantNotFound = New(ErrNotFound, "participant not found")
	ErrDuplicateTripPlan   = New(ErrConflict, "a trip with this destination and dates already exists")
	ErrParticipantExists   = New(ErrConflict, "user is already a participant")
	ErrCannotRemoveOwner   = New(ErrForbidden, "the trip owner cannot be removed")
)

// Kind returns the kind err belongs to, or nil for errors outside the
// taxonomy.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrForbidden, ErrStateViolation} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Retryable reports whether err is a concurrent modification the caller may
// retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrStale)
}
