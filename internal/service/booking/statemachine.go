package booking

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbuddy/internal/domain"
)

// allowedTransitions is the booking lifecycle. CANCELLED and REFUNDED are terminal.
var allowedTransitions = map[domain.BookingStatus][]domain.BookingStatus{
	domain.BookingStatusPending: {
		domain.BookingStatusConfirmed,
		domain.BookingStatusCancelled,
	},
	domain.BookingStatusConfirmed: {
		domain.BookingStatusRefunded,
		domain.BookingStatusCancelled,
	},
	domain.BookingStatusCancelled: {},
	domain.BookingStatusRefunded:  {},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to domain.BookingStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to domain.BookingStatus) error {
	if from.Terminal() {
		return fmt.Errorf("booking is %s and cannot move to %s: %w", from, to, domain.ErrStatusConflict)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("booking transition %s->%s: %w", from, to, domain.ErrStatusConflict)
	}
	return nil
}

// StatusStore commits a status move only while the booking still holds from.
type StatusStore interface {
	CompareAndSetStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error)
}

// Transition checks from->to against the lifecycle before handing it to the store.
func Transition(ctx context.Context, store StatusStore, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	if err := ValidateTransition(from, to); err != nil {
		return nil, err
	}
	return store.CompareAndSetStatus(ctx, id, from, to)
}

// rule is one row of the event table: the status the target booking must hold and
// the status it moves to. A rule with from == to changes nothing.
type rule struct {
	from domain.BookingStatus
	to   domain.BookingStatus
}

var eventRules = map[domain.EventKind]rule{
	domain.EventCaptureCompleted: {from: domain.BookingStatusPending, to: domain.BookingStatusConfirmed},
	domain.EventCaptureDenied:    {from: domain.BookingStatusPending, to: domain.BookingStatusCancelled},
	domain.EventCaptureRefunded:  {from: domain.BookingStatusConfirmed, to: domain.BookingStatusRefunded},
	domain.EventCapturePending:   {from: domain.BookingStatusPending, to: domain.BookingStatusPending},
}

func ruleFor(kind domain.EventKind) (rule, bool) {
	r, ok := eventRules[kind]
	return r, ok
}
