package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Reasons reported when an event is accepted without a mutation.
const (
	ReasonNoCorrelation   = "no correlation in event"
	ReasonNoMatch         = "no booking in required status"
	ReasonLostRace        = "booking status changed concurrently"
	ReasonNoOp            = "event does not change booking status"
	ReasonUnsupported     = "event kind not handled"
	ReasonPayoutNotFound  = "no pending payout for booking"
	ReasonAccountNotFound = "no companion for account"
)

// Outcome tells the caller what an event did. Every outcome is a successful delivery
// from the provider's point of view; only errors ask for a redelivery.
type Outcome struct {
	Applied bool
	Reason  string
	Booking *domain.Booking
	Payout  *domain.Payout
	// CorrelatedBookingID is set when the event named a different booking than the
	// one it was applied to.
	CorrelatedBookingID string
}

func skipped(reason string) *Outcome {
	return &Outcome{Reason: reason}
}

// Apply runs one normalized payment event through the booking lifecycle. The target
// booking is the traveler's newest booking in the status the event requires, and the
// move is committed with a compare-and-set on that status, so redeliveries and events
// for terminal bookings fall through as no-ops.
func (s *BookingService) Apply(ctx context.Context, event domain.PaymentEvent) (*Outcome, error) {
	entry := s.log.WithFields(logrus.Fields{
		"kind":        event.Kind,
		"method":      event.Method,
		"traveler_id": event.Correlation.TravelerID,
		"reference":   event.ProviderReference,
	})

	switch event.Kind {
	case domain.EventTransferCreated:
		return s.applyTransfer(ctx, event, entry)
	case domain.EventAccountUpdated:
		return s.applyAccountUpdate(ctx, event, entry)
	}

	r, ok := ruleFor(event.Kind)
	if !ok {
		entry.Info("ignoring payment event")
		return skipped(ReasonUnsupported), nil
	}
	if event.Correlation.Empty() {
		entry.Warn("payment event without correlation, nothing to update")
		return skipped(ReasonNoCorrelation), nil
	}

	target, err := s.bookings.LatestByTravelerAndStatus(ctx, event.Correlation.TravelerID, r.from)
	if errors.Is(err, domain.ErrNotFound) {
		entry.WithField("required_status", r.from).Info("no booking matches payment event, discarding")
		return skipped(ReasonNoMatch), nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve booking: %w", err)
	}
	entry = entry.WithField("booking_id", target.ID)
	var mismatch string
	if id := event.Correlation.BookingID; id != "" && id != target.ID {
		mismatch = id
		entry.WithField("correlated_booking_id", id).Warn("payment event resolved to a different booking than it names")
	}

	if r.from == r.to {
		entry.Info("payment still pending")
		return &Outcome{Reason: ReasonNoOp, Booking: target, CorrelatedBookingID: mismatch}, nil
	}

	updated, err := Transition(ctx, s.bookings, target.ID, r.from, r.to)
	if errors.Is(err, domain.ErrStatusConflict) {
		entry.Info("booking moved on before payment event applied, discarding")
		return skipped(ReasonLostRace), nil
	}
	if err != nil {
		return nil, fmt.Errorf("update booking %s: %w", target.ID, err)
	}
	entry.WithFields(logrus.Fields{"from": r.from, "to": r.to}).Info("booking status updated")

	// The status change is committed. A provider retry would no longer find the booking
	// in r.from, so failures below are logged rather than returned.
	outcome := &Outcome{Applied: true, Booking: updated, CorrelatedBookingID: mismatch}
	switch event.Kind {
	case domain.EventCaptureCompleted:
		outcome.Payout = s.onConfirmed(ctx, updated, event, entry)
		s.publish(ctx, "booking_confirmed", updated)
	case domain.EventCaptureDenied:
		s.releaseSeat(ctx, updated, event, entry)
		s.publish(ctx, "booking_cancelled", updated)
	case domain.EventCaptureRefunded:
		s.refundPayout(ctx, updated.ID, entry)
		s.publish(ctx, "booking_refunded", updated)
	}
	return outcome, nil
}

func (s *BookingService) onConfirmed(ctx context.Context, b *domain.Booking, event domain.PaymentEvent, entry *logrus.Entry) *domain.Payout {
	if event.ProviderReference != "" {
		if err := s.bookings.RecordPayment(ctx, b.ID, event.Method, event.ProviderReference); err != nil {
			entry.WithError(err).Error("record payment reference")
		} else {
			b.PaymentMethod = event.Method
			b.PaymentReference = event.ProviderReference
		}
	}

	companionID := b.CompanionID
	if companionID == "" {
		companionID = event.Correlation.CompanionID
	}

	if s.pairings != nil {
		pairing, err := s.pairings.LatestPending(ctx, b.TravelerID, companionID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			entry.WithError(err).Error("load pending pairing")
		default:
			if err := s.pairings.Promote(ctx, pairing.ID); err != nil && !errors.Is(err, domain.ErrStatusConflict) {
				entry.WithError(err).WithField("pairing_id", pairing.ID).Error("promote pairing")
			}
		}
	}

	if companionID == "" || s.payouts == nil {
		return nil
	}
	captured := event.CapturedCents
	if captured <= 0 {
		captured = b.PriceCents
	}
	currency := event.Currency
	if currency == "" {
		currency = b.Currency
	}
	payout := &domain.Payout{
		ID:          uuid.NewString(),
		BookingID:   b.ID,
		CompanionID: companionID,
		AmountCents: domain.PayoutAmount(captured),
		Currency:    currency,
		Status:      domain.PayoutStatusPending,
		Method:      event.Method,
		Reference:   event.ProviderReference,
	}
	if err := s.payouts.Create(ctx, payout); err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			entry.Info("payout already exists for booking")
			return nil
		}
		entry.WithError(err).Error("create payout")
		return nil
	}
	entry.WithFields(logrus.Fields{"payout_id": payout.ID, "amount_cents": payout.AmountCents}).Info("payout created")
	return payout
}

func (s *BookingService) refundPayout(ctx context.Context, bookingID string, entry *logrus.Entry) {
	if s.payouts == nil {
		return
	}
	payout, err := s.payouts.GetByBookingID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		entry.WithError(err).Error("load payout")
		return
	}
	err = s.payouts.UpdateStatus(ctx, payout.ID,
		[]domain.PayoutStatus{domain.PayoutStatusPending, domain.PayoutStatusPaid}, domain.PayoutStatusRefunded)
	if err != nil && !errors.Is(err, domain.ErrStatusConflict) {
		entry.WithError(err).WithField("payout_id", payout.ID).Error("mark payout refunded")
	}
}

// releaseSeat frees the seat held by the traveler's pending pairing after a failed
// payment. Confirmed pairings keep their seat.
func (s *BookingService) releaseSeat(ctx context.Context, b *domain.Booking, event domain.PaymentEvent, entry *logrus.Entry) {
	if s.locks == nil || s.pairings == nil {
		return
	}
	companionID := b.CompanionID
	if companionID == "" {
		companionID = event.Correlation.CompanionID
	}
	pairing, err := s.pairings.LatestPending(ctx, b.TravelerID, companionID)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		entry.WithError(err).Warn("load pending pairing for seat release")
		return
	}
	key := domain.RouteKey{Route: pairing.Flight.Route, Date: pairing.Flight.Date}
	if err := s.locks.ReleaseSeatLock(ctx, key, pairing.SeatNumber); err != nil {
		entry.WithError(err).WithField("seat", pairing.SeatNumber).Warn("release seat lock")
	}
}

// applyTransfer marks the companion's payout PAID once the provider moves the money.
func (s *BookingService) applyTransfer(ctx context.Context, event domain.PaymentEvent, entry *logrus.Entry) (*Outcome, error) {
	bookingID := event.Correlation.BookingID
	if bookingID == "" || s.payouts == nil {
		entry.Info("transfer without booking reference, discarding")
		return skipped(ReasonNoCorrelation), nil
	}
	payout, err := s.payouts.MarkPaidByBookingID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStatusConflict) {
		entry.WithField("booking_id", bookingID).Info("no pending payout for transfer, discarding")
		return skipped(ReasonPayoutNotFound), nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark payout paid: %w", err)
	}
	entry.WithFields(logrus.Fields{"booking_id": bookingID, "payout_id": payout.ID}).Info("payout paid")
	return &Outcome{Applied: true, Payout: payout}, nil
}

func (s *BookingService) applyAccountUpdate(ctx context.Context, event domain.PaymentEvent, entry *logrus.Entry) (*Outcome, error) {
	if event.AccountID == "" || s.companions == nil {
		return skipped(ReasonNoCorrelation), nil
	}
	err := s.companions.SetPayoutsEnabled(ctx, event.AccountID, event.PayoutsEnabled)
	if errors.Is(err, domain.ErrNotFound) {
		entry.WithField("account_id", event.AccountID).Info("account update for unknown companion")
		return skipped(ReasonAccountNotFound), nil
	}
	if err != nil {
		return nil, fmt.Errorf("update companion account: %w", err)
	}
	entry.WithFields(logrus.Fields{"account_id": event.AccountID, "payouts_enabled": event.PayoutsEnabled}).Info("companion account updated")
	return &Outcome{Applied: true}, nil
}
