// Package refund reverses confirmed bookings on admin request through the provider
// that took the payment.
package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/payment"
	"github.com/Domenick1991/flightbuddy/internal/repository"
	"github.com/Domenick1991/flightbuddy/internal/service/booking"
	"github.com/sirupsen/logrus"
)

type RefundUseCase interface {
	Refund(ctx context.Context, bookingID, reason string) (*domain.RefundResult, error)
}

type Methods interface {
	Get(method domain.PaymentMethod) (payment.Method, error)
}

type RefundService struct {
	bookings repository.BookingRepository
	payouts  repository.PayoutRepository
	methods  Methods
	producer booking.Producer
	// eventsTopic carries every committed transition; notificationsTopic feeds the worker.
	eventsTopic        string
	notificationsTopic string
	log                *logrus.Logger
}

type RefundServiceOption func(*RefundService)

func WithProducer(producer booking.Producer, topic string) RefundServiceOption {
	return func(s *RefundService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func WithNotificationsTopic(topic string) RefundServiceOption {
	return func(s *RefundService) {
		s.notificationsTopic = topic
	}
}

func NewRefundService(bookings repository.BookingRepository, payouts repository.PayoutRepository, methods Methods, log *logrus.Logger, opts ...RefundServiceOption) *RefundService {
	s := &RefundService{bookings: bookings, payouts: payouts, methods: methods, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refund reverses a CONFIRMED booking. The provider is picked from the method stored on
// the payout, or on the booking when no payout exists. The booking is moved to REFUNDED
// before the payout so a crash in between leaves only the payout to reconcile.
func (s *RefundService) Refund(ctx context.Context, bookingID, reason string) (*domain.RefundResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkRefundable(b); err != nil {
		return nil, err
	}

	payout, err := s.payouts.GetByBookingID(ctx, b.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load payout: %w", err)
	}

	methodName, reference := b.PaymentMethod, b.PaymentReference
	if payout != nil {
		if payout.Method != "" {
			methodName = payout.Method
		}
		if payout.Reference != "" {
			reference = payout.Reference
		}
	}
	method, err := s.methods.Get(methodName)
	if err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "method": methodName})
	outcome, err := method.Refund(ctx, payment.RefundRequest{
		BookingID:  b.ID,
		TravelerID: b.TravelerID,
		Reference:  reference,
		Reason:     reason,
	})
	if err != nil {
		entry.WithError(err).Warn("provider refund failed")
		return nil, err
	}

	refunded, err := booking.Transition(ctx, s.bookings, b.ID, domain.BookingStatusConfirmed, domain.BookingStatusRefunded)
	if errors.Is(err, domain.ErrStatusConflict) {
		// The provider's refund webhook may have got here first.
		current, gerr := s.bookings.GetByID(ctx, b.ID)
		if gerr != nil {
			return nil, gerr
		}
		if current.Status != domain.BookingStatusRefunded {
			return nil, fmt.Errorf("booking %s is %s after refund: %w", b.ID, current.Status, domain.ErrStatusConflict)
		}
		refunded, err = current, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark booking refunded: %w", err)
	}

	if payout != nil {
		err := s.payouts.UpdateStatus(ctx, payout.ID,
			[]domain.PayoutStatus{domain.PayoutStatusPending, domain.PayoutStatusPaid}, domain.PayoutStatusRefunded)
		if err != nil && !errors.Is(err, domain.ErrStatusConflict) {
			entry.WithError(err).WithField("payout_id", payout.ID).Error("mark payout refunded")
		}
	}

	result := &domain.RefundResult{
		BookingID: b.ID,
		Status:    domain.RefundStatusSucceeded,
		Method:    methodName,
		Reference: outcome.RefundID,
		Reason:    reason,
		Note:      outcome.Note,
	}
	if outcome.ManualRequired {
		result.Status = domain.RefundStatusManualRequired
		entry.Warn("booking refunded, provider refund must be issued manually")
	} else {
		entry.WithField("refund_id", outcome.RefundID).Info("booking refunded")
	}

	s.publish(ctx, refunded, entry)
	return result, nil
}

func (s *RefundService) publish(ctx context.Context, b *domain.Booking, entry *logrus.Entry) {
	if s.producer == nil {
		return
	}
	event := booking.BookingEventFor("booking_refunded", b)
	for _, topic := range []string{s.eventsTopic, s.notificationsTopic} {
		if topic == "" {
			continue
		}
		if err := s.producer.Publish(ctx, topic, b.ID, event); err != nil {
			entry.WithError(err).WithField("topic", topic).Warn("publish booking event")
		}
	}
}

func checkRefundable(b *domain.Booking) error {
	switch {
	case b.Status.Terminal():
		return fmt.Errorf("booking %s is %s: %w", b.ID, b.Status, domain.ErrAlreadyReversed)
	case b.Status == domain.BookingStatusPending:
		return domain.ErrNothingToReverse
	case b.Status != domain.BookingStatusConfirmed:
		return fmt.Errorf("booking %s is %s: %w", b.ID, b.Status, domain.ErrStatusConflict)
	}
	return nil
}

var _ RefundUseCase = (*RefundService)(nil)
