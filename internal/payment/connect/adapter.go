package connect

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/payment"
	"github.com/Domenick1991/flightbuddy/internal/repository"
	"github.com/sirupsen/logrus"
)

type API interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	CreateRefund(ctx context.Context, paymentIntent, reason string) (*Refund, error)
}

type Adapter struct {
	api       API
	sessions  repository.CheckoutSessionRepository
	scanLimit int
	log       *logrus.Logger
}

func NewAdapter(api API, sessions repository.CheckoutSessionRepository, scanLimit int, log *logrus.Logger) *Adapter {
	return &Adapter{api: api, sessions: sessions, scanLimit: scanLimit, log: log}
}

func (a *Adapter) Method() domain.PaymentMethod {
	return domain.PaymentMethodConnect
}

func (a *Adapter) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	session, err := a.api.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, err
	}
	return &payment.Checkout{SessionID: session.ID, RedirectURL: session.URL, PaymentRef: session.PaymentIntent}, nil
}

// Capture reads back the session named on the success redirect.
func (a *Adapter) Capture(ctx context.Context, sessionID string) (*domain.PaymentEvent, error) {
	session, err := a.api.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return SessionEvent(session), nil
}

// Refund reverses the payment behind a booking. The payment intent is taken from the
// reference on file, then from the session saved at checkout, and last from a
// bounded scan of the provider's recent sessions. When all three come up empty the
// refund has to be done by hand.
func (a *Adapter) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundOutcome, error) {
	intent, err := a.resolvePaymentIntent(ctx, req)
	if err != nil {
		return nil, err
	}
	if intent == "" {
		a.log.WithFields(logrus.Fields{
			"booking_id":  req.BookingID,
			"traveler_id": req.TravelerID,
			"scan_limit":  a.scanLimit,
		}).Warn("no checkout session found for refund, manual refund required")
		return &payment.RefundOutcome{
			ManualRequired: true,
			Note:           fmt.Sprintf("no checkout session found for traveler %s in the last %d sessions", req.TravelerID, a.scanLimit),
		}, nil
	}

	refund, err := a.api.CreateRefund(ctx, intent, req.Reason)
	if err != nil {
		return nil, err
	}
	return &payment.RefundOutcome{RefundID: refund.ID, Reference: intent}, nil
}

func (a *Adapter) resolvePaymentIntent(ctx context.Context, req payment.RefundRequest) (string, error) {
	if req.Reference != "" {
		return req.Reference, nil
	}

	if a.sessions != nil {
		saved, err := a.sessions.ForBooking(ctx, req.BookingID, domain.PaymentMethodConnect)
		switch {
		case err == nil && saved.PaymentRef != "":
			return saved.PaymentRef, nil
		case err == nil:
			// The intent is only known once the session completes.
			session, err := a.api.GetSession(ctx, saved.ID)
			if err != nil {
				return "", err
			}
			if session.PaymentIntent != "" {
				if err := a.sessions.AttachPaymentRef(ctx, saved.ID, session.PaymentIntent); err != nil {
					a.log.WithError(err).WithField("session_id", saved.ID).Warn("attach payment intent to session")
				}
				return session.PaymentIntent, nil
			}
		case !errors.Is(err, domain.ErrNotFound):
			return "", fmt.Errorf("load checkout session: %w", err)
		}
	}

	// Known ceiling: only the newest scanLimit sessions are inspected.
	recent, err := a.api.ListSessions(ctx, a.scanLimit)
	if err != nil {
		return "", err
	}
	for _, s := range recent {
		if s.Metadata["traveler_id"] != req.TravelerID || s.PaymentIntent == "" {
			continue
		}
		if id := s.Metadata["booking_id"]; id != "" && id != req.BookingID {
			continue
		}
		return s.PaymentIntent, nil
	}
	return "", nil
}

var _ payment.Method = (*Adapter)(nil)
