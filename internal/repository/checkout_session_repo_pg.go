package repository

import (
	"context"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckoutSessionRepository keeps the provider session handed out at checkout, so a
// refund does not have to scan the provider's recent sessions.
type CheckoutSessionRepository interface {
	Save(ctx context.Context, session *domain.CheckoutSession) error
	ForBooking(ctx context.Context, bookingID string, method domain.PaymentMethod) (*domain.CheckoutSession, error)
	AttachPaymentRef(ctx context.Context, sessionID, paymentRef string) error
}

type PGCheckoutSessionRepository struct {
	db *pgxpool.Pool
}

func NewCheckoutSessionRepository(db *pgxpool.Pool) CheckoutSessionRepository {
	return &PGCheckoutSessionRepository{db: db}
}

func (r *PGCheckoutSessionRepository) Save(ctx context.Context, s *domain.CheckoutSession) error {
	return r.db.QueryRow(ctx, `INSERT INTO checkout_sessions (id, payment_method, traveler_id, booking_id, payment_ref, redirect_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET payment_ref = EXCLUDED.payment_ref
		RETURNING created_at`,
		s.ID, s.Method, s.TravelerID, s.BookingID, s.PaymentRef, s.RedirectURL).Scan(&s.CreatedAt)
}

func (r *PGCheckoutSessionRepository) ForBooking(ctx context.Context, bookingID string, method domain.PaymentMethod) (*domain.CheckoutSession, error) {
	var s domain.CheckoutSession
	err := r.db.QueryRow(ctx, `SELECT id, payment_method, traveler_id, booking_id, payment_ref, redirect_url, created_at
		FROM checkout_sessions WHERE booking_id=$1 AND payment_method=$2
		ORDER BY created_at DESC LIMIT 1`, bookingID, method).
		Scan(&s.ID, &s.Method, &s.TravelerID, &s.BookingID, &s.PaymentRef, &s.RedirectURL, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err, "checkout session for booking %s", bookingID)
	}
	return &s, nil
}

func (r *PGCheckoutSessionRepository) AttachPaymentRef(ctx context.Context, sessionID, paymentRef string) error {
	_, err := r.db.Exec(ctx, `UPDATE checkout_sessions SET payment_ref=$1 WHERE id=$2`, paymentRef, sessionID)
	return err
}

var _ CheckoutSessionRepository = (*PGCheckoutSessionRepository)(nil)
