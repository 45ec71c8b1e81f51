package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PayoutRepository interface {
	// Create inserts the payout; a second payout for the same booking is reported as
	// ErrStatusConflict and leaves the first untouched.
	Create(ctx context.Context, payout *domain.Payout) error
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Payout, error)
	UpdateStatus(ctx context.Context, id string, from []domain.PayoutStatus, to domain.PayoutStatus) error
	MarkPaidByBookingID(ctx context.Context, bookingID string) (*domain.Payout, error)
}

type PGPayoutRepository struct {
	db *pgxpool.Pool
}

func NewPayoutRepository(db *pgxpool.Pool) PayoutRepository {
	return &PGPayoutRepository{db: db}
}

const payoutColumns = `id, booking_id, companion_id, amount_cents, currency, payment_status, payment_method, reference, created_at, updated_at`

func scanPayout(row interface{ Scan(...any) error }) (*domain.Payout, error) {
	var p domain.Payout
	if err := row.Scan(&p.ID, &p.BookingID, &p.CompanionID, &p.AmountCents, &p.Currency, &p.Status, &p.Method, &p.Reference,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPayoutRepository) Create(ctx context.Context, p *domain.Payout) error {
	err := r.db.QueryRow(ctx, `INSERT INTO payouts (id, booking_id, companion_id, amount_cents, currency, payment_status, payment_method, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		p.ID, p.BookingID, p.CompanionID, p.AmountCents, p.Currency, p.Status, p.Method, p.Reference).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("payout for booking %s: %w", p.BookingID, domain.ErrStatusConflict)
	}
	return err
}

func (r *PGPayoutRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Payout, error) {
	p, err := scanPayout(r.db.QueryRow(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE booking_id=$1`, bookingID))
	if err != nil {
		return nil, notFound(err, "payout for booking %s", bookingID)
	}
	return p, nil
}

func (r *PGPayoutRepository) UpdateStatus(ctx context.Context, id string, from []domain.PayoutStatus, to domain.PayoutStatus) error {
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}
	cmd, err := r.db.Exec(ctx, `UPDATE payouts SET payment_status=$1, updated_at=now() WHERE id=$2 AND payment_status = ANY($3)`, to, id, allowed)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("payout %s ->%s: %w", id, to, domain.ErrStatusConflict)
	}
	return nil
}

// MarkPaidByBookingID moves a PENDING payout to PAID when the provider reports the
// transfer to the companion.
func (r *PGPayoutRepository) MarkPaidByBookingID(ctx context.Context, bookingID string) (*domain.Payout, error) {
	p, err := scanPayout(r.db.QueryRow(ctx, `UPDATE payouts SET payment_status=$1, updated_at=now()
		WHERE booking_id=$2 AND payment_status=$3 RETURNING `+payoutColumns,
		domain.PayoutStatusPaid, bookingID, domain.PayoutStatusPending))
	if err != nil {
		return nil, notFound(err, "pending payout for booking %s", bookingID)
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ PayoutRepository = (*PGPayoutRepository)(nil)
