package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	LatestByTravelerAndStatus(ctx context.Context, travelerID string, status domain.BookingStatus) (*domain.Booking, error)
	CompareAndSetStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error)
	RecordPayment(ctx context.Context, id string, method domain.PaymentMethod, reference string) error
	ListConfirmedByRoute(ctx context.Context, key domain.RouteKey, excludeTraveler string) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, traveler_id, companion_id, flight_number, airline, route, flight_date, seat_number,
	price_cents, currency, status, payment_method, payment_reference, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.TravelerID, &b.CompanionID, &b.Flight.Number, &b.Flight.Airline, &b.Flight.Route,
		&b.Flight.Date, &b.SeatNumber, &b.PriceCents, &b.Currency, &b.Status, &b.PaymentMethod, &b.PaymentReference,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusPending
	return r.db.QueryRow(ctx, `INSERT INTO bookings (id, traveler_id, companion_id, flight_number, airline, route, flight_date, seat_number, price_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		booking.ID, booking.TravelerID, booking.CompanionID, booking.Flight.Number, booking.Flight.Airline, booking.Flight.Route,
		booking.Flight.Date, booking.SeatNumber, booking.PriceCents, booking.Currency, booking.Status).
		Scan(&booking.CreatedAt, &booking.UpdatedAt)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err, "booking %s", id)
	}
	return b, nil
}

// LatestByTravelerAndStatus is the weak correlation step: the newest booking of the
// traveler that is currently in the given status.
func (r *PGBookingRepository) LatestByTravelerAndStatus(ctx context.Context, travelerID string, status domain.BookingStatus) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE traveler_id=$1 AND status=$2 ORDER BY created_at DESC LIMIT 1`, travelerID, status))
	if err != nil {
		return nil, notFound(err, "%s booking for traveler %s", status, travelerID)
	}
	return b, nil
}

// CompareAndSetStatus only moves the row when it still holds the expected status.
func (r *PGBookingRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now()
		WHERE id=$2 AND status=$3 RETURNING `+bookingColumns, to, id, from))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("booking %s %s->%s: %w", id, from, to, domain.ErrStatusConflict)
		}
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) RecordPayment(ctx context.Context, id string, method domain.PaymentMethod, reference string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET payment_method=$1, payment_reference=$2, updated_at=now() WHERE id=$3`, method, reference, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PGBookingRepository) ListConfirmedByRoute(ctx context.Context, key domain.RouteKey, excludeTraveler string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE route=$1 AND flight_date=$2 AND status=$3 AND traveler_id <> $4
		ORDER BY created_at`, key.Route, key.Date, domain.BookingStatusConfirmed, excludeTraveler)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, domain.ErrNotFound)...)
	}
	return err
}

var _ BookingRepository = (*PGBookingRepository)(nil)
