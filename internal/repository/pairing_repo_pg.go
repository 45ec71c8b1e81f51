package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PairingRepository interface {
	Create(ctx context.Context, pairing *domain.Pairing) error
	// LatestPending returns the newest PENDING_PAYMENT pairing of the traveler,
	// narrowed to the companion when one is given.
	LatestPending(ctx context.Context, travelerID, companionID string) (*domain.Pairing, error)
	Promote(ctx context.Context, id string) error
	// SeatConfirmed reports whether a CONFIRMED pairing already holds the seat on the flight.
	SeatConfirmed(ctx context.Context, flight domain.RouteKey, seat string) (bool, error)
}

type PGPairingRepository struct {
	db *pgxpool.Pool
}

func NewPairingRepository(db *pgxpool.Pool) PairingRepository {
	return &PGPairingRepository{db: db}
}

func (r *PGPairingRepository) Create(ctx context.Context, p *domain.Pairing) error {
	p.Status = domain.PairingStatusPendingPayment
	return r.db.QueryRow(ctx, `INSERT INTO pairings (id, traveler_id, companion_id, seat_number, status, flight_number, airline, route, flight_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		p.ID, p.TravelerID, p.CompanionID, p.SeatNumber, p.Status, p.Flight.Number, p.Flight.Airline, p.Flight.Route, p.Flight.Date).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PGPairingRepository) LatestPending(ctx context.Context, travelerID, companionID string) (*domain.Pairing, error) {
	row := r.db.QueryRow(ctx, `SELECT id, traveler_id, companion_id, seat_number, status, flight_number, airline, route, flight_date, created_at, updated_at
		FROM pairings
		WHERE traveler_id=$1 AND status=$2 AND ($3 = '' OR companion_id=$3)
		ORDER BY created_at DESC LIMIT 1`, travelerID, domain.PairingStatusPendingPayment, companionID)
	var p domain.Pairing
	if err := row.Scan(&p.ID, &p.TravelerID, &p.CompanionID, &p.SeatNumber, &p.Status, &p.Flight.Number, &p.Flight.Airline,
		&p.Flight.Route, &p.Flight.Date, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, notFound(err, "pending pairing for traveler %s", travelerID)
	}
	return &p, nil
}

func (r *PGPairingRepository) Promote(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE pairings SET status=$1, updated_at=now() WHERE id=$2 AND status=$3`,
		domain.PairingStatusConfirmed, id, domain.PairingStatusPendingPayment)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("pairing %s: %w", id, domain.ErrStatusConflict)
	}
	return nil
}

func (r *PGPairingRepository) SeatConfirmed(ctx context.Context, flight domain.RouteKey, seat string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM pairings WHERE route=$1 AND flight_date=$2 AND seat_number=$3 AND status=$4)`,
		flight.Route, flight.Date, seat, domain.PairingStatusConfirmed).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check seat %s: %w", seat, err)
	}
	return taken, nil
}

var _ PairingRepository = (*PGPairingRepository)(nil)
