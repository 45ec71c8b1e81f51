package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusRefunded  BookingStatus = "REFUNDED"
)

// Terminal reports whether no transition is defined out of the status.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusRefunded
}

// Booking is one traveler trip attempt. Rows are never deleted.
type Booking struct {
	ID               string
	TravelerID       string
	CompanionID      string
	Flight           Flight
	SeatNumber       string
	PriceCents       int64
	Currency         string
	Status           BookingStatus
	PaymentMethod    PaymentMethod
	PaymentReference string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type PairingStatus string

const (
	PairingStatusPendingPayment PairingStatus = "PENDING_PAYMENT"
	PairingStatusConfirmed      PairingStatus = "CONFIRMED"
)

// Pairing links a traveler to a companion for a flight. It references a booking only
// weakly, through traveler id and creation time.
type Pairing struct {
	ID          string
	TravelerID  string
	CompanionID string
	SeatNumber  string
	Status      PairingStatus
	Flight      Flight
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
