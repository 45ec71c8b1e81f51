package domain

import "time"

type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "PENDING"
	PayoutStatusPaid     PayoutStatus = "PAID"
	PayoutStatusRefunded PayoutStatus = "REFUNDED"
)

type PaymentMethod string

const (
	PaymentMethodConnect PaymentMethod = "PROVIDER_A_CONNECT"
	PaymentMethodDirect  PaymentMethod = "PROVIDER_B_DIRECT"
)

// PlatformFeePercent is the flat take rate applied to every captured amount.
const PlatformFeePercent = 10

// Payout is the compensation owed to a companion for one booking.
type Payout struct {
	ID          string
	BookingID   string
	CompanionID string
	AmountCents int64
	Currency    string
	Status      PayoutStatus
	Method      PaymentMethod
	Reference   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PayoutAmount returns captured minus the platform fee, rounded half up to a cent.
func PayoutAmount(capturedCents int64) int64 {
	keep := int64(100 - PlatformFeePercent)
	return (capturedCents*keep + 50) / 100
}
