package domain

import "time"

// EventKind is the provider-independent vocabulary the state machine consumes.
type EventKind string

const (
	EventCaptureCompleted EventKind = "CAPTURE_COMPLETED"
	EventCaptureDenied    EventKind = "CAPTURE_DENIED"
	EventCaptureRefunded  EventKind = "CAPTURE_REFUNDED"
	EventCapturePending   EventKind = "CAPTURE_PENDING"
	EventTransferCreated  EventKind = "TRANSFER_CREATED"
	EventAccountUpdated   EventKind = "ACCOUNT_UPDATED"
)

// Correlation carries the identities a provider echoes back to us. Every field may be
// empty when the provider payload could not be decoded.
type Correlation struct {
	TravelerID  string `json:"traveler_id,omitempty"`
	CompanionID string `json:"companion_id,omitempty"`
	BookingID   string `json:"booking_id,omitempty"`
}

func (c Correlation) Empty() bool {
	return c.TravelerID == ""
}

// PaymentEvent is a normalized provider signal.
type PaymentEvent struct {
	Kind              EventKind
	Method            PaymentMethod
	Correlation       Correlation
	CapturedCents     int64
	Currency          string
	ProviderReference string
	// AccountID and PayoutsEnabled are only set for ACCOUNT_UPDATED.
	AccountID      string
	PayoutsEnabled bool
	ReceivedAt     time.Time
}

// CheckoutSession records what was handed to a provider at checkout so a later refund
// can find the payment without scanning the provider's session list.
type CheckoutSession struct {
	ID          string
	Method      PaymentMethod
	TravelerID  string
	BookingID   string
	PaymentRef  string
	RedirectURL string
	CreatedAt   time.Time
}

type RefundStatus string

const (
	RefundStatusSucceeded      RefundStatus = "succeeded"
	RefundStatusManualRequired RefundStatus = "manual_required"
)

type RefundResult struct {
	BookingID string
	Status    RefundStatus
	Method    PaymentMethod
	Reference string
	Reason    string
	Note      string
}
