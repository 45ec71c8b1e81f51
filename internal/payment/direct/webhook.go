package direct

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightbuddy/internal/domain"
)

type envelope struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

var captureEvents = map[string]domain.EventKind{
	"PAYMENT.CAPTURE.COMPLETED": domain.EventCaptureCompleted,
	"PAYMENT.CAPTURE.REFUNDED":  domain.EventCaptureRefunded,
	"PAYMENT.CAPTURE.DENIED":    domain.EventCaptureDenied,
	"PAYMENT.CAPTURE.PENDING":   domain.EventCapturePending,
}

// ParseEvent normalizes a webhook body. CHECKOUT.ORDER.APPROVED is left to the
// return redirect, which captures the order itself; it and unknown types come back
// with ok == false.
func ParseEvent(payload []byte) (event *domain.PaymentEvent, ok bool, err error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, false, fmt.Errorf("decode %s event: %w", providerName, err)
	}

	kind, known := captureEvents[strings.ToUpper(env.EventType)]
	if !known {
		return nil, false, nil
	}

	var capture Capture
	if err := json.Unmarshal(env.Resource, &capture); err != nil {
		return nil, false, fmt.Errorf("decode %s resource: %w", env.EventType, err)
	}
	return captureEvent(kind, &capture, capture.CustomID), true, nil
}

// CaptureStatusKind maps the status of a capture to the event it stands for.
func CaptureStatusKind(status string) domain.EventKind {
	switch strings.ToUpper(status) {
	case "COMPLETED":
		return domain.EventCaptureCompleted
	case "PENDING":
		return domain.EventCapturePending
	case "REFUNDED", "PARTIALLY_REFUNDED":
		return domain.EventCaptureRefunded
	default:
		return domain.EventCaptureDenied
	}
}

func captureEvent(kind domain.EventKind, c *Capture, customID string) *domain.PaymentEvent {
	cents, err := ParseAmount(c.Amount.Value)
	if err != nil {
		cents = 0
	}
	return &domain.PaymentEvent{
		Kind:              kind,
		Method:            domain.PaymentMethodDirect,
		Correlation:       DecodeCustomID(customID),
		CapturedCents:     cents,
		Currency:          strings.ToUpper(c.Amount.CurrencyCode),
		ProviderReference: c.ID,
	}
}
