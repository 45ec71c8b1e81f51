package direct

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/payment"
)

type API interface {
	CreateOrder(ctx context.Context, req payment.CheckoutRequest) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*Order, error)
	RefundCapture(ctx context.Context, captureID, note string) (*RefundResponse, error)
}

type Adapter struct {
	api API
}

func NewAdapter(api API) *Adapter {
	return &Adapter{api: api}
}

func (a *Adapter) Method() domain.PaymentMethod {
	return domain.PaymentMethodDirect
}

func (a *Adapter) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	order, err := a.api.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	return &payment.Checkout{SessionID: order.ID, RedirectURL: order.ApproveURL()}, nil
}

// Capture exchanges the order token from the return redirect for a capture.
func (a *Adapter) Capture(ctx context.Context, orderID string) (*domain.PaymentEvent, error) {
	order, err := a.api.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	capture, unitCustomID := order.FirstCapture()
	if capture == nil {
		// Captured nothing: treat like a declined capture of an unknown payer.
		return &domain.PaymentEvent{
			Kind:              domain.EventCaptureDenied,
			Method:            domain.PaymentMethodDirect,
			ProviderReference: order.ID,
		}, nil
	}

	customID := capture.CustomID
	if customID == "" {
		customID = unitCustomID
	}
	return captureEvent(CaptureStatusKind(capture.Status), capture, customID), nil
}

func (a *Adapter) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundOutcome, error) {
	if req.Reference == "" {
		return nil, fmt.Errorf("booking %s: %w", req.BookingID, domain.ErrNoCaptureReference)
	}
	refund, err := a.api.RefundCapture(ctx, req.Reference, req.Reason)
	if err != nil {
		return nil, err
	}
	return &payment.RefundOutcome{RefundID: refund.ID, Reference: req.Reference}, nil
}

var _ payment.Method = (*Adapter)(nil)
