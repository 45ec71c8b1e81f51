// Package payment holds the provider-independent side of payment reconciliation:
// the capability every provider adapter exposes and the registry that picks an
// adapter from the method recorded on a booking or payout.
package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Domenick1991/flightbuddy/internal/domain"
)

// Method is one payment provider. The concrete adapter is chosen from stored data
// (domain.PaymentMethod), never from request input.
type Method interface {
	Method() domain.PaymentMethod
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	// Capture resolves a provider reference handed back on a browser redirect into a
	// normalized event.
	Capture(ctx context.Context, reference string) (*domain.PaymentEvent, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundOutcome, error)
}

type CheckoutRequest struct {
	BookingID   string
	TravelerID  string
	CompanionID string
	AmountCents int64
	Currency    string
	Description string
}

type Checkout struct {
	SessionID   string
	RedirectURL string
	PaymentRef  string
}

type RefundRequest struct {
	BookingID  string
	TravelerID string
	// Reference is the capture or payment reference on file; may be empty.
	Reference string
	Reason    string
}

type RefundOutcome struct {
	RefundID       string
	Reference      string
	ManualRequired bool
	Note           string
}

type Registry struct {
	methods map[domain.PaymentMethod]Method
}

func NewRegistry(methods ...Method) *Registry {
	r := &Registry{methods: make(map[domain.PaymentMethod]Method, len(methods))}
	for _, m := range methods {
		r.methods[m.Method()] = m
	}
	return r
}

func (r *Registry) Get(method domain.PaymentMethod) (Method, error) {
	m, ok := r.methods[method]
	if !ok {
		return nil, fmt.Errorf("payment method %q: %w", method, domain.ErrUnknownMethod)
	}
	return m, nil
}

// UpstreamError is a non-success answer from a provider. It unwraps to
// domain.ErrProviderUnavailable so callers answer with a retryable status.
type UpstreamError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return domain.ErrProviderUnavailable
}

// CheckResponse turns a non-2xx response into an UpstreamError.
func CheckResponse(provider, operation string, resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return &UpstreamError{Provider: provider, Operation: operation, StatusCode: resp.StatusCode, Body: string(body)}
}

// TransportError wraps network failures the same way.
func TransportError(provider, operation string, err error) error {
	return fmt.Errorf("%s %s: %v: %w", provider, operation, err, domain.ErrProviderUnavailable)
}
