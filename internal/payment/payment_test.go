package payment

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMethod struct{ method domain.PaymentMethod }

func (s stubMethod) Method() domain.PaymentMethod { return s.method }
func (s stubMethod) CreateCheckout(context.Context, CheckoutRequest) (*Checkout, error) {
	return &Checkout{}, nil
}
func (s stubMethod) Capture(context.Context, string) (*domain.PaymentEvent, error) { return nil, nil }
func (s stubMethod) Refund(context.Context, RefundRequest) (*RefundOutcome, error) {
	return &RefundOutcome{}, nil
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(stubMethod{domain.PaymentMethodConnect}, stubMethod{domain.PaymentMethodDirect})

	m, err := r.Get(domain.PaymentMethodDirect)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodDirect, m.Method())

	_, err = r.Get("")
	assert.ErrorIs(t, err, domain.ErrUnknownMethod)
}

func TestCheckResponse(t *testing.T) {
	assert.NoError(t, CheckResponse("provider_b", "capture", &http.Response{StatusCode: http.StatusCreated}, nil))

	err := CheckResponse("provider_b", "capture", &http.Response{StatusCode: http.StatusServiceUnavailable}, []byte("try later"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
	assert.Equal(t, "provider_b capture: status 503: try later", err.Error())
}

func TestTransportError(t *testing.T) {
	err := TransportError("provider_a", "refund", errors.New("dial tcp: timeout"))
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
