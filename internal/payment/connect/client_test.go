package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Domenick1991/flightbuddy/config"
	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "t-1", r.PostForm.Get("metadata[traveler_id]"))
		assert.Equal(t, "c-1", r.PostForm.Get("payment_intent_data[metadata][companion_id]"))
		assert.Equal(t, "b-1", r.PostForm.Get("payment_intent_data[transfer_group]"))
		assert.Equal(t, "12000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1"}`))
	}))
	defer srv.Close()

	client := NewClient(config.ProviderAConfig{BaseURL: srv.URL, SecretKey: "sk_test", SuccessURL: "https://app/ok"}, srv.Client())
	session, err := client.CreateCheckoutSession(context.Background(), payment.CheckoutRequest{
		BookingID: "b-1", TravelerID: "t-1", CompanionID: "c-1", AmountCents: 12000, Currency: "USD", Description: "BA117",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
	assert.Equal(t, "https://pay.example/cs_1", session.URL)
}

func TestClient_CreateCheckoutSession_SuccessURL(t *testing.T) {
	tests := []struct {
		name       string
		successURL string
		want       string
	}{
		{
			name:       "plain",
			successURL: "https://app/ok",
			want:       "https://app/ok?session_id={CHECKOUT_SESSION_ID}",
		},
		{
			name:       "existing query",
			successURL: "https://app/ok?lang=en",
			want:       "https://app/ok?lang=en&session_id={CHECKOUT_SESSION_ID}",
		},
		{
			name:       "placeholder already configured",
			successURL: "https://app/payments/provider-a/return?session_id={CHECKOUT_SESSION_ID}",
			want:       "https://app/payments/provider-a/return?session_id={CHECKOUT_SESSION_ID}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				got = r.PostForm.Get("success_url")
				w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1"}`))
			}))
			defer srv.Close()

			client := NewClient(config.ProviderAConfig{BaseURL: srv.URL, SecretKey: "sk_test", SuccessURL: tt.successURL}, srv.Client())
			_, err := client.CreateCheckoutSession(context.Background(), payment.CheckoutRequest{
				BookingID: "b-1", TravelerID: "t-1", AmountCents: 12000, Currency: "USD",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, strings.Count(got, "session_id="))
		})
	}
}

func TestClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"upstream"}}`))
	}))
	defer srv.Close()

	client := NewClient(config.ProviderAConfig{BaseURL: srv.URL}, srv.Client())
	_, err := client.ListSessions(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestClient_ListSessionsAndRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/checkout/sessions":
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			w.Write([]byte(`{"data":[{"id":"cs_1","payment_intent":"pi_1","metadata":{"traveler_id":"t-1"}}]}`))
		case "/v1/refunds":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "pi_1", r.PostForm.Get("payment_intent"))
			assert.Equal(t, "customer request", r.PostForm.Get("metadata[reason]"))
			w.Write([]byte(`{"id":"re_1","status":"succeeded","payment_intent":"pi_1"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(config.ProviderAConfig{BaseURL: srv.URL}, srv.Client())
	sessions, err := client.ListSessions(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "t-1", sessions[0].Metadata["traveler_id"])

	refund, err := client.CreateRefund(context.Background(), "pi_1", "customer request")
	require.NoError(t, err)
	assert.Equal(t, "re_1", refund.ID)
}
