package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/flightbuddy/internal/logger"
	"github.com/Domenick1991/flightbuddy/internal/payment"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRouter(cfg RouterConfig, refunds *MockRefundUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	bookings := &MockBookingUseCase{}
	return NewRouter(Handlers{
		Bookings:   NewBookingHandler(bookings),
		Companions: NewCompanionHandler(&MockMatchingUseCase{}),
		Webhooks:   NewWebhookHandler(bookings, payment.NewRegistry(), WebhookSettings{}, logger.Discard()),
		Admin:      NewAdminHandler(refunds, logger.Discard()),
	}, cfg, logger.Discard())
}

func TestNewRouter_RateLimitIgnoresForwardedFor(t *testing.T) {
	router := newTestRouter(RouterConfig{AdminSecret: adminSecret, AdminIssuer: adminIssuer, RatePerSecond: 0.001, Burst: 1}, &MockRefundUseCase{})

	send := func(forwardedFor string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/provider-b", bytes.NewReader([]byte("not json")))
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.NotEqual(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2"))
}

func TestNewRouter_TrustedProxyForwardsClient(t *testing.T) {
	router := newTestRouter(RouterConfig{
		AdminSecret:    adminSecret,
		AdminIssuer:    adminIssuer,
		TrustedProxies: []string{"203.0.113.7"},
		RatePerSecond:  0.001,
		Burst:          1,
	}, &MockRefundUseCase{})

	send := func(forwardedFor string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/provider-b", bytes.NewReader([]byte("not json")))
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.NotEqual(t, http.StatusTooManyRequests, send("198.51.100.1"))
	assert.NotEqual(t, http.StatusTooManyRequests, send("198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.2"))
}

func TestNewRouter_EmptyAdminSecretRejectsEveryToken(t *testing.T) {
	refunds := &MockRefundUseCase{}
	router := newTestRouter(RouterConfig{AdminIssuer: adminIssuer, RatePerSecond: 1, Burst: 1}, refunds)

	emptyKey, err := IssueAdminToken("", adminIssuer, "ops", time.Hour)
	require.NoError(t, err)
	otherKey, err := IssueAdminToken("anything", adminIssuer, "ops", time.Hour)
	require.NoError(t, err)

	for _, token := range []string{"", emptyKey, otherKey} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, refundRequestFor("b1", token, []byte(`{"reason":"x"}`)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	refunds.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
}
