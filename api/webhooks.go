package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/payment"
	"github.com/Domenick1991/flightbuddy/internal/payment/connect"
	"github.com/Domenick1991/flightbuddy/internal/payment/direct"
	"github.com/Domenick1991/flightbuddy/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxWebhookBody = 1 << 20

type Reconciler interface {
	Apply(ctx context.Context, event domain.PaymentEvent) (*booking.Outcome, error)
}

type Methods interface {
	Get(method domain.PaymentMethod) (payment.Method, error)
}

type WebhookSettings struct {
	// SigningSecret verifies provider A deliveries.
	SigningSecret   string
	Tolerance       time.Duration
	ProviderTimeout time.Duration
	// SuccessURL and FailureURL receive the browser after a provider B return.
	SuccessURL string
	FailureURL string
}

// WebhookHandler is the inbound side of payment reconciliation: provider webhooks and
// browser returns are normalized into domain.PaymentEvent and applied to bookings.
type WebhookHandler struct {
	reconciler Reconciler
	methods    Methods
	settings   WebhookSettings
	now        func() time.Time
	log        *logrus.Logger
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Applied  bool   `json:"applied"`
	Reason   string `json:"reason,omitempty"`
	// CorrelatedBookingID names the booking the event referred to when it was applied
	// to a different one.
	CorrelatedBookingID string `json:"correlated_booking_id,omitempty"`
}

type returnResponse struct {
	Status    string `json:"status"`
	BookingID string `json:"booking_id,omitempty"`
}

func NewWebhookHandler(reconciler Reconciler, methods Methods, settings WebhookSettings, log *logrus.Logger) *WebhookHandler {
	if settings.Tolerance <= 0 {
		settings.Tolerance = connect.DefaultTolerance
	}
	if settings.ProviderTimeout <= 0 {
		settings.ProviderTimeout = 10 * time.Second
	}
	return &WebhookHandler{
		reconciler: reconciler,
		methods:    methods,
		settings:   settings,
		now:        time.Now,
		log:        log,
	}
}

func (h *WebhookHandler) RegisterWebhooks(router *gin.RouterGroup) {
	router.POST("/provider-a", h.providerA)
	router.POST("/provider-b", h.providerB)
}

func (h *WebhookHandler) RegisterReturns(router *gin.RouterGroup) {
	router.GET("/provider-a/return", h.providerAReturn)
	router.GET("/provider-b/return", h.providerBReturn)
	router.GET("/provider-b/cancel", h.providerBCancel)
}

func (h *WebhookHandler) providerA(c *gin.Context) {
	payload, ok := h.readBody(c)
	if !ok {
		return
	}
	if h.settings.SigningSecret == "" {
		h.log.Warn("provider A webhook secret not configured, skipping signature verification")
	} else {
		err := connect.VerifySignature(payload, c.GetHeader(connect.SignatureHeader), h.settings.SigningSecret, h.now(), h.settings.Tolerance)
		if err != nil {
			h.log.WithError(err).WithField("client_ip", c.ClientIP()).Warn("rejected provider A webhook")
			abortWithError(c, err)
			return
		}
	}

	event, known, err := connect.ParseEvent(payload)
	h.dispatch(c, domain.PaymentMethodConnect, event, known, err)
}

func (h *WebhookHandler) providerB(c *gin.Context) {
	payload, ok := h.readBody(c)
	if !ok {
		return
	}
	event, known, err := direct.ParseEvent(payload)
	h.dispatch(c, domain.PaymentMethodDirect, event, known, err)
}

func (h *WebhookHandler) dispatch(c *gin.Context, method domain.PaymentMethod, event *domain.PaymentEvent, known bool, err error) {
	if err != nil {
		h.log.WithError(err).WithField("method", method).Warn("malformed webhook")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !known {
		c.JSON(http.StatusOK, webhookResponse{Received: true, Reason: booking.ReasonUnsupported})
		return
	}

	event.ReceivedAt = h.now().UTC()
	outcome, err := h.reconciler.Apply(c.Request.Context(), *event)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"method": method, "kind": event.Kind}).Error("apply webhook event")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, webhookResponse{
		Received:            true,
		Applied:             outcome.Applied,
		Reason:              outcome.Reason,
		CorrelatedBookingID: outcome.CorrelatedBookingID,
	})
}

func (h *WebhookHandler) readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return nil, false
	}
	return payload, true
}

// providerAReturn is called by the front end with the session id provider A appended
// to its success page.
func (h *WebhookHandler) providerAReturn(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	status, bookingID, err := h.capture(c, domain.PaymentMethodConnect, sessionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, returnResponse{Status: status, BookingID: bookingID})
}

// providerBReturn is where provider B sends the browser after approval. The order is
// captured here, server to server.
func (h *WebhookHandler) providerBReturn(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	status, bookingID, err := h.capture(c, domain.PaymentMethodDirect, token)
	if err != nil {
		// A browser is waiting and nobody will retry this request.
		h.log.WithError(err).WithField("token", token).Warn("provider B return failed, sending traveler to failure page")
		h.redirect(c, "error", "")
		return
	}
	h.redirect(c, status, bookingID)
}

func (h *WebhookHandler) providerBCancel(c *gin.Context) {
	h.log.WithField("token", c.Query("token")).Info("provider B checkout cancelled by traveler")
	h.redirect(c, "cancelled", "")
}

func (h *WebhookHandler) capture(c *gin.Context, method domain.PaymentMethod, reference string) (string, string, error) {
	m, err := h.methods.Get(method)
	if err != nil {
		return "", "", err
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.settings.ProviderTimeout)
	defer cancel()
	event, err := m.Capture(ctx, reference)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"method": method, "reference": reference}).Error("capture on return failed")
		return "", "", err
	}

	event.ReceivedAt = h.now().UTC()
	outcome, err := h.reconciler.Apply(c.Request.Context(), *event)
	if err != nil {
		return "", "", err
	}

	bookingID := ""
	if outcome.Booking != nil {
		bookingID = outcome.Booking.ID
	}
	return returnStatus(event.Kind), bookingID, nil
}

func returnStatus(kind domain.EventKind) string {
	switch kind {
	case domain.EventCaptureCompleted:
		return "success"
	case domain.EventCapturePending:
		return "pending"
	default:
		return "failed"
	}
}

func (h *WebhookHandler) redirect(c *gin.Context, status, bookingID string) {
	target := h.settings.FailureURL
	if status == "success" || status == "pending" {
		target = h.settings.SuccessURL
	}
	u, err := url.Parse(target)
	if target == "" || err != nil {
		c.JSON(http.StatusOK, returnResponse{Status: status, BookingID: bookingID})
		return
	}
	q := u.Query()
	q.Set("status", status)
	if bookingID != "" {
		q.Set("booking_id", bookingID)
	}
	u.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, u.String())
}
