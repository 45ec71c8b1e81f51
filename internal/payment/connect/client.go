// Package connect is the marketplace provider: hosted checkout sessions whose
// metadata carries our correlation, signed asynchronous webhooks, and transfers to
// companions' connected accounts.
package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/flightbuddy/config"
	"github.com/Domenick1991/flightbuddy/internal/payment"
)

const providerName = "provider_a"

// Session is the subset of a checkout session we read.
type Session struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Status            string            `json:"status"`
	PaymentStatus     string            `json:"payment_status"`
	PaymentIntent     string            `json:"payment_intent"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
	Created           int64             `json:"created"`
}

type Refund struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
}

type sessionList struct {
	Data []Session `json:"data"`
}

type Client struct {
	baseURL    string
	secretKey  string
	successURL string
	cancelURL  string
	http       *http.Client
}

// sessionPlaceholder is substituted by provider A with the checkout session id.
const sessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// withSessionPlaceholder appends session_id to the success URL unless the configured
// URL already carries the placeholder. The braces must stay unescaped.
func withSessionPlaceholder(successURL string) string {
	if strings.Contains(successURL, sessionPlaceholder) {
		return successURL
	}
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "session_id=" + sessionPlaceholder
}

func NewClient(cfg config.ProviderAConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		http:       httpClient,
	}
}

// CreateCheckoutSession opens a hosted checkout. Correlation metadata is attached to
// both the session and its payment intent so charge events carry it as well; the
// transfer group ties the later companion transfer back to the booking.
func (c *Client) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", withSessionPlaceholder(c.successURL))
	form.Set("cancel_url", c.cancelURL)
	form.Set("client_reference_id", req.BookingID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	form.Set("payment_intent_data[transfer_group]", req.BookingID)
	for key, value := range metadata(req) {
		form.Set("metadata["+key+"]", value)
		form.Set("payment_intent_data[metadata]["+key+"]", value)
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, "create session", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil, "get session", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns the most recent sessions, newest first.
func (c *Client) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	var list sessionList
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions?"+q.Encode(), nil, "list sessions", &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) CreateRefund(ctx context.Context, paymentIntent, reason string) (*Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentIntent)
	if reason != "" {
		form.Set("metadata[reason]", reason)
	}
	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", form, "refund", &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, operation string, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", providerName, operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return payment.TransportError(providerName, operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return payment.TransportError(providerName, operation, err)
	}
	if err := payment.CheckResponse(providerName, operation, resp, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", providerName, operation, err)
	}
	return nil
}

func metadata(req payment.CheckoutRequest) map[string]string {
	m := map[string]string{
		"traveler_id": req.TravelerID,
		"booking_id":  req.BookingID,
	}
	if req.CompanionID != "" {
		m["companion_id"] = req.CompanionID
	}
	return m
}
