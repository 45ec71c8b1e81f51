// Package direct is the direct-capture provider: the traveler approves an order in
// the browser, we capture it server-to-server on the return redirect, and webhooks
// report later changes to the capture.
package direct

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/flightbuddy/config"
	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/Domenick1991/flightbuddy/internal/payment"
)

const providerName = "provider_b"

type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type Capture struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   Money  `json:"amount"`
	CustomID string `json:"custom_id"`
}

type Order struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
		CustomID    string `json:"custom_id"`
		Payments    struct {
			Captures []Capture `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Links []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// ApproveURL is where the traveler is sent to approve the order.
func (o *Order) ApproveURL() string {
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

// FirstCapture returns the capture produced by a capture call, if any.
func (o *Order) FirstCapture() (*Capture, string) {
	for _, pu := range o.PurchaseUnits {
		if len(pu.Payments.Captures) > 0 {
			return &pu.Payments.Captures[0], pu.CustomID
		}
	}
	return nil, ""
}

type RefundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	returnURL    string
	cancelURL    string
	http         *http.Client
	tokens       *TokenCache
}

// NewClient takes the token cache as a dependency so its lifetime is the caller's.
func NewClient(cfg config.ProviderBConfig, httpClient *http.Client, tokens *TokenCache) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if tokens == nil {
		tokens = NewTokenCache()
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		returnURL:    cfg.ReturnURL,
		cancelURL:    cfg.CancelURL,
		http:         httpClient,
		tokens:       tokens,
	}
}

func (c *Client) CreateOrder(ctx context.Context, req payment.CheckoutRequest) (*Order, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": req.BookingID,
			"description":  req.Description,
			"custom_id": EncodeCustomID(domain.Correlation{
				TravelerID:  req.TravelerID,
				CompanionID: req.CompanionID,
				BookingID:   req.BookingID,
			}),
			"amount": Money{CurrencyCode: strings.ToUpper(req.Currency), Value: FormatAmount(req.AmountCents)},
		}},
		"application_context": map[string]string{
			"return_url": c.returnURL,
			"cancel_url": c.cancelURL,
		},
	}
	var order Order
	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", body, "create order", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]any{}, "capture order", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) RefundCapture(ctx context.Context, captureID, note string) (*RefundResponse, error) {
	body := map[string]any{}
	if note != "" {
		body["note_to_payer"] = note
	}
	var refund RefundResponse
	path := "/v2/payments/captures/" + url.PathEscape(captureID) + "/refund"
	if err := c.doJSON(ctx, http.MethodPost, path, body, "refund capture", &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	if err := c.send(req, "token", &tok); err != nil {
		return "", 0, err
	}
	return tok.AccessToken, time.Duration(tok.ExpiresIn) * time.Second, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, operation string, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s %s: encode request: %w", providerName, operation, err)
	}

	token, err := c.tokens.Get(ctx, c.fetchToken)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s %s: %w", providerName, operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	err = c.send(req, operation, out)
	var upstream *payment.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	return err
}

func (c *Client) send(req *http.Request, operation string, out any) error {
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
