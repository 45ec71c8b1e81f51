package connect

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/flightbuddy/internal/domain"
)

// SignatureHeader carries "t=<unix seconds>,v1=<hex hmac>".
const SignatureHeader = "Provider-Signature"

// DefaultTolerance bounds how old a signed timestamp may be.
const DefaultTolerance = 5 * time.Minute

// VerifySignature checks an HMAC-SHA256 over "<t>.<payload>" keyed by the endpoint
// secret. Any v1 entry in the header may match, so secrets can be rolled.
func VerifySignature(payload []byte, header, secret string, now time.Time, tolerance time.Duration) error {
	if header == "" {
		return fmt.Errorf("missing %s header: %w", SignatureHeader, domain.ErrInvalidSignature)
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("malformed signature header: %w", domain.ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("bad signature timestamp: %w", domain.ErrInvalidSignature)
	}
	if tolerance > 0 && now.Sub(time.Unix(ts, 0)).Abs() > tolerance {
		return fmt.Errorf("signature timestamp outside tolerance: %w", domain.ErrInvalidSignature)
	}

	expected := computeSignature(timestamp, payload, secret)
	for _, sig := range signatures {
		got, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature: %w", domain.ErrInvalidSignature)
}

// SignPayload builds a header value; used by tests and local tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	return "t=" + timestamp + ",v1=" + hex.EncodeToString(computeSignature(timestamp, payload, secret))
}

func computeSignature(timestamp string, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

type envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type charge struct {
	ID             string            `json:"id"`
	PaymentIntent  string            `json:"payment_intent"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

type transfer struct {
	ID            string            `json:"id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Destination   string            `json:"destination"`
	TransferGroup string            `json:"transfer_group"`
	Metadata      map[string]string `json:"metadata"`
}

type account struct {
	ID             string `json:"id"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}

// ParseEvent normalizes a verified webhook body. ok is false for event types that
// are acknowledged but ignored.
func ParseEvent(payload []byte) (event *domain.PaymentEvent, ok bool, err error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, false, fmt.Errorf("decode %s event: %w", providerName, err)
	}

	switch strings.ReplaceAll(env.Type, "-", ".") {
	case "checkout.session.completed":
		var s Session
		if err := json.Unmarshal(env.Data.Object, &s); err != nil {
			return nil, false, fmt.Errorf("decode checkout session: %w", err)
		}
		return SessionEvent(&s), true, nil

	case "charge.refunded":
		var ch charge
		if err := json.Unmarshal(env.Data.Object, &ch); err != nil {
			return nil, false, fmt.Errorf("decode charge: %w", err)
		}
		return &domain.PaymentEvent{
			Kind:              domain.EventCaptureRefunded,
			Method:            domain.PaymentMethodConnect,
			Correlation:       correlationFrom(ch.Metadata),
			CapturedCents:     ch.AmountRefunded,
			Currency:          strings.ToUpper(ch.Currency),
			ProviderReference: ch.PaymentIntent,
		}, true, nil

	case "transfer.created":
		var tr transfer
		if err := json.Unmarshal(env.Data.Object, &tr); err != nil {
			return nil, false, fmt.Errorf("decode transfer: %w", err)
		}
		corr := correlationFrom(tr.Metadata)
		if corr.BookingID == "" {
			corr.BookingID = tr.TransferGroup
		}
		return &domain.PaymentEvent{
			Kind:              domain.EventTransferCreated,
			Method:            domain.PaymentMethodConnect,
			Correlation:       corr,
			CapturedCents:     tr.Amount,
			Currency:          strings.ToUpper(tr.Currency),
			ProviderReference: tr.ID,
			AccountID:         tr.Destination,
		}, true, nil

	case "account.updated":
		var acct account
		if err := json.Unmarshal(env.Data.Object, &acct); err != nil {
			return nil, false, fmt.Errorf("decode account: %w", err)
		}
		return &domain.PaymentEvent{
			Kind:           domain.EventAccountUpdated,
			Method:         domain.PaymentMethodConnect,
			AccountID:      acct.ID,
			PayoutsEnabled: acct.PayoutsEnabled,
		}, true, nil

	default:
		return nil, false, nil
	}
}

// SessionEvent maps a checkout session to a capture event. Sessions completed with
// a delayed payment method are still unpaid and only count as pending.
func SessionEvent(s *Session) *domain.PaymentEvent {
	kind := domain.EventCaptureCompleted
	switch s.PaymentStatus {
	case "paid", "no_payment_required":
	case "unpaid":
		kind = domain.EventCapturePending
	default:
		if s.Status != "complete" {
			kind = domain.EventCapturePending
		}
	}
	return &domain.PaymentEvent{
		Kind:              kind,
		Method:            domain.PaymentMethodConnect,
		Correlation:       correlationFrom(s.Metadata),
		CapturedCents:     s.AmountTotal,
		Currency:          strings.ToUpper(s.Currency),
		ProviderReference: s.PaymentIntent,
	}
}

func correlationFrom(md map[string]string) domain.Correlation {
	return domain.Correlation{
		TravelerID:  md["traveler_id"],
		CompanionID: md["companion_id"],
		BookingID:   md["booking_id"],
	}
}
