package direct

import (
	"encoding/json"

	"github.com/Domenick1991/flightbuddy/internal/domain"
)

// EncodeCustomID packs the correlation into the order's free-form reference field.
func EncodeCustomID(c domain.Correlation) string {
	data, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// DecodeCustomID never fails: anything unreadable becomes an empty correlation, which
// the state machine treats as nothing to update.
func DecodeCustomID(raw string) domain.Correlation {
	var c domain.Correlation
	if raw == "" {
		return c
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return domain.Correlation{}
	}
	return c
}
