package direct

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatAmount renders minor units as the decimal string the provider expects.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// ParseAmount reads a two-decimal amount string into minor units.
func ParseAmount(value string) (int64, error) {
	value = strings.TrimSpace(value)
	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" || len(frac) > 2 || strings.HasPrefix(whole, "-") {
		return 0, fmt.Errorf("invalid amount %q", value)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return units*100 + cents, nil
}
