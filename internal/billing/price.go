package billing

import (
	"fmt"
	"strconv"
	"strings"

	"tubepost/internal/types"
)

// maxPriceMinor caps admin-entered prices.
const maxPriceMinor = 100_000_00

// ParsePrice converts a decimal major-unit string ("12.90", "12,9", "15")
// into minor units.
func ParsePrice(s string) (int64, error) {
	invalid := func(err error) error {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidPrice,
			"price must be a non-negative decimal with at most two fraction digits", err,
			map[string]any{"price": s})
	}

	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, invalid(nil)
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, invalid(nil)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, invalid(err)
	}
	minor, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, invalid(err)
	}
	total := major*100 + minor
	if major > maxPriceMinor/100 || total > maxPriceMinor {
		return 0, invalid(nil)
	}
	return total, nil
}

// MajorUnits returns the price as a float in major units for display.
func MajorUnits(minor int64) float64 {
	return float64(minor) / 100
}

// FormatPrice renders minor units as "12.90".
func FormatPrice(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
