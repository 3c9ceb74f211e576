// Package payload builds the outbound XML documents exchanged with the
// external freight systems and converts between their unit conventions.
package payload

import (
	"fmt"
	"strconv"
)

const (
	cmToInchesFactor = 0.393701
	kgToPoundsFactor = 2.2046
)

// CmToInches converts a centimeter dimension to inches, rendered with the
// five decimal places the downstream system expects.
func CmToInches(cm float64) string {
	return strconv.FormatFloat(cm*cmToInchesFactor, 'f', 5, 64)
}

// KgToPounds converts a kilogram weight to pounds with two decimal places.
func KgToPounds(kg float64) string {
	return strconv.FormatFloat(kg*kgToPoundsFactor, 'f', 2, 64)
}

// Clip truncates s to at most max characters. External fields have fixed
// column widths and the receiving side errors instead of truncating.
func Clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// ParseAmount validates that a monetary amount string is numeric and returns
// it unchanged. Amounts pass through verbatim so no float rounding is
// introduced on the wire.
func ParseAmount(amount string) (string, error) {
	if _, err := strconv.ParseFloat(amount, 64); err != nil {
		return "", fmt.Errorf("invalid monetary amount %q: %w", amount, err)
	}
	return amount, nil
}
