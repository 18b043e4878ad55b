package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Amounts are held as integer minor units (cents) everywhere inside the
// system. The processor already reports minor units; operator-entered major
// amounts are converted exactly once, here, without a float intermediate.

var errInvalidAmount = errors.New("invalid amount")

// ParseMajorUnits converts a decimal major-unit string ("149.50") to minor
// units (14950). At most two fraction digits are accepted.
func ParseMajorUnits(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, errInvalidAmount
	}

	whole, frac, _ := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, errInvalidAmount
	}

	switch len(frac) {
	case 0:
		return units * 100, nil
	case 1:
		frac += "0"
	case 2:
	default:
		return 0, errInvalidAmount
	}

	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, errInvalidAmount
	}

	return units*100 + cents, nil
}

// FormatMajorUnits renders minor units as a major-unit decimal string.
func FormatMajorUnits(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
