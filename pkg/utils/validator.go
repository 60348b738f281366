package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// ValidatePrice validates a voucher price
func ValidatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("price must be a finite number")
	}

	if price < 0 {
		return fmt.Errorf("price must not be negative: %.2f", price)
	}

	return nil
}

// ParsePrice parses a price cell. A single comma followed by one or two digits,
// with no dot, is a decimal comma ("12,5"); any other comma is a thousands
// separator ("1,500").
func ParsePrice(raw string) (float64, error) {
	cleaned := normalizeSeparators(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, fmt.Errorf("empty price")
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", raw, err)
	}

	if err := ValidatePrice(price); err != nil {
		return 0, err
	}
	return price, nil
}

func normalizeSeparators(s string) string {
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		_, frac, _ := strings.Cut(s, ",")
		if n := len(frac); n >= 1 && n <= 2 && isDigits(frac) {
			return strings.Replace(s, ",", ".", 1)
		}
	}
	return strings.ReplaceAll(s, ",", "")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
