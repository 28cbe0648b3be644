package parser

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/IshaanNene/PriceStalk/internal/types"
)

// ParsePrice strips the currency symbol and parses the rest as a decimal.
// "$100.00" and "100" both yield 100.
func ParsePrice(s string) (float64, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, "$", ""))
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: price %q", types.ErrMalformedNumber, s)
	}
	return f, nil
}

// ParseInt parses a whole string as an integer, ignoring surrounding space.
func ParseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: integer %q", types.ErrMalformedNumber, s)
	}
	return n, nil
}

// ParseLeadingInt parses the first whitespace-separated token as an integer.
// "12 reviews" yields 12.
func ParseLeadingInt(s string) (int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty count", types.ErrMalformedNumber)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("%w: count %q", types.ErrMalformedNumber, s)
	}
	return n, nil
}

// ResolveURL resolves href against base into an absolute URL.
func ResolveURL(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	if base == nil {
		if !ref.IsAbs() {
			return "", fmt.Errorf("relative link %q without a base URL", href)
		}
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
