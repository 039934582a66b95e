package domain

import (
	"fmt"
	"strings"
)

// NormalizePhone normalizes an Israeli phone number to the canonical
// 0XXXXXXXXX form used as the duplicate-detection identity key.
// Accepts separators (spaces, dashes, parentheses) and the international
// +972 prefix. Returns ErrInvalidInput for anything else.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		switch r {
		case ' ', '-', '(', ')':
			continue
		default:
			b.WriteRune(r)
		}
	}
	normalized := b.String()

	if strings.HasPrefix(normalized, "+972") {
		normalized = "0" + normalized[4:]
	}

	if len(normalized) != 10 || normalized[0] != '0' {
		return "", fmt.Errorf("%w: invalid phone number format", ErrInvalidInput)
	}
	for _, r := range normalized {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: invalid phone number format", ErrInvalidInput)
		}
	}
	return normalized, nil
}
