package services

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const confirmationCodeLength = 6

// 0/O and 1/I are excluded so codes read unambiguously over the phone.
var confirmationCodeAlphabet = []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

func generateConfirmationCode() (string, error) {
	b := make([]rune, confirmationCodeLength)
	max := big.NewInt(int64(len(confirmationCodeAlphabet)))
	for i := 0; i < confirmationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = confirmationCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

var slugCleanup = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases s and collapses runs of non-alphanumerics into single
// dashes, suitable for URL path segments.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugCleanup.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
