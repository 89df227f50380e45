package common

import "strings"

// MaskSecret keeps the first and last four characters of a token so it
// can be recognized in output without being usable.
func MaskSecret(secret string) string {
	if len(secret) <= 12 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", 8) + secret[len(secret)-4:]
}
