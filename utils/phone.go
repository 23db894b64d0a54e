package utils

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePHMobile formats a Philippine mobile number into the local
// 09XXXXXXXXX form PayMongo billing expects. Accepts +63, 63 and 0 prefixed
// input as well as bare 9XXXXXXXXX.
func NormalizePHMobile(phoneNumber string) string {
	digits := nonDigits.ReplaceAllString(phoneNumber, "")

	if strings.HasPrefix(digits, "63") && len(digits) == 12 {
		digits = "0" + digits[2:]
	}
	if len(digits) == 10 && strings.HasPrefix(digits, "9") {
		digits = "0" + digits
	}

	return digits
}

// ValidatePHMobile reports whether the number normalizes into a valid
// Philippine mobile number (11 digits, 09 prefix).
func ValidatePHMobile(phoneNumber string) bool {
	digits := NormalizePHMobile(phoneNumber)
	return len(digits) == 11 && strings.HasPrefix(digits, "09")
}
