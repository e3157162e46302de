package utils

import (
	"regexp"
	"strings"
)

var nonDigitRegexp = regexp.MustCompile(`\D`)

// NormalizePhone keeps digits only and drops a leading US country code,
// so "+1 (555) 123-4567" and "555-123-4567" dedup to the same customer.
func NormalizePhone(phone string) string {
	digitsOnly := nonDigitRegexp.ReplaceAllString(phone, "")
	if len(digitsOnly) == 11 && strings.HasPrefix(digitsOnly, "1") {
		return digitsOnly[1:]
	}
	return digitsOnly
}

// SplitName treats the first token as the first name and the rest as the last name.
func SplitName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
