package phone

import "strings"

// Normalize converts a customer-entered phone number into the digits-only
// destination the bridge expects. Numbers are assumed Turkish: a leading "0"
// is the national trunk prefix and becomes "90", and bare local numbers get
// "90" prepended.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, "0") {
		return "90" + digits[1:]
	}
	if !strings.HasPrefix(digits, "90") {
		return "90" + digits
	}
	return digits
}
