package realex

import (
	"strings"

	"github.com/kevin07696/realex-gateway/internal/domain/models"
)

// AVSInputCode builds the address-verification probe "<zip digits>|<leading digits of address1>".
// Zip "BT1 0HX" with address1 "123 Fake Street" yields "10|123".
func AVSInputCode(addr models.Address) string {
	return digitsOf(addr.Zip) + "|" + leadingDigits(addr.Address1)
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func leadingDigits(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool { return !isDigit(r) })
	if end < 0 {
		return s
	}
	return s[:end]
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// billingCode is the code placed in the tssinfo billing address
func billingCode(addr models.Address, skipAVS bool) string {
	if skipAVS {
		return addr.Zip
	}
	return AVSInputCode(addr)
}
