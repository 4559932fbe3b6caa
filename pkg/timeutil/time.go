package timeutil

import (
	"fmt"
	"time"
)

// TimestampLayout is the 14-digit YYYYMMDDHHMMSS layout used on the wire
const TimestampLayout = "20060102150405"

// Clock returns the current time. Injected wherever a timestamp ends up in a
// signed document so tests can pin it.
type Clock func() time.Time

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// FixedClock returns a Clock that always reports t
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// FormatTimestamp renders t as a 14-digit wire timestamp
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a 14-digit wire timestamp as UTC
func ParseTimestamp(value string) (time.Time, error) {
	if len(value) != len(TimestampLayout) {
		return time.Time{}, fmt.Errorf("timestamp %q must be %d digits", value, len(TimestampLayout))
	}
	t, err := time.Parse(TimestampLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ExpiryMMYY renders a card expiry month/year as MMYY
func ExpiryMMYY(month, year int) string {
	return fmt.Sprintf("%02d%02d", month, year%100)
}
