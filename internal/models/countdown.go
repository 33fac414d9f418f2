package models

import (
	"fmt"
	"time"
)

// CountdownExpired is shown once the payment deadline has passed.
const CountdownExpired = "Expired"

// FormatCountdown renders remaining payment time as M:SS with whole-second
// granularity. Zero or negative remainders clamp to CountdownExpired.
// This is a pure display derivation; the authoritative expiry transition
// belongs to the server.
func FormatCountdown(remaining time.Duration) string {
	if remaining <= 0 {
		return CountdownExpired
	}
	total := int64(remaining / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// PaymentCountdown formats the time left until deadline as of now.
func PaymentCountdown(deadline, now time.Time) string {
	return FormatCountdown(deadline.Sub(now))
}
