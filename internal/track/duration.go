package track

import (
	"fmt"
	"time"
)

// Sentinel duration labels. Derivation never fails on dirty timestamps;
// it degrades to one of these so the row stays renderable.
const (
	LabelNA          = "N/A"
	LabelActive      = "Active"
	LabelStillInside = "Still inside"
	LabelInvalid     = "Invalid"
	LabelError       = "Error"
)

// DurationLabel renders the span of a closed interval. An absent end
// means the interval is still ongoing and reads "Active"; an end before
// the start reads "Invalid"; an unparseable endpoint reads "Error".
func DurationLabel(start, end Instant) string {
	if !start.Present {
		return LabelNA
	}
	if !start.Valid {
		return LabelError
	}
	if !end.Present {
		return LabelActive
	}
	if !end.Valid {
		return LabelError
	}
	d := end.Time.Sub(start.Time)
	if d < 0 {
		return LabelInvalid
	}
	return FormatDuration(d)
}

// DurationSince renders how long an open record has been running as of
// now. Same sentinels as DurationLabel.
func DurationSince(start Instant, now time.Time) string {
	return DurationLabel(start, At(now))
}

// FormatDuration prints "{h}h {m}m", dropping the hour part when zero.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
