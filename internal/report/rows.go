// Package report projects derived dashboard state into row-shaped data
// for the API and the CSV/XLSX downloads. Display conventions live here:
// guests become visitors, dirty timestamps become sentinel labels, and
// flag reasons become the wording the front desk reads.
package report

import (
	"fmt"
	"time"

	"motorpass/internal/track"
)

// FormatInstant renders a timestamp for display. Absent reads "N/A",
// unparseable reads "Invalid Date".
func FormatInstant(i track.Instant) string {
	if !i.Present {
		return "N/A"
	}
	if !i.Valid {
		return "Invalid Date"
	}
	return i.Time.Format("01/02/2006, 03:04:05 PM")
}

// ReasonLabel renders a flag reason with the policy's actual thresholds.
func ReasonLabel(p track.Policy, r track.FlagReason) string {
	switch r {
	case track.FlagAfterHoursAndDur:
		return "After Hours & Long Duration"
	case track.FlagLongDuration:
		return fmt.Sprintf("Long Duration (> %dh)", int(p.DurationThreshold.Hours()))
	case track.FlagAfterHours:
		return fmt.Sprintf("Inside After %s", hourLabel(p.StartHour))
	default:
		return string(r)
	}
}

func hourLabel(hour int) string {
	switch {
	case hour == 0:
		return "12 AM"
	case hour < 12:
		return fmt.Sprintf("%d AM", hour)
	case hour == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", hour-12)
	}
}

// PresenceRow is one current-status line.
type PresenceRow struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	UserType   string `json:"user_type"`
	Status     string `json:"status"`
	LastUpdate string `json:"last_update"`
}

// PresenceRows projects deduped presence records.
func PresenceRows(records []track.PresenceRecord) []PresenceRow {
	rows := make([]PresenceRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, PresenceRow{
			UserID:     r.UserID,
			Name:       r.Name,
			UserType:   r.UserType.Display(),
			Status:     string(r.Status),
			LastUpdate: FormatInstant(r.LastAction),
		})
	}
	return rows
}

// SessionRow is one reconstructed session line.
type SessionRow struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	UserType string `json:"user_type"`
	TimeIn   string `json:"time_in"`
	TimeOut  string `json:"time_out"`
	Duration string `json:"duration"`
	Status   string `json:"status"`
}

// SessionRows projects sessions; open sessions read "Still inside" for
// their missing checkout.
func SessionRows(sessions []track.Session) []SessionRow {
	rows := make([]SessionRow, 0, len(sessions))
	for _, s := range sessions {
		out := track.LabelStillInside
		if s.TimeOut.Present {
			out = FormatInstant(s.TimeOut)
		}
		rows = append(rows, SessionRow{
			UserID:   s.UserID,
			Name:     s.Name,
			UserType: s.UserType.Display(),
			TimeIn:   FormatInstant(s.TimeIn),
			TimeOut:  out,
			Duration: track.DurationLabel(s.TimeIn, s.TimeOut),
			Status:   string(s.Status()),
		})
	}
	return rows
}

// OvertimeRow is one flagged line, open presence or closed session.
type OvertimeRow struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	UserType   string `json:"user_type"`
	Status     string `json:"status"`
	TimeIn     string `json:"time_in"`
	Duration   string `json:"duration"`
	FlagReason string `json:"flag_reason"`
}

// OvertimePresenceRows projects flagged open presence records, duration
// measured up to now.
func OvertimePresenceRows(p track.Policy, flagged []track.FlaggedPresence, now time.Time) []OvertimeRow {
	rows := make([]OvertimeRow, 0, len(flagged))
	for _, f := range flagged {
		rows = append(rows, OvertimeRow{
			UserID:     f.UserID,
			Name:       displayName(f.Name),
			UserType:   f.UserType.Display(),
			Status:     string(f.Status),
			TimeIn:     FormatInstant(f.LastAction),
			Duration:   track.DurationSince(f.LastAction, now),
			FlagReason: ReasonLabel(p, f.Reason),
		})
	}
	return rows
}

// OvertimeSessionRows projects flagged closed sessions.
func OvertimeSessionRows(p track.Policy, flagged []track.FlaggedSession) []OvertimeRow {
	rows := make([]OvertimeRow, 0, len(flagged))
	for _, f := range flagged {
		rows = append(rows, OvertimeRow{
			UserID:     f.UserID,
			Name:       displayName(f.Name),
			UserType:   f.UserType.Display(),
			Status:     string(f.Status()),
			TimeIn:     FormatInstant(f.TimeIn),
			Duration:   track.DurationLabel(f.TimeIn, f.TimeOut),
			FlagReason: ReasonLabel(p, f.Reason),
		})
	}
	return rows
}

func displayName(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}
