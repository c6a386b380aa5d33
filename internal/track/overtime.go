package track

import (
	"sort"
	"time"
)

// Policy holds the overtime thresholds. Values come from configuration;
// the constants below are only the deployment defaults.
type Policy struct {
	// StartHour opens the after-hours window (inclusive).
	StartHour int
	// EndHourExclusive closes it on the far side of midnight: the window
	// is [StartHour, 24) followed by [0, EndHourExclusive).
	EndHourExclusive int
	// DurationThreshold is how long someone may stay before being
	// flagged regardless of clock hour.
	DurationThreshold time.Duration
}

// DefaultPolicy is 6 PM to 5 AM with a 12 hour stay limit.
func DefaultPolicy() Policy {
	return Policy{StartHour: 18, EndHourExclusive: 5, DurationThreshold: 12 * time.Hour}
}

// AfterHours reports whether t's local clock hour falls in the window.
func (p Policy) AfterHours(t time.Time) bool {
	h := t.Hour()
	return h >= p.StartHour || h < p.EndHourExclusive
}

// FlagReason classifies why a record was flagged.
type FlagReason string

const (
	FlagAfterHours       FlagReason = "AFTER_HOURS"
	FlagLongDuration     FlagReason = "LONG_DURATION"
	FlagAfterHoursAndDur FlagReason = "AFTER_HOURS_AND_LONG_DURATION"
)

func (p Policy) reason(afterHours, overDuration bool) (FlagReason, bool) {
	switch {
	case afterHours && overDuration:
		return FlagAfterHoursAndDur, true
	case overDuration:
		return FlagLongDuration, true
	case afterHours:
		return FlagAfterHours, true
	default:
		return "", false
	}
}

// FlaggedPresence is an open presence record annotated with its reason.
type FlaggedPresence struct {
	PresenceRecord
	Reason FlagReason
}

// FlaggedSession is a closed session annotated with its reason.
type FlaggedSession struct {
	Session
	Reason FlagReason
}

// FlagPresence returns the subset of records still inside that violate
// the policy as of now. The evaluation instant is now itself; the stay
// starts at the record's last action time. A record whose last action
// cannot be parsed counts a zero-length stay, so only the clock hour can
// flag it. Results order oldest entry first — the longest-waiting person
// leads the list. Inputs are not mutated.
func (p Policy) FlagPresence(now time.Time, records []PresenceRecord) []FlaggedPresence {
	var out []FlaggedPresence
	for _, rec := range records {
		if rec.Status != ActionIn {
			continue
		}
		start := now
		if rec.LastAction.OK() {
			start = rec.LastAction.Time
		}
		reason, ok := p.reason(p.AfterHours(now), now.Sub(start) > p.DurationThreshold)
		if !ok {
			continue
		}
		out = append(out, FlaggedPresence{PresenceRecord: rec, Reason: reason})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastAction.OrderTime().Before(out[j].LastAction.OrderTime())
	})
	return out
}

// FlagSessions evaluates closed sessions whose checkout fell on now's
// calendar day. Each is judged at its own time_out: the clock hour of
// the checkout and the time_in→time_out span. Open sessions belong to
// FlagPresence and are skipped. Results order most recent exit first.
func (p Policy) FlagSessions(now time.Time, sessions []Session) []FlaggedSession {
	today := At(now).Day()
	var out []FlaggedSession
	for _, s := range sessions {
		if s.Open() || !s.TimeOut.OK() || s.TimeOut.Day() != today {
			continue
		}
		over := false
		if s.TimeIn.OK() {
			over = s.TimeOut.Time.Sub(s.TimeIn.Time) > p.DurationThreshold
		}
		reason, ok := p.reason(p.AfterHours(s.TimeOut.Time), over)
		if !ok {
			continue
		}
		out = append(out, FlaggedSession{Session: s, Reason: reason})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].TimeOut.OrderTime().Before(out[i].TimeOut.OrderTime())
	})
	return out
}
