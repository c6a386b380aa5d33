package track

import (
	"sort"
	"strings"
)

// Filter narrows the raw event stream before reconstruction or listing.
// Zero-valued fields match everything. Date bounds are inclusive and
// compared as local calendar-date strings.
type Filter struct {
	From     string // "2006-01-02"
	To       string
	UserType UserType
	Action   Action // used by event listings only; pairing needs both
	Search   string // case-insensitive substring over name or id
}

// Match reports whether an event passes the filter.
func (f Filter) Match(e Event) bool {
	if f.From != "" || f.To != "" {
		day := e.Timestamp.Day()
		if f.From != "" && day < f.From {
			return false
		}
		if f.To != "" && day > f.To {
			return false
		}
	}
	if f.UserType != "" && e.UserType != f.UserType {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.UserName), q) &&
			!strings.Contains(strings.ToLower(e.UserID), q) {
			return false
		}
	}
	return true
}

// FilterEvents returns the events passing f, preserving input order.
func FilterEvents(events []Event, f Filter) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Reconstruct pairs a raw event stream into sessions. The stream is
// filtered, stably sorted by timestamp, bucketed per (user, calendar day
// of the event), then each bucket is scanned holding one pending IN:
//
//   - IN while an IN is already pending emits an open session for the
//     superseded IN (a missed checkout) before taking its place.
//   - OUT with a pending IN closes it into a session.
//   - OUT with nothing pending is an orphan exit and is discarded.
//   - A pending IN left at the end of the bucket emits an open session.
//
// Dropping orphan OUTs and auto-opening on doubled INs is deliberate
// recovery policy inherited from the deployed behavior; do not "fix" it
// without a requirements change. Events with unparseable timestamps
// still flow through (ordering as epoch 0) and surface as Error duration
// labels rather than aborting the batch. Because sorting precedes
// pairing, the result is the same multiset for any permutation of the
// input.
func Reconstruct(events []Event, f Filter) []Session {
	filtered := FilterEvents(events, f)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.OrderTime().Before(filtered[j].Timestamp.OrderTime())
	})

	type bucket struct {
		sessions []Session
		pending  *Event
	}
	buckets := make(map[string]*bucket)
	var order []string
	for i := range filtered {
		e := filtered[i]
		key := e.UserID + "-" + e.Timestamp.Day()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		switch e.Action {
		case ActionIn:
			if b.pending != nil {
				b.sessions = append(b.sessions, openSession(*b.pending))
			}
			b.pending = &filtered[i]
		case ActionOut:
			if b.pending != nil {
				s := openSession(*b.pending)
				s.TimeOut = e.Timestamp
				b.sessions = append(b.sessions, s)
				b.pending = nil
			}
		}
	}

	var out []Session
	for _, key := range order {
		b := buckets[key]
		if b.pending != nil {
			b.sessions = append(b.sessions, openSession(*b.pending))
		}
		out = append(out, b.sessions...)
	}
	return out
}

func openSession(e Event) Session {
	return Session{
		UserID:   e.UserID,
		Name:     e.UserName,
		UserType: e.UserType,
		TimeIn:   e.Timestamp,
	}
}

// Session sort fields accepted by SortSessions.
const (
	SortTimeIn   = "time_in"
	SortTimeOut  = "time_out"
	SortUserID   = "user_id"
	SortName     = "name"
	SortUserType = "user_type"
	SortStatus   = "status"
)

// SortSessions orders sessions in place by the named field. Timestamp
// fields compare as instants, with an absent time_out ranking as still
// open, i.e. after every closed session. Other fields compare as
// case-insensitive text. Unknown fields fall back to time_in. The sort
// is stable so equal records keep reconstruction order.
func SortSessions(sessions []Session, field string, desc bool) {
	less := sessionLess(field)
	sort.SliceStable(sessions, func(i, j int) bool {
		if desc {
			return less(sessions[j], sessions[i])
		}
		return less(sessions[i], sessions[j])
	})
}

func sessionLess(field string) func(a, b Session) bool {
	switch field {
	case SortTimeOut:
		return func(a, b Session) bool {
			// Open sessions rank after all closed ones.
			if a.Open() != b.Open() {
				return !a.Open()
			}
			return a.TimeOut.OrderTime().Before(b.TimeOut.OrderTime())
		}
	case SortUserID:
		return textLess(func(s Session) string { return s.UserID })
	case SortName:
		return textLess(func(s Session) string { return s.Name })
	case SortUserType:
		return textLess(func(s Session) string { return string(s.UserType) })
	case SortStatus:
		return textLess(func(s Session) string { return string(s.Status()) })
	default:
		return func(a, b Session) bool {
			return a.TimeIn.OrderTime().Before(b.TimeIn.OrderTime())
		}
	}
}

func textLess(get func(Session) string) func(a, b Session) bool {
	return func(a, b Session) bool {
		return strings.ToLower(get(a)) < strings.ToLower(get(b))
	}
}
