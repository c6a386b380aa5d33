// Package track derives presence, sessions and overtime flags from raw
// attendance events. Every function is a pure transformation over a
// snapshot of store documents; nothing here performs I/O or keeps state
// between calls.
package track

import (
	"strings"
	"time"
)

// UserType classifies who an event belongs to. Values outside the known
// set pass through untouched; derivation logic is type-agnostic.
type UserType string

const (
	UserTypeStudent UserType = "STUDENT"
	UserTypeStaff   UserType = "STAFF"
	UserTypeGuest   UserType = "GUEST"
)

// Display returns the outward-facing label. Guests are shown as visitors;
// an empty type shows as Unknown. Internal logic always uses the raw value.
func (t UserType) Display() string {
	switch t {
	case UserTypeGuest:
		return "VISITOR"
	case "":
		return "Unknown"
	default:
		return string(t)
	}
}

// Action is the direction of a swipe.
type Action string

const (
	ActionIn  Action = "IN"
	ActionOut Action = "OUT"
)

// Instant is a timestamp normalized from whatever representation the
// store delivered: an ISO string, an epoch number, or a deferred
// {seconds,nanos} handle. The zero value means the field was absent.
type Instant struct {
	Time    time.Time
	Present bool
	// Valid is false when a value was present but could not be parsed.
	// Such instants degrade to sentinel labels downstream instead of
	// aborting derivation.
	Valid bool
}

// At wraps a concrete time as a valid Instant.
func At(t time.Time) Instant {
	return Instant{Time: t, Present: true, Valid: true}
}

// OK reports whether the instant carries a usable time.
func (i Instant) OK() bool { return i.Present && i.Valid }

// OrderTime returns the time used for comparisons. Absent or unparseable
// instants order as epoch 0 so sorting stays deterministic.
func (i Instant) OrderTime() time.Time {
	if !i.OK() {
		return time.Unix(0, 0)
	}
	return i.Time
}

// Day returns the local calendar date in ISO form, the grouping key used
// for per-day session buckets and date-range filters.
func (i Instant) Day() string {
	return i.OrderTime().Format("2006-01-02")
}

// epoch values at or above this are taken as milliseconds.
const epochMillisCutoff = 1e12

// ParseInstant normalizes any of the store's timestamp shapes. nil maps
// to an absent instant; an unrecognisable value to an invalid one.
func ParseInstant(v any) Instant {
	switch val := v.(type) {
	case nil:
		return Instant{}
	case time.Time:
		return At(val)
	case string:
		return parseInstantString(val)
	case float64:
		return fromEpoch(val)
	case int64:
		return fromEpoch(float64(val))
	case int:
		return fromEpoch(float64(val))
	case map[string]any:
		// Deferred store timestamp: materialize from seconds/nanos.
		if sec, ok := numField(val, "seconds", "_seconds"); ok {
			nanos, _ := numField(val, "nanos", "nanoseconds", "_nanoseconds")
			return At(time.Unix(int64(sec), int64(nanos)))
		}
		return Instant{Present: true}
	default:
		return Instant{Present: true}
	}
}

func parseInstantString(s string) Instant {
	s = strings.TrimSpace(s)
	if s == "" {
		return Instant{}
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return At(t)
		}
	}
	return Instant{Present: true}
}

func fromEpoch(v float64) Instant {
	if v >= epochMillisCutoff {
		return At(time.UnixMilli(int64(v)))
	}
	return At(time.Unix(int64(v), 0))
}

func numField(doc map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch n := doc[k].(type) {
		case float64:
			return n, true
		case int64:
			return float64(n), true
		case int:
			return float64(n), true
		}
	}
	return 0, false
}

// Event is a single swipe record. Immutable once decoded; the core never
// writes events back to the store.
type Event struct {
	UserID    string
	UserName  string
	UserType  UserType
	Action    Action
	Timestamp Instant
}

// PresenceRecord is the latest known IN/OUT state for one identity.
type PresenceRecord struct {
	UserID     string
	Name       string
	UserType   UserType
	Status     Action
	LastAction Instant
}

// Session is a reconstructed interval for one identity on one calendar
// day. TimeOut absent means the session is still open.
type Session struct {
	UserID   string
	Name     string
	UserType UserType
	TimeIn   Instant
	TimeOut  Instant
}

// Open reports whether no OUT has been observed for the session.
func (s Session) Open() bool { return !s.TimeOut.Present }

// Status mirrors the presence convention: IN while open, OUT once closed.
func (s Session) Status() Action {
	if s.Open() {
		return ActionIn
	}
	return ActionOut
}

// EventFromDoc decodes a raw time_tracking document. Missing fields stay
// zero-valued; the record is still usable by derivation.
func EventFromDoc(doc map[string]any) Event {
	return Event{
		UserID:    docString(doc, "user_id"),
		UserName:  docString(doc, "user_name", "full_name"),
		UserType:  UserType(strings.ToUpper(docString(doc, "user_type"))),
		Action:    Action(strings.ToUpper(docString(doc, "action"))),
		Timestamp: ParseInstant(doc["timestamp"]),
	}
}

// PresenceFromDoc decodes a current_status document. The timestamp
// fallback order is last_update, then last_action_time, then timestamp.
func PresenceFromDoc(doc map[string]any) PresenceRecord {
	return PresenceRecord{
		UserID:     docString(doc, "user_id"),
		Name:       docString(doc, "full_name", "user_name"),
		UserType:   UserType(strings.ToUpper(docString(doc, "user_type"))),
		Status:     Action(strings.ToUpper(docString(doc, "status"))),
		LastAction: ParseInstant(firstField(doc, "last_update", "last_action_time", "timestamp")),
	}
}

func docString(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstField(doc map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := doc[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
