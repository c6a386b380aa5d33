package track

import (
	"testing"
	"time"
)

func inside(id string, at time.Time) PresenceRecord {
	return PresenceRecord{UserID: id, Name: "User " + id, Status: ActionIn, LastAction: At(at)}
}

func TestFlagPresence_AfterHoursOnly(t *testing.T) {
	now := time.Date(2025, 3, 10, 19, 30, 0, 0, time.Local)
	entered := time.Date(2025, 3, 10, 19, 0, 0, 0, time.Local)
	flagged := DefaultPolicy().FlagPresence(now, []PresenceRecord{inside("S-001", entered)})
	if len(flagged) != 1 {
		t.Fatalf("got %d flags, want 1", len(flagged))
	}
	if flagged[0].Reason != FlagAfterHours {
		t.Fatalf("reason = %s, want %s", flagged[0].Reason, FlagAfterHours)
	}
}

func TestFlagPresence_BothConditionsFlagCombined(t *testing.T) {
	now := time.Date(2025, 3, 10, 21, 0, 0, 0, time.Local)
	entered := time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local) // 13h > 12h, and 21 >= 18
	flagged := DefaultPolicy().FlagPresence(now, []PresenceRecord{inside("S-001", entered)})
	if len(flagged) != 1 || flagged[0].Reason != FlagAfterHoursAndDur {
		t.Fatalf("want combined reason, got %+v", flagged)
	}
}

func TestFlagPresence_LongDurationOnly(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.Local)
	entered := time.Date(2025, 3, 10, 1, 0, 0, 0, time.Local) // 13h, daytime
	flagged := DefaultPolicy().FlagPresence(now, []PresenceRecord{inside("S-001", entered)})
	if len(flagged) != 1 || flagged[0].Reason != FlagLongDuration {
		t.Fatalf("want duration-only reason, got %+v", flagged)
	}
}

func TestFlagPresence_NeitherExcluded(t *testing.T) {
	now := time.Date(2025, 3, 10, 11, 0, 0, 0, time.Local)
	entered := time.Date(2025, 3, 10, 10, 0, 0, 0, time.Local)
	flagged := DefaultPolicy().FlagPresence(now, []PresenceRecord{inside("S-001", entered)})
	if len(flagged) != 0 {
		t.Fatalf("daytime 1h stay must not be flagged: %+v", flagged)
	}
}

func TestFlagPresence_EarlyMorningWindowWraps(t *testing.T) {
	now := time.Date(2025, 3, 10, 3, 0, 0, 0, time.Local)
	entered := time.Date(2025, 3, 10, 2, 30, 0, 0, time.Local)
	flagged := DefaultPolicy().FlagPresence(now, []PresenceRecord{inside("S-001", entered)})
	if len(flagged) != 1 || flagged[0].Reason != FlagAfterHours {
		t.Fatalf("3 AM falls in the wrapped window: %+v", flagged)
	}
	now = time.Date(2025, 3, 10, 5, 0, 0, 0, time.Local)
	flagged = DefaultPolicy().FlagPresence(now, []PresenceRecord{inside("S-001", entered.Add(2*time.Hour))})
	if len(flagged) != 0 {
		t.Fatalf("5 AM is outside the window (exclusive bound): %+v", flagged)
	}
}

func TestFlagPresence_IgnoresRecordsOutside(t *testing.T) {
	now := time.Date(2025, 3, 10, 21, 0, 0, 0, time.Local)
	out := PresenceRecord{UserID: "S-002", Name: "Ben", Status: ActionOut, LastAction: At(now.Add(-14 * time.Hour))}
	flagged := DefaultPolicy().FlagPresence(now, []PresenceRecord{out})
	if len(flagged) != 0 {
		t.Fatalf("OUT records must not be evaluated: %+v", flagged)
	}
}

func TestFlagPresence_UnparseableEntryFlagsOnHourOnly(t *testing.T) {
	now := time.Date(2025, 3, 10, 21, 0, 0, 0, time.Local)
	rec := PresenceRecord{UserID: "S-003", Status: ActionIn, LastAction: ParseInstant("garbage")}
	flagged := DefaultPolicy().FlagPresence(now, []PresenceRecord{rec})
	if len(flagged) != 1 || flagged[0].Reason != FlagAfterHours {
		t.Fatalf("dirty entry time should count a zero stay: %+v", flagged)
	}
}

func TestFlagPresence_OldestEntryFirst(t *testing.T) {
	now := time.Date(2025, 3, 10, 22, 0, 0, 0, time.Local)
	flagged := DefaultPolicy().FlagPresence(now, []PresenceRecord{
		inside("late", now.Add(-1*time.Hour)),
		inside("early", now.Add(-5*time.Hour)),
	})
	if len(flagged) != 2 || flagged[0].UserID != "early" {
		t.Fatalf("longest-waiting should lead: %+v", flagged)
	}
}

func TestFlagSessions_TodayOnlyEvaluatedAtCheckout(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 0, 0, 0, time.Local)
	today := Session{
		UserID: "S-001",
		TimeIn: At(time.Date(2025, 3, 10, 10, 0, 0, 0, time.Local)),
		// Checked out at 19:00 after 9h: after-hours only.
		TimeOut: At(time.Date(2025, 3, 10, 19, 0, 0, 0, time.Local)),
	}
	yesterday := Session{
		UserID:  "S-002",
		TimeIn:  At(time.Date(2025, 3, 9, 8, 0, 0, 0, time.Local)),
		TimeOut: At(time.Date(2025, 3, 9, 23, 0, 0, 0, time.Local)),
	}
	open := Session{UserID: "S-003", TimeIn: At(time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local))}

	flagged := DefaultPolicy().FlagSessions(now, []Session{yesterday, today, open})
	if len(flagged) != 1 {
		t.Fatalf("got %d flags, want 1 (today's closed session only)", len(flagged))
	}
	if flagged[0].UserID != "S-001" || flagged[0].Reason != FlagAfterHours {
		t.Fatalf("got %+v", flagged[0])
	}
}

func TestFlagSessions_MostRecentExitFirst(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 0, 0, 0, time.Local)
	mk := func(id string, outHour int) Session {
		return Session{
			UserID:  id,
			TimeIn:  At(time.Date(2025, 3, 10, 5, 30, 0, 0, time.Local)),
			TimeOut: At(time.Date(2025, 3, 10, outHour, 0, 0, 0, time.Local)),
		}
	}
	flagged := DefaultPolicy().FlagSessions(now, []Session{mk("earlier", 19), mk("later", 22)})
	if len(flagged) != 2 || flagged[0].UserID != "later" {
		t.Fatalf("most recent exit should lead: %+v", flagged)
	}
}

func TestPolicy_CustomThresholds(t *testing.T) {
	p := Policy{StartHour: 20, EndHourExclusive: 6, DurationThreshold: 8 * time.Hour}
	now := time.Date(2025, 3, 10, 19, 0, 0, 0, time.Local)
	if p.AfterHours(now) {
		t.Fatalf("19:00 before a 20:00 start must not be after hours")
	}
	flagged := p.FlagPresence(now, []PresenceRecord{inside("S-001", now.Add(-9*time.Hour))})
	if len(flagged) != 1 || flagged[0].Reason != FlagLongDuration {
		t.Fatalf("9h over an 8h threshold: %+v", flagged)
	}
}
