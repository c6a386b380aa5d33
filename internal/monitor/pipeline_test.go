package monitor

import (
	"context"
	"testing"
	"time"

	"motorpass/internal/queue"
	"motorpass/internal/source"
	"motorpass/internal/track"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 10, 21, 0, 0, 0, time.Local)
}

func statusDoc(id, name, status, at string) map[string]any {
	return map[string]any{
		"user_id":     id,
		"full_name":   name,
		"user_type":   "STUDENT",
		"status":      status,
		"last_update": at,
	}
}

func eventDoc(id, action, at string) map[string]any {
	return map[string]any{
		"user_id":   id,
		"user_name": "User " + id,
		"user_type": "STUDENT",
		"action":    action,
		"timestamp": at,
	}
}

func testPipeline(alerts queue.Queue) *Pipeline {
	p := New(&source.Static{}, track.DefaultPolicy(), alerts, nil)
	p.now = fixedNow
	p.state.Store(p.derive())
	return p
}

func TestPipeline_SnapshotReplacesCollection(t *testing.T) {
	p := testPipeline(nil)
	ctx := context.Background()

	p.apply(ctx, source.Snapshot{Collection: source.CollectionCurrentStatus, Docs: []map[string]any{
		statusDoc("S-001", "Ada Cruz", "IN", "2025-03-10T09:00:00"),
		statusDoc("S-002", "Ben Ito", "IN", "2025-03-10T10:00:00"),
	}})
	if got := p.State().Stats.PeopleInside; got != 2 {
		t.Fatalf("people inside = %d, want 2", got)
	}

	// A later snapshot fully replaces the collection, no merging.
	p.apply(ctx, source.Snapshot{Collection: source.CollectionCurrentStatus, Docs: []map[string]any{
		statusDoc("S-001", "Ada Cruz", "OUT", "2025-03-10T20:00:00"),
	}})
	st := p.State()
	if st.Stats.PeopleInside != 0 || st.Stats.PeopleOutside != 1 {
		t.Fatalf("replace semantics: %+v", st.Stats)
	}
}

func TestPipeline_DerivesSessionsAndTodayStats(t *testing.T) {
	p := testPipeline(nil)
	p.apply(context.Background(), source.Snapshot{Collection: source.CollectionTimeTracking, Docs: []map[string]any{
		eventDoc("S-001", "IN", "2025-03-10T09:00:00"),
		eventDoc("S-001", "OUT", "2025-03-10T17:00:00"),
		eventDoc("S-002", "IN", "2025-03-09T09:00:00"), // yesterday
	}})
	st := p.State()
	if len(st.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(st.Sessions))
	}
	if st.Stats.TodayActivities != 2 || st.Stats.TodayIn != 1 || st.Stats.TodayOut != 1 {
		t.Fatalf("today stats: %+v", st.Stats)
	}
}

func TestPipeline_PresenceDedupAppliedBeforeFlagging(t *testing.T) {
	p := testPipeline(nil)
	// Same identity twice; latest row says OUT, so nothing is flagged
	// even though the stale IN row is after hours.
	p.apply(context.Background(), source.Snapshot{Collection: source.CollectionCurrentStatus, Docs: []map[string]any{
		statusDoc("S-001", "Ada Cruz", "IN", "2025-03-10T19:00:00"),
		statusDoc("S-001", "Ada Cruz", "OUT", "2025-03-10T20:30:00"),
	}})
	st := p.State()
	if len(st.Presence) != 1 {
		t.Fatalf("presence not deduped: %d rows", len(st.Presence))
	}
	if len(st.FlaggedPresence) != 0 {
		t.Fatalf("stale IN row leaked into flags: %+v", st.FlaggedPresence)
	}
}

func TestPipeline_PublishesNewFlagsOnce(t *testing.T) {
	q := queue.NewInMemory(16)
	p := testPipeline(q)
	ctx := context.Background()

	docs := []map[string]any{statusDoc("S-001", "Ada Cruz", "IN", "2025-03-10T19:00:00")}
	p.apply(ctx, source.Snapshot{Collection: source.CollectionCurrentStatus, Docs: docs})
	p.apply(ctx, source.Snapshot{Collection: source.CollectionCurrentStatus, Docs: docs})

	msgs, _ := q.Consume(ctx)
	select {
	case msg := <-msgs:
		alert, err := DecodeAlert(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if alert.UserID != "S-001" || alert.Reason != track.FlagAfterHours {
			t.Fatalf("alert: %+v", alert)
		}
	case <-time.After(time.Second):
		t.Fatalf("no alert published")
	}
	select {
	case msg := <-msgs:
		t.Fatalf("duplicate alert for unchanged flag: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPipeline_ReannouncesAfterClearing(t *testing.T) {
	q := queue.NewInMemory(16)
	p := testPipeline(q)
	ctx := context.Background()

	in := []map[string]any{statusDoc("S-001", "Ada Cruz", "IN", "2025-03-10T19:00:00")}
	out := []map[string]any{statusDoc("S-001", "Ada Cruz", "OUT", "2025-03-10T20:00:00")}
	p.apply(ctx, source.Snapshot{Collection: source.CollectionCurrentStatus, Docs: in})
	p.apply(ctx, source.Snapshot{Collection: source.CollectionCurrentStatus, Docs: out})
	p.apply(ctx, source.Snapshot{Collection: source.CollectionCurrentStatus, Docs: in})

	msgs, _ := q.Consume(ctx)
	count := 0
	for {
		select {
		case <-msgs:
			count++
		case <-time.After(50 * time.Millisecond):
			if count != 2 {
				t.Fatalf("got %d alerts, want 2 (initial + after clearing)", count)
			}
			return
		}
	}
}

func TestPipeline_RunConsumesStaticSource(t *testing.T) {
	src := &source.Static{Snapshots: []source.Snapshot{
		{Collection: source.CollectionCurrentStatus, Docs: []map[string]any{
			statusDoc("S-001", "Ada Cruz", "IN", "2025-03-10T09:00:00"),
		}},
	}}
	p := New(src, track.DefaultPolicy(), nil, nil)
	p.now = fixedNow

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.State().Stats.PeopleInside == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pipeline never applied the snapshot")
}

func TestPipeline_Fresh(t *testing.T) {
	p := testPipeline(nil)
	p.apply(context.Background(), source.Snapshot{Collection: source.CollectionStudents})
	if !p.Fresh(time.Minute) {
		t.Fatalf("state derived just now should be fresh")
	}
	p.now = func() time.Time { return fixedNow().Add(10 * time.Minute) }
	if p.Fresh(time.Minute) {
		t.Fatalf("10 minute old state must not be fresh within 1m")
	}
}
