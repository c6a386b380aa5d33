// Package monitor runs the snapshot pipeline: a single goroutine that
// consumes whole-collection snapshots and re-derives every dashboard
// view from scratch per message. Readers observe an immutable State; a
// new derivation simply supersedes the old pointer, so there is no
// shared mutable state and nothing to lock on the read path.
package monitor

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"motorpass/internal/queue"
	"motorpass/internal/roster"
	"motorpass/internal/source"
	"motorpass/internal/track"
)

// Stats are the dashboard aggregate counts.
type Stats struct {
	PeopleInside    int `json:"people_inside"`
	PeopleOutside   int `json:"people_outside"`
	TotalStudents   int `json:"total_students"`
	TotalStaff      int `json:"total_staff"`
	TotalGuests     int `json:"total_guests"`
	TotalVIP        int `json:"total_vip"`
	TodayActivities int `json:"today_activities"`
	TodayIn         int `json:"today_in"`
	TodayOut        int `json:"today_out"`
	FlaggedUsers    int `json:"flagged_users"`
}

// State is one complete derivation. All slices are freshly allocated per
// derivation and must be treated as read-only by consumers.
type State struct {
	DerivedAt       time.Time
	Events          []track.Event
	Presence        []track.PresenceRecord
	Sessions        []track.Session
	FlaggedPresence []track.FlaggedPresence
	FlaggedSessions []track.FlaggedSession
	Students        []roster.Student
	Staff           []roster.Staff
	Guests          []roster.Guest
	VIP             []roster.VIPRecord
	Stats           Stats
}

// Pipeline owns the subscription loop and the latest derived state.
type Pipeline struct {
	src     source.Source
	policy  track.Policy
	alerts  queue.Queue // nil disables alert publication
	metrics *Metrics    // nil disables instrumentation
	now     func() time.Time

	state atomic.Pointer[State]
	// raw docs per collection; touched only by the Run goroutine.
	raw map[string][]map[string]any
	// (user id, reason) pairs already alerted, so a user is announced
	// once per reason until they stop being flagged.
	alerted map[string]track.FlagReason
}

// New builds a pipeline. alerts and metrics may be nil.
func New(src source.Source, policy track.Policy, alerts queue.Queue, metrics *Metrics) *Pipeline {
	p := &Pipeline{
		src:     src,
		policy:  policy,
		alerts:  alerts,
		metrics: metrics,
		now:     time.Now,
		raw:     make(map[string][]map[string]any),
		alerted: make(map[string]track.FlagReason),
	}
	p.state.Store(p.derive())
	return p
}

// State returns the latest derivation. Never nil.
func (p *Pipeline) State() *State {
	return p.state.Load()
}

// Fresh reports whether a derivation happened within maxAge.
func (p *Pipeline) Fresh(maxAge time.Duration) bool {
	return p.now().Sub(p.State().DerivedAt) <= maxAge
}

// Run consumes snapshots until ctx ends. Each message replaces its
// collection's documents and triggers a full re-derivation.
func (p *Pipeline) Run(ctx context.Context) error {
	snaps, err := p.src.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				return ctx.Err()
			}
			p.apply(ctx, snap)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pipeline) apply(ctx context.Context, snap source.Snapshot) {
	p.raw[snap.Collection] = snap.Docs
	started := p.now()
	st := p.derive()
	p.state.Store(st)

	if p.metrics != nil {
		p.metrics.SnapshotsTotal.WithLabelValues(snap.Collection).Inc()
		p.metrics.CollectionDocs.WithLabelValues(snap.Collection).Set(float64(len(snap.Docs)))
		p.metrics.DeriveSeconds.Observe(p.now().Sub(started).Seconds())
		p.metrics.PeopleInside.Set(float64(st.Stats.PeopleInside))
		p.metrics.FlaggedUsers.Set(float64(st.Stats.FlaggedUsers))
	}
	p.publishNewFlags(ctx, st)
}

// derive rebuilds the full state from the current raw documents.
func (p *Pipeline) derive() *State {
	now := p.now()
	st := &State{DerivedAt: now}

	for _, doc := range p.raw[source.CollectionTimeTracking] {
		st.Events = append(st.Events, track.EventFromDoc(doc))
	}
	rawPresence := make([]track.PresenceRecord, 0, len(p.raw[source.CollectionCurrentStatus]))
	for _, doc := range p.raw[source.CollectionCurrentStatus] {
		rawPresence = append(rawPresence, track.PresenceFromDoc(doc))
	}
	st.Presence = track.DedupPresence(rawPresence)
	st.Sessions = track.Reconstruct(st.Events, track.Filter{})
	st.FlaggedPresence = p.policy.FlagPresence(now, st.Presence)
	st.FlaggedSessions = p.policy.FlagSessions(now, st.Sessions)

	for _, doc := range p.raw[source.CollectionStudents] {
		st.Students = append(st.Students, roster.StudentFromDoc(doc))
	}
	for _, doc := range p.raw[source.CollectionStaff] {
		st.Staff = append(st.Staff, roster.StaffFromDoc(doc))
	}
	rawGuests := make([]roster.Guest, 0, len(p.raw[source.CollectionGuests]))
	for _, doc := range p.raw[source.CollectionGuests] {
		rawGuests = append(rawGuests, roster.GuestFromDoc(doc))
	}
	st.Guests = roster.DedupGuests(rawGuests)
	rawVIP := make([]roster.VIPRecord, 0, len(p.raw[source.CollectionVIPRecords]))
	for _, doc := range p.raw[source.CollectionVIPRecords] {
		rawVIP = append(rawVIP, roster.VIPFromDoc(doc))
	}
	st.VIP = roster.SortVIPByTimeIn(rawVIP)

	st.Stats = p.stats(st, now)
	return st
}

func (p *Pipeline) stats(st *State, now time.Time) Stats {
	s := Stats{
		TotalStudents: len(st.Students),
		TotalStaff:    len(st.Staff),
		TotalGuests:   len(st.Guests),
		TotalVIP:      len(st.VIP),
		FlaggedUsers:  len(st.FlaggedPresence),
	}
	for _, rec := range st.Presence {
		if rec.Status == track.ActionIn {
			s.PeopleInside++
		} else {
			s.PeopleOutside++
		}
	}
	today := track.At(now).Day()
	for _, e := range st.Events {
		if e.Timestamp.Day() != today {
			continue
		}
		s.TodayActivities++
		switch e.Action {
		case track.ActionIn:
			s.TodayIn++
		case track.ActionOut:
			s.TodayOut++
		}
	}
	return s
}

// publishNewFlags announces presence records that became flagged since
// the last derivation. A record stays announced until it drops off the
// flagged set; a reason escalation re-announces it.
func (p *Pipeline) publishNewFlags(ctx context.Context, st *State) {
	if p.alerts == nil {
		return
	}
	current := make(map[string]track.FlagReason, len(st.FlaggedPresence))
	for _, f := range st.FlaggedPresence {
		current[f.UserID] = f.Reason
		if p.alerted[f.UserID] == f.Reason {
			continue
		}
		msg, err := NewAlert(f, st.DerivedAt).Encode()
		if err != nil {
			log.Printf("alert encode failed for %s: %v", f.UserID, err)
			continue
		}
		if err := p.alerts.Publish(ctx, msg); err != nil {
			log.Printf("alert publish failed for %s: %v", f.UserID, err)
			continue
		}
		p.alerted[f.UserID] = f.Reason
	}
	for user := range p.alerted {
		if _, still := current[user]; !still {
			delete(p.alerted, user)
		}
	}
}
