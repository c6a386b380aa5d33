package roster

import (
	"sort"
	"strings"

	"motorpass/internal/track"
)

// DirectoryEntry is one row of the user directory: a roster identity
// joined with its tracking activity and current presence.
type DirectoryEntry struct {
	ID              string
	Name            string
	Type            track.UserType
	Details         string // course, staff role, or office visited
	PlateNumber     string
	TotalActivities int
	LastActivity    track.Instant
	CurrentlyInside bool
}

// DirectoryFilter narrows and orders the directory.
type DirectoryFilter struct {
	UserType track.UserType // empty = all
	Search   string         // over id, name and details
	SortBy   string         // name (default), id, type, details, total_activities, last_activity, currently_inside
	Desc     bool
}

// BuildDirectory joins the three rosters against the tracking log and
// the deduped presence set. Guests join under their synthetic
// GUEST_<plate> id. Events are counted per identity; the latest event
// timestamp becomes LastActivity, absent when the user never swiped.
func BuildDirectory(students []Student, staff []Staff, guests []Guest,
	events []track.Event, presence []track.PresenceRecord, f DirectoryFilter) []DirectoryEntry {

	counts := make(map[string]int, len(events))
	latest := make(map[string]track.Instant, len(events))
	for _, e := range events {
		counts[e.UserID]++
		if cur, ok := latest[e.UserID]; !ok || e.Timestamp.OrderTime().After(cur.OrderTime()) {
			latest[e.UserID] = e.Timestamp
		}
	}
	insideNow := make(map[string]bool, len(presence))
	for _, p := range presence {
		if p.Status == track.ActionIn {
			insideNow[p.UserID] = true
		}
	}

	entry := func(id, name string, t track.UserType, details, plate string) DirectoryEntry {
		return DirectoryEntry{
			ID:              id,
			Name:            name,
			Type:            t,
			Details:         details,
			PlateNumber:     plate,
			TotalActivities: counts[id],
			LastActivity:    latest[id],
			CurrentlyInside: insideNow[id],
		}
	}

	var all []DirectoryEntry
	if f.UserType == "" || f.UserType == track.UserTypeStudent {
		for _, s := range students {
			all = append(all, entry(s.StudentID, s.FullName, track.UserTypeStudent, s.Course, s.PlateNumber))
		}
	}
	if f.UserType == "" || f.UserType == track.UserTypeStaff {
		for _, s := range staff {
			all = append(all, entry(s.StaffNo, s.FullName, track.UserTypeStaff, s.Role, s.PlateNumber))
		}
	}
	if f.UserType == "" || f.UserType == track.UserTypeGuest {
		for _, g := range guests {
			all = append(all, entry(g.TrackingID(), g.FullName, track.UserTypeGuest, g.OfficeVisited, g.PlateNumber))
		}
	}

	if f.Search != "" {
		q := strings.ToLower(f.Search)
		filtered := all[:0]
		for _, e := range all {
			if strings.Contains(strings.ToLower(e.ID), q) ||
				strings.Contains(strings.ToLower(e.Name), q) ||
				strings.Contains(strings.ToLower(e.Details), q) {
				filtered = append(filtered, e)
			}
		}
		all = filtered
	}

	sortDirectory(all, f.SortBy, f.Desc)
	return all
}

func sortDirectory(entries []DirectoryEntry, field string, desc bool) {
	less := directoryLess(field)
	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
}

func directoryLess(field string) func(a, b DirectoryEntry) bool {
	switch field {
	case "id":
		return func(a, b DirectoryEntry) bool { return lower(a.ID) < lower(b.ID) }
	case "type":
		return func(a, b DirectoryEntry) bool { return lower(string(a.Type)) < lower(string(b.Type)) }
	case "details":
		return func(a, b DirectoryEntry) bool { return lower(a.Details) < lower(b.Details) }
	case "total_activities":
		return func(a, b DirectoryEntry) bool { return a.TotalActivities < b.TotalActivities }
	case "last_activity":
		// Users who never swiped compare as epoch 0.
		return func(a, b DirectoryEntry) bool {
			return a.LastActivity.OrderTime().Before(b.LastActivity.OrderTime())
		}
	case "currently_inside":
		return func(a, b DirectoryEntry) bool { return !a.CurrentlyInside && b.CurrentlyInside }
	default:
		return func(a, b DirectoryEntry) bool { return lower(a.Name) < lower(b.Name) }
	}
}

func lower(s string) string { return strings.ToLower(s) }
