package roster

import (
	"testing"
	"time"

	"motorpass/internal/track"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"De la Cruz, Ana", "DELACRUZANA"},
		{"DELACRUZ ANA", "DELACRUZANA"},
		{"  ben   ito ", "BENITO"},
		{"O'Neil-Smith", "ONEILSMITH"},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDedupGuests_MergesOnNormalizedName(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	guests := []Guest{
		{FullName: "De la Cruz, Ana", PlateNumber: "AAA-111", CreatedDate: track.At(day)},
		{FullName: "DELACRUZ ANA", PlateNumber: "BBB-222", CreatedDate: track.At(day.Add(time.Hour))},
		{FullName: "Ben Ito", PlateNumber: "CCC-333", CreatedDate: track.At(day)},
	}
	out := DedupGuests(guests)
	if len(out) != 2 {
		t.Fatalf("got %d guests, want 2", len(out))
	}
	if out[0].PlateNumber != "BBB-222" {
		t.Fatalf("latest registration should win: %+v", out[0])
	}
}

func TestDedupGuests_EmptyNameDropped(t *testing.T) {
	out := DedupGuests([]Guest{{PlateNumber: "AAA-111"}})
	if len(out) != 0 {
		t.Fatalf("guest with no mergeable name should be dropped, got %d", len(out))
	}
}

func TestGuestTrackingID(t *testing.T) {
	g := Guest{PlateNumber: "XYZ-789"}
	if got := g.TrackingID(); got != "GUEST_XYZ-789" {
		t.Fatalf("got %q", got)
	}
}

func TestVIPFromDoc_AndSort(t *testing.T) {
	docs := []map[string]any{
		{"id": "v1", "plate_number": "AAA-111", "purpose": "Delivery", "time_in": "2025-03-10T09:00:00Z", "time_out": "2025-03-10T10:00:00Z", "status": "out"},
		{"id": "v2", "plate_number": "BBB-222", "time_in": "2025-03-10T11:00:00Z", "status": "IN"},
	}
	records := make([]VIPRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, VIPFromDoc(d))
	}
	if records[0].Status != track.ActionOut {
		t.Fatalf("status not upper-cased: %+v", records[0])
	}
	sorted := SortVIPByTimeIn(records)
	if sorted[0].ID != "v2" {
		t.Fatalf("most recent entry should lead: %+v", sorted)
	}
}

func TestBuildDirectory_JoinAndCounts(t *testing.T) {
	events := []track.Event{
		{UserID: "S-001", Action: track.ActionIn, Timestamp: track.At(time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local))},
		{UserID: "S-001", Action: track.ActionOut, Timestamp: track.At(time.Date(2025, 3, 10, 17, 0, 0, 0, time.Local))},
		{UserID: "GUEST_XYZ-789", Action: track.ActionIn, Timestamp: track.At(time.Date(2025, 3, 10, 10, 0, 0, 0, time.Local))},
	}
	presence := []track.PresenceRecord{
		{UserID: "GUEST_XYZ-789", Status: track.ActionIn},
	}
	entries := BuildDirectory(
		[]Student{{StudentID: "S-001", FullName: "Ada Cruz", Course: "BSCS"}},
		[]Staff{{StaffNo: "T-100", FullName: "Ben Ito", Role: "Registrar"}},
		[]Guest{{FullName: "Cara Dee", PlateNumber: "XYZ-789", OfficeVisited: "Admissions"}},
		events, presence, DirectoryFilter{},
	)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	byID := map[string]DirectoryEntry{}
	for _, e := range entries {
		byID[e.ID] = e
	}
	ada := byID["S-001"]
	if ada.TotalActivities != 2 || ada.CurrentlyInside {
		t.Fatalf("ada: %+v", ada)
	}
	if ada.LastActivity.Time.Hour() != 17 {
		t.Fatalf("last activity should be the latest event: %v", ada.LastActivity.Time)
	}
	guest := byID["GUEST_XYZ-789"]
	if !guest.CurrentlyInside || guest.Type != track.UserTypeGuest {
		t.Fatalf("guest: %+v", guest)
	}
	ben := byID["T-100"]
	if ben.TotalActivities != 0 || ben.LastActivity.Present {
		t.Fatalf("ben never swiped: %+v", ben)
	}
}

func TestBuildDirectory_FilterSearchSort(t *testing.T) {
	students := []Student{
		{StudentID: "S-001", FullName: "Ada Cruz", Course: "BSCS"},
		{StudentID: "S-002", FullName: "Ben Ito", Course: "BSIT"},
	}
	staff := []Staff{{StaffNo: "T-100", FullName: "Cara Dee", Role: "Registrar"}}

	got := BuildDirectory(students, staff, nil, nil, nil, DirectoryFilter{UserType: track.UserTypeStaff})
	if len(got) != 1 || got[0].ID != "T-100" {
		t.Fatalf("type filter: %+v", got)
	}

	got = BuildDirectory(students, staff, nil, nil, nil, DirectoryFilter{Search: "bsit"})
	if len(got) != 1 || got[0].ID != "S-002" {
		t.Fatalf("details search: %+v", got)
	}

	got = BuildDirectory(students, staff, nil, nil, nil, DirectoryFilter{SortBy: "name", Desc: true})
	if got[0].Name != "Cara Dee" {
		t.Fatalf("desc name sort: %+v", got)
	}
}

func TestBuildDirectory_SortByLastActivity(t *testing.T) {
	events := []track.Event{
		{UserID: "S-002", Timestamp: track.At(time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local))},
	}
	students := []Student{
		{StudentID: "S-001", FullName: "Ada Cruz"},
		{StudentID: "S-002", FullName: "Ben Ito"},
	}
	got := BuildDirectory(students, nil, nil, events, nil, DirectoryFilter{SortBy: "last_activity"})
	// Never-swiped users order as epoch 0, so Ada comes first ascending.
	if got[0].ID != "S-001" || got[1].ID != "S-002" {
		t.Fatalf("last_activity sort: %+v", got)
	}
}
