// Package roster models the people collections behind the dashboard:
// students, staff, guests and VIP access records. Like the derivation
// core it only decodes and projects store documents; it never writes.
package roster

import (
	"sort"
	"strings"

	"motorpass/internal/track"
)

// Student is one students-collection document.
type Student struct {
	StudentID         string
	FullName          string
	Course            string
	LicenseNumber     string
	LicenseExpiration string
	PlateNumber       string
	FingerprintSlot   string
	EnrolledDate      track.Instant
}

// Staff is one staff-collection document.
type Staff struct {
	StaffNo     string
	FullName    string
	Role        string
	PlateNumber string
}

// Guest is one guests-collection document. Guests have no issued id;
// their tracking identity is derived from the plate number.
type Guest struct {
	GuestID       string
	FullName      string
	PlateNumber   string
	OfficeVisited string
	CreatedDate   track.Instant
}

// VIPRecord is one vip_records access log entry.
type VIPRecord struct {
	ID          string
	PlateNumber string
	Purpose     string
	TimeIn      track.Instant
	TimeOut     track.Instant
	Status      track.Action
}

// GuestUserID returns the synthetic tracking id for a guest plate.
func GuestUserID(plate string) string {
	return "GUEST_" + plate
}

// TrackingID returns the id a guest's swipe events are recorded under.
func (g Guest) TrackingID() string {
	return GuestUserID(g.PlateNumber)
}

func StudentFromDoc(doc map[string]any) Student {
	return Student{
		StudentID:         str(doc, "student_id"),
		FullName:          str(doc, "full_name"),
		Course:            str(doc, "course"),
		LicenseNumber:     str(doc, "license_number"),
		LicenseExpiration: str(doc, "license_expiration"),
		PlateNumber:       str(doc, "plate_number"),
		FingerprintSlot:   str(doc, "fingerprint_slot"),
		EnrolledDate:      track.ParseInstant(doc["enrolled_date"]),
	}
}

func StaffFromDoc(doc map[string]any) Staff {
	return Staff{
		StaffNo:     str(doc, "staff_no"),
		FullName:    str(doc, "full_name"),
		Role:        str(doc, "staff_role"),
		PlateNumber: str(doc, "plate_number"),
	}
}

func GuestFromDoc(doc map[string]any) Guest {
	return Guest{
		GuestID:       str(doc, "guest_id", "id"),
		FullName:      str(doc, "full_name"),
		PlateNumber:   str(doc, "plate_number"),
		OfficeVisited: str(doc, "office_visiting"),
		CreatedDate:   track.ParseInstant(doc["created_date"]),
	}
}

func VIPFromDoc(doc map[string]any) VIPRecord {
	return VIPRecord{
		ID:          str(doc, "id", "vip_id"),
		PlateNumber: str(doc, "plate_number"),
		Purpose:     str(doc, "purpose"),
		TimeIn:      track.ParseInstant(doc["time_in"]),
		TimeOut:     track.ParseInstant(doc["time_out"]),
		Status:      track.Action(strings.ToUpper(str(doc, "status"))),
	}
}

// NormalizeName is the guest dedup key: uppercase with whitespace and
// punctuation stripped, so "De la Cruz, Ana" and "DELACRUZ ANA" merge.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DedupGuests collapses repeat registrations of the same person to the
// most recent one, merging on the normalized name.
func DedupGuests(guests []Guest) []Guest {
	return track.Dedup(guests,
		func(g Guest) string { return NormalizeName(g.FullName) },
		func(g Guest) track.Instant { return g.CreatedDate },
	)
}

// SortVIPByTimeIn orders records most recent entry first, the default
// VIP-log presentation.
func SortVIPByTimeIn(records []VIPRecord) []VIPRecord {
	out := append([]VIPRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimeIn.OrderTime().After(out[j].TimeIn.OrderTime())
	})
	return out
}

func str(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
