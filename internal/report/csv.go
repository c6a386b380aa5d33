package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"motorpass/internal/track"
)

// DailySummary are the per-day totals leading the daily report.
type DailySummary struct {
	Date            string `json:"date"`
	TotalActivities int    `json:"total_activities"`
	StudentsIn      int    `json:"students_in"`
	StudentsOut     int    `json:"students_out"`
	StaffIn         int    `json:"staff_in"`
	StaffOut        int    `json:"staff_out"`
	VisitorsIn      int    `json:"visitors_in"`
	VisitorsOut     int    `json:"visitors_out"`
	CurrentlyInside int    `json:"currently_inside"`
}

// BuildDailySummary tallies one calendar day's activity.
func BuildDailySummary(date string, events []track.Event, presence []track.PresenceRecord) DailySummary {
	s := DailySummary{Date: date}
	for _, e := range events {
		if e.Timestamp.Day() != date {
			continue
		}
		s.TotalActivities++
		in := e.Action == track.ActionIn
		switch e.UserType {
		case track.UserTypeStudent:
			if in {
				s.StudentsIn++
			} else {
				s.StudentsOut++
			}
		case track.UserTypeStaff:
			if in {
				s.StaffIn++
			} else {
				s.StaffOut++
			}
		case track.UserTypeGuest:
			if in {
				s.VisitorsIn++
			} else {
				s.VisitorsOut++
			}
		}
	}
	for _, p := range presence {
		if p.Status == track.ActionIn {
			s.CurrentlyInside++
		}
	}
	return s
}

// WriteDailyCSV writes the daily report: a summary block followed by the
// day's activities in time order.
func WriteDailyCSV(w io.Writer, date string, events []track.Event, presence []track.PresenceRecord) error {
	summary := BuildDailySummary(date, events, presence)
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"Daily Report - " + date},
		{},
		{"Summary Statistics"},
		{"Total Activities", strconv.Itoa(summary.TotalActivities)},
		{"Students In", strconv.Itoa(summary.StudentsIn)},
		{"Students Out", strconv.Itoa(summary.StudentsOut)},
		{"Staff In", strconv.Itoa(summary.StaffIn)},
		{"Staff Out", strconv.Itoa(summary.StaffOut)},
		{"Visitors In", strconv.Itoa(summary.VisitorsIn)},
		{"Visitors Out", strconv.Itoa(summary.VisitorsOut)},
		{"Currently Inside", strconv.Itoa(summary.CurrentlyInside)},
		{},
		{"Detailed Activities"},
		{"Time", "User ID", "Name", "Type", "Action"},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	day := track.FilterEvents(events, track.Filter{From: date, To: date})
	sort.SliceStable(day, func(i, j int) bool {
		return day[i].Timestamp.OrderTime().Before(day[j].Timestamp.OrderTime())
	})
	for _, e := range day {
		err := cw.Write([]string{
			FormatInstant(e.Timestamp),
			e.UserID,
			e.UserName,
			e.UserType.Display(),
			string(e.Action),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTimeCSV writes the filtered time-tracking report, most recent
// activity first.
func WriteTimeCSV(w io.Writer, f track.Filter, events []track.Event) error {
	cw := csv.NewWriter(w)
	header := [][]string{
		{fmt.Sprintf("Time Report - %s to %s", orAny(f.From), orAny(f.To))},
		{},
		{"Date", "Time", "User ID", "Name", "Type", "Action"},
	}
	for _, row := range header {
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	filtered := track.FilterEvents(events, f)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[j].Timestamp.OrderTime().Before(filtered[i].Timestamp.OrderTime())
	})
	for _, e := range filtered {
		date, clock := "Invalid Date", ""
		if e.Timestamp.OK() {
			date = e.Timestamp.Time.Format("01/02/2006")
			clock = e.Timestamp.Time.Format("03:04:05 PM")
		}
		err := cw.Write([]string{date, clock, e.UserID, e.UserName, e.UserType.Display(), string(e.Action)})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func orAny(date string) string {
	if date == "" {
		return "any"
	}
	return date
}
