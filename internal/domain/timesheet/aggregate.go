package timesheet

import (
	"math"
	"slices"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
)

// Aggregate derives the per-day records and the period totals for events
// with rangeStart <= timestamp <= rangeEnd. It is pure and never fails:
// incomplete days and orphan break events simply contribute nothing.
func Aggregate(events []clock.Event, rangeStart, rangeEnd time.Time, policy Policy) PeriodSummary {
	summary := PeriodSummary{
		TotalDays: CalendarDays(rangeStart, rangeEnd),
	}

	var regular, overtime float64
	for _, day := range GroupByDay(events, rangeStart, rangeEnd) {
		record := BuildDayRecord(day.Date, day.Events, policy)
		summary.Days = append(summary.Days, record)

		if !record.Worked {
			continue
		}
		summary.WorkedDays++
		regular += record.RegularHours
		overtime += record.OvertimeHours
		if record.IsLate {
			summary.LateDays++
		}
	}

	summary.AbsentDays = max(0, summary.TotalDays-summary.WorkedDays)
	summary.RegularHours = Round2(regular)
	summary.OvertimeHours = Round2(overtime)
	summary.TotalHours = Round2(regular + overtime)

	return summary
}

// DayEvents are the events of one UTC calendar date in timestamp order.
type DayEvents struct {
	Date   time.Time
	Events []clock.Event
}

// GroupByDay filters events to the inclusive range and buckets them by UTC
// date. Days come back in ascending order; within a day events are stably
// sorted by timestamp so the input order decides ties.
func GroupByDay(events []clock.Event, rangeStart, rangeEnd time.Time) []DayEvents {
	inRange := make([]clock.Event, 0, len(events))
	for _, e := range events {
		if e.Timestamp.Before(rangeStart) || e.Timestamp.After(rangeEnd) {
			continue
		}
		inRange = append(inRange, e)
	}

	slices.SortStableFunc(inRange, func(a, b clock.Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var days []DayEvents
	for _, e := range inRange {
		date := startOfDay(e.Timestamp)
		if n := len(days); n > 0 && days[n-1].Date.Equal(date) {
			days[n-1].Events = append(days[n-1].Events, e)
			continue
		}
		days = append(days, DayEvents{Date: date, Events: []clock.Event{e}})
	}
	return days
}

// BuildDayRecord measures one day. events must already be in timestamp order.
func BuildDayRecord(date time.Time, events []clock.Event, policy Policy) DayRecord {
	record := DayRecord{Date: date}

	var breakOpen *time.Time
	for _, e := range events {
		ts := e.Timestamp.UTC()

		if record.PhotoRef == nil && e.PhotoRef != nil {
			record.PhotoRef = e.PhotoRef
		}

		switch e.Type {
		case clock.ClockIn:
			if record.Entrance == nil {
				record.Entrance = &ts
			}
		case clock.ClockOut:
			record.Exit = &ts
		case clock.BreakStart:
			breakOpen = &ts
		case clock.BreakEnd:
			if breakOpen != nil {
				record.BreakDuration += ts.Sub(*breakOpen)
				breakOpen = nil
			}
		}
	}

	if record.Entrance != nil {
		expected := date.Add(policy.ExpectedStart)
		tolerance := time.Duration(policy.LatenessTolerance) * time.Minute
		record.IsLate = record.Entrance.Sub(expected) > tolerance
	}

	if record.Entrance == nil || record.Exit == nil {
		return record
	}

	record.Worked = true
	worked := record.Exit.Sub(*record.Entrance) - record.BreakDuration
	record.WorkedHours = max(0, worked.Hours())

	if record.WorkedHours <= policy.DailyScheduleHours {
		record.RegularHours = record.WorkedHours
	} else {
		record.RegularHours = policy.DailyScheduleHours
		record.OvertimeHours = record.WorkedHours - policy.DailyScheduleHours
	}

	return record
}

// CalendarDays counts the UTC dates from rangeStart to rangeEnd inclusive.
func CalendarDays(rangeStart, rangeEnd time.Time) int {
	first, last := startOfDay(rangeStart), startOfDay(rangeEnd)
	if last.Before(first) {
		return 0
	}
	return int(last.Sub(first)/(24*time.Hour)) + 1
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
