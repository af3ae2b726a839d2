package timesheet

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
)

// DayRecordView is a DayRecord formatted for the daily mirror report.
type DayRecordView struct {
	Date          string     `json:"date"`
	Entrance      *time.Time `json:"entrance"`
	Exit          *time.Time `json:"exit"`
	BreakDuration string     `json:"break_duration,omitempty"`
	TotalHours    string     `json:"total_hours,omitempty"`
	OvertimeHours string     `json:"overtime_hours,omitempty"`
	IsLate        bool       `json:"is_late"`
	PhotoRef      *string    `json:"photo_ref,omitempty"`
}

// Mirror is the day by day report of a period.
type Mirror struct {
	Days               []DayRecordView
	TotalHours         string
	TotalOvertimeHours string
}

// RenderDay formats the events of a single day. The date is taken from the
// first event; an empty slice yields the zero view.
func RenderDay(dayEvents []clock.Event, policy Policy) DayRecordView {
	if len(dayEvents) == 0 {
		return DayRecordView{}
	}
	days := GroupByDay(dayEvents, time.Time{}, maxTime)
	return renderRecord(BuildDayRecord(days[0].Date, days[0].Events, policy))
}

// BuildMirror renders every day of the range that has at least one event,
// oldest first, and totals worked and overtime hours across those days.
func BuildMirror(events []clock.Event, rangeStart, rangeEnd time.Time, policy Policy) Mirror {
	mirror := Mirror{Days: []DayRecordView{}}

	var total, overtime float64
	for _, day := range GroupByDay(events, rangeStart, rangeEnd) {
		record := BuildDayRecord(day.Date, day.Events, policy)
		mirror.Days = append(mirror.Days, renderRecord(record))
		total += record.WorkedHours
		overtime += record.OvertimeHours
	}

	mirror.TotalHours = FormatHours(total)
	mirror.TotalOvertimeHours = FormatHours(overtime)
	return mirror
}

// FormatHours renders hours with two decimals and an "h" suffix.
func FormatHours(h float64) string {
	return fmt.Sprintf("%.2fh", h)
}

func renderRecord(record DayRecord) DayRecordView {
	view := DayRecordView{
		Date:     record.Date.Format(time.DateOnly),
		Entrance: record.Entrance,
		Exit:     record.Exit,
		IsLate:   record.IsLate,
		PhotoRef: record.PhotoRef,
	}

	if minutes := int(record.BreakDuration / time.Minute); minutes > 0 {
		view.BreakDuration = fmt.Sprintf("%d min", minutes)
	}
	if record.Worked {
		view.TotalHours = FormatHours(record.WorkedHours)
		if record.OvertimeHours > 0 {
			view.OvertimeHours = FormatHours(record.OvertimeHours)
		}
	}

	return view
}

var maxTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
