package company

import "time"

type Company struct {
	ID        string
	Name      string
	Settings  Settings
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settings holds per-company overrides of the timesheet policy. Nil fields
// fall back to the configured defaults.
type Settings struct {
	DailyScheduleHours       *float64 `json:"daily_schedule_hours,omitempty"`
	LatenessToleranceMinutes *int     `json:"lateness_tolerance_minutes,omitempty"`
	ExpectedStartTime        *string  `json:"expected_start_time,omitempty"` // "HH:MM" UTC
}
