package timesheet

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

const (
	DefaultDailyScheduleHours = 8.0
	DefaultLatenessTolerance  = 10 // minutes
	DefaultExpectedStart      = 8 * time.Hour
)

// Policy holds the working rules a period is measured against.
type Policy struct {
	DailyScheduleHours float64
	LatenessTolerance  int           // minutes
	ExpectedStart      time.Duration // offset from UTC midnight
}

func DefaultPolicy() Policy {
	return Policy{
		DailyScheduleHours: DefaultDailyScheduleHours,
		LatenessTolerance:  DefaultLatenessTolerance,
		ExpectedStart:      DefaultExpectedStart,
	}
}

func (p Policy) Validate() error {
	var errs validator.ValidationErrors

	if p.DailyScheduleHours <= 0 || p.DailyScheduleHours > 24 {
		errs = append(errs, validator.ValidationError{
			Field:   "daily_schedule_hours",
			Message: "daily_schedule_hours must be greater than 0 and at most 24",
		})
	}
	if p.LatenessTolerance < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "lateness_tolerance_minutes",
			Message: "lateness_tolerance_minutes must not be negative",
		})
	}
	if p.ExpectedStart < 0 || p.ExpectedStart >= 24*time.Hour {
		errs = append(errs, validator.ValidationError{
			Field:   "expected_start_time",
			Message: "expected_start_time must be within the day",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// WithSettings returns p with the company overrides applied.
func (p Policy) WithSettings(s company.Settings) (Policy, error) {
	if s.DailyScheduleHours != nil {
		p.DailyScheduleHours = *s.DailyScheduleHours
	}
	if s.LatenessToleranceMinutes != nil {
		p.LatenessTolerance = *s.LatenessToleranceMinutes
	}
	if s.ExpectedStartTime != nil {
		start, ok := validator.IsValidClockTime(*s.ExpectedStartTime)
		if !ok {
			return p, fmt.Errorf("%w: expected_start_time %q", company.ErrInvalidSettings, *s.ExpectedStartTime)
		}
		p.ExpectedStart = start
	}

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%w: %v", company.ErrInvalidSettings, err)
	}
	return p, nil
}

// DayRecord is the attendance of one UTC calendar date. Hour fields are
// unrounded.
type DayRecord struct {
	Date          time.Time
	Entrance      *time.Time
	Exit          *time.Time
	BreakDuration time.Duration
	WorkedHours   float64
	RegularHours  float64
	OvertimeHours float64
	IsLate        bool
	Worked        bool
	PhotoRef      *string
}

// PeriodSummary totals a range of days. Hour fields are rounded to two
// decimals.
type PeriodSummary struct {
	RegularHours  float64
	OvertimeHours float64
	TotalHours    float64
	WorkedDays    int
	AbsentDays    int
	LateDays      int
	TotalDays     int
	Days          []DayRecord
}
