package clock

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

const (
	DefaultMyPunchesDays   = 7
	MaxMyPunchesDays       = 90
	DefaultUserPunchesDays = 30
	MaxSyncBatchSize       = 100
	MaxDateRangeDays       = 366
)

// ========================================
// PUNCH DTOs
// ========================================

type PunchRequest struct {
	EventType string  `json:"event_type"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	PhotoRef  *string  `json:"photo_ref,omitempty"`

	// Parsed by Validate
	Type EventType `json:"-"`
}

func (r *PunchRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EventType) {
		errs = append(errs, validator.ValidationError{
			Field:   "event_type",
			Message: "event_type is required",
		})
	} else if t, err := ParseEventType(r.EventType); err != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "event_type",
			Message: "event_type must be one of clock_in, clock_out, break_start, break_end",
		})
	} else {
		r.Type = t
	}

	switch {
	case r.Latitude == nil:
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude is required",
		})
	case !validator.IsValidLatitude(*r.Latitude):
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	switch {
	case r.Longitude == nil:
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude is required",
		})
	case !validator.IsValidLongitude(*r.Longitude):
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if r.PhotoRef != nil && validator.IsEmpty(*r.PhotoRef) {
		r.PhotoRef = nil
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type EventResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	CompanyID string     `json:"company_id"`
	EventType EventType  `json:"event_type"`
	Timestamp time.Time  `json:"timestamp"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	PhotoRef  *string    `json:"photo_ref,omitempty"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UserName  *string    `json:"user_name,omitempty"`
	UserEmail *string    `json:"user_email,omitempty"`
}

// NewEventResponse maps a stored event onto its wire form.
func NewEventResponse(e Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		CompanyID: e.CompanyID,
		EventType: e.Type,
		Timestamp: e.Timestamp.UTC(),
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		PhotoRef:  e.PhotoRef,
		SyncedAt:  e.SyncedAt,
		CreatedAt: e.CreatedAt,
		UserName:  e.UserName,
		UserEmail: e.UserEmail,
	}
}

type LastEventResponse struct {
	EventType *EventType `json:"event_type"`
	Timestamp *time.Time `json:"timestamp"`
}

type StatusResponse struct {
	State       State              `json:"state"`
	LastEvent   *LastEventResponse `json:"last_event,omitempty"`
	AllowedNext []EventType        `json:"allowed_next"`
	CanClockIn  bool               `json:"can_clock_in"`
	CanClockOut bool               `json:"can_clock_out"`
}

type ListEventsResponse struct {
	Events     []EventResponse `json:"events"`
	TotalCount int             `json:"total_count"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
}

// ========================================
// OFFLINE SYNC DTOs
// ========================================

type SyncRequest struct {
	Events []PunchRequest `json:"events"`
}

func (r *SyncRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.Events) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "events",
			Message: "at least one event is required",
		})
	} else if len(r.Events) > MaxSyncBatchSize {
		errs = append(errs, validator.ValidationError{
			Field:   "events",
			Message: fmt.Sprintf("a sync batch may contain at most %d events", MaxSyncBatchSize),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SyncFailure struct {
	Index     int    `json:"index"`
	EventType string `json:"event_type"`
	Message   string `json:"message"`
}

// String renders the failure the way it is logged: "{event_type}: {message}".
func (f SyncFailure) String() string {
	return f.EventType + ": " + f.Message
}

type SyncResult struct {
	Synced int             `json:"synced"`
	Failed int             `json:"failed"`
	Errors []SyncFailure   `json:"errors"`
	Events []EventResponse `json:"events"`
}

// ========================================
// DATE RANGE
// ========================================

// DateRange is an inclusive interval of UTC instants.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of UTC calendar dates the range touches.
func (r DateRange) Days() int {
	startDay := truncateDay(r.Start)
	endDay := truncateDay(r.End)
	if endDay.Before(startDay) {
		return 0
	}
	return int(endDay.Sub(startDay).Hours()/24) + 1
}

// LastDays returns the range that ends at now and starts days*24h earlier.
func LastDays(now time.Time, days int) DateRange {
	now = now.UTC()
	return DateRange{Start: now.AddDate(0, 0, -days), End: now}
}

// ParseDateRange parses query values that are either "YYYY-MM-DD" or RFC3339.
// A bare start date means 00:00:00 UTC and a bare end date means the last
// instant of that day. Missing values fall back to the last defaultDays days.
func ParseDateRange(startStr, endStr string, defaultDays int, now time.Time) (DateRange, error) {
	var errs validator.ValidationErrors
	dr := LastDays(now, defaultDays)

	if !validator.IsEmpty(startStr) {
		start, ok := parseBound(startStr, false)
		if !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be YYYY-MM-DD or RFC3339",
			})
		}
		dr.Start = start
	}

	if !validator.IsEmpty(endStr) {
		end, ok := parseBound(endStr, true)
		if !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be YYYY-MM-DD or RFC3339",
			})
		}
		dr.End = end
	}

	if len(errs) == 0 {
		if dr.End.Before(dr.Start) {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must not be before start_date",
			})
		} else if dr.Days() > MaxDateRangeDays {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: fmt.Sprintf("date range must not exceed %d days", MaxDateRangeDays),
			})
		}
	}

	if len(errs) > 0 {
		return DateRange{}, errs
	}
	return dr, nil
}

func parseBound(s string, endOfDay bool) (time.Time, bool) {
	if d, ok := validator.IsValidDate(s); ok {
		d = d.UTC()
		if endOfDay {
			return d.Add(24*time.Hour - time.Nanosecond), true
		}
		return d, true
	}
	if t, ok := validator.IsValidDateTime(s); ok {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
