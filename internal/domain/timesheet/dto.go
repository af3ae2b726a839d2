package timesheet

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
)

type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

// ParseExportFormat defaults to csv when s is empty.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatJSON:
		return ExportFormatJSON, nil
	default:
		return "", ErrInvalidExportFormat
	}
}

type PayrollSummaryResponse struct {
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	Email         string    `json:"email"`
	EmployeeCode  *string   `json:"employee_code"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	RegularHours  float64   `json:"regular_hours"`
	OvertimeHours float64   `json:"overtime_hours"`
	TotalHours    float64   `json:"total_hours"`
	WorkedDays    int       `json:"worked_days"`
	Absences      int       `json:"absences"`
	LateDays      int       `json:"late_days"`
}

func NewPayrollSummaryResponse(p user.Profile, dr clock.DateRange, s PeriodSummary) PayrollSummaryResponse {
	return PayrollSummaryResponse{
		UserID:        p.ID,
		UserName:      p.FullName,
		Email:         p.Email,
		EmployeeCode:  p.EmployeeCode,
		PeriodStart:   dr.Start,
		PeriodEnd:     dr.End,
		RegularHours:  s.RegularHours,
		OvertimeHours: s.OvertimeHours,
		TotalHours:    s.TotalHours,
		WorkedDays:    s.WorkedDays,
		Absences:      s.AbsentDays,
		LateDays:      s.LateDays,
	}
}

type MirrorReportResponse struct {
	UserID             string          `json:"user_id"`
	UserName           string          `json:"user_name"`
	PeriodStart        time.Time       `json:"period_start"`
	PeriodEnd          time.Time       `json:"period_end"`
	Days               []DayRecordView `json:"days"`
	TotalHours         string          `json:"total_hours"`
	TotalOvertimeHours string          `json:"total_overtime_hours"`
}

type CompanyPunchesResponse struct {
	CompanyID  string                `json:"company_id"`
	StartDate  time.Time             `json:"start_date"`
	EndDate    time.Time             `json:"end_date"`
	Events     []clock.EventResponse `json:"events"`
	TotalCount int                   `json:"total_count"`
}

type CompanyPayrollExport struct {
	CompanyID string
	StartDate time.Time
	EndDate   time.Time
	Rows      []PayrollSummaryResponse
}

// CompanyStatsResponse is the dashboard summary of one company. Month and
// day boundaries are UTC.
type CompanyStatsResponse struct {
	CompanyID        string    `json:"company_id"`
	CompanyName      string    `json:"company_name,omitempty"`
	TotalUsers       int       `json:"total_users"`
	PunchesThisMonth int       `json:"punches_this_month"`
	PunchesToday     int       `json:"punches_today"`
	GeneratedAt      time.Time `json:"generated_at"`
}
