package timesheet

import (
	"context"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
)

// TimesheetService turns stored punches into payroll figures and reports.
// It never writes.
type TimesheetService interface {
	// GetPayrollSummary aggregates one user's punches over the range using
	// the policy of the user's company.
	GetPayrollSummary(ctx context.Context, userID string, dateRange clock.DateRange) (PayrollSummaryResponse, error)

	// GetMirrorReport renders the daily mirror of one user over the range.
	GetMirrorReport(ctx context.Context, userID string, dateRange clock.DateRange) (MirrorReportResponse, error)

	// ListCompanyPunches lists every punch of the caller's company in range.
	ListCompanyPunches(ctx context.Context, dateRange clock.DateRange) (CompanyPunchesResponse, error)

	// ExportCompanyPayroll computes the payroll summary of every user of the
	// caller's company. Users whose summary fails are skipped.
	ExportCompanyPayroll(ctx context.Context, dateRange clock.DateRange) (CompanyPayrollExport, error)

	// GetCompanyStats counts the users of the caller's company and its
	// punches since the start of the current month and day.
	GetCompanyStats(ctx context.Context) (CompanyStatsResponse, error)
}
