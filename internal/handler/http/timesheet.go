package http

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

var payrollCSVHeader = []string{
	"Name", "Email", "Employee Code", "Period Start", "Period End",
	"Regular Hours", "Overtime Hours", "Total Hours", "Absences", "Late Days",
}

type TimesheetHandler interface {
	GetMirror(w http.ResponseWriter, r *http.Request)
	GetPayroll(w http.ResponseWriter, r *http.Request)
	ListCompanyPunches(w http.ResponseWriter, r *http.Request)
	ExportCompanyPayroll(w http.ResponseWriter, r *http.Request)
	GetCompanyStats(w http.ResponseWriter, r *http.Request)
}

type timesheetHandlerImpl struct {
	timesheetService timesheet.TimesheetService
	now              func() time.Time
}

func NewTimesheetHandler(timesheetService timesheet.TimesheetService) TimesheetHandler {
	return &timesheetHandlerImpl{
		timesheetService: timesheetService,
		now:              time.Now,
	}
}

// GetMirror implements TimesheetHandler.
func (h *timesheetHandlerImpl) GetMirror(w http.ResponseWriter, r *http.Request) {
	dateRange, err := h.reportRange(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.timesheetService.GetMirrorReport(r.Context(), r.URL.Query().Get("user_id"), dateRange)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetPayroll implements TimesheetHandler.
func (h *timesheetHandlerImpl) GetPayroll(w http.ResponseWriter, r *http.Request) {
	dateRange, err := h.reportRange(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.timesheetService.GetPayrollSummary(r.Context(), r.URL.Query().Get("user_id"), dateRange)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListCompanyPunches implements TimesheetHandler.
func (h *timesheetHandlerImpl) ListCompanyPunches(w http.ResponseWriter, r *http.Request) {
	dateRange, err := h.reportRange(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.timesheetService.ListCompanyPunches(r.Context(), dateRange)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{TotalCount: result.TotalCount})
}

// GetCompanyStats implements TimesheetHandler.
func (h *timesheetHandlerImpl) GetCompanyStats(w http.ResponseWriter, r *http.Request) {
	result, err := h.timesheetService.GetCompanyStats(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ExportCompanyPayroll implements TimesheetHandler.
func (h *timesheetHandlerImpl) ExportCompanyPayroll(w http.ResponseWriter, r *http.Request) {
	format, err := timesheet.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	dateRange, err := h.reportRange(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	export, err := h.timesheetService.ExportCompanyPayroll(r.Context(), dateRange)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if format == timesheet.ExportFormatJSON {
		response.Success(w, export.Rows)
		return
	}

	filename := fmt.Sprintf("payroll_%s_%s_%s.csv",
		export.CompanyID,
		export.StartDate.Format("20060102"),
		export.EndDate.Format("20060102"),
	)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if err := writePayrollCSV(w, export.Rows); err != nil {
		slog.Error("Failed to write payroll csv", "company_id", export.CompanyID, "error", err)
	}
}

// reportRange reads start_date and end_date, both required for reports.
func (h *timesheetHandlerImpl) reportRange(r *http.Request) (clock.DateRange, error) {
	startStr := r.URL.Query().Get("start_date")
	endStr := r.URL.Query().Get("end_date")

	var errs validator.ValidationErrors
	if validator.IsEmpty(startStr) {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date is required"})
	}
	if validator.IsEmpty(endStr) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date is required"})
	}
	if len(errs) > 0 {
		return clock.DateRange{}, errs
	}

	return clock.ParseDateRange(startStr, endStr, 0, h.now())
}

func writePayrollCSV(w http.ResponseWriter, rows []timesheet.PayrollSummaryResponse) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(payrollCSVHeader); err != nil {
		return err
	}

	for _, row := range rows {
		code := ""
		if row.EmployeeCode != nil {
			code = *row.EmployeeCode
		}
		record := []string{
			row.UserName,
			row.Email,
			code,
			row.PeriodStart.Format(time.DateOnly),
			row.PeriodEnd.Format(time.DateOnly),
			fmt.Sprintf("%.2f", row.RegularHours),
			fmt.Sprintf("%.2f", row.OvertimeHours),
			fmt.Sprintf("%.2f", row.TotalHours),
			strconv.Itoa(row.Absences),
			strconv.Itoa(row.LateDays),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
