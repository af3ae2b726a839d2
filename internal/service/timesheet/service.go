package timesheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

const unknownUserName = "Unknown"

type TimesheetServiceImpl struct {
	events    clock.EventRepository
	profiles  user.ProfileRepository
	companies company.SettingsRepository
	defaults  timesheet.Policy
	now       func() time.Time
}

// GetPayrollSummary implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) GetPayrollSummary(ctx context.Context, userID string, dateRange clock.DateRange) (timesheet.PayrollSummaryResponse, error) {
	profile, err := s.readableProfile(ctx, userID, dateRange)
	if err != nil {
		return timesheet.PayrollSummaryResponse{}, err
	}

	policy, err := s.policyFor(ctx, profile.CompanyID)
	if err != nil {
		return timesheet.PayrollSummaryResponse{}, err
	}

	return s.payrollFor(ctx, profile, dateRange, policy)
}

// GetMirrorReport implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) GetMirrorReport(ctx context.Context, userID string, dateRange clock.DateRange) (timesheet.MirrorReportResponse, error) {
	profile, err := s.readableProfile(ctx, userID, dateRange)
	if err != nil {
		return timesheet.MirrorReportResponse{}, err
	}

	policy, err := s.policyFor(ctx, profile.CompanyID)
	if err != nil {
		return timesheet.MirrorReportResponse{}, err
	}

	events, err := s.events.ListByUser(ctx, profile.ID, dateRange.Start, dateRange.End)
	if err != nil {
		return timesheet.MirrorReportResponse{}, fmt.Errorf("failed to list punches: %w", err)
	}

	mirror := timesheet.BuildMirror(events, dateRange.Start, dateRange.End, policy)

	return timesheet.MirrorReportResponse{
		UserID:             profile.ID,
		UserName:           profile.FullName,
		PeriodStart:        dateRange.Start,
		PeriodEnd:          dateRange.End,
		Days:               mirror.Days,
		TotalHours:         mirror.TotalHours,
		TotalOvertimeHours: mirror.TotalOvertimeHours,
	}, nil
}

// ListCompanyPunches implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) ListCompanyPunches(ctx context.Context, dateRange clock.DateRange) (timesheet.CompanyPunchesResponse, error) {
	if err := requireRange(dateRange); err != nil {
		return timesheet.CompanyPunchesResponse{}, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return timesheet.CompanyPunchesResponse{}, err
	}

	events, err := s.events.ListByCompany(ctx, identity.CompanyID, dateRange.Start, dateRange.End)
	if err != nil {
		return timesheet.CompanyPunchesResponse{}, fmt.Errorf("failed to list company punches: %w", err)
	}

	resp := timesheet.CompanyPunchesResponse{
		CompanyID:  identity.CompanyID,
		StartDate:  dateRange.Start,
		EndDate:    dateRange.End,
		Events:     make([]clock.EventResponse, 0, len(events)),
		TotalCount: len(events),
	}
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.UserName == nil {
			name, email := unknownUserName, ""
			e.UserName, e.UserEmail = &name, &email
		}
		resp.Events = append(resp.Events, clock.NewEventResponse(e))
	}

	return resp, nil
}

// ExportCompanyPayroll implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) ExportCompanyPayroll(ctx context.Context, dateRange clock.DateRange) (timesheet.CompanyPayrollExport, error) {
	if err := requireRange(dateRange); err != nil {
		return timesheet.CompanyPayrollExport{}, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return timesheet.CompanyPayrollExport{}, err
	}

	policy, err := s.policyFor(ctx, identity.CompanyID)
	if err != nil {
		return timesheet.CompanyPayrollExport{}, err
	}

	profiles, err := s.profiles.ListByCompany(ctx, identity.CompanyID)
	if err != nil {
		return timesheet.CompanyPayrollExport{}, fmt.Errorf("failed to list company users: %w", err)
	}

	export := timesheet.CompanyPayrollExport{
		CompanyID: identity.CompanyID,
		StartDate: dateRange.Start,
		EndDate:   dateRange.End,
		Rows:      make([]timesheet.PayrollSummaryResponse, 0, len(profiles)),
	}
	for _, profile := range profiles {
		if err := ctx.Err(); err != nil {
			return timesheet.CompanyPayrollExport{}, err
		}

		row, err := s.payrollFor(ctx, profile, dateRange, policy)
		if err != nil {
			slog.Error("Failed to compute payroll for user, skipping", "user_id", profile.ID, "company_id", identity.CompanyID, "error", err)
			continue
		}
		export.Rows = append(export.Rows, row)
	}

	slog.Info("Exported company payroll", "company_id", identity.CompanyID, "users", len(profiles), "rows", len(export.Rows))

	return export, nil
}

// GetCompanyStats implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) GetCompanyStats(ctx context.Context) (timesheet.CompanyStatsResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return timesheet.CompanyStatsResponse{}, err
	}

	now := s.now().UTC()
	stats := timesheet.CompanyStatsResponse{
		CompanyID:   identity.CompanyID,
		GeneratedAt: now,
	}

	c, err := s.companies.GetByID(ctx, identity.CompanyID)
	switch {
	case err == nil:
		stats.CompanyName = c.Name
	case !errors.Is(err, company.ErrCompanyNotFound):
		return timesheet.CompanyStatsResponse{}, fmt.Errorf("failed to get company: %w", err)
	}

	profiles, err := s.profiles.ListByCompany(ctx, identity.CompanyID)
	if err != nil {
		return timesheet.CompanyStatsResponse{}, fmt.Errorf("failed to list company users: %w", err)
	}
	stats.TotalUsers = len(profiles)

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if stats.PunchesThisMonth, err = s.events.CountByCompany(ctx, identity.CompanyID, monthStart, now); err != nil {
		return timesheet.CompanyStatsResponse{}, fmt.Errorf("failed to count punches of month: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if stats.PunchesToday, err = s.events.CountByCompany(ctx, identity.CompanyID, dayStart, now); err != nil {
		return timesheet.CompanyStatsResponse{}, fmt.Errorf("failed to count punches of day: %w", err)
	}

	return stats, nil
}

func (s *TimesheetServiceImpl) payrollFor(ctx context.Context, profile user.Profile, dateRange clock.DateRange, policy timesheet.Policy) (timesheet.PayrollSummaryResponse, error) {
	events, err := s.events.ListByUser(ctx, profile.ID, dateRange.Start, dateRange.End)
	if err != nil {
		return timesheet.PayrollSummaryResponse{}, fmt.Errorf("failed to list punches: %w", err)
	}

	summary := timesheet.Aggregate(events, dateRange.Start, dateRange.End, policy)
	return timesheet.NewPayrollSummaryResponse(profile, dateRange, summary), nil
}

// readableProfile resolves the target user (the caller when userID is empty)
// and checks that the caller may read their records.
func (s *TimesheetServiceImpl) readableProfile(ctx context.Context, userID string, dateRange clock.DateRange) (user.Profile, error) {
	if err := requireRange(dateRange); err != nil {
		return user.Profile{}, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return user.Profile{}, err
	}

	if userID == "" {
		userID = identity.UserID
	}
	if !validator.IsValidUUID(userID) {
		return user.Profile{}, validator.ValidationErrors{{
			Field:   "user_id",
			Message: "user_id must be a valid UUID",
		}}
	}
	if userID != identity.UserID && !identity.IsAdmin() {
		return user.Profile{}, auth.ErrForbidden
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return user.Profile{}, err
	}
	if !identity.CanRead(profile) {
		return user.Profile{}, auth.ErrForbidden
	}

	return profile, nil
}

// policyFor merges the company overrides over the configured defaults. A
// company without a settings row uses the defaults.
func (s *TimesheetServiceImpl) policyFor(ctx context.Context, companyID string) (timesheet.Policy, error) {
	settings, err := s.companies.GetSettings(ctx, companyID)
	if err != nil {
		if errors.Is(err, company.ErrCompanyNotFound) {
			return s.defaults, nil
		}
		return timesheet.Policy{}, fmt.Errorf("failed to get company settings: %w", err)
	}

	return s.defaults.WithSettings(settings)
}

func requireRange(dateRange clock.DateRange) error {
	var errs validator.ValidationErrors
	if dateRange.Start.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date is required"})
	}
	if dateRange.End.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func NewTimesheetService(
	eventRepo clock.EventRepository,
	profileRepo user.ProfileRepository,
	companyRepo company.SettingsRepository,
	defaults timesheet.Policy,
) timesheet.TimesheetService {
	return &TimesheetServiceImpl{
		events:    eventRepo,
		profiles:  profileRepo,
		companies: companyRepo,
		defaults:  defaults,
		now:       time.Now,
	}
}
