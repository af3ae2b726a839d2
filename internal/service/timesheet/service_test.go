package timesheet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timesheet"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	employeeID     = "0190a6b4-0000-7000-8000-000000000001"
	colleagueID    = "0190a6b4-0000-7000-8000-000000000002"
	adminID        = "0190a6b4-0000-7000-8000-0000000000a1"
	testCompanyID  = "0190a6b4-0000-7000-8000-0000000000c1"
	otherCompanyID = "0190a6b4-0000-7000-8000-0000000000c2"
)

type stubEventRepository struct {
	byUser    map[string][]clock.Event
	byCompany []clock.Event
	failUser  map[string]error
	failCount error
}

func (r *stubEventRepository) FindLast(ctx context.Context, userID string) (*clock.Event, error) {
	return nil, errors.New("not used")
}

func (r *stubEventRepository) AcquireUserLock(ctx context.Context, userID string) error {
	return errors.New("not used")
}

func (r *stubEventRepository) Append(ctx context.Context, e clock.Event, expectedLastID *string) (clock.Event, error) {
	return clock.Event{}, errors.New("not used")
}

func (r *stubEventRepository) ListByUser(ctx context.Context, userID string, start, end time.Time) ([]clock.Event, error) {
	if err := r.failUser[userID]; err != nil {
		return nil, err
	}
	return r.byUser[userID], nil
}

func (r *stubEventRepository) ListByCompany(ctx context.Context, companyID string, start, end time.Time) ([]clock.Event, error) {
	return r.byCompany, nil
}

func (r *stubEventRepository) CountByCompany(ctx context.Context, companyID string, start, end time.Time) (int, error) {
	if r.failCount != nil {
		return 0, r.failCount
	}
	count := 0
	for _, e := range r.byCompany {
		if e.CompanyID == companyID && !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			count++
		}
	}
	return count, nil
}

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) GetByID(ctx context.Context, id string) (user.Profile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(user.Profile), args.Error(1)
}

func (m *mockProfileRepository) ListByCompany(ctx context.Context, companyID string) ([]user.Profile, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]user.Profile), args.Error(1)
}

type mockSettingsRepository struct {
	mock.Mock
}

func (m *mockSettingsRepository) GetByID(ctx context.Context, id string) (company.Company, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(company.Company), args.Error(1)
}

func (m *mockSettingsRepository) GetSettings(ctx context.Context, id string) (company.Settings, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(company.Settings), args.Error(1)
}

type testEnv struct {
	svc       timesheet.TimesheetService
	events    *stubEventRepository
	profiles  *mockProfileRepository
	companies *mockSettingsRepository
}

func newTestEnv() *testEnv {
	env := &testEnv{
		events:    &stubEventRepository{byUser: map[string][]clock.Event{}, failUser: map[string]error{}},
		profiles:  &mockProfileRepository{},
		companies: &mockSettingsRepository{},
	}
	env.svc = NewTimesheetService(env.events, env.profiles, env.companies, timesheet.DefaultPolicy())
	return env
}

func ctxFor(t *testing.T, identity auth.Identity) context.Context {
	t.Helper()
	svc, err := jwt.NewJWTService("test-secret", "1h")
	require.NoError(t, err)
	tokenString, _, err := svc.GenerateAccessToken(identity)
	require.NoError(t, err)
	token, err := jwtauth.VerifyToken(svc.JWTAuth(), tokenString)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func employeeCtx(t *testing.T) context.Context {
	return ctxFor(t, auth.Identity{UserID: employeeID, CompanyID: testCompanyID, Role: user.RoleEmployee})
}

func adminCtx(t *testing.T) context.Context {
	return ctxFor(t, auth.Identity{UserID: adminID, CompanyID: testCompanyID, Role: user.RoleCompanyAdmin})
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 1, day, hour, minute, 0, 0, time.UTC)
}

// twoDays covers 15 and 16 January; only the 15th has punches.
var twoDays = clock.DateRange{Start: at(15, 0, 0), End: at(16, 23, 59)}

func workday(userID string, day int) []clock.Event {
	mk := func(et clock.EventType, ts time.Time) clock.Event {
		return clock.Event{UserID: userID, CompanyID: testCompanyID, Type: et, Timestamp: ts}
	}
	return []clock.Event{
		mk(clock.ClockIn, at(day, 8, 0)),
		mk(clock.BreakStart, at(day, 12, 0)),
		mk(clock.BreakEnd, at(day, 13, 0)),
		mk(clock.ClockOut, at(day, 17, 0)),
	}
}

func profile(id, companyID, name string) user.Profile {
	return user.Profile{ID: id, CompanyID: companyID, FullName: name, Email: name + "@example.com", Role: user.RoleEmployee}
}

func TestGetPayrollSummary_Self(t *testing.T) {
	env := newTestEnv()
	env.events.byUser[employeeID] = workday(employeeID, 15)
	env.profiles.On("GetByID", mock.Anything, employeeID).Return(profile(employeeID, testCompanyID, "ana"), nil)
	env.companies.On("GetSettings", mock.Anything, testCompanyID).Return(company.Settings{}, company.ErrCompanyNotFound)

	resp, err := env.svc.GetPayrollSummary(employeeCtx(t), "", twoDays)
	require.NoError(t, err)

	assert.Equal(t, employeeID, resp.UserID)
	assert.Equal(t, "ana", resp.UserName)
	assert.Equal(t, 8.0, resp.RegularHours)
	assert.Equal(t, 0.0, resp.OvertimeHours)
	assert.Equal(t, 8.0, resp.TotalHours)
	assert.Equal(t, 1, resp.WorkedDays)
	assert.Equal(t, 1, resp.Absences)
	assert.Equal(t, 0, resp.LateDays)
	assert.Equal(t, twoDays.Start, resp.PeriodStart)
	env.profiles.AssertExpectations(t)
}

func TestGetPayrollSummary_CompanySettingsApply(t *testing.T) {
	env := newTestEnv()
	env.events.byUser[employeeID] = workday(employeeID, 15)
	env.profiles.On("GetByID", mock.Anything, employeeID).Return(profile(employeeID, testCompanyID, "ana"), nil)

	six := 6.0
	env.companies.On("GetSettings", mock.Anything, testCompanyID).
		Return(company.Settings{DailyScheduleHours: &six}, nil)

	resp, err := env.svc.GetPayrollSummary(employeeCtx(t), employeeID, twoDays)
	require.NoError(t, err)
	assert.Equal(t, 6.0, resp.RegularHours)
	assert.Equal(t, 2.0, resp.OvertimeHours)
	assert.Equal(t, 8.0, resp.TotalHours)
}

func TestGetPayrollSummary_InvalidCompanySettings(t *testing.T) {
	env := newTestEnv()
	env.profiles.On("GetByID", mock.Anything, employeeID).Return(profile(employeeID, testCompanyID, "ana"), nil)

	bad := "25:00"
	env.companies.On("GetSettings", mock.Anything, testCompanyID).
		Return(company.Settings{ExpectedStartTime: &bad}, nil)

	_, err := env.svc.GetPayrollSummary(employeeCtx(t), "", twoDays)
	assert.ErrorIs(t, err, company.ErrInvalidSettings)
}

func TestGetPayrollSummary_Access(t *testing.T) {
	t.Run("employee reading a colleague", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.GetPayrollSummary(employeeCtx(t), colleagueID, twoDays)
		assert.ErrorIs(t, err, auth.ErrForbidden)
		env.profiles.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("admin of another company", func(t *testing.T) {
		env := newTestEnv()
		env.profiles.On("GetByID", mock.Anything, colleagueID).Return(profile(colleagueID, otherCompanyID, "bo"), nil)

		_, err := env.svc.GetPayrollSummary(adminCtx(t), colleagueID, twoDays)
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("admin of the same company", func(t *testing.T) {
		env := newTestEnv()
		env.profiles.On("GetByID", mock.Anything, colleagueID).Return(profile(colleagueID, testCompanyID, "bo"), nil)
		env.companies.On("GetSettings", mock.Anything, testCompanyID).Return(company.Settings{}, nil)

		resp, err := env.svc.GetPayrollSummary(adminCtx(t), colleagueID, twoDays)
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Absences)
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newTestEnv()
		env.profiles.On("GetByID", mock.Anything, colleagueID).Return(user.Profile{}, user.ErrUserNotFound)

		_, err := env.svc.GetPayrollSummary(adminCtx(t), colleagueID, twoDays)
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("no identity", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.GetPayrollSummary(context.Background(), "", twoDays)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestGetPayrollSummary_Validation(t *testing.T) {
	env := newTestEnv()
	var verrs validator.ValidationErrors

	_, err := env.svc.GetPayrollSummary(employeeCtx(t), "", clock.DateRange{})
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "start_date")
	assert.Contains(t, verrs.ToMap(), "end_date")

	_, err = env.svc.GetPayrollSummary(adminCtx(t), "not-a-uuid", twoDays)
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "user_id")
}

func TestGetMirrorReport(t *testing.T) {
	env := newTestEnv()
	env.events.byUser[employeeID] = workday(employeeID, 15)
	env.profiles.On("GetByID", mock.Anything, employeeID).Return(profile(employeeID, testCompanyID, "ana"), nil)
	env.companies.On("GetSettings", mock.Anything, testCompanyID).Return(company.Settings{}, nil)

	resp, err := env.svc.GetMirrorReport(employeeCtx(t), "", twoDays)
	require.NoError(t, err)

	assert.Equal(t, "ana", resp.UserName)
	require.Len(t, resp.Days, 1, "days without punches are not rendered")
	assert.Equal(t, "2024-01-15", resp.Days[0].Date)
	assert.Equal(t, "8.00h", resp.Days[0].TotalHours)
	assert.Equal(t, "8.00h", resp.TotalHours)
	assert.Equal(t, "0.00h", resp.TotalOvertimeHours)
}

func TestListCompanyPunches(t *testing.T) {
	env := newTestEnv()
	name, email := "ana", "ana@example.com"
	events := workday(employeeID, 15)
	for i := range events {
		events[i].UserName, events[i].UserEmail = &name, &email
	}
	orphan := clock.Event{UserID: colleagueID, CompanyID: testCompanyID, Type: clock.ClockIn, Timestamp: at(15, 18, 0)}
	env.events.byCompany = append(events, orphan)

	resp, err := env.svc.ListCompanyPunches(adminCtx(t), twoDays)
	require.NoError(t, err)

	assert.Equal(t, testCompanyID, resp.CompanyID)
	assert.Equal(t, 5, resp.TotalCount)
	require.Len(t, resp.Events, 5)
	assert.Equal(t, colleagueID, resp.Events[0].UserID, "newest first")
	require.NotNil(t, resp.Events[0].UserName)
	assert.Equal(t, "Unknown", *resp.Events[0].UserName)
	require.NotNil(t, resp.Events[4].UserName)
	assert.Equal(t, "ana", *resp.Events[4].UserName)
}

func TestExportCompanyPayroll_SkipsFailingUsers(t *testing.T) {
	env := newTestEnv()
	env.events.byUser[employeeID] = workday(employeeID, 15)
	env.events.failUser[colleagueID] = errors.New("connection reset")
	env.companies.On("GetSettings", mock.Anything, testCompanyID).Return(company.Settings{}, nil)
	env.profiles.On("ListByCompany", mock.Anything, testCompanyID).Return([]user.Profile{
		profile(employeeID, testCompanyID, "ana"),
		profile(colleagueID, testCompanyID, "bo"),
	}, nil)

	export, err := env.svc.ExportCompanyPayroll(adminCtx(t), twoDays)
	require.NoError(t, err)

	assert.Equal(t, testCompanyID, export.CompanyID)
	require.Len(t, export.Rows, 1)
	assert.Equal(t, employeeID, export.Rows[0].UserID)
	assert.Equal(t, 8.0, export.Rows[0].TotalHours)
}

func TestExportCompanyPayroll_Errors(t *testing.T) {
	t.Run("profile listing fails", func(t *testing.T) {
		env := newTestEnv()
		env.companies.On("GetSettings", mock.Anything, testCompanyID).Return(company.Settings{}, nil)
		env.profiles.On("ListByCompany", mock.Anything, testCompanyID).Return([]user.Profile(nil), errors.New("boom"))

		_, err := env.svc.ExportCompanyPayroll(adminCtx(t), twoDays)
		assert.Error(t, err)
	})

	t.Run("settings lookup fails", func(t *testing.T) {
		env := newTestEnv()
		env.companies.On("GetSettings", mock.Anything, testCompanyID).Return(company.Settings{}, errors.New("boom"))

		_, err := env.svc.ExportCompanyPayroll(adminCtx(t), twoDays)
		assert.Error(t, err)
		env.profiles.AssertNotCalled(t, "ListByCompany", mock.Anything, mock.Anything)
	})

	t.Run("cancelled context", func(t *testing.T) {
		env := newTestEnv()
		env.companies.On("GetSettings", mock.Anything, testCompanyID).Return(company.Settings{}, nil)
		env.profiles.On("ListByCompany", mock.Anything, testCompanyID).Return([]user.Profile{
			profile(employeeID, testCompanyID, "ana"),
		}, nil)

		ctx, cancel := context.WithCancel(adminCtx(t))
		cancel()
		_, err := env.svc.ExportCompanyPayroll(ctx, twoDays)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGetCompanyStats(t *testing.T) {
	moment := func(month time.Month, day, hour int) time.Time {
		return time.Date(2024, month, day, hour, 0, 0, 0, time.UTC)
	}
	stamped := func(ts time.Time) clock.Event {
		return clock.Event{UserID: employeeID, CompanyID: testCompanyID, Type: clock.ClockIn, Timestamp: ts}
	}

	newStatsEnv := func() *testEnv {
		env := newTestEnv()
		env.svc.(*TimesheetServiceImpl).now = func() time.Time { return moment(time.March, 15, 12) }
		env.events.byCompany = []clock.Event{
			stamped(moment(time.February, 29, 23)),
			stamped(moment(time.March, 1, 0)),
			stamped(moment(time.March, 14, 9)),
			stamped(moment(time.March, 15, 0)),
			stamped(moment(time.March, 15, 8)),
		}
		return env
	}

	t.Run("counts users and punches of month and day", func(t *testing.T) {
		env := newStatsEnv()
		env.companies.On("GetByID", mock.Anything, testCompanyID).Return(company.Company{ID: testCompanyID, Name: "Acme"}, nil)
		env.profiles.On("ListByCompany", mock.Anything, testCompanyID).Return([]user.Profile{
			profile(employeeID, testCompanyID, "ana"),
			profile(colleagueID, testCompanyID, "bo"),
			profile(adminID, testCompanyID, "root"),
		}, nil)

		stats, err := env.svc.GetCompanyStats(adminCtx(t))
		require.NoError(t, err)
		assert.Equal(t, testCompanyID, stats.CompanyID)
		assert.Equal(t, "Acme", stats.CompanyName)
		assert.Equal(t, 3, stats.TotalUsers)
		assert.Equal(t, 4, stats.PunchesThisMonth)
		assert.Equal(t, 2, stats.PunchesToday)
		assert.Equal(t, moment(time.March, 15, 12), stats.GeneratedAt)
	})

	t.Run("company without a row has no name", func(t *testing.T) {
		env := newStatsEnv()
		env.companies.On("GetByID", mock.Anything, testCompanyID).Return(company.Company{}, company.ErrCompanyNotFound)
		env.profiles.On("ListByCompany", mock.Anything, testCompanyID).Return([]user.Profile{}, nil)

		stats, err := env.svc.GetCompanyStats(adminCtx(t))
		require.NoError(t, err)
		assert.Empty(t, stats.CompanyName)
		assert.Zero(t, stats.TotalUsers)
		assert.Equal(t, 2, stats.PunchesToday)
	})

	t.Run("repository errors are returned", func(t *testing.T) {
		env := newStatsEnv()
		env.companies.On("GetByID", mock.Anything, testCompanyID).Return(company.Company{ID: testCompanyID}, nil)
		env.profiles.On("ListByCompany", mock.Anything, testCompanyID).Return([]user.Profile{}, nil)
		env.events.failCount = errors.New("timeout")

		_, err := env.svc.GetCompanyStats(adminCtx(t))
		assert.ErrorContains(t, err, "failed to count punches of month")
	})

	t.Run("company lookup errors other than not found are returned", func(t *testing.T) {
		env := newStatsEnv()
		env.companies.On("GetByID", mock.Anything, testCompanyID).Return(company.Company{}, errors.New("down"))

		_, err := env.svc.GetCompanyStats(adminCtx(t))
		assert.ErrorContains(t, err, "failed to get company")
		env.profiles.AssertNotCalled(t, "ListByCompany", mock.Anything, mock.Anything)
	})

	t.Run("requires identity", func(t *testing.T) {
		env := newStatsEnv()

		_, err := env.svc.GetCompanyStats(context.Background())
		assert.Error(t, err)
		env.companies.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}
