package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testUserID    = "0190a6b4-0000-7000-8000-000000000001"
	otherUserID   = "0190a6b4-0000-7000-8000-000000000002"
	testCompanyID = "0190a6b4-0000-7000-8000-0000000000c1"
)

// memoryEventRepository keeps events in insertion order and enforces the
// same conditional append as the database.
type memoryEventRepository struct {
	events     []clock.Event
	failAppend error
	locked     []string
}

func (r *memoryEventRepository) FindLast(ctx context.Context, userID string) (*clock.Event, error) {
	var last *clock.Event
	for i := range r.events {
		e := r.events[i]
		if e.UserID != userID {
			continue
		}
		if last == nil || !e.Timestamp.Before(last.Timestamp) {
			last = &e
		}
	}
	return last, nil
}

func (r *memoryEventRepository) AcquireUserLock(ctx context.Context, userID string) error {
	r.locked = append(r.locked, userID)
	return nil
}

func (r *memoryEventRepository) Append(ctx context.Context, e clock.Event, expectedLastID *string) (clock.Event, error) {
	if r.failAppend != nil {
		return clock.Event{}, r.failAppend
	}
	last, _ := r.FindLast(ctx, e.UserID)
	switch {
	case last == nil && expectedLastID != nil,
		last != nil && (expectedLastID == nil || *expectedLastID != last.ID):
		return clock.Event{}, clock.ErrConcurrentPunch
	}
	e.CreatedAt = e.Timestamp
	r.events = append(r.events, e)
	return e, nil
}

func (r *memoryEventRepository) ListByUser(ctx context.Context, userID string, start, end time.Time) ([]clock.Event, error) {
	var out []clock.Event
	for _, e := range r.events {
		if e.UserID == userID && !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEventRepository) ListByCompany(ctx context.Context, companyID string, start, end time.Time) ([]clock.Event, error) {
	return nil, errors.New("not used")
}

func (r *memoryEventRepository) CountByCompany(ctx context.Context, companyID string, start, end time.Time) (int, error) {
	return 0, errors.New("not used")
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

type passthroughTx struct {
	calls int
}

func (p *passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type testEnv struct {
	svc      *PunchServiceImpl
	events   *memoryEventRepository
	profiles *mockProfileRepository
	tx       *passthroughTx
	clock    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		events:   &memoryEventRepository{},
		profiles: &mockProfileRepository{},
		tx:       &passthroughTx{},
		clock:    time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
	}
	svc := NewPunchService(env.tx, lock.NewMemoryLocker(), env.events, env.profiles).(*PunchServiceImpl)
	svc.now = func() time.Time {
		env.clock = env.clock.Add(time.Minute)
		return env.clock
	}
	env.svc = svc
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
	return ctxFor(t, auth.Identity{UserID: testUserID, CompanyID: testCompanyID, Role: user.RoleEmployee})
}

func punch(eventType string) clock.PunchRequest {
	lat, lng := -23.55, -46.63
	return clock.PunchRequest{EventType: eventType, Latitude: &lat, Longitude: &lng}
}

func TestRegisterPunch_FullCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := employeeCtx(t)

	for _, et := range []string{"clock_in", "break_start", "break_end", "clock_out", "clock_in"} {
		resp, err := env.svc.RegisterPunch(ctx, punch(et))
		require.NoError(t, err, et)
		assert.Equal(t, et, resp.EventType.String())
		assert.Equal(t, testUserID, resp.UserID)
		assert.Equal(t, testCompanyID, resp.CompanyID)
		assert.Nil(t, resp.SyncedAt)

		id, err := uuid.Parse(resp.ID)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), id.Version())
	}

	assert.Len(t, env.events.events, 5)
	assert.Equal(t, 5, env.tx.calls)
	assert.Equal(t, []string{testUserID, testUserID, testUserID, testUserID, testUserID}, env.events.locked)
}

func TestRegisterPunch_UsesServerTime(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.RegisterPunch(employeeCtx(t), punch("clock_in"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 1, 0, 0, time.UTC), resp.Timestamp)
}

func TestRegisterPunch_NeverGoesBackInTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := employeeCtx(t)

	_, err := env.svc.RegisterPunch(ctx, punch("clock_in"))
	require.NoError(t, err)

	env.clock = env.clock.Add(-time.Hour)
	resp, err := env.svc.RegisterPunch(ctx, punch("clock_out"))
	require.NoError(t, err)
	assert.Equal(t, env.events.events[0].Timestamp, resp.Timestamp)
}

func TestRegisterPunch_RejectsIllegalSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := employeeCtx(t)

	_, err := env.svc.RegisterPunch(ctx, punch("clock_out"))
	assert.ErrorIs(t, err, clock.ErrInvalidSequence)

	_, err = env.svc.RegisterPunch(ctx, punch("clock_in"))
	require.NoError(t, err)

	_, err = env.svc.RegisterPunch(ctx, punch("clock_in"))
	require.ErrorIs(t, err, clock.ErrInvalidSequence)
	assert.EqualError(t, err, "cannot clock in twice without clocking out")

	_, err = env.svc.RegisterPunch(ctx, punch("break_start"))
	require.NoError(t, err)
	_, err = env.svc.RegisterPunch(ctx, punch("clock_out"))
	assert.ErrorIs(t, err, clock.ErrInvalidSequence)

	assert.Len(t, env.events.events, 2, "rejected punches are never written")
}

func TestRegisterPunch_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	outOfRange := 120.0
	_, err := env.svc.RegisterPunch(employeeCtx(t), clock.PunchRequest{EventType: "clock_in", Latitude: &outOfRange})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "latitude")
	assert.Zero(t, env.tx.calls)
}

func TestRegisterPunch_RequiresIdentity(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.RegisterPunch(context.Background(), punch("clock_in"))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.Empty(t, env.events.events)
}

func TestRegisterPunch_ConcurrentWriteDetected(t *testing.T) {
	env := newTestEnv(t)
	env.events.failAppend = clock.ErrConcurrentPunch

	_, err := env.svc.RegisterPunch(employeeCtx(t), punch("clock_in"))
	assert.ErrorIs(t, err, clock.ErrConcurrentPunch)
}

func TestGetLastPunchAndStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := employeeCtx(t)

	last, err := env.svc.GetLastPunch(ctx)
	require.NoError(t, err)
	assert.Nil(t, last.EventType)
	assert.Nil(t, last.Timestamp)

	status, err := env.svc.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, clock.StateClockedOut, status.State)
	assert.Equal(t, []clock.EventType{clock.ClockIn}, status.AllowedNext)
	assert.True(t, status.CanClockIn)
	assert.False(t, status.CanClockOut)
	assert.Nil(t, status.LastEvent)

	_, err = env.svc.RegisterPunch(ctx, punch("clock_in"))
	require.NoError(t, err)
	_, err = env.svc.RegisterPunch(ctx, punch("break_start"))
	require.NoError(t, err)

	last, err = env.svc.GetLastPunch(ctx)
	require.NoError(t, err)
	require.NotNil(t, last.EventType)
	assert.Equal(t, clock.BreakStart, *last.EventType)

	status, err = env.svc.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, clock.StateOnBreak, status.State)
	assert.Equal(t, []clock.EventType{clock.BreakEnd}, status.AllowedNext)
	assert.False(t, status.CanClockIn)
	assert.False(t, status.CanClockOut)
	require.NotNil(t, status.LastEvent)
}

func TestSyncOffline_DuplicateClockInInTheMiddle(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.SyncOffline(employeeCtx(t), clock.SyncRequest{
		Events: []clock.PunchRequest{punch("clock_in"), punch("clock_in"), punch("clock_out")},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "clock_in", result.Errors[0].EventType)
	assert.Equal(t, "cannot clock in twice without clocking out", result.Errors[0].Message)
	assert.Equal(t, "clock_in: cannot clock in twice without clocking out", result.Errors[0].String())

	require.Len(t, result.Events, 2)
	for _, e := range result.Events {
		require.NotNil(t, e.SyncedAt, "offline punches carry the sync marker")
		assert.Equal(t, e.Timestamp, *e.SyncedAt)
	}
	assert.Len(t, env.events.events, 2)
}

func TestSyncOffline_InvalidItemDoesNotStopTheBatch(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.SyncOffline(employeeCtx(t), clock.SyncRequest{
		Events: []clock.PunchRequest{punch("nap"), punch("clock_in")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "nap", result.Errors[0].EventType)
	assert.Contains(t, result.Errors[0].Message, "event_type")
}

func TestSyncOffline_MissingCoordinatesFailOnlyThatItem(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.SyncOffline(employeeCtx(t), clock.SyncRequest{
		Events: []clock.PunchRequest{{EventType: "clock_in"}, punch("clock_in")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 0, result.Errors[0].Index)
	assert.Contains(t, result.Errors[0].Message, "latitude is required")
	assert.Contains(t, result.Errors[0].Message, "longitude is required")

	require.Len(t, env.events.events, 1)
	assert.Equal(t, -23.55, env.events.events[0].Latitude)
}

func TestSyncOffline_HidesInternalErrors(t *testing.T) {
	env := newTestEnv(t)
	env.events.failAppend = errors.New("pq: connection reset by peer")

	result, err := env.svc.SyncOffline(employeeCtx(t), clock.SyncRequest{
		Events: []clock.PunchRequest{punch("clock_in")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "internal error while registering punch", result.Errors[0].Message)
}

func TestSyncOffline_BatchLimits(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.SyncOffline(employeeCtx(t), clock.SyncRequest{})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	tooMany := make([]clock.PunchRequest, clock.MaxSyncBatchSize+1)
	_, err = env.svc.SyncOffline(employeeCtx(t), clock.SyncRequest{Events: tooMany})
	assert.ErrorAs(t, err, &verrs)
}

func TestSyncOffline_CancelledContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(employeeCtx(t))
	cancel()

	result, err := env.svc.SyncOffline(ctx, clock.SyncRequest{
		Events: []clock.PunchRequest{punch("clock_in"), punch("clock_out")},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Synced)
	assert.Empty(t, env.events.events)
}

func TestListMyPunches(t *testing.T) {
	env := newTestEnv(t)
	ctx := employeeCtx(t)

	for _, et := range []string{"clock_in", "clock_out"} {
		_, err := env.svc.RegisterPunch(ctx, punch(et))
		require.NoError(t, err)
	}

	resp, err := env.svc.ListMyPunches(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, clock.ClockOut, resp.Events[0].EventType, "newest first")
	assert.Equal(t, resp.EndDate.AddDate(0, 0, -clock.DefaultMyPunchesDays), resp.StartDate)

	_, err = env.svc.ListMyPunches(ctx, 91)
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestListUserPunches_Access(t *testing.T) {
	dr := clock.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
	}

	t.Run("self", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.ListUserPunches(employeeCtx(t), testUserID, dr)
		require.NoError(t, err)
		env.profiles.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("employee reading a colleague", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.ListUserPunches(employeeCtx(t), otherUserID, dr)
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("admin of the same company", func(t *testing.T) {
		env := newTestEnv(t)
		env.profiles.On("GetByID", mock.Anything, otherUserID).
			Return(user.Profile{ID: otherUserID, CompanyID: testCompanyID}, nil)

		ctx := ctxFor(t, auth.Identity{UserID: testUserID, CompanyID: testCompanyID, Role: user.RoleCompanyAdmin})
		resp, err := env.svc.ListUserPunches(ctx, otherUserID, dr)
		require.NoError(t, err)
		assert.Equal(t, dr.Start, resp.StartDate)
		env.profiles.AssertExpectations(t)
	})

	t.Run("admin of another company", func(t *testing.T) {
		env := newTestEnv(t)
		env.profiles.On("GetByID", mock.Anything, otherUserID).
			Return(user.Profile{ID: otherUserID, CompanyID: "another-company"}, nil)

		ctx := ctxFor(t, auth.Identity{UserID: testUserID, CompanyID: testCompanyID, Role: user.RoleCompanyAdmin})
		_, err := env.svc.ListUserPunches(ctx, otherUserID, dr)
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("super admin and unknown user", func(t *testing.T) {
		env := newTestEnv(t)
		env.profiles.On("GetByID", mock.Anything, otherUserID).
			Return(user.Profile{}, user.ErrUserNotFound)

		ctx := ctxFor(t, auth.Identity{UserID: testUserID, CompanyID: testCompanyID, Role: user.RoleSuperAdmin})
		_, err := env.svc.ListUserPunches(ctx, otherUserID, dr)
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.ListUserPunches(employeeCtx(t), "not-a-uuid", dr)
		var verrs validator.ValidationErrors
		assert.ErrorAs(t, err, &verrs)
	})

	t.Run("defaults to the last 30 days", func(t *testing.T) {
		env := newTestEnv(t)
		resp, err := env.svc.ListUserPunches(employeeCtx(t), testUserID, clock.DateRange{})
		require.NoError(t, err)
		assert.Equal(t, resp.EndDate.AddDate(0, 0, -clock.DefaultUserPunchesDays), resp.StartDate)
	})
}
