package clock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
)

type PunchServiceImpl struct {
	tx     clock.Transactor
	locker lock.Locker
	clock.EventRepository
	user.ProfileRepository

	now   func() time.Time
	newID func() (uuid.UUID, error)
}

// RegisterPunch implements clock.PunchService.
func (s *PunchServiceImpl) RegisterPunch(ctx context.Context, req clock.PunchRequest) (clock.EventResponse, error) {
	if err := req.Validate(); err != nil {
		return clock.EventResponse{}, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return clock.EventResponse{}, err
	}

	event, err := s.appendPunch(ctx, identity, req, false)
	if err != nil {
		return clock.EventResponse{}, err
	}

	return clock.NewEventResponse(event), nil
}

// appendPunch runs the read, validate, write sequence for one punch while
// holding the user's lock. req must already be validated.
func (s *PunchServiceImpl) appendPunch(ctx context.Context, identity auth.Identity, req clock.PunchRequest, offline bool) (clock.Event, error) {
	release, err := s.locker.Lock(ctx, identity.UserID)
	if err != nil {
		return clock.Event{}, fmt.Errorf("failed to lock punches of user: %w", err)
	}
	defer release()

	var stored clock.Event
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.EventRepository.AcquireUserLock(ctx, identity.UserID); err != nil {
			return err
		}

		last, err := s.EventRepository.FindLast(ctx, identity.UserID)
		if err != nil {
			return fmt.Errorf("failed to get last punch: %w", err)
		}

		var (
			lastType *clock.EventType
			lastID   *string
		)
		if last != nil {
			lastType = &last.Type
			lastID = &last.ID
		}

		if err := clock.ValidateTransition(lastType, req.Type); err != nil {
			return err
		}

		// Server time only. Never earlier than the last event so the log
		// stays ordered when instance clocks drift.
		now := s.now().UTC()
		if last != nil && now.Before(last.Timestamp) {
			now = last.Timestamp
		}

		id, err := s.newID()
		if err != nil {
			return fmt.Errorf("failed to generate event id: %w", err)
		}

		event := clock.Event{
			ID:        id.String(),
			UserID:    identity.UserID,
			CompanyID: identity.CompanyID,
			Type:      req.Type,
			Timestamp: now,
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			PhotoRef:  req.PhotoRef,
		}
		if offline {
			event.SyncedAt = &now
		}

		stored, err = s.EventRepository.Append(ctx, event, lastID)
		return err
	})
	if err != nil {
		return clock.Event{}, err
	}

	slog.Info("Punch registered",
		"user_id", stored.UserID,
		"company_id", stored.CompanyID,
		"event_id", stored.ID,
		"event_type", stored.Type.String(),
		"offline", offline,
	)

	return stored, nil
}

// GetLastPunch implements clock.PunchService.
func (s *PunchServiceImpl) GetLastPunch(ctx context.Context) (clock.LastEventResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return clock.LastEventResponse{}, err
	}

	last, err := s.EventRepository.FindLast(ctx, identity.UserID)
	if err != nil {
		return clock.LastEventResponse{}, fmt.Errorf("failed to get last punch: %w", err)
	}

	return lastEventResponse(last), nil
}

// GetStatus implements clock.PunchService.
func (s *PunchServiceImpl) GetStatus(ctx context.Context) (clock.StatusResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return clock.StatusResponse{}, err
	}

	last, err := s.EventRepository.FindLast(ctx, identity.UserID)
	if err != nil {
		return clock.StatusResponse{}, fmt.Errorf("failed to get last punch: %w", err)
	}

	var lastType *clock.EventType
	resp := clock.StatusResponse{}
	if last != nil {
		lastType = &last.Type
		lastEvent := lastEventResponse(last)
		resp.LastEvent = &lastEvent
	}

	resp.State = clock.StateAfter(lastType)
	resp.AllowedNext = clock.AllowedNext(lastType)
	resp.CanClockIn = slices.Contains(resp.AllowedNext, clock.ClockIn)
	resp.CanClockOut = slices.Contains(resp.AllowedNext, clock.ClockOut)

	return resp, nil
}

// ListMyPunches implements clock.PunchService.
func (s *PunchServiceImpl) ListMyPunches(ctx context.Context, days int) (clock.ListEventsResponse, error) {
	if days == 0 {
		days = clock.DefaultMyPunchesDays
	}
	if days < 1 || days > clock.MaxMyPunchesDays {
		return clock.ListEventsResponse{}, validator.ValidationErrors{{
			Field:   "days",
			Message: fmt.Sprintf("days must be between 1 and %d", clock.MaxMyPunchesDays),
		}}
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return clock.ListEventsResponse{}, err
	}

	return s.listPunches(ctx, identity.UserID, clock.LastDays(s.now(), days))
}

// ListUserPunches implements clock.PunchService.
func (s *PunchServiceImpl) ListUserPunches(ctx context.Context, userID string, dateRange clock.DateRange) (clock.ListEventsResponse, error) {
	if !validator.IsValidUUID(userID) {
		return clock.ListEventsResponse{}, validator.ValidationErrors{{
			Field:   "user_id",
			Message: "user_id must be a valid UUID",
		}}
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return clock.ListEventsResponse{}, err
	}

	if userID != identity.UserID {
		if !identity.IsAdmin() {
			return clock.ListEventsResponse{}, auth.ErrForbidden
		}
		target, err := s.ProfileRepository.GetByID(ctx, userID)
		if err != nil {
			return clock.ListEventsResponse{}, err
		}
		if !identity.CanRead(target) {
			return clock.ListEventsResponse{}, auth.ErrForbidden
		}
	}

	if dateRange.Start.IsZero() && dateRange.End.IsZero() {
		dateRange = clock.LastDays(s.now(), clock.DefaultUserPunchesDays)
	}

	return s.listPunches(ctx, userID, dateRange)
}

// listPunches returns the user's punches in range, newest first.
func (s *PunchServiceImpl) listPunches(ctx context.Context, userID string, dateRange clock.DateRange) (clock.ListEventsResponse, error) {
	events, err := s.EventRepository.ListByUser(ctx, userID, dateRange.Start, dateRange.End)
	if err != nil {
		return clock.ListEventsResponse{}, fmt.Errorf("failed to list punches: %w", err)
	}

	resp := clock.ListEventsResponse{
		Events:     make([]clock.EventResponse, 0, len(events)),
		TotalCount: len(events),
		StartDate:  dateRange.Start,
		EndDate:    dateRange.End,
	}
	for i := len(events) - 1; i >= 0; i-- {
		resp.Events = append(resp.Events, clock.NewEventResponse(events[i]))
	}

	return resp, nil
}

// SyncOffline implements clock.PunchService.
func (s *PunchServiceImpl) SyncOffline(ctx context.Context, req clock.SyncRequest) (clock.SyncResult, error) {
	if err := req.Validate(); err != nil {
		return clock.SyncResult{}, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return clock.SyncResult{}, err
	}

	result := clock.SyncResult{
		Errors: []clock.SyncFailure{},
		Events: []clock.EventResponse{},
	}

	for i, item := range req.Events {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		event, err := s.syncOne(ctx, identity, item)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}

			failure := clock.SyncFailure{
				Index:     i,
				EventType: item.EventType,
				Message:   syncErrorMessage(err),
			}
			result.Failed++
			result.Errors = append(result.Errors, failure)

			slog.Error("Failed to sync offline punch",
				"user_id", identity.UserID,
				"index", i,
				"failure", failure.String(),
				"error", err,
			)
			continue
		}

		result.Synced++
		result.Events = append(result.Events, clock.NewEventResponse(event))
	}

	return result, nil
}

func (s *PunchServiceImpl) syncOne(ctx context.Context, identity auth.Identity, item clock.PunchRequest) (clock.Event, error) {
	if err := item.Validate(); err != nil {
		return clock.Event{}, err
	}
	return s.appendPunch(ctx, identity, item, true)
}

// syncErrorMessage exposes client errors verbatim and hides internal ones.
func syncErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, clock.ErrInvalidSequence),
		errors.Is(err, clock.ErrConcurrentPunch),
		errors.Is(err, clock.ErrInvalidEventType),
		errors.As(err, &verrs):
		return err.Error()
	default:
		return "internal error while registering punch"
	}
}

func lastEventResponse(last *clock.Event) clock.LastEventResponse {
	if last == nil {
		return clock.LastEventResponse{}
	}
	eventType := last.Type
	timestamp := last.Timestamp.UTC()
	return clock.LastEventResponse{EventType: &eventType, Timestamp: &timestamp}
}

func NewPunchService(
	tx clock.Transactor,
	locker lock.Locker,
	eventRepo clock.EventRepository,
	profileRepo user.ProfileRepository,
) clock.PunchService {
	return &PunchServiceImpl{
		tx:                tx,
		locker:            locker,
		EventRepository:   eventRepo,
		ProfileRepository: profileRepo,
		now:               time.Now,
		newID:             uuid.NewV7,
	}
}
