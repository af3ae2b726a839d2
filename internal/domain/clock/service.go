package clock

import "context"

// PunchService registers punches and exposes the caller's punch history.
type PunchService interface {
	// RegisterPunch validates and appends a punch for the authenticated user.
	RegisterPunch(ctx context.Context, req PunchRequest) (EventResponse, error)

	// GetLastPunch returns the caller's most recent punch, if any.
	GetLastPunch(ctx context.Context) (LastEventResponse, error)

	// GetStatus reports the caller's current state and the punches allowed next.
	GetStatus(ctx context.Context) (StatusResponse, error)

	// ListMyPunches returns the caller's punches for the last n days.
	ListMyPunches(ctx context.Context, days int) (ListEventsResponse, error)

	// ListUserPunches returns another user's punches. Only the user themself
	// or an administrator of the same company may read them.
	ListUserPunches(ctx context.Context, userID string, dateRange DateRange) (ListEventsResponse, error)

	// SyncOffline applies a batch of punches recorded while offline, each one
	// independently of the others.
	SyncOffline(ctx context.Context, req SyncRequest) (SyncResult, error)
}
