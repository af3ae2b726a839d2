package clock

import (
	"context"
	"time"
)

// EventRepository is the append-only event store. Events are never updated
// or deleted once written.
type EventRepository interface {
	// FindLast returns the most recent event of the user, ties on timestamp
	// broken by insertion order. It returns (nil, nil) when the user has none.
	FindLast(ctx context.Context, userID string) (*Event, error)

	// AcquireUserLock blocks until no other transaction is writing events of
	// the user. It is released when the surrounding transaction ends.
	AcquireUserLock(ctx context.Context, userID string) error

	// Append stores e only if the user's most recent event id still equals
	// expectedLastID (nil meaning "no events yet"). ErrConcurrentPunch is
	// returned when the condition no longer holds.
	Append(ctx context.Context, e Event, expectedLastID *string) (Event, error)

	// ListByUser returns the user's events with start <= timestamp <= end,
	// oldest first.
	ListByUser(ctx context.Context, userID string, start, end time.Time) ([]Event, error)

	// ListByCompany returns every event of the company in range, oldest first,
	// joined with the owner's name and email when the profile exists.
	ListByCompany(ctx context.Context, companyID string, start, end time.Time) ([]Event, error)

	// CountByCompany counts the company's events with start <= timestamp <= end.
	CountByCompany(ctx context.Context, companyID string, start, end time.Time) (int, error)
}

// Transactor runs fn inside a single database transaction carried by ctx.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
