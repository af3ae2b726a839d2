package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type clockEventRepository struct {
	db *database.DB
}

const clockEventColumns = `
	e.id, e.user_id, e.company_id, e.event_type, e.timestamp,
	e.latitude, e.longitude, e.photo_ref, e.synced_at, e.created_at`

// FindLast implements clock.EventRepository.
func (r *clockEventRepository) FindLast(ctx context.Context, userID string) (*clock.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + clockEventColumns + `
		FROM clock_events e
		WHERE e.user_id = $1
		ORDER BY e.timestamp DESC, e.seq DESC
		LIMIT 1
	`

	event, err := scanClockEvent(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last clock event: %w", err)
	}

	return &event, nil
}

// AcquireUserLock takes a transaction scoped advisory lock on the user, so
// concurrent writers of the same user queue at the database. It must run
// inside a transaction.
func (r *clockEventRepository) AcquireUserLock(ctx context.Context, userID string) error {
	if _, ok := txFromContext(ctx); !ok {
		return fmt.Errorf("advisory lock for user %s requires a transaction", userID)
	}
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
		return fmt.Errorf("failed to lock user %s: %w", userID, err)
	}
	return nil
}

// Append implements clock.EventRepository.
func (r *clockEventRepository) Append(ctx context.Context, e clock.Event, expectedLastID *string) (clock.Event, error) {
	q := GetQuerier(ctx, r.db)

	// The row is only written while the user's newest event is still the one
	// the caller validated against.
	query := `
		INSERT INTO clock_events (
			id, user_id, company_id, event_type, timestamp,
			latitude, longitude, photo_ref, synced_at
		)
		SELECT $1::uuid, $2::uuid, $3::uuid, $4::text, $5::timestamptz,
			   $6::double precision, $7::double precision, $8::text, $9::timestamptz
		WHERE (
			SELECT last.id FROM clock_events last
			WHERE last.user_id = $2::uuid
			ORDER BY last.timestamp DESC, last.seq DESC
			LIMIT 1
		) IS NOT DISTINCT FROM $10::uuid
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		e.ID,
		e.UserID,
		e.CompanyID,
		e.Type.String(),
		e.Timestamp,
		e.Latitude,
		e.Longitude,
		e.PhotoRef,
		e.SyncedAt,
		expectedLastID,
	).Scan(&e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return clock.Event{}, clock.ErrConcurrentPunch
		}
		return clock.Event{}, fmt.Errorf("failed to append clock event: %w", err)
	}

	return e, nil
}

// ListByUser implements clock.EventRepository.
func (r *clockEventRepository) ListByUser(ctx context.Context, userID string, start, end time.Time) ([]clock.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + clockEventColumns + `
		FROM clock_events e
		WHERE e.user_id = $1
		  AND e.timestamp >= $2
		  AND e.timestamp <= $3
		ORDER BY e.timestamp ASC, e.seq ASC
	`

	rows, err := q.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list clock events of user: %w", err)
	}
	defer rows.Close()

	events := make([]clock.Event, 0)
	for rows.Next() {
		event, err := scanClockEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clock event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clock events: %w", err)
	}

	return events, nil
}

// ListByCompany implements clock.EventRepository.
func (r *clockEventRepository) ListByCompany(ctx context.Context, companyID string, start, end time.Time) ([]clock.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + clockEventColumns + `,
			p.full_name, p.email
		FROM clock_events e
		LEFT JOIN user_profiles p ON p.id = e.user_id
		WHERE e.company_id = $1
		  AND e.timestamp >= $2
		  AND e.timestamp <= $3
		ORDER BY e.timestamp ASC, e.seq ASC
	`

	rows, err := q.Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list clock events of company: %w", err)
	}
	defer rows.Close()

	events := make([]clock.Event, 0)
	for rows.Next() {
		var (
			event     clock.Event
			eventType string
		)
		err := rows.Scan(
			&event.ID, &event.UserID, &event.CompanyID, &eventType, &event.Timestamp,
			&event.Latitude, &event.Longitude, &event.PhotoRef, &event.SyncedAt, &event.CreatedAt,
			&event.UserName, &event.UserEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clock event: %w", err)
		}
		if event.Type, err = clock.ParseEventType(eventType); err != nil {
			return nil, fmt.Errorf("clock event %s: %w", event.ID, err)
		}
		event.Timestamp = event.Timestamp.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clock events: %w", err)
	}

	return events, nil
}

// CountByCompany implements clock.EventRepository.
func (r *clockEventRepository) CountByCompany(ctx context.Context, companyID string, start, end time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COUNT(*)
		FROM clock_events
		WHERE company_id = $1
		  AND timestamp >= $2
		  AND timestamp <= $3
	`

	var count int
	if err := q.QueryRow(ctx, query, companyID, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clock events of company: %w", err)
	}

	return count, nil
}

func scanClockEvent(row pgx.Row) (clock.Event, error) {
	var (
		event     clock.Event
		eventType string
	)
	err := row.Scan(
		&event.ID, &event.UserID, &event.CompanyID, &eventType, &event.Timestamp,
		&event.Latitude, &event.Longitude, &event.PhotoRef, &event.SyncedAt, &event.CreatedAt,
	)
	if err != nil {
		return clock.Event{}, err
	}

	if event.Type, err = clock.ParseEventType(eventType); err != nil {
		return clock.Event{}, fmt.Errorf("clock event %s: %w", event.ID, err)
	}
	event.Timestamp = event.Timestamp.UTC()

	return event, nil
}

func NewClockEventRepository(db *database.DB) clock.EventRepository {
	return &clockEventRepository{db: db}
}
