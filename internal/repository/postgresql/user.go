package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type userProfileRepositoryImpl struct {
	db *database.DB
}

const userProfileColumns = `id, company_id, full_name, email, role, employee_code, created_at, updated_at`

// GetByID implements user.ProfileRepository.
func (r *userProfileRepositoryImpl) GetByID(ctx context.Context, id string) (user.Profile, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + userProfileColumns + ` FROM user_profiles WHERE id = $1`

	profile, err := scanUserProfile(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Profile{}, user.ErrUserNotFound
		}
		return user.Profile{}, fmt.Errorf("failed to get user profile: %w", err)
	}

	return profile, nil
}

// ListByCompany implements user.ProfileRepository.
func (r *userProfileRepositoryImpl) ListByCompany(ctx context.Context, companyID string) ([]user.Profile, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + userProfileColumns + ` FROM user_profiles WHERE company_id = $1 ORDER BY full_name ASC`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]user.Profile, 0)
	for rows.Next() {
		profile, err := scanUserProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user profiles: %w", err)
	}

	return profiles, nil
}

func scanUserProfile(row pgx.Row) (user.Profile, error) {
	var (
		profile user.Profile
		role    string
	)
	err := row.Scan(
		&profile.ID,
		&profile.CompanyID,
		&profile.FullName,
		&profile.Email,
		&role,
		&profile.EmployeeCode,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return user.Profile{}, err
	}
	profile.Role = user.Role(role)

	return profile, nil
}

func NewUserProfileRepository(db *database.DB) user.ProfileRepository {
	return &userProfileRepositoryImpl{db: db}
}
