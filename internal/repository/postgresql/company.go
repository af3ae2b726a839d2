package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type companyRepositoryImpl struct {
	db *database.DB
}

// GetByID implements company.SettingsRepository.
func (r *companyRepositoryImpl) GetByID(ctx context.Context, id string) (company.Company, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, settings, created_at, updated_at
		FROM companies
		WHERE id = $1
	`

	var (
		c   company.Company
		raw []byte
	)
	err := q.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &raw, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return company.Company{}, company.ErrCompanyNotFound
		}
		return company.Company{}, fmt.Errorf("failed to get company: %w", err)
	}

	if c.Settings, err = decodeSettings(raw); err != nil {
		return company.Company{}, err
	}

	return c, nil
}

// GetSettings implements company.SettingsRepository.
func (r *companyRepositoryImpl) GetSettings(ctx context.Context, id string) (company.Settings, error) {
	q := GetQuerier(ctx, r.db)

	var raw []byte
	err := q.QueryRow(ctx, `SELECT settings FROM companies WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return company.Settings{}, company.ErrCompanyNotFound
		}
		return company.Settings{}, fmt.Errorf("failed to get company settings: %w", err)
	}

	return decodeSettings(raw)
}

func decodeSettings(raw []byte) (company.Settings, error) {
	var settings company.Settings
	if len(raw) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return company.Settings{}, fmt.Errorf("%w: %v", company.ErrInvalidSettings, err)
	}
	return settings, nil
}

func NewCompanyRepository(db *database.DB) company.SettingsRepository {
	return &companyRepositoryImpl{db: db}
}
