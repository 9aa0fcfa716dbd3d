package postgres

import (
	"context"
	"database/sql"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/repository"
)

const profileColumns = `id, user_id, email, first_name, last_name, role, created_at, updated_at`

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	p := &domain.Profile{}
	var role string
	if err := row.Scan(&p.ID, &p.UserID, &p.Email, &p.FirstName, &p.LastName, &role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Role = domain.Role(role)
	return p, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	logger.DatabaseCall("SELECT", "profiles", "id", id)
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if isNotFound(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "id", id)
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	logger.DatabaseCall("SELECT", "profiles", "user_id", userID)
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if isNotFound(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "user_id", userID)
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	logger.EnterMethod("profileRepository.List")
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC`
	profiles, err := r.query(ctx, query)
	if err != nil {
		logger.ExitMethodWithError("profileRepository.List", err)
		return nil, err
	}
	logger.ExitMethod("profileRepository.List", "count", len(profiles))
	return profiles, nil
}

func (r *profileRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	logger.EnterMethod("profileRepository.ListByRole", "role", role)
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE role = $1 ORDER BY created_at DESC`
	profiles, err := r.query(ctx, query, string(role))
	if err != nil {
		logger.ExitMethodWithError("profileRepository.ListByRole", err, "role", role)
		return nil, err
	}
	logger.ExitMethod("profileRepository.ListByRole", "role", role, "count", len(profiles))
	return profiles, nil
}

func (r *profileRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.Profile, error) {
	logger.DatabaseCall("UPDATE", "profiles", "id", id, "role", role)
	query := `UPDATE profiles SET role = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + profileColumns
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, string(role), id))
	if isNotFound(err) {
		logger.DatabaseResult("UPDATE", 0, repository.ErrNotFound, "id", id)
		return nil, repository.ErrNotFound
	}
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "id", id)
		return nil, err
	}
	logger.DatabaseResult("UPDATE", 1, nil, "id", id)
	return p, nil
}

func (r *profileRepository) query(ctx context.Context, query string, args ...any) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}
