package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/repository"
)

const applicationColumns = `id, applicant_id, title, description, status, assigned_reviewer_id, submitted_at, updated_at`

// applicationSelect joins the applicant and reviewer name summaries.
const applicationSelect = `SELECT a.id, a.applicant_id, a.title, a.description, a.status, a.assigned_reviewer_id,
       a.submitted_at, a.updated_at,
       ap.first_name, ap.last_name, ap.email,
       rv.first_name, rv.last_name, rv.email
  FROM applications a
  JOIN profiles ap ON ap.id = a.applicant_id
  LEFT JOIN profiles rv ON rv.id = a.assigned_reviewer_id`

type applicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) repository.ApplicationRepository {
	return &applicationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*domain.Application, error) {
	a := &domain.Application{}
	var status string
	var reviewerID sql.NullString
	if err := row.Scan(&a.ID, &a.ApplicantID, &a.Title, &a.Description, &status, &reviewerID, &a.SubmittedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = domain.ApplicationStatus(status)
	if reviewerID.Valid {
		a.AssignedReviewerID = &reviewerID.String
	}
	return a, nil
}

func scanApplicationWithPeople(row rowScanner) (*domain.Application, error) {
	a := &domain.Application{}
	var status string
	var reviewerID sql.NullString
	applicant := &domain.PersonSummary{}
	var rvFirst, rvLast, rvEmail sql.NullString
	err := row.Scan(&a.ID, &a.ApplicantID, &a.Title, &a.Description, &status, &reviewerID,
		&a.SubmittedAt, &a.UpdatedAt,
		&applicant.FirstName, &applicant.LastName, &applicant.Email,
		&rvFirst, &rvLast, &rvEmail)
	if err != nil {
		return nil, err
	}
	a.Status = domain.ApplicationStatus(status)
	a.Applicant = applicant
	if reviewerID.Valid {
		a.AssignedReviewerID = &reviewerID.String
		a.AssignedReviewer = &domain.PersonSummary{
			FirstName: rvFirst.String,
			LastName:  rvLast.String,
			Email:     rvEmail.String,
		}
	}
	return a, nil
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application) error {
	logger.EnterMethod("applicationRepository.Create", "applicantID", app.ApplicantID)
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = domain.ApplicationStatusPending
	}
	query := `INSERT INTO applications (id, applicant_id, title, description, status)
	          VALUES ($1, $2, $3, $4, $5) RETURNING submitted_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, app.ID, app.ApplicantID, app.Title, app.Description, string(app.Status)).
		Scan(&app.SubmittedAt, &app.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("applicationRepository.Create", err, "applicantID", app.ApplicantID)
		return err
	}
	logger.ExitMethod("applicationRepository.Create", "applicationID", app.ID)
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	logger.DatabaseCall("SELECT", "applications", "id", id)
	a, err := scanApplicationWithPeople(r.db.QueryRowContext(ctx, applicationSelect+` WHERE a.id = $1`, id))
	if isNotFound(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "id", id)
		return nil, err
	}
	return a, nil
}

func (r *applicationRepository) List(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	logger.EnterMethod("applicationRepository.List", "applicantID", filter.ApplicantID, "reviewerID", filter.AssignedReviewerID)

	var where []string
	var args []any
	if filter.ApplicantID != "" {
		args = append(args, filter.ApplicantID)
		where = append(where, "a.applicant_id = $"+strconv.Itoa(len(args)))
	}
	if filter.AssignedReviewerID != "" {
		args = append(args, filter.AssignedReviewerID)
		where = append(where, "a.assigned_reviewer_id = $"+strconv.Itoa(len(args)))
	}

	query := applicationSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY a.submitted_at DESC`

	apps, err := r.query(ctx, query, args...)
	if err != nil {
		logger.ExitMethodWithError("applicationRepository.List", err)
		return nil, err
	}
	logger.ExitMethod("applicationRepository.List", "count", len(apps))
	return apps, nil
}

func (r *applicationRepository) ListUnassigned(ctx context.Context, status domain.ApplicationStatus) ([]domain.Application, error) {
	logger.EnterMethod("applicationRepository.ListUnassigned", "status", status)
	query := applicationSelect + ` WHERE a.assigned_reviewer_id IS NULL AND a.status = $1 ORDER BY a.submitted_at ASC`
	apps, err := r.query(ctx, query, string(status))
	if err != nil {
		logger.ExitMethodWithError("applicationRepository.ListUnassigned", err)
		return nil, err
	}
	logger.ExitMethod("applicationRepository.ListUnassigned", "count", len(apps))
	return apps, nil
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	logger.DatabaseCall("UPDATE", "applications", "id", id, "status", status)
	query := `UPDATE applications SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + applicationColumns
	return r.update(ctx, query, id, string(status), id)
}

func (r *applicationRepository) AssignReviewer(ctx context.Context, id, reviewerID string) (*domain.Application, error) {
	logger.DatabaseCall("UPDATE", "applications", "id", id, "reviewerID", reviewerID)
	query := `UPDATE applications SET assigned_reviewer_id = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + applicationColumns
	return r.update(ctx, query, id, reviewerID, id)
}

func (r *applicationRepository) update(ctx context.Context, query, id string, args ...any) (*domain.Application, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, args...))
	if isNotFound(err) {
		logger.DatabaseResult("UPDATE", 0, repository.ErrNotFound, "id", id)
		return nil, repository.ErrNotFound
	}
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "id", id)
		return nil, err
	}
	logger.DatabaseResult("UPDATE", 1, nil, "id", id)
	return a, nil
}

func (r *applicationRepository) query(ctx context.Context, query string, args ...any) ([]domain.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		a, err := scanApplicationWithPeople(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}
