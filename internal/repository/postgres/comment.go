package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/repository"
)

type commentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, c *domain.Comment) error {
	logger.EnterMethod("commentRepository.Create", "applicationID", c.ApplicationID, "reviewerID", c.ReviewerID)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query := `INSERT INTO application_comments (id, application_id, reviewer_id, comment)
	          VALUES ($1, $2, $3, $4) RETURNING created_at`
	if err := r.db.QueryRowContext(ctx, query, c.ID, c.ApplicationID, c.ReviewerID, c.Comment).Scan(&c.CreatedAt); err != nil {
		if isNotFound(err) {
			err = repository.ErrNotFound
		}
		logger.ExitMethodWithError("commentRepository.Create", err, "applicationID", c.ApplicationID)
		return err
	}
	logger.ExitMethod("commentRepository.Create", "commentID", c.ID)
	return nil
}

func (r *commentRepository) ListByApplication(ctx context.Context, applicationID string) ([]domain.Comment, error) {
	logger.EnterMethod("commentRepository.ListByApplication", "applicationID", applicationID)
	query := `SELECT c.id, c.application_id, c.reviewer_id, c.comment, c.created_at,
	                 p.first_name, p.last_name, p.email
	            FROM application_comments c
	            LEFT JOIN profiles p ON p.id = c.reviewer_id
	           WHERE c.application_id = $1
	           ORDER BY c.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		logger.ExitMethodWithError("commentRepository.ListByApplication", err, "applicationID", applicationID)
		return nil, err
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var first, last, email sql.NullString
		if err := rows.Scan(&c.ID, &c.ApplicationID, &c.ReviewerID, &c.Comment, &c.CreatedAt, &first, &last, &email); err != nil {
			logger.ExitMethodWithError("commentRepository.ListByApplication", err, "applicationID", applicationID)
			return nil, err
		}
		if first.Valid || last.Valid || email.Valid {
			c.Reviewer = &domain.PersonSummary{FirstName: first.String, LastName: last.String, Email: email.String}
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		logger.ExitMethodWithError("commentRepository.ListByApplication", err, "applicationID", applicationID)
		return nil, err
	}

	logger.ExitMethod("commentRepository.ListByApplication", "applicationID", applicationID, "count", len(comments))
	return comments, nil
}
