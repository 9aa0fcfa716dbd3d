package service

import (
	"context"
	"errors"
	"strings"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/realtime"
	"review-portal-backend/internal/repository"
	"review-portal-backend/internal/session"
)

const commentStoreName = "comments"

type commentStore struct {
	*snapshot[domain.Comment]
	applicationID string
	sess          *session.Session
	deps          Dependencies
}

// NewCommentStore builds the comment thread of one application. Its change
// subscription only sees comments on that application.
func NewCommentStore(sess *session.Session, applicationID string, deps Dependencies) CommentStore {
	s := &commentStore{applicationID: applicationID, sess: sess, deps: deps}
	s.snapshot = &snapshot[domain.Comment]{
		name:         commentStoreName,
		fetchMessage: "Failed to fetch comments",
		log:          logger.WithStore(commentStoreName, sess.ProfileID()).With("application_id", applicationID),
		feed:         deps.Feed,
		filter:       realtime.Filter{Table: domain.TableApplicationComments, ApplicationID: applicationID},
		fetch:        s.fetch,
	}
	return s
}

func (s *commentStore) ApplicationID() string {
	return s.applicationID
}

// fetch returns the thread oldest first. Admins and reviewers can read any
// thread; applicants only those on their own applications.
func (s *commentStore) fetch(ctx context.Context) ([]domain.Comment, error) {
	switch s.sess.Role() {
	case domain.RoleAdmin, domain.RoleReviewer:
	case domain.RoleApplicant:
		app, err := s.deps.Applications.GetByID(ctx, s.applicationID)
		if errors.Is(err, repository.ErrNotFound) {
			return []domain.Comment{}, nil
		}
		if err != nil {
			return nil, err
		}
		if app.ApplicantID != s.sess.ProfileID() {
			return []domain.Comment{}, nil
		}
	default:
		return []domain.Comment{}, nil
	}

	comments, err := s.deps.Comments.ListByApplication(ctx, s.applicationID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

func (s *commentStore) List(ctx context.Context) ([]domain.Comment, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

func (s *commentStore) Create(ctx context.Context, text string) (c *domain.Comment, err error) {
	logger.EnterMethod("commentStore.Create", "applicationID", s.applicationID)
	defer func() { recordOperation(commentStoreName, "create", err) }()

	const msg = "Failed to add comment"
	switch {
	case s.sess.Profile == nil:
		return nil, opError("create", msg, ErrNoSession)
	case !s.sess.Role().CanReview():
		return nil, opError("create", "Only reviewers and admins can add comments", ErrForbidden)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, opError("create", "Please enter a comment", ErrBlankComment)
	}

	c = &domain.Comment{
		ApplicationID: s.applicationID,
		ReviewerID:    s.sess.ProfileID(),
		Comment:       text,
	}
	if err := s.deps.Comments.Create(ctx, c); err != nil {
		logger.ExitMethodWithError("commentStore.Create", err, "applicationID", s.applicationID)
		return nil, opError("create", msg, err)
	}

	s.afterMutation(ctx)
	logger.ExitMethod("commentStore.Create", "commentID", c.ID)
	return c, nil
}
