package service

import (
	"context"
	"strings"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/realtime"
	"review-portal-backend/internal/session"
)

const applicationStoreName = "applications"

type applicationStore struct {
	*snapshot[domain.Application]
	sess *session.Session
	deps Dependencies
}

// NewApplicationStore builds the application view for one session. Nothing
// is fetched until Refresh, List or Watch is called.
func NewApplicationStore(sess *session.Session, deps Dependencies) ApplicationStore {
	s := &applicationStore{sess: sess, deps: deps}
	s.snapshot = &snapshot[domain.Application]{
		name:         applicationStoreName,
		fetchMessage: "Failed to fetch applications",
		log:          logger.WithStore(applicationStoreName, sess.ProfileID()),
		feed:         deps.Feed,
		filter:       realtime.Filter{Table: domain.TableApplications},
		fetch:        s.fetch,
	}
	return s
}

// fetch applies the role filter: admins see every row, applicants their
// own, reviewers the rows assigned to them. Anyone else sees nothing.
func (s *applicationStore) fetch(ctx context.Context) ([]domain.Application, error) {
	var filter domain.ApplicationFilter
	switch s.sess.Role() {
	case domain.RoleAdmin:
	case domain.RoleApplicant:
		filter.ApplicantID = s.sess.ProfileID()
	case domain.RoleReviewer:
		filter.AssignedReviewerID = s.sess.ProfileID()
	default:
		return []domain.Application{}, nil
	}
	apps, err := s.deps.Applications.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []domain.Application{}
	}
	return apps, nil
}

func (s *applicationStore) List(ctx context.Context) ([]domain.Application, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

func (s *applicationStore) Create(ctx context.Context, title, description string) (app *domain.Application, err error) {
	logger.EnterMethod("applicationStore.Create", "profileID", s.sess.ProfileID())
	defer func() { recordOperation(applicationStoreName, "create", err) }()

	const msg = "Failed to create application"
	switch {
	case s.sess.Profile == nil:
		return nil, opError("create", msg, ErrNoSession)
	case s.sess.Role() != domain.RoleApplicant:
		return nil, opError("create", msg, ErrForbidden)
	}

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, opError("create", "Please fill in all fields", ErrBlankFields)
	}

	app = &domain.Application{
		ApplicantID: s.sess.ProfileID(),
		Title:       title,
		Description: description,
		Status:      domain.ApplicationStatusPending,
	}
	if err := s.deps.Applications.Create(ctx, app); err != nil {
		logger.ExitMethodWithError("applicationStore.Create", err)
		return nil, opError("create", msg, err)
	}

	s.afterMutation(ctx)
	logger.ExitMethod("applicationStore.Create", "applicationID", app.ID)
	return app, nil
}

// UpdateStatus is open to admins and to any reviewer. Transitions are not
// constrained: every status is reachable from every other.
func (s *applicationStore) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (app *domain.Application, err error) {
	logger.EnterMethod("applicationStore.UpdateStatus", "applicationID", id, "status", status)
	defer func() { recordOperation(applicationStoreName, "update_status", err) }()

	const msg = "Failed to update status"
	switch {
	case s.sess.Profile == nil:
		return nil, opError("update_status", msg, ErrNoSession)
	case !s.sess.Role().CanReview():
		return nil, opError("update_status", msg, ErrForbidden)
	case !status.Valid():
		return nil, opError("update_status", msg, ErrInvalidStatus)
	}

	app, err = s.deps.Applications.UpdateStatus(ctx, id, status)
	if err != nil {
		logger.ExitMethodWithError("applicationStore.UpdateStatus", err, "applicationID", id)
		return nil, opError("update_status", msg, err)
	}

	s.notifyApplicant(ctx, app)
	s.afterMutation(ctx)
	logger.ExitMethod("applicationStore.UpdateStatus", "applicationID", id, "status", app.Status)
	return app, nil
}

// AssignReviewer is admin-only. The assignee must hold the reviewer role;
// the application status is left as is.
func (s *applicationStore) AssignReviewer(ctx context.Context, id, reviewerID string) (app *domain.Application, err error) {
	logger.EnterMethod("applicationStore.AssignReviewer", "applicationID", id, "reviewerID", reviewerID)
	defer func() { recordOperation(applicationStoreName, "assign_reviewer", err) }()

	const msg = "Failed to assign reviewer"
	switch {
	case s.sess.Profile == nil:
		return nil, opError("assign_reviewer", msg, ErrNoSession)
	case s.sess.Role() != domain.RoleAdmin:
		return nil, opError("assign_reviewer", msg, ErrForbidden)
	case strings.TrimSpace(reviewerID) == "":
		return nil, opError("assign_reviewer", msg, ErrNotReviewer)
	}

	reviewer, err := s.deps.Profiles.GetByID(ctx, reviewerID)
	if err != nil {
		logger.ExitMethodWithError("applicationStore.AssignReviewer", err, "reviewerID", reviewerID)
		return nil, opError("assign_reviewer", msg, err)
	}
	if reviewer.Role != domain.RoleReviewer {
		return nil, opError("assign_reviewer", msg, ErrNotReviewer)
	}

	app, err = s.deps.Applications.AssignReviewer(ctx, id, reviewerID)
	if err != nil {
		logger.ExitMethodWithError("applicationStore.AssignReviewer", err, "applicationID", id)
		return nil, opError("assign_reviewer", msg, err)
	}

	if err := s.deps.email().SendReviewerAssigned(ctx, reviewer, app); err != nil {
		s.log.Warn("Failed to send reviewer assignment email", "reviewerID", reviewerID, "error", err)
	}
	s.afterMutation(ctx)
	logger.ExitMethod("applicationStore.AssignReviewer", "applicationID", id)
	return app, nil
}

func (s *applicationStore) notifyApplicant(ctx context.Context, app *domain.Application) {
	applicant, err := s.deps.Profiles.GetByID(ctx, app.ApplicantID)
	if err != nil {
		s.log.Warn("Failed to load applicant for status email", "applicantID", app.ApplicantID, "error", err)
		return
	}
	if err := s.deps.email().SendStatusChanged(ctx, applicant, app); err != nil {
		s.log.Warn("Failed to send status change email", "applicantID", app.ApplicantID, "error", err)
	}
}
