package service

import (
	"context"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/realtime"
	"review-portal-backend/internal/repository"
)

// ApplicationStore is the caller's role-filtered view of applications.
type ApplicationStore interface {
	Snapshot() []domain.Application
	Loading() bool
	Refresh(ctx context.Context) error
	Watch(ctx context.Context, onRefresh func()) error
	Close()

	List(ctx context.Context) ([]domain.Application, error)
	Create(ctx context.Context, title, description string) (*domain.Application, error)
	UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error)
	AssignReviewer(ctx context.Context, id, reviewerID string) (*domain.Application, error)
}

// ProfileStore lists profiles for admins and manages roles.
type ProfileStore interface {
	Snapshot() []domain.Profile
	Loading() bool
	Refresh(ctx context.Context) error
	Watch(ctx context.Context, onRefresh func()) error
	Close()

	List(ctx context.Context) ([]domain.Profile, error)
	UpdateUserRole(ctx context.Context, id string, role domain.Role) (*domain.Profile, error)
	Reviewers() []domain.Profile
}

// CommentStore holds the comments of a single application.
type CommentStore interface {
	ApplicationID() string
	Snapshot() []domain.Comment
	Loading() bool
	Refresh(ctx context.Context) error
	Watch(ctx context.Context, onRefresh func()) error
	Close()

	List(ctx context.Context) ([]domain.Comment, error)
	Create(ctx context.Context, comment string) (*domain.Comment, error)
}

type EmailService interface {
	SendReviewerAssigned(ctx context.Context, reviewer *domain.Profile, app *domain.Application) error
	SendStatusChanged(ctx context.Context, applicant *domain.Profile, app *domain.Application) error
	SendReviewerDigest(ctx context.Context, reviewer *domain.Profile, apps []domain.Application) error
	SendAdminNotification(ctx context.Context, admin *domain.Profile, subject, body string) error
}

// Feed hands out change subscriptions. *realtime.Broker implements it.
type Feed interface {
	Subscribe(filter realtime.Filter) *realtime.Subscription
}

// ProfileInvalidator drops cached profiles after a role change.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Dependencies are shared by every store. Feed, Email and Cache are optional.
type Dependencies struct {
	Profiles     repository.ProfileRepository
	Applications repository.ApplicationRepository
	Comments     repository.CommentRepository
	Feed         Feed
	Email        EmailService
	Cache        ProfileInvalidator
}

func (d Dependencies) email() EmailService {
	if d.Email == nil {
		return NewNoopEmailService()
	}
	return d.Email
}
