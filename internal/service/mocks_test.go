package service_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/realtime"
	"review-portal-backend/internal/repository/memory"
	"review-portal-backend/internal/service"
	"review-portal-backend/internal/session"
)

func init() {
	logger.InitializeWithWriter("error", "text", io.Discard)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendReviewerAssigned(ctx context.Context, reviewer *domain.Profile, app *domain.Application) error {
	args := m.Called(ctx, reviewer, app)
	return args.Error(0)
}
func (m *MockEmailService) SendStatusChanged(ctx context.Context, applicant *domain.Profile, app *domain.Application) error {
	args := m.Called(ctx, applicant, app)
	return args.Error(0)
}
func (m *MockEmailService) SendReviewerDigest(ctx context.Context, reviewer *domain.Profile, apps []domain.Application) error {
	args := m.Called(ctx, reviewer, apps)
	return args.Error(0)
}
func (m *MockEmailService) SendAdminNotification(ctx context.Context, admin *domain.Profile, subject, body string) error {
	args := m.Called(ctx, admin, subject, body)
	return args.Error(0)
}

// MockInvalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// portal is an in-memory backend with one profile per role.
type portal struct {
	db        *memory.Store
	broker    *realtime.Broker
	admin     domain.Profile
	reviewer  domain.Profile
	reviewer2 domain.Profile
	applicant domain.Profile
	other     domain.Profile
}

func newPortal() *portal {
	broker := realtime.NewBroker(16)
	db := memory.New(broker)
	return &portal{
		db:        db,
		broker:    broker,
		admin:     db.AddProfile(domain.Profile{Email: "admin@example.com", FirstName: "Ada", LastName: "Admin", Role: domain.RoleAdmin}),
		reviewer:  db.AddProfile(domain.Profile{Email: "rita@example.com", FirstName: "Rita", LastName: "Reviewer", Role: domain.RoleReviewer}),
		reviewer2: db.AddProfile(domain.Profile{Email: "rob@example.com", FirstName: "Rob", LastName: "Reviewer", Role: domain.RoleReviewer}),
		applicant: db.AddProfile(domain.Profile{Email: "ann@example.com", FirstName: "Ann", LastName: "Applicant", Role: domain.RoleApplicant}),
		other:     db.AddProfile(domain.Profile{Email: "otto@example.com", FirstName: "Otto", LastName: "Other", Role: domain.RoleApplicant}),
	}
}

func (p *portal) deps() service.Dependencies {
	return service.Dependencies{
		Profiles:     p.db.Profiles(),
		Applications: p.db.Applications(),
		Comments:     p.db.Comments(),
		Feed:         p.broker,
	}
}

func sessionFor(p domain.Profile) *session.Session {
	return session.New(p.UserID, &p)
}
