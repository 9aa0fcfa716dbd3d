package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
)

// mailSender is satisfied by *sendgrid.Client.
type mailSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// mailTransport delivers one already composed plain-text message.
type mailTransport interface {
	send(ctx context.Context, to *domain.Profile, subject, plainText string) error
}

// mailer composes portal notifications and hands them to a transport.
type mailer struct {
	transport mailTransport
}

type sendGridEmailService struct {
	client    mailSender
	fromEmail string
	fromName  string
}

func NewSendGridEmailService(apiKey, fromEmail, fromName string) EmailService {
	return newSendGridEmailService(sendgrid.NewSendClient(apiKey), fromEmail, fromName)
}

func newSendGridEmailService(client mailSender, fromEmail, fromName string) *mailer {
	return &mailer{transport: &sendGridEmailService{client: client, fromEmail: fromEmail, fromName: fromName}}
}

func (s *sendGridEmailService) send(ctx context.Context, to *domain.Profile, subject, plainText string) error {
	if to == nil || to.Email == "" {
		return fmt.Errorf("recipient has no email address")
	}
	logger.ExternalServiceCall("sendgrid", "send", "to", to.Email, "subject", subject)

	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(to.FullName(), to.Email)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlBody(plainText))

	response, err := s.client.Send(message)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
		logger.ExternalServiceResult("sendgrid", "send", err, "to", to.Email)
		return err
	}
	if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "send", err, "to", to.Email)
		return err
	}

	logger.ExternalServiceResult("sendgrid", "send", nil, "to", to.Email)
	return nil
}

func (m *mailer) SendReviewerAssigned(ctx context.Context, reviewer *domain.Profile, app *domain.Application) error {
	subject := fmt.Sprintf("New application assigned: %s", app.Title)
	body := fmt.Sprintf("Hello %s,\n\nThe application %q has been assigned to you for review.\nCurrent status: %s.\n\nBest regards,\nThe Review Portal Team",
		reviewer.FullName(), app.Title, app.Status.Label())
	return m.transport.send(ctx, reviewer, subject, body)
}

func (m *mailer) SendStatusChanged(ctx context.Context, applicant *domain.Profile, app *domain.Application) error {
	subject := fmt.Sprintf("Application update: %s", app.Title)
	body := fmt.Sprintf("Hello %s,\n\nThe status of your application %q is now: %s.\n\nBest regards,\nThe Review Portal Team",
		applicant.FullName(), app.Title, app.Status.Label())
	return m.transport.send(ctx, applicant, subject, body)
}

func (m *mailer) SendReviewerDigest(ctx context.Context, reviewer *domain.Profile, apps []domain.Application) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nYou have %d application(s) awaiting a decision:\n\n", reviewer.FullName(), len(apps))
	for _, app := range apps {
		fmt.Fprintf(&b, "- %s (%s), submitted %s\n", app.Title, app.Status.Label(), app.SubmittedAt.Format("2006-01-02"))
	}
	b.WriteString("\nBest regards,\nThe Review Portal Team")
	return m.transport.send(ctx, reviewer, "Your daily review digest", b.String())
}

func (m *mailer) SendAdminNotification(ctx context.Context, admin *domain.Profile, subject, body string) error {
	return m.transport.send(ctx, admin, subject, body)
}

func htmlBody(plainText string) string {
	return "<html><body><p>" + strings.ReplaceAll(html.EscapeString(plainText), "\n", "<br>") + "</p></body></html>"
}

type noopEmailService struct{}

// NewNoopEmailService is used when no email provider is configured.
func NewNoopEmailService() EmailService {
	return noopEmailService{}
}

func (noopEmailService) SendReviewerAssigned(ctx context.Context, reviewer *domain.Profile, app *domain.Application) error {
	logger.Debug("Email disabled, skipping reviewer assignment", "to", reviewer.Email, "applicationID", app.ID)
	return nil
}

func (noopEmailService) SendStatusChanged(ctx context.Context, applicant *domain.Profile, app *domain.Application) error {
	logger.Debug("Email disabled, skipping status change", "to", applicant.Email, "applicationID", app.ID)
	return nil
}

func (noopEmailService) SendReviewerDigest(ctx context.Context, reviewer *domain.Profile, apps []domain.Application) error {
	logger.Debug("Email disabled, skipping reviewer digest", "to", reviewer.Email, "count", len(apps))
	return nil
}

func (noopEmailService) SendAdminNotification(ctx context.Context, admin *domain.Profile, subject, body string) error {
	logger.Debug("Email disabled, skipping admin notification", "to", admin.Email, "subject", subject)
	return nil
}
