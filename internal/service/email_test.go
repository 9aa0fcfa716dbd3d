package service

import (
	"context"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-portal-backend/internal/domain"
)

type fakeSender struct {
	sent     []*mail.SGMailV3
	response *rest.Response
	err      error
}

func (f *fakeSender) Send(m *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, m)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func TestSendGridEmailService_StatusChanged(t *testing.T) {
	sender := &fakeSender{response: &rest.Response{StatusCode: 202}}
	svc := newSendGridEmailService(sender, "noreply@example.com", "Review Portal")

	applicant := &domain.Profile{Email: "ann@example.com", FirstName: "Ann", LastName: "Applicant"}
	app := &domain.Application{ID: "a-1", Title: "Grant", Status: domain.ApplicationStatusUnderReview}

	require.NoError(t, svc.SendStatusChanged(context.Background(), applicant, app))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "Application update: Grant", msg.Subject)
	assert.Equal(t, "noreply@example.com", msg.From.Address)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "ann@example.com", msg.Personalizations[0].To[0].Address)
	assert.Equal(t, "Ann Applicant", msg.Personalizations[0].To[0].Name)
	assert.Contains(t, msg.Content[0].Value, "Under Review")
}

func TestSendGridEmailService_ReviewerDigest(t *testing.T) {
	sender := &fakeSender{response: &rest.Response{StatusCode: 202}}
	svc := newSendGridEmailService(sender, "noreply@example.com", "Review Portal")

	reviewer := &domain.Profile{Email: "rita@example.com", FirstName: "Rita"}
	apps := []domain.Application{
		{Title: "One", Status: domain.ApplicationStatusPending, SubmittedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Title: "Two", Status: domain.ApplicationStatusUnderReview, SubmittedAt: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)},
	}

	require.NoError(t, svc.SendReviewerDigest(context.Background(), reviewer, apps))
	body := sender.sent[0].Content[0].Value
	assert.Contains(t, body, "2 application(s)")
	assert.Contains(t, body, "- One (Pending), submitted 2026-01-02")
	assert.Contains(t, body, "- Two (Under Review), submitted 2026-01-03")
}

func TestSendGridEmailService_Errors(t *testing.T) {
	ctx := context.Background()
	app := &domain.Application{Title: "Grant", Status: domain.ApplicationStatusApproved}
	to := &domain.Profile{Email: "x@example.com"}

	t.Run("TransportError", func(t *testing.T) {
		svc := newSendGridEmailService(&fakeSender{err: assert.AnError}, "noreply@example.com", "Portal")
		err := svc.SendReviewerAssigned(ctx, to, app)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("HTTPError", func(t *testing.T) {
		svc := newSendGridEmailService(&fakeSender{response: &rest.Response{StatusCode: 401, Body: "unauthorized"}}, "noreply@example.com", "Portal")
		err := svc.SendAdminNotification(ctx, to, "subject", "body")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})

	t.Run("NoRecipientAddress", func(t *testing.T) {
		sender := &fakeSender{response: &rest.Response{StatusCode: 202}}
		svc := newSendGridEmailService(sender, "noreply@example.com", "Portal")
		err := svc.SendStatusChanged(ctx, &domain.Profile{}, app)
		assert.Error(t, err)
		assert.Empty(t, sender.sent)
	})
}

func TestNoopEmailService(t *testing.T) {
	svc := NewNoopEmailService()
	ctx := context.Background()
	p := &domain.Profile{Email: "x@example.com"}
	app := &domain.Application{ID: "a-1"}

	assert.NoError(t, svc.SendReviewerAssigned(ctx, p, app))
	assert.NoError(t, svc.SendStatusChanged(ctx, p, app))
	assert.NoError(t, svc.SendReviewerDigest(ctx, p, nil))
	assert.NoError(t, svc.SendAdminNotification(ctx, p, "s", "b"))
}
