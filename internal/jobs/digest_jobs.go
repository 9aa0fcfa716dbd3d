package jobs

import (
	"context"
	"fmt"
	"strings"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
)

// SendReviewerDigests emails each reviewer the assigned applications that
// still await a decision. Reviewers with nothing open get no email.
func (jr *JobRunner) SendReviewerDigests() error {
	return jr.runWithRecovery(JobReviewerDigest, func(ctx context.Context) error {
		reviewers, err := jr.profiles.ListByRole(ctx, domain.RoleReviewer)
		if err != nil {
			return fmt.Errorf("failed to list reviewers: %w", err)
		}

		sent, failed := 0, 0
		for i := range reviewers {
			reviewer := &reviewers[i]
			apps, err := jr.applications.List(ctx, domain.ApplicationFilter{AssignedReviewerID: reviewer.ID})
			if err != nil {
				logger.Error("Failed to list assigned applications", "reviewer_id", reviewer.ID, "error", err)
				failed++
				continue
			}

			open := openApplications(apps)
			if len(open) == 0 {
				continue
			}

			if err := jr.email.SendReviewerDigest(ctx, reviewer, open); err != nil {
				logger.Error("Failed to send reviewer digest", "reviewer_id", reviewer.ID, "email", reviewer.Email, "error", err)
				failed++
				continue
			}
			sent++
			logger.Debug("Sent reviewer digest", "reviewer_id", reviewer.ID, "applications", len(open))
		}

		logger.Info("Reviewer digests processed", "reviewers", len(reviewers), "sent", sent, "failed", failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d reviewer digests failed", failed, len(reviewers))
		}
		return nil
	})
}

// SendUnassignedReport tells every admin which pending applications still
// have no reviewer.
func (jr *JobRunner) SendUnassignedReport() error {
	return jr.runWithRecovery(JobUnassignedReport, func(ctx context.Context) error {
		apps, err := jr.applications.ListUnassigned(ctx, domain.ApplicationStatusPending)
		if err != nil {
			return fmt.Errorf("failed to list unassigned applications: %w", err)
		}
		if len(apps) == 0 {
			logger.Info("No unassigned applications, skipping report")
			return nil
		}

		admins, err := jr.profiles.ListByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return fmt.Errorf("failed to list admins: %w", err)
		}

		subject, body := unassignedReport(apps)
		failed := 0
		for i := range admins {
			if err := jr.email.SendAdminNotification(ctx, &admins[i], subject, body); err != nil {
				logger.Error("Failed to send unassigned report", "admin_id", admins[i].ID, "error", err)
				failed++
			}
		}

		logger.Info("Unassigned report processed", "applications", len(apps), "admins", len(admins), "failed", failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d unassigned reports failed", failed, len(admins))
		}
		return nil
	})
}

func openApplications(apps []domain.Application) []domain.Application {
	open := make([]domain.Application, 0, len(apps))
	for _, app := range apps {
		if app.Status == domain.ApplicationStatusPending || app.Status == domain.ApplicationStatusUnderReview {
			open = append(open, app)
		}
	}
	return open
}

func unassignedReport(apps []domain.Application) (string, string) {
	subject := fmt.Sprintf("%d pending application(s) without a reviewer", len(apps))

	var b strings.Builder
	fmt.Fprintf(&b, "The following %d pending application(s) have not been assigned a reviewer:\n\n", len(apps))
	for _, app := range apps {
		applicant := "unknown applicant"
		if app.Applicant != nil {
			applicant = app.Applicant.Email
		}
		fmt.Fprintf(&b, "- %s by %s, submitted %s\n", app.Title, applicant, app.SubmittedAt.Format("2006-01-02"))
	}
	b.WriteString("\nAssign reviewers from the admin dashboard.")
	return subject, b.String()
}
