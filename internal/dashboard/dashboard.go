// Package dashboard selects and builds the per-role dashboard views.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/service"
	"review-portal-backend/internal/session"
)

type Kind string

const (
	KindAdmin      Kind = "admin"
	KindReviewer   Kind = "reviewer"
	KindApplicant  Kind = "applicant"
	KindUnassigned Kind = "unassigned"
)

const (
	UnassignedTitle   = "Welcome to the Review Portal"
	UnassignedMessage = "Your role is being configured. Please contact an administrator."
)

// For picks the dashboard for a session. Sessions without a profile or with
// an unknown role get the unassigned view.
func For(sess *session.Session) Kind {
	switch sess.Role() {
	case domain.RoleAdmin:
		return KindAdmin
	case domain.RoleReviewer:
		return KindReviewer
	case domain.RoleApplicant:
		return KindApplicant
	default:
		return KindUnassigned
	}
}

// View is one of AdminView, ReviewerView, ApplicantView or UnassignedView.
type View interface {
	Kind() Kind
	isView()
}

type AdminStats struct {
	TotalApplications int `json:"total_applications"`
	Pending           int `json:"pending"`
	UnderReview       int `json:"under_review"`
	Approved          int `json:"approved"`
	TotalUsers        int `json:"total_users"`
}

type AdminView struct {
	Stats        AdminStats           `json:"stats"`
	Applications []domain.Application `json:"applications"`
	Profiles     []domain.Profile     `json:"profiles"`
	Reviewers    []domain.Profile     `json:"reviewers"`
}

type ReviewerStats struct {
	TotalAssigned int `json:"total_assigned"`
	Pending       int `json:"pending"`
	UnderReview   int `json:"under_review"`
	Completed     int `json:"completed"`
}

type ReviewerView struct {
	Stats        ReviewerStats        `json:"stats"`
	Applications []domain.Application `json:"applications"`
}

type ApplicantStats struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	UnderReview int `json:"under_review"`
	Approved    int `json:"approved"`
	Rejected    int `json:"rejected"`
}

type ApplicantView struct {
	Stats        ApplicantStats       `json:"stats"`
	Applications []domain.Application `json:"applications"`
}

type UnassignedView struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (AdminView) Kind() Kind      { return KindAdmin }
func (ReviewerView) Kind() Kind   { return KindReviewer }
func (ApplicantView) Kind() Kind  { return KindApplicant }
func (UnassignedView) Kind() Kind { return KindUnassigned }

func (AdminView) isView()      {}
func (ReviewerView) isView()   {}
func (ApplicantView) isView()  {}
func (UnassignedView) isView() {}

func countStatuses(apps []domain.Application) map[domain.ApplicationStatus]int {
	counts := make(map[domain.ApplicationStatus]int, len(domain.ApplicationStatuses))
	for _, app := range apps {
		counts[app.Status]++
	}
	return counts
}

func NewAdminView(apps []domain.Application, profiles []domain.Profile) AdminView {
	counts := countStatuses(apps)
	reviewers := make([]domain.Profile, 0)
	for _, p := range profiles {
		if p.Role == domain.RoleReviewer {
			reviewers = append(reviewers, p)
		}
	}
	return AdminView{
		Stats: AdminStats{
			TotalApplications: len(apps),
			Pending:           counts[domain.ApplicationStatusPending],
			UnderReview:       counts[domain.ApplicationStatusUnderReview],
			Approved:          counts[domain.ApplicationStatusApproved],
			TotalUsers:        len(profiles),
		},
		Applications: apps,
		Profiles:     profiles,
		Reviewers:    reviewers,
	}
}

func NewReviewerView(apps []domain.Application) ReviewerView {
	counts := countStatuses(apps)
	return ReviewerView{
		Stats: ReviewerStats{
			TotalAssigned: len(apps),
			Pending:       counts[domain.ApplicationStatusPending],
			UnderReview:   counts[domain.ApplicationStatusUnderReview],
			Completed:     counts[domain.ApplicationStatusApproved] + counts[domain.ApplicationStatusRejected],
		},
		Applications: apps,
	}
}

func NewApplicantView(apps []domain.Application) ApplicantView {
	counts := countStatuses(apps)
	return ApplicantView{
		Stats: ApplicantStats{
			Total:       len(apps),
			Pending:     counts[domain.ApplicationStatusPending],
			UnderReview: counts[domain.ApplicationStatusUnderReview],
			Approved:    counts[domain.ApplicationStatusApproved],
			Rejected:    counts[domain.ApplicationStatusRejected],
		},
		Applications: apps,
	}
}

func NewUnassignedView() UnassignedView {
	return UnassignedView{Title: UnassignedTitle, Message: UnassignedMessage}
}

// Build loads the data behind the caller's dashboard through the stores.
func Build(ctx context.Context, sess *session.Session, deps service.Dependencies) (View, error) {
	kind := For(sess)
	if kind == KindUnassigned {
		return NewUnassignedView(), nil
	}

	apps, err := service.NewApplicationStore(sess, deps).List(ctx)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindAdmin:
		profiles, err := service.NewProfileStore(sess, deps).List(ctx)
		if err != nil {
			return nil, err
		}
		return NewAdminView(apps, profiles), nil
	case KindReviewer:
		return NewReviewerView(apps), nil
	default:
		return NewApplicantView(apps), nil
	}
}

type envelope struct {
	Kind Kind            `json:"kind"`
	View json.RawMessage `json:"view"`
}

// Encode wraps a view with its kind so Decode can restore the variant.
func Encode(v View) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: v.Kind(), View: body})
}

func Decode(data []byte) (View, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid dashboard payload: %w", err)
	}

	var (
		v   View
		err error
	)
	switch env.Kind {
	case KindAdmin:
		var av AdminView
		err = json.Unmarshal(env.View, &av)
		v = av
	case KindReviewer:
		var rv ReviewerView
		err = json.Unmarshal(env.View, &rv)
		v = rv
	case KindApplicant:
		var apv ApplicantView
		err = json.Unmarshal(env.View, &apv)
		v = apv
	case KindUnassigned:
		var uv UnassignedView
		err = json.Unmarshal(env.View, &uv)
		v = uv
	default:
		return nil, fmt.Errorf("unknown dashboard kind %q", env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s dashboard: %w", env.Kind, err)
	}
	return v, nil
}
