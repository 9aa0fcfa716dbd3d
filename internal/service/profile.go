package service

import (
	"context"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/realtime"
	"review-portal-backend/internal/session"
)

const profileStoreName = "profiles"

type profileStore struct {
	*snapshot[domain.Profile]
	sess *session.Session
	deps Dependencies
}

func NewProfileStore(sess *session.Session, deps Dependencies) ProfileStore {
	s := &profileStore{sess: sess, deps: deps}
	s.snapshot = &snapshot[domain.Profile]{
		name:         profileStoreName,
		fetchMessage: "Failed to fetch profiles",
		log:          logger.WithStore(profileStoreName, sess.ProfileID()),
		feed:         deps.Feed,
		filter:       realtime.Filter{Table: domain.TableProfiles},
		fetch:        s.fetch,
	}
	return s
}

// Only admins can list profiles; everyone else gets an empty list.
func (s *profileStore) fetch(ctx context.Context) ([]domain.Profile, error) {
	if s.sess.Role() != domain.RoleAdmin {
		return []domain.Profile{}, nil
	}
	profiles, err := s.deps.Profiles.List(ctx)
	if err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	return profiles, nil
}

func (s *profileStore) List(ctx context.Context) ([]domain.Profile, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Reviewers filters the current snapshot to reviewer profiles.
func (s *profileStore) Reviewers() []domain.Profile {
	all := s.Snapshot()
	reviewers := make([]domain.Profile, 0, len(all))
	for _, p := range all {
		if p.Role == domain.RoleReviewer {
			reviewers = append(reviewers, p)
		}
	}
	return reviewers
}

func (s *profileStore) UpdateUserRole(ctx context.Context, id string, role domain.Role) (p *domain.Profile, err error) {
	logger.EnterMethod("profileStore.UpdateUserRole", "profileID", id, "role", role)
	defer func() { recordOperation(profileStoreName, "update_role", err) }()

	const msg = "Failed to update user role"
	switch {
	case s.sess.Profile == nil:
		return nil, opError("update_role", msg, ErrNoSession)
	case s.sess.Role() != domain.RoleAdmin:
		return nil, opError("update_role", msg, ErrForbidden)
	case !role.Valid():
		return nil, opError("update_role", msg, ErrInvalidRole)
	}

	p, err = s.deps.Profiles.UpdateRole(ctx, id, role)
	if err != nil {
		logger.ExitMethodWithError("profileStore.UpdateUserRole", err, "profileID", id)
		return nil, opError("update_role", msg, err)
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Invalidate(ctx, p.UserID); err != nil {
			s.log.Warn("Failed to invalidate cached profile", "userID", p.UserID, "error", err)
		}
	}
	s.afterMutation(ctx)
	logger.ExitMethod("profileStore.UpdateUserRole", "profileID", id, "role", p.Role)
	return p, nil
}
