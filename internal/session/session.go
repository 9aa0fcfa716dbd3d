package session

import (
	"context"
	"errors"
	"fmt"

	"review-portal-backend/internal/cache"
	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/repository"
)

// Session is the authenticated caller. A nil Profile means the user has
// signed in but no profile row exists yet.
type Session struct {
	UserID  string
	Profile *domain.Profile
}

func New(userID string, profile *domain.Profile) *Session {
	return &Session{UserID: userID, Profile: profile}
}

// Role returns the caller's role, or "" when there is no profile.
func (s *Session) Role() domain.Role {
	if s == nil || s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}

// ProfileID returns the caller's profile id, or "" when there is no profile.
func (s *Session) ProfileID() string {
	if s == nil || s.Profile == nil {
		return ""
	}
	return s.Profile.ID
}

// HasRole reports whether the caller has a profile with a known role.
func (s *Session) HasRole() bool {
	return s.Role().Valid()
}

type contextKey struct{}

func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// ProfileCache is the subset of cache.ProfileCache the resolver needs.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Set(ctx context.Context, p *domain.Profile) error
}

// Resolver builds sessions from verified auth user ids.
type Resolver struct {
	profiles repository.ProfileRepository
	cache    ProfileCache
}

// NewResolver accepts a nil cache.
func NewResolver(profiles repository.ProfileRepository, c ProfileCache) *Resolver {
	return &Resolver{profiles: profiles, cache: c}
}

func (r *Resolver) Resolve(ctx context.Context, userID string) (*Session, error) {
	if r.cache != nil {
		p, err := r.cache.Get(ctx, userID)
		if err == nil {
			return New(userID, p), nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("Profile cache read failed, falling back to database", "user_id", userID, "error", err)
		}
	}

	p, err := r.profiles.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return New(userID, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, p); err != nil {
			logger.Warn("Profile cache write failed", "user_id", userID, "error", err)
		}
	}
	return New(userID, p), nil
}
