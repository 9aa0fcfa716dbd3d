// Package memory is an in-process implementation of the repositories. It
// publishes the same change events the database triggers emit, so stores
// and handlers can be exercised end to end without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/repository"
)

// Publisher receives a change event after every write.
type Publisher interface {
	Publish(e domain.ChangeEvent)
}

type Store struct {
	mu           sync.RWMutex
	profiles     map[string]domain.Profile
	applications map[string]domain.Application
	comments     map[string]domain.Comment
	publisher    Publisher
	now          func() time.Time
}

// New returns an empty store. publisher may be nil.
func New(publisher Publisher) *Store {
	return &Store{
		profiles:     make(map[string]domain.Profile),
		applications: make(map[string]domain.Application),
		comments:     make(map[string]domain.Comment),
		publisher:    publisher,
		now:          monotonicClock(),
	}
}

// monotonicClock hands out strictly increasing timestamps so ordering by
// creation time is deterministic in tests.
func monotonicClock() func() time.Time {
	var mu sync.Mutex
	last := time.Now().UTC()
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := time.Now().UTC()
		if !t.After(last) {
			t = last.Add(time.Microsecond)
		}
		last = t
		return t
	}
}

func (s *Store) Profiles() repository.ProfileRepository         { return profileRepo{s} }
func (s *Store) Applications() repository.ApplicationRepository { return applicationRepo{s} }
func (s *Store) Comments() repository.CommentRepository         { return commentRepo{s} }

func (s *Store) publish(e domain.ChangeEvent) {
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}

// AddProfile inserts a profile, filling id and timestamps when empty. It
// stands in for the sign-up flow owned by the auth service.
func (s *Store) AddProfile(p domain.Profile) domain.Profile {
	s.mu.Lock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.UserID == "" {
		p.UserID = uuid.NewString()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.profiles[p.ID] = p
	s.mu.Unlock()

	s.publish(domain.ChangeEvent{Table: domain.TableProfiles, Type: domain.ChangeInsert, RecordID: p.ID})
	return p
}

func (s *Store) summary(profileID string) *domain.PersonSummary {
	p, ok := s.profiles[profileID]
	if !ok {
		return nil
	}
	return &domain.PersonSummary{FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}
}

func (s *Store) withPeople(a domain.Application) domain.Application {
	a.Applicant = s.summary(a.ApplicantID)
	if a.AssignedReviewerID != nil {
		id := *a.AssignedReviewerID
		a.AssignedReviewerID = &id
		a.AssignedReviewer = s.summary(id)
	}
	return a
}

type profileRepo struct{ s *Store }

func (r profileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r profileRepo) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.profiles {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r profileRepo) List(ctx context.Context) ([]domain.Profile, error) {
	return r.list(func(domain.Profile) bool { return true }), nil
}

func (r profileRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.Profile, error) {
	return r.list(func(p domain.Profile) bool { return p.Role == role }), nil
}

func (r profileRepo) list(keep func(domain.Profile) bool) []domain.Profile {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Profile
	for _, p := range r.s.profiles {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r profileRepo) UpdateRole(_ context.Context, id string, role domain.Role) (*domain.Profile, error) {
	r.s.mu.Lock()
	p, ok := r.s.profiles[id]
	if !ok {
		r.s.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	p.Role = role
	p.UpdatedAt = r.s.now()
	r.s.profiles[id] = p
	r.s.mu.Unlock()

	r.s.publish(domain.ChangeEvent{Table: domain.TableProfiles, Type: domain.ChangeUpdate, RecordID: id})
	return &p, nil
}

type applicationRepo struct{ s *Store }

func (r applicationRepo) Create(_ context.Context, app *domain.Application) error {
	r.s.mu.Lock()
	if _, ok := r.s.profiles[app.ApplicantID]; !ok {
		r.s.mu.Unlock()
		return repository.ErrNotFound
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = domain.ApplicationStatusPending
	}
	now := r.s.now()
	app.SubmittedAt, app.UpdatedAt = now, now
	stored := *app
	stored.Applicant, stored.AssignedReviewer = nil, nil
	r.s.applications[app.ID] = stored
	r.s.mu.Unlock()

	r.s.publish(domain.ChangeEvent{Table: domain.TableApplications, Type: domain.ChangeInsert, RecordID: app.ID, ApplicationID: app.ID})
	return nil
}

func (r applicationRepo) GetByID(_ context.Context, id string) (*domain.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.applications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a = r.s.withPeople(a)
	return &a, nil
}

func (r applicationRepo) List(_ context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	return r.list(func(a domain.Application) bool {
		if filter.ApplicantID != "" && a.ApplicantID != filter.ApplicantID {
			return false
		}
		if filter.AssignedReviewerID != "" && (a.AssignedReviewerID == nil || *a.AssignedReviewerID != filter.AssignedReviewerID) {
			return false
		}
		return true
	}, false), nil
}

func (r applicationRepo) ListUnassigned(_ context.Context, status domain.ApplicationStatus) ([]domain.Application, error) {
	return r.list(func(a domain.Application) bool {
		return a.AssignedReviewerID == nil && a.Status == status
	}, true), nil
}

func (r applicationRepo) list(keep func(domain.Application) bool, ascending bool) []domain.Application {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Application
	for _, a := range r.s.applications {
		if keep(a) {
			out = append(out, r.s.withPeople(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

func (r applicationRepo) UpdateStatus(_ context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	return r.update(id, func(a *domain.Application) { a.Status = status })
}

func (r applicationRepo) AssignReviewer(_ context.Context, id, reviewerID string) (*domain.Application, error) {
	r.s.mu.RLock()
	_, ok := r.s.profiles[reviewerID]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.update(id, func(a *domain.Application) { a.AssignedReviewerID = &reviewerID })
}

func (r applicationRepo) update(id string, mutate func(*domain.Application)) (*domain.Application, error) {
	r.s.mu.Lock()
	a, ok := r.s.applications[id]
	if !ok {
		r.s.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	mutate(&a)
	a.UpdatedAt = r.s.now()
	r.s.applications[id] = a
	r.s.mu.Unlock()

	r.s.publish(domain.ChangeEvent{Table: domain.TableApplications, Type: domain.ChangeUpdate, RecordID: id, ApplicationID: id})
	return &a, nil
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *domain.Comment) error {
	r.s.mu.Lock()
	if _, ok := r.s.applications[c.ApplicationID]; !ok {
		r.s.mu.Unlock()
		return repository.ErrNotFound
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = r.s.now()
	stored := *c
	stored.Reviewer = nil
	r.s.comments[c.ID] = stored
	r.s.mu.Unlock()

	r.s.publish(domain.ChangeEvent{Table: domain.TableApplicationComments, Type: domain.ChangeInsert, RecordID: c.ID, ApplicationID: c.ApplicationID})
	return nil
}

func (r commentRepo) ListByApplication(_ context.Context, applicationID string) ([]domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Comment
	for _, c := range r.s.comments {
		if c.ApplicationID == applicationID {
			c.Reviewer = r.s.summary(c.ReviewerID)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
