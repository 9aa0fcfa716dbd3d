package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/realtime"
	"review-portal-backend/internal/repository"
	"review-portal-backend/internal/service"
	"review-portal-backend/internal/session"
)

// eventStream writes server-sent events. Only the handler goroutine writes.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func openStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "Streaming unsupported")
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &eventStream{w: w, flusher: flusher}, true
}

func (es *eventStream) send(event string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(es.w, "event: %s\ndata: %s\n\n", event, body); err != nil {
		return err
	}
	es.flusher.Flush()
	return nil
}

func (es *eventStream) ping() error {
	if _, err := fmt.Fprint(es.w, ": ping\n\n"); err != nil {
		return err
	}
	es.flusher.Flush()
	return nil
}

func validTable(t domain.Table) bool {
	switch t {
	case domain.TableProfiles, domain.TableApplications, domain.TableApplicationComments:
		return true
	}
	return false
}

// changeScope decides which change events a caller may see. Admins and
// reviewers see every event. Applicants only see events on their own
// applications. Resync events carry no ids and reach everyone.
type changeScope struct {
	apps      repository.ApplicationRepository
	profileID string
	all       bool
	// owned caches ownership per application; an application never changes
	// applicant.
	owned map[string]bool
}

func newChangeScope(sess *session.Session, apps repository.ApplicationRepository) *changeScope {
	role := sess.Role()
	return &changeScope{
		apps:      apps,
		profileID: sess.ProfileID(),
		all:       role == domain.RoleAdmin || role == domain.RoleReviewer,
		owned:     make(map[string]bool),
	}
}

func (c *changeScope) allows(ctx context.Context, applicationID string) (bool, error) {
	if c.all || applicationID == "" {
		return true, nil
	}
	if owned, ok := c.owned[applicationID]; ok {
		return owned, nil
	}
	app, err := c.apps.GetByID(ctx, applicationID)
	if errors.Is(err, repository.ErrNotFound) {
		c.owned[applicationID] = false
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.owned[applicationID] = app.ApplicantID == c.profileID
	return c.owned[applicationID], nil
}

func subscribeError(err error) error {
	return &service.OperationError{Op: "subscribe", Message: "Failed to subscribe to changes", Err: err}
}

// handleChanges relays raw change events for one table, optionally scoped to
// one application.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	filter := realtime.Filter{
		Table:         domain.Table(r.URL.Query().Get("table")),
		ApplicationID: r.URL.Query().Get("application_id"),
	}
	if !validTable(filter.Table) {
		writeMessage(w, http.StatusBadRequest, "Unknown table")
		return
	}
	if s.deps.Feed == nil {
		writeError(w, r, service.ErrNoFeed)
		return
	}

	sess := sessionFrom(r)
	switch {
	case !sess.HasRole():
		writeError(w, r, subscribeError(service.ErrNoSession))
		return
	case filter.Table == domain.TableProfiles && sess.Role() != domain.RoleAdmin:
		writeError(w, r, subscribeError(service.ErrForbidden))
		return
	}

	scope := newChangeScope(sess, s.deps.Applications)
	if filter.ApplicationID != "" {
		ok, err := scope.allows(r.Context(), filter.ApplicationID)
		if err != nil {
			writeError(w, r, subscribeError(err))
			return
		}
		if !ok {
			writeError(w, r, subscribeError(service.ErrForbidden))
			return
		}
	}

	sub := s.deps.Feed.Subscribe(filter)
	defer sub.Close()

	stream, ok := openStream(w)
	if !ok {
		return
	}

	ticker := time.NewTicker(s.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			visible, err := scope.allows(r.Context(), e.ApplicationID)
			if err != nil {
				logger.Warn("Change visibility check failed", "application_id", e.ApplicationID, "error", err)
				continue
			}
			if !visible {
				continue
			}
			if err := stream.send("change", e); err != nil {
				logger.Debug("Change stream closed", "error", err)
				return
			}
		case <-ticker.C:
			if err := stream.ping(); err != nil {
				return
			}
		}
	}
}

// handleApplicationStream sends the caller's application list, then the
// list again after every re-fetch triggered by a change. It subscribes
// before the first fetch so no change is missed, and ends when the feed
// closes.
func (s *Server) handleApplicationStream(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feed == nil {
		writeError(w, r, service.ErrNoFeed)
		return
	}

	ctx := r.Context()

	sub := s.deps.Feed.Subscribe(realtime.Filter{Table: domain.TableApplications})
	defer sub.Close()

	store := service.NewApplicationStore(sessionFrom(r), s.deps)
	defer store.Close()

	if err := store.Refresh(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	stream, ok := openStream(w)
	if !ok {
		return
	}
	if err := stream.send("applications", store.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(s.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Events():
			if !ok {
				logger.Debug("Change feed closed, ending application stream")
				return
			}
			if !drain(sub) {
				return
			}
			if err := store.Refresh(ctx); err != nil {
				// The store keeps its previous rows; the next change retries.
				continue
			}
			if err := stream.send("applications", store.Snapshot()); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.ping(); err != nil {
				return
			}
		}
	}
}

// drain discards events already queued on sub, since one re-fetch covers
// them all. It reports false when the subscription has closed.
func drain(sub *realtime.Subscription) bool {
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}
