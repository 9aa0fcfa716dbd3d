// Package http exposes the portal stores over a JSON API with a
// server-sent events change stream.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"review-portal-backend/internal/security"
	"review-portal-backend/internal/service"
	"review-portal-backend/internal/session"
)

const defaultHeartbeat = 25 * time.Second

// SessionResolver turns a verified auth user id into a session.
type SessionResolver interface {
	Resolve(ctx context.Context, userID string) (*session.Session, error)
}

type Options struct {
	// AnonKey, when set, must be sent in the apikey header on every API call.
	AnonKey string
	// Heartbeat is the comment interval on event streams.
	Heartbeat time.Duration
	// Health is probed by /healthz. Nil always reports healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	tokens   security.TokenManager
	sessions SessionResolver
	deps     service.Dependencies
	opts     Options
}

func NewServer(tokens security.TokenManager, sessions SessionResolver, deps service.Dependencies, opts Options) *Server {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	return &Server{
		tokens:   tokens,
		sessions: sessions,
		deps:     deps,
		opts:     opts,
	}
}

// Router registers every route. Route names key the security levels in
// config.RouteSecurityConfig.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.metricsMiddleware)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet).Name("healthz")
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("metrics")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/me", s.handleMe).Methods(http.MethodGet).Name("me")
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet).Name("dashboard")

	api.HandleFunc("/applications", s.handleListApplications).Methods(http.MethodGet).Name("applications.list")
	api.HandleFunc("/applications", s.handleCreateApplication).Methods(http.MethodPost).Name("applications.create")
	api.HandleFunc("/applications/stream", s.handleApplicationStream).Methods(http.MethodGet).Name("applications.stream")
	api.HandleFunc("/applications/{id}/status", s.handleUpdateStatus).Methods(http.MethodPatch).Name("applications.update_status")
	api.HandleFunc("/applications/{id}/reviewer", s.handleAssignReviewer).Methods(http.MethodPatch).Name("applications.assign")

	api.HandleFunc("/applications/{id}/comments", s.handleListComments).Methods(http.MethodGet).Name("comments.list")
	api.HandleFunc("/applications/{id}/comments", s.handleCreateComment).Methods(http.MethodPost).Name("comments.create")

	api.HandleFunc("/profiles", s.handleListProfiles).Methods(http.MethodGet).Name("profiles.list")
	api.HandleFunc("/profiles/reviewers", s.handleListReviewers).Methods(http.MethodGet).Name("profiles.reviewers")
	api.HandleFunc("/profiles/{id}/role", s.handleUpdateRole).Methods(http.MethodPatch).Name("profiles.update_role")

	api.HandleFunc("/changes", s.handleChanges).Methods(http.MethodGet).Name("changes")

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
