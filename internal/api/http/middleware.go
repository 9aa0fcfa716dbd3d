package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"review-portal-backend/internal/config"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/metrics"
	"review-portal-backend/internal/session"
)

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
		return route.GetName()
	}
	return "unknown"
}

// authMiddleware checks the anonymous key, validates the bearer token and
// attaches the caller's session to the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level := config.GetSecurityLevel(routeName(r))
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		if s.opts.AnonKey != "" && r.Header.Get("apikey") != s.opts.AnonKey {
			writeMessage(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		if level == config.SecurityAPIKey {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "Authorization token is not provided")
			return
		}

		claims, err := s.tokens.ValidateToken(token)
		if err != nil {
			logger.Debug("Rejected token", "route", routeName(r), "error", err)
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		sess, err := s.sessions.Resolve(r.Context(), claims.UserID())
		if err != nil {
			logger.Error("Failed to resolve session", "user_id", claims.UserID(), "error", err)
			writeMessage(w, http.StatusInternalServerError, "Failed to load profile")
			return
		}

		next.ServeHTTP(w, r.WithContext(session.WithContext(r.Context(), sess)))
	})
}

func extractToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	return strings.TrimSpace(token)
}

// statusRecorder keeps the response code for metrics. It forwards Flush so
// event streams keep working behind it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.HTTPRequests.WithLabelValues(routeName(r), strconv.Itoa(rec.status)).Inc()
	})
}
