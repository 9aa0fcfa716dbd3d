package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"review-portal-backend/internal/dashboard"
	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/service"
	"review-portal-backend/internal/session"
)

const invalidBody = "Invalid request body"

type meResponse struct {
	UserID    string          `json:"user_id"`
	Profile   *domain.Profile `json:"profile"`
	Dashboard dashboard.Kind  `json:"dashboard"`
}

type createApplicationRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateStatusRequest struct {
	Status domain.ApplicationStatus `json:"status"`
}

type assignReviewerRequest struct {
	ReviewerID string `json:"reviewer_id"`
}

type createCommentRequest struct {
	Comment string `json:"comment"`
}

type updateRoleRequest struct {
	Role domain.Role `json:"role"`
}

// sessionFrom never returns nil: the auth middleware always attaches one.
func sessionFrom(r *http.Request) *session.Session {
	if sess, ok := session.FromContext(r.Context()); ok {
		return sess
	}
	return session.New("", nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, http.StatusOK, meResponse{
		UserID:    sess.UserID,
		Profile:   sess.Profile,
		Dashboard: dashboard.For(sess),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := dashboard.Build(r.Context(), sessionFrom(r), s.deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := dashboard.Encode(view)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := service.NewApplicationStore(sessionFrom(r), s.deps).List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidBody)
		return
	}
	app, err := service.NewApplicationStore(sessionFrom(r), s.deps).Create(r.Context(), req.Title, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidBody)
		return
	}
	app, err := service.NewApplicationStore(sessionFrom(r), s.deps).UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleAssignReviewer(w http.ResponseWriter, r *http.Request) {
	var req assignReviewerRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidBody)
		return
	}
	app, err := service.NewApplicationStore(sessionFrom(r), s.deps).AssignReviewer(r.Context(), mux.Vars(r)["id"], req.ReviewerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := service.NewCommentStore(sessionFrom(r), mux.Vars(r)["id"], s.deps).List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidBody)
		return
	}
	c, err := service.NewCommentStore(sessionFrom(r), mux.Vars(r)["id"], s.deps).Create(r.Context(), req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := service.NewProfileStore(sessionFrom(r), s.deps).List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleListReviewers(w http.ResponseWriter, r *http.Request) {
	store := service.NewProfileStore(sessionFrom(r), s.deps)
	if err := store.Refresh(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, store.Reviewers())
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidBody)
		return
	}
	p, err := service.NewProfileStore(sessionFrom(r), s.deps).UpdateUserRole(r.Context(), mux.Vars(r)["id"], req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
