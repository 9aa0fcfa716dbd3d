package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "review-portal-backend/internal/api/http"
	"review-portal-backend/internal/dashboard"
	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/realtime"
	"review-portal-backend/internal/repository/memory"
	"review-portal-backend/internal/security"
	"review-portal-backend/internal/service"
	"review-portal-backend/internal/session"
)

const (
	testSecret   = "test-secret-key-that-is-at-least-32-chars"
	testAudience = "authenticated"
	testAnonKey  = "anon-key"
)

func init() {
	logger.InitializeWithWriter("error", "text", io.Discard)
}

type fixture struct {
	db        *memory.Store
	broker    *realtime.Broker
	tokens    security.TokenManager
	router    http.Handler
	admin     domain.Profile
	reviewer  domain.Profile
	applicant domain.Profile
}

func newFixture(t *testing.T, opts api.Options) *fixture {
	t.Helper()
	broker := realtime.NewBroker(16)
	t.Cleanup(broker.Close)
	db := memory.New(broker)
	tokens := security.NewTokenManager(testSecret, testAudience)

	deps := service.Dependencies{
		Profiles:     db.Profiles(),
		Applications: db.Applications(),
		Comments:     db.Comments(),
		Feed:         broker,
	}
	server := api.NewServer(tokens, session.NewResolver(db.Profiles(), nil), deps, opts)

	return &fixture{
		db:        db,
		broker:    broker,
		tokens:    tokens,
		router:    server.Router(),
		admin:     db.AddProfile(domain.Profile{Email: "admin@example.com", FirstName: "Ada", LastName: "Admin", Role: domain.RoleAdmin}),
		reviewer:  db.AddProfile(domain.Profile{Email: "rita@example.com", FirstName: "Rita", LastName: "Reviewer", Role: domain.RoleReviewer}),
		applicant: db.AddProfile(domain.Profile{Email: "ann@example.com", FirstName: "Ann", LastName: "Applicant", Role: domain.RoleApplicant}),
	}
}

func (f *fixture) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.tokens.GenerateAccessToken(userID, "", time.Hour)
	require.NoError(t, err)
	return token
}

func (f *fixture) request(t *testing.T, method, path, userID string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+f.token(t, userID))
	}
	req.Header.Set("apikey", testAnonKey)
	return req
}

func (f *fixture) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, f.request(t, method, path, userID, body))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, api.Options{AnonKey: testAnonKey})

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portal_http_requests_total")
}

func TestHealth_Unavailable(t *testing.T) {
	f := newFixture(t, api.Options{Health: func(context.Context) error { return errors.New("db down") }})

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t, api.Options{AnonKey: testAnonKey})

	t.Run("MissingToken", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authorization token is not provided", errorMessage(t, rec))
	})

	t.Run("WrongAnonKey", func(t *testing.T) {
		req := f.request(t, http.MethodGet, "/api/v1/me", f.admin.UserID, nil)
		req.Header.Set("apikey", "wrong")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid API key", errorMessage(t, rec))
	})

	t.Run("ForeignToken", func(t *testing.T) {
		other := security.NewTokenManager("another-secret-key-that-is-32-chars-long", testAudience)
		token, err := other.GenerateAccessToken(f.admin.UserID, "", time.Hour)
		require.NoError(t, err)

		req := f.request(t, http.MethodGet, "/api/v1/me", "", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Valid", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/me", f.admin.UserID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMe(t *testing.T) {
	f := newFixture(t, api.Options{})

	t.Run("WithProfile", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/me", f.reviewer.UserID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Profile   *domain.Profile `json:"profile"`
			Dashboard dashboard.Kind  `json:"dashboard"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.Profile)
		assert.Equal(t, f.reviewer.ID, body.Profile.ID)
		assert.Equal(t, dashboard.KindReviewer, body.Dashboard)
	})

	t.Run("NoProfile", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/me", "user-without-profile", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"profile":null`)
		assert.Contains(t, rec.Body.String(), `"dashboard":"unassigned"`)
	})
}

func TestApplicationLifecycle(t *testing.T) {
	f := newFixture(t, api.Options{})

	rec := f.do(t, http.MethodPost, "/api/v1/applications", f.applicant.UserID, map[string]string{
		"title":       "  Community Garden ",
		"description": "Raised beds for the school",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Application](t, rec)
	assert.Equal(t, "Community Garden", created.Title)
	assert.Equal(t, domain.ApplicationStatusPending, created.Status)

	rec = f.do(t, http.MethodPatch, "/api/v1/applications/"+created.ID+"/reviewer", f.admin.UserID, map[string]string{"reviewer_id": f.reviewer.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/applications", f.reviewer.UserID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assigned := decode[[]domain.Application](t, rec)
	require.Len(t, assigned, 1)
	assert.Equal(t, created.ID, assigned[0].ID)

	rec = f.do(t, http.MethodPatch, "/api/v1/applications/"+created.ID+"/status", f.reviewer.UserID, map[string]string{"status": "under_review"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ApplicationStatusUnderReview, decode[domain.Application](t, rec).Status)

	rec = f.do(t, http.MethodPost, "/api/v1/applications/"+created.ID+"/comments", f.reviewer.UserID, map[string]string{"comment": "Budget looks fine"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/applications/"+created.ID+"/comments", f.applicant.UserID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decode[[]domain.Comment](t, rec)
	require.Len(t, comments, 1)
	assert.Equal(t, "Budget looks fine", comments[0].Comment)
	require.NotNil(t, comments[0].Reviewer)
	assert.Equal(t, "Rita", comments[0].Reviewer.FirstName)

	rec = f.do(t, http.MethodGet, "/api/v1/dashboard", f.applicant.UserID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view, err := dashboard.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	applicantView, ok := view.(dashboard.ApplicantView)
	require.True(t, ok)
	assert.Equal(t, 1, applicantView.Stats.UnderReview)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, api.Options{})

	app := &domain.Application{ApplicantID: f.applicant.ID, Title: "T", Description: "D"}
	require.NoError(t, f.db.Applications().Create(context.Background(), app))

	tests := []struct {
		name    string
		method  string
		path    string
		userID  string
		body    any
		code    int
		message string
	}{
		{"ReviewerCannotCreate", http.MethodPost, "/api/v1/applications", f.reviewer.UserID,
			map[string]string{"title": "T", "description": "D"}, http.StatusForbidden, "Failed to create application"},
		{"BlankFields", http.MethodPost, "/api/v1/applications", f.applicant.UserID,
			map[string]string{"title": " ", "description": "D"}, http.StatusBadRequest, "Please fill in all fields"},
		{"NoProfileCannotCreate", http.MethodPost, "/api/v1/applications", "user-without-profile",
			map[string]string{"title": "T", "description": "D"}, http.StatusUnauthorized, "Failed to create application"},
		{"ApplicantCannotChangeStatus", http.MethodPatch, "/api/v1/applications/" + app.ID + "/status", f.applicant.UserID,
			map[string]string{"status": "approved"}, http.StatusForbidden, "Failed to update status"},
		{"UnknownStatus", http.MethodPatch, "/api/v1/applications/" + app.ID + "/status", f.admin.UserID,
			map[string]string{"status": "archived"}, http.StatusBadRequest, "Failed to update status"},
		{"MissingApplication", http.MethodPatch, "/api/v1/applications/missing/status", f.admin.UserID,
			map[string]string{"status": "approved"}, http.StatusNotFound, "Failed to update status"},
		{"AssignNonReviewer", http.MethodPatch, "/api/v1/applications/" + app.ID + "/reviewer", f.admin.UserID,
			map[string]string{"reviewer_id": f.applicant.ID}, http.StatusBadRequest, "Failed to assign reviewer"},
		{"BlankComment", http.MethodPost, "/api/v1/applications/" + app.ID + "/comments", f.reviewer.UserID,
			map[string]string{"comment": "  "}, http.StatusBadRequest, "Please enter a comment"},
		{"ApplicantCannotComment", http.MethodPost, "/api/v1/applications/" + app.ID + "/comments", f.applicant.UserID,
			map[string]string{"comment": "hi"}, http.StatusForbidden, "Only reviewers and admins can add comments"},
		{"ReviewerCannotChangeRole", http.MethodPatch, "/api/v1/profiles/" + f.applicant.ID + "/role", f.reviewer.UserID,
			map[string]string{"role": "admin"}, http.StatusForbidden, "Failed to update user role"},
		{"UnknownField", http.MethodPost, "/api/v1/applications", f.applicant.UserID,
			map[string]string{"name": "T"}, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.userID, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, tt.message, errorMessage(t, rec))
		})
	}
}

func TestProfiles(t *testing.T) {
	f := newFixture(t, api.Options{})

	t.Run("AdminListsEveryone", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/profiles", f.admin.UserID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]domain.Profile](t, rec), 3)
	})

	t.Run("ApplicantSeesNobody", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/profiles", f.applicant.UserID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]domain.Profile](t, rec))
	})

	t.Run("Reviewers", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/profiles/reviewers", f.admin.UserID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		reviewers := decode[[]domain.Profile](t, rec)
		require.Len(t, reviewers, 1)
		assert.Equal(t, f.reviewer.ID, reviewers[0].ID)
	})

	t.Run("UpdateRole", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/v1/profiles/"+f.applicant.ID+"/role", f.admin.UserID, map[string]string{"role": "reviewer"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, domain.RoleReviewer, decode[domain.Profile](t, rec).Role)

		rec = f.do(t, http.MethodGet, "/api/v1/me", f.applicant.UserID, nil)
		assert.Contains(t, rec.Body.String(), `"dashboard":"reviewer"`)
	})
}

// readEvent returns the event name and data of the next server-sent event.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && event != "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, f *fixture, srv *httptest.Server, path, userID string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token(t, userID))

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

// newStreamServer registers the server's Close before any stream opened on
// it, so cleanups close the response bodies first and Close does not wait
// on a live handler.
func newStreamServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)
	return srv
}

func TestChangesStream(t *testing.T) {
	f := newFixture(t, api.Options{})
	srv := newStreamServer(t, f)

	app := &domain.Application{ApplicantID: f.applicant.ID, Title: "T", Description: "D"}
	require.NoError(t, f.db.Applications().Create(context.Background(), app))

	reader := openStream(t, f, srv, "/api/v1/changes?table=application_comments&application_id="+app.ID, f.admin.UserID)

	require.NoError(t, f.db.Comments().Create(context.Background(), &domain.Comment{ApplicationID: app.ID, ReviewerID: f.reviewer.ID, Comment: "hi"}))

	event, data := readEvent(t, reader)
	assert.Equal(t, "change", event)

	var change domain.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(data), &change))
	assert.Equal(t, domain.TableApplicationComments, change.Table)
	assert.Equal(t, domain.ChangeInsert, change.Type)
	assert.Equal(t, app.ID, change.ApplicationID)
}

func TestChangesStream_UnknownTable(t *testing.T) {
	f := newFixture(t, api.Options{})
	rec := f.do(t, http.MethodGet, "/api/v1/changes?table=users", f.admin.UserID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplicationStream(t *testing.T) {
	f := newFixture(t, api.Options{})
	srv := newStreamServer(t, f)

	reader := openStream(t, f, srv, "/api/v1/applications/stream", f.applicant.UserID)

	event, data := readEvent(t, reader)
	assert.Equal(t, "applications", event)
	assert.Equal(t, "[]", data)

	app := &domain.Application{ApplicantID: f.applicant.ID, Title: "Library Fund", Description: "D"}
	require.NoError(t, f.db.Applications().Create(context.Background(), app))

	event, data = readEvent(t, reader)
	assert.Equal(t, "applications", event)

	var apps []domain.Application
	require.NoError(t, json.Unmarshal([]byte(data), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, "Library Fund", apps[0].Title)
}

func TestApplicationStream_EndsWhenFeedCloses(t *testing.T) {
	f := newFixture(t, api.Options{})
	srv := newStreamServer(t, f)

	reader := openStream(t, f, srv, "/api/v1/applications/stream", f.admin.UserID)
	event, _ := readEvent(t, reader)
	require.Equal(t, "applications", event)

	f.broker.Close()

	ended := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(reader)
		ended <- err
	}()
	select {
	case err := <-ended:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("application stream still open after the feed closed")
	}
}

func TestChangesStream_Scope(t *testing.T) {
	f := newFixture(t, api.Options{})
	ctx := context.Background()

	other := f.db.AddProfile(domain.Profile{Email: "otto@example.com", FirstName: "Otto", Role: domain.RoleApplicant})
	theirs := &domain.Application{ApplicantID: other.ID, Title: "Theirs", Description: "D"}
	require.NoError(t, f.db.Applications().Create(ctx, theirs))

	t.Run("ApplicantCannotWatchOtherThread", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/changes?table=application_comments&application_id="+theirs.ID, f.applicant.UserID, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Failed to subscribe to changes", errorMessage(t, rec))
	})

	t.Run("ApplicantCannotWatchMissingApplication", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/changes?table=applications&application_id=a-missing", f.applicant.UserID, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ProfilesAreAdminOnly", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/changes?table=profiles", f.reviewer.UserID, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("NoProfile", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/changes?table=applications", "u-without-profile", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ApplicantSeesOnlyOwnApplications", func(t *testing.T) {
		srv := newStreamServer(t, f)
		reader := openStream(t, f, srv, "/api/v1/changes?table=applications", f.applicant.UserID)

		require.NoError(t, f.db.Applications().Create(ctx, &domain.Application{ApplicantID: other.ID, Title: "Hidden", Description: "D"}))
		mine := &domain.Application{ApplicantID: f.applicant.ID, Title: "Mine", Description: "D"}
		require.NoError(t, f.db.Applications().Create(ctx, mine))

		_, data := readEvent(t, reader)
		var change domain.ChangeEvent
		require.NoError(t, json.Unmarshal([]byte(data), &change))
		assert.Equal(t, mine.ID, change.ApplicationID)
	})
}
