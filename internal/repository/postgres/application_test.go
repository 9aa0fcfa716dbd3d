package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/repository"
	"review-portal-backend/internal/repository/postgres"
)

var (
	applicationCols = []string{"id", "applicant_id", "title", "description", "status", "assigned_reviewer_id", "submitted_at", "updated_at"}
	joinedCols      = append(append([]string{}, applicationCols...),
		"first_name", "last_name", "email", "first_name", "last_name", "email")
)

func TestApplicationRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewApplicationRepository(db)
	now := time.Now()

	app := &domain.Application{
		ApplicantID: "p-app",
		Title:       "Grant",
		Description: "Need funds",
	}

	mock.ExpectQuery("INSERT INTO applications").
		WithArgs(sqlmock.AnyArg(), "p-app", "Grant", "Need funds", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"submitted_at", "updated_at"}).AddRow(now, now))

	err = repo.Create(context.Background(), app)
	require.NoError(t, err)
	assert.NotEmpty(t, app.ID)
	assert.Equal(t, domain.ApplicationStatusPending, app.Status)
	assert.Equal(t, now, app.SubmittedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewApplicationRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Unfiltered", func(t *testing.T) {
		rows := sqlmock.NewRows(joinedCols).
			AddRow("a-2", "p-app", "Second", "d", "under_review", "p-rev", now, now, "Ann", "Applicant", "ann@example.com", "Rita", "Reviewer", "rita@example.com").
			AddRow("a-1", "p-app", "First", "d", "pending", nil, now.Add(-time.Hour), now, "Ann", "Applicant", "ann@example.com", nil, nil, nil)

		mock.ExpectQuery("SELECT (.+) FROM applications a (.+) ORDER BY a.submitted_at DESC").
			WillReturnRows(rows)

		apps, err := repo.List(ctx, domain.ApplicationFilter{})
		require.NoError(t, err)
		require.Len(t, apps, 2)

		assert.Equal(t, "a-2", apps[0].ID)
		require.NotNil(t, apps[0].AssignedReviewerID)
		assert.Equal(t, "p-rev", *apps[0].AssignedReviewerID)
		assert.Equal(t, "Rita", apps[0].AssignedReviewer.FirstName)
		assert.Equal(t, "Ann", apps[0].Applicant.FirstName)

		assert.Nil(t, apps[1].AssignedReviewerID)
		assert.Nil(t, apps[1].AssignedReviewer)
	})

	t.Run("ByApplicant", func(t *testing.T) {
		mock.ExpectQuery("WHERE a.applicant_id = \\$1 ORDER BY a.submitted_at DESC").
			WithArgs("p-app").
			WillReturnRows(sqlmock.NewRows(joinedCols))

		apps, err := repo.List(ctx, domain.ApplicationFilter{ApplicantID: "p-app"})
		require.NoError(t, err)
		assert.Empty(t, apps)
	})

	t.Run("ByReviewer", func(t *testing.T) {
		mock.ExpectQuery("WHERE a.assigned_reviewer_id = \\$1 ORDER BY").
			WithArgs("p-rev").
			WillReturnRows(sqlmock.NewRows(joinedCols))

		_, err := repo.List(ctx, domain.ApplicationFilter{AssignedReviewerID: "p-rev"})
		require.NoError(t, err)
	})

	t.Run("QueryError", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM applications").WillReturnError(assert.AnError)

		apps, err := repo.List(ctx, domain.ApplicationFilter{})
		assert.ErrorIs(t, err, assert.AnError)
		assert.Nil(t, apps)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewApplicationRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("UPDATE applications SET status = \\$1").
			WithArgs("approved", "a-1").
			WillReturnRows(sqlmock.NewRows(applicationCols).
				AddRow("a-1", "p-app", "T", "D", "approved", nil, now, now))

		app, err := repo.UpdateStatus(ctx, "a-1", domain.ApplicationStatusApproved)
		require.NoError(t, err)
		assert.Equal(t, domain.ApplicationStatusApproved, app.Status)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("UPDATE applications SET status = \\$1").
			WithArgs("approved", "a-missing").
			WillReturnError(sql.ErrNoRows)

		app, err := repo.UpdateStatus(ctx, "a-missing", domain.ApplicationStatusApproved)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, app)
	})

	t.Run("MalformedID", func(t *testing.T) {
		mock.ExpectQuery("UPDATE applications SET status = \\$1").
			WithArgs("approved", "not-a-uuid").
			WillReturnError(&pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"})

		app, err := repo.UpdateStatus(ctx, "not-a-uuid", domain.ApplicationStatusApproved)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, app)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_AssignReviewer(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewApplicationRepository(db)
	now := time.Now()

	mock.ExpectQuery("UPDATE applications SET assigned_reviewer_id = \\$1").
		WithArgs("p-rev", "a-1").
		WillReturnRows(sqlmock.NewRows(applicationCols).
			AddRow("a-1", "p-app", "T", "D", "pending", "p-rev", now, now))

	app, err := repo.AssignReviewer(context.Background(), "a-1", "p-rev")
	require.NoError(t, err)
	require.NotNil(t, app.AssignedReviewerID)
	assert.Equal(t, "p-rev", *app.AssignedReviewerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_GetByID_MalformedID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewApplicationRepository(db)

	mock.ExpectQuery("WHERE a.id = \\$1").
		WithArgs("42").
		WillReturnError(&pq.Error{Code: "22P02"})

	app, err := repo.GetByID(context.Background(), "42")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, app)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepository_ListUnassigned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewApplicationRepository(db)
	now := time.Now()

	mock.ExpectQuery("WHERE a.assigned_reviewer_id IS NULL AND a.status = \\$1").
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows(joinedCols).
			AddRow("a-1", "p-app", "T", "D", "pending", nil, now, now, "Ann", "A", "ann@example.com", nil, nil, nil))

	apps, err := repo.ListUnassigned(context.Background(), domain.ApplicationStatusPending)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
