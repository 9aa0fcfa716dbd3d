package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-portal-backend/internal/repository"
	"review-portal-backend/internal/service"
	"review-portal-backend/internal/session"
)

func TestCommentStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("ApplicantForbidden", func(t *testing.T) {
		p := newPortal()
		app := createApp(t, p, "T")
		store := service.NewCommentStore(sessionFor(p.applicant), app.ID, p.deps())

		c, err := store.Create(ctx, "Please hurry")
		assert.Nil(t, c)
		assert.ErrorIs(t, err, service.ErrForbidden)

		var opErr *service.OperationError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, "Only reviewers and admins can add comments", opErr.Message)

		all, _ := p.db.Comments().ListByApplication(ctx, app.ID)
		assert.Empty(t, all)
	})

	t.Run("NoSession", func(t *testing.T) {
		p := newPortal()
		app := createApp(t, p, "T")
		_, err := service.NewCommentStore(session.New("u-x", nil), app.ID, p.deps()).Create(ctx, "x")
		assert.ErrorIs(t, err, service.ErrNoSession)
	})

	t.Run("Blank", func(t *testing.T) {
		p := newPortal()
		app := createApp(t, p, "T")
		_, err := service.NewCommentStore(sessionFor(p.reviewer), app.ID, p.deps()).Create(ctx, "   ")
		assert.ErrorIs(t, err, service.ErrBlankComment)
	})

	t.Run("ReviewerAndAdminAppendInOrder", func(t *testing.T) {
		p := newPortal()
		app := createApp(t, p, "T")

		reviewerStore := service.NewCommentStore(sessionFor(p.reviewer), app.ID, p.deps())
		first, err := reviewerStore.Create(ctx, "  first  ")
		require.NoError(t, err)
		assert.Equal(t, "first", first.Comment)
		assert.Equal(t, p.reviewer.ID, first.ReviewerID)

		_, err = service.NewCommentStore(sessionFor(p.admin), app.ID, p.deps()).Create(ctx, "second")
		require.NoError(t, err)

		comments, err := reviewerStore.List(ctx)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "first", comments[0].Comment)
		assert.Equal(t, "second", comments[1].Comment)
		assert.Equal(t, "Rita", comments[0].Reviewer.FirstName)
		assert.Equal(t, "Ada", comments[1].Reviewer.FirstName)
		assert.True(t, comments[0].CreatedAt.Before(comments[1].CreatedAt))
	})

	t.Run("UnknownApplication", func(t *testing.T) {
		p := newPortal()
		_, err := service.NewCommentStore(sessionFor(p.reviewer), "missing", p.deps()).Create(ctx, "x")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestCommentStore_ListVisibility(t *testing.T) {
	p := newPortal()
	ctx := context.Background()
	app := createApp(t, p, "T")

	_, err := service.NewCommentStore(sessionFor(p.reviewer), app.ID, p.deps()).Create(ctx, "note")
	require.NoError(t, err)

	cases := []struct {
		name string
		sess *session.Session
		want int
	}{
		{"owner applicant", sessionFor(p.applicant), 1},
		{"other applicant", sessionFor(p.other), 0},
		{"admin", sessionFor(p.admin), 1},
		{"reviewer", sessionFor(p.reviewer2), 1},
		{"no profile", session.New("u-x", nil), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := service.NewCommentStore(tc.sess, app.ID, p.deps())
			assert.Equal(t, app.ID, store.ApplicationID())
			comments, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, comments, tc.want)
		})
	}

	t.Run("ApplicantOnMissingApplication", func(t *testing.T) {
		comments, err := service.NewCommentStore(sessionFor(p.applicant), "missing", p.deps()).List(ctx)
		require.NoError(t, err)
		assert.Empty(t, comments)
	})
}
