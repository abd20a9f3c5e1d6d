package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/repository"
)

func TestUserUniqueness(t *testing.T) {
	ctx := context.Background()
	st := New().Stores()

	u := &model.User{Username: "alice", Email: " Alice@Example.com "}
	require.NoError(t, st.Users.Create(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)

	err := st.Users.Create(ctx, &model.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := st.Users.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = st.Users.GetByFacebookID(ctx, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	st := New().Stores()

	m := &model.Moment{UserID: "u1", ProductIDs: []string{"p1"}}
	require.NoError(t, st.Moments.Create(ctx, m))

	got, err := st.Moments.GetByID(ctx, m.ID)
	require.NoError(t, err)
	got.ProductIDs[0] = "changed"
	got.Headline = "changed"

	again, err := st.Moments.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, again.ProductIDs)
	assert.Empty(t, again.Headline)
}

func TestAccessTokenFindOne(t *testing.T) {
	ctx := context.Background()
	st := New().Stores()

	old := &model.AccessToken{UserID: "u1", ClientID: "c1", Token: "a", CreatedAt: time.Now().Add(-time.Hour)}
	fresh := &model.AccessToken{UserID: "u1", ClientID: "c1", Token: "b", Type: model.TokenTypeFacebook}
	require.NoError(t, st.AccessTokens.Create(ctx, old))
	require.NoError(t, st.AccessTokens.Create(ctx, fresh))

	got, err := st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{UserID: "u1", ClientID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)

	phenom := model.TokenTypePhenom
	got, err = st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{UserID: "u1", Type: &phenom})
	require.NoError(t, err)
	assert.Equal(t, old.ID, got.ID)

	assert.ErrorIs(t, st.AccessTokens.Create(ctx, &model.AccessToken{Token: "a"}), repository.ErrDuplicate)

	_, err = st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{})
	assert.Error(t, err)
}

func TestLikeAndFollowingEdgesAreUnique(t *testing.T) {
	ctx := context.Background()
	st := New().Stores()

	require.NoError(t, st.Likes.Create(ctx, &model.Like{UserID: "u1", MomentID: "m1"}))
	assert.ErrorIs(t, st.Likes.Create(ctx, &model.Like{UserID: "u1", MomentID: "m1"}), repository.ErrDuplicate)

	require.NoError(t, st.Followings.Create(ctx, &model.Following{SourceUserID: "a", TargetID: "b"}))
	assert.ErrorIs(t, st.Followings.Create(ctx, &model.Following{SourceUserID: "a", TargetID: "b"}), repository.ErrDuplicate)

	edges, err := st.Followings.ListByTarget(ctx, model.FollowingTypeUser, "b")
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestNotificationsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	st := New().Stores()

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, st.Notifications.Create(ctx, &model.Notification{UserID: "u1", Message: msg}))
	}
	got, err := st.Notifications.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].Message)
	assert.Equal(t, "two", got[1].Message)

	require.NoError(t, st.Notifications.AcknowledgeAll(ctx, "u1"))
	got, err = st.Notifications.ListByUser(ctx, "u1", 0)
	require.NoError(t, err)
	for _, n := range got {
		assert.True(t, n.Acknowledged)
	}
}

func TestFailOn(t *testing.T) {
	ctx := context.Background()
	s := New()
	st := s.Stores()
	require.NoError(t, st.Likes.Create(ctx, &model.Like{UserID: "u1", MomentID: "m1"}))

	boom := errors.New("boom")
	s.FailOn("likes.ListByMoment", boom)
	_, err := st.Likes.ListByMoment(ctx, "m1")
	assert.ErrorIs(t, err, boom)

	s.FailOn("likes.ListByMoment", nil)
	likes, err := st.Likes.ListByMoment(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, likes, 1)
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	st := New().Stores()
	assert.ErrorIs(t, st.Comments.Delete(ctx, "nope"), repository.ErrNotFound)
	assert.ErrorIs(t, st.Privates.Delete(ctx, "nope"), repository.ErrNotFound)
}

func TestCreateKeepsSuppliedTimestamp(t *testing.T) {
	ctx := context.Background()
	st := New().Stores()
	when := time.Date(2015, 3, 1, 12, 0, 0, 0, time.UTC)

	m := &model.Moment{UserID: "u1", CreatedAt: when}
	require.NoError(t, st.Moments.Create(ctx, m))
	got, err := st.Moments.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, when, got.CreatedAt)

	u := &model.User{Username: "old", Email: "old@example.com", CreatedAt: when}
	require.NoError(t, st.Users.Create(ctx, u))
	assert.Equal(t, when, u.UpdatedAt)

	fresh := &model.Moment{UserID: "u1"}
	require.NoError(t, st.Moments.Create(ctx, fresh))
	assert.False(t, fresh.CreatedAt.IsZero())
}

func TestAccessTokenUpdatePersistsType(t *testing.T) {
	ctx := context.Background()
	st := New().Stores()

	at := &model.AccessToken{UserID: "u1", ClientID: "c1", Token: "a"}
	require.NoError(t, st.AccessTokens.Create(ctx, at))
	at.Type = model.TokenTypeTwitter
	at.Token = "b"
	require.NoError(t, st.AccessTokens.Update(ctx, at))

	got, err := st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{ID: at.ID})
	require.NoError(t, err)
	assert.Equal(t, model.TokenTypeTwitter, got.Type)
	assert.Equal(t, "b", got.Token)
}
