package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/phenom-api/internal/model"
)

func newMock(t *testing.T) (*AccessTokenRepo, *RefreshTokenRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewAccessTokenRepo(db), NewRefreshTokenRepo(db), mock
}

var accessTokenRow = []string{"id", "user_id", "client_id", "token", "type",
	"twitter_access_token", "twitter_token_secret", "facebook_access_token", "created_at"}

func TestAccessTokenCreateStampsMissingFields(t *testing.T) {
	repo, _, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO access_tokens (" + accessTokenColumns + ")")).
		WithArgs(sqlmock.AnyArg(), "u1", "c1", "tok", int64(model.TokenTypeFacebook), "", "", "fb-token", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	at := &model.AccessToken{UserID: "u1", ClientID: "c1", Token: "tok", Type: model.TokenTypeFacebook, FacebookAccessToken: "fb-token"}
	require.NoError(t, repo.Create(context.Background(), at))
	assert.NotEmpty(t, at.ID)
	assert.False(t, at.CreatedAt.IsZero())
}

func TestAccessTokenCreateKeepsSuppliedTimestamp(t *testing.T) {
	repo, _, mock := newMock(t)
	when := time.Date(2015, 6, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO access_tokens")).
		WithArgs("at1", "u1", "c1", "tok", int64(0), "", "", "", when).
		WillReturnResult(sqlmock.NewResult(0, 1))

	at := &model.AccessToken{ID: "at1", UserID: "u1", ClientID: "c1", Token: "tok", CreatedAt: when}
	require.NoError(t, repo.Create(context.Background(), at))
	assert.Equal(t, when, at.CreatedAt)
}

func TestAccessTokenCreateDuplicate(t *testing.T) {
	repo, _, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO access_tokens")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'tok' for key 'uq_access_tokens_token'"})

	err := repo.Create(context.Background(), &model.AccessToken{UserID: "u1", ClientID: "c1", Token: "tok"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAccessTokenFindOneBuildsFilter(t *testing.T) {
	repo, _, mock := newMock(t)
	created := time.Date(2015, 6, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT "+accessTokenColumns+" FROM access_tokens WHERE user_id=? AND token=? AND type=? ORDER BY created_at DESC LIMIT 1")).
		WithArgs("u1", "tok", int64(model.TokenTypeTwitter)).
		WillReturnRows(sqlmock.NewRows(accessTokenRow).
			AddRow("at1", "u1", "c1", "tok", int64(model.TokenTypeTwitter), "tw", "secret", "", created))

	typ := model.TokenTypeTwitter
	at, err := repo.FindOne(context.Background(), model.AccessTokenQuery{UserID: "u1", Token: "tok", Type: &typ})
	require.NoError(t, err)
	assert.Equal(t, "at1", at.ID)
	assert.Equal(t, model.TokenTypeTwitter, at.Type)
	assert.Equal(t, "secret", at.TwitterTokenSecret)
	assert.Equal(t, created, at.CreatedAt)
}

func TestAccessTokenFindOneMisses(t *testing.T) {
	repo, _, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM access_tokens WHERE token=?")).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows(accessTokenRow))

	_, err := repo.FindOne(context.Background(), model.AccessTokenQuery{Token: "gone"})
	assert.ErrorIs(t, err, ErrNotFound)

	// an empty query never reaches the database
	_, err = repo.FindOne(context.Background(), model.AccessTokenQuery{})
	assert.Error(t, err)
}

func TestAccessTokenUpdateWritesType(t *testing.T) {
	repo, _, mock := newMock(t)
	when := time.Date(2015, 6, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE access_tokens SET token=\?, type=\?, twitter_access_token=\?, twitter_token_secret=\?,\s+facebook_access_token=\?, created_at=\? WHERE id=\?`).
		WithArgs("fresh", int64(model.TokenTypeTwitter), "tw", "secret", "", when, "at1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &model.AccessToken{
		ID: "at1", Token: "fresh", Type: model.TokenTypeTwitter,
		TwitterAccessToken: "tw", TwitterTokenSecret: "secret", CreatedAt: when,
	})
	require.NoError(t, err)
}

func TestRefreshTokenUpdate(t *testing.T) {
	_, repo, mock := newMock(t)
	when := time.Date(2015, 6, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET token=?, created_at=? WHERE id=?")).
		WithArgs("next", when, "rt1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), &model.RefreshToken{ID: "rt1", Token: "next", CreatedAt: when}))
}
