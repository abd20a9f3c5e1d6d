package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/phenom-api/internal/apperror"
	"github.com/iliyamo/phenom-api/internal/media"
	"github.com/iliyamo/phenom-api/internal/metrics"
	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/provider"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/repository/memory"
	"github.com/iliyamo/phenom-api/internal/service/cascade"
	"github.com/iliyamo/phenom-api/internal/utils"
)

type stubPush struct{ deregistered []string }

func (p *stubPush) Register(context.Context, model.DeviceType, string) (string, error) {
	return "arn:new", nil
}

func (p *stubPush) Deregister(_ context.Context, arn string, _ model.DeviceType) error {
	p.deregistered = append(p.deregistered, arn)
	return nil
}

type stubMedia struct{}

func (stubMedia) Delete(context.Context, media.Folder, string) error { return nil }

type fixture struct {
	mem     *memory.Store
	st      repository.Stores
	push    *stubPush
	metrics *metrics.Metrics
	svc     *Service
	client  *model.Client
}

var testConfig = Config{
	TokenLifetime:         time.Hour,
	FacebookTokenLifetime: 30 * 24 * time.Hour,
	TwitterTokenLifetime:  30 * 24 * time.Hour,
	EnforceExpiry:         true,
	BcryptCost:            bcrypt.MinCost,
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	f := &fixture{mem: mem, st: mem.Stores(), push: &stubPush{}, metrics: metrics.New()}
	mgr := cascade.New(cascade.Deps{Stores: f.st, Push: f.push, Media: stubMedia{}})
	f.svc = New(f.st, mgr, testConfig, nil, f.metrics)

	client, err := f.svc.CreateClient(context.Background(), "ios", "ios-app", "client-secret")
	require.NoError(t, err)
	f.client = client
	return f
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func (f *fixture) user(t *testing.T, u model.User, password string) *model.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.st.Users.Create(ctx, &u))
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.st.Privates.Create(ctx, &model.UserPrivate{UserID: u.ID, PasswordHash: hash}))
	return &u
}

func TestPasswordGrantIssuesOnePairAndRevokesReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, model.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}, "correct horse")
	at := time.Now().UTC()
	require.NoError(t, f.st.Privates.Update(ctx, &model.UserPrivate{
		UserID: alice.ID, PasswordHash: mustPrivate(t, f, alice.ID).PasswordHash,
		ForgotPasswordToken: "pending-reset", ForgotPasswordTokenAt: &at,
	}))

	grant, err := f.svc.PasswordGrant(ctx, f.client, "alice", b64("correct horse"))
	require.NoError(t, err)
	assert.NotEmpty(t, grant.AccessToken)
	assert.NotEmpty(t, grant.RefreshToken)
	assert.NotEqual(t, grant.AccessToken, grant.RefreshToken)
	assert.Equal(t, 3600, grant.ExpiresIn)

	tokens, err := f.st.AccessTokens.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, grant.AccessToken, tokens[0].Token)
	assert.Equal(t, model.TokenTypePhenom, tokens[0].Type)
	assert.Equal(t, f.client.ID, tokens[0].ClientID)

	rt, err := f.st.RefreshTokens.GetByToken(ctx, grant.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, tokens[0].ID, rt.AccessTokenID)
	bound, err := f.st.RefreshTokens.ListByAccessToken(ctx, tokens[0].ID)
	require.NoError(t, err)
	assert.Len(t, bound, 1)

	priv := mustPrivate(t, f, alice.ID)
	assert.Empty(t, priv.ForgotPasswordToken)
	assert.Nil(t, priv.ForgotPasswordTokenAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TokensIssued.WithLabelValues("password")))
}

func mustPrivate(t *testing.T, f *fixture, userID string) *model.UserPrivate {
	t.Helper()
	p, err := f.st.Privates.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return p
}

func TestPasswordGrantFailuresLookAlike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, model.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}, "correct horse")
	require.NoError(t, f.st.Users.Create(ctx, &model.User{ID: "u-ghost", Username: "ghost", Email: "ghost@example.com"}))

	cases := map[string]struct{ username, password string }{
		"unknown user":   {"mallory", b64("correct horse")},
		"wrong password": {"alice", b64("battery staple")},
		"not base64":     {"alice", "%%%"},
		"no private":     {"ghost", b64("anything")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.PasswordGrant(ctx, f.client, tc.username, tc.password)
			assert.ErrorIs(t, err, ErrNoToken)
		})
	}
	tokens, err := f.st.AccessTokens.ListByUser(ctx, "u-alice")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestPasswordGrantStorageErrorIsNotNoToken(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	f.mem.FailOn("users.GetByUsername", boom)

	_, err := f.svc.PasswordGrant(context.Background(), f.client, "alice", b64("x"))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNoToken)
}

func TestRefreshGrantRotatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, model.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}, "pw")

	first, err := f.svc.PasswordGrant(ctx, f.client, "alice", b64("pw"))
	require.NoError(t, err)
	before, err := f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: first.AccessToken})
	require.NoError(t, err)
	rtBefore, err := f.st.RefreshTokens.GetByToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NoError(t, f.st.Targets.Create(ctx, &model.NotificationTarget{
		ID: "nt1", UserID: "u-alice", AccessTokenID: before.ID, DeviceID: "dev", EndpointARN: "arn:dev",
	}))

	second, err := f.svc.RefreshGrant(ctx, f.client, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 3600, second.ExpiresIn)

	after, err := f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: second.AccessToken})
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	rtAfter, err := f.st.RefreshTokens.GetByToken(ctx, second.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, rtBefore.ID, rtAfter.ID)
	assert.Equal(t, after.ID, rtAfter.AccessTokenID)

	_, err = f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: first.AccessToken})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.svc.RefreshGrant(ctx, f.client, first.RefreshToken)
	assert.ErrorIs(t, err, ErrNoToken)
	_, _, err = f.svc.ValidateBearer(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	targets, err := f.st.Targets.ListByAccessToken(ctx, after.ID)
	require.NoError(t, err)
	assert.Len(t, targets, 1)

	user, token, err := f.svc.ValidateBearer(ctx, second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, after.ID, token.ID)
}

func TestRefreshGrantRejectsMismatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, model.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}, "pw")
	grant, err := f.svc.PasswordGrant(ctx, f.client, "alice", b64("pw"))
	require.NoError(t, err)

	other, err := f.svc.CreateClient(ctx, "web", "web-app", "web-secret")
	require.NoError(t, err)
	_, err = f.svc.RefreshGrant(ctx, other, grant.RefreshToken)
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = f.svc.RefreshGrant(ctx, f.client, "")
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = f.svc.RefreshGrant(ctx, f.client, "never-issued")
	assert.ErrorIs(t, err, ErrNoToken)

	// a refresh token whose access token is not PHENOM is refused
	at, err := f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: grant.AccessToken})
	require.NoError(t, err)
	at.Type = model.TokenTypeFacebook
	require.NoError(t, f.st.AccessTokens.Update(ctx, at))
	_, err = f.svc.RefreshGrant(ctx, f.client, grant.RefreshToken)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRefreshGrantUpdateFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, model.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}, "pw")
	grant, err := f.svc.PasswordGrant(ctx, f.client, "alice", b64("pw"))
	require.NoError(t, err)

	boom := errors.New("lock wait timeout")
	f.mem.FailOn("refreshTokens.Update", boom)
	_, err = f.svc.RefreshGrant(ctx, f.client, grant.RefreshToken)
	assert.ErrorIs(t, err, boom)
}

func facebookIn(f *fixture, grant, refresh string, profile provider.Profile) ProviderExchange {
	return ProviderExchange{
		Client:      f.client,
		GrantType:   grant,
		Credentials: provider.Credentials{AccessToken: "fb-token", RefreshToken: refresh},
		Profile:     profile,
	}
}

func TestFacebookExchange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, model.User{ID: "u-linked", Username: "linked", Email: "linked@example.com", FacebookID: "fb-1"}, "pw")
	f.user(t, model.User{ID: "u-legacy", Username: "legacy", Email: "legacy@example.com"}, "pw")

	t.Run("linked user gets a token", func(t *testing.T) {
		res, err := f.svc.FacebookExchange(ctx, facebookIn(f, GrantAccessToken, "", provider.Profile{ID: "fb-1"}))
		require.NoError(t, err)
		assert.Equal(t, 30*24*3600, res.ExpiresIn)
		at, err := f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: res.AccessToken})
		require.NoError(t, err)
		assert.Equal(t, model.TokenTypeFacebook, at.Type)
		assert.Equal(t, "fb-token", at.FacebookAccessToken)
		assert.Equal(t, "u-linked", at.UserID)
	})

	t.Run("legacy account must link", func(t *testing.T) {
		_, err := f.svc.FacebookExchange(ctx, facebookIn(f, GrantAccessToken, "",
			provider.Profile{ID: "fb-2", Emails: []string{"legacy@example.com"}}))
		var appErr *apperror.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.MissingFacebookLink.Code, appErr.Code)
		assert.Equal(t, "legacy", appErr.Context["username"])
		assert.Equal(t, "legacy@example.com", appErr.Context["email"])
	})

	t.Run("nobody with that email", func(t *testing.T) {
		_, err := f.svc.FacebookExchange(ctx, facebookIn(f, GrantAccessToken, "",
			provider.Profile{ID: "fb-3", Emails: []string{"stranger@example.com"}}))
		var appErr *apperror.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.NoUserFound.Code, appErr.Code)
		assert.Equal(t, "stranger@example.com", appErr.Context["email"])
	})

	t.Run("no email at all", func(t *testing.T) {
		_, err := f.svc.FacebookExchange(ctx, facebookIn(f, GrantAccessToken, "", provider.Profile{ID: "fb-4"}))
		assert.ErrorIs(t, err, apperror.ServerUnknown)
	})

	t.Run("unknown grant type", func(t *testing.T) {
		_, err := f.svc.FacebookExchange(ctx, facebookIn(f, "implicit", "", provider.Profile{ID: "fb-1"}))
		assert.ErrorIs(t, err, apperror.InvalidParams)
	})

	t.Run("storage failure is remapped", func(t *testing.T) {
		f.mem.FailOn("users.GetByFacebookID", errors.New("too many connections"))
		defer f.mem.FailOn("users.GetByFacebookID", nil)
		_, err := f.svc.FacebookExchange(ctx, facebookIn(f, GrantAccessToken, "", provider.Profile{ID: "fb-1"}))
		var appErr *apperror.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.ServerUnknown.Code, appErr.Code)
	})
}

func TestFacebookRefreshRotatesExistingToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, model.User{ID: "u-linked", Username: "linked", Email: "linked@example.com", FacebookID: "fb-1"}, "pw")

	first, err := f.svc.FacebookExchange(ctx, facebookIn(f, GrantAccessToken, "", provider.Profile{ID: "fb-1"}))
	require.NoError(t, err)
	orig, err := f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: first.AccessToken})
	require.NoError(t, err)

	in := facebookIn(f, GrantRefreshToken, first.AccessToken, provider.Profile{ID: "fb-1"})
	in.Credentials.AccessToken = "fb-token-2"
	second, err := f.svc.FacebookExchange(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	rotated, err := f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: second.AccessToken})
	require.NoError(t, err)
	assert.Equal(t, orig.ID, rotated.ID)
	assert.Equal(t, "fb-token-2", rotated.FacebookAccessToken)

	// nothing to rotate: a fresh token is created
	third, err := f.svc.FacebookExchange(ctx, facebookIn(f, GrantRefreshToken, "unknown", provider.Profile{ID: "fb-1"}))
	require.NoError(t, err)
	tokens, err := f.st.AccessTokens.ListByUser(ctx, "u-linked")
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
	assert.NotEqual(t, second.AccessToken, third.AccessToken)
}

func TestTwitterExchange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, model.User{ID: "u-tw", Username: "tweeter", Email: "tw@example.com", TwitterID: "42"}, "pw")

	in := ProviderExchange{
		Client:      f.client,
		GrantType:   GrantAccessToken,
		Credentials: provider.Credentials{AccessToken: "oauth-token", TokenSecret: "oauth-secret"},
		Profile:     provider.Profile{ID: "42"},
	}
	first, err := f.svc.TwitterExchange(ctx, in)
	require.NoError(t, err)
	at, err := f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: first.AccessToken})
	require.NoError(t, err)
	assert.Equal(t, model.TokenTypeTwitter, at.Type)
	assert.Equal(t, "oauth-token", at.TwitterAccessToken)
	assert.Equal(t, "oauth-secret", at.TwitterTokenSecret)

	in.GrantType = GrantRefreshToken
	in.Credentials = provider.Credentials{AccessToken: "oauth-token-2", TokenSecret: "oauth-secret-2", RefreshToken: first.AccessToken}
	second, err := f.svc.TwitterExchange(ctx, in)
	require.NoError(t, err)
	rotated, err := f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: second.AccessToken})
	require.NoError(t, err)
	assert.Equal(t, at.ID, rotated.ID)
	assert.Equal(t, "oauth-token-2", rotated.TwitterAccessToken)
	assert.Equal(t, "oauth-secret-2", rotated.TwitterTokenSecret)
	assert.Empty(t, rotated.FacebookAccessToken)

	in.Profile.ID = "43"
	_, err = f.svc.TwitterExchange(ctx, in)
	assert.ErrorIs(t, err, apperror.NoUserFound)
}

func TestLogoutCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, model.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}, "pw")
	grant, err := f.svc.PasswordGrant(ctx, f.client, "alice", b64("pw"))
	require.NoError(t, err)
	at, err := f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: grant.AccessToken})
	require.NoError(t, err)
	require.NoError(t, f.st.Targets.Create(ctx, &model.NotificationTarget{
		ID: "nt1", UserID: "u-alice", AccessTokenID: at.ID, DeviceID: "dev", EndpointARN: "arn:dev",
	}))

	require.NoError(t, f.svc.Logout(ctx, grant.AccessToken))

	_, _, err = f.svc.ValidateBearer(ctx, grant.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.st.RefreshTokens.GetByToken(ctx, grant.RefreshToken)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.st.Targets.GetByID(ctx, "nt1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, []string{"arn:dev"}, f.push.deregistered)

	assert.NoError(t, f.svc.Logout(ctx, grant.AccessToken))
	assert.NoError(t, f.svc.Logout(ctx, ""))
}

func TestValidateBearerExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, model.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}, "pw")
	grant, err := f.svc.PasswordGrant(ctx, f.client, "alice", b64("pw"))
	require.NoError(t, err)

	later := time.Now().UTC().Add(2 * time.Hour)
	f.svc.now = func() time.Time { return later }

	f.svc.cfg.EnforceExpiry = false
	_, _, err = f.svc.ValidateBearer(ctx, grant.AccessToken)
	require.NoError(t, err)

	f.svc.cfg.EnforceExpiry = true
	_, _, err = f.svc.ValidateBearer(ctx, grant.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// the rejected token and its refresh token survive, so the client can renew
	_, err = f.st.AccessTokens.FindOne(ctx, model.AccessTokenQuery{Token: grant.AccessToken})
	require.NoError(t, err)
	renewed, err := f.svc.RefreshGrant(ctx, f.client, grant.RefreshToken)
	require.NoError(t, err)
	_, _, err = f.svc.ValidateBearer(ctx, renewed.AccessToken)
	require.NoError(t, err)
}

func TestValidateClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.ValidateClient(ctx, "ios-app", b64("client-secret"))
	require.NoError(t, err)
	assert.Equal(t, f.client.ID, c.ID)

	for _, tc := range []struct{ id, secret string }{
		{"ios-app", b64("wrong")},
		{"ios-app", "not base64!"},
		{"android-app", b64("client-secret")},
		{"", ""},
	} {
		_, err := f.svc.ValidateClient(ctx, tc.id, tc.secret)
		assert.ErrorIs(t, err, ErrUnauthorized, "client %q", tc.id)
	}
}

func TestRotateSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RotateSecret(ctx, "ios-app", "new-secret"))
	_, err := f.svc.ValidateClient(ctx, "ios-app", b64("client-secret"))
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.ValidateClient(ctx, "ios-app", b64("new-secret"))
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.RotateSecret(ctx, "ios-app", ""), apperror.InvalidParams)
	assert.ErrorIs(t, f.svc.RotateSecret(ctx, "unknown", "x"), repository.ErrNotFound)
}
