package router

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/phenom-api/internal/handler"
	"github.com/iliyamo/phenom-api/internal/media"
	"github.com/iliyamo/phenom-api/internal/model"
	"github.com/iliyamo/phenom-api/internal/provider"
	"github.com/iliyamo/phenom-api/internal/queue"
	"github.com/iliyamo/phenom-api/internal/repository"
	"github.com/iliyamo/phenom-api/internal/repository/memory"
	"github.com/iliyamo/phenom-api/internal/service/auth"
	"github.com/iliyamo/phenom-api/internal/service/cascade"
	"github.com/iliyamo/phenom-api/internal/service/password"
	"github.com/iliyamo/phenom-api/internal/service/social"
)

type nopPush struct{}

func (nopPush) Register(context.Context, model.DeviceType, string) (string, error) {
	return "arn:endpoint", nil
}
func (nopPush) Deregister(context.Context, string, model.DeviceType) error { return nil }

type nopMedia struct{}

func (nopMedia) Delete(context.Context, media.Folder, string) error { return nil }

type rejectAll struct{}

func (rejectAll) Verify(context.Context, provider.Credentials) (provider.Profile, error) {
	return provider.Profile{}, provider.ErrInvalidCredentials
}

// profileByToken vouches for the profile id equal to the presented token.
type profileByToken struct{}

func (profileByToken) Verify(_ context.Context, cred provider.Credentials) (provider.Profile, error) {
	return provider.Profile{ID: cred.AccessToken, Emails: []string{cred.AccessToken + "@example.com"}}, nil
}

const (
	clientID     = "ios"
	clientSecret = "client-secret"
	version      = "1.2.3"
)

// mailbox keeps the last reset token handed to the mailer.
type mailbox struct{ token string }

func (m *mailbox) PublishPasswordReset(_ context.Context, ev queue.PasswordResetRequestedEvent) error {
	m.token = ev.Token
	return nil
}

type app struct {
	e      *echo.Echo
	mem    *memory.Store
	stores repository.Stores
	mail   *mailbox
}

func newApp(t *testing.T) *app {
	t.Helper()
	return newAppWith(t, rejectAll{})
}

// newAppWith serves the provider exchanges with verifier.
func newAppWith(t *testing.T, verifier provider.Verifier) *app {
	t.Helper()
	mem := memory.New()
	stores := mem.Stores()
	cascades := cascade.New(cascade.Deps{Stores: stores, Push: nopPush{}, Media: nopMedia{}})
	t.Cleanup(cascades.Wait)

	authSvc := auth.New(stores, cascades, auth.Config{
		TokenLifetime:         time.Hour,
		FacebookTokenLifetime: 30 * 24 * time.Hour,
		TwitterTokenLifetime:  30 * 24 * time.Hour,
		BcryptCost:            bcrypt.MinCost,
	}, nil, nil)
	_, err := authSvc.CreateClient(context.Background(), "iOS", clientID, clientSecret)
	require.NoError(t, err)
	socialSvc := social.New(stores, cascades, nopPush{}, social.Config{BcryptCost: bcrypt.MinCost}, nil)
	mail := &mailbox{}
	passwordSvc := password.New(stores.Users, stores.Privates, mail, password.Config{Secret: "reset-secret", BcryptCost: bcrypt.MinCost}, nil)

	e := echo.New()
	g := NewGatekeepers(authSvc, version, verifier, verifier, nil, nil, nil)
	RegisterRoutes(e, handler.Health(nil))
	RegisterAuth(e, handler.NewAuthHandler(authSvc, nil), g)
	RegisterSocial(e, handler.NewSocialHandler(socialSvc, nil), g)
	RegisterPassword(e, handler.NewPasswordHandler(passwordSvc, nil), g)
	return &app{e: e, mem: mem, stores: stores, mail: mail}
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

type call struct {
	method, path string
	form         url.Values
	json         string
	bearer       string
	client       bool
	version      string
}

func (a *app) do(t *testing.T, c call) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(c.method, c.path, nil)
	switch {
	case c.form != nil:
		req = httptest.NewRequest(c.method, c.path, strings.NewReader(c.form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	case c.json != "":
		req = httptest.NewRequest(c.method, c.path, strings.NewReader(c.json))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.version == "" {
		c.version = version
	}
	req.Header.Set("apiversion", c.version)
	if c.client {
		req.SetBasicAuth(clientID, b64(clientSecret))
	}
	if c.bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (a *app) register(t *testing.T, username string) string {
	t.Helper()
	code, body := a.do(t, call{method: http.MethodPost, path: "/v1/users", client: true, form: url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {b64("pw-" + username)},
	}})
	require.Equal(t, http.StatusOK, code, body)
	return body["user"].(map[string]any)["id"].(string)
}

func (a *app) login(t *testing.T, username string) (access, refresh string) {
	t.Helper()
	code, body := a.do(t, call{method: http.MethodPost, path: "/oauth/token", client: true, form: url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {b64("pw-" + username)},
	}})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Bearer", body["token_type"])
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSocialFlow(t *testing.T) {
	a := newApp(t)
	a.register(t, "alice")
	bobID := a.register(t, "bob")
	alice, _ := a.login(t, "alice")
	bob, _ := a.login(t, "bob")

	code, body := a.do(t, call{method: http.MethodPost, path: "/v1/moments", bearer: alice,
		json: `{"headline":"sunset with @bob","productIds":["p1"]}`})
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 200, body["errorCode"])
	moment := body["moment"].(map[string]any)
	momentID := moment["id"].(string)
	assert.Contains(t, moment["referencedUserIds"], bobID)

	code, body = a.do(t, call{method: http.MethodPost, path: "/v1/moments/" + momentID + "/like", bearer: bob})
	require.Equal(t, http.StatusOK, code, body)
	code, body = a.do(t, call{method: http.MethodPost, path: "/v1/moments/" + momentID + "/comments", bearer: bob,
		json: `{"commentText":"nice"}`})
	require.Equal(t, http.StatusOK, code, body)
	commentID := body["comment"].(map[string]any)["id"].(string)

	code, body = a.do(t, call{method: http.MethodGet, path: "/v1/moments/" + momentID, bearer: alice})
	require.Equal(t, http.StatusOK, code, body)
	moment = body["moment"].(map[string]any)
	assert.EqualValues(t, 1, moment["likeCount"])
	assert.EqualValues(t, 1, moment["commentCount"])

	code, body = a.do(t, call{method: http.MethodGet, path: "/v1/notifications", bearer: alice})
	require.Equal(t, http.StatusOK, code, body)
	assert.NotEmpty(t, body["notifications"])

	// Only the author of the comment or of the moment may delete it.
	a.register(t, "carol")
	carolToken, _ := a.login(t, "carol")
	code, body = a.do(t, call{method: http.MethodDelete, path: "/v1/comments/" + commentID, bearer: carolToken})
	assert.Equal(t, http.StatusForbidden, code)
	assert.EqualValues(t, 411, body["errorCode"])

	code, _ = a.do(t, call{method: http.MethodDelete, path: "/v1/comments/" + commentID, bearer: alice})
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(t, call{method: http.MethodDelete, path: "/v1/moments/" + momentID, bearer: alice})
	assert.Equal(t, http.StatusOK, code)
	code, body = a.do(t, call{method: http.MethodGet, path: "/v1/moments/" + momentID, bearer: alice})
	assert.Equal(t, http.StatusNotFound, code)
	assert.EqualValues(t, 421, body["errorCode"])
}

func TestTokenRefreshAndLogout(t *testing.T) {
	a := newApp(t)
	a.register(t, "alice")
	access, refresh := a.login(t, "alice")

	code, body := a.do(t, call{method: http.MethodPost, path: "/oauth/token", client: true, form: url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
	}})
	require.Equal(t, http.StatusOK, code, body)
	rotated, rotatedRefresh := body["access_token"].(string), body["refresh_token"].(string)
	assert.NotEqual(t, access, rotated)
	assert.NotEqual(t, refresh, rotatedRefresh)

	code, body = a.do(t, call{method: http.MethodGet, path: "/v1/notifications", bearer: access})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.EqualValues(t, 405, body["errorCode"])

	code, _ = a.do(t, call{method: http.MethodDelete, path: "/oauth/token", bearer: rotated})
	require.Equal(t, http.StatusOK, code)
	code, _ = a.do(t, call{method: http.MethodGet, path: "/v1/notifications", bearer: rotated})
	assert.Equal(t, http.StatusUnauthorized, code)

	// The refresh token went with the access token.
	code, body = a.do(t, call{method: http.MethodPost, path: "/oauth/token", client: true, form: url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {rotatedRefresh},
	}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, 416, body["errorCode"])
}

func TestTokenErrors(t *testing.T) {
	a := newApp(t)
	a.register(t, "alice")

	tests := []struct {
		name   string
		form   url.Values
		client bool
		status int
		code   float64
	}{
		{"no client", url.Values{"grant_type": {"password"}}, false, http.StatusUnauthorized, 412},
		{"missing grant", url.Values{}, true, http.StatusBadRequest, 402},
		{"unknown grant", url.Values{"grant_type": {"implicit"}}, true, http.StatusBadRequest, 402},
		{"missing password", url.Values{"grant_type": {"password"}, "username": {"alice"}}, true, http.StatusBadRequest, 402},
		{"wrong password", url.Values{"grant_type": {"password"}, "username": {"alice"}, "password": {b64("nope")}}, true, http.StatusUnauthorized, 404},
		{"bad refresh", url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"nope"}}, true, http.StatusBadRequest, 416},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := a.do(t, call{method: http.MethodPost, path: "/oauth/token", client: tt.client, form: tt.form})
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.code, body["errorCode"])
		})
	}
}

func TestOldClientIsLoggedOut(t *testing.T) {
	a := newApp(t)
	a.register(t, "alice")
	access, _ := a.login(t, "alice")

	code, body := a.do(t, call{method: http.MethodGet, path: "/v1/notifications", bearer: access, version: "1.0.0"})
	assert.Equal(t, http.StatusUpgradeRequired, code)
	assert.EqualValues(t, 410, body["errorCode"])

	code, _ = a.do(t, call{method: http.MethodGet, path: "/v1/notifications", bearer: access})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestProviderTokenRejected(t *testing.T) {
	a := newApp(t)
	code, body := a.do(t, call{method: http.MethodPost, path: "/oauth/facebook/token", client: true, form: url.Values{
		"grant_type":   {"password"},
		"access_token": {"fb"},
	}})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.EqualValues(t, 417, body["errorCode"])
}

func TestDeleteMeRemovesEverything(t *testing.T) {
	a := newApp(t)
	id := a.register(t, "alice")
	access, _ := a.login(t, "alice")

	code, body := a.do(t, call{method: http.MethodPut, path: "/v1/notifications/device", bearer: access,
		json: `{"deviceType":0,"deviceId":"apns-token"}`})
	require.Equal(t, http.StatusOK, code, body)

	code, body = a.do(t, call{method: http.MethodDelete, path: "/v1/users/me", bearer: access})
	require.Equal(t, http.StatusOK, code, body)

	_, err := a.stores.Users.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	code, _ = a.do(t, call{method: http.MethodGet, path: "/v1/notifications", bearer: access})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPasswordResetAndChange(t *testing.T) {
	a := newApp(t)
	a.register(t, "alice")

	code, body := a.do(t, call{method: http.MethodPost, path: "/v1/password/forgot", client: true,
		form: url.Values{"email": {"nobody@example.com"}}})
	assert.Equal(t, http.StatusNotFound, code)
	assert.EqualValues(t, 407, body["errorCode"])

	code, body = a.do(t, call{method: http.MethodPost, path: "/v1/password/forgot", client: true,
		form: url.Values{"email": {"alice@example.com"}}})
	require.Equal(t, http.StatusOK, code, body)
	require.NotEmpty(t, a.mail.token)

	code, body = a.do(t, call{method: http.MethodPost, path: "/v1/password/reset", client: true,
		form: url.Values{"token": {a.mail.token}, "password": {b64("fresh")}}})
	require.Equal(t, http.StatusOK, code, body)

	// The token is single use.
	code, body = a.do(t, call{method: http.MethodPost, path: "/v1/password/reset", client: true,
		form: url.Values{"token": {a.mail.token}, "password": {b64("again")}}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, 408, body["errorCode"])

	code, body = a.do(t, call{method: http.MethodPost, path: "/oauth/token", client: true, form: url.Values{
		"grant_type": {"password"}, "username": {"alice"}, "password": {b64("fresh")},
	}})
	require.Equal(t, http.StatusOK, code, body)
	access := body["access_token"].(string)

	code, body = a.do(t, call{method: http.MethodPut, path: "/v1/password", bearer: access,
		form: url.Values{"oldPassword": {b64("wrong")}, "newPassword": {b64("x")}}})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.EqualValues(t, 404, body["errorCode"])

	code, body = a.do(t, call{method: http.MethodPut, path: "/v1/password", bearer: access,
		form: url.Values{"oldPassword": {b64("fresh")}, "newPassword": {b64("newer")}}})
	assert.Equal(t, http.StatusOK, code, body)
}

func TestProviderExchangeReturnsPlainTokenBody(t *testing.T) {
	a := newAppWith(t, profileByToken{})
	code, body := a.do(t, call{method: http.MethodPost, path: "/v1/users", client: true, form: url.Values{
		"username":   {"alice"},
		"email":      {"alice@example.com"},
		"password":   {b64("pw-alice")},
		"facebookId": {"fb-1"},
		"twitterId":  {"tw-1"},
	}})
	require.Equal(t, http.StatusOK, code, body)

	for _, tc := range []struct {
		path string
		form url.Values
	}{
		{"/oauth/facebook/token", url.Values{"grant_type": {"access_token"}, "access_token": {"fb-1"}}},
		{"/oauth/twitter/token", url.Values{"grant_type": {"access_token"}, "oauth_token": {"tw-1"}, "oauth_token_secret": {"s"}}},
	} {
		code, body := a.do(t, call{method: http.MethodPost, path: tc.path, client: true, form: tc.form})
		require.Equal(t, http.StatusOK, code, body)
		assert.NotContains(t, body, "errorCode", tc.path)
		assert.NotContains(t, body, "refresh_token", tc.path)
		assert.Equal(t, "Bearer", body["token_type"], tc.path)
		assert.EqualValues(t, 2592000, body["expires_in"], tc.path)

		code, _ = a.do(t, call{method: http.MethodGet, path: "/v1/notifications", bearer: body["access_token"].(string)})
		assert.Equal(t, http.StatusOK, code, tc.path)
	}
}

func TestLinkFacebookThroughProfileUpdate(t *testing.T) {
	a := newAppWith(t, profileByToken{})
	a.register(t, "bob")
	a.register(t, "carol")
	bob, _ := a.login(t, "bob")
	carol, _ := a.login(t, "carol")

	code, body := a.do(t, call{method: http.MethodPost, path: "/oauth/facebook/token", client: true,
		form: url.Values{"grant_type": {"access_token"}, "access_token": {"fb-9"}}})
	assert.Equal(t, http.StatusNotFound, code)
	assert.EqualValues(t, 414, body["errorCode"])

	code, body = a.do(t, call{method: http.MethodPut, path: "/v1/users/me", bearer: bob,
		json: `{"facebookId":"fb-9","firstName":"Bob"}`})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Bob", body["user"].(map[string]any)["firstName"])

	code, body = a.do(t, call{method: http.MethodPost, path: "/oauth/facebook/token", client: true,
		form: url.Values{"grant_type": {"access_token"}, "access_token": {"fb-9"}}})
	require.Equal(t, http.StatusOK, code, body)

	code, body = a.do(t, call{method: http.MethodPut, path: "/v1/users/me", bearer: carol,
		json: `{"facebookId":"fb-9"}`})
	assert.Equal(t, http.StatusConflict, code)
	assert.EqualValues(t, 415, body["errorCode"])
}

func TestLogoutStorageFailureIsServerError(t *testing.T) {
	a := newApp(t)
	a.register(t, "alice")
	access, _ := a.login(t, "alice")

	a.mem.FailOn("accessTokens.Delete", errors.New("lock wait timeout"))
	code, body := a.do(t, call{method: http.MethodDelete, path: "/oauth/token", bearer: access})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.EqualValues(t, 501, body["errorCode"])

	a.mem.FailOn("accessTokens.Delete", nil)
	code, _ = a.do(t, call{method: http.MethodDelete, path: "/oauth/token", bearer: access})
	assert.Equal(t, http.StatusOK, code)
}
