package middleware

// identity.go holds the context keys set by the gatekeeper middlewares and
// typed accessors for handlers.  Accessors return nil when the value is
// missing, which only happens when a route is registered without the
// matching middleware.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/phenom-api/internal/model"
    "github.com/iliyamo/phenom-api/internal/provider"
)

const (
    keyClient      = "client"
    keyUser        = "user"
    keyAccessToken = "access_token"
    keyProfile     = "profile"
    keyCredentials = "provider_credentials"
)

// Client returns the API client authenticated by ClientAuth.
func Client(c echo.Context) *model.Client {
    v, _ := c.Get(keyClient).(*model.Client)
    return v
}

// User returns the user authenticated by BearerAuth.
func User(c echo.Context) *model.User {
    v, _ := c.Get(keyUser).(*model.User)
    return v
}

// AccessToken returns the bearer token row authenticated by BearerAuth.
func AccessToken(c echo.Context) *model.AccessToken {
    v, _ := c.Get(keyAccessToken).(*model.AccessToken)
    return v
}

// Profile returns the provider profile verified by ProviderToken and the
// credentials it was verified with.
func Profile(c echo.Context) (provider.Profile, provider.Credentials, bool) {
    p, ok := c.Get(keyProfile).(provider.Profile)
    cred, _ := c.Get(keyCredentials).(provider.Credentials)
    return p, cred, ok
}

// userID identifies the caller for rate limiting: the bearer user when
// known, otherwise the API client, otherwise "anon".
func userID(c echo.Context) string {
    if u := User(c); u != nil {
        return u.ID
    }
    if cl := Client(c); cl != nil {
        return "client:" + cl.ClientID
    }
    return "anon"
}
