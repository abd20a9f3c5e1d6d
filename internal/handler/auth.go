package handler

import (
    "context"  // provides context with cancellation for store calls
    "errors"   // sentinel matching on auth errors
    "net/http" // HTTP status codes
    "time"     // timeouts for store calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "go.uber.org/zap"             // structured logging

    "github.com/iliyamo/phenom-api/internal/apperror"     // response envelope
    "github.com/iliyamo/phenom-api/internal/middleware"   // gatekeeper context accessors
    "github.com/iliyamo/phenom-api/internal/service/auth" // token lifecycle
)

// AuthHandler serves the OAuth2 token endpoints.
type AuthHandler struct {
    Auth *auth.Service
    Log  *zap.Logger
}

func NewAuthHandler(a *auth.Service, log *zap.Logger) *AuthHandler {
    return &AuthHandler{Auth: a, Log: orNop(log)}
}

// ----- DTOs -----

// tokenResp is the OAuth2 token response.  RefreshToken is omitted by the
// provider exchanges.
type tokenResp struct {
    AccessToken  string `json:"access_token"`
    RefreshToken string `json:"refresh_token,omitempty"`
    ExpiresIn    int    `json:"expires_in"`
    TokenType    string `json:"token_type"`
}

// Token implements POST /oauth/token for the password and refresh_token
// grants.  Fields arrive form encoded as in RFC 6749; the password is base64.
func (h *AuthHandler) Token(c echo.Context) error {
    client := middleware.Client(c)
    grantType := c.FormValue("grant_type")

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    var (
        grant auth.Grant
        err   error
    )
    switch grantType {
    case "password":
        username, password := c.FormValue("username"), c.FormValue("password")
        if username == "" || password == "" {
            return apperror.Write(c, apperror.InvalidParams.With("params", missing(map[string]string{
                "username": username, "password": password,
            })))
        }
        grant, err = h.Auth.PasswordGrant(ctx, client, username, password)
        if errors.Is(err, auth.ErrNoToken) {
            return apperror.Write(c, apperror.InvalidPassword.With("error", "invalid_grant"))
        }
    case "refresh_token":
        grant, err = h.Auth.RefreshGrant(ctx, client, c.FormValue("refresh_token"))
        if errors.Is(err, auth.ErrNoToken) {
            return apperror.Write(c, apperror.InvalidRefreshToken.With("error", "invalid_grant"))
        }
    case "":
        return apperror.Write(c, apperror.InvalidParams.With("params", []string{"grant_type"}))
    default:
        return apperror.Write(c, apperror.InvalidParams.With("error", "unsupported_grant_type"))
    }
    if err != nil {
        return h.fail(c, "token", err)
    }
    return c.JSON(http.StatusOK, tokenResp{
        AccessToken:  grant.AccessToken,
        RefreshToken: grant.RefreshToken,
        ExpiresIn:    grant.ExpiresIn,
        TokenType:    "Bearer",
    })
}

// Facebook implements POST /oauth/facebook/token.
func (h *AuthHandler) Facebook(c echo.Context) error {
    return h.exchange(c, h.Auth.FacebookExchange)
}

// Twitter implements POST /oauth/twitter/token.
func (h *AuthHandler) Twitter(c echo.Context) error {
    return h.exchange(c, h.Auth.TwitterExchange)
}

func (h *AuthHandler) exchange(c echo.Context, run func(context.Context, auth.ProviderExchange) (auth.ExchangeResult, error)) error {
    grantType := c.FormValue("grant_type")
    if grantType == "" {
        return apperror.Write(c, apperror.InvalidParams.With("params", []string{"grant_type"}))
    }
    profile, cred, ok := middleware.Profile(c)
    if !ok {
        return h.fail(c, "exchange", errors.New("provider profile missing from context"))
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    res, err := run(ctx, auth.ProviderExchange{
        Client:      middleware.Client(c),
        GrantType:   grantType,
        Credentials: cred,
        Profile:     profile,
    })
    if err != nil {
        return h.fail(c, "exchange", err)
    }
    return c.JSON(http.StatusOK, tokenResp{
        AccessToken: res.AccessToken,
        ExpiresIn:   res.ExpiresIn,
        TokenType:   "Bearer",
    })
}

// Logout implements DELETE /oauth/token.  The bearer token, its refresh
// token and its notification targets are removed.
func (h *AuthHandler) Logout(c echo.Context) error {
    token, ok := middleware.BearerToken(c)
    if !ok {
        return apperror.Write(c, apperror.UserNotAuthorized)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Auth.Logout(ctx, token); err != nil {
        return h.fail(c, "logout", err)
    }
    return apperror.OK(c, nil)
}

func (h *AuthHandler) fail(c echo.Context, op string, err error) error {
    return writeErr(c, h.Log, op, err)
}
