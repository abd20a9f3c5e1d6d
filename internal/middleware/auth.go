package middleware

import (
    "context"
    "errors"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/phenom-api/internal/apperror"
    "github.com/iliyamo/phenom-api/internal/model"
    "github.com/iliyamo/phenom-api/internal/provider"
)

// lookupTimeout bounds the store round trips made by the gatekeepers.
const lookupTimeout = 5 * time.Second

// ClientValidator checks API client credentials.
type ClientValidator interface {
    ValidateClient(ctx context.Context, clientID, secretB64 string) (*model.Client, error)
}

// BearerValidator resolves bearer tokens.
type BearerValidator interface {
    ValidateBearer(ctx context.Context, token string) (*model.User, *model.AccessToken, error)
}

// ClientAuth authenticates the calling application.  Credentials come from
// HTTP Basic auth or from client_id/client_secret form or query fields; the
// secret is base64 encoded either way.  The client is stored under
// "client".
func ClientAuth(auth ClientValidator) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, secret, ok := c.Request().BasicAuth()
            if !ok {
                id, secret = c.FormValue("client_id"), c.FormValue("client_secret")
            }
            ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
            defer cancel()
            client, err := auth.ValidateClient(ctx, id, secret)
            if err != nil {
                c.Logger().Debugf("client auth failed for %q: %v", id, err)
                return apperror.Write(c, apperror.ClientNotAuthorized)
            }
            c.Set(keyClient, client)
            return next(c)
        }
    }
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(c echo.Context) (string, bool) {
    scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
    if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
        return "", false
    }
    return token, true
}

// BearerAuth authenticates the calling user and stores the user under
// "user" and the access token row under "access_token".
func BearerAuth(auth BearerValidator) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            token, ok := BearerToken(c)
            if !ok {
                return apperror.Write(c, apperror.UserNotAuthorized)
            }
            ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
            defer cancel()
            user, at, err := auth.ValidateBearer(ctx, token)
            if err != nil {
                return apperror.Write(c, apperror.UserNotAuthorized)
            }
            c.Set(keyUser, user)
            c.Set(keyAccessToken, at)
            return next(c)
        }
    }
}

// RequireTokenType admits only bearer tokens of the given type.  When
// verifier is set the provider token stored on the row is checked with the
// provider as well.  Must run after BearerAuth.
func RequireTokenType(typ model.TokenType, verifier provider.Verifier) echo.MiddlewareFunc {
    reject := apperror.UserNotAuthorized
    switch typ {
    case model.TokenTypeFacebook:
        reject = apperror.InvalidFacebookToken
    case model.TokenTypeTwitter:
        reject = apperror.InvalidTwitterToken
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            at := AccessToken(c)
            if at == nil || at.Type != typ {
                return apperror.Write(c, reject)
            }
            if verifier == nil {
                return next(c)
            }
            cred := provider.Credentials{AccessToken: at.FacebookAccessToken}
            if typ == model.TokenTypeTwitter {
                cred = provider.Credentials{AccessToken: at.TwitterAccessToken, TokenSecret: at.TwitterTokenSecret}
            }
            ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
            defer cancel()
            profile, err := verifier.Verify(ctx, cred)
            if err != nil {
                return apperror.Write(c, reject)
            }
            c.Set(keyProfile, profile)
            c.Set(keyCredentials, cred)
            return next(c)
        }
    }
}

// ProviderToken verifies third-party credentials sent with a token
// exchange: access_token for Facebook, oauth_token and oauth_token_secret
// for Twitter.  An optional refresh_token is carried along.  The verified
// profile is stored under "profile".
func ProviderToken(verifier provider.Verifier, kind provider.Kind, log *zap.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    reject := apperror.InvalidFacebookToken
    if kind == provider.Twitter {
        reject = apperror.InvalidTwitterToken
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            cred := provider.Credentials{RefreshToken: c.FormValue("refresh_token")}
            switch kind {
            case provider.Twitter:
                cred.AccessToken = c.FormValue("oauth_token")
                cred.TokenSecret = c.FormValue("oauth_token_secret")
            default:
                cred.AccessToken = c.FormValue("access_token")
            }

            ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
            defer cancel()
            profile, err := verifier.Verify(ctx, cred)
            if err != nil {
                if !errors.Is(err, provider.ErrInvalidCredentials) {
                    log.Warn("provider verification failed", zap.String("provider", string(kind)), zap.Error(err))
                }
                return apperror.Write(c, reject)
            }
            c.Set(keyProfile, profile)
            c.Set(keyCredentials, cred)
            return next(c)
        }
    }
}
