package middleware

import (
    "context"
    "strings"

    "github.com/hashicorp/go-version"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/phenom-api/internal/apperror"
)

// versionHeader carries the client build, e.g. "1.4.0".
const versionHeader = "apiversion"

// Logouter ends the session of a bearer token.
type Logouter interface {
    Logout(ctx context.Context, token string) error
}

// VersionSupported rejects clients older than min with
// VERSION_NOT_SUPPORTED.  A rejected client that sent a bearer token is
// logged out so the app has to sign in again after upgrading.  min must
// parse as a version; config.Load checks API_MIN_VERSION.
func VersionSupported(min string, auth Logouter) echo.MiddlewareFunc {
    oldest := version.Must(version.NewVersion(min))
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if supported(c.Request().Header.Get(versionHeader), oldest) {
                return next(c)
            }
            if token, ok := BearerToken(c); ok && auth != nil {
                ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
                defer cancel()
                if err := auth.Logout(ctx, token); err != nil {
                    c.Logger().Warnf("logout of unsupported client failed: %v", err)
                }
            }
            return apperror.Write(c, apperror.VersionNotSupported)
        }
    }
}

// supported reports whether header names a release at or after oldest.
// Missing and unparsable values are not supported.
func supported(header string, oldest *version.Version) bool {
    v, err := version.NewVersion(strings.TrimSpace(header))
    return err == nil && v.GreaterThanOrEqual(oldest)
}
