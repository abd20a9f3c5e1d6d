package handler // handler defines http handlers

import (
    "errors"
    "sort"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/phenom-api/internal/apperror"
)

func orNop(log *zap.Logger) *zap.Logger {
    if log == nil {
        return zap.NewNop()
    }
    return log
}

// writeErr sends err as the error envelope.  Errors outside the catalog,
// and catalog errors wrapping a cause, are logged first.
func writeErr(c echo.Context, log *zap.Logger, op string, err error) error {
    var appErr *apperror.Error
    if !errors.As(err, &appErr) || appErr.Cause != nil {
        log.Error("request failed",
            zap.String("op", op),
            zap.String("method", c.Request().Method),
            zap.String("path", c.Path()),
            zap.Error(err))
    }
    return apperror.Write(c, err)
}

// missing lists the names of empty fields, sorted.
func missing(fields map[string]string) []string {
    var out []string
    for k, v := range fields {
        if v == "" {
            out = append(out, k)
        }
    }
    sort.Strings(out)
    return out
}

// bind decodes the request body into dst.  A malformed body is reported as
// INVALID_PARAMS.
func bind(c echo.Context, dst any) error {
    if err := c.Bind(dst); err != nil {
        return apperror.InvalidParams.With("error", "invalid body")
    }
    return nil
}
