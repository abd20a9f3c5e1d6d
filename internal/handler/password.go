package handler

import (
    "context"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/phenom-api/internal/apperror"
    "github.com/iliyamo/phenom-api/internal/middleware"
    "github.com/iliyamo/phenom-api/internal/service/password"
)

// PasswordHandler serves the forgotten password and change password
// endpoints.  Passwords travel base64 encoded.
type PasswordHandler struct {
    Passwords *password.Service
    Log       *zap.Logger
}

func NewPasswordHandler(p *password.Service, log *zap.Logger) *PasswordHandler {
    return &PasswordHandler{Passwords: p, Log: orNop(log)}
}

type forgotReq struct {
    Email string `json:"email" form:"email"`
}

type resetReq struct {
    Token    string `json:"token" form:"token"`
    Password string `json:"password" form:"password"`
}

type changeReq struct {
    OldPassword string `json:"oldPassword" form:"oldPassword"`
    NewPassword string `json:"newPassword" form:"newPassword"`
}

// Forgot implements POST /v1/password/forgot.
func (h *PasswordHandler) Forgot(c echo.Context) error {
    var req forgotReq
    if err := bind(c, &req); err != nil {
        return apperror.Write(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Passwords.RequestReset(ctx, req.Email); err != nil {
        return writeErr(c, h.Log, "forgot password", err)
    }
    return apperror.OK(c, nil)
}

// Reset implements POST /v1/password/reset.
func (h *PasswordHandler) Reset(c echo.Context) error {
    var req resetReq
    if err := bind(c, &req); err != nil {
        return apperror.Write(c, err)
    }
    if m := missing(map[string]string{"token": req.Token, "password": req.Password}); len(m) > 0 {
        return apperror.Write(c, apperror.InvalidParams.With("params", m))
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Passwords.Reset(ctx, req.Token, req.Password); err != nil {
        return writeErr(c, h.Log, "reset password", err)
    }
    return apperror.OK(c, nil)
}

// Change implements PUT /v1/password.
func (h *PasswordHandler) Change(c echo.Context) error {
    var req changeReq
    if err := bind(c, &req); err != nil {
        return apperror.Write(c, err)
    }
    if m := missing(map[string]string{"oldPassword": req.OldPassword, "newPassword": req.NewPassword}); len(m) > 0 {
        return apperror.Write(c, apperror.InvalidParams.With("params", m))
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Passwords.Change(ctx, middleware.User(c), req.OldPassword, req.NewPassword); err != nil {
        return writeErr(c, h.Log, "change password", err)
    }
    return apperror.OK(c, nil)
}
