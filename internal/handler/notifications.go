package handler

import (
    "context"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/phenom-api/internal/apperror"
    "github.com/iliyamo/phenom-api/internal/middleware"
    "github.com/iliyamo/phenom-api/internal/model"
)

type deviceReq struct {
    DeviceType *int   `json:"deviceType" form:"deviceType"` // 0 iOS, 1 Android
    DeviceID   string `json:"deviceId" form:"deviceId"`     // APNS/GCM token
}

type targetResp struct {
    ID         string           `json:"id"`
    DeviceType model.DeviceType `json:"deviceType"`
    DeviceID   string           `json:"deviceId"`
    CreatedAt  time.Time        `json:"createdAt"`
}

// RegisterDevice implements PUT /v1/notifications/device.  The device is
// bound to the bearer token of the request.
func (h *SocialHandler) RegisterDevice(c echo.Context) error {
    var req deviceReq
    if err := bind(c, &req); err != nil {
        return apperror.Write(c, err)
    }
    if req.DeviceType == nil || req.DeviceID == "" {
        return apperror.Write(c, apperror.InvalidParams.With("params", []string{"deviceType", "deviceId"}))
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()
    t, err := h.Social.RegisterDevice(ctx, middleware.User(c), middleware.AccessToken(c), model.DeviceType(*req.DeviceType), req.DeviceID)
    if err != nil {
        return h.fail(c, "register device", err)
    }
    return apperror.OK(c, echo.Map{"target": targetResp{
        ID:         t.ID,
        DeviceType: t.DeviceType,
        DeviceID:   t.DeviceID,
        CreatedAt:  t.CreatedAt,
    }})
}

// UnregisterDevice implements DELETE /v1/notifications/device.
func (h *SocialHandler) UnregisterDevice(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()
    if err := h.Social.UnregisterDevice(ctx, middleware.AccessToken(c)); err != nil {
        return h.fail(c, "unregister device", err)
    }
    return apperror.OK(c, nil)
}

// Notifications implements GET /v1/notifications?limit=n.
func (h *SocialHandler) Notifications(c echo.Context) error {
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    list, err := h.Social.Notifications(ctx, middleware.User(c), limit)
    if err != nil {
        return h.fail(c, "notifications", err)
    }
    return apperror.OK(c, echo.Map{"notifications": list})
}

// Acknowledge implements POST /v1/notifications/acknowledge.
func (h *SocialHandler) Acknowledge(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Social.Acknowledge(ctx, middleware.User(c)); err != nil {
        return h.fail(c, "acknowledge", err)
    }
    return apperror.OK(c, nil)
}
