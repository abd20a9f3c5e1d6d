package handler

import (
    "context"
    "encoding/json"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/phenom-api/internal/apperror"
    "github.com/iliyamo/phenom-api/internal/middleware"
    "github.com/iliyamo/phenom-api/internal/service/social"
)

type momentReq struct {
    Headline   string          `json:"headline"`
    Image      string          `json:"image"`
    Song       json.RawMessage `json:"song"`
    ProductIDs []string        `json:"productIds"`
}

type commentReq struct {
    Text string `json:"commentText" form:"commentText"`
}

// CreateMoment implements POST /v1/moments.
func (h *SocialHandler) CreateMoment(c echo.Context) error {
    var req momentReq
    if err := bind(c, &req); err != nil {
        return apperror.Write(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    m, err := h.Social.CreateMoment(ctx, middleware.User(c), social.MomentInput{
        Headline:   req.Headline,
        Image:      req.Image,
        Song:       req.Song,
        ProductIDs: req.ProductIDs,
    })
    if err != nil {
        return h.fail(c, "create moment", err)
    }
    return apperror.OK(c, echo.Map{"moment": m})
}

// GetMoment implements GET /v1/moments/:id.
func (h *SocialHandler) GetMoment(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    m, err := h.Social.Moment(ctx, c.Param("id"))
    if err != nil {
        return h.fail(c, "get moment", err)
    }
    return apperror.OK(c, echo.Map{"moment": m})
}

// DeleteMoment implements DELETE /v1/moments/:id.  Only the author may
// delete; the moment is archived first.
func (h *SocialHandler) DeleteMoment(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Social.DeleteMoment(ctx, middleware.User(c), c.Param("id")); err != nil {
        return h.fail(c, "delete moment", err)
    }
    return apperror.OK(c, nil)
}

// Like implements POST /v1/moments/:id/like.
func (h *SocialHandler) Like(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Social.Like(ctx, middleware.User(c), c.Param("id")); err != nil {
        return h.fail(c, "like", err)
    }
    return apperror.OK(c, nil)
}

// Unlike implements DELETE /v1/moments/:id/like.
func (h *SocialHandler) Unlike(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Social.Unlike(ctx, middleware.User(c), c.Param("id")); err != nil {
        return h.fail(c, "unlike", err)
    }
    return apperror.OK(c, nil)
}

// CreateComment implements POST /v1/moments/:id/comments.
func (h *SocialHandler) CreateComment(c echo.Context) error {
    var req commentReq
    if err := bind(c, &req); err != nil {
        return apperror.Write(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    comment, err := h.Social.CreateComment(ctx, middleware.User(c), c.Param("id"), req.Text)
    if err != nil {
        return h.fail(c, "create comment", err)
    }
    return apperror.OK(c, echo.Map{"comment": comment})
}

// DeleteComment implements DELETE /v1/comments/:id.  The comment's author
// and the moment's author may delete it.
func (h *SocialHandler) DeleteComment(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Social.DeleteComment(ctx, middleware.User(c), c.Param("id")); err != nil {
        return h.fail(c, "delete comment", err)
    }
    return apperror.OK(c, nil)
}
