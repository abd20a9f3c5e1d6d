package handler

import (
    "context"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/phenom-api/internal/apperror"
    "github.com/iliyamo/phenom-api/internal/middleware"
    "github.com/iliyamo/phenom-api/internal/service/social"
)

// SocialHandler bundles the user, moment, comment and notification
// endpoints.
type SocialHandler struct {
    Social *social.Service
    Log    *zap.Logger
}

func NewSocialHandler(s *social.Service, log *zap.Logger) *SocialHandler {
    return &SocialHandler{Social: s, Log: orNop(log)}
}

type registerReq struct {
    Username   string `json:"username" form:"username"`
    Email      string `json:"email" form:"email"`
    Password   string `json:"password" form:"password"` // base64
    FirstName  string `json:"firstName" form:"firstName"`
    LastName   string `json:"lastName" form:"lastName"`
    FacebookID string `json:"facebookId" form:"facebookId"`
    TwitterID  string `json:"twitterId" form:"twitterId"`
}

// Register implements POST /v1/users.
func (h *SocialHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bind(c, &req); err != nil {
        return apperror.Write(c, err)
    }
    if m := missing(map[string]string{"username": req.Username, "email": req.Email, "password": req.Password}); len(m) > 0 {
        return apperror.Write(c, apperror.InvalidParams.With("params", m))
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    user, err := h.Social.Register(ctx, social.Registration{
        Username:   req.Username,
        Email:      req.Email,
        Password:   req.Password,
        FirstName:  req.FirstName,
        LastName:   req.LastName,
        FacebookID: req.FacebookID,
        TwitterID:  req.TwitterID,
    })
    if err != nil {
        return h.fail(c, "register", err)
    }
    return apperror.OK(c, echo.Map{"user": user})
}

// GetUser implements GET /v1/users/:id.
func (h *SocialHandler) GetUser(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    user, err := h.Social.User(ctx, c.Param("id"))
    if err != nil {
        return h.fail(c, "get user", err)
    }
    return apperror.OK(c, echo.Map{"user": user})
}

// updateMeReq holds the optional profile edits.  An absent field is left
// alone; an empty facebookId or twitterId unlinks the provider.
type updateMeReq struct {
    FirstName  *string `json:"firstName"`
    LastName   *string `json:"lastName"`
    FacebookID *string `json:"facebookId"`
    TwitterID  *string `json:"twitterId"`
}

// UpdateMe implements PUT /v1/users/me.
func (h *SocialHandler) UpdateMe(c echo.Context) error {
    var req updateMeReq
    if err := bind(c, &req); err != nil {
        return apperror.Write(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    user, err := h.Social.UpdateProfile(ctx, middleware.User(c), social.ProfileUpdate{
        FirstName:  req.FirstName,
        LastName:   req.LastName,
        FacebookID: req.FacebookID,
        TwitterID:  req.TwitterID,
    })
    if err != nil {
        return h.fail(c, "update user", err)
    }
    return apperror.OK(c, echo.Map{"user": user})
}

// DeleteMe implements DELETE /v1/users/me.  Everything the caller owns is
// removed, including the token used for this request.
func (h *SocialHandler) DeleteMe(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
    defer cancel()
    if err := h.Social.DeleteUser(ctx, middleware.User(c)); err != nil {
        return h.fail(c, "delete user", err)
    }
    return apperror.OK(c, nil)
}

// Follow implements POST /v1/users/:id/follow.
func (h *SocialHandler) Follow(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Social.Follow(ctx, middleware.User(c), c.Param("id")); err != nil {
        return h.fail(c, "follow", err)
    }
    return apperror.OK(c, nil)
}

// Unfollow implements DELETE /v1/users/:id/follow.
func (h *SocialHandler) Unfollow(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Social.Unfollow(ctx, middleware.User(c), c.Param("id")); err != nil {
        return h.fail(c, "unfollow", err)
    }
    return apperror.OK(c, nil)
}

func (h *SocialHandler) fail(c echo.Context, op string, err error) error {
    return writeErr(c, h.Log, op, err)
}

// FacebookProfile implements GET /v1/users/me/facebook: the Facebook
// profile behind the caller's Facebook bearer token, as Facebook reports it
// right now.
func (h *SocialHandler) FacebookProfile(c echo.Context) error {
    profile, _, ok := middleware.Profile(c)
    if !ok {
        return apperror.Write(c, apperror.InvalidFacebookToken)
    }
    return apperror.OK(c, echo.Map{"facebook": echo.Map{
        "id":       profile.ID,
        "username": profile.Username,
        "email":    profile.PrimaryEmail(),
    }})
}
