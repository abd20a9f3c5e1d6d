package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"go.uber.org/zap"             // provider verification failures are logged

	"github.com/iliyamo/phenom-api/internal/handler"      // endpoint implementations
	"github.com/iliyamo/phenom-api/internal/middleware"   // gatekeepers, rate limiting and caching
	"github.com/iliyamo/phenom-api/internal/model"        // token types
	"github.com/iliyamo/phenom-api/internal/provider"     // provider verifiers
	"github.com/iliyamo/phenom-api/internal/service/auth" // client and bearer validation
)

// Gatekeepers groups the policies shared by every route table.
type Gatekeepers struct {
	Version    echo.MiddlewareFunc // apiversion check
	Client     echo.MiddlewareFunc // client credentials
	Bearer     echo.MiddlewareFunc // bearer token
	RateLimit  echo.MiddlewareFunc // runs after authentication so limits are per user
	Cache      echo.MiddlewareFunc // profile response cache
	Facebook   echo.MiddlewareFunc // verified Facebook credentials
	Twitter    echo.MiddlewareFunc // verified Twitter credentials
	FacebookAT echo.MiddlewareFunc // bearer must be a live Facebook token
}

// NewGatekeepers builds the policies around the auth service.  rateLimit
// and cache may be nil.
func NewGatekeepers(a *auth.Service, minVersion string, fb, tw provider.Verifier, rateLimit, cache echo.MiddlewareFunc, log *zap.Logger) Gatekeepers {
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if rateLimit == nil {
		rateLimit = pass
	}
	if cache == nil {
		cache = pass
	}
	return Gatekeepers{
		Version:    middleware.VersionSupported(minVersion, a),
		Client:     middleware.ClientAuth(a),
		Bearer:     middleware.BearerAuth(a),
		RateLimit:  rateLimit,
		Cache:      cache,
		Facebook:   middleware.ProviderToken(fb, provider.Facebook, log),
		Twitter:    middleware.ProviderToken(tw, provider.Twitter, log),
		FacebookAT: middleware.RequireTokenType(model.TokenTypeFacebook, fb),
	}
}

// RegisterRoutes registers routes that need no authentication: the health
// check.  /metrics is mounted by the caller on its own registry.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", health)
}

// RegisterAuth registers the OAuth2 token endpoints.  Token issue and the
// provider exchanges authenticate the client; logout needs the bearer.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Gatekeepers) {
	o := e.Group("/oauth")
	o.POST("/token", a.Token, g.Version, g.Client, g.RateLimit)
	o.POST("/facebook/token", a.Facebook, g.Version, g.Client, g.RateLimit, g.Facebook)
	o.POST("/twitter/token", a.Twitter, g.Version, g.Client, g.RateLimit, g.Twitter)
	o.DELETE("/token", a.Logout, g.Version, g.Bearer)
}

// RegisterSocial registers the user, moment, comment and notification
// endpoints under /v1.
func RegisterSocial(e *echo.Echo, h *handler.SocialHandler, g Gatekeepers) {
	// Registration happens before the user has a token, so only the client
	// is authenticated.
	e.POST("/v1/users", h.Register, g.Version, g.Client, g.RateLimit)

	v1 := e.Group("/v1", g.Version, g.Bearer, g.RateLimit)

	v1.GET("/users/:id", h.GetUser, g.Cache)
	v1.PUT("/users/me", h.UpdateMe)
	v1.DELETE("/users/me", h.DeleteMe)
	v1.GET("/users/me/facebook", h.FacebookProfile, g.FacebookAT)
	v1.POST("/users/:id/follow", h.Follow)
	v1.DELETE("/users/:id/follow", h.Unfollow)

	v1.POST("/moments", h.CreateMoment)
	v1.GET("/moments/:id", h.GetMoment)
	v1.DELETE("/moments/:id", h.DeleteMoment)
	v1.POST("/moments/:id/like", h.Like)
	v1.DELETE("/moments/:id/like", h.Unlike)
	v1.POST("/moments/:id/comments", h.CreateComment)
	v1.DELETE("/comments/:id", h.DeleteComment)

	v1.PUT("/notifications/device", h.RegisterDevice)
	v1.DELETE("/notifications/device", h.UnregisterDevice)
	v1.GET("/notifications", h.Notifications)
	v1.POST("/notifications/acknowledge", h.Acknowledge)
}

// RegisterPassword registers the password endpoints.  Reset requests are
// made by signed-out users and authenticate the client only.
func RegisterPassword(e *echo.Echo, p *handler.PasswordHandler, g Gatekeepers) {
	e.POST("/v1/password/forgot", p.Forgot, g.Version, g.Client, g.RateLimit)
	e.POST("/v1/password/reset", p.Reset, g.Version, g.Client, g.RateLimit)
	e.PUT("/v1/password", p.Change, g.Version, g.Bearer, g.RateLimit)
}
