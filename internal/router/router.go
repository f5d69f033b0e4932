package router // package router declares the route table and its authorization metadata

import (
	"github.com/labstack/echo/v4"

	"github.com/agroview/focal-api/internal/config"
	"github.com/agroview/focal-api/internal/handler"
	"github.com/agroview/focal-api/internal/middleware"
	"github.com/agroview/focal-api/internal/obs"

	"github.com/redis/go-redis/v9"
)

// Register wires every route with its guard metadata.  The metadata lives
// here, in one place, as plain values: which routes are public, which one
// authenticates with the refresh token, and which actions each protected
// route requires.  The guard consults nothing else.
func Register(e *echo.Echo, g *middleware.Guard, a *handler.AuthHandler, u *handler.UserHandler,
	rlCfg config.RateLimitConfig, rdb *redis.Client) {

	// Operational endpoints: no authentication, no authorization.
	e.GET("/healthz", handler.Health,
		g.Require(middleware.Route{Public: true, AuthorizePublic: true}))
	e.GET("/metrics", echo.WrapHandler(obs.Handler()),
		g.Require(middleware.Route{Public: true, AuthorizePublic: true}))

	// Credential endpoints.  Signup/signin are reachable anonymously; the
	// token-bucket limiter slows down credential guessing on both.  The
	// refresh route is public for the access-token guard but authenticates
	// with the refresh cookie instead.
	limited := middleware.RateLimit(rlCfg, rdb)
	auth := e.Group("/auth")
	auth.POST("/signup", a.Signup, limited,
		g.Require(middleware.Route{Public: true}))
	auth.POST("/signin", a.Signin, limited,
		g.Require(middleware.Route{Public: true}))
	auth.POST("/logout", a.Logout,
		g.Require(middleware.Route{}))
	auth.POST("/refresh", a.Refresh, limited,
		g.Require(middleware.Route{Public: true, UseRefresh: true}))

	// User profile endpoints.  /users/me needs only authentication; the
	// rest require the caller's role to hold at least one listed action.
	users := e.Group("/users")
	users.GET("/me", u.Me,
		g.Require(middleware.Route{}))
	users.POST("", u.Create,
		g.Require(middleware.Route{Actions: []string{"create_users:own", "create_users:any"}}))
	users.GET("", u.List,
		g.Require(middleware.Route{Actions: []string{"read_users:any"}}))
	users.GET("/:id", u.Get,
		g.Require(middleware.Route{Actions: []string{"read_users:own"}}))
	users.PATCH("/:id", u.Update,
		g.Require(middleware.Route{Actions: []string{"update_users:own"}}))
	users.DELETE("/:id", u.Delete,
		g.Require(middleware.Route{Actions: []string{"delete_users:own"}}))
}
