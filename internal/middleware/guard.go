package middleware // middleware provides shared request processing for handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agroview/focal-api/internal/cookie"
	"github.com/agroview/focal-api/internal/permission"
	"github.com/agroview/focal-api/internal/token"
)

// Route is the statically declared authorization metadata for one endpoint.
// The router builds a table of these; no reflection, no decorators.
//
//  Public          – skip authentication entirely.
//  UseRefresh      – authenticate with the refresh token instead of the
//                    access token.  Takes precedence over Public: the
//                    refresh endpoint is public for the access-token guard
//                    but still authenticates with its refresh cookie.
//  AuthorizePublic – skip the role check only.
//  Actions         – required actions; the request passes when the caller's
//                    role holds at least one.  Empty means unrestricted.
type Route struct {
	Public          bool
	AuthorizePublic bool
	UseRefresh      bool
	Actions         []string
}

// Context keys populated by the guard for downstream handlers.
const (
	CtxUserID       = "user_id"
	CtxEmail        = "email"
	CtxRole         = "role"
	CtxRefreshToken = "refresh_token"
)

// errMalformedRefresh marks the refresh strategy finding no usable refresh
// cookie.  It is distinct internally but surfaced as the same opaque 401.
var errMalformedRefresh = errors.New("refresh context malformed")

// Guard is the two-stage per-request check: authentication (strategy chosen
// from route metadata), then role authorization against the permission
// model.  Verification is pure token work; store I/O happens later inside
// the lifecycle service.
type Guard struct {
	Tokens *token.Service
	Perms  *permission.Model
}

func NewGuard(t *token.Service, p *permission.Model) *Guard {
	return &Guard{Tokens: t, Perms: p}
}

// Require returns the middleware enforcing meta for one route.
func (g *Guard) Require(meta Route) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Stage 1+2: public override, then authentication.
			switch {
			case meta.UseRefresh:
				if err := g.authenticateRefresh(c); err != nil {
					return denied(c)
				}
			case meta.Public:
				// No authentication; stage 3 still runs unless the route
				// is also authorize-public.
			default:
				if err := g.authenticateAccess(c); err != nil {
					return denied(c)
				}
			}

			// Stage 3: role authorization.
			if !meta.AuthorizePublic && len(meta.Actions) > 0 {
				role, ok := c.Get(CtxRole).(string)
				if !ok || !g.Perms.IsAllowed(role, meta.Actions) {
					return forbidden(c)
				}
			}
			return next(c)
		}
	}
}

// authenticateAccess verifies the access-token cookie and stores the
// resolved claims in the request context.
func (g *Guard) authenticateAccess(c echo.Context) error {
	ck, err := c.Cookie(cookie.AccessCookie)
	if err != nil || ck.Value == "" {
		return token.ErrInvalidToken
	}
	claims, err := g.Tokens.VerifyAccess(ck.Value)
	if err != nil {
		return err
	}
	setPrincipal(c, claims)
	return nil
}

// authenticateRefresh verifies the refresh-token cookie and additionally
// attaches the raw cookie value: the lifecycle service re-verifies it
// against the stored hash, so claims alone are not enough.
func (g *Guard) authenticateRefresh(c echo.Context) error {
	ck, err := c.Cookie(cookie.RefreshCookie)
	if err != nil || ck.Value == "" {
		return errMalformedRefresh
	}
	claims, err := g.Tokens.VerifyRefresh(ck.Value)
	if err != nil {
		return err
	}
	setPrincipal(c, claims)
	c.Set(CtxRefreshToken, ck.Value)
	return nil
}

func setPrincipal(c echo.Context, claims *token.Claims) {
	c.Set(CtxUserID, claims.ID)
	c.Set(CtxEmail, claims.Email)
	c.Set(CtxRole, claims.Role)
}

// denied rejects the request before the handler runs.  The body never says
// whether the cookie was missing, expired or forged.
func denied(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access denied"})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

// UserID extracts the authenticated principal id stored by the guard.  The
// second return value is false on routes that skipped authentication.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok
}

// Role extracts the authenticated principal's role stored by the guard.
func Role(c echo.Context) (string, bool) {
	role, ok := c.Get(CtxRole).(string)
	return role, ok
}

// RefreshToken returns the raw refresh token attached on refresh-strategy
// routes.
func RefreshToken(c echo.Context) (string, bool) {
	raw, ok := c.Get(CtxRefreshToken).(string)
	return raw, ok
}
