// Package cookie externalizes issued token pairs as secure cookies.  Raw
// tokens are set as httpOnly cookies and stripped from the JSON body: a
// token string must never appear in a response body.
package cookie

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Cookie names shared between the adapter (which sets them) and the guard
// middleware (which reads them).
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Cookie lifetimes mirror the token lifetimes.
const (
	accessMaxAge  = 15 * time.Minute
	refreshMaxAge = 7 * 24 * time.Hour
)

// Result is what an auth handler produces before the boundary transform.
// Exactly one of the two shapes is meaningful: a token pair to externalize,
// or Logout to clear the session cookies.
type Result struct {
	AccessToken  string
	RefreshToken string
	Logout       bool
	Message      string
}

// Adapter converts handler results into (body, cookies).  Secure is enabled
// in production only, so local development over plain HTTP keeps working.
type Adapter struct {
	Secure bool
}

// Apply writes the transformed result to the response.  A result carrying
// both tokens sets the two cookies and emits a body without them; a logout
// result expires both cookies; anything else passes through as a message.
func (a Adapter) Apply(c echo.Context, status int, res Result) error {
	if res.Logout {
		c.SetCookie(a.expired(AccessCookie))
		c.SetCookie(a.expired(RefreshCookie))
		return c.JSON(status, echo.Map{"message": "Logged out."})
	}
	if res.AccessToken != "" && res.RefreshToken != "" {
		c.SetCookie(a.cookie(AccessCookie, res.AccessToken, accessMaxAge))
		c.SetCookie(a.cookie(RefreshCookie, res.RefreshToken, refreshMaxAge))
		msg := res.Message
		if msg == "" {
			msg = "Tokens set."
		}
		return c.JSON(status, echo.Map{"message": msg})
	}
	return c.JSON(status, echo.Map{"message": res.Message})
}

func (a Adapter) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (a Adapter) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
