package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agroview/focal-api/internal/cookie"
	"github.com/agroview/focal-api/internal/permission"
	"github.com/agroview/focal-api/internal/token"
)

func newTestGuard() (*Guard, *token.Service) {
	tokens := token.New("at-secret", "rt-secret", 15, 7)
	perms := permission.New(map[string][]string{
		"ADMIN": {"mock_permission:own", "mock_permission:any"},
		"USER":  {"mock_permission:own"},
	})
	return NewGuard(tokens, perms), tokens
}

// run sends a request with the given cookies through the guard for meta and
// returns the recorder plus whether the inner handler was reached.
func run(t *testing.T, g *Guard, meta Route, cookies ...*http.Cookie) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	h := g.Require(meta)(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, reached
}

func accessCookie(t *testing.T, tokens *token.Service, id uint64, role string) *http.Cookie {
	t.Helper()
	pair, err := tokens.Issue(id, "guard@example.com", role)
	require.NoError(t, err)
	return &http.Cookie{Name: cookie.AccessCookie, Value: pair.AccessToken}
}

func refreshCookie(t *testing.T, tokens *token.Service, id uint64, role string) *http.Cookie {
	t.Helper()
	pair, err := tokens.Issue(id, "guard@example.com", role)
	require.NoError(t, err)
	return &http.Cookie{Name: cookie.RefreshCookie, Value: pair.RefreshToken}
}

func TestPublicBypassesAuthentication(t *testing.T) {
	g, _ := newTestGuard()

	rec, reached := run(t, g, Route{Public: true})
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccessStrategy(t *testing.T) {
	g, tokens := newTestGuard()

	t.Run("no cookie", func(t *testing.T) {
		rec, reached := run(t, g, Route{})
		assert.False(t, reached)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "access denied")
	})

	t.Run("garbage token", func(t *testing.T) {
		rec, reached := run(t, g, Route{},
			&http.Cookie{Name: cookie.AccessCookie, Value: "not-a-jwt"})
		assert.False(t, reached)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token in the access cookie is rejected", func(t *testing.T) {
		pair, err := tokens.Issue(1, "guard@example.com", "USER")
		require.NoError(t, err)
		rec, reached := run(t, g, Route{},
			&http.Cookie{Name: cookie.AccessCookie, Value: pair.RefreshToken})
		assert.False(t, reached)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid cookie reaches the handler", func(t *testing.T) {
		rec, reached := run(t, g, Route{}, accessCookie(t, tokens, 1, "USER"))
		assert.True(t, reached)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		stale := token.New("at-secret", "rt-secret", -1, 7)
		rec, reached := run(t, g, Route{}, accessCookie(t, stale, 1, "USER"))
		assert.False(t, reached)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRefreshStrategy(t *testing.T) {
	g, tokens := newTestGuard()
	meta := Route{Public: true, UseRefresh: true}

	t.Run("missing refresh cookie is malformed context", func(t *testing.T) {
		// The route is nominally public, but the refresh strategy still
		// demands its cookie.
		rec, reached := run(t, g, meta)
		assert.False(t, reached)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("access token in the refresh cookie is rejected", func(t *testing.T) {
		pair, err := tokens.Issue(1, "guard@example.com", "USER")
		require.NoError(t, err)
		rec, reached := run(t, g, meta,
			&http.Cookie{Name: cookie.RefreshCookie, Value: pair.AccessToken})
		assert.False(t, reached)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid refresh cookie attaches raw token and claims", func(t *testing.T) {
		e := echo.New()
		ck := refreshCookie(t, tokens, 8, "USER")
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(ck)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		h := g.Require(meta)(func(c echo.Context) error {
			id, ok := UserID(c)
			assert.True(t, ok)
			assert.Equal(t, uint64(8), id)
			raw, ok := RefreshToken(c)
			assert.True(t, ok)
			assert.Equal(t, ck.Value, raw)
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, h(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuthorization(t *testing.T) {
	g, tokens := newTestGuard()

	t.Run("role without the required action is denied despite a valid token", func(t *testing.T) {
		meta := Route{Actions: []string{"read_users:any"}}
		rec, reached := run(t, g, meta, accessCookie(t, tokens, 1, "USER"))
		assert.False(t, reached)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "forbidden")
	})

	t.Run("role holding the required action is allowed", func(t *testing.T) {
		meta := Route{Actions: []string{"mock_permission:any"}}
		rec, reached := run(t, g, meta, accessCookie(t, tokens, 1, "ADMIN"))
		assert.True(t, reached)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no declared actions passes automatically", func(t *testing.T) {
		_, reached := run(t, g, Route{}, accessCookie(t, tokens, 1, "USER"))
		assert.True(t, reached)
	})

	t.Run("authorize-public skips only the role check", func(t *testing.T) {
		meta := Route{AuthorizePublic: true, Actions: []string{"mock_permission:any"}}
		rec, reached := run(t, g, meta, accessCookie(t, tokens, 1, "USER"))
		assert.True(t, reached)
		assert.Equal(t, http.StatusOK, rec.Code)

		// Still authenticates.
		rec, reached = run(t, g, meta)
		assert.False(t, reached)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown role in a valid token fails closed", func(t *testing.T) {
		meta := Route{Actions: []string{"mock_permission:own"}}
		rec, reached := run(t, g, meta, accessCookie(t, tokens, 1, "SUPERVISOR"))
		assert.False(t, reached)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
