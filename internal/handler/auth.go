package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agroview/focal-api/internal/cookie"
	"github.com/agroview/focal-api/internal/middleware"
	"github.com/agroview/focal-api/internal/obs"
	"github.com/agroview/focal-api/internal/queue"
	"github.com/agroview/focal-api/internal/service"
)

// AuthHandler bundles dependencies for the credential endpoints.  The
// handlers stay thin: credential state lives in the lifecycle service, and
// issued tokens leave through the cookie adapter, never through the body.
type AuthHandler struct {
	Auth    *service.AuthService
	Cookies cookie.Adapter
}

func NewAuthHandler(auth *service.AuthService, cookies cookie.Adapter) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookies: cookies}
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup: create a principal and set its first cookie pair.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	pair, err := h.Auth.Signup(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			obs.RecordAuth(queue.EventSignup, obs.OutcomeConflict)
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		obs.RecordAuth(queue.EventSignup, obs.OutcomeError)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	obs.RecordAuth(queue.EventSignup, obs.OutcomeOK)
	h.publish(c, queue.EventSignup, 0, req.Email)
	return h.Cookies.Apply(c, http.StatusCreated, cookie.Result{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Message:      "Signed up.",
	})
}

// Signin: verify credentials and rotate in a new cookie pair.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	pair, err := h.Auth.Signin(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAccessDenied) {
			obs.RecordAuth(queue.EventSignin, obs.OutcomeDenied)
			h.publish(c, queue.EventAccessDenied, 0, req.Email)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access denied"})
		}
		obs.RecordAuth(queue.EventSignin, obs.OutcomeError)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signin failed"})
	}

	obs.RecordAuth(queue.EventSignin, obs.OutcomeOK)
	h.publish(c, queue.EventSignin, 0, req.Email)
	return h.Cookies.Apply(c, http.StatusOK, cookie.Result{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Message:      "Signed in.",
	})
}

// Refresh: exchange the refresh cookie for a new pair.  The guard already
// verified the token's signature; the service re-verifies the raw token
// against the stored hash, which is what makes rotation single-use.
func (h *AuthHandler) Refresh(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access denied"})
	}
	raw, ok := middleware.RefreshToken(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access denied"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, uid, raw)
	if err != nil {
		if errors.Is(err, service.ErrAccessDenied) {
			obs.RecordAuth(queue.EventRefresh, obs.OutcomeDenied)
			h.publish(c, queue.EventAccessDenied, uid, "")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access denied"})
		}
		obs.RecordAuth(queue.EventRefresh, obs.OutcomeError)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	obs.RecordAuth(queue.EventRefresh, obs.OutcomeOK)
	h.publish(c, queue.EventRefresh, uid, "")
	return h.Cookies.Apply(c, http.StatusOK, cookie.Result{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Message:      "Tokens refreshed.",
	})
}

// Logout: clear the stored refresh hash and expire both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access denied"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, uid); err != nil {
		obs.RecordAuth(queue.EventLogout, obs.OutcomeError)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}

	obs.RecordAuth(queue.EventLogout, obs.OutcomeOK)
	h.publish(c, queue.EventLogout, uid, "")
	return h.Cookies.Apply(c, http.StatusOK, cookie.Result{Logout: true})
}

// publish emits a security event in the background.  Broker errors are
// already logged by the publisher and never affect the response.
func (h *AuthHandler) publish(c echo.Context, eventType string, uid uint64, email string) {
	ev := queue.SecurityEvent{
		Type:     eventType,
		UserID:   uid,
		Email:    email,
		RemoteIP: c.RealIP(),
	}
	go func() {
		_ = queue.PublishSecurityEvent(context.Background(), ev)
	}()
}

// reqContext bounds store round-trips to five seconds per request,
// derived from the inbound request context.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
