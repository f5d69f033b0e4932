package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agroview/focal-api/internal/credential"
	"github.com/agroview/focal-api/internal/middleware"
	"github.com/agroview/focal-api/internal/model"
	"github.com/agroview/focal-api/internal/permission"
	"github.com/agroview/focal-api/internal/repository"
)

// UserHandler serves the user profile endpoints.  Route-level permissions
// are enforced by the guard before any of these run; the handlers still
// re-check the ":own" scope, because the guard only knows the route, not
// which account the request targets.
type UserHandler struct {
	Users *repository.UserRepo
	Creds *credential.Store
	Perms *permission.Model
}

func NewUserHandler(users *repository.UserRepo, creds *credential.Store, perms *permission.Model) *UserHandler {
	return &UserHandler{Users: users, Creds: creds, Perms: perms}
}

// ----- DTOs -----

type createUserReq struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Role     string  `json:"role"`
	ParentID *uint64 `json:"parent_id"`
}

type updateUserReq struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
	ParentID *uint64 `json:"parent_id"`
}

// userResp never carries hashes; credential material stays server-side.
type userResp struct {
	ID        uint64           `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Phone     string           `json:"phone"`
	Role      string           `json:"role"`
	ParentID  *uint64          `json:"parent_id,omitempty"`
	Parent    *model.UserRef   `json:"parent,omitempty"`
	Children  []model.UserRef  `json:"children,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func toResp(u model.User) userResp {
	return userResp{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		ParentID:  u.ParentID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toRef(u model.User) model.UserRef {
	return model.UserRef{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Me returns the authenticated caller's own profile.
func (h *UserHandler) Me(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access denied"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toResp(u))
}

// Create registers a user with an explicit role (admin operation).
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	hash, err := h.Creds.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	id, err := h.Users.Create(ctx, req.Email, hash, req.Name, req.Phone, req.Role, req.ParentID)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, toResp(u))
}

// List returns every user with parent and children references expanded.
// The relation is resolved in memory from the single loaded set.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	refs := make(map[uint64]model.UserRef, len(users))
	for _, u := range users {
		refs[u.ID] = toRef(u)
	}

	out := make([]userResp, 0, len(users))
	for _, u := range users {
		resp := toResp(u)
		if u.ParentID != nil {
			if ref, ok := refs[*u.ParentID]; ok {
				resp.Parent = &ref
			}
		}
		for _, other := range users {
			if other.ParentID != nil && *other.ParentID == u.ID {
				resp.Children = append(resp.Children, refs[other.ID])
			}
		}
		out = append(out, resp)
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one user with relations expanded.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if !h.canTouch(c, id, "read_users:any") {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	resp := toResp(u)
	if u.ParentID != nil {
		if parent, err := h.Users.GetByID(ctx, *u.ParentID); err == nil {
			ref := toRef(parent)
			resp.Parent = &ref
		}
	}
	children, err := h.Users.ChildrenOf(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	for _, child := range children {
		resp.Children = append(resp.Children, toRef(child))
	}
	return c.JSON(http.StatusOK, resp)
}

// Update applies a partial profile edit.  A new password is rehashed; the
// stored refresh hash is untouched, so existing sessions survive the edit.
// Role changes are an escalation vector, so they require the ":any" action
// even on the caller's own account.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if !h.canTouch(c, id, "update_users:any") {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Role != nil && !model.ValidRole(*req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	if req.Role != nil && !h.holdsAny(c, "update_users:any") {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	params := repository.UpdateParams{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     req.Role,
		ParentID: req.ParentID,
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := h.Creds.HashPassword(*req.Password)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		params.PasswordHash = &hash
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Users.Update(ctx, id, params); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toResp(u))
}

// Delete removes the user record.  Cascades on dependent rows belong to the
// store schema, not to this handler.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if !h.canTouch(c, id, "delete_users:any") {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

// canTouch reports whether the caller may operate on the target account:
// their own, or any account when their role holds the ":any" action.
func (h *UserHandler) canTouch(c echo.Context, target uint64, anyAction string) bool {
	uid, ok := middleware.UserID(c)
	if !ok {
		return false
	}
	return target == uid || h.holdsAny(c, anyAction)
}

func (h *UserHandler) holdsAny(c echo.Context, anyAction string) bool {
	role, ok := middleware.Role(c)
	return ok && h.Perms.Can(role, anyAction)
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
