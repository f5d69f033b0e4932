// Package service holds the credential lifecycle: signup, signin, refresh
// and logout.  It is the only component that mutates persistent credential
// state, composing the credential store and the token service.
package service

import (
	"context"
	"errors"

	"github.com/agroview/focal-api/internal/credential"
	"github.com/agroview/focal-api/internal/model"
	"github.com/agroview/focal-api/internal/repository"
	"github.com/agroview/focal-api/internal/token"
)

var (
	// ErrAccessDenied covers every credential failure: unknown email,
	// wrong password, missing or mismatched refresh hash.  Callers must
	// not be able to tell which one happened.
	ErrAccessDenied = errors.New("access denied")
	// ErrEmailTaken is the one failure surfaced distinctly: signup with
	// an already registered email.
	ErrEmailTaken = errors.New("email already registered")
)

// UserStore is the slice of the repository the lifecycle needs.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name, phone, role string, parentID *uint64) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthService orchestrates the credential state machine.  Each successful
// operation leaves the principal with exactly one live refresh hash
// (or none after logout).
type AuthService struct {
	users  UserStore
	creds  *credential.Store
	tokens *token.Service
}

func NewAuthService(users UserStore, creds *credential.Store, tokens *token.Service) *AuthService {
	return &AuthService{users: users, creds: creds, tokens: tokens}
}

// Signup registers a new principal with the default role and hands back its
// first token pair.  A duplicate email is the only error a caller can
// distinguish from a denied signin.
func (s *AuthService) Signup(ctx context.Context, email, password string) (token.Pair, error) {
	hash, err := s.creds.HashPassword(password)
	if err != nil {
		return token.Pair{}, err
	}
	id, err := s.users.Create(ctx, email, hash, "", "", model.RoleUser, nil)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return token.Pair{}, ErrEmailTaken
		}
		return token.Pair{}, err
	}
	return s.issueAndStore(ctx, id, email, model.RoleUser)
}

// Signin verifies the password and rotates in a fresh pair.  Unknown email
// and wrong password produce the identical error.
func (s *AuthService) Signin(ctx context.Context, email, password string) (token.Pair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return token.Pair{}, ErrAccessDenied
		}
		return token.Pair{}, err
	}
	if !s.creds.VerifyPassword(u.PasswordHash, password) {
		return token.Pair{}, ErrAccessDenied
	}
	return s.issueAndStore(ctx, u.ID, u.Email, u.Role)
}

// Refresh exchanges a presented refresh token for a new pair.  The old
// token dies here: its stored hash is overwritten, so replaying it fails
// even before it expires.  Concurrent refreshes for the same principal race
// and the last stored hash wins.
func (s *AuthService) Refresh(ctx context.Context, id uint64, presented string) (token.Pair, error) {
	stored, ok, err := s.creds.FetchRefreshHash(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return token.Pair{}, ErrAccessDenied
		}
		return token.Pair{}, err
	}
	if !ok || !s.creds.VerifyToken(stored, presented) {
		return token.Pair{}, ErrAccessDenied
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return token.Pair{}, ErrAccessDenied
		}
		return token.Pair{}, err
	}
	return s.issueAndStore(ctx, u.ID, u.Email, u.Role)
}

// Logout clears the stored refresh hash.  Logging out twice is fine.
func (s *AuthService) Logout(ctx context.Context, id uint64) error {
	return s.creds.ClearRefreshHash(ctx, id)
}

func (s *AuthService) issueAndStore(ctx context.Context, id uint64, email, role string) (token.Pair, error) {
	pair, err := s.tokens.Issue(id, email, role)
	if err != nil {
		return token.Pair{}, err
	}
	hash, err := s.creds.HashToken(pair.RefreshToken)
	if err != nil {
		return token.Pair{}, err
	}
	if err := s.creds.StoreRefreshHash(ctx, id, hash); err != nil {
		return token.Pair{}, err
	}
	return pair, nil
}
