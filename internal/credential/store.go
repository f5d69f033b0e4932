// Package credential hashes and verifies secrets (passwords and refresh
// tokens) and persists the per-user stored refresh-token hash.  Only hashes
// ever reach the user store; a plaintext secret never leaves this package.
package credential

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// RefreshHashStore is the slice of the user store this package needs for
// refresh-hash durability.  *repository.UserRepo satisfies it.
type RefreshHashStore interface {
	UpdateRefreshHash(ctx context.Context, id uint64, hash string) error
	ClearRefreshHash(ctx context.Context, id uint64) error
	GetRefreshHash(ctx context.Context, id uint64) (string, bool, error)
}

// Store applies salted bcrypt hashing with a fixed cost to both passwords
// and refresh tokens.
type Store struct {
	users RefreshHashStore
	cost  int
}

func NewStore(users RefreshHashStore, cost int) *Store {
	return &Store{users: users, cost: cost}
}

// HashPassword returns the bcrypt hash of a plaintext password.
func (s *Store) HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plaintext password.
func (s *Store) VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashToken returns the bcrypt hash of a refresh token.  bcrypt rejects
// inputs longer than 72 bytes and a signed refresh token always is, so the
// token is first reduced to a SHA-256 hex digest.  The bcrypt salt still
// makes every stored hash unique.
func (s *Store) HashToken(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(digest(raw), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyToken compares a stored token hash against a presented raw token,
// applying the same pre-digest as HashToken.
func (s *Store) VerifyToken(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), digest(raw)) == nil
}

// StoreRefreshHash upserts the stored refresh-token hash for a principal,
// replacing any previous one.
func (s *Store) StoreRefreshHash(ctx context.Context, id uint64, hash string) error {
	return s.users.UpdateRefreshHash(ctx, id, hash)
}

// ClearRefreshHash removes the stored hash.  Until a new signin, every
// refresh attempt for the principal fails.  Idempotent.
func (s *Store) ClearRefreshHash(ctx context.Context, id uint64) error {
	return s.users.ClearRefreshHash(ctx, id)
}

// FetchRefreshHash returns the stored hash; ok is false when absent.
func (s *Store) FetchRefreshHash(ctx context.Context, id uint64) (hash string, ok bool, err error) {
	return s.users.GetRefreshHash(ctx, id)
}

func digest(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return []byte(hex.EncodeToString(sum[:]))
}
