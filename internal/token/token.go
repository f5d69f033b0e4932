// Package token issues and verifies the signed access/refresh token pair.
// The two tokens are always signed with distinct secrets and distinct
// expirations, and are only ever issued together.  Verification is pure: no
// store access, no side effects.
package token

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken indicates a bad signature, malformed token or
	// wrong signing method.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired indicates the token verified but is past its expiry.
	ErrExpired = errors.New("token expired")
)

// Claims is the payload carried by both tokens: subject id, email and role,
// plus the registered timestamps.  The numeric ID mirrors the subject so
// consumers do not need to re-parse the string form.
type Claims struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Pair bundles the two serialized tokens issued together on signup, signin
// and refresh.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Service signs and verifies token pairs.  Access and refresh secrets are
// independent; sharing one is a configuration error caught at startup.
type Service struct {
	atSecret   []byte
	rtSecret   []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New builds a Service from the two secrets and the configured lifetimes.
func New(atSecret, rtSecret string, accessTTLMin, refreshTTLDays int) *Service {
	return &Service{
		atSecret:   []byte(atSecret),
		rtSecret:   []byte(rtSecret),
		accessTTL:  time.Duration(accessTTLMin) * time.Minute,
		refreshTTL: time.Duration(refreshTTLDays) * 24 * time.Hour,
	}
}

// Issue signs both tokens for the given principal.  The two signing
// operations have no data dependency and run concurrently; if either fails
// the whole call fails and no partial pair is returned.
func (s *Service) Issue(id uint64, email, role string) (Pair, error) {
	var (
		wg           sync.WaitGroup
		at, rt       string
		atErr, rtErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		at, atErr = s.sign(s.atSecret, s.accessTTL, id, email, role)
	}()
	go func() {
		defer wg.Done()
		rt, rtErr = s.sign(s.rtSecret, s.refreshTTL, id, email, role)
	}()
	wg.Wait()
	if atErr != nil {
		return Pair{}, atErr
	}
	if rtErr != nil {
		return Pair{}, rtErr
	}
	return Pair{AccessToken: at, RefreshToken: rt}, nil
}

// VerifyAccess validates signature and expiry against the access secret.
func (s *Service) VerifyAccess(raw string) (*Claims, error) {
	return verify(raw, s.atSecret)
}

// VerifyRefresh validates signature and expiry against the refresh secret.
func (s *Service) VerifyRefresh(raw string) (*Claims, error) {
	return verify(raw, s.rtSecret)
}

func (s *Service) sign(secret []byte, ttl time.Duration, id uint64, email, role string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		ID:    id,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func verify(raw string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
