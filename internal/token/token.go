// Package token issues and verifies the access/refresh JWT pair.
//
// Tokens are stateless: validity depends only on signature, kind and expiry.
// There is no revocation list, so a refresh token overwritten on logout stays
// cryptographically valid until it expires.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/comfy/internal/errs"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

// UserLookup reports whether a subject still exists.
type UserLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Claims are the registered claims plus the token kind.
type Claims struct {
	Kind Kind `json:"typ"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a dedicated secret per kind.
type Service struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	users      UserLookup
	now        func() time.Time
}

// NewService constructs a token service. users may be nil to skip subject lookup.
func NewService(accessKey, refreshKey []byte, accessTTL, refreshTTL time.Duration, users UserLookup) *Service {
	return &Service{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		users:      users,
		now:        time.Now,
	}
}

// RefreshTTL returns the refresh token lifetime (used for the cookie expiry).
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs a short-lived access token for the user.
func (s *Service) IssueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	return s.issue(userID, Access)
}

// IssueRefreshToken signs a long-lived refresh token for the user.
func (s *Service) IssueRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	return s.issue(userID, Refresh)
}

func (s *Service) issue(userID uuid.UUID, kind Kind) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, fmt.Errorf("%w: empty subject", errs.ErrValidation)
	}
	key, ttl := s.params(kind)
	now := s.now()
	exp := now.Add(ttl)
	id, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	return signed, exp, err
}

// Parse checks signature, expiry and kind and returns the subject without
// consulting the user store.
func (s *Service) Parse(tok string, kind Kind) (uuid.UUID, error) {
	if tok == "" {
		return uuid.Nil, fmt.Errorf("%w: empty token", errs.ErrInvalidToken)
	}
	key, _ := s.params(kind)

	var claims Claims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	if claims.Kind != kind {
		return uuid.Nil, fmt.Errorf("%w: kind %q, want %q", errs.ErrInvalidToken, claims.Kind, kind)
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", errs.ErrInvalidToken)
	}
	return id, nil
}

// Verify parses the token and confirms the subject still exists.
func (s *Service) Verify(ctx context.Context, tok string, kind Kind) (uuid.UUID, error) {
	id, err := s.Parse(tok, kind)
	if err != nil {
		return uuid.Nil, err
	}
	if s.users != nil {
		ok, err := s.users.Exists(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		if !ok {
			return uuid.Nil, errs.ErrUnknownUser
		}
	}
	return id, nil
}

func (s *Service) params(kind Kind) ([]byte, time.Duration) {
	if kind == Refresh {
		return s.refreshKey, s.refreshTTL
	}
	return s.accessKey, s.accessTTL
}
