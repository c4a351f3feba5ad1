// Package service contains application services for accounts, assessments and analytics.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/comfy/internal/crypto"
	"github.com/and161185/comfy/internal/errs"
	"github.com/and161185/comfy/internal/limiter"
	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/repository"
	"github.com/and161185/comfy/internal/token"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

// AuthService defines account and session operations.
type AuthService interface {
	// Register creates a new user and issues a token pair.
	Register(ctx context.Context, name, email, password string) (model.Tokens, model.User, error)
	// Login applies login throttling, checks credentials and issues a token pair.
	Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// Authenticate resolves an access token to its user.
	Authenticate(ctx context.Context, accessToken string) (model.User, error)
	// Me loads the current user.
	Me(ctx context.Context, id uuid.UUID) (model.User, error)
	// DeleteAccount removes all assessments of the user and then the user.
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

// AuthServiceImpl implements AuthService.
type AuthServiceImpl struct {
	users       repository.UserRepository
	assessments repository.AssessmentRepository
	tokens      *token.Service
	lim         limiter.Limiter
	log         *zap.Logger
	cleanup     func() retry.Backoff
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	assessments repository.AssessmentRepository,
	tokens *token.Service,
	lim limiter.Limiter,
	log *zap.Logger,
) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{
		users:       users,
		assessments: assessments,
		tokens:      tokens,
		lim:         lim,
		log:         log,
		cleanup: func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewConstant(200*time.Millisecond))
		},
	}
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Register creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (model.Tokens, model.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return model.Tokens{}, model.User{}, fmt.Errorf("%w: name, email and password are required", errs.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.Tokens{}, model.User{}, fmt.Errorf("%w: invalid email", errs.ErrValidation)
	}
	if len(password) < MinPasswordLen {
		return model.Tokens{}, model.User{}, fmt.Errorf("%w: password must be at least %d characters", errs.ErrValidation, MinPasswordLen)
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	hash, salt, err := pkgcrypto.NewPassword(password)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	u := &model.User{
		ID:        uid,
		Name:      name,
		Email:     email,
		PwdHash:   hash,
		Salt:      salt,
		Role:      model.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Tokens{}, model.User{}, err
	}

	tokens, err := s.issuePair(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tokens, *u, nil
}

// Login authenticates with throttling by (email, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return model.Tokens{}, model.User{}, fmt.Errorf("%w: please provide an email and password", errs.ErrValidation)
	}
	ipHash := limiter.HashIP(ip)

	allowed, wait, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, fmt.Errorf("%w: try again in %s", errs.ErrRateLimited, wait.Round(time.Second))
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.User{}, err
	}
	var ok bool
	if err != nil {
		ok = pkgcrypto.BurnVerify([]byte(password))
	} else {
		ok = pkgcrypto.VerifyPassword([]byte(password), u.Salt, u.PwdHash)
	}
	if !ok {
		if blocked, wait, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, fmt.Errorf("%w: try again in %s", errs.ErrRateLimited, wait.Round(time.Second))
		} else if ferr != nil {
			s.log.Warn("record login failure", zap.Error(ferr))
		}
		// unknown email and wrong password look the same
		return model.Tokens{}, model.User{}, fmt.Errorf("%w: invalid credentials", errs.ErrUnauthorized)
	}

	if err := s.lim.Success(ctx, email, ipHash); err != nil {
		s.log.Warn("reset login limiter", zap.Error(err))
	}

	tokens, err := s.issuePair(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tokens, *u, nil
}

// Refresh verifies the refresh token and issues a new access token.
// The refresh token itself is not rotated.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	if refreshToken == "" {
		return model.Tokens{}, fmt.Errorf("%w: no refresh token provided", errs.ErrUnauthorized)
	}
	id, err := s.tokens.Verify(ctx, refreshToken, token.Refresh)
	if err != nil {
		return model.Tokens{}, err
	}
	access, exp, err := s.tokens.IssueAccessToken(id)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, AccessExpiresAt: exp}, nil
}

// Authenticate parses the access token and loads its subject.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, accessToken string) (model.User, error) {
	if accessToken == "" {
		return model.User{}, fmt.Errorf("%w: no token provided", errs.ErrUnauthorized)
	}
	id, err := s.tokens.Parse(accessToken, token.Access)
	if err != nil {
		return model.User{}, err
	}
	return s.Me(ctx, id)
}

// Me loads the user; a missing row means the token outlived its subject.
func (s *AuthServiceImpl) Me(ctx context.Context, id uuid.UUID) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return model.User{}, errs.ErrUnknownUser
	}
	if err != nil {
		return model.User{}, err
	}
	return *u, nil
}

// DeleteAccount removes the user's assessments, retrying transient failures,
// and only then removes the user.
func (s *AuthServiceImpl) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	var removed int64
	err := retry.Do(ctx, s.cleanup(), func(ctx context.Context) error {
		n, err := s.assessments.DeleteAllForUser(ctx, id)
		if err != nil {
			return retry.RetryableError(err)
		}
		removed = n
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete assessments: %w", err)
	}
	s.log.Info("deleted assessments", zap.String("user_id", id.String()), zap.Int64("count", removed))

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *AuthServiceImpl) issuePair(id uuid.UUID) (model.Tokens, error) {
	access, aexp, err := s.tokens.IssueAccessToken(id)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, rexp, err := s.tokens.IssueRefreshToken(id)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  aexp,
		RefreshExpiresAt: rexp,
	}, nil
}
