// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/quota"
)

// UserRepository provides access to accounts and their daily AI counters.
type UserRepository interface {
	// Create inserts a new user; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by (case-insensitive) email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Exists reports whether a user with the given ID is present.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// Delete removes the user. Remaining assessments of the user are removed with it.
	Delete(ctx context.Context, id uuid.UUID) error
	// ConsumeAIRequest atomically applies one AI request to the user's daily window.
	// It returns the resulting window and whether the request was allowed.
	ConsumeAIRequest(ctx context.Context, id uuid.UUID, today string, ceiling int) (quota.Window, bool, error)
	// Count returns the number of registered users.
	Count(ctx context.Context) (int, error)
}
