package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/comfy/internal/model"
)

// AssessmentRepository stores completed assessments. Records are never updated.
type AssessmentRepository interface {
	// Create stores a finalized assessment and returns its ID.
	Create(ctx context.Context, a *model.Assessment) (uuid.UUID, error)
	// ListForUser returns up to limit assessments of the user, most recent first.
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Assessment, error)
	// ListSince returns the user's assessments created at or after since, oldest first.
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Assessment, error)
	// DeleteAllForUser removes every assessment of the user and reports how many were removed.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// Stats returns the platform-wide assessment count and rounded average score.
	Stats(ctx context.Context) (count int, avgScore int, err error)
}
