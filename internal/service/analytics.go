package service

import (
	"context"

	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/repository"
)

// AnalyticsService exposes anonymized platform statistics.
type AnalyticsService interface {
	Platform(ctx context.Context) (model.PlatformStats, error)
}

// AnalyticsServiceImpl implements AnalyticsService.
type AnalyticsServiceImpl struct {
	users       repository.UserRepository
	assessments repository.AssessmentRepository
}

// NewAnalyticsService constructs AnalyticsService.
func NewAnalyticsService(users repository.UserRepository, assessments repository.AssessmentRepository) *AnalyticsServiceImpl {
	return &AnalyticsServiceImpl{users: users, assessments: assessments}
}

// Platform counts users and assessments and averages all scores.
func (s *AnalyticsServiceImpl) Platform(ctx context.Context) (model.PlatformStats, error) {
	count, avg, err := s.assessments.Stats(ctx)
	if err != nil {
		return model.PlatformStats{}, err
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return model.PlatformStats{}, err
	}
	return model.PlatformStats{TotalAssessments: count, TotalUsers: users, PlatformAvgScore: avg}, nil
}
