package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/comfy/internal/ai"
	"github.com/and161185/comfy/internal/errs"
	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/quota"
	"github.com/and161185/comfy/internal/repository"
	"github.com/and161185/comfy/internal/scoring"
)

// History page bounds.
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// TrendWindow is how far back trends look.
const TrendWindow = 30 * 24 * time.Hour

// Gateway is the AI side of an assessment.
type Gateway interface {
	GenerateQuestions(ctx context.Context, p model.Profile) model.QuestionSet
	AnalyzeStress(ctx context.Context, p model.Profile, answered []model.AnsweredQuestion, score int, level model.Level) (model.Report, error)
}

var _ Gateway = (*ai.Gateway)(nil)

// AnalyzeInput is a submitted questionnaire.
type AnalyzeInput struct {
	Profile   model.Profile
	Questions []model.Question
	Answers   map[string]int
}

// AssessmentService defines questionnaire operations of an authenticated user.
type AssessmentService interface {
	// GenerateQuestions consumes one AI request and returns a question set.
	GenerateQuestions(ctx context.Context, userID uuid.UUID, p model.Profile) (model.QuestionSet, error)
	// Analyze scores the answers, consumes one AI request, builds the report and stores the assessment.
	Analyze(ctx context.Context, userID uuid.UUID, in AnalyzeInput) (model.Report, error)
	// History lists the most recent assessments of the user.
	History(ctx context.Context, userID uuid.UUID, limit int) ([]model.Assessment, error)
	// Trends aggregates the user's assessments of the last 30 days.
	Trends(ctx context.Context, userID uuid.UUID) (model.Trends, error)
}

// AssessmentServiceImpl implements AssessmentService.
type AssessmentServiceImpl struct {
	users       repository.UserRepository
	assessments repository.AssessmentRepository
	gateway     Gateway
	dailyLimit  int
	log         *zap.Logger
	now         func() time.Time
}

// NewAssessmentService constructs AssessmentService. dailyLimit <= 0 uses quota.DefaultCeiling.
func NewAssessmentService(
	users repository.UserRepository,
	assessments repository.AssessmentRepository,
	gateway Gateway,
	dailyLimit int,
	log *zap.Logger,
) *AssessmentServiceImpl {
	if dailyLimit <= 0 {
		dailyLimit = quota.DefaultCeiling
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AssessmentServiceImpl{
		users:       users,
		assessments: assessments,
		gateway:     gateway,
		dailyLimit:  dailyLimit,
		log:         log,
		now:         time.Now,
	}
}

func (s *AssessmentServiceImpl) consume(ctx context.Context, userID uuid.UUID) error {
	today := quota.Today(s.now())
	w, ok, err := s.users.ConsumeAIRequest(ctx, userID, today, s.dailyLimit)
	if err != nil {
		return fmt.Errorf("consume ai request: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %d of %d used on %s", errs.ErrQuotaExceeded, w.Count, s.dailyLimit, w.Date)
	}
	s.log.Debug("ai request counted",
		zap.String("user_id", userID.String()),
		zap.Int("remaining", w.Remaining(today)),
	)
	return nil
}

// GenerateQuestions checks the daily quota before calling the gateway.
func (s *AssessmentServiceImpl) GenerateQuestions(ctx context.Context, userID uuid.UUID, p model.Profile) (model.QuestionSet, error) {
	if err := s.consume(ctx, userID); err != nil {
		return model.QuestionSet{}, err
	}
	return s.gateway.GenerateQuestions(ctx, p), nil
}

func answeredFrom(in AnalyzeInput) ([]model.AnsweredQuestion, error) {
	if len(in.Questions) == 0 {
		return nil, fmt.Errorf("%w: questions are required", errs.ErrValidation)
	}
	out := make([]model.AnsweredQuestion, 0, len(in.Questions))
	seen := make(map[string]struct{}, len(in.Questions))
	for _, q := range in.Questions {
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %q", errs.ErrValidation, q.ID)
		}
		seen[q.ID] = struct{}{}
		v, ok := in.Answers[q.ID]
		if !ok {
			return nil, fmt.Errorf("%w: missing answer for question %q", errs.ErrValidation, q.ID)
		}
		out = append(out, model.AnsweredQuestion{ID: q.ID, Text: q.Text, Cluster: q.Cluster, Answer: v})
	}
	return out, nil
}

// Analyze validates and scores before spending quota. A failed AI analysis is
// replaced by the fallback report; a failed save is logged and the report is
// still returned.
func (s *AssessmentServiceImpl) Analyze(ctx context.Context, userID uuid.UUID, in AnalyzeInput) (model.Report, error) {
	answered, err := answeredFrom(in)
	if err != nil {
		return model.Report{}, err
	}
	res, err := scoring.Score(answered)
	if err != nil {
		return model.Report{}, err
	}
	if err := s.consume(ctx, userID); err != nil {
		return model.Report{}, err
	}

	report, err := s.gateway.AnalyzeStress(ctx, in.Profile, answered, res.Score, res.Level)
	if err != nil {
		if ctx.Err() != nil {
			return model.Report{}, ctx.Err()
		}
		s.log.Warn("ai analysis failed, using fallback",
			zap.String("user_id", userID.String()), zap.Error(err))
		report = ai.FallbackReport(in.Profile, res.Score, res.Level)
	}

	a := &model.Assessment{
		UserID:        userID,
		Profile:       in.Profile,
		Questions:     answered,
		Score:         res.Score,
		ClusterScores: res.Clusters,
		Level:         res.Level,
		Analysis:      report.Analysis,
		Tips:          report.PersonalizedTips,
	}
	if id, err := s.assessments.Create(ctx, a); err != nil {
		s.log.Error("save assessment failed", zap.String("user_id", userID.String()), zap.Error(err))
	} else {
		s.log.Debug("assessment saved", zap.String("id", id.String()))
	}

	clusters := res.Clusters
	report.ClusterScores = &clusters
	return report, nil
}

// History clamps limit into [1, MaxHistoryLimit]; zero means the default.
func (s *AssessmentServiceImpl) History(ctx context.Context, userID uuid.UUID, limit int) ([]model.Assessment, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	list, err := s.assessments.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Assessment{}
	}
	return list, nil
}

// Trends loads the last 30 days and aggregates them.
func (s *AssessmentServiceImpl) Trends(ctx context.Context, userID uuid.UUID) (model.Trends, error) {
	now := s.now()
	list, err := s.assessments.ListSince(ctx, userID, now.Add(-TrendWindow))
	if err != nil {
		return model.Trends{}, err
	}
	return ComputeTrends(now, list), nil
}
