package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/and161185/comfy/internal/model"
)

// Operation names reported to the Observer.
const (
	OpQuestions = "generate_questions"
	OpAnalysis  = "analyze_stress"
)

// Outcomes reported to the Observer.
const (
	OutcomeAI       = "ai"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Observer receives one outcome per gateway call.
type Observer func(op, outcome string)

// Gateway builds prompts, calls the model with retries and cleans its output.
type Gateway struct {
	handle   *Handle
	policy   RetryPolicy
	log      *zap.Logger
	validate *validator.Validate
	observe  Observer
	now      func() time.Time
	seed     func() string
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithObserver reports call outcomes (metrics).
func WithObserver(o Observer) Option { return func(g *Gateway) { g.observe = o } }

// NewGateway constructs a gateway over a model handle.
func NewGateway(h *Handle, p RetryPolicy, log *zap.Logger, opts ...Option) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gateway{
		handle:   h,
		policy:   p,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		observe:  func(string, string) {},
		now:      time.Now,
		seed:     sessionSeed,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

type questionsReply struct {
	Questions []model.Question `json:"questions" validate:"required,min=1,max=30,dive"`
}

// GenerateQuestions returns personalized questions, or templated fallback
// questions when the model is unavailable, rate limited past the retry budget
// or returns unusable output. It never fails.
func (g *Gateway) GenerateQuestions(ctx context.Context, p model.Profile) model.QuestionSet {
	seed := g.seed()
	set, err := g.generateQuestions(ctx, p, seed)
	if err != nil {
		if ctx.Err() == nil {
			g.log.Warn("question generation failed, using fallback",
				zap.String("occupation", p.Occupation), zap.Error(err))
		}
		g.observe(OpQuestions, OutcomeFallback)
		return FallbackQuestions(p, seed)
	}
	g.observe(OpQuestions, OutcomeAI)
	return set
}

func (g *Gateway) generateQuestions(ctx context.Context, p model.Profile, seed string) (model.QuestionSet, error) {
	m, err := g.handle.Model(ctx)
	if err != nil {
		return model.QuestionSet{}, err
	}
	prompt := QuestionsPrompt(p, seed, g.now())

	reply, err := withRetry(ctx, g.policy, func(ctx context.Context) (questionsReply, error) {
		raw, err := m.Generate(ctx, prompt)
		if err != nil {
			return questionsReply{}, err
		}
		var r questionsReply
		if err := decodeModelJSON(raw, &r); err != nil {
			return questionsReply{}, err
		}
		return r, nil
	})
	if err != nil {
		return model.QuestionSet{}, err
	}

	minLabel, maxLabel := scaleLabels(p)
	for i := range reply.Questions {
		q := &reply.Questions[i]
		q.ID = fmt.Sprintf("%s_q%d", seed, i+1)
		if q.Type == "" {
			q.Type = model.ScaleLikert
		}
		if q.MinLabel == "" {
			q.MinLabel = minLabel
		}
		if q.MaxLabel == "" {
			q.MaxLabel = maxLabel
		}
	}
	if err := g.validate.Struct(reply); err != nil {
		return model.QuestionSet{}, fmt.Errorf("model questions: %w", err)
	}
	return model.QuestionSet{Questions: reply.Questions}, nil
}

type analysisReply struct {
	Score            int            `json:"score"`
	Level            string         `json:"level"`
	Analysis         model.Analysis `json:"analysis"`
	PersonalizedTips []model.Tip    `json:"personalizedTips" validate:"dive"`
	Disclaimer       string         `json:"disclaimer"`
}

// AnalyzeStress asks the model for a narrative analysis of the answers.
// The returned score is always the given deterministic score; an empty level
// is filled with the localized deterministic band. Errors are returned to the
// caller, which owns the fallback.
func (g *Gateway) AnalyzeStress(ctx context.Context, p model.Profile, answered []model.AnsweredQuestion, score int, level model.Level) (model.Report, error) {
	rep, err := g.analyze(ctx, p, answered, score, level)
	if err != nil {
		g.observe(OpAnalysis, OutcomeError)
		return model.Report{}, err
	}
	g.observe(OpAnalysis, OutcomeAI)
	return rep, nil
}

func (g *Gateway) analyze(ctx context.Context, p model.Profile, answered []model.AnsweredQuestion, score int, level model.Level) (model.Report, error) {
	m, err := g.handle.Model(ctx)
	if err != nil {
		return model.Report{}, err
	}
	prompt := AnalysisPrompt(p, answered, score, g.seed(), g.now())

	reply, err := withRetry(ctx, g.policy, func(ctx context.Context) (analysisReply, error) {
		raw, err := m.Generate(ctx, prompt)
		if err != nil {
			return analysisReply{}, err
		}
		var r analysisReply
		if err := decodeModelJSON(raw, &r); err != nil {
			return analysisReply{}, err
		}
		return r, nil
	})
	if err != nil {
		return model.Report{}, err
	}
	if reply.Analysis.Summary == "" {
		return model.Report{}, errors.New("model analysis has no summary")
	}
	if err := g.validate.Struct(reply); err != nil {
		return model.Report{}, fmt.Errorf("model analysis: %w", err)
	}

	rep := model.Report{
		Score:            score,
		Level:            reply.Level,
		Analysis:         reply.Analysis,
		PersonalizedTips: reply.PersonalizedTips,
		Disclaimer:       reply.Disclaimer,
	}
	if rep.Level == "" {
		rep.Level = LocalizedLevel(level, p)
	}
	if rep.Disclaimer == "" {
		rep.Disclaimer = Disclaimer(p)
	}
	if rep.Analysis.KeyStressors == nil {
		rep.Analysis.KeyStressors = []string{}
	}
	if rep.PersonalizedTips == nil {
		rep.PersonalizedTips = []model.Tip{}
	}
	return rep, nil
}
