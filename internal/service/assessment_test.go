package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/comfy/internal/ai"
	"github.com/and161185/comfy/internal/errs"
	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/quota"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newAssessments(t *testing.T, users *fakeUsers, as *fakeAssessments, gw Gateway, limit int) *AssessmentServiceImpl {
	t.Helper()
	s := NewAssessmentService(users, as, gw, limit, zaptest.NewLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s
}

func sampleInput() AnalyzeInput {
	return AnalyzeInput{
		Profile: model.Profile{Occupation: "Engineer", Language: model.LanguageEnglish},
		Questions: []model.Question{
			{ID: "s_q1", Text: "Deadlines?", Cluster: model.TagWork},
			{ID: "s_q2", Text: "Overtime?", Cluster: model.TagWork},
			{ID: "s_q3", Text: "Sleep?", Cluster: model.TagPhysical},
		},
		Answers: map[string]int{"s_q1": 5, "s_q2": 4, "s_q3": 2},
	}
}

func TestGenerateQuestions_ConsumesQuota(t *testing.T) {
	t.Parallel()
	u := storedUser(t, "a@example.com", "pw1234")
	users := newFakeUsers(u)
	gw := &fakeGateway{questions: model.QuestionSet{Questions: []model.Question{{ID: "x_q1", Text: "?", Cluster: model.TagWork}}}}
	s := newAssessments(t, users, &fakeAssessments{}, gw, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		set, err := s.GenerateQuestions(ctx, u.ID, model.Profile{})
		require.NoError(t, err)
		require.Len(t, set.Questions, 1)
	}
	_, err := s.GenerateQuestions(ctx, u.ID, model.Profile{})
	require.ErrorIs(t, err, errs.ErrQuotaExceeded)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, model.AIUsage{Date: quota.Today(fixedNow), Count: 2}, stored.AIUsage)
}

func TestGenerateQuestions_LogsRemainingQuota(t *testing.T) {
	t.Parallel()
	u := storedUser(t, "a@example.com", "pw1234")
	u.AIUsage = model.AIUsage{Date: quota.Today(fixedNow), Count: 1}
	core, logs := observer.New(zap.DebugLevel)
	s := NewAssessmentService(newFakeUsers(u), &fakeAssessments{}, &fakeGateway{}, 5, zap.New(core))
	s.now = func() time.Time { return fixedNow }

	_, err := s.GenerateQuestions(context.Background(), u.ID, model.Profile{})
	require.NoError(t, err)

	entries := logs.FilterMessage("ai request counted").All()
	require.Len(t, entries, 1)
	require.EqualValues(t, 3, entries[0].ContextMap()["remaining"])
}

func TestGenerateQuestions_QuotaResetsNextDay(t *testing.T) {
	t.Parallel()
	u := storedUser(t, "a@example.com", "pw1234")
	u.AIUsage = model.AIUsage{Date: "2025-03-09", Count: 100}
	users := newFakeUsers(u)
	s := newAssessments(t, users, &fakeAssessments{}, &fakeGateway{}, 100)

	_, err := s.GenerateQuestions(context.Background(), u.ID, model.Profile{})
	require.NoError(t, err)

	stored, _ := users.GetByID(context.Background(), u.ID)
	require.Equal(t, 1, stored.AIUsage.Count)
}

func TestGenerateQuestions_RepoError(t *testing.T) {
	t.Parallel()
	u := storedUser(t, "a@example.com", "pw1234")
	users := newFakeUsers(u)
	users.consumeErr = errors.New("db down")
	s := newAssessments(t, users, &fakeAssessments{}, &fakeGateway{}, 10)

	_, err := s.GenerateQuestions(context.Background(), u.ID, model.Profile{})
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrQuotaExceeded)
}

func TestAnalyze_ScoresSavesAndReturnsClusters(t *testing.T) {
	t.Parallel()
	u := storedUser(t, "a@example.com", "pw1234")
	users := newFakeUsers(u)
	as := &fakeAssessments{}
	gw := &fakeGateway{report: model.Report{
		Level:            "High",
		Analysis:         model.Analysis{Summary: "ai summary", KeyStressors: []string{"Deadlines"}},
		PersonalizedTips: []model.Tip{{Title: "Rest", Description: "Sleep more"}},
		Disclaimer:       ai.DisclaimerEN,
	}}
	s := newAssessments(t, users, as, gw, 10)

	rep, err := s.Analyze(context.Background(), u.ID, sampleInput())
	require.NoError(t, err)

	require.Equal(t, 73, gw.gotScore)
	require.Equal(t, model.LevelHigh, gw.gotLevel)
	require.Len(t, gw.gotAnswered, 3)
	require.Equal(t, 4, gw.gotAnswered[1].Answer)

	require.Equal(t, 73, rep.Score)
	require.Equal(t, "ai summary", rep.Analysis.Summary)
	require.NotNil(t, rep.ClusterScores)
	require.Equal(t, model.ClusterScores{Work: 90, Physical: 40}, *rep.ClusterScores)

	require.Len(t, as.list, 1)
	saved := as.list[0]
	require.Equal(t, u.ID, saved.UserID)
	require.Equal(t, 73, saved.Score)
	require.Equal(t, model.LevelHigh, saved.Level)
	require.Equal(t, rep.Analysis, saved.Analysis)
	require.Equal(t, rep.PersonalizedTips, saved.Tips)
	require.Len(t, saved.Questions, 3)
}

func TestAnalyze_GatewayErrorUsesFallback(t *testing.T) {
	t.Parallel()
	u := storedUser(t, "a@example.com", "pw1234")
	users := newFakeUsers(u)
	as := &fakeAssessments{}
	s := newAssessments(t, users, as, &fakeGateway{err: errs.ErrUpstreamUnavailable}, 10)

	rep, err := s.Analyze(context.Background(), u.ID, sampleInput())
	require.NoError(t, err)
	require.Equal(t, 73, rep.Score)
	require.Equal(t, "High", rep.Level)
	require.Equal(t, []string{model.TagWork, "Emotional Fatigue"}, rep.Analysis.KeyStressors)
	require.Len(t, rep.PersonalizedTips, ai.FallbackTipCount)
	require.Equal(t, ai.DisclaimerEN, rep.Disclaimer)
	require.Len(t, as.list, 1)
}

func TestAnalyze_SaveFailureStillReturnsReport(t *testing.T) {
	t.Parallel()
	u := storedUser(t, "a@example.com", "pw1234")
	as := &fakeAssessments{createErr: errors.New("disk full")}
	s := newAssessments(t, newFakeUsers(u), as, &fakeGateway{}, 10)

	rep, err := s.Analyze(context.Background(), u.ID, sampleInput())
	require.NoError(t, err)
	require.Equal(t, 73, rep.Score)
	require.NotNil(t, rep.ClusterScores)
}

func TestAnalyze_ValidationBeforeQuota(t *testing.T) {
	t.Parallel()
	u := storedUser(t, "a@example.com", "pw1234")
	users := newFakeUsers(u)
	gw := &fakeGateway{}
	s := newAssessments(t, users, &fakeAssessments{}, gw, 10)
	ctx := context.Background()

	in := sampleInput()
	delete(in.Answers, "s_q2")
	_, err := s.Analyze(ctx, u.ID, in)
	require.ErrorIs(t, err, errs.ErrValidation)

	in = sampleInput()
	in.Answers["s_q1"] = 9
	_, err = s.Analyze(ctx, u.ID, in)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.Analyze(ctx, u.ID, AnalyzeInput{})
	require.ErrorIs(t, err, errs.ErrValidation)

	in = sampleInput()
	in.Questions = append(in.Questions, model.Question{ID: "s_q1", Text: "Deadlines again?", Cluster: model.TagWork})
	_, err = s.Analyze(ctx, u.ID, in)
	require.ErrorIs(t, err, errs.ErrValidation)
	require.ErrorContains(t, err, `duplicate question id "s_q1"`)

	stored, _ := users.GetByID(ctx, u.ID)
	require.Zero(t, stored.AIUsage.Count)
	require.Zero(t, gw.analyzeCalls)
}

func TestAnalyze_QuotaExceeded(t *testing.T) {
	t.Parallel()
	u := storedUser(t, "a@example.com", "pw1234")
	u.AIUsage = model.AIUsage{Date: quota.Today(fixedNow), Count: 5}
	gw := &fakeGateway{}
	as := &fakeAssessments{}
	s := newAssessments(t, newFakeUsers(u), as, gw, 5)

	_, err := s.Analyze(context.Background(), u.ID, sampleInput())
	require.ErrorIs(t, err, errs.ErrQuotaExceeded)
	require.Zero(t, gw.analyzeCalls)
	require.Empty(t, as.list)
}

func TestAnalyze_CanceledContext(t *testing.T) {
	t.Parallel()
	u := storedUser(t, "a@example.com", "pw1234")
	as := &fakeAssessments{}
	s := newAssessments(t, newFakeUsers(u), as, &fakeGateway{err: context.Canceled}, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Analyze(ctx, u.ID, sampleInput())
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, as.list)
}

func TestHistory_LimitClamp(t *testing.T) {
	t.Parallel()
	uid := uuid.Must(uuid.NewV4())
	as := &fakeAssessments{}
	for i := 0; i < 12; i++ {
		as.list = append(as.list, model.Assessment{UserID: uid, Score: i, CreatedAt: fixedNow.Add(time.Duration(i) * time.Hour)})
	}
	s := newAssessments(t, newFakeUsers(), as, &fakeGateway{}, 10)
	ctx := context.Background()

	list, err := s.History(ctx, uid, 0)
	require.NoError(t, err)
	require.Len(t, list, DefaultHistoryLimit)
	require.Equal(t, 11, list[0].Score)

	_, err = s.History(ctx, uid, 500)
	require.NoError(t, err)
	require.Equal(t, MaxHistoryLimit, as.lastLimit)

	list, err = s.History(ctx, uuid.Must(uuid.NewV4()), 5)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)

	as.listErr = errors.New("db down")
	_, err = s.History(ctx, uid, 5)
	require.Error(t, err)
}

func TestTrends_QueriesThirtyDays(t *testing.T) {
	t.Parallel()
	uid := uuid.Must(uuid.NewV4())
	as := &fakeAssessments{list: []model.Assessment{
		{UserID: uid, Score: 50, CreatedAt: fixedNow.Add(-40 * 24 * time.Hour)},
		{UserID: uid, Score: 60, CreatedAt: fixedNow.Add(-2 * 24 * time.Hour)},
	}}
	s := newAssessments(t, newFakeUsers(), as, &fakeGateway{}, 10)

	tr, err := s.Trends(context.Background(), uid)
	require.NoError(t, err)
	require.Equal(t, fixedNow.Add(-TrendWindow), as.lastSince)
	require.Equal(t, 1, tr.TotalAssessments)
	require.Equal(t, 60, *tr.Last7DaysAvg)
}
