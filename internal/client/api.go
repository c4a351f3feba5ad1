package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/and161185/comfy/internal/model"
)

// Me fetches the signed-in user.
func (s *Session) Me(ctx context.Context) (model.PublicUser, error) {
	var u model.PublicUser
	err := s.Do(ctx, http.MethodGet, "/api/auth/me", nil, &u)
	return u, err
}

// GenerateQuestions asks for a fresh questionnaire tailored to the profile.
func (s *Session) GenerateQuestions(ctx context.Context, p model.Profile) (model.QuestionSet, error) {
	var set model.QuestionSet
	err := s.Do(ctx, http.MethodPost, "/api/generate-questions", map[string]any{"userInfo": p}, &set)
	return set, err
}

// AnalyzeStress submits answers keyed by question id and returns the report.
func (s *Session) AnalyzeStress(ctx context.Context, p model.Profile, questions []model.Question, answers map[string]int) (model.Report, error) {
	var rep model.Report
	err := s.Do(ctx, http.MethodPost, "/api/analyze-stress", map[string]any{
		"userInfo":  p,
		"questions": questions,
		"answers":   answers,
	}, &rep)
	return rep, err
}

// History lists the most recent assessments; limit <= 0 uses the server default.
func (s *Session) History(ctx context.Context, limit int) ([]model.Assessment, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	list := []model.Assessment{}
	err := s.Do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

// Trends fetches the 7/30-day aggregates.
func (s *Session) Trends(ctx context.Context) (model.Trends, error) {
	var t model.Trends
	err := s.Do(ctx, http.MethodGet, "/api/trends", nil, &t)
	return t, err
}

// AdminAnalytics fetches platform-wide statistics; admins only.
func (s *Session) AdminAnalytics(ctx context.Context) (model.PlatformStats, error) {
	var st model.PlatformStats
	err := s.Do(ctx, http.MethodGet, "/api/admin/analytics", nil, &st)
	return st, err
}

// DeleteAccount removes the account with all its data and ends the session.
func (s *Session) DeleteAccount(ctx context.Context) error {
	if err := s.Do(ctx, http.MethodDelete, "/api/user/delete-account", nil, nil); err != nil {
		return err
	}
	s.signOut()
	return nil
}
