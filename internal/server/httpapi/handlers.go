package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/and161185/comfy/internal/errs"
	"github.com/and161185/comfy/internal/metrics"
	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/response"
	"github.com/and161185/comfy/internal/service"
)

func (s *Server) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	if p := response.Translate(err, s.opts.Dev); p.Status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r)),
			zap.Error(err),
		)
	}
	if message == "" {
		response.Error(w, err, s.opts.Dev)
		return
	}
	response.ErrorAs(w, message, err, s.opts.Dev)
}

func (s *Server) quotaDenied(err error) {
	if errors.Is(err, errs.ErrQuotaExceeded) {
		metrics.QuotaDenied()
	}
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	u, ok := UserFromCtx(r.Context())
	if !ok {
		s.fail(w, r, "", errNoUser)
	}
	return u, ok
}

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, "Server is running", map[string]any{
		"status":    "Active",
		"timestamp": s.now().UTC(),
	})
}

// --- Auth ---

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, "Registration failed", err)
		return
	}
	tk, u, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.fail(w, r, "Registration failed", err)
		return
	}
	s.setRefreshCookie(w, tk.RefreshToken, tk.RefreshExpiresAt)
	response.Created(w, "User registered successfully", authPayload{User: u.Public(), AccessToken: tk.AccessToken})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, "Login failed", err)
		return
	}
	tk, u, err := s.auth.Login(r.Context(), req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		s.fail(w, r, "Login failed", err)
		return
	}
	s.setRefreshCookie(w, tk.RefreshToken, tk.RefreshExpiresAt)
	response.OK(w, "Login successful", authPayload{User: u.Public(), AccessToken: tk.AccessToken})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var tok string
	if c, err := r.Cookie(refreshCookie); err == nil && c.Value != clearedValue {
		tok = c.Value
	}
	if tok == "" {
		response.Fail(w, http.StatusUnauthorized, "Not authorized", "No refresh token provided")
		return
	}
	tk, err := s.auth.Refresh(r.Context(), tok)
	switch {
	case errors.Is(err, errs.ErrInvalidToken):
		response.Fail(w, http.StatusUnauthorized, "Not authorized", "Invalid refresh token")
		return
	case err != nil:
		s.fail(w, r, "", err)
		return
	}
	response.OK(w, "Token refreshed", tokenPayload{AccessToken: tk.AccessToken})
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	s.clearRefreshCookie(w)
	response.OK(w, "User logged out successfully", struct{}{})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	response.OK(w, "User fetched successfully", u.Public())
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if err := s.auth.DeleteAccount(r.Context(), u.ID); err != nil {
		s.fail(w, r, "", err)
		return
	}
	s.clearRefreshCookie(w)
	response.OK(w, "Account and all data successfully deleted", nil)
}

// --- Assessments ---

func (s *Server) generateQuestions(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req questionsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, "", err)
		return
	}
	set, err := s.assessments.GenerateQuestions(r.Context(), u.ID, req.UserInfo)
	if err != nil {
		s.quotaDenied(err)
		s.fail(w, r, "", err)
		return
	}
	response.OK(w, "Questions generated successfully", set)
}

func (s *Server) analyzeStress(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req analyzeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, "", err)
		return
	}
	rep, err := s.assessments.Analyze(r.Context(), u.ID, service.AnalyzeInput{
		Profile:   req.UserInfo,
		Questions: req.Questions,
		Answers:   req.Answers,
	})
	if err != nil {
		s.quotaDenied(err)
		s.fail(w, r, "", err)
		return
	}
	response.OK(w, "Analysis completed successfully", rep)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.fail(w, r, "", fmt.Errorf("%w: limit must be a positive integer", errs.ErrValidation))
			return
		}
		limit = n
	}
	list, err := s.assessments.History(r.Context(), u.ID, limit)
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	response.OK(w, "History fetched successfully", list)
}

func (s *Server) trends(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	t, err := s.assessments.Trends(r.Context(), u.ID)
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	msg := "Trends fetched successfully"
	if t.TotalAssessments == 0 {
		msg = "No data available"
	}
	response.OK(w, msg, t)
}

// --- Admin ---

func (s *Server) adminAnalytics(w http.ResponseWriter, r *http.Request) {
	st, err := s.analytics.Platform(r.Context())
	if err != nil {
		s.fail(w, r, "", err)
		return
	}
	response.OK(w, "Admin analytics fetched", st)
}
