package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/comfy/internal/errs"
	"github.com/and161185/comfy/internal/limiter"
	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/quota"
	"github.com/and161185/comfy/internal/repository"
)

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*model.User

	createErr  error
	getErr     error
	consumeErr error
	countErr   error
	deleted    []uuid.UUID
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers(us ...*model.User) *fakeUsers {
	f := &fakeUsers{byEmail: map[string]*model.User{}}
	for _, u := range us {
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byEmail[u.Email] = &cpy
	return nil
}

func (f *fakeUsers) find(id uuid.UUID) *model.User {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u := f.find(id)
	if u == nil {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(id) != nil, nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.find(id)
	if u == nil {
		return errs.ErrNotFound
	}
	delete(f.byEmail, u.Email)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeUsers) ConsumeAIRequest(_ context.Context, id uuid.UUID, today string, ceiling int) (quota.Window, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return quota.Window{}, false, f.consumeErr
	}
	u := f.find(id)
	if u == nil {
		return quota.Window{}, false, errs.ErrNotFound
	}
	w, ok := quota.Window{Date: u.AIUsage.Date, Count: u.AIUsage.Count, Ceiling: ceiling}.TryConsume(today)
	u.AIUsage = model.AIUsage{Date: w.Date, Count: w.Count}
	return w, ok, nil
}

func (f *fakeUsers) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEmail), f.countErr
}

type fakeAssessments struct {
	mu   sync.Mutex
	list []model.Assessment

	createErr   error
	listErr     error
	deleteErrs  []error
	deleteCalls int
	statsCount  int
	statsAvg    int
	statsErr    error
	lastLimit   int
	lastSince   time.Time
}

var _ repository.AssessmentRepository = (*fakeAssessments)(nil)

func (f *fakeAssessments) Create(_ context.Context, a *model.Assessment) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	a.ID = uuid.Must(uuid.NewV4())
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	f.list = append(f.list, *a)
	return a.ID, nil
}

func (f *fakeAssessments) ListForUser(_ context.Context, userID uuid.UUID, limit int) ([]model.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Assessment
	for _, a := range f.list {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAssessments) ListSince(_ context.Context, userID uuid.UUID, since time.Time) ([]model.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSince = since
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Assessment
	for _, a := range f.list {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeAssessments) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if len(f.deleteErrs) > 0 {
		err := f.deleteErrs[0]
		f.deleteErrs = f.deleteErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	kept := f.list[:0]
	var n int64
	for _, a := range f.list {
		if a.UserID == userID {
			n++
			continue
		}
		kept = append(kept, a)
	}
	f.list = kept
	return n, nil
}

func (f *fakeAssessments) Stats(context.Context) (int, int, error) {
	return f.statsCount, f.statsAvg, f.statsErr
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, time.Minute, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, time.Minute, l.failErr
}

type fakeGateway struct {
	questions model.QuestionSet
	report    model.Report
	err       error

	analyzeCalls int
	gotScore     int
	gotLevel     model.Level
	gotAnswered  []model.AnsweredQuestion
}

var _ Gateway = (*fakeGateway)(nil)

func (g *fakeGateway) GenerateQuestions(context.Context, model.Profile) model.QuestionSet {
	return g.questions
}

func (g *fakeGateway) AnalyzeStress(_ context.Context, _ model.Profile, answered []model.AnsweredQuestion, score int, level model.Level) (model.Report, error) {
	g.analyzeCalls++
	g.gotAnswered = answered
	g.gotScore = score
	g.gotLevel = level
	if g.err != nil {
		return model.Report{}, g.err
	}
	r := g.report
	r.Score = score
	return r, nil
}
