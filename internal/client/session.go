// Package client is a Go client for the comfy API. It holds the access token
// in memory, keeps the refresh cookie in a CookieStore and silently refreshes
// an expired access token once per call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/comfy/internal/model"
)

// State is the authentication state of a Session.
type State int

const (
	Bootstrapping State = iota
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	refreshPath   = "/api/auth/refresh"
	refreshCookie = "refreshToken"
	clearedValue  = "none"
)

// Session is an authenticated conversation with the API. Safe for concurrent use.
type Session struct {
	base  string
	http  *http.Client
	store CookieStore
	log   *zap.Logger

	mu     sync.RWMutex
	state  State
	user   *model.PublicUser
	access string

	refreshes singleflight.Group
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(s *Session) { s.http = c } }

// WithCookieStore replaces the default in-memory cookie store.
func WithCookieStore(cs CookieStore) Option { return func(s *Session) { s.store = cs } }

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option { return func(s *Session) { s.log = l } }

// New returns a Session in the Bootstrapping state for the API at baseURL.
func New(baseURL string, opts ...Option) *Session {
	s := &Session{
		base:  strings.TrimRight(baseURL, "/"),
		http:  &http.Client{Timeout: 60 * time.Second},
		store: &MemoryStore{},
		log:   zap.NewNop(),
		state: Bootstrapping,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the signed-in user, if any.
func (s *Session) User() (model.PublicUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.PublicUser{}, false
	}
	return *s.user, true
}

func (s *Session) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Session) signIn(u model.PublicUser, access string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user, s.access, s.state = &u, access, Authenticated
}

// dropLocal forgets the user and access token but keeps the stored cookie.
func (s *Session) dropLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user, s.access, s.state = nil, "", Anonymous
}

// signOut drops local state and the stored refresh cookie.
func (s *Session) signOut() {
	s.dropLocal()
	if err := s.store.Clear(); err != nil {
		s.log.Warn("clear refresh cookie", zap.Error(err))
	}
}

// lose handles a failed refresh. Only a 401 proves the cookie is dead; any
// other failure keeps it for the next run.
func (s *Session) lose(err error) {
	if IsUnauthorized(err) {
		s.signOut()
		return
	}
	s.dropLocal()
}

// Bootstrap restores a session from the stored refresh cookie. Any failure
// leaves the session Anonymous; only a canceled context is reported.
func (s *Session) Bootstrap(ctx context.Context) error {
	if err := s.refresh(ctx); err != nil {
		s.log.Debug("bootstrap: refresh", zap.Error(err))
		s.lose(err)
		return ctx.Err()
	}
	var u model.PublicUser
	if err := s.send(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		s.log.Debug("bootstrap: fetch user", zap.Error(err))
		s.lose(err)
		return ctx.Err()
	}
	s.signIn(u, s.token())
	return nil
}

type authData struct {
	User        model.PublicUser `json:"user"`
	AccessToken string           `json:"accessToken"`
}

// Register creates an account and signs in.
func (s *Session) Register(ctx context.Context, name, email, password string) (model.PublicUser, error) {
	return s.authenticate(ctx, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": password,
	})
}

// Login signs in with email and password.
func (s *Session) Login(ctx context.Context, email, password string) (model.PublicUser, error) {
	return s.authenticate(ctx, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	})
}

func (s *Session) authenticate(ctx context.Context, path string, body any) (model.PublicUser, error) {
	var out authData
	if err := s.send(ctx, http.MethodPost, path, body, &out); err != nil {
		return model.PublicUser{}, err
	}
	s.signIn(out.User, out.AccessToken)
	return out.User, nil
}

// Logout tells the server to clear the cookie and always drops local state.
func (s *Session) Logout(ctx context.Context) {
	if s.token() != "" {
		if err := s.Do(ctx, http.MethodGet, "/api/auth/logout", nil, nil); err != nil {
			s.log.Debug("logout", zap.Error(err))
		}
	}
	s.signOut()
}

// refresh exchanges the stored refresh cookie for a new access token.
// Concurrent callers share one request.
func (s *Session) refresh(ctx context.Context) error {
	_, err, _ := s.refreshes.Do("refresh", func() (any, error) {
		var out struct {
			AccessToken string `json:"accessToken"`
		}
		if err := s.send(ctx, http.MethodPost, refreshPath, nil, &out); err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.access = out.AccessToken
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

// send performs one request and decodes the envelope data into out.
func (s *Session) send(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := s.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rt, err := s.store.Load()
	if err != nil {
		s.log.Warn("load refresh cookie", zap.Error(err))
	} else if rt != "" {
		req.AddCookie(&http.Cookie{Name: refreshCookie, Value: rt})
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	s.keepCookie(resp)
	return decodeEnvelope(resp, out)
}

func (s *Session) keepCookie(resp *http.Response) {
	for _, c := range resp.Cookies() {
		if c.Name != refreshCookie {
			continue
		}
		var err error
		if c.Value == "" || c.Value == clearedValue || c.MaxAge < 0 {
			err = s.store.Clear()
		} else {
			err = s.store.Save(c.Value, c.Expires)
		}
		if err != nil {
			s.log.Warn("store refresh cookie", zap.Error(err))
		}
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeEnvelope(resp *http.Response, out any) error {
	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		ae := &APIError{Status: resp.StatusCode, Message: env.Message}
		if env.Error != nil {
			ae.Detail, ae.Fields = env.Error.Message, env.Error.Fields
		}
		return ae
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
