package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CookieStore keeps the refresh cookie between calls. The access token is
// never persisted.
type CookieStore interface {
	// Load returns the stored refresh token, or "" when none is kept.
	Load() (string, error)
	// Save replaces the stored refresh token.
	Save(token string, expires time.Time) error
	// Clear forgets the refresh token.
	Clear() error
}

// MemoryStore is a process-local CookieStore.
type MemoryStore struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

var _ CookieStore = (*MemoryStore)(nil)

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || (!m.expires.IsZero() && time.Now().After(m.expires)) {
		return "", nil
	}
	return m.token, nil
}

func (m *MemoryStore) Save(token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.expires = token, expires
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.expires = "", time.Time{}
	return nil
}

type cookieFile struct {
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// FileStore keeps the refresh cookie in a 0600 JSON file under dir.
type FileStore struct {
	dir string
}

var _ CookieStore = (*FileStore)(nil)

// NewFileStore returns a store writing to dir/session.json.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// Path is the session file location.
func (f *FileStore) Path() string { return filepath.Join(f.dir, "session.json") }

func (f *FileStore) Load() (string, error) {
	b, err := os.ReadFile(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var cf cookieFile
	if err := json.Unmarshal(b, &cf); err != nil {
		return "", err
	}
	if cf.RefreshToken == "" || (!cf.ExpiresAt.IsZero() && time.Now().After(cf.ExpiresAt)) {
		return "", nil
	}
	return cf.RefreshToken, nil
}

func (f *FileStore) Save(token string, expires time.Time) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cookieFile{RefreshToken: token, ExpiresAt: expires}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path(), b, 0o600)
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
