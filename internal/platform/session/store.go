// Package session holds the bearer token that authorizes API calls. The
// token is the only durable client-side state: it survives restarts so a user
// stays signed in, and its validity is decided solely by the server accepting
// or rejecting it on the next call.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is the session token contract used by the gateway and the auth flow.
type Store interface {
	// Token returns the persisted token and whether one is present.
	Token() (string, bool)
	// SetToken persists the token, replacing any previous one.
	SetToken(token string) error
	// Clear removes the persisted token. Clearing an absent token is a no-op.
	Clear() error
	// Authenticated reports whether a token is currently present.
	Authenticated() bool
}

// ---------------------------------------------------------------------------
// File-backed store
// ---------------------------------------------------------------------------

// FileStore persists the token to a single file, the moral equivalent of the
// one browser-storage key the web client uses. The file is read on every
// Token call so an out-of-band logout is observed on the next operation.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore writing to path. The parent directory is
// created on the first SetToken.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *FileStore) SetToken(token string) error {
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (s *FileStore) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

// MemStore keeps the token in memory only. Used by tests and by callers that
// must not leave a token on disk.
type MemStore struct {
	mu    sync.Mutex
	token string
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *MemStore) SetToken(token string) error {
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

func (s *MemStore) Authenticated() bool {
	_, ok := s.Token()
	return ok
}
