package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ahpbridge/pkg/ahp"
)

// DefaultTokenStorageDir is the default directory for the persisted token,
// relative to the user's home directory.
const DefaultTokenStorageDir = ".config/ahpbridge/tokens"

const tokenFileName = "bearer.json"

// CachedToken is a bearer token together with the configuration it was
// issued for. It is replaced as a whole, never field by field.
type CachedToken struct {
	Value         string    `json:"bearer_token"`
	ExpiresAt     time.Time `json:"expires_at"`
	IssuedAt      time.Time `json:"issued_at"`
	ServerURL     string    `json:"server_url"`
	AgentIdentity string    `json:"agent_id"`
}

// Valid reports whether the token may be used at now.
func (t CachedToken) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// IssuedFor reports whether the token belongs to the given configuration.
func (t CachedToken) IssuedFor(serverURL, agentIdentity string) bool {
	return ahp.NormalizeBaseURL(t.ServerURL) == ahp.NormalizeBaseURL(serverURL) && t.AgentIdentity == agentIdentity
}

// Store persists the broker's cached token. It holds no policy: validity
// is decided by the broker.
type Store interface {
	// Load returns the stored token; ok is false when none is stored.
	Load() (tok CachedToken, ok bool, err error)
	// Save replaces the stored token atomically.
	Save(tok CachedToken) error
	// Clear removes the stored token.
	Clear() error
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	tok *CachedToken
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (s *MemoryStore) Load() (CachedToken, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil {
		return CachedToken{}, false, nil
	}
	return *s.tok, true, nil
}

// Save implements Store.
func (s *MemoryStore) Save(tok CachedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = &tok
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = nil
	return nil
}

// FileStore persists the token as JSON so separate CLI invocations share it.
// Reads are served from memory after the first load.
//
// SECURITY: the directory is created 0700, the file 0600, and only server
// URLs and expiry times are ever logged.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	cached *CachedToken
	loaded bool
}

// NewFileStore creates a store under dir, defaulting to ~/.config/ahpbridge/tokens.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultTokenStorageDir)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token storage directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the token file location.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, tokenFileName)
}

// Load implements Store.
func (s *FileStore) Load() (CachedToken, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		if s.cached == nil {
			return CachedToken{}, false, nil
		}
		return *s.cached, true, nil
	}

	// #nosec G304 -- path is built from the store directory, not user input
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.loaded = true
			return CachedToken{}, false, nil
		}
		return CachedToken{}, false, fmt.Errorf("failed to read token file: %w", err)
	}

	var tok CachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		// A corrupt file is treated as absent; the next Save replaces it.
		slog.Warn("SECURITY_AUDIT: Discarding unreadable token file",
			"event", "token_file_corrupt",
			"path", s.Path(),
			"error", err.Error(),
		)
		s.loaded = true
		return CachedToken{}, false, nil
	}

	s.cached = &tok
	s.loaded = true
	return tok, true, nil
}

// Save implements Store. The new file is written next to the old one and
// renamed over it, so readers see either the old token or the new one.
func (s *FileStore) Save(tok CachedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".bearer-*.json")
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to restrict token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		cleanup()
		slog.Warn("SECURITY_AUDIT: Bearer token storage failed",
			"event", "token_store_failed",
			"server_url", tok.ServerURL,
			"error", err.Error(),
		)
		return fmt.Errorf("failed to persist token: %w", err)
	}

	s.cached = &tok
	s.loaded = true

	slog.Info("SECURITY_AUDIT: Bearer token stored",
		"event", "token_stored",
		"server_url", tok.ServerURL,
		"expiry", tok.ExpiresAt.Format(time.RFC3339),
	)
	return nil
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	s.loaded = true

	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}

	slog.Info("SECURITY_AUDIT: Bearer token deleted",
		"event", "token_deleted",
		"path", s.Path(),
	)
	return nil
}
