package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store persists the bearer token across restarts.
type Store struct {
	path   string
	remove func(string) error
}

// NewStore creates a token store. configDir is typically
// <user config dir>/issuefix.
func NewStore(configDir string) *Store {
	return &Store{path: filepath.Join(configDir, "session.json"), remove: os.Remove}
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes token with owner-only permissions.
func (s *Store) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(record{Token: token, SavedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to a temp file and rename so watchers never observe a partial file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Load returns the stored token, or "" when none is stored. A corrupt file
// is treated as no token.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", nil
	}
	return rec.Token, nil
}

// Clear removes the stored token. Clearing an absent file is not an error.
func (s *Store) Clear() error {
	if err := s.remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
