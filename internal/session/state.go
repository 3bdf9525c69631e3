// Package session owns the client's authentication state: the bearer token,
// the verified user and the loading flag that protected screens wait on.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
)

// AuthAPI is the slice of the backend the session needs.
type AuthAPI interface {
	Me(ctx context.Context) (*api.User, error)
	Logout(ctx context.Context) error
}

// Navigator performs a hard navigation, discarding in-memory state.
type Navigator interface {
	Hard(path string)
}

// State is the process-wide session. It is safe for concurrent use.
type State struct {
	mu        sync.RWMutex
	user      *api.User
	token     string
	isLoading bool
	// revoked is the last discarded token; reloads from disk never restore it.
	revoked string

	store *Store
	api   AuthAPI
	nav   Navigator
}

// New restores any persisted token. The state starts loading until the
// first CheckAuth completes.
func New(store *Store, authAPI AuthAPI, nav Navigator) *State {
	s := &State{store: store, api: authAPI, nav: nav, isLoading: true}
	token, err := store.Load()
	if err != nil {
		log.Printf("⚠️  Failed to restore session: %v", err)
	}
	s.token = token
	return s
}

// SetNavigator wires the navigator after construction; the router and the
// session depend on each other.
func (s *State) SetNavigator(nav Navigator) {
	s.mu.Lock()
	s.nav = nav
	s.mu.Unlock()
}

// Token returns the current bearer token. It satisfies api.TokenSource.
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var u *api.User
	if s.user != nil {
		cp := *s.user
		u = &cp
	}
	return Snapshot{User: u, Token: s.token, IsLoading: s.isLoading}
}

// SetToken persists token and makes it current. The user is not verified
// until the next CheckAuth.
func (s *State) SetToken(token string) error {
	if err := s.store.Save(token); err != nil {
		return err
	}
	s.mu.Lock()
	if s.token != token {
		s.user = nil
	}
	s.token = token
	s.revoked = ""
	s.mu.Unlock()
	return nil
}

// CheckAuth verifies the current token with exactly one profile request.
// Without a token no request is made. Any failure discards the token from
// memory and storage.
func (s *State) CheckAuth(ctx context.Context) (*api.User, error) {
	s.mu.Lock()
	s.isLoading = true
	token := s.token
	s.mu.Unlock()

	if token == "" {
		s.mu.Lock()
		s.user = nil
		s.isLoading = false
		s.mu.Unlock()
		return nil, nil
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		log.Printf("🔒 Auth check failed (token_present=true): %v", err)
		s.discard()
		return nil, err
	}

	s.mu.Lock()
	// A concurrent SetToken or Reset wins over a stale verification.
	if s.token == token {
		s.user = user
	}
	s.isLoading = false
	s.mu.Unlock()
	return user, nil
}

// Logout ends the session. The backend call is best-effort; local state is
// cleared regardless and the client hard-navigates to the landing page.
func (s *State) Logout(ctx context.Context) {
	if s.Token() != "" {
		if err := s.api.Logout(ctx); err != nil {
			log.Printf("⚠️  Logout request failed: %v", err)
		}
	}
	s.discard()

	s.mu.RLock()
	nav := s.nav
	s.mu.RUnlock()
	if nav != nil {
		nav.Hard("/")
	}
}

// Invalidate drops the token after the backend rejected it. It is used as
// the api client's unauthorized handler.
func (s *State) Invalidate() {
	log.Printf("🔒 Token rejected by server, clearing session")
	s.discard()
}

// Reset clears only the in-memory state and reloads the token from disk.
// Hard navigation calls this.
func (s *State) Reset() {
	token, err := s.store.Load()
	if err != nil {
		log.Printf("⚠️  Failed to reload session: %v", err)
	}
	s.mu.Lock()
	if token != "" && token == s.revoked {
		token = ""
	}
	s.user = nil
	s.token = token
	s.isLoading = true
	s.mu.Unlock()
}

// Reload picks up a token written by another process. A changed or removed
// token clears the verified user.
func (s *State) Reload() {
	token, err := s.store.Load()
	if err != nil {
		log.Printf("⚠️  Failed to reload session: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != "" && token == s.revoked {
		token = ""
	}
	if token == s.token {
		return
	}
	log.Printf("🔄 Session file changed (token_present=%t)", token != "")
	s.token = token
	s.user = nil
}

// discard drops the token from memory and storage. If the file cannot be
// removed it is overwritten with an empty token instead.
func (s *State) discard() {
	if err := s.store.Clear(); err != nil {
		log.Printf("⚠️  %v", err)
		if err := s.store.Save(""); err != nil {
			log.Printf("⚠️  Failed to blank session file: %v", err)
		}
	}
	s.mu.Lock()
	if s.token != "" {
		s.revoked = s.token
	}
	s.token = ""
	s.user = nil
	s.isLoading = false
	s.mu.Unlock()
}
