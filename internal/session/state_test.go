package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
)

type fakeAPI struct {
	user      *api.User
	meErr     error
	logoutErr error
	meCalls   int
	outCalls  int
}

func (f *fakeAPI) Me(ctx context.Context) (*api.User, error) {
	f.meCalls++
	return f.user, f.meErr
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.outCalls++
	return f.logoutErr
}

type recordingNav struct {
	paths []string
}

func (n *recordingNav) Hard(path string) {
	n.paths = append(n.paths, path)
}

func TestCheckAuth_NoTokenMakesNoRequest(t *testing.T) {
	fake := &fakeAPI{}
	s := New(NewStore(t.TempDir()), fake, nil)

	if !s.Snapshot().IsLoading {
		t.Error("expected state to start loading")
	}
	user, err := s.CheckAuth(context.Background())
	if err != nil || user != nil {
		t.Fatalf("expected no user and no error, got %v, %v", user, err)
	}
	if fake.meCalls != 0 {
		t.Errorf("expected no network call, got %d", fake.meCalls)
	}
	if s.Snapshot().IsLoading {
		t.Error("loading should be false after CheckAuth")
	}
}

func TestCheckAuth_Success(t *testing.T) {
	fake := &fakeAPI{user: &api.User{ID: "1", Username: "octo"}}
	s := New(NewStore(t.TempDir()), fake, nil)
	if err := s.SetToken("good"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}

	user, err := s.CheckAuth(context.Background())
	if err != nil {
		t.Fatalf("CheckAuth failed: %v", err)
	}
	if user.Username != "octo" || !s.Snapshot().Authenticated() {
		t.Errorf("expected octo to be authenticated, got %+v", s.Snapshot())
	}
	if fake.meCalls != 1 {
		t.Errorf("expected exactly one verification call, got %d", fake.meCalls)
	}
}

func TestCheckAuth_RejectedTokenIsRemovedFromStorage(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	fake := &fakeAPI{meErr: &api.Error{Status: 401, Kind: api.KindAuthentication, Message: "expired"}}
	s := New(store, fake, nil)
	if err := s.SetToken("revoked"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}

	if _, err := s.CheckAuth(context.Background()); err == nil {
		t.Fatal("expected CheckAuth to fail")
	}

	snap := s.Snapshot()
	if snap.User != nil || snap.Token != "" {
		t.Errorf("expected logged-out state, got %+v", snap)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Errorf("expected session file to be removed, stat err = %v", err)
	}
	if tok, _ := NewStore(dir).Load(); tok != "" {
		t.Errorf("stale token survived restart: %q", tok)
	}
	if fake.meCalls != 1 {
		t.Errorf("verification must not be retried, got %d calls", fake.meCalls)
	}
}

func TestCheckAuth_NetworkErrorFailsClosed(t *testing.T) {
	fake := &fakeAPI{meErr: errors.New("connection refused")}
	s := New(NewStore(t.TempDir()), fake, nil)
	s.SetToken("maybe")

	s.CheckAuth(context.Background())
	if s.Token() != "" {
		t.Error("token must be discarded on any verification failure")
	}
}

func TestSetToken_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	s := New(NewStore(dir), &fakeAPI{}, nil)
	if err := s.SetToken("persisted"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	if s.Token() != "persisted" {
		t.Errorf("in-memory token not updated synchronously")
	}

	info, err := os.Stat(NewStore(dir).Path())
	if err != nil {
		t.Fatalf("session file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}

	restored := New(NewStore(dir), &fakeAPI{}, nil)
	if restored.Token() != "persisted" {
		t.Errorf("expected restored token, got %q", restored.Token())
	}
}

func TestLogout_ClearsEvenWhenBackendFails(t *testing.T) {
	nav := &recordingNav{}
	fake := &fakeAPI{user: &api.User{ID: "1"}, logoutErr: errors.New("boom")}
	s := New(NewStore(t.TempDir()), fake, nav)
	s.SetToken("tok")
	s.CheckAuth(context.Background())

	s.Logout(context.Background())

	if fake.outCalls != 1 {
		t.Errorf("expected one logout request, got %d", fake.outCalls)
	}
	snap := s.Snapshot()
	if snap.User != nil || snap.Token != "" {
		t.Errorf("expected cleared state, got %+v", snap)
	}
	if len(nav.paths) != 1 || nav.paths[0] != "/" {
		t.Errorf("expected hard navigation to /, got %v", nav.paths)
	}
}

// resettingNav behaves like the app's navigator: hard navigation resets the
// session from disk.
type resettingNav struct {
	s *State
}

func (n *resettingNav) Hard(string) {
	n.s.Reset()
}

func TestLogout_FailedRemoveDoesNotRestoreToken(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	store.remove = func(string) error { return errors.New("permission denied") }
	nav := &resettingNav{}
	s := New(store, &fakeAPI{user: &api.User{ID: "1"}}, nav)
	nav.s = s
	if err := s.SetToken("tok"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}

	s.Logout(context.Background())

	if s.Token() != "" {
		t.Errorf("expected no token after logout, got %q", s.Token())
	}
	if tok, err := NewStore(dir).Load(); err != nil || tok != "" {
		t.Errorf("expected blanked session file, got %q (err %v)", tok, err)
	}
}

func TestReset_KeepsDiscardedTokenEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	store.remove = func(string) error { return errors.New("permission denied") }
	s := New(store, &fakeAPI{}, nil)
	s.SetToken("tok")
	s.Invalidate()

	// The blanking write did not land either: the old token is still on disk.
	if err := NewStore(dir).Save("tok"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.Reset()
	if s.Token() != "" {
		t.Errorf("Reset restored a discarded token")
	}
	s.Reload()
	if s.Token() != "" {
		t.Errorf("Reload restored a discarded token")
	}

	// A fresh login is not blocked.
	if err := NewStore(dir).Save("fresh"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.Reload()
	if s.Token() != "fresh" {
		t.Errorf("expected new token, got %q", s.Token())
	}
}

func TestReload_PicksUpExternalChanges(t *testing.T) {
	dir := t.TempDir()
	s := New(NewStore(dir), &fakeAPI{user: &api.User{ID: "1"}}, nil)
	s.SetToken("a")
	s.CheckAuth(context.Background())

	if err := NewStore(dir).Save("b"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.Reload()
	if s.Token() != "b" || s.Snapshot().User != nil {
		t.Errorf("expected new unverified token, got %+v", s.Snapshot())
	}

	NewStore(dir).Clear()
	s.Reload()
	if s.Token() != "" {
		t.Errorf("expected token cleared after external removal")
	}
}

func TestWatcher_ReloadsOnRemoval(t *testing.T) {
	dir := t.TempDir()
	s := New(NewStore(dir), &fakeAPI{}, nil)
	s.SetToken("tok")

	w, err := NewWatcher(s)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.Remove(NewStore(dir).Path()); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.Token() == "" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("watcher did not clear the token after the session file was removed")
}
