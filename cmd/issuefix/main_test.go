package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/issuefix/internal/access"
	"github.com/ChamsBouzaiene/issuefix/internal/api"
	"github.com/ChamsBouzaiene/issuefix/internal/diff"
	"github.com/ChamsBouzaiene/issuefix/internal/forms"
	"github.com/ChamsBouzaiene/issuefix/internal/router"
)

type backend struct {
	status      atomic.Value // string body for /api/waitlist/status
	issueCalls  atomic.Int32
	logoutCalls atomic.Int32
}

func newBackend(t *testing.T, status string) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{}
	b.status.Store(status)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "invalid token"}`))
			return
		}
		w.Write([]byte(`{"id": 1, "username": "octo", "email": "octo@example.com"}`))
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.logoutCalls.Add(1)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/waitlist/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(b.status.Load().(string)))
	})
	mux.HandleFunc("/api/issues", func(w http.ResponseWriter, r *http.Request) {
		b.issueCalls.Add(1)
		w.Write([]byte(`[{"id": 9, "number": 7, "title": "Crash on empty config", "state": "open", "repository": "octo/tool", "createdAt": "2024-01-01T00:00:00Z"}]`))
	})
	mux.HandleFunc("/api/prs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/api/validations/pending", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"validations": []}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func newTestApp(t *testing.T, srv *httptest.Server, output string) (*app, *bytes.Buffer) {
	t.Helper()
	a, err := newApp(context.Background(), &rootOptions{
		configDir: t.TempDir(),
		apiURL:    srv.URL,
		output:    output,
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	var buf bytes.Buffer
	a.out = newPrinter(&buf, output)
	return a, &buf
}

const (
	statusAccess  = `{"hasAccess": true, "waitlistStatus": "approved", "hasWaitlistEntry": true}`
	statusSharing = `{"hasAccess": false, "waitlistStatus": "pending_sharing", "hasWaitlistEntry": true, "sharedOnTwitter": true}`
)

func TestLoginThenDashboard(t *testing.T) {
	b, srv := newBackend(t, statusAccess)
	a, out := newTestApp(t, srv, "table")
	ctx := context.Background()

	require.NoError(t, a.router.Dispatch(ctx, router.PathAuthCallback+"?token=tok"))
	assert.Contains(t, out.String(), "Logged in as octo")
	assert.Equal(t, "tok", a.sess.Token())
	assert.Equal(t, access.PathDashboard, a.nav.Current())

	out.Reset()
	a.out = newPrinter(out, "json")
	require.NoError(t, a.router.Dispatch(ctx, router.PathDashboard))
	assert.Contains(t, out.String(), `"number": 7`)

	// Second load is served from the query cache.
	require.NoError(t, a.router.Dispatch(ctx, router.PathIssues))
	assert.Equal(t, int32(1), b.issueCalls.Load())
}

func TestDashboardRedirectsToWaitlistStep(t *testing.T) {
	_, srv := newBackend(t, statusSharing)
	a, _ := newTestApp(t, srv, "table")
	ctx := context.Background()
	require.NoError(t, a.sess.SetToken("tok"))

	err := a.router.Dispatch(ctx, router.PathDashboard)
	var re *router.RedirectError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, access.PathWaitlistShare, re.To)
	assert.False(t, re.Hard)
	assert.Equal(t, access.PathWaitlistShare, a.nav.Current())
}

func TestBadTokenIsDiscarded(t *testing.T) {
	_, srv := newBackend(t, statusAccess)
	a, _ := newTestApp(t, srv, "table")
	require.NoError(t, a.sess.SetToken("stale"))

	err := a.router.Dispatch(context.Background(), router.PathIssues)
	var re *router.RedirectError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, router.PathHome, re.To)
	assert.True(t, re.Hard)
	assert.Empty(t, a.sess.Token())
	_, statErr := os.Stat(filepath.Join(a.cfgMgr.Dir(), "session.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLogoutClearsSession(t *testing.T) {
	b, srv := newBackend(t, statusAccess)
	a, _ := newTestApp(t, srv, "table")
	require.NoError(t, a.sess.SetToken("tok"))
	_, err := a.sess.CheckAuth(context.Background())
	require.NoError(t, err)

	a.sess.Logout(context.Background())
	assert.Equal(t, int32(1), b.logoutCalls.Load())
	assert.Empty(t, a.sess.Token())
	assert.Equal(t, router.PathHome, a.nav.Current())
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not logged in", &router.RedirectError{From: "/issues", To: router.PathHome, Hard: true}, "Not logged in"},
		{"waitlisted", &router.RedirectError{From: "/issues", To: access.PathWaitlistPending}, "/waitlist/pending"},
		{"form", forms.Errors{{Field: "email", Message: "must be a valid email"}}, "Invalid input"},
		{"action", &access.ActionError{Action: access.ActionVerify, Status: access.StatusPendingReview}, "cannot verify"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, userMessage(tt.err), tt.want)
		})
	}
}

func TestPrinterFormats(t *testing.T) {
	v := map[string]any{"planId": "pro", "credits": 50}

	var buf bytes.Buffer
	require.NoError(t, newPrinter(&buf, "yaml").emit(v, nil))
	assert.Contains(t, buf.String(), "planId: pro")

	buf.Reset()
	called := false
	require.NoError(t, newPrinter(&buf, "").emit(v, func() { called = true }))
	assert.True(t, called)

	buf.Reset()
	newPrinter(&buf, "table").table([]string{"A", "B"}, [][]string{{"1", "two"}})
	assert.Contains(t, buf.String(), "A  B")
}

func TestLocalChange(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.txt")
	newPath := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("a\nb\n"), 0o644))
	require.NoError(t, os.WriteFile(newPath, []byte("a\nc\n"), 0o644))

	fc, err := localChange(oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, diff.ActionModify, fc.Action)

	fc, err = localChange("-", newPath)
	require.NoError(t, err)
	assert.Equal(t, diff.ActionCreate, fc.Action)

	fc, err = localChange(oldPath, "-")
	require.NoError(t, err)
	assert.Equal(t, diff.ActionDelete, fc.Action)
	assert.Equal(t, oldPath, fc.Filename)

	_, err = localChange("-", "-")
	assert.Error(t, err)
}

func TestLoadSolutionRejectsUnknownAction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sol.json")
	require.NoError(t, saveSolution(path, savedSolution{
		IssueID: "9",
		Solution: api.Solution{FilesChanged: []diff.FileChange{
			{Filename: "main.go", Action: "rename"},
		}},
	}))

	_, err := loadSolution(path)
	assert.ErrorContains(t, err, "unknown file action")
}
