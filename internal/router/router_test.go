package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/issuefix/internal/access"
	"github.com/ChamsBouzaiene/issuefix/internal/api"
	"github.com/ChamsBouzaiene/issuefix/internal/session"
)

type fakeSession struct {
	snap       session.Snapshot
	verified   *api.User
	checkCalls int
}

func (f *fakeSession) Snapshot() session.Snapshot { return f.snap }

func (f *fakeSession) CheckAuth(ctx context.Context) (*api.User, error) {
	f.checkCalls++
	f.snap.IsLoading = false
	f.snap.User = f.verified
	if f.verified == nil {
		return nil, errors.New("rejected")
	}
	return f.verified, nil
}

type fakeGuard struct {
	decision access.Decision
	calls    int
}

func (g *fakeGuard) Guard(ctx context.Context) access.Decision {
	g.calls++
	return g.decision
}

func newTestRouter(sess Session, guard Guard) (*Router, *Navigator, *[]string) {
	nav := NewNavigator(PathHome)
	r := New(sess, guard, nav)
	var rendered []string
	r.Handle(PathHome, Public, func(ctx context.Context, p Params) error {
		rendered = append(rendered, PathHome)
		return nil
	})
	r.Handle(access.PathWaitlist, Authenticated, func(ctx context.Context, p Params) error {
		rendered = append(rendered, access.PathWaitlist)
		return nil
	})
	r.Handle(PathIssue, Protected, func(ctx context.Context, p Params) error {
		rendered = append(rendered, "issue:"+p["id"])
		return nil
	})
	r.Handle(PathDashboard, Protected, func(ctx context.Context, p Params) error {
		panic("nil map")
	})
	return r, nav, &rendered
}

func TestMatch(t *testing.T) {
	r, _, _ := newTestRouter(&fakeSession{}, &fakeGuard{})

	rt, params, ok := r.Match("/issues/42?tab=diff")
	require.True(t, ok)
	assert.Equal(t, PathIssue, rt.Pattern)
	assert.Equal(t, "42", params["id"])
	assert.Equal(t, "diff", params["tab"])

	_, params, ok = r.Match("/issues/a%2Fb?id=spoof")
	require.True(t, ok)
	assert.Equal(t, "a/b", params["id"])

	_, _, ok = r.Match("/issues/42/extra")
	assert.False(t, ok)

	rt, _, ok = r.Match("/")
	require.True(t, ok)
	assert.Equal(t, PathHome, rt.Pattern)
}

func TestProtect(t *testing.T) {
	ctx := context.Background()
	user := &api.User{ID: "1"}
	allow := &fakeGuard{decision: access.Decision{Path: access.PathDashboard}}
	deny := &fakeGuard{decision: access.Decision{Path: access.PathWaitlistShare}}

	out := Protect(ctx, session.Snapshot{IsLoading: true}, allow)
	assert.Equal(t, OutcomeLoading, out.Kind)
	assert.Equal(t, 0, allow.calls)

	out = Protect(ctx, session.Snapshot{}, allow)
	assert.Equal(t, OutcomeRedirect, out.Kind)
	assert.Equal(t, PathHome, out.Path)
	assert.True(t, out.Hard)

	out = Protect(ctx, session.Snapshot{User: user}, deny)
	assert.Equal(t, OutcomeRedirect, out.Kind)
	assert.Equal(t, access.PathWaitlistShare, out.Path)
	assert.False(t, out.Hard)

	out = Protect(ctx, session.Snapshot{User: user}, allow)
	assert.Equal(t, OutcomeRender, out.Kind)
}

func TestDispatch_UnauthenticatedIsHardRedirected(t *testing.T) {
	sess := &fakeSession{snap: session.Snapshot{IsLoading: true}}
	guard := &fakeGuard{decision: access.Decision{Path: access.PathDashboard}}
	r, nav, rendered := newTestRouter(sess, guard)
	var resets int
	nav.OnHard(func() { resets++ })

	err := r.Dispatch(context.Background(), "/issues/7")
	var re *RedirectError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, PathHome, re.To)
	assert.True(t, re.Hard)
	assert.Equal(t, 1, resets)
	assert.Equal(t, 1, sess.checkCalls)
	assert.Equal(t, 0, guard.calls, "access must not be queried before auth resolves")
	assert.Empty(t, *rendered)
	assert.Equal(t, PathHome, nav.Current())
}

func TestDispatch_GuardFailureRoutesToWaitlist(t *testing.T) {
	sess := &fakeSession{snap: session.Snapshot{User: &api.User{ID: "1"}}}
	guard := &fakeGuard{decision: access.Decision{Path: access.PathWaitlist, Err: errors.New("timeout")}}
	r, nav, rendered := newTestRouter(sess, guard)

	err := r.Dispatch(context.Background(), "/issues/7")
	var re *RedirectError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, access.PathWaitlist, re.To)
	assert.Equal(t, access.PathWaitlist, nav.Current())
	assert.Empty(t, *rendered)
}

func TestDispatch_RendersWithAccess(t *testing.T) {
	sess := &fakeSession{snap: session.Snapshot{User: &api.User{ID: "1"}}}
	guard := &fakeGuard{decision: access.Decision{Path: access.PathDashboard}}
	r, nav, rendered := newTestRouter(sess, guard)

	require.NoError(t, r.Dispatch(context.Background(), "/issues/7"))
	assert.Equal(t, []string{"issue:7"}, *rendered)
	assert.Equal(t, "/issues/7", nav.Current())
	assert.Equal(t, 0, sess.checkCalls)
}

func TestDispatch_AuthenticatedSkipsGuard(t *testing.T) {
	sess := &fakeSession{snap: session.Snapshot{User: &api.User{ID: "1"}}}
	guard := &fakeGuard{}
	r, _, rendered := newTestRouter(sess, guard)

	require.NoError(t, r.Dispatch(context.Background(), access.PathWaitlist))
	assert.Equal(t, []string{access.PathWaitlist}, *rendered)
	assert.Equal(t, 0, guard.calls)
}

func TestDispatch_RecoversPanics(t *testing.T) {
	sess := &fakeSession{snap: session.Snapshot{User: &api.User{ID: "1"}}}
	guard := &fakeGuard{decision: access.Decision{Path: access.PathDashboard}}
	r, _, _ := newTestRouter(sess, guard)

	err := r.Dispatch(context.Background(), PathDashboard)
	var pe *PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PathDashboard, pe.Path)
}

func TestDispatch_NotFound(t *testing.T) {
	r, _, _ := newTestRouter(&fakeSession{}, &fakeGuard{})
	assert.ErrorIs(t, r.Dispatch(context.Background(), "/nowhere"), ErrNotFound)
}

func TestRequire_PublicIsFree(t *testing.T) {
	sess := &fakeSession{snap: session.Snapshot{IsLoading: true}}
	r, _, _ := newTestRouter(sess, &fakeGuard{})
	require.NoError(t, r.Require(context.Background(), "/pricing", Public))
	assert.Equal(t, 0, sess.checkCalls)
}
