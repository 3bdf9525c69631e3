// Package router maps screen paths to handlers and gates protected screens
// behind the session and the access guard.
package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"runtime/debug"
	"strings"

	"github.com/ChamsBouzaiene/issuefix/internal/access"
	"github.com/ChamsBouzaiene/issuefix/internal/api"
	"github.com/ChamsBouzaiene/issuefix/internal/session"
)

// Screen paths.
const (
	PathHome         = "/"
	PathDashboard    = access.PathDashboard
	PathIssues       = "/issues"
	PathIssue        = "/issues/:id"
	PathPRs          = "/prs"
	PathValidations  = "/validations"
	PathPricing      = "/pricing"
	PathAuthCallback = "/auth/callback"
)

// Level is how much a route requires of the session.
type Level int

const (
	Public Level = iota
	Authenticated
	Protected // authenticated and past the access gate
)

// Params holds path parameters such as :id.
type Params map[string]string

// Handler renders a screen.
type Handler func(ctx context.Context, params Params) error

// Route binds a pattern to a handler.
type Route struct {
	Pattern string
	Level   Level
	Handler Handler
}

// Session is what the router reads from the session state.
type Session interface {
	Snapshot() session.Snapshot
	CheckAuth(ctx context.Context) (*api.User, error)
}

// Guard runs the access query-then-route sequence.
type Guard interface {
	Guard(ctx context.Context) access.Decision
}

var (
	// ErrNotFound is returned for a path with no route.
	ErrNotFound = errors.New("no such screen")
	// ErrLoading is returned while the session is still being verified.
	ErrLoading = errors.New("session is loading")
)

// RedirectError reports that a gated route sent the user elsewhere.
type RedirectError struct {
	From string
	To   string
	Hard bool
	Err  error
}

func (e *RedirectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("redirected from %s to %s: %v", e.From, e.To, e.Err)
	}
	return fmt.Sprintf("redirected from %s to %s", e.From, e.To)
}

func (e *RedirectError) Unwrap() error { return e.Err }

// PanicError wraps a panic recovered from a handler.
type PanicError struct {
	Path  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("screen %s failed: %v", e.Path, e.Value)
}

// Router dispatches paths to routes.
type Router struct {
	routes  []Route
	session Session
	guard   Guard
	nav     *Navigator
}

// New creates a router. nav receives every navigation the router performs.
func New(sess Session, guard Guard, nav *Navigator) *Router {
	return &Router{session: sess, guard: guard, nav: nav}
}

// Handle registers a route.
func (r *Router) Handle(pattern string, level Level, h Handler) {
	r.routes = append(r.routes, Route{Pattern: pattern, Level: level, Handler: h})
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}

// Match finds the route for path.
func (r *Router) Match(path string) (Route, Params, bool) {
	for _, rt := range r.routes {
		if params, ok := match(rt.Pattern, path); ok {
			return rt, params, true
		}
	}
	return Route{}, nil, false
}

// Dispatch navigates to path and renders it if the gates allow. Handler
// panics are recovered and returned as *PanicError.
func (r *Router) Dispatch(ctx context.Context, path string) (err error) {
	rt, params, ok := r.Match(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err := r.Require(ctx, path, rt.Level); err != nil {
		return err
	}

	r.nav.Replace(path)

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ Panic rendering %s: %v\n%s", path, rec, debug.Stack())
			err = &PanicError{Path: path, Value: rec}
		}
	}()
	return rt.Handler(ctx, params)
}

// Require runs the gates for level as if path were being entered and
// performs any redirect they decide on. Commands that act rather than
// render use it directly.
func (r *Router) Require(ctx context.Context, path string, level Level) error {
	if level == Public {
		return nil
	}
	out := r.evaluate(ctx, level)
	switch out.Kind {
	case OutcomeLoading:
		return ErrLoading
	case OutcomeRedirect:
		if out.Hard {
			r.nav.Hard(out.Path)
		} else {
			r.nav.Replace(out.Path)
		}
		return &RedirectError{From: path, To: out.Path, Hard: out.Hard, Err: out.Access.Err}
	}
	return nil
}

// evaluate awaits the pending auth check so the access query never fires
// before token verification resolves.
func (r *Router) evaluate(ctx context.Context, level Level) Outcome {
	if r.session.Snapshot().IsLoading {
		if _, err := r.session.CheckAuth(ctx); err != nil {
			log.Printf("🔒 Session verification failed: %v", err)
		}
	}
	snap := r.session.Snapshot()
	if level == Authenticated {
		return Protect(ctx, snap, nil)
	}
	return Protect(ctx, snap, r.guard)
}

// match compares pattern segments with path. Query values are added to the
// params; path parameters win on a name clash.
func match(pattern, path string) (Params, bool) {
	params := Params{}
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		if q, err := url.ParseQuery(path[i+1:]); err == nil {
			for k, v := range q {
				if len(v) > 0 {
					params[k] = v[0]
				}
			}
		}
		path = path[:i]
	}
	pp := splitPath(pattern)
	sp := splitPath(path)
	if len(pp) != len(sp) {
		return nil, false
	}
	for i, seg := range pp {
		if strings.HasPrefix(seg, ":") {
			if sp[i] == "" {
				return nil, false
			}
			v, err := url.PathUnescape(sp[i])
			if err != nil {
				return nil, false
			}
			params[seg[1:]] = v
			continue
		}
		if seg != sp[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
