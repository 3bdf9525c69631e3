package router

import (
	"context"

	"github.com/ChamsBouzaiene/issuefix/internal/access"
	"github.com/ChamsBouzaiene/issuefix/internal/session"
)

// OutcomeKind is what the protected wrapper decides to show.
type OutcomeKind int

const (
	OutcomeLoading OutcomeKind = iota
	OutcomeRedirect
	OutcomeRender
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeLoading:
		return "loading"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeRender:
		return "render"
	}
	return "unknown"
}

// Outcome is the protected wrapper's decision.
type Outcome struct {
	Kind   OutcomeKind
	Path   string
	Hard   bool
	Access access.Decision
}

// Protect decides what a protected screen shows for snap. While the session
// is loading it shows a loading affordance. Without a user it hard-redirects
// home. With a user it runs guard, if any, and redirects wherever the guard
// routes unless that is the dashboard.
func Protect(ctx context.Context, snap session.Snapshot, guard Guard) Outcome {
	if snap.IsLoading {
		return Outcome{Kind: OutcomeLoading}
	}
	if snap.User == nil {
		return Outcome{Kind: OutcomeRedirect, Path: PathHome, Hard: true}
	}
	if guard == nil {
		return Outcome{Kind: OutcomeRender}
	}
	d := guard.Guard(ctx)
	if !d.Allowed() {
		return Outcome{Kind: OutcomeRedirect, Path: d.Path, Access: d}
	}
	return Outcome{Kind: OutcomeRender, Access: d}
}
