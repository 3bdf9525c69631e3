package access

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
)

// ErrNoAccess is returned when a protected screen is requested without
// dashboard access.
var ErrNoAccess = errors.New("dashboard access not granted")

// ActionError is returned when an action is attempted at a status that does
// not offer it.
type ActionError struct {
	Action Action
	Status Status
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("cannot %s while waitlist status is %s", e.Action, e.Status)
}

// StatusAPI is the slice of the backend the gate needs.
type StatusAPI interface {
	WaitlistStatus(ctx context.Context) (*api.WaitlistStatus, error)
	SubmitWaitlist(ctx context.Context, app api.WaitlistApplication) (*api.ActionResult, error)
	UpdateSharing(ctx context.Context, platform string) (*api.ActionResult, error)
	VerifyCode(ctx context.Context, code string) (*api.ActionResult, error)
}

// Gate runs the query-then-route sequence.
type Gate struct {
	api StatusAPI
}

// NewGate creates a gate backed by a.
func NewGate(a StatusAPI) *Gate {
	return &Gate{api: a}
}

// Check queries and parses the current status.
func (g *Gate) Check(ctx context.Context) (State, error) {
	raw, err := g.api.WaitlistStatus(ctx)
	if err != nil {
		return State{}, err
	}
	return FromAPI(raw)
}

// Decision is the outcome of a guard run.
type Decision struct {
	Path  string
	State State
	Err   error
}

// Allowed reports whether the protected content may render.
func (d Decision) Allowed() bool {
	return d.Err == nil && d.Path == PathDashboard
}

// Guard queries the status and routes. Any failure, including a panic in
// the status check, routes to the waitlist entry point.
func (g *Gate) Guard(ctx context.Context) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Access check panicked: %v", r)
			d = Decision{Path: PathWaitlist, Err: fmt.Errorf("access check panicked: %v", r)}
		}
	}()

	st, err := g.Check(ctx)
	if err != nil {
		log.Printf("⚠️  Access check failed, routing to %s: %v", PathWaitlist, err)
		return Decision{Path: PathWaitlist, Err: err}
	}
	return Decision{Path: Route(st), State: st}
}

// Submit sends a waitlist application and re-queries the status.
func (g *Gate) Submit(ctx context.Context, cur State, app api.WaitlistApplication) (State, error) {
	if Available(cur) != ActionSubmit {
		return cur, &ActionError{Action: ActionSubmit, Status: cur.Status}
	}
	if _, err := g.api.SubmitWaitlist(ctx, app); err != nil {
		return cur, err
	}
	return g.requery(ctx, cur)
}

// Share marks platform as shared and re-queries. A platform already shared
// is a no-op unless force is set; resending is safe.
func (g *Gate) Share(ctx context.Context, cur State, platform Platform, force bool) (State, error) {
	if Available(cur) != ActionShare {
		return cur, &ActionError{Action: ActionShare, Status: cur.Status}
	}
	if cur.Shared(platform) && !force {
		return cur, nil
	}
	if _, err := g.api.UpdateSharing(ctx, string(platform)); err != nil {
		return cur, err
	}
	return g.requery(ctx, cur)
}

// Verify exchanges an access code and re-queries.
func (g *Gate) Verify(ctx context.Context, cur State, code string) (State, error) {
	if Available(cur) != ActionVerify {
		return cur, &ActionError{Action: ActionVerify, Status: cur.Status}
	}
	if _, err := g.api.VerifyCode(ctx, code); err != nil {
		return cur, err
	}
	return g.requery(ctx, cur)
}

func (g *Gate) requery(ctx context.Context, prev State) (State, error) {
	next, err := g.Check(ctx)
	if err != nil {
		return prev, fmt.Errorf("action accepted but status re-check failed: %w", err)
	}
	if !next.HasAccess && !CanTransition(prev.Status, next.Status) {
		log.Printf("⚠️  Unexpected waitlist transition %s -> %s", prev.Status, next.Status)
	}
	return next, nil
}
