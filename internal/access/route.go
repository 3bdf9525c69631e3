package access

// Screen paths owned by the access gate.
const (
	PathWaitlist         = "/waitlist"
	PathWaitlistShare    = "/waitlist/share"
	PathWaitlistPending  = "/waitlist/pending"
	PathWaitlistVerify   = "/waitlist/verify"
	PathWaitlistRejected = "/waitlist/rejected"
	PathWaitlistExpired  = "/waitlist/expired"
	PathDashboard        = "/dashboard"
)

// Route is the single routing decision for the gate. Access wins over any
// status; otherwise every Status maps to exactly one screen.
func Route(s State) string {
	if s.HasAccess {
		return PathDashboard
	}
	switch s.Status {
	case StatusNotSubmitted:
		return PathWaitlist
	case StatusPendingSharing:
		return PathWaitlistShare
	case StatusPendingReview:
		return PathWaitlistPending
	case StatusApproved:
		return PathWaitlistVerify
	case StatusRejected:
		return PathWaitlistRejected
	case StatusExpired:
		return PathWaitlistExpired
	}
	return PathWaitlist
}

// Action is something the applicant can do.
type Action string

const (
	ActionSubmit Action = "submit"
	ActionShare  Action = "share"
	ActionVerify Action = "verify"
	ActionNone   Action = ""
)

// Available returns the one action open at s.
func Available(s State) Action {
	if s.HasAccess {
		return ActionNone
	}
	switch s.Status {
	case StatusNotSubmitted, StatusRejected, StatusExpired:
		return ActionSubmit
	case StatusPendingSharing:
		return ActionShare
	case StatusApproved:
		return ActionVerify
	case StatusPendingReview:
		return ActionNone
	}
	return ActionNone
}

var transitions = map[Status][]Status{
	StatusNotSubmitted:   {StatusPendingSharing},
	StatusPendingSharing: {StatusPendingReview},
	StatusPendingReview:  {StatusApproved, StatusRejected},
	StatusApproved:       {StatusExpired},
	StatusRejected:       {StatusPendingSharing},
	StatusExpired:        {StatusPendingSharing},
}

// CanTransition reports whether from → to is a documented edge. Staying in
// the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
