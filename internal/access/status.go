// Package access models the waitlist gate a user passes through before
// reaching the dashboard. The backend owns every transition; the client
// queries, routes, performs the single action available at the current
// status and re-queries.
package access

import (
	"fmt"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
)

// Status is the closed set of waitlist states.
type Status int

const (
	StatusNotSubmitted Status = iota
	StatusPendingSharing
	StatusPendingReview
	StatusApproved
	StatusRejected
	StatusExpired
)

var statusNames = [...]string{
	StatusNotSubmitted:   "not_submitted",
	StatusPendingSharing: "pending_sharing",
	StatusPendingReview:  "pending_review",
	StatusApproved:       "approved",
	StatusRejected:       "rejected",
	StatusExpired:        "expired",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnknownStatusError is returned for a status string the client does not know.
type UnknownStatusError struct {
	Value string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown waitlist status %q", e.Value)
}

// ParseStatus maps the backend's status string onto Status. An empty string
// means no entry exists yet.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return StatusNotSubmitted, nil
	}
	for i, name := range statusNames {
		if name == s {
			return Status(i), nil
		}
	}
	return 0, &UnknownStatusError{Value: s}
}

// Platform is a social network the applicant must share on.
type Platform string

const (
	PlatformTwitter  Platform = "twitter"
	PlatformLinkedIn Platform = "linkedin"
)

// ParsePlatform accepts the platform names the CLI exposes.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "twitter", "x":
		return PlatformTwitter, nil
	case "linkedin":
		return PlatformLinkedIn, nil
	}
	return "", fmt.Errorf("unknown platform %q (want twitter or linkedin)", s)
}

// State is a parsed status response.
type State struct {
	Status           Status `json:"status"`
	HasAccess        bool   `json:"hasAccess"`
	HasEntry         bool   `json:"hasWaitlistEntry"`
	Email            string `json:"email,omitempty"`
	SharedOnTwitter  bool   `json:"sharedOnTwitter"`
	SharedOnLinkedIn bool   `json:"sharedOnLinkedIn"`
}

// Shared reports whether platform is already marked shared.
func (s State) Shared(p Platform) bool {
	switch p {
	case PlatformTwitter:
		return s.SharedOnTwitter
	case PlatformLinkedIn:
		return s.SharedOnLinkedIn
	}
	return false
}

// FromAPI parses a raw status payload.
func FromAPI(raw *api.WaitlistStatus) (State, error) {
	if raw == nil {
		return State{}, fmt.Errorf("%w: empty waitlist status", api.ErrMalformedResponse)
	}
	st, err := ParseStatus(raw.WaitlistStatus)
	if err != nil {
		return State{}, err
	}
	return State{
		Status:           st,
		HasAccess:        raw.HasAccess,
		HasEntry:         raw.HasWaitlistEntry,
		Email:            raw.Email,
		SharedOnTwitter:  raw.SharedOnTwitter,
		SharedOnLinkedIn: raw.SharedOnLinkedIn,
	}, nil
}
