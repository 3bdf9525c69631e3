package session

import (
	"time"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
)

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	User      *api.User `json:"user,omitempty"`
	Token     string    `json:"-"`
	IsLoading bool      `json:"isLoading"`
}

// Authenticated reports whether a verified user is present.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// record is the on-disk shape of session.json.
type record struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}
