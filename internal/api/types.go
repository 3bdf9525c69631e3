package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ChamsBouzaiene/issuefix/internal/diff"
	"github.com/ChamsBouzaiene/issuefix/internal/stats"
)

// ID accepts both JSON strings and numbers; the backend is not consistent.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// User is the profile returned by GET /api/auth/me.
type User struct {
	ID        ID     `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
}

// WaitlistStatus is the raw GET /api/waitlist/status payload.
type WaitlistStatus struct {
	HasAccess        bool   `json:"hasAccess"`
	WaitlistStatus   string `json:"waitlistStatus"`
	HasWaitlistEntry bool   `json:"hasWaitlistEntry"`
	Email            string `json:"email"`
	SharedOnTwitter  bool   `json:"sharedOnTwitter,omitempty"`
	SharedOnLinkedIn bool   `json:"sharedOnLinkedIn,omitempty"`
}

// WaitlistApplication is the POST /api/waitlist/submit body.
type WaitlistApplication struct {
	Email          string `json:"email" validate:"required,email"`
	Name           string `json:"name" validate:"required,min=2,max=100"`
	GithubUsername string `json:"githubUsername" validate:"required,github_username"`
	Company        string `json:"company,omitempty" validate:"max=100"`
	UseCase        string `json:"useCase,omitempty" validate:"max=1000"`
}

// SharingUpdate is the POST /api/waitlist/update-sharing body.
type SharingUpdate struct {
	Platform string `json:"platform"`
}

// CodeVerification is the POST /api/waitlist/verify-code body.
type CodeVerification struct {
	Code string `json:"code"`
}

// ActionResult is the generic { success, ... } response of waitlist actions.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Issue is an imported GitHub issue.
type Issue struct {
	ID         ID        `json:"id"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Body       string    `json:"body,omitempty"`
	State      string    `json:"state"`
	Repository string    `json:"repository"`
	URL        string    `json:"htmlUrl,omitempty"`
	Labels     []string  `json:"labels,omitempty"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PullRequest is a PR opened for an approved solution.
type PullRequest struct {
	ID         ID        `json:"id"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	State      string    `json:"state"`
	URL        string    `json:"htmlUrl,omitempty"`
	IssueID    ID        `json:"issueId,omitempty"`
	Repository string    `json:"repository,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Validation is a generated solution waiting for human review.
type Validation struct {
	ID        ID        `json:"id"`
	IssueID   ID        `json:"issueId"`
	Status    string    `json:"status"`
	Solution  *Solution `json:"solution,omitempty"`
	Issue     *Issue    `json:"issue,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Solution is an AI-generated set of file changes for one issue.
type Solution struct {
	Analysis         string             `json:"analysis"`
	ProposedSolution string             `json:"proposedSolution"`
	Confidence       float64            `json:"confidence"`
	FilesChanged     []diff.FileChange  `json:"filesChanged"`
	AIModel          string             `json:"aiModel"`
	ChangeStats      *stats.ChangeStats `json:"changeStats,omitempty"`
}

// Credits is the metered usage balance returned alongside a generation.
type Credits struct {
	Remaining int `json:"remaining"`
	Used      int `json:"used,omitempty"`
	Total     int `json:"total,omitempty"`
}

// GenerateRequest is the POST /api/ai/generate-solution body.
type GenerateRequest struct {
	IssueID ID     `json:"issueId"`
	ModelID string `json:"modelId"`
}

// GenerateResponse is the POST /api/ai/generate-solution response.
type GenerateResponse struct {
	Solution Solution `json:"solution"`
	Credits  Credits  `json:"credits"`
}

// ValidationDecision is the POST /api/validations/:id/validate body.
type ValidationDecision struct {
	Status   string `json:"status"`
	Comments string `json:"comments,omitempty"`
}

// ValidationOutcome is the POST /api/validations/:id/validate response.
type ValidationOutcome struct {
	GithubURL string `json:"githubUrl,omitempty"`
}

// Plan is a purchasable credit plan.
type Plan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Credits  int    `json:"credits"`
	Price    int64  `json:"price"`
	Currency string `json:"currency,omitempty"`
}

// Order is a payment-gateway order created by the backend.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateOrderResponse is the POST /api/payments/create-order response.
type CreateOrderResponse struct {
	Order Order `json:"order"`
	Plan  Plan  `json:"plan"`
}

// PaymentVerification is the POST /api/payments/verify-payment body.
type PaymentVerification struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
	PlanID    string `json:"planId"`
}

// PaymentResult is the POST /api/payments/verify-payment response.
type PaymentResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Credits *Credits `json:"credits,omitempty"`
}
