package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Me verifies the current token. It is never retried: a failed verification
// must surface immediately so the session can be reset.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	if u.ID == "" && u.Username == "" {
		return nil, &Error{Method: http.MethodGet, Path: "/api/auth/me", Status: http.StatusOK, Err: fmt.Errorf("%w: empty profile", ErrMalformedResponse), Kind: KindUnknown}
	}
	return &u, nil
}

// Logout tells the backend to end the session. Callers treat failure as
// best-effort.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// WaitlistStatus fetches the server-owned access status. The token is optional.
func (c *Client) WaitlistStatus(ctx context.Context) (*WaitlistStatus, error) {
	var s WaitlistStatus
	if err := c.do(ctx, http.MethodGet, "/api/waitlist/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SubmitWaitlist submits a waitlist application.
func (c *Client) SubmitWaitlist(ctx context.Context, app WaitlistApplication) (*ActionResult, error) {
	return c.action(ctx, "/api/waitlist/submit", app)
}

// UpdateSharing marks a platform as shared. Resending for an already shared
// platform is safe.
func (c *Client) UpdateSharing(ctx context.Context, platform string) (*ActionResult, error) {
	return c.action(ctx, "/api/waitlist/update-sharing", SharingUpdate{Platform: platform})
}

// VerifyCode exchanges an access code for dashboard access.
func (c *Client) VerifyCode(ctx context.Context, code string) (*ActionResult, error) {
	return c.action(ctx, "/api/waitlist/verify-code", CodeVerification{Code: code})
}

func (c *Client) action(ctx context.Context, path string, body any) (*ActionResult, error) {
	var res ActionResult
	if err := c.do(ctx, http.MethodPost, path, body, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = res.Message
		}
		if msg == "" {
			msg = "request was not accepted"
		}
		return &res, &Error{Method: http.MethodPost, Path: path, Status: http.StatusOK, Message: msg, Kind: KindValidation}
	}
	return &res, nil
}

// Issues lists imported issues.
func (c *Client) Issues(ctx context.Context) ([]Issue, error) {
	return getList[Issue](ctx, c, "/api/issues", "issues")
}

// Issue fetches one issue.
func (c *Client) Issue(ctx context.Context, id ID) (*Issue, error) {
	var is Issue
	if err := c.get(ctx, "/api/issues/"+url.PathEscape(string(id)), &is); err != nil {
		return nil, err
	}
	return &is, nil
}

// PullRequests lists PRs opened for approved solutions.
func (c *Client) PullRequests(ctx context.Context) ([]PullRequest, error) {
	return getList[PullRequest](ctx, c, "/api/prs", "prs")
}

// PendingValidations lists solutions awaiting review.
func (c *Client) PendingValidations(ctx context.Context) ([]Validation, error) {
	return getList[Validation](ctx, c, "/api/validations/pending", "validations")
}

// GenerateSolution asks the backend for an AI fix. The response is checked
// against the solution schema before it reaches the diff engine.
func (c *Client) GenerateSolution(ctx context.Context, issueID ID, modelID string) (*GenerateResponse, error) {
	var raw rawJSON
	path := "/api/ai/generate-solution"
	if err := c.do(ctx, http.MethodPost, path, GenerateRequest{IssueID: issueID, ModelID: modelID}, &raw); err != nil {
		return nil, err
	}
	var res GenerateResponse
	if err := decodeValidated(raw, SolutionResponseSchema, &res); err != nil {
		return nil, &Error{Method: http.MethodPost, Path: path, Status: http.StatusOK, Err: err, Kind: KindUnknown}
	}
	return &res, nil
}

// Validate approves or rejects a generated solution. Approval returns the
// URL of the opened pull request.
func (c *Client) Validate(ctx context.Context, validationID ID, decision ValidationDecision) (*ValidationOutcome, error) {
	var out ValidationOutcome
	path := "/api/validations/" + url.PathEscape(string(validationID)) + "/validate"
	if err := c.do(ctx, http.MethodPost, path, decision, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder creates a payment-gateway order for a plan.
func (c *Client) CreateOrder(ctx context.Context, planID string) (*CreateOrderResponse, error) {
	var out CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/payments/create-order", map[string]string{"planId": planID}, &out); err != nil {
		return nil, err
	}
	if out.Order.ID == "" {
		return nil, &Error{Method: http.MethodPost, Path: "/api/payments/create-order", Status: http.StatusOK, Err: fmt.Errorf("%w: order without id", ErrMalformedResponse), Kind: KindUnknown}
	}
	return &out, nil
}

// VerifyPayment confirms a completed gateway payment.
func (c *Client) VerifyPayment(ctx context.Context, v PaymentVerification) (*PaymentResult, error) {
	var out PaymentResult
	path := "/api/payments/verify-payment"
	if err := c.do(ctx, http.MethodPost, path, v, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "payment could not be verified"
		}
		return &out, &Error{Method: http.MethodPost, Path: path, Status: http.StatusOK, Message: msg, Kind: KindValidation}
	}
	return &out, nil
}
