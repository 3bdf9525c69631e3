package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/issuefix/internal/diff"
)

var fastRetry = RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithRetryPolicy(fastRetry)}, opts...)
	return New(srv.URL, opts...)
}

func TestMe_SendsBearerToken(t *testing.T) {
	var gotAuth, gotReqID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		w.Write([]byte(`{"id": 42, "username": "octo", "email": "o@example.com", "avatarUrl": "https://a"}`))
	}, WithTokenSource(func() string { return "tok" }))

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ID("42"), u.ID)
	assert.Equal(t, "octo", u.Username)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.NotEmpty(t, gotReqID)
}

func TestAnonymousRequestHasNoAuthorization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"hasAccess": false, "waitlistStatus": "not_submitted", "hasWaitlistEntry": false}`))
	})

	s, err := c.WaitlistStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not_submitted", s.WaitlistStatus)
}

func TestUnauthorizedInvokesHandler(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "token expired"}`))
	},
		WithTokenSource(func() string { return "stale" }),
		WithUnauthorizedHandler(func() { atomic.AddInt32(&calls, 1) }),
	)

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthentication(err))
	assert.Equal(t, "token expired", err.Error())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestErrorMessageFallsBackToMessageField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"message": "out of credits"}`))
	})

	_, err := c.GenerateSolution(context.Background(), "1", "gpt")
	require.Error(t, err)
	assert.True(t, IsUpgradeRequired(err))
	assert.Equal(t, "out of credits", Message(err))
}

func TestListDecodesArrayAndWrappedObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/issues":
			w.Write([]byte(`[{"id": "a", "number": 1, "title": "bug"}]`))
		case "/api/prs":
			w.Write([]byte(`{"prs": [{"id": 7, "number": 3, "title": "fix"}]}`))
		case "/api/validations/pending":
			w.Write([]byte(`{"validations": []}`))
		}
	})
	ctx := context.Background()

	issues, err := c.Issues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "bug", issues[0].Title)

	prs, err := c.PullRequests(ctx)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, ID("7"), prs[0].ID)

	vals, err := c.PendingValidations(ctx)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	})

	_, err := c.Issues(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestGetGivesUpAfterBoundedRetries(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Issues(context.Background())
	var exhausted *RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestValidationErrorsAreNotRetried(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "issue not found"}`))
	})

	_, err := c.Issue(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, KindValidation, ClassifyError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestMeIsNeverRetried(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithTokenSource(func() string { return "tok" }))

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGenerateSolution(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"solution": {
				"analysis": "off by one",
				"proposedSolution": "use <=",
				"confidence": 0.8,
				"aiModel": "model-x",
				"filesChanged": [
					{"filename": "main.go", "action": "modify", "originalContent": "a\nb", "content": "a\nc"}
				]
			},
			"credits": {"remaining": 9}
		}`))
	})

	res, err := c.GenerateSolution(context.Background(), "12", "model-x")
	require.NoError(t, err)
	require.Len(t, res.Solution.FilesChanged, 1)
	assert.Equal(t, diff.ActionModify, res.Solution.FilesChanged[0].Action)
	assert.Equal(t, 9, res.Credits.Remaining)
}

func TestGenerateSolution_RejectsSchemaViolations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solution": {"filesChanged": [{"filename": "x", "action": "rename"}]}}`))
	})

	_, err := c.GenerateSolution(context.Background(), "12", "m")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	var se *SchemaError
	assert.True(t, errors.As(err, &se))
}

func TestActionWithoutSuccessIsValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "invalid code"}`))
	})

	_, err := c.VerifyCode(context.Background(), "ABC")
	require.Error(t, err)
	assert.Equal(t, KindValidation, ClassifyError(err))
	assert.Equal(t, "invalid code", err.Error())
}

func TestMalformedMeBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestBackoffHonorsWrappedRetryAfter(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: time.Minute, Multiplier: 2}
	err := fmt.Errorf("list issues: %w", &Error{Status: http.StatusTooManyRequests, Kind: KindTransient, RetryAfter: "7"})

	assert.Equal(t, 7*time.Second, backoff(policy, 0, err))

	policy.MaxDelay = 3 * time.Second
	assert.Equal(t, 3*time.Second, backoff(policy, 0, err))
}

func TestKindForStatus(t *testing.T) {
	assert.Equal(t, KindAuthentication, KindForStatus(401))
	assert.Equal(t, KindAuthorization, KindForStatus(403))
	assert.Equal(t, KindAuthorization, KindForStatus(402))
	assert.Equal(t, KindValidation, KindForStatus(422))
	assert.Equal(t, KindTransient, KindForStatus(429))
	assert.Equal(t, KindTransient, KindForStatus(500))
	assert.Equal(t, KindUnknown, KindForStatus(418))
}
