package main

import (
	"context"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
	"github.com/ChamsBouzaiene/issuefix/internal/cache"
)

// Cache keys. Mutations invalidate by prefix.
const (
	keyIssues      = "issues"
	keyPRs         = "prs"
	keyValidations = "validations"
)

func fetchCached[T any](ctx context.Context, a *app, key string, fn func(context.Context) (T, error)) (T, error) {
	if a.refresh {
		a.invalidate(ctx, key)
	}
	return cache.Fetch(ctx, a.cache, a.scope(), key, a.cfg.CacheTTLDuration(), fn)
}

func (a *app) issues(ctx context.Context) ([]api.Issue, error) {
	return fetchCached(ctx, a, keyIssues, a.client.Issues)
}

func (a *app) issue(ctx context.Context, id api.ID) (*api.Issue, error) {
	return fetchCached(ctx, a, keyIssues+"/"+string(id), func(ctx context.Context) (*api.Issue, error) {
		return a.client.Issue(ctx, id)
	})
}

func (a *app) pullRequests(ctx context.Context) ([]api.PullRequest, error) {
	return fetchCached(ctx, a, keyPRs, a.client.PullRequests)
}

func (a *app) validations(ctx context.Context) ([]api.Validation, error) {
	return fetchCached(ctx, a, keyValidations, a.client.PendingValidations)
}
