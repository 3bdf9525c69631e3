package main

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
	"github.com/ChamsBouzaiene/issuefix/internal/router"
	"github.com/ChamsBouzaiene/issuefix/internal/search"
)

func newDashboardCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize issues, pull requests and pending reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().router.Dispatch(cmd.Context(), router.PathDashboard)
		},
	}
}

func newIssuesCmd(get func() *app) *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:     "issues",
		Aliases: []string{"issue"},
		Short:   "List and inspect imported issues",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := router.PathIssues
			if repo != "" {
				path += "?repo=" + url.QueryEscape(repo)
			}
			return get().router.Dispatch(cmd.Context(), path)
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "only issues from owner/name")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().router.Dispatch(cmd.Context(), "/issues/"+url.PathEscape(args[0]))
		},
	}
	cmd.AddCommand(show, newIssuesSearchCmd(get))
	return cmd
}

func newIssuesSearchCmd(get func() *app) *cobra.Command {
	var (
		filter search.Filter
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over imported issues",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if err := a.router.Require(ctx, router.PathIssues, router.Protected); err != nil {
				return err
			}
			issues, err := a.issues(ctx)
			if err != nil {
				return err
			}

			idx, err := search.NewIssueIndex()
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := idx.Index(issues); err != nil {
				return err
			}
			hits, err := idx.Search(strings.Join(args, " "), filter, limit)
			if err != nil {
				return err
			}
			log.Printf("🔍 %d hits over %d issues", len(hits), len(issues))

			return a.out.emit(hits, func() {
				if len(hits) == 0 {
					a.out.line("No matching issues.")
					return
				}
				rows := make([][]string, 0, len(hits))
				for _, h := range hits {
					rows = append(rows, []string{string(h.ID), h.Repository, fmt.Sprintf("#%d", h.Number), fmt.Sprintf("%.2f", h.Score), shorten(h.Title, 60)})
				}
				a.out.table([]string{"ID", "REPO", "NUMBER", "SCORE", "TITLE"}, rows)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Repository, "repo", "", "only issues from owner/name")
	f.StringVar(&filter.State, "state", "", "only issues in this state (open, closed)")
	f.StringVar(&filter.Label, "label", "", "only issues with this label")
	f.IntVarP(&limit, "limit", "n", 10, "maximum results")
	return cmd
}

func newPRsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "prs",
		Aliases: []string{"pulls"},
		Short:   "List pull requests opened for approved solutions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().router.Dispatch(cmd.Context(), router.PathPRs)
		},
	}
}

func newValidationsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validations",
		Aliases: []string{"reviews"},
		Short:   "Review generated solutions before they become pull requests",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().router.Dispatch(cmd.Context(), router.PathValidations)
		},
	}
	cmd.AddCommand(
		newDecisionCmd(get, "approve", "approved", "Approve a solution and open its pull request"),
		newDecisionCmd(get, "reject", "rejected", "Reject a solution"),
	)
	return cmd
}

func newDecisionCmd(get func() *app, use, status, short string) *cobra.Command {
	var comments string
	cmd := &cobra.Command{
		Use:   use + " <validation-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if err := a.router.Require(ctx, router.PathValidations, router.Protected); err != nil {
				return err
			}
			res, err := a.client.Validate(ctx, api.ID(args[0]), api.ValidationDecision{Status: status, Comments: comments})
			if err != nil {
				return err
			}
			a.invalidate(ctx, keyValidations, keyPRs)
			return a.out.emit(res, func() {
				a.out.line("Validation %s %s.", args[0], status)
				if res.GithubURL != "" {
					a.out.line("Pull request: %s", res.GithubURL)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&comments, "comment", "m", "", "review comment")
	return cmd
}
