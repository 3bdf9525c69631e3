package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
	"golang.org/x/sync/errgroup"

	"github.com/ChamsBouzaiene/issuefix/internal/access"
	"github.com/ChamsBouzaiene/issuefix/internal/api"
	"github.com/ChamsBouzaiene/issuefix/internal/payment"
	"github.com/ChamsBouzaiene/issuefix/internal/router"
)

func registerRoutes(a *app) {
	r := a.router
	r.Handle(router.PathHome, router.Public, a.screenHome)
	r.Handle(router.PathAuthCallback, router.Public, a.screenAuthCallback)
	r.Handle(router.PathPricing, router.Public, a.screenPricing)

	for _, p := range []string{
		access.PathWaitlist,
		access.PathWaitlistShare,
		access.PathWaitlistPending,
		access.PathWaitlistVerify,
		access.PathWaitlistRejected,
		access.PathWaitlistExpired,
	} {
		r.Handle(p, router.Authenticated, a.screenWaitlist)
	}

	r.Handle(router.PathDashboard, router.Protected, a.screenDashboard)
	r.Handle(router.PathIssues, router.Protected, a.screenIssues)
	r.Handle(router.PathIssue, router.Protected, a.screenIssue)
	r.Handle(router.PathPRs, router.Protected, a.screenPRs)
	r.Handle(router.PathValidations, router.Protected, a.screenValidations)
}

func (a *app) screenHome(ctx context.Context, _ router.Params) error {
	if a.sess.Snapshot().IsLoading {
		if _, err := a.sess.CheckAuth(ctx); err != nil {
			a.out.line("Your session has expired. Please log in again.")
		}
	}
	snap := a.sess.Snapshot()
	if snap.User == nil {
		a.out.line("issuefix: AI fixes for your GitHub issues, reviewed before they ship.")
		a.out.line("Run `issuefix login --token <token>` to sign in.")
		return nil
	}
	a.out.line("Signed in as %s.", snap.User.Username)
	d := a.gate.Guard(ctx)
	if d.Allowed() {
		a.out.line("Run `issuefix dashboard` to see your issues.")
	} else {
		a.out.line("Waitlist: %s. Run `issuefix waitlist status` for next steps.", d.State.Status)
	}
	return nil
}

// screenAuthCallback completes a login: the token arrives as ?token=.
func (a *app) screenAuthCallback(ctx context.Context, p router.Params) error {
	token := strings.TrimSpace(p["token"])
	if token == "" {
		return fmt.Errorf("missing token")
	}
	if err := a.sess.SetToken(token); err != nil {
		return err
	}
	user, err := a.sess.CheckAuth(ctx)
	if err != nil {
		return err
	}

	d := a.gate.Guard(ctx)
	a.nav.Replace(d.Path)
	return a.out.emit(map[string]any{"user": user, "next": d.Path}, func() {
		a.out.line("Logged in as %s (%s).", user.Username, user.Email)
		if d.Allowed() {
			a.out.line("You have access. Run `issuefix dashboard`.")
		} else {
			a.out.line("Waitlist status: %s. Run `issuefix waitlist status`.", d.State.Status)
		}
	})
}

func (a *app) screenPricing(ctx context.Context, _ router.Params) error {
	return a.out.emit(payment.Catalog, func() {
		rows := make([][]string, 0, len(payment.Catalog))
		for _, p := range payment.Catalog {
			rows = append(rows, []string{p.ID, p.Name, fmt.Sprint(p.Credits), payment.FormatAmount(p.Price, p.Currency)})
		}
		a.out.table([]string{"PLAN", "NAME", "CREDITS", "PRICE"}, rows)
		a.out.line("\nBuy credits with `issuefix pay <plan>`.")
	})
}

func (a *app) screenWaitlist(ctx context.Context, _ router.Params) error {
	st, err := a.gate.Check(ctx)
	if err != nil {
		return err
	}
	a.nav.Replace(access.Route(st))
	return a.out.emit(st, func() { a.renderWaitlist(st) })
}

func (a *app) renderWaitlist(st access.State) {
	if st.HasAccess {
		a.out.line("You have dashboard access. Run `issuefix dashboard`.")
		return
	}
	a.out.line("Waitlist status: %s", st.Status)
	switch access.Available(st) {
	case access.ActionSubmit:
		switch st.Status {
		case access.StatusRejected:
			a.out.line("Your application was not accepted. You can resubmit with `issuefix waitlist submit`.")
		case access.StatusExpired:
			a.out.line("Your access code expired. Reapply with `issuefix waitlist submit`.")
		default:
			a.out.line("Apply with `issuefix waitlist submit --email ... --name ... --github ...`.")
		}
	case access.ActionShare:
		mark := func(done bool) string {
			if done {
				return "shared"
			}
			return "not shared"
		}
		a.out.line("  twitter:  %s", mark(st.SharedOnTwitter))
		a.out.line("  linkedin: %s", mark(st.SharedOnLinkedIn))
		a.out.line("Share on both with `issuefix waitlist share <platform>` to enter review.")
	case access.ActionVerify:
		a.out.line("You were approved. Enter the code from your email with `issuefix waitlist verify <code>`.")
	case access.ActionNone:
		a.out.line("Your application is under review. We'll email you when it is decided.")
	}
}

type dashboard struct {
	Issues      []api.Issue       `json:"issues"`
	PRs         []api.PullRequest `json:"prs"`
	Validations []api.Validation  `json:"validations"`
}

// screenDashboard fetches the three collections concurrently; the guard has
// already passed.
func (a *app) screenDashboard(ctx context.Context, _ router.Params) error {
	var d dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Issues, err = a.issues(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.PRs, err = a.pullRequests(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Validations, err = a.validations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return a.out.emit(d, func() {
		user := a.sess.Snapshot().User
		a.out.line("%s", a.styles.Header.Render("Dashboard · "+user.Username))
		open := 0
		for _, is := range d.Issues {
			if is.State != "closed" {
				open++
			}
		}
		a.out.line("Issues: %d (%d open)   Pull requests: %d   Awaiting review: %d", len(d.Issues), open, len(d.PRs), len(d.Validations))
		if len(d.Validations) > 0 {
			a.out.line("")
			a.renderValidations(d.Validations)
		}
	})
}

func (a *app) screenIssues(ctx context.Context, p router.Params) error {
	issues, err := a.issues(ctx)
	if err != nil {
		return err
	}
	if repo := p["repo"]; repo != "" {
		filtered := issues[:0:0]
		for _, is := range issues {
			if is.Repository == repo {
				filtered = append(filtered, is)
			}
		}
		issues = filtered
	}
	return a.out.emit(issues, func() { a.renderIssues(issues) })
}

func (a *app) renderIssues(issues []api.Issue) {
	if len(issues) == 0 {
		a.out.line("No issues imported yet.")
		return
	}
	rows := make([][]string, 0, len(issues))
	for _, is := range issues {
		rows = append(rows, []string{string(is.ID), is.Repository, fmt.Sprintf("#%d", is.Number), is.State, shorten(is.Title, 60)})
	}
	a.out.table([]string{"ID", "REPO", "NUMBER", "STATE", "TITLE"}, rows)
}

func (a *app) screenIssue(ctx context.Context, p router.Params) error {
	is, err := a.issue(ctx, api.ID(p["id"]))
	if err != nil {
		return err
	}
	return a.out.emit(is, func() {
		a.out.line("%s", a.styles.Header.Render(fmt.Sprintf("%s #%d: %s", is.Repository, is.Number, is.Title)))
		a.out.line("State: %s   Created: %s", is.State, formatTime(is.CreatedAt))
		if len(is.Labels) > 0 {
			a.out.line("Labels: %s", strings.Join(is.Labels, ", "))
		}
		if is.URL != "" {
			a.out.line("%s", is.URL)
		}
		if is.Body != "" {
			a.out.line("\n%s", is.Body)
		}
		a.out.line("\nGenerate a fix with `issuefix generate %s`.", is.ID)
	})
}

func (a *app) screenPRs(ctx context.Context, _ router.Params) error {
	prs, err := a.pullRequests(ctx)
	if err != nil {
		return err
	}
	return a.out.emit(prs, func() {
		if len(prs) == 0 {
			a.out.line("No pull requests yet. Approve a solution to open one.")
			return
		}
		rows := make([][]string, 0, len(prs))
		for _, pr := range prs {
			rows = append(rows, []string{string(pr.ID), pr.Repository, fmt.Sprintf("#%d", pr.Number), pr.State, shorten(pr.Title, 50), pr.URL})
		}
		a.out.table([]string{"ID", "REPO", "NUMBER", "STATE", "TITLE", "URL"}, rows)
	})
}

func (a *app) screenValidations(ctx context.Context, _ router.Params) error {
	vals, err := a.validations(ctx)
	if err != nil {
		return err
	}
	return a.out.emit(vals, func() { a.renderValidations(vals) })
}

func (a *app) renderValidations(vals []api.Validation) {
	if len(vals) == 0 {
		a.out.line("No solutions awaiting review.")
		return
	}
	rows := make([][]string, 0, len(vals))
	for _, v := range vals {
		title, files := "", "0"
		if v.Issue != nil {
			title = shorten(v.Issue.Title, 50)
		}
		if v.Solution != nil {
			files = fmt.Sprint(len(v.Solution.FilesChanged))
		}
		rows = append(rows, []string{string(v.ID), string(v.IssueID), v.Status, files, title})
	}
	a.out.table([]string{"ID", "ISSUE", "STATUS", "FILES", "TITLE"}, rows)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s ago)", t.Local().Format("2006-01-02 15:04"), units.HumanDuration(time.Since(t)))
}
