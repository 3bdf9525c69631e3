package main

import (
	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/issuefix/internal/access"
	"github.com/ChamsBouzaiene/issuefix/internal/api"
	"github.com/ChamsBouzaiene/issuefix/internal/forms"
	"github.com/ChamsBouzaiene/issuefix/internal/router"
)

func newWaitlistCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waitlist",
		Short: "Check and advance your place on the waitlist",
	}
	cmd.AddCommand(
		newWaitlistStatusCmd(get),
		newWaitlistSubmitCmd(get),
		newWaitlistShareCmd(get),
		newWaitlistVerifyCmd(get),
	)
	return cmd
}

func newWaitlistStatusCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your waitlist status and the next step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().router.Dispatch(cmd.Context(), access.PathWaitlist)
		},
	}
}

// currentState authenticates and queries the status an action starts from.
func (a *app) currentState(cmd *cobra.Command) (access.State, error) {
	if err := a.router.Require(cmd.Context(), cmd.CommandPath(), router.Authenticated); err != nil {
		return access.State{}, err
	}
	return a.gate.Check(cmd.Context())
}

func (a *app) showTransition(st access.State) error {
	a.nav.Replace(access.Route(st))
	return a.out.emit(st, func() { a.renderWaitlist(st) })
}

func newWaitlistSubmitCmd(get func() *app) *cobra.Command {
	var form api.WaitlistApplication
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Apply for access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := forms.Application(&form); err != nil {
				return err
			}
			cur, err := a.currentState(cmd)
			if err != nil {
				return err
			}
			next, err := a.gate.Submit(cmd.Context(), cur, form)
			if err != nil {
				return err
			}
			return a.showTransition(next)
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Email, "email", "", "contact email (required)")
	f.StringVar(&form.Name, "name", "", "your name (required)")
	f.StringVar(&form.GithubUsername, "github", "", "GitHub username (required)")
	f.StringVar(&form.Company, "company", "", "company")
	f.StringVar(&form.UseCase, "use-case", "", "what you want to use issuefix for")
	return cmd
}

func newWaitlistShareCmd(get func() *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:       "share <twitter|linkedin>",
		Short:     "Record that you shared issuefix on a platform",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(access.PlatformTwitter), string(access.PlatformLinkedIn)},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			platform, err := access.ParsePlatform(args[0])
			if err != nil {
				return err
			}
			cur, err := a.currentState(cmd)
			if err != nil {
				return err
			}
			if cur.Shared(platform) && !force {
				a.out.line("Already recorded a share on %s.", platform)
			}
			next, err := a.gate.Share(cmd.Context(), cur, platform, force)
			if err != nil {
				return err
			}
			return a.showTransition(next)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "resend even if already recorded")
	return cmd
}

func newWaitlistVerifyCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <code>",
		Short: "Redeem the access code from your approval email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			code, err := forms.AccessCode(args[0])
			if err != nil {
				return err
			}
			cur, err := a.currentState(cmd)
			if err != nil {
				return err
			}
			next, err := a.gate.Verify(cmd.Context(), cur, code)
			if err != nil {
				return err
			}
			return a.showTransition(next)
		},
	}
}
