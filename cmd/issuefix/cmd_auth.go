package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/issuefix/internal/router"
)

func newLoginCmd(get func() *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a token issued by the web sign-in flow",
		Long: `Sign in with the token the browser sign-in hands back.

The token can be given with --token or the ISSUEFIX_TOKEN environment
variable. It is verified against the backend before anything else runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if token == "" {
				token = os.Getenv("ISSUEFIX_TOKEN")
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("no token given; sign in at %s and pass --token", a.cfg.APIBaseURL)
			}
			return a.router.Dispatch(cmd.Context(), router.PathAuthCallback+"?token="+url.QueryEscape(token))
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "session token (default $ISSUEFIX_TOKEN)")
	return cmd
}

func newLogoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			a.sess.Logout(cmd.Context())
			a.out.line("Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.router.Require(cmd.Context(), "whoami", router.Authenticated); err != nil {
				return err
			}
			user := a.sess.Snapshot().User
			return a.out.emit(user, func() {
				a.out.line("%s <%s>", user.Username, user.Email)
				a.out.line("id: %s", user.ID)
			})
		},
	}
}
