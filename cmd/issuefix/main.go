package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/issuefix/internal/access"
	"github.com/ChamsBouzaiene/issuefix/internal/api"
	"github.com/ChamsBouzaiene/issuefix/internal/forms"
	"github.com/ChamsBouzaiene/issuefix/internal/router"
)

type rootOptions struct {
	configDir string
	apiURL    string
	output    string
	verbose   bool
	refresh   bool
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "issuefix crashed: %v\n", r)
			log.Printf("%s", debug.Stack())
			code = 2
		}
	}()

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var a *app

	root := &cobra.Command{
		Use:           "issuefix",
		Short:         "Turn GitHub issues into reviewed pull requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetFlags(0)
			log.SetOutput(os.Stderr)
			if !opts.verbose {
				log.SetOutput(io.Discard)
			}
			var err error
			a, err = newApp(cmd.Context(), opts)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.Close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configDir, "config-dir", "", "configuration directory (default: user config dir)")
	pf.StringVar(&opts.apiURL, "api-url", "", "backend base URL (overrides config and ISSUEFIX_API_URL)")
	pf.StringVarP(&opts.output, "output", "o", "", "output format: table, json or yaml")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log diagnostics to stderr")
	pf.BoolVar(&opts.refresh, "refresh", false, "bypass the local query cache")

	get := func() *app { return a }
	root.AddCommand(
		newLoginCmd(get),
		newLogoutCmd(get),
		newWhoamiCmd(get),
		newWaitlistCmd(get),
		newDashboardCmd(get),
		newIssuesCmd(get),
		newPRsCmd(get),
		newValidationsCmd(get),
		newGenerateCmd(get),
		newDiffCmd(get),
		newSolutionCmd(get),
		newPricingCmd(get),
		newPayCmd(get),
		newConfigCmd(get),
		newThemeCmd(get),
		newOpenCmd(get),
	)
	return root
}

// userMessage turns any command error into the text shown to the user.
func userMessage(err error) string {
	var re *router.RedirectError
	if errors.As(err, &re) {
		switch {
		case re.To == router.PathHome:
			return "Not logged in. Run `issuefix login` first."
		case re.To == access.PathWaitlist && re.Err != nil:
			return "Could not confirm dashboard access; see `issuefix waitlist status`."
		default:
			return fmt.Sprintf("Dashboard access not granted yet (%s). See `issuefix waitlist status`.", re.To)
		}
	}
	var fe forms.Errors
	if errors.As(err, &fe) {
		return "Invalid input: " + fe.Error()
	}
	var ae *access.ActionError
	if errors.As(err, &ae) {
		return ae.Error()
	}
	if api.IsTransient(err) {
		return api.Message(err) + " (try again)"
	}
	return api.Message(err)
}
