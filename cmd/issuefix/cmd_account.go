package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/issuefix/internal/config"
	"github.com/ChamsBouzaiene/issuefix/internal/payment"
	"github.com/ChamsBouzaiene/issuefix/internal/router"
)

func newPricingCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pricing",
		Short: "List credit plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().router.Dispatch(cmd.Context(), router.PathPricing)
		},
	}
}

func newPayCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:       "pay <plan>",
		Short:     "Buy a credit plan",
		Args:      cobra.ExactArgs(1),
		ValidArgs: planIDs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, ok := payment.FindPlan(args[0]); !ok {
				return fmt.Errorf("unknown plan %q (want one of %s)", args[0], strings.Join(planIDs(), ", "))
			}
			if err := a.router.Require(ctx, router.PathPricing, router.Authenticated); err != nil {
				return err
			}

			gw := &payment.PromptGateway{
				In:          cmd.InOrStdin(),
				Out:         a.out.w,
				CheckoutURL: strings.TrimRight(a.cfg.APIBaseURL, "/") + "/checkout",
			}
			co := payment.NewCheckout(a.client, gw, func(s payment.State) {
				log.Printf("💳 checkout: %s", s)
			})
			res, err := co.Start(ctx, args[0])
			if errors.Is(err, payment.ErrDismissed) {
				a.out.line("Payment cancelled. Nothing was charged.")
				return nil
			}
			if err != nil {
				return err
			}
			return a.out.emit(res, func() {
				a.out.line("Payment confirmed.")
				if res.Credits != nil {
					a.out.line("Credits remaining: %d", res.Credits.Remaining)
				}
			})
		},
	}
}

func planIDs() []string {
	ids := make([]string, 0, len(payment.Catalog))
	for _, p := range payment.Catalog {
		ids = append(ids, p.ID)
	}
	return ids
}

func newOpenCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Open any screen by path, e.g. /issues/42 or /waitlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			if err := a.router.Dispatch(cmd.Context(), path); err != nil {
				return err
			}
			log.Printf("📍 now at %s", a.nav.Current())
			return nil
		},
	}
}

func newConfigCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			cfg, err := a.cfgMgr.Load()
			if err != nil {
				return err
			}
			return a.out.emit(cfg, func() {
				a.out.line("Config file: %s", a.cfgMgr.GetConfigPath())
				a.out.table([]string{"KEY", "VALUE"}, [][]string{
					{"api_base_url", cfg.APIBaseURL},
					{"default_model", cfg.DefaultModel},
					{"theme", cfg.Theme},
					{"output", cfg.Output},
					{"max_retries", fmt.Sprint(cfg.MaxRetries)},
					{"cache_ttl_seconds", fmt.Sprint(cfg.CacheTTL)},
				})
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			return a.updateConfig(args[0], args[1])
		},
	}
	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			get().out.line("%s", get().cfgMgr.GetConfigPath())
			return nil
		},
	}
	cmd.AddCommand(set, path)
	return cmd
}

func newThemeCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|system]",
		Short:     "Show or set the color theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "system"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if len(args) == 0 {
				a.out.line("%s", a.cfg.Theme)
				return nil
			}
			return a.updateConfig("theme", args[0])
		},
	}
}

// updateConfig edits the file on disk, not the env-adjusted copy in a.cfg.
func (a *app) updateConfig(key, value string) error {
	cfg, err := a.cfgMgr.Load()
	if err != nil {
		return err
	}
	if err := config.Set(cfg, key, value); err != nil {
		return err
	}
	if err := a.cfgMgr.Save(cfg); err != nil {
		return err
	}
	if key == "cache_ttl_seconds" && cfg.CacheTTL == 0 {
		a.cacheOff()
	}
	a.out.line("Set %s = %s", key, value)
	if _, set := os.LookupEnv(envFor(key)); set {
		a.out.line("Note: %s is set and overrides this value.", envFor(key))
	}
	return nil
}

func envFor(key string) string {
	switch key {
	case "api_base_url":
		return "ISSUEFIX_API_URL"
	case "default_model":
		return "ISSUEFIX_MODEL"
	case "max_retries":
		return "ISSUEFIX_RETRIES"
	case "cache_ttl_seconds":
		return "ISSUEFIX_CACHE_TTL"
	}
	return "ISSUEFIX_" + strings.ToUpper(key)
}

// cacheOff drops everything cached once caching is disabled.
func (a *app) cacheOff() {
	if a.cache == nil {
		return
	}
	if err := a.cache.Purge(context.Background()); err != nil {
		log.Printf("⚠️  %v", err)
	}
}
