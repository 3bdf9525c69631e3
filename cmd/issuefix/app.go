package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ChamsBouzaiene/issuefix/internal/access"
	"github.com/ChamsBouzaiene/issuefix/internal/api"
	"github.com/ChamsBouzaiene/issuefix/internal/cache"
	"github.com/ChamsBouzaiene/issuefix/internal/config"
	"github.com/ChamsBouzaiene/issuefix/internal/router"
	"github.com/ChamsBouzaiene/issuefix/internal/session"
	"github.com/ChamsBouzaiene/issuefix/internal/tui"
)

// app is the explicitly constructed application state every command
// works against.
type app struct {
	cfgMgr *config.Manager
	cfg    *config.Config

	sess   *session.State
	client *api.Client
	gate   *access.Gate
	nav    *router.Navigator
	router *router.Router
	cache  *cache.Cache
	styles tui.Styles
	out    *printer

	refresh bool
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	mgr := config.NewManagerAt(opts.configDir)
	if opts.configDir == "" {
		var err error
		if mgr, err = config.NewManager(); err != nil {
			return nil, err
		}
	}
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if opts.apiURL != "" {
		cfg.APIBaseURL = opts.apiURL
	}
	if opts.output != "" {
		cfg.Output = opts.output
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	a := &app{
		cfgMgr: mgr,
		cfg:    cfg,
		nav:    router.NewNavigator(router.PathHome),
		styles: tui.NewStyles(cfg.Theme),
		out:    newPrinter(os.Stdout, cfg.Output),

		refresh: opts.refresh,
	}

	store := session.NewStore(mgr.Dir())
	// The client and the session reference each other through closures.
	a.client = api.New(cfg.APIBaseURL,
		api.WithTokenSource(func() string { return a.sess.Token() }),
		api.WithUnauthorizedHandler(func() { a.sess.Invalidate() }),
		api.WithRetryPolicy(retryPolicy(cfg.MaxRetries)),
	)
	a.sess = session.New(store, a.client, a.nav)
	a.gate = access.NewGate(a.client)
	a.router = router.New(a.sess, a.gate, a.nav)

	if cfg.CacheTTL > 0 {
		if err := os.MkdirAll(mgr.Dir(), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create config dir: %w", err)
		}
		c, err := cache.Open(ctx, filepath.Join(mgr.Dir(), "cache.db"))
		if err != nil {
			log.Printf("⚠️  Query cache disabled: %v", err)
		} else {
			a.cache = c
		}
	}

	a.nav.OnHard(a.sess.Reset)
	a.nav.OnHard(func() {
		if a.cache == nil {
			return
		}
		if err := a.cache.Purge(context.Background()); err != nil {
			log.Printf("⚠️  %v", err)
		}
	})

	registerRoutes(a)
	return a, nil
}

func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
}

func retryPolicy(maxRetries int) api.RetryPolicy {
	p := api.DefaultRetryPolicy
	p.MaxRetries = maxRetries
	return p
}

// scope returns the cache scope of the verified user.
func (a *app) scope() string {
	snap := a.sess.Snapshot()
	if snap.User == nil {
		return ""
	}
	return "user:" + string(snap.User.ID)
}

// invalidate drops cached collections after a mutation.
func (a *app) invalidate(ctx context.Context, prefixes ...string) {
	if a.cache == nil {
		return
	}
	for _, p := range prefixes {
		if err := a.cache.Invalidate(ctx, a.scope(), p); err != nil {
			log.Printf("⚠️  %v", err)
		}
	}
}

// watchSession follows the session file for the life of a long-running
// command, so a logout in another terminal takes effect. The returned func
// stops the watcher.
func (a *app) watchSession() func() {
	w, err := session.NewWatcher(a.sess)
	if err != nil {
		log.Printf("⚠️  Session watcher disabled: %v", err)
		return func() {}
	}
	if err := w.Start(); err != nil {
		log.Printf("⚠️  Session watcher disabled: %v", err)
		w.Stop()
		return func() {}
	}
	return func() {
		if err := w.Stop(); err != nil {
			log.Printf("⚠️  %v", err)
		}
	}
}
