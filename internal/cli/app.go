// Package cli wires the cobra command surface around the monitor
// components.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/nholik/bt-sentinel/internal/check"
	"github.com/nholik/bt-sentinel/internal/config"
	"github.com/nholik/bt-sentinel/internal/health"
	"github.com/nholik/bt-sentinel/internal/journal"
	"github.com/nholik/bt-sentinel/internal/logging"
	"github.com/nholik/bt-sentinel/internal/recovery"
	"github.com/nholik/bt-sentinel/internal/state"
	"github.com/nholik/bt-sentinel/internal/system"
)

// App carries the shared wiring every command operates on.
type App struct {
	Config    config.Config
	Profile   config.Profile
	Logger    zerolog.Logger
	Journal   *journal.Journal
	Cmd       system.Commander
	FS        system.FS
	Priv      *system.Privilege
	Checker   *check.Checker
	Evaluator *health.Evaluator
	Store     state.Store
	Hostname  string

	confirm    func() bool
	ladderOpts []recovery.Option
}

// buildApp loads configuration, applies flag overrides and constructs the
// component graph against the real host.
func buildApp(opts *Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.LogDir != "" {
		cfg.LogDir = opts.LogDir
	}
	if opts.Interval > 0 {
		cfg.PollInterval = opts.Interval
	}
	if opts.NoRecover {
		cfg.AutoRecover = false
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	logger := logging.NewWithLevel(cfg.LogLevel)

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}

	// An unwritable journal directory is the one startup error nothing
	// can paper over.
	jrnl, err := journal.Open(cfg.LogDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	host := system.NewHost()
	priv := system.NewPrivilege(host, os.Geteuid)
	checker := check.New(logger, host, host, profile)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	var evalOpts []health.Option
	if opts.Verbose {
		evalOpts = append(evalOpts, health.WithVerboseJournal())
	}

	app := &App{
		Config:    cfg,
		Profile:   profile,
		Logger:    logger,
		Journal:   jrnl,
		Cmd:       host,
		FS:        host,
		Priv:      priv,
		Checker:   checker,
		Evaluator: health.NewEvaluator(logger, checker, host, profile, jrnl, evalOpts...),
		Store:     state.NewFileStore(cfg.StatePath, logger),
		Hostname:  hostname,
	}
	app.confirm = app.defaultConfirm(opts.Yes)
	return app, nil
}

// Ladder constructs a recovery ladder on the app's wiring.
func (a *App) Ladder() *recovery.Ladder {
	return recovery.NewLadder(a.Logger, a.Cmd, a.FS, a.Priv, a.Profile, a.Journal, a.ladderOpts...)
}
