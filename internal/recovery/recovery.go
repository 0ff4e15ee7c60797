// Package recovery implements the escalating remediation ladder applied
// when the health evaluator finds the Bluetooth stack unhealthy. Actions
// are independent and run in a fixed order; the ladder never aborts early
// because the actions address disjoint failure modes.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nholik/bt-sentinel/internal/config"
	"github.com/nholik/bt-sentinel/internal/health"
	"github.com/nholik/bt-sentinel/internal/journal"
	"github.com/nholik/bt-sentinel/internal/system"
)

// Action display names, used in logs and outcomes.
const (
	ActionBroadcomFix    = "Broadcom reset fix"
	ActionPowerFix       = "power management fix"
	ActionUSBReset       = "USB reset"
	ActionServiceRestart = "service restart"
	ActionModuleReload   = "module reload"
)

// Outcome records one action's result.
type Outcome struct {
	Action    string
	Succeeded bool
	Detail    string
}

// Summary aggregates one ladder run. Overall success means at least one
// action succeeded.
type Summary struct {
	Attempted int
	Succeeded int
	Outcomes  []Outcome
}

// Recovered reports whether any action succeeded.
func (s Summary) Recovered() bool {
	return s.Succeeded > 0
}

// Timing collects the settle delays and re-enumeration bounds used by the
// ladder. Tests shrink these.
type Timing struct {
	AuthorizedSettle time.Duration
	UnbindSettle     time.Duration
	StopStartPause   time.Duration
	ModulePause      time.Duration
	ReenumInterval   time.Duration
	ReenumProgress   time.Duration
	ReenumShort      time.Duration
	ReenumLong       time.Duration
}

// DefaultTiming returns the production delays.
func DefaultTiming() Timing {
	return Timing{
		AuthorizedSettle: 2 * time.Second,
		UnbindSettle:     3 * time.Second,
		StopStartPause:   2 * time.Second,
		ModulePause:      2 * time.Second,
		ReenumInterval:   1 * time.Second,
		ReenumProgress:   5 * time.Second,
		ReenumShort:      15 * time.Second,
		ReenumLong:       20 * time.Second,
	}
}

// Ladder executes the recovery actions.
type Ladder struct {
	cmd     system.Commander
	fs      system.FS
	priv    *system.Privilege
	profile config.Profile
	journal *journal.Journal
	logger  zerolog.Logger
	timing  Timing
}

// Option customizes ladder behavior.
type Option func(*Ladder)

// WithTiming overrides the settle delays and wait bounds.
func WithTiming(timing Timing) Option {
	return func(l *Ladder) {
		l.timing = timing
	}
}

// NewLadder constructs a Ladder.
func NewLadder(logger zerolog.Logger, cmd system.Commander, fs system.FS, priv *system.Privilege, profile config.Profile, jrnl *journal.Journal, opts ...Option) *Ladder {
	l := &Ladder{
		cmd:     cmd,
		fs:      fs,
		priv:    priv,
		profile: profile,
		journal: jrnl,
		logger:  logger,
		timing:  DefaultTiming(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type action struct {
	name string
	fn   func(context.Context) (string, error)
}

// Run executes the full ladder for an unhealthy report. The Broadcom fix
// only runs when its signature was detected; everything else runs
// unconditionally.
func (l *Ladder) Run(ctx context.Context, report health.Report) Summary {
	actions := make([]action, 0, 5)
	if report.BroadcomReset {
		actions = append(actions, action{ActionBroadcomFix, l.fixBroadcom})
	}
	actions = append(actions,
		action{ActionPowerFix, l.fixPowerManagement},
		action{ActionUSBReset, l.resetUSB},
		action{ActionServiceRestart, l.restartService},
		action{ActionModuleReload, l.reloadModules},
	)
	return l.execute(ctx, actions)
}

// RunAll executes every action including the Broadcom fix, regardless of
// detection. Used by the full-recovery mode.
func (l *Ladder) RunAll(ctx context.Context) Summary {
	return l.execute(ctx, []action{
		{ActionBroadcomFix, l.fixBroadcom},
		{ActionPowerFix, l.fixPowerManagement},
		{ActionUSBReset, l.resetUSB},
		{ActionServiceRestart, l.restartService},
		{ActionModuleReload, l.reloadModules},
	})
}

// RunSubset executes the power, USB and service actions only.
func (l *Ladder) RunSubset(ctx context.Context) Summary {
	return l.execute(ctx, []action{
		{ActionPowerFix, l.fixPowerManagement},
		{ActionUSBReset, l.resetUSB},
		{ActionServiceRestart, l.restartService},
	})
}

// RunPowerFix executes only the power management action.
func (l *Ladder) RunPowerFix(ctx context.Context) Summary {
	return l.execute(ctx, []action{{ActionPowerFix, l.fixPowerManagement}})
}

// RunUSBReset executes only the USB reset action.
func (l *Ladder) RunUSBReset(ctx context.Context) Summary {
	return l.execute(ctx, []action{{ActionUSBReset, l.resetUSB}})
}

// RunServiceRestart executes only the service restart action.
func (l *Ladder) RunServiceRestart(ctx context.Context) Summary {
	return l.execute(ctx, []action{{ActionServiceRestart, l.restartService}})
}

func (l *Ladder) execute(ctx context.Context, actions []action) Summary {
	summary := Summary{}

	for _, act := range actions {
		summary.Attempted++
		detail, err := act.fn(ctx)

		outcome := Outcome{Action: act.name, Detail: detail}
		switch {
		case err == nil:
			outcome.Succeeded = true
			summary.Succeeded++
			l.journal.Recovery(journal.SeverityRecovery, fmt.Sprintf("%s succeeded: %s", act.name, detail))
			l.logger.Info().Str("action", act.name).Str("detail", detail).Msg("recovery action succeeded")
		case errors.Is(err, system.ErrNeedRoot):
			outcome.Detail = err.Error()
			l.journal.Recovery(journal.SeverityError, fmt.Sprintf("%s skipped: %v", act.name, err))
			l.logger.Error().Str("action", act.name).Err(err).Msg("recovery action requires privilege")
		default:
			outcome.Detail = err.Error()
			l.journal.Recovery(journal.SeverityError, fmt.Sprintf("%s failed: %v", act.name, err))
			l.logger.Error().Str("action", act.name).Err(err).Msg("recovery action failed")
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	l.journal.Recovery(journal.SeverityRecovery,
		fmt.Sprintf("recovery complete: %d/%d actions succeeded", summary.Succeeded, summary.Attempted))
	l.logger.Info().
		Int("attempted", summary.Attempted).
		Int("succeeded", summary.Succeeded).
		Bool("recovered", summary.Recovered()).
		Msg("recovery ladder complete")

	return summary
}

// runPrivileged runs a mutating command as root or through sudo -n.
func (l *Ladder) runPrivileged(ctx context.Context, name string, args ...string) (system.Result, error) {
	wrappedName, wrappedArgs, err := l.priv.Wrap(ctx, name, args...)
	if err != nil {
		return system.Result{}, err
	}
	return l.cmd.Run(ctx, wrappedName, wrappedArgs...)
}

// writeAttr writes a sysfs attribute, elevating through sudo when the
// process is unprivileged. Some attributes are user-writable, so a direct
// write is still attempted as a last resort.
func (l *Ladder) writeAttr(ctx context.Context, path, value string) error {
	if l.priv.IsRoot() {
		return l.fs.WriteFile(path, value)
	}
	if l.priv.CanElevate(ctx) {
		result, err := l.cmd.Run(ctx, "sudo", "-n", "sh", "-c", fmt.Sprintf("printf %%s %s > %s", value, path))
		if err != nil {
			return err
		}
		if !result.Succeeded() {
			return fmt.Errorf("write %s: exit %d: %s", path, result.ExitCode, result.Stderr)
		}
		return nil
	}
	return l.fs.WriteFile(path, value)
}

func (l *Ladder) sleep(ctx context.Context, wait time.Duration) {
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
