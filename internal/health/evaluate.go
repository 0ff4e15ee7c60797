package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nholik/bt-sentinel/internal/check"
	"github.com/nholik/bt-sentinel/internal/config"
	"github.com/nholik/bt-sentinel/internal/journal"
	"github.com/nholik/bt-sentinel/internal/system"
)

// Evaluator runs all diagnostics plus the Broadcom reset signature
// detector and aggregates them into a Report.
type Evaluator struct {
	checker *check.Checker
	cmd     system.Commander
	profile config.Profile
	journal *journal.Journal
	logger  zerolog.Logger
	verbose bool
	now     func() time.Time
}

// Option adjusts evaluator behavior.
type Option func(*Evaluator)

// WithVerboseJournal mirrors per-check detail into the event log as
// VERBOSE lines.
func WithVerboseJournal() Option {
	return func(e *Evaluator) { e.verbose = true }
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(logger zerolog.Logger, checker *check.Checker, cmd system.Commander, profile config.Profile, jrnl *journal.Journal, opts ...Option) *Evaluator {
	e := &Evaluator{
		checker: checker,
		cmd:     cmd,
		profile: profile,
		journal: jrnl,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs every check unconditionally. There is no short-circuit:
// each failure is independently informative for the recovery ladder.
func (e *Evaluator) Evaluate(ctx context.Context) (Report, error) {
	report := Report{EvaluatedAt: e.now().UTC()}

	report.Checks = []check.Result{
		e.checker.Modules(ctx),
		e.checker.Hardware(ctx),
		e.checker.Service(ctx),
		e.checker.Functionality(ctx),
	}

	for _, result := range report.Checks {
		if result.Failed() {
			report.RecoveryNeeded = true
		}
		e.journal.Status(statusSeverity(result.Status), fmt.Sprintf("%s: %s (%s)", result.Name, result.Status, result.Detail))
		if e.verbose {
			e.journal.Event(journal.SeverityVerbose, fmt.Sprintf("%s check: %s (%s)", result.Name, result.Status, result.Detail))
		}
		e.logger.Debug().
			Str("check", result.Name).
			Str("status", string(result.Status)).
			Str("detail", result.Detail).
			Msg("check completed")
	}

	report.BroadcomReset = e.detectBroadcomReset(ctx)
	if report.BroadcomReset {
		e.journal.Status(journal.SeverityWarning, "Broadcom reset failure signature detected")
	}

	e.journal.Status(journal.SeverityInfo, report.Summary())
	return report, nil
}

// detectBroadcomReset checks for the known chipset reset bug with two
// OR-ed heuristics: the kernel log marker when dmesg is readable, and the
// Apple/Broadcom USB identity combined with a down adapter. Recall is
// favored over precision; a false positive only costs one idempotent
// recovery attempt.
func (e *Evaluator) detectBroadcomReset(ctx context.Context) bool {
	if result, err := e.cmd.Run(ctx, "dmesg"); err == nil && result.Succeeded() {
		if strings.Contains(result.Stdout, e.profile.ResetMarker) {
			e.logger.Warn().Str("marker", e.profile.ResetMarker).Msg("reset marker found in kernel log")
			return true
		}
	}

	listing, err := e.cmd.Run(ctx, "lsusb")
	if err != nil || !listing.Succeeded() {
		return false
	}
	if !strings.Contains(strings.ToLower(listing.Stdout), strings.ToLower(e.profile.BroadcomID)) {
		return false
	}

	hci, err := e.cmd.Run(ctx, "hciconfig")
	if err != nil {
		return false
	}
	if strings.Contains(hci.Stdout, "UP RUNNING") {
		return false
	}

	e.logger.Warn().
		Str("device", e.profile.BroadcomID).
		Msg("Broadcom adapter present but not UP RUNNING")
	return true
}

func statusSeverity(status check.Status) journal.Severity {
	switch status {
	case check.StatusFail:
		return journal.SeverityError
	case check.StatusUnknown:
		return journal.SeverityWarning
	default:
		return journal.SeverityInfo
	}
}
