package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/nholik/bt-sentinel/internal/check"
	"github.com/nholik/bt-sentinel/internal/healthcheck"
	"github.com/nholik/bt-sentinel/internal/journal"
	"github.com/nholik/bt-sentinel/internal/metrics"
	"github.com/nholik/bt-sentinel/internal/notify"
	"github.com/nholik/bt-sentinel/internal/runner"
	"github.com/nholik/bt-sentinel/internal/server"
)

// runLoop starts the periodic monitor and blocks until SIGINT/SIGTERM.
func runLoop(ctx context.Context, app *App) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.Journal.Event(journal.SeverityInfo, "bt-sentinel starting")
	app.Logger.Info().
		Dur("poll_interval", app.Config.PollInterval).
		Bool("auto_recover", app.Config.AutoRecover).
		Str("log_dir", app.Config.LogDir).
		Msg("starting monitor loop")

	collector := metrics.New()
	tracker := healthcheck.NewTracker()
	server.Start(ctx, app.Logger, app.Config.PollInterval, tracker, collector, app.Config.HealthPort, app.Config.MetricsPort)

	r := app.newRunner(collector, tracker)
	err := r.Run(ctx)
	app.Journal.Event(journal.SeverityInfo, "bt-sentinel stopped")
	return err
}

// runOnce executes a single monitor cycle (with recovery unless disabled)
// and reports the result through the exit code.
func runOnce(ctx context.Context, app *App) error {
	if err := app.newRunner(nil, nil).RunOnce(ctx); err != nil {
		return err
	}

	snapshot, err := app.Store.Load(ctx)
	if err != nil || snapshot == nil {
		return err
	}
	var failing []string
	for name, status := range snapshot.Checks {
		if status == check.StatusFail {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		return fmt.Errorf("stack unhealthy after cycle: %s", strings.Join(failing, ", "))
	}
	return nil
}

func (a *App) newRunner(collector *metrics.Metrics, tracker *healthcheck.Tracker) *runner.Runner {
	opts := []runner.Option{
		runner.WithStateStore(a.Store, &sync.Mutex{}),
		runner.WithNotifier(a.buildNotifier()),
		runner.WithMetrics(collector),
		runner.WithTracker(tracker),
		runner.WithHost(a.Hostname),
		runner.WithConfirm(a.confirm),
	}
	if a.Config.AutoRecover {
		opts = append(opts, runner.WithLadder(a.Ladder()))
	}
	return runner.New(a.Logger, a.Config.PollInterval, a.Evaluator, opts...)
}

func (a *App) buildNotifier() notify.Notifier {
	notifiers := []notify.Notifier{
		notify.NewSlackNotifier(a.Logger, a.Config.SlackWebhookURL),
	}
	if a.Config.WebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(a.Logger, a.Config.WebhookURL, "")
		if err != nil {
			a.Logger.Error().Err(err).Msg("webhook notifier disabled")
		} else {
			notifiers = append(notifiers, webhook)
		}
	}
	return notify.NewMultiNotifier(notifiers...)
}
