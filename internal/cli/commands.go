package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nholik/bt-sentinel/internal/health"
	"github.com/nholik/bt-sentinel/internal/recovery"
	"github.com/nholik/bt-sentinel/internal/state"
)

func newCheckCommand(getApp appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run all diagnostics once, without recovery",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			report, err := app.Evaluator.Evaluate(cmd.Context())
			if err != nil {
				return err
			}
			renderReport(cmd.OutOrStdout(), report)
			if err := app.Store.Save(cmd.Context(), snapshotFromReport(report)); err != nil {
				app.Logger.Warn().Err(err).Msg("persisting snapshot failed")
			}
			if !report.Healthy() {
				return fmt.Errorf("stack unhealthy: %s", strings.Join(report.Failing(), ", "))
			}
			return nil
		},
	}
}

func newServiceCommand(getApp appFunc) *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Inspect or restart the Bluetooth service",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the Bluetooth service state",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			result := app.Checker.Service(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", result.Name, result.Status, result.Detail)
			if result.Failed() {
				return fmt.Errorf("service %s", result.Detail)
			}
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop and start the Bluetooth service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLadderAction(cmd, getApp, func(ctx context.Context, ladder *recovery.Ladder) recovery.Summary {
				return ladder.RunServiceRestart(ctx)
			})
		},
	}

	serviceCmd.AddCommand(statusCmd)
	serviceCmd.AddCommand(restartCmd)
	return serviceCmd
}

func newPowerCommand(getApp appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "power",
		Short: "Disable USB autosuspend on the Bluetooth adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLadderAction(cmd, getApp, func(ctx context.Context, ladder *recovery.Ladder) recovery.Summary {
				return ladder.RunPowerFix(ctx)
			})
		},
	}
}

func newUSBResetCommand(getApp appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "usb-reset",
		Short: "Power-cycle the Bluetooth USB device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLadderAction(cmd, getApp, func(ctx context.Context, ladder *recovery.Ladder) recovery.Summary {
				return ladder.RunUSBReset(ctx)
			})
		},
	}
}

func newStatusCommand(getApp appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last persisted health snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp()
			if err != nil {
				return err
			}
			snapshot, err := app.Store.Load(cmd.Context())
			if err != nil {
				return err
			}
			if snapshot == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no snapshot recorded yet; run a check first")
				return nil
			}
			renderSnapshot(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}
}

func newRecoverCommand(getApp appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Run the power, USB reset and service restart actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLadderAction(cmd, getApp, func(ctx context.Context, ladder *recovery.Ladder) recovery.Summary {
				return ladder.RunSubset(ctx)
			})
		},
	}
}

func newFullRecoverCommand(getApp appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "full-recover",
		Short: "Run the entire recovery ladder including the Broadcom fix",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLadderAction(cmd, getApp, func(ctx context.Context, ladder *recovery.Ladder) recovery.Summary {
				return ladder.RunAll(ctx)
			})
		},
	}
}

func runLadderAction(cmd *cobra.Command, getApp appFunc, run func(context.Context, *recovery.Ladder) recovery.Summary) error {
	app, err := getApp()
	if err != nil {
		return err
	}
	if app.confirm != nil && !app.confirm() {
		return errors.New("aborted")
	}
	summary := run(cmd.Context(), app.Ladder())
	renderSummary(cmd.OutOrStdout(), summary)
	if !summary.Recovered() {
		return fmt.Errorf("no recovery action succeeded (%d attempted)", summary.Attempted)
	}
	return nil
}

func snapshotFromReport(report health.Report) state.Snapshot {
	snapshot := state.Snapshot{
		Checks:        report.Statuses(),
		Details:       make(map[string]string, len(report.Checks)),
		BroadcomReset: report.BroadcomReset,
		EvaluatedAt:   report.EvaluatedAt,
	}
	for _, result := range report.Checks {
		snapshot.Details[result.Name] = result.Detail
	}
	return snapshot
}

func sortedCheckNames(snapshot *state.Snapshot) []string {
	names := make([]string, 0, len(snapshot.Checks))
	for name := range snapshot.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func renderReport(w io.Writer, report health.Report) {
	for _, result := range report.Checks {
		fmt.Fprintf(w, "%-14s %s  %s\n", result.Name+":", result.Status, result.Detail)
	}
	if report.BroadcomReset {
		fmt.Fprintln(w, "Broadcom reset failure signature detected")
	}
	fmt.Fprintln(w, report.Summary())
}

func renderSnapshot(w io.Writer, snapshot *state.Snapshot) {
	fmt.Fprintf(w, "last evaluated: %s\n", snapshot.EvaluatedAt.Format("2006-01-02 15:04:05 MST"))
	for _, name := range sortedCheckNames(snapshot) {
		detail := snapshot.Details[name]
		if detail != "" {
			fmt.Fprintf(w, "%-14s %s  %s\n", name+":", snapshot.Checks[name], detail)
		} else {
			fmt.Fprintf(w, "%-14s %s\n", name+":", snapshot.Checks[name])
		}
	}
	if snapshot.BroadcomReset {
		fmt.Fprintln(w, "Broadcom reset failure signature detected")
	}
}

func renderSummary(w io.Writer, summary recovery.Summary) {
	for _, outcome := range summary.Outcomes {
		verdict := "failed"
		if outcome.Succeeded {
			verdict = "ok"
		}
		fmt.Fprintf(w, "%-22s %s  %s\n", outcome.Action+":", verdict, outcome.Detail)
	}
	fmt.Fprintf(w, "%d/%d actions succeeded\n", summary.Succeeded, summary.Attempted)
}
