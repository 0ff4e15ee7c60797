package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nholik/bt-sentinel/internal/journal"
	"github.com/nholik/bt-sentinel/internal/poll"
)

// restartService stops and then starts the Bluetooth unit. An explicit
// stop/start forces full daemon re-initialization, which a restart-in-place
// does not guarantee.
func (l *Ladder) restartService(ctx context.Context) (string, error) {
	unit := l.profile.ServiceUnit

	if l.cmd.LookPath("systemctl") {
		if result, err := l.runPrivileged(ctx, "systemctl", "stop", unit); err != nil {
			return "", fmt.Errorf("stop %s: %w", unit, err)
		} else if !result.Succeeded() {
			l.logger.Warn().Str("unit", unit).Int("exit", result.ExitCode).Msg("stop failed, attempting start anyway")
		}

		l.sleep(ctx, l.timing.StopStartPause)

		result, err := l.runPrivileged(ctx, "systemctl", "start", unit)
		if err != nil {
			return "", fmt.Errorf("start %s: %w", unit, err)
		}
		if !result.Succeeded() {
			return "", fmt.Errorf("start %s: exit %d: %s", unit, result.ExitCode, strings.TrimSpace(result.Stderr))
		}

		detail := fmt.Sprintf("unit %s stopped and started", unit)
		l.journal.Recovery(journal.SeverityRecovery, "service restart: "+detail)
		return detail, nil
	}

	// Legacy init: restart and verify by process presence, since there is
	// no unit state to query.
	result, err := l.runPrivileged(ctx, "service", unit, "restart")
	if err != nil {
		return "", fmt.Errorf("restart %s: %w", unit, err)
	}
	if !result.Succeeded() {
		return "", fmt.Errorf("restart %s: exit %d", unit, result.ExitCode)
	}

	if l.cmd.LookPath("pgrep") {
		err := poll.Until(ctx, l.timing.ReenumInterval, l.timing.ReenumShort, func() (bool, error) {
			probe, err := l.cmd.Run(ctx, "pgrep", "-x", "bluetoothd")
			if err != nil {
				return false, err
			}
			return probe.Succeeded(), nil
		})
		if errors.Is(err, poll.ErrTimeout) {
			return "", errors.New("bluetoothd not running after restart")
		}
		if err != nil {
			return "", err
		}
	}

	detail := fmt.Sprintf("service %s restarted", unit)
	l.journal.Recovery(journal.SeverityRecovery, "service restart: "+detail)
	return detail, nil
}
