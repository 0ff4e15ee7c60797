package recovery

import (
	"context"
	"fmt"

	"github.com/nholik/bt-sentinel/internal/journal"
)

// btusbResetParam works around the BCM20703 reset bug: without a delay the
// chip answers the post-reset HCI command before its firmware is up.
const btusbResetParam = "reset_delay=200"

// fixBroadcom applies the chipset-specific remediation for the Broadcom
// reset failure: reload the transport module with the reset delay, then
// best-effort power-cycle the device and restart the daemon. The action
// succeeds if the module reload succeeded; the follow-up steps improve the
// odds but their failure is not decisive.
func (l *Ladder) fixBroadcom(ctx context.Context) (string, error) {
	l.checkFirmware()

	if result, err := l.runPrivileged(ctx, "modprobe", "-r", l.profile.USBModule); err != nil {
		return "", fmt.Errorf("unload %s: %w", l.profile.USBModule, err)
	} else if !result.Succeeded() {
		l.logger.Warn().Int("exit", result.ExitCode).Msg("btusb unload failed, continuing")
	}

	l.sleep(ctx, l.timing.ModulePause)

	result, err := l.runPrivileged(ctx, "modprobe", l.profile.USBModule, btusbResetParam)
	if err != nil {
		return "", fmt.Errorf("reload %s: %w", l.profile.USBModule, err)
	}
	if !result.Succeeded() {
		return "", fmt.Errorf("reload %s: exit %d: %s", l.profile.USBModule, result.ExitCode, result.Stderr)
	}
	l.journal.Recovery(journal.SeverityRecovery,
		fmt.Sprintf("Broadcom fix: %s reloaded with %s", l.profile.USBModule, btusbResetParam))

	// Best effort from here on.
	if devices := l.locateAdapters(); len(devices) > 0 {
		device := devices[0]
		if err := l.resetByAuthorized(ctx, device); err != nil {
			if err := l.resetByUnbind(ctx, device); err != nil {
				if err := l.resetByTool(ctx, device); err != nil {
					l.logger.Warn().Err(err).Msg("Broadcom fix: power cycle failed")
				}
			}
		}
	}

	if _, err := l.restartService(ctx); err != nil {
		l.logger.Warn().Err(err).Msg("Broadcom fix: service restart failed")
	}

	return fmt.Sprintf("%s reloaded with %s", l.profile.USBModule, btusbResetParam), nil
}

// checkFirmware logs whether vendor firmware is present. Missing firmware
// explains a persistent reset failure but is not fixable from here.
func (l *Ladder) checkFirmware() {
	for _, pattern := range l.profile.FirmwareGlobs {
		if matches, err := l.fs.Glob(pattern); err == nil && len(matches) > 0 {
			l.logger.Debug().Str("firmware", matches[0]).Msg("vendor firmware present")
			return
		}
	}
	l.logger.Warn().Msg("no vendor firmware found for Broadcom adapter")
	l.journal.Recovery(journal.SeverityWarning, "Broadcom fix: vendor firmware not found")
}
