package recovery

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nholik/bt-sentinel/internal/journal"
)

const udevRulePath = "/etc/udev/rules.d/99-bt-sentinel-power.rules"

// fixPowerManagement disables USB autosuspend for every detected Bluetooth
// adapter. Auto-suspended controllers are the most common cause of an
// adapter that enumerates but never responds.
func (l *Ladder) fixPowerManagement(ctx context.Context) (string, error) {
	devices := l.locateAdapters()
	if len(devices) == 0 {
		return "", errors.New("no Bluetooth USB device found")
	}

	corrected := 0
	alreadyOn := 0
	var lastErr error

	for _, device := range devices {
		controlPath := device.path + "/power/control"
		mode, err := l.fs.ReadFile(controlPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				lastErr = err
			}
			continue
		}

		fixed := false
		switch mode {
		case "auto":
			if err := l.writeAttr(ctx, controlPath, "on"); err != nil {
				lastErr = fmt.Errorf("set %s: %w", controlPath, err)
				continue
			}
			fixed = true
			l.journal.Recovery(journal.SeverityRecovery, fmt.Sprintf("power control forced on for %s", l.describe(device)))
			l.persistPowerRule(ctx, device)
		case "on":
			alreadyOn++
		default:
			l.logger.Warn().Str("device", device.path).Str("mode", mode).Msg("unexpected power control mode")
		}

		// A device stuck in runtime suspend stays unresponsive even with
		// control=on until it is woken explicitly.
		statusPath := device.path + "/power/runtime_status"
		if status, err := l.fs.ReadFile(statusPath); err == nil && status == "suspended" {
			if err := l.writeAttr(ctx, controlPath, "on"); err == nil {
				fixed = true
				l.journal.Recovery(journal.SeverityRecovery, fmt.Sprintf("cleared runtime suspend on %s", l.describe(device)))
			}
		}

		// One device contributes at most once to the corrected count even
		// when it needed both the control flip and the suspend wakeup.
		if fixed {
			corrected++
		}
	}

	if corrected == 0 && alreadyOn == 0 {
		if lastErr != nil {
			return "", lastErr
		}
		return "", errors.New("no power control attributes found")
	}
	return fmt.Sprintf("%d corrected, %d already on", corrected, alreadyOn), nil
}

// persistPowerRule pins the vendor:product pair to power/control=on across
// replug and reboot. Best effort: requires privilege and udev.
func (l *Ladder) persistPowerRule(ctx context.Context, device usbDevice) {
	if !l.priv.IsRoot() && !l.priv.CanElevate(ctx) {
		l.logger.Debug().Msg("skipping udev rule: no privilege")
		return
	}
	if !l.fs.Exists("/etc/udev/rules.d") {
		return
	}

	rule := fmt.Sprintf(
		"ACTION==\"add\", SUBSYSTEM==\"usb\", ATTR{idVendor}==\"%s\", ATTR{idProduct}==\"%s\", TEST==\"power/control\", ATTR{power/control}=\"on\"\n",
		device.vendor, device.product)
	if err := l.writeAttr(ctx, udevRulePath, rule); err != nil {
		l.logger.Warn().Err(err).Msg("failed to write udev power rule")
		return
	}

	if l.cmd.LookPath("udevadm") {
		if _, err := l.runPrivileged(ctx, "udevadm", "control", "--reload-rules"); err != nil {
			l.logger.Warn().Err(err).Msg("udev rule written but reload failed")
			return
		}
	}
	l.journal.Recovery(journal.SeverityRecovery, fmt.Sprintf("persistent power rule written for %s", device.id()))
}
