package recovery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nholik/bt-sentinel/internal/journal"
	"github.com/nholik/bt-sentinel/internal/poll"
)

const usbDriverBindGlob = "/sys/bus/usb/drivers/usb"

// resetUSB power-cycles the adapter's USB device node. Four mechanisms are
// tried in order; each only runs if the previous failed and its
// prerequisites exist.
func (l *Ladder) resetUSB(ctx context.Context) (string, error) {
	devices := l.locateAdapters()
	if len(devices) == 0 {
		return "", errors.New("no Bluetooth USB device found")
	}
	device := devices[0]

	methods := []struct {
		name string
		fn   func(context.Context, usbDevice) error
	}{
		{"authorized toggle", l.resetByAuthorized},
		{"driver unbind/rebind", l.resetByUnbind},
		{"usbreset utility", l.resetByTool},
		{"suspend/resume", l.resetBySuspend},
	}

	var errs []error
	for _, method := range methods {
		if err := method.fn(ctx, device); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", method.name, err))
			l.logger.Warn().Str("method", method.name).Err(err).Msg("USB reset method failed")
			continue
		}
		detail := fmt.Sprintf("device %s via %s", l.describe(device), method.name)
		l.journal.Recovery(journal.SeverityRecovery, "USB reset succeeded: "+detail)
		return detail, nil
	}

	return "", fmt.Errorf("all USB reset methods failed: %w", errors.Join(errs...))
}

// resetByAuthorized toggles the sysfs authorized flag, the cheapest way to
// force the kernel to tear down and re-create the device.
func (l *Ladder) resetByAuthorized(ctx context.Context, device usbDevice) error {
	authorizedPath := device.path + "/authorized"
	if !l.fs.Exists(authorizedPath) {
		return errors.New("authorized attribute not present")
	}

	if err := l.writeAttr(ctx, authorizedPath, "0"); err != nil {
		return err
	}
	l.sleep(ctx, l.timing.AuthorizedSettle)
	if err := l.writeAttr(ctx, authorizedPath, "1"); err != nil {
		return err
	}
	l.sleep(ctx, l.timing.AuthorizedSettle)

	if !l.controllerPresent() {
		return errors.New("controller did not reappear after authorized toggle")
	}
	return nil
}

// resetByUnbind detaches the device from its driver and reattaches it.
func (l *Ladder) resetByUnbind(ctx context.Context, device usbDevice) error {
	if !l.fs.Exists(device.path + "/driver") {
		return errors.New("device has no bound driver")
	}
	deviceName := filepath.Base(device.path)

	if err := l.writeAttr(ctx, device.path+"/driver/unbind", deviceName); err != nil {
		return fmt.Errorf("unbind: %w", err)
	}
	l.sleep(ctx, l.timing.UnbindSettle)
	if err := l.writeAttr(ctx, usbDriverBindGlob+"/bind", deviceName); err != nil {
		return fmt.Errorf("rebind: %w", err)
	}

	return l.waitReenumeration(ctx, l.timing.ReenumShort)
}

// resetByTool resets the device electrically through the usbreset utility,
// addressed by bus and device number.
func (l *Ladder) resetByTool(ctx context.Context, device usbDevice) error {
	if !l.cmd.LookPath("usbreset") {
		return errors.New("usbreset not installed")
	}

	busnum, err := l.readNumber(device.path + "/busnum")
	if err != nil {
		return fmt.Errorf("busnum: %w", err)
	}
	devnum, err := l.readNumber(device.path + "/devnum")
	if err != nil {
		return fmt.Errorf("devnum: %w", err)
	}

	node := fmt.Sprintf("/dev/bus/usb/%03d/%03d", busnum, devnum)
	result, err := l.runPrivileged(ctx, "usbreset", node)
	if err != nil {
		return err
	}
	if !result.Succeeded() {
		return fmt.Errorf("usbreset exit %d: %s", result.ExitCode, result.Stderr)
	}

	return l.waitReenumeration(ctx, l.timing.ReenumLong)
}

// resetBySuspend forces a runtime suspend/resume cycle through the power
// attributes, the last resort when nothing else is available.
func (l *Ladder) resetBySuspend(ctx context.Context, device usbDevice) error {
	controlPath := device.path + "/power/control"
	if !l.fs.Exists(controlPath) {
		return errors.New("power control attribute not present")
	}

	if err := l.writeAttr(ctx, device.path+"/power/autosuspend", "0"); err != nil {
		l.logger.Debug().Err(err).Msg("autosuspend attribute not writable")
	}
	if err := l.writeAttr(ctx, controlPath, "auto"); err != nil {
		return fmt.Errorf("suspend: %w", err)
	}
	l.sleep(ctx, l.timing.AuthorizedSettle)
	if err := l.writeAttr(ctx, controlPath, "on"); err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	return l.waitReenumeration(ctx, l.timing.ReenumShort)
}

// waitReenumeration polls sysfs for the controller's reappearance after an
// electrical reset. Absent paths during the wait are expected, not errors.
func (l *Ladder) waitReenumeration(ctx context.Context, maxWait time.Duration) error {
	err := poll.Until(ctx, l.timing.ReenumInterval, maxWait,
		func() (bool, error) {
			return l.controllerPresent(), nil
		},
		poll.WithProgress(l.timing.ReenumProgress, func(elapsed time.Duration) {
			l.logger.Info().Dur("elapsed", elapsed).Msg("waiting for USB re-enumeration")
		}),
	)
	if errors.Is(err, poll.ErrTimeout) {
		return fmt.Errorf("device did not re-enumerate within %s", maxWait)
	}
	return err
}

func (l *Ladder) readNumber(path string) (int, error) {
	content, err := l.fs.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(content)
}
