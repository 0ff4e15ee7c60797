package recovery

import (
	"context"
	"fmt"

	"github.com/nholik/bt-sentinel/internal/journal"
)

// reloadModules unloads and reloads the Bluetooth kernel modules. Unload
// order is dependents first (btusb before bluetooth); reload is the
// reverse.
func (l *Ladder) reloadModules(ctx context.Context) (string, error) {
	core := l.profile.CoreModule
	transport := l.profile.USBModule

	// Unload failures are tolerated: the module may simply not be loaded,
	// which is one of the states this action repairs.
	for _, module := range []string{transport, core} {
		if result, err := l.runPrivileged(ctx, "modprobe", "-r", module); err != nil {
			return "", fmt.Errorf("unload %s: %w", module, err)
		} else if !result.Succeeded() {
			l.logger.Warn().Str("module", module).Int("exit", result.ExitCode).Msg("module unload failed")
		}
	}

	l.sleep(ctx, l.timing.ModulePause)

	for _, module := range []string{core, transport} {
		result, err := l.runPrivileged(ctx, "modprobe", module)
		if err != nil {
			return "", fmt.Errorf("load %s: %w", module, err)
		}
		if !result.Succeeded() {
			return "", fmt.Errorf("load %s: exit %d: %s", module, result.ExitCode, result.Stderr)
		}
	}

	detail := fmt.Sprintf("%s and %s reloaded", core, transport)
	l.journal.Recovery(journal.SeverityRecovery, "module reload: "+detail)
	return detail, nil
}
