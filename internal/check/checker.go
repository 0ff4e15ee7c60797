package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nholik/bt-sentinel/internal/config"
	"github.com/nholik/bt-sentinel/internal/system"
)

const functionalityTimeout = 5 * time.Second

const sysfsBluetoothGlob = "/sys/class/bluetooth/hci*"

// Checker runs the individual diagnostics against the host. Each check is
// a pure function of current system state.
type Checker struct {
	cmd     system.Commander
	fs      system.FS
	profile config.Profile
	logger  zerolog.Logger
}

// New constructs a Checker.
func New(logger zerolog.Logger, cmd system.Commander, fs system.FS, profile config.Profile) *Checker {
	return &Checker{
		cmd:     cmd,
		fs:      fs,
		profile: profile,
		logger:  logger,
	}
}

// Modules verifies that both the generic Bluetooth module and the USB
// transport module are loaded. A partial state is a failure in its own
// right: one module without the other means a broken load or unload.
func (c *Checker) Modules(ctx context.Context) Result {
	result, err := c.cmd.Run(ctx, "lsmod")
	if err != nil {
		if errors.Is(err, system.ErrToolMissing) {
			return Result{Name: NameModules, Status: StatusUnknown, Detail: "lsmod not available"}
		}
		return Result{Name: NameModules, Status: StatusUnknown, Detail: err.Error()}
	}

	core := moduleLoaded(result.Stdout, c.profile.CoreModule)
	transport := moduleLoaded(result.Stdout, c.profile.USBModule)

	switch {
	case core && transport:
		return Result{Name: NameModules, Status: StatusOK, Detail: fmt.Sprintf("%s and %s loaded", c.profile.CoreModule, c.profile.USBModule)}
	case core:
		return Result{Name: NameModules, Status: StatusFail, Detail: fmt.Sprintf("%s loaded but %s missing", c.profile.CoreModule, c.profile.USBModule)}
	case transport:
		return Result{Name: NameModules, Status: StatusFail, Detail: fmt.Sprintf("%s loaded but %s missing", c.profile.USBModule, c.profile.CoreModule)}
	default:
		return Result{Name: NameModules, Status: StatusFail, Detail: "no Bluetooth kernel modules loaded"}
	}
}

// Hardware looks for a controller through three mechanisms in order: the
// sysfs Bluetooth class, USB enumeration and the legacy HCI tool. The
// first positive signal wins.
func (c *Checker) Hardware(ctx context.Context) Result {
	if entries, err := c.fs.Glob(sysfsBluetoothGlob); err == nil && len(entries) > 0 {
		return Result{Name: NameHardware, Status: StatusOK, Detail: fmt.Sprintf("controller in sysfs: %s", entries[0])}
	}

	if result, err := c.cmd.Run(ctx, "lsusb"); err == nil && result.Succeeded() {
		if id, ok := c.matchUSBListing(result.Stdout); ok {
			return Result{Name: NameHardware, Status: StatusOK, Detail: fmt.Sprintf("USB adapter %s", id)}
		}
	}

	if result, err := c.cmd.Run(ctx, "hciconfig"); err == nil {
		output := result.Stdout + result.Stderr
		if strings.TrimSpace(output) != "" && !strings.Contains(output, "No such device") {
			return Result{Name: NameHardware, Status: StatusOK, Detail: "adapter visible to hciconfig"}
		}
	}

	return Result{Name: NameHardware, Status: StatusFail, Detail: "no Bluetooth hardware detected"}
}

// Service checks the Bluetooth daemon unit through systemctl, falling back
// to the legacy service command when systemctl is unavailable.
func (c *Checker) Service(ctx context.Context) Result {
	unit := c.profile.ServiceUnit

	if c.cmd.LookPath("systemctl") {
		result, err := c.cmd.Run(ctx, "systemctl", "is-active", unit)
		if err != nil {
			return Result{Name: NameService, Status: StatusUnknown, Detail: err.Error()}
		}
		state := strings.TrimSpace(result.Stdout)
		if result.Succeeded() && state == "active" {
			return Result{Name: NameService, Status: StatusOK, Detail: "unit active"}
		}
		if state == "" {
			state = "inactive"
		}
		return Result{Name: NameService, Status: StatusFail, Detail: fmt.Sprintf("unit %s", state)}
	}

	result, err := c.cmd.Run(ctx, "service", unit, "status")
	if err != nil {
		if errors.Is(err, system.ErrToolMissing) {
			return Result{Name: NameService, Status: StatusUnknown, Detail: "no service manager found"}
		}
		return Result{Name: NameService, Status: StatusUnknown, Detail: err.Error()}
	}
	if result.Succeeded() {
		return Result{Name: NameService, Status: StatusOK, Detail: "service reports running"}
	}
	return Result{Name: NameService, Status: StatusFail, Detail: "service not running"}
}

// Functionality probes the controller through bluetoothctl with a bounded
// timeout. A timeout is a soft failure: the controller may be wedged or
// the CLI slow, and the distinction matters for recovery.
func (c *Checker) Functionality(ctx context.Context) Result {
	result, err := c.cmd.RunTimeout(ctx, functionalityTimeout, "bluetoothctl", "show")
	if err != nil {
		switch {
		case errors.Is(err, system.ErrTimeout):
			return Result{Name: NameFunctionality, Status: StatusUnknown, Detail: "bluetoothctl show timed out"}
		case errors.Is(err, system.ErrToolMissing):
			return Result{Name: NameFunctionality, Status: StatusUnknown, Detail: "bluetoothctl not available"}
		default:
			return Result{Name: NameFunctionality, Status: StatusUnknown, Detail: err.Error()}
		}
	}

	output := result.Stdout + result.Stderr
	switch {
	case strings.Contains(output, "No default controller available"):
		return Result{Name: NameFunctionality, Status: StatusFail, Detail: "no default controller"}
	case strings.Contains(output, "Controller"):
		return Result{Name: NameFunctionality, Status: StatusOK, Detail: "controller responding"}
	default:
		// Unexpected output is kept verbatim for diagnosis.
		return Result{Name: NameFunctionality, Status: StatusFail, Detail: fmt.Sprintf("unexpected bluetoothctl output: %q", strings.TrimSpace(output))}
	}
}

func (c *Checker) matchUSBListing(listing string) (string, bool) {
	lower := strings.ToLower(listing)
	for _, id := range c.profile.VendorIDs {
		if strings.Contains(lower, strings.ToLower(id)) {
			return id, true
		}
	}
	if strings.Contains(lower, "bluetooth") {
		return "generic", true
	}
	return "", false
}

func moduleLoaded(lsmodOutput, module string) bool {
	for _, line := range strings.Split(lsmodOutput, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == module {
			return true
		}
	}
	return false
}
