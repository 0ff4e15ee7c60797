//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nholik/bt-sentinel/internal/check"
	"github.com/nholik/bt-sentinel/internal/config"
	"github.com/nholik/bt-sentinel/internal/health"
	"github.com/nholik/bt-sentinel/internal/journal"
	"github.com/nholik/bt-sentinel/internal/logging"
	"github.com/nholik/bt-sentinel/internal/system"
)

// TestIntegrationRealHost runs the diagnostics against the machine the
// test executes on. It never mutates system state.
//
// Prerequisites:
//   - a Linux host with bluez installed (bluetoothctl on PATH)
//
// Run with: go test -tags=integration -v ./test/integration/...
func TestIntegrationRealHost(t *testing.T) {
	host := system.NewHost()
	if !host.LookPath("bluetoothctl") && !host.LookPath("hciconfig") {
		t.Skip("no Bluetooth tooling on this host")
	}
	if _, err := os.Stat("/sys/class/bluetooth"); err != nil {
		t.Skipf("no Bluetooth sysfs class: %v", err)
	}

	logger := logging.New()
	profile := config.DefaultProfile()
	checker := check.New(logger, host, host, profile)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Checks", func(t *testing.T) {
		results := []check.Result{
			checker.Modules(ctx),
			checker.Hardware(ctx),
			checker.Service(ctx),
			checker.Functionality(ctx),
		}
		for _, result := range results {
			if result.Name == "" || result.Status == "" {
				t.Fatalf("incomplete result: %+v", result)
			}
			t.Logf("%s: %s (%s)", result.Name, result.Status, result.Detail)
		}
	})

	t.Run("Evaluator", func(t *testing.T) {
		jrnl, err := journal.Open(t.TempDir(), logger)
		if err != nil {
			t.Fatalf("open journal: %v", err)
		}
		evaluator := health.NewEvaluator(logger, checker, host, profile, jrnl)

		report, err := evaluator.Evaluate(ctx)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if len(report.Checks) != 4 {
			t.Fatalf("expected 4 checks, got %d", len(report.Checks))
		}
		t.Logf("healthy=%v broadcom=%v failing=%v", report.Healthy(), report.BroadcomReset, report.Failing())
	})
}
