package system

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHostRun_CapturesExitAndOutput(t *testing.T) {
	host := NewHost()

	result, err := host.Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit 3, got %d", result.ExitCode)
	}
	if result.Stdout != "out\n" {
		t.Fatalf("unexpected stdout %q", result.Stdout)
	}
	if result.Stderr != "err\n" {
		t.Fatalf("unexpected stderr %q", result.Stderr)
	}
	if result.Succeeded() {
		t.Fatal("exit 3 must not report success")
	}
}

func TestHostRun_MissingTool(t *testing.T) {
	host := NewHost()

	_, err := host.Run(context.Background(), "definitely-not-a-real-binary-46231")
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("expected ErrToolMissing, got %v", err)
	}
}

func TestHostRunTimeout_KillsSlowCommand(t *testing.T) {
	host := NewHost()

	start := time.Now()
	_, err := host.RunTimeout(context.Background(), 100*time.Millisecond, "sleep", "10")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("command not killed promptly, took %s", elapsed)
	}
}

func TestHostFS_ReadWriteExists(t *testing.T) {
	host := NewHost()
	path := filepath.Join(t.TempDir(), "control")

	if host.Exists(path) {
		t.Fatal("path must not exist yet")
	}
	if err := host.WriteFile(path, "on"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !host.Exists(path) {
		t.Fatal("path must exist after write")
	}

	content, err := host.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if content != "on" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestHostFS_ReadTrimsTrailingNewline(t *testing.T) {
	host := NewHost()
	path := filepath.Join(t.TempDir(), "status")
	if err := os.WriteFile(path, []byte("auto\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	content, err := host.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if content != "auto" {
		t.Fatalf("expected trimmed content, got %q", content)
	}
}

func TestPrivilege_RootRunsDirectly(t *testing.T) {
	priv := NewPrivilege(NewHost(), func() int { return 0 })

	name, args, err := priv.Wrap(context.Background(), "modprobe", "btusb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "modprobe" || len(args) != 1 || args[0] != "btusb" {
		t.Fatalf("unexpected wrapped command %s %v", name, args)
	}
}

func TestPrivilege_NoElevationFailsFast(t *testing.T) {
	priv := NewPrivilege(noSudoCommander{}, func() int { return 1000 })

	_, _, err := priv.Wrap(context.Background(), "modprobe", "btusb")
	if !errors.Is(err, ErrNeedRoot) {
		t.Fatalf("expected ErrNeedRoot, got %v", err)
	}
}

func TestPrivilege_SudoProbeCached(t *testing.T) {
	commander := &countingCommander{}
	priv := NewPrivilege(commander, func() int { return 1000 })

	for i := 0; i < 3; i++ {
		if !priv.CanElevate(context.Background()) {
			t.Fatal("expected elevation to be available")
		}
	}
	if commander.runs != 1 {
		t.Fatalf("expected one sudo probe, got %d", commander.runs)
	}
}

type noSudoCommander struct{}

func (noSudoCommander) Run(context.Context, string, ...string) (Result, error) {
	return Result{ExitCode: 1}, nil
}

func (noSudoCommander) RunTimeout(context.Context, time.Duration, string, ...string) (Result, error) {
	return Result{ExitCode: 1}, nil
}

func (noSudoCommander) LookPath(string) bool { return false }

type countingCommander struct {
	runs int
}

func (c *countingCommander) Run(context.Context, string, ...string) (Result, error) {
	c.runs++
	return Result{}, nil
}

func (c *countingCommander) RunTimeout(context.Context, time.Duration, string, ...string) (Result, error) {
	return Result{}, nil
}

func (c *countingCommander) LookPath(string) bool { return true }
