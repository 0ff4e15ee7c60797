package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nholik/bt-sentinel/internal/logging"
)

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	if _, err := Open(dir, logging.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestOpen_UnwritableDirectoryFails(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not bind root")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if _, err := Open(dir, logging.New()); err == nil {
		t.Fatal("expected error for unwritable directory")
	}
}

func TestAppend_LineFormatAndRouting(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, logging.New())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	j.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	j.Event(SeverityInfo, "startup complete")
	j.Status(SeverityWarning, "functionality: fail")
	j.Recovery(SeverityRecovery, "USB reset succeeded")

	cases := []struct {
		file string
		want string
	}{
		{eventFile, "2026-03-14 09:26:53 [INFO] startup complete\n"},
		{statusFile, "2026-03-14 09:26:53 [WARNING] functionality: fail\n"},
		{recoveryFile, "2026-03-14 09:26:53 [RECOVERY] USB reset succeeded\n"},
	}
	for _, tc := range cases {
		data, err := os.ReadFile(filepath.Join(dir, tc.file))
		if err != nil {
			t.Fatalf("read %s: %v", tc.file, err)
		}
		if string(data) != tc.want {
			t.Fatalf("%s content %q, want %q", tc.file, data, tc.want)
		}
	}
}

func TestAppend_IsAppendOnly(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, logging.New())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	j.Event(SeverityInfo, "first")
	j.Event(SeverityError, "second")

	data, err := os.ReadFile(filepath.Join(dir, eventFile))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[0], "[INFO] first") || !strings.Contains(lines[1], "[ERROR] second") {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestNilJournal_IsSafe(t *testing.T) {
	var j *Journal
	j.Event(SeverityInfo, "ignored")
	j.Status(SeverityInfo, "ignored")
	j.Recovery(SeverityInfo, "ignored")
}
