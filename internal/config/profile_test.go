package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfile_Defaults(t *testing.T) {
	profile, err := LoadProfile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ServiceUnit != "bluetooth" {
		t.Fatalf("expected bluetooth unit, got %q", profile.ServiceUnit)
	}
	if profile.CoreModule != "bluetooth" || profile.USBModule != "btusb" {
		t.Fatalf("unexpected modules: %q %q", profile.CoreModule, profile.USBModule)
	}
	if profile.BroadcomID != "05ac:8294" {
		t.Fatalf("unexpected broadcom id %q", profile.BroadcomID)
	}
	if len(profile.VendorIDs) == 0 {
		t.Fatal("expected default vendor ids")
	}
}

func TestLoadProfile_OverrideMergesWithDefaults(t *testing.T) {
	path := writeProfile(t, "service_unit: bluez\nvendor_ids:\n  - \"1234:abcd\"\n")

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ServiceUnit != "bluez" {
		t.Fatalf("expected override unit, got %q", profile.ServiceUnit)
	}
	if len(profile.VendorIDs) != 1 || profile.VendorIDs[0] != "1234:abcd" {
		t.Fatalf("expected override vendor ids, got %v", profile.VendorIDs)
	}
	// Untouched fields keep defaults.
	if profile.USBModule != "btusb" {
		t.Fatalf("expected default usb module, got %q", profile.USBModule)
	}
}

func TestLoadProfile_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "service_unit: [unterminated"},
		{"same modules", "core_module: btusb\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeProfile(t, tc.content)
			if _, err := LoadProfile(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadProfile_MissingFile(t *testing.T) {
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for missing profile file")
	}
}

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}
