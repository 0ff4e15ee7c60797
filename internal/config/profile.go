package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes the adapter and driver identity the sentinel watches.
// The defaults cover the common btusb-attached adapter; a YAML profile file
// can override any field for unusual hardware.
type Profile struct {
	// ServiceUnit is the init-system unit name for the Bluetooth daemon.
	ServiceUnit string `yaml:"service_unit"`
	// CoreModule is the generic Bluetooth stack kernel module.
	CoreModule string `yaml:"core_module"`
	// USBModule is the USB transport kernel module.
	USBModule string `yaml:"usb_module"`
	// VendorIDs lists vendor:product pairs recognized as Bluetooth adapters
	// in USB enumeration output.
	VendorIDs []string `yaml:"vendor_ids"`
	// BroadcomID is the Apple/Broadcom adapter implicated in the reset bug.
	BroadcomID string `yaml:"broadcom_id"`
	// ResetMarker is the kernel log line that identifies the Broadcom
	// reset failure.
	ResetMarker string `yaml:"reset_marker"`
	// FirmwareGlobs are searched for vendor firmware during the Broadcom fix.
	FirmwareGlobs []string `yaml:"firmware_globs"`
}

// DefaultProfile returns the built-in adapter profile.
func DefaultProfile() Profile {
	return Profile{
		ServiceUnit: "bluetooth",
		CoreModule:  "bluetooth",
		USBModule:   "btusb",
		VendorIDs: []string{
			"05ac:8294", // Apple/Broadcom BCM20703A1
			"0a5c:216f", // Broadcom BCM20702B0
			"8087:0a2b", // Intel
			"0cf3:e007", // Qualcomm Atheros
		},
		BroadcomID:  "05ac:8294",
		ResetMarker: "BCM: Reset failed",
		FirmwareGlobs: []string{
			"/lib/firmware/brcm/*.hcd",
			"/usr/lib/firmware/brcm/*.hcd",
		},
	}
}

// LoadProfile parses a YAML profile from path, merged over the defaults.
// An empty path returns the defaults unchanged.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile file: %w", err)
	}

	var override Profile
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Profile{}, fmt.Errorf("parse profile file: %w", err)
	}

	if override.ServiceUnit != "" {
		profile.ServiceUnit = override.ServiceUnit
	}
	if override.CoreModule != "" {
		profile.CoreModule = override.CoreModule
	}
	if override.USBModule != "" {
		profile.USBModule = override.USBModule
	}
	if len(override.VendorIDs) > 0 {
		profile.VendorIDs = override.VendorIDs
	}
	if override.BroadcomID != "" {
		profile.BroadcomID = override.BroadcomID
	}
	if override.ResetMarker != "" {
		profile.ResetMarker = override.ResetMarker
	}
	if len(override.FirmwareGlobs) > 0 {
		profile.FirmwareGlobs = override.FirmwareGlobs
	}

	if err := validateProfile(profile); err != nil {
		return Profile{}, err
	}

	return profile, nil
}

func validateProfile(profile Profile) error {
	if profile.ServiceUnit == "" {
		return fmt.Errorf("profile: service_unit is required")
	}
	if profile.CoreModule == "" || profile.USBModule == "" {
		return fmt.Errorf("profile: core_module and usb_module are required")
	}
	if profile.CoreModule == profile.USBModule {
		return fmt.Errorf("profile: core_module and usb_module must differ")
	}
	return nil
}
