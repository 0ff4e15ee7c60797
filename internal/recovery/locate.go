package recovery

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	sysfsBluetoothGlob  = "/sys/class/bluetooth/hci*"
	sysfsUSBDevicesGlob = "/sys/bus/usb/devices/*"
)

// usbDevice is a located USB device node backing a Bluetooth controller.
type usbDevice struct {
	path    string // sysfs device directory
	vendor  string
	product string
}

func (d usbDevice) id() string {
	return d.vendor + ":" + d.product
}

// locateAdapters finds USB device nodes for present controllers: first by
// walking up from the sysfs Bluetooth class entries, then by matching
// known vendor:product pairs across the whole USB tree.
func (l *Ladder) locateAdapters() []usbDevice {
	var devices []usbDevice
	seen := map[string]bool{}

	entries, _ := l.fs.Glob(sysfsBluetoothGlob)
	for _, entry := range entries {
		if device, ok := l.walkToUSBDevice(filepath.Join(entry, "device")); ok && !seen[device.path] {
			seen[device.path] = true
			devices = append(devices, device)
		}
	}
	if len(devices) > 0 {
		return devices
	}

	candidates, _ := l.fs.Glob(sysfsUSBDevicesGlob)
	for _, candidate := range candidates {
		device, ok := l.readIdentity(candidate)
		if !ok {
			continue
		}
		for _, id := range l.profile.VendorIDs {
			if strings.EqualFold(id, device.id()) && !seen[device.path] {
				seen[device.path] = true
				devices = append(devices, device)
				break
			}
		}
	}
	return devices
}

// walkToUSBDevice resolves the class symlink into the physical device tree
// and climbs the ancestry until it reaches a node with a USB identity.
// Controllers sit an interface level or two below the USB device.
func (l *Ladder) walkToUSBDevice(start string) (usbDevice, bool) {
	candidate, err := l.fs.Resolve(start)
	if err != nil {
		return usbDevice{}, false
	}
	for depth := 0; depth < 4; depth++ {
		if device, ok := l.readIdentity(candidate); ok {
			return device, true
		}
		parent := filepath.Dir(candidate)
		if parent == candidate {
			break
		}
		candidate = parent
	}
	return usbDevice{}, false
}

func (l *Ladder) readIdentity(path string) (usbDevice, bool) {
	vendor, err := l.fs.ReadFile(filepath.Join(path, "idVendor"))
	if err != nil {
		return usbDevice{}, false
	}
	product, err := l.fs.ReadFile(filepath.Join(path, "idProduct"))
	if err != nil {
		return usbDevice{}, false
	}
	return usbDevice{path: path, vendor: vendor, product: product}, true
}

// controllerPresent reports whether any controller is visible in sysfs.
func (l *Ladder) controllerPresent() bool {
	entries, err := l.fs.Glob(sysfsBluetoothGlob)
	return err == nil && len(entries) > 0
}

func (l *Ladder) describe(device usbDevice) string {
	return fmt.Sprintf("%s (%s)", filepath.Base(device.path), device.id())
}
