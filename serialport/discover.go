package serialport

import (
	"errors"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// TKey USB device identity (vendor and product), as hex strings in the form
// the port enumerator reports them.
const (
	USBVendorID  = "1207"
	USBProductID = "8887"
)

// ErrNoDevice is returned by Find when no TKey is attached.
var ErrNoDevice = errors.New("no TKey device found")

// DeviceInfo describes one attached TKey serial device.
type DeviceInfo struct {
	// Name is the serial device path, e.g. /dev/ttyACM0
	Name string

	// SerialNumber is the USB serial number string, if reported
	SerialNumber string
}

// List returns all attached TKey devices, sorted by device path.
func List() ([]DeviceInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	var devices []DeviceInfo
	for _, p := range ports {
		if !isTKey(p) {
			continue
		}
		devices = append(devices, DeviceInfo{
			Name:         p.Name,
			SerialNumber: p.SerialNumber,
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })

	return devices, nil
}

// Find returns the first usable TKey device found.
func Find() (DeviceInfo, error) {
	devices, err := List()
	if err != nil {
		return DeviceInfo{}, err
	}
	if len(devices) == 0 {
		return DeviceInfo{}, ErrNoDevice
	}
	return devices[0], nil
}

func isTKey(p *enumerator.PortDetails) bool {
	return p.IsUSB &&
		strings.EqualFold(p.VID, USBVendorID) &&
		strings.EqualFold(p.PID, USBProductID)
}
