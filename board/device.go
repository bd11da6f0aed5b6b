package board

import "fmt"

// Vendor IDs of common microcontroller USB-serial bridges.
const (
	VIDAdafruit    uint16 = 0x239A
	VIDSiliconLabs uint16 = 0x10C4 // CP210x, e.g. Feather Huzzah ESP8266
	VIDRaspberryPi uint16 = 0x2E8A
	VIDEspressif   uint16 = 0x303A
)

// DefaultVendorIDs is the allow-list used when none is configured.
var DefaultVendorIDs = []uint16{
	VIDAdafruit,
	VIDSiliconLabs,
	VIDRaspberryPi,
	VIDEspressif,
}

// Device describes one transport endpoint. It is recomputed on every connection attempt.
type Device struct {
	Port         string
	IsUSB        bool
	VID          uint16
	PID          uint16
	SerialNumber string
}

func (d Device) DisplayName() string {
	if !d.IsUSB {
		return d.Port
	}
	return fmt.Sprintf("%s (%04x:%04x)", d.Port, d.VID, d.PID)
}

// Matches reports whether the device's vendor id is in vids.
func (d Device) Matches(vids []uint16) bool {
	if !d.IsUSB {
		return false
	}
	for _, vid := range vids {
		if d.VID == vid {
			return true
		}
	}
	return false
}

// FindDevice enumerates the driver's endpoints and returns the first whose
// vendor id is in vids. When port is not empty it selects that endpoint by
// name instead, falling back to the bare name if enumeration does not list it.
func FindDevice(driver Driver, vids []uint16, port string) (dev Device, err error) {
	var devices []Device
	devices, err = driver.Detect()
	if err != nil {
		err = newError("find device", ErrDeviceNotFound, err)
		return
	}

	for _, d := range devices {
		if port != "" {
			if d.Port == port {
				return d, nil
			}
			continue
		}
		if d.Matches(vids) {
			return d, nil
		}
	}

	if port != "" {
		return Device{Port: port}, nil
	}

	err = newError("find device", ErrDeviceNotFound, fmt.Errorf("no endpoint among %d matches vendor ids %s", len(devices), formatVIDs(vids)))
	return
}

func formatVIDs(vids []uint16) string {
	s := "["
	for i, vid := range vids {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%04x", vid)
	}
	return s + "]"
}
