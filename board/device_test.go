package board

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listDriver struct {
	devices []Device
	err     error
}

func (d *listDriver) Detect() ([]Device, error) { return d.devices, d.err }

func (d *listDriver) Open(Device) (Port, error) { return nil, errors.New("not implemented") }

func TestFindDeviceFirstMatchWins(t *testing.T) {
	d := &listDriver{devices: []Device{
		{Port: "/dev/ttyS0"},
		{Port: "/dev/ttyUSB0", IsUSB: true, VID: 0x0403},
		{Port: "/dev/ttyACM0", IsUSB: true, VID: VIDRaspberryPi},
		{Port: "/dev/ttyACM1", IsUSB: true, VID: VIDAdafruit},
	}}

	dev, err := FindDevice(d, DefaultVendorIDs, "")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", dev.Port)

	dev, err = FindDevice(d, []uint16{VIDAdafruit}, "")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", dev.Port)
}

func TestFindDeviceNotFound(t *testing.T) {
	d := &listDriver{devices: []Device{{Port: "/dev/ttyUSB0", IsUSB: true, VID: 0x0403}}}
	_, err := FindDevice(d, DefaultVendorIDs, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))

	d = &listDriver{err: errors.New("enumeration failed")}
	_, err = FindDevice(d, DefaultVendorIDs, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
	assert.Contains(t, err.Error(), "enumeration failed")
}

func TestFindDeviceExplicitPort(t *testing.T) {
	d := &listDriver{devices: []Device{
		{Port: "/dev/ttyACM0", IsUSB: true, VID: VIDAdafruit},
		{Port: "/dev/ttyUSB0", IsUSB: true, VID: 0x0403, PID: 0x6001},
	}}

	dev, err := FindDevice(d, DefaultVendorIDs, "/dev/ttyUSB0")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x6001), dev.PID)

	dev, err = FindDevice(d, DefaultVendorIDs, "/dev/ttyS9")
	require.NoError(t, err)
	assert.Equal(t, Device{Port: "/dev/ttyS9"}, dev)
}

func TestDeviceDisplayName(t *testing.T) {
	assert.Equal(t, "/dev/ttyS0", Device{Port: "/dev/ttyS0"}.DisplayName())
	assert.Equal(t, "/dev/ttyACM0 (239a:8022)", Device{Port: "/dev/ttyACM0", IsUSB: true, VID: 0x239A, PID: 0x8022}.DisplayName())
}
