package mock

import (
	"sync"

	"cpyrepl/board"
)

const driverName = "mock"

// DefaultDevice is what a Driver reports when no devices are configured.
var DefaultDevice = board.Device{
	Port:         "mock0",
	IsUSB:        true,
	VID:          board.VIDAdafruit,
	PID:          0x8022,
	SerialNumber: "MOCK00000000",
}

// Driver exposes one mock Board and counts how often it is enumerated and opened.
type Driver struct {
	Board *Board

	mu         sync.Mutex
	devices    []board.Device
	detections int
	opens      int
}

func NewDriver(b *Board, devices ...board.Device) *Driver {
	if len(devices) == 0 {
		devices = []board.Device{DefaultDevice}
	}
	return &Driver{Board: b, devices: devices}
}

func (d *Driver) Detect() ([]board.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detections++
	return append([]board.Device(nil), d.devices...), nil
}

func (d *Driver) Open(dev board.Device) (board.Port, error) {
	d.mu.Lock()
	d.opens++
	d.mu.Unlock()

	b := d.Board
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failOpen != nil {
		return nil, b.failOpen
	}
	b.open = true
	return &Port{b: b}, nil
}

func (d *Driver) Detections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detections
}

func (d *Driver) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

func init() {
	board.Register(driverName, NewDriver(NewBoard(EchoHandler)))
}
