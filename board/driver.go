package board

import (
	"fmt"
	"sort"
	"sync"
)

// Port is an open byte stream to a board.
type Port interface {
	// Write sends bytes to the board; it may write fewer than len(p).
	Write(p []byte) (n int, err error)

	// ReadAvailable drains whatever bytes are currently pending without waiting
	// for more. It returns an empty slice when nothing is pending.
	ReadAvailable() ([]byte, error)

	// Close releases the underlying transport.
	Close() error
}

// Driver enumerates transport endpoints and opens them.
type Driver interface {
	// Detect lists every endpoint the transport can see, matching or not.
	Detect() ([]Device, error)

	// Open opens the endpoint at 115200 baud, no parity.
	Open(dev Device) (Port, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a board driver available by the provided name.
// If Register is called twice with the same name or if driver is nil,
// it panics.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("board: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("board: Register called twice for driver " + name)
	}
	drivers[name] = driver
}

func unregisterAllDrivers() {
	driversMu.Lock()
	defer driversMu.Unlock()
	// For tests.
	drivers = make(map[string]Driver)
}

// Drivers returns a sorted list of the names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	list := make([]string, 0, len(drivers))
	for name := range drivers {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

// DriverByName looks up a registered driver.
func DriverByName(name string) (Driver, error) {
	driversMu.RLock()
	d, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("board: unknown driver %q (forgotten import?)", name)
	}
	return d, nil
}

// writeAll keeps writing until buf is fully sent.
func writeAll(p Port, buf []byte) error {
	sent := 0
	for sent < len(buf) {
		n, err := p.Write(buf[sent:])
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("write returned %d", n)
		}
		sent += n
	}
	return nil
}
