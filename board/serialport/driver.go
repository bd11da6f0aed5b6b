package serialport

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"cpyrepl/board"
	"cpyrepl/util"
	"cpyrepl/util/env"
)

const (
	driverName = "serial"
	baudRate   = 115200
)

type Driver struct {
	// ReadTimeout bounds a single drain; it should stay well below the poll interval.
	ReadTimeout time.Duration
}

func (d *Driver) Detect() (devices []board.Device, err error) {
	var ports []*enumerator.PortDetails
	ports, err = enumerator.GetDetailedPortsList()
	if err != nil {
		err = fmt.Errorf("serial: enumerate ports: %w", err)
		return
	}

	devices = make([]board.Device, 0, len(ports))
	for _, port := range ports {
		dev := board.Device{
			Port:  port.Name,
			IsUSB: port.IsUSB,
		}
		if port.IsUSB {
			dev.VID = parseID(port.VID)
			dev.PID = parseID(port.PID)
			dev.SerialNumber = port.SerialNumber
		}
		devices = append(devices, dev)
	}
	return
}

func (d *Driver) Open(dev board.Device) (board.Port, error) {
	f, err := serial.Open(dev.Port, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", dev.Port, err)
	}

	timeout := d.ReadTimeout
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	if err = f.SetReadTimeout(timeout); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("serial: set read timeout: %w", err)
	}

	return &Port{f: f, name: dev.Port, buf: make([]byte, 4096)}, nil
}

// parseID reads a hex USB id as reported by the enumerator, e.g. "239A".
func parseID(s string) uint16 {
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}

func init() {
	if util.IsTruthy(env.GetOrDefault("CPYREPL_SERIAL_DISABLE", "0")) {
		log.Printf("disabling serial board driver\n")
		return
	}
	board.Register(driverName, &Driver{})
}
