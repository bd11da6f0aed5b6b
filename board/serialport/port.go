package serialport

import (
	"fmt"

	"go.bug.st/serial"
)

// Port adapts a serial.Port opened with a short read timeout to board.Port.
type Port struct {
	f    serial.Port
	name string
	buf  []byte
}

func (p *Port) Write(b []byte) (int, error) {
	n, err := p.f.Write(b)
	if err != nil {
		return n, fmt.Errorf("serial: %s: write: %w", p.name, err)
	}
	return n, nil
}

// ReadAvailable keeps reading until a read times out with nothing pending.
func (p *Port) ReadAvailable() ([]byte, error) {
	var out []byte
	for {
		n, err := p.f.Read(p.buf)
		if err != nil {
			return out, fmt.Errorf("serial: %s: read: %w", p.name, err)
		}
		if n <= 0 {
			return out, nil
		}
		out = append(out, p.buf[:n]...)
		if n < len(p.buf) {
			return out, nil
		}
	}
}

func (p *Port) Close() error {
	if err := p.f.Close(); err != nil {
		return fmt.Errorf("serial: could not close %s: %w", p.name, err)
	}
	return nil
}
