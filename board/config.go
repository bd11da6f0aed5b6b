package board

import "time"

// Config tunes the connection and execution protocol.
type Config struct {
	// Port, when set, selects the endpoint by name instead of by vendor id.
	Port string
	// VendorIDs is the allow-list consulted by FindDevice.
	VendorIDs []uint16

	// UploadDelay is slept after every program line sent to the board.
	UploadDelay time.Duration

	// HandshakeTimeout bounds entry into raw REPL.
	HandshakeTimeout time.Duration
	// PollInterval is slept whenever a drain returns no bytes.
	PollInterval time.Duration
	// SettleDelay is slept after a soft reboot before re-entering raw REPL.
	SettleDelay time.Duration

	// ResetTimeout bounds each banner wait during a soft reset; 0 waits forever.
	ResetTimeout time.Duration
	// ResultTimeout bounds the wait for an execution result; 0 waits forever.
	ResultTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		VendorIDs:        append([]uint16(nil), DefaultVendorIDs...),
		UploadDelay:      60 * time.Millisecond,
		HandshakeTimeout: 5 * time.Second,
		PollInterval:     10 * time.Millisecond,
		SettleDelay:      500 * time.Millisecond,
	}
}

func (c *Config) vendorIDs() []uint16 {
	if len(c.VendorIDs) == 0 {
		return DefaultVendorIDs
	}
	return c.VendorIDs
}

func (c *Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return 10 * time.Millisecond
	}
	return c.PollInterval
}
