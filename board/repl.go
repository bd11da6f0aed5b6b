package board

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// engine owns the transport handle and the raw REPL state machine.
// It is not safe for concurrent use; Session serializes access to it.
type engine struct {
	driver Driver
	cfg    *Config
	log    logr.Logger

	port   Port
	device Device
	state  State
}

func newEngine(driver Driver, cfg *Config, log logr.Logger) *engine {
	return &engine{
		driver: driver,
		cfg:    cfg,
		log:    log,
		state:  Disconnected,
	}
}

// Connect locates the board, opens it and enters raw REPL. It does nothing when already Ready.
func (e *engine) Connect() (err error) {
	const op = "connect"
	if e.state == Ready {
		return nil
	}
	if e.port != nil {
		e.teardown()
	}

	e.state = Opening
	var dev Device
	dev, err = FindDevice(e.driver, e.cfg.vendorIDs(), e.cfg.Port)
	if err != nil {
		e.state = Disconnected
		return
	}

	e.log.V(1).Info("opening board", "device", dev.DisplayName())
	var port Port
	port, err = e.driver.Open(dev)
	if err != nil {
		e.state = Disconnected
		return newError(op, ErrOpenFailed, fmt.Errorf("%s: %w", dev.Port, err))
	}
	e.port = port
	e.device = dev

	e.log.V(1).Info("entering raw repl")
	if err = e.enterRawRepl(op); err != nil {
		return
	}

	e.log.Info("connected", "device", dev.DisplayName())
	return nil
}

// SoftReset warm-restarts the program running on the board and leaves the
// session in raw REPL again.
func (e *engine) SoftReset() (err error) {
	const op = "soft reset"
	if e.state == Disconnected {
		if err = e.Connect(); err != nil {
			return
		}
	}

	// the VM may have been left mid-command:
	if err = e.enterRawRepl(op); err != nil {
		return
	}

	e.log.V(1).Info("soft reset")
	if err = e.write(op, []byte{CtrlD}); err != nil {
		return
	}
	e.state = EnteringRepl

	var buf []byte
	buf, err = e.poll(op, nil, contains(MsgSoftReboot), e.cfg.ResetTimeout, "no soft reboot banner")
	if err != nil {
		return
	}
	rest := buf[bytes.Index(buf, MsgSoftReboot)+len(MsgSoftReboot):]
	_, err = e.poll(op, rest, containsAny(PostRebootBanners), e.cfg.ResetTimeout, "no post-reboot banner")
	if err != nil {
		return
	}

	// let the board finish booting:
	time.Sleep(e.cfg.SettleDelay)

	if err = e.enterRawRepl(op); err != nil {
		return
	}
	e.log.Info("soft reset complete")
	return nil
}

// Close leaves raw REPL and releases the transport. Failures are logged, never returned.
func (e *engine) Close() error {
	port, ready := e.port, e.state == Ready
	e.port = nil
	e.state = Disconnected
	if port == nil {
		return nil
	}

	if ready {
		if err := writeAll(port, MsgExitRaw); err != nil {
			e.log.V(1).Info("could not exit raw repl", "err", err.Error())
		}
	}
	if err := port.Close(); err != nil {
		e.log.Error(err, "could not close port", "device", e.device.DisplayName())
	}
	e.log.V(1).Info("closed", "device", e.device.DisplayName())
	return nil
}

func (e *engine) State() State { return e.state }

func (e *engine) Device() (Device, bool) {
	return e.device, e.port != nil
}

// enterRawRepl interrupts whatever runs and waits for the bare raw REPL prompt.
// Only the trailing byte counts: stale output may contain '>' anywhere.
func (e *engine) enterRawRepl(op string) (err error) {
	e.state = EnteringRepl
	if err = e.write(op, []byte{CtrlC}); err != nil {
		return
	}
	if err = e.write(op, []byte{CtrlA}); err != nil {
		return
	}

	timeout := e.cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if _, err = e.poll(op, nil, rawPrompt, timeout, "no response from board"); err != nil {
		return
	}

	e.state = Ready
	return nil
}

// poll drains the port into buf until done reports true. A zero timeout waits forever.
func (e *engine) poll(op string, buf []byte, done func([]byte) bool, timeout time.Duration, what string) ([]byte, error) {
	if e.port == nil {
		return buf, newError(op, ErrNotConnected, nil)
	}

	start := time.Now()
	for {
		if done(buf) {
			return buf, nil
		}
		if timeout > 0 && time.Since(start) > timeout {
			return buf, e.fail(op, ErrProtocolTimeout, errors.New(what))
		}

		chunk, err := e.port.ReadAvailable()
		if err != nil {
			return buf, e.fail(op, ErrTransport, err)
		}
		if len(chunk) == 0 {
			time.Sleep(e.cfg.pollInterval())
			continue
		}

		if v := e.log.V(2); v.Enabled() {
			v.Info("received", "bytes", fmt.Sprintf("%q", chunk))
		}
		buf = append(buf, chunk...)
	}
}

func (e *engine) write(op string, p []byte) error {
	if e.port == nil {
		return newError(op, ErrNotConnected, nil)
	}
	if err := writeAll(e.port, p); err != nil {
		return e.fail(op, ErrTransport, err)
	}
	return nil
}

// fail drops the connection before reporting err so a later Connect starts over.
func (e *engine) fail(op string, kind error, cause error) error {
	e.log.V(1).Info("connection lost", "op", op, "kind", kind.Error(), "cause", fmt.Sprint(cause))
	e.teardown()
	return newError(op, kind, cause)
}

func (e *engine) teardown() {
	port := e.port
	e.port = nil
	e.state = Disconnected
	if port == nil {
		return
	}
	if err := port.Close(); err != nil {
		e.log.V(1).Info("close after failure", "err", err.Error())
	}
}

// rawPrompt matches a buffer ending in the bare prompt, but not in a fragment
// of the friendly ">>> " prompt.
func rawPrompt(buf []byte) bool {
	return bytes.HasSuffix(buf, MsgPrompt) && !bytes.HasSuffix(buf, []byte(">>>"))
}

func endsWith(suffix []byte) func([]byte) bool {
	return func(buf []byte) bool { return bytes.HasSuffix(buf, suffix) }
}

func contains(marker []byte) func([]byte) bool {
	return func(buf []byte) bool { return bytes.Contains(buf, marker) }
}

func containsAny(markers [][]byte) func([]byte) bool {
	return func(buf []byte) bool {
		for _, m := range markers {
			if bytes.Contains(buf, m) {
				return true
			}
		}
		return false
	}
}
