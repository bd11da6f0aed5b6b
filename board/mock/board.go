package mock

import (
	"bytes"
	"errors"
	"strings"
	"sync"

	"cpyrepl/board"
)

var (
	ErrClosed        = errors.New("mock: port is closed")
	ErrInjectedWrite = errors.New("mock: injected write failure")
	ErrInjectedRead  = errors.New("mock: injected read failure")
)

// Handler evaluates a program received in raw REPL mode.
type Handler func(code string) (stdout, stderr string)

// Board simulates the REPL side of a CircuitPython board.
type Board struct {
	mu sync.Mutex

	handler Handler
	banner  string

	// silent boards swallow everything and never answer:
	silent bool
	// fails the Nth write from now when > 0:
	failWriteIn int
	failReadIn  int
	failOpen    error

	raw      bool
	open     bool
	code     bytes.Buffer
	pending  bytes.Buffer
	received bytes.Buffer
	programs []string
	reboots  int
}

func NewBoard(handler Handler) *Board {
	if handler == nil {
		handler = EchoHandler
	}
	return &Board{
		handler: handler,
		banner:  string(board.PostRebootBanners[0]),
	}
}

// SetRebootBanner changes the text printed when a soft reboot finishes.
func (b *Board) SetRebootBanner(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.banner = s
}

func (b *Board) SetSilent(silent bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.silent = silent
}

// FailWriteIn makes the nth write from now fail; n <= 0 disables.
func (b *Board) FailWriteIn(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWriteIn = n
}

// FailReadIn makes the nth read from now fail; n <= 0 disables.
func (b *Board) FailReadIn(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failReadIn = n
}

// FailOpen makes subsequent opens fail with err; nil clears it.
func (b *Board) FailOpen(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOpen = err
}

// Emit queues unsolicited output, e.g. stale text from a running program.
func (b *Board) Emit(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.WriteString(s)
}

// Received returns every byte written by the host so far.
func (b *Board) Received() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.received.Bytes()...)
}

func (b *Board) ClearReceived() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.received.Reset()
}

// Programs returns the programs evaluated so far, with line endings normalized to \n.
func (b *Board) Programs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.programs...)
}

func (b *Board) SoftReboots() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reboots
}

func (b *Board) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *Board) InRawRepl() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.raw
}

// must hold mu:
func (b *Board) receive(p []byte) {
	b.received.Write(p)
	for _, c := range p {
		switch c {
		case board.CtrlC:
			b.code.Reset()
			if !b.raw {
				b.pending.WriteString("\r\nKeyboardInterrupt\r\n>>> ")
			}
		case board.CtrlA:
			b.raw = true
			b.code.Reset()
			b.pending.WriteString("\r\nraw REPL; CTRL-B to exit\r\n>")
		case board.CtrlB:
			b.raw = false
			b.code.Reset()
			b.pending.WriteString("\r\nAdafruit CircuitPython (mock)\r\n>>> ")
		case board.CtrlD:
			if b.raw && b.code.Len() > 0 {
				b.run()
			} else {
				b.softReboot()
			}
		default:
			if b.raw {
				b.code.WriteByte(c)
			}
		}
	}
}

// must hold mu:
func (b *Board) run() {
	program := strings.ReplaceAll(b.code.String(), "\r\n", "\n")
	program = strings.TrimSuffix(program, "\r")
	b.code.Reset()
	b.programs = append(b.programs, program)

	stdout, stderr := b.handler(program)
	b.pending.WriteString("OK")
	b.pending.WriteString(stdout)
	b.pending.WriteByte(board.CtrlD)
	b.pending.WriteString(stderr)
	b.pending.WriteByte(board.CtrlD)
	b.pending.WriteByte('>')
}

// must hold mu:
func (b *Board) softReboot() {
	if b.raw {
		b.pending.WriteString("OK")
	}
	b.raw = false
	b.code.Reset()
	b.reboots++
	b.pending.WriteString("\r\nsoft reboot\r\n")
	b.pending.WriteString("\r\nCode done running.\r\n\r\n")
	b.pending.WriteString(b.banner)
	b.pending.WriteString("\r\n")
}
