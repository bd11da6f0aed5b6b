package board

// control bytes understood by the device REPL:
const (
	CtrlA byte = 0x01 // enter raw REPL
	CtrlB byte = 0x02 // exit raw REPL
	CtrlC byte = 0x03 // interrupt
	CtrlD byte = 0x04 // execute / soft reset
)

// repl messages:
var (
	MsgNewline    = []byte("\r\n")
	MsgRawRepl    = []byte("raw REPL; CTRL-B to exit")
	MsgPrompt     = []byte(">")
	MsgOK         = []byte("OK")
	MsgSoftReboot = []byte("soft reboot\r\n")

	// sent after the program lines to kick off evaluation:
	MsgExecute = []byte{'\r', CtrlD}
	// sent on close to leave raw REPL:
	MsgExitRaw = []byte{'\r', CtrlB}
	// terminates every framed execution result:
	MsgResultEnd = []byte{CtrlD, '>'}
)

// PostRebootBanners lists the texts that signal the end of a soft reboot.
// Firmware versions differ in which one they print, so any of them is accepted.
var PostRebootBanners = [][]byte{
	[]byte("Use CTRL-D to reload."),
	[]byte("enter REPL to disable."),
}
