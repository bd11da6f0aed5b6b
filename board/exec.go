package board

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Result is the decoded output of one program run.
type Result struct {
	Stdout string
	Stderr string
}

// Execute sends code line by line, triggers evaluation and waits for the framed
// result. Directive lines are handled locally and never reach the board.
// The result wait is bounded only by Config.ResultTimeout.
func (e *engine) Execute(code string) (res Result, err error) {
	const op = "execute"
	if e.state != Ready {
		return res, newError(op, ErrNotConnected, fmt.Errorf("state is %v", e.state))
	}

	for _, line := range splitLines(code) {
		var handled bool
		handled, err = e.runDirective(line)
		if err != nil {
			return
		}
		if handled {
			continue
		}

		if err = e.write(op, append([]byte(line), MsgNewline...)); err != nil {
			return
		}
		// slower boards drop input if lines arrive too quickly:
		time.Sleep(e.cfg.UploadDelay)
	}

	if err = e.write(op, MsgExecute); err != nil {
		return
	}

	var buf []byte
	buf, err = e.poll(op, nil, endsWith(MsgResultEnd), e.cfg.ResultTimeout, "no result from board")
	if err != nil {
		return
	}
	e.log.V(1).Info("result received", "size", len(buf))

	return parseResult(buf)
}

// parseResult splits "OK" + stdout + CTRL-D + stderr + CTRL-D + ">".
func parseResult(buf []byte) (res Result, err error) {
	const op = "execute"
	if !bytes.HasPrefix(buf, MsgOK) || len(buf) < len(MsgOK)+len(MsgResultEnd) {
		err = newError(op, ErrUnexpectedResponse, fmt.Errorf("missing %q marker in %q", MsgOK, abbreviate(buf)))
		return
	}

	body := buf[len(MsgOK) : len(buf)-len(MsgResultEnd)]
	out, errOut, found := bytes.Cut(body, []byte{CtrlD})
	if !found {
		err = newError(op, ErrUnexpectedResponse, errors.New("missing stdout/stderr separator"))
		return
	}

	res.Stdout = decodeText(out)
	res.Stderr = decodeText(errOut)
	return
}

// decodeText replaces invalid UTF-8 rather than failing.
func decodeText(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

func abbreviate(b []byte) []byte {
	if len(b) > 64 {
		return b[:64]
	}
	return b
}

// splitLines breaks code on \n, \r\n and \r. A trailing terminator does not
// produce an extra empty line.
func splitLines(code string) []string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	code = strings.ReplaceAll(code, "\r", "\n")
	code = strings.TrimSuffix(code, "\n")
	if code == "" {
		return nil
	}
	return strings.Split(code, "\n")
}
