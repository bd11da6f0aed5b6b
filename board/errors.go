package board

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is against any error returned by this package.
var (
	ErrDeviceNotFound     = errors.New("device not found")
	ErrOpenFailed         = errors.New("open failed")
	ErrProtocolTimeout    = errors.New("protocol timeout")
	ErrTransport          = errors.New("transport error")
	ErrUnexpectedResponse = errors.New("unexpected response")
	ErrNotConnected       = errors.New("not connected")
)

// BoardError is the single error type surfaced by a Session. Kind is one of the
// Err* values above and Err is the underlying cause, if any.
type BoardError struct {
	Op   string
	Kind error
	Err  error
}

func (e *BoardError) Unwrap() error { return e.Err }

func (e *BoardError) Is(target error) bool {
	return e.Kind == target
}

func (e *BoardError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("board: %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("board: %s: %v: %v", e.Op, e.Kind, e.Err)
}

func newError(op string, kind error, cause error) *BoardError {
	return &BoardError{Op: op, Kind: kind, Err: cause}
}

// asBoardError makes sure nothing but a *BoardError leaves the package.
func asBoardError(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BoardError
	if errors.As(err, &be) {
		return be
	}
	return newError(op, ErrTransport, err)
}
