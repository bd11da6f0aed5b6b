package board

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoardError(t *testing.T) {
	err := newError("execute", ErrTransport, io.ErrUnexpectedEOF)
	assert.Equal(t, "board: execute: transport error: unexpected EOF", err.Error())
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, ErrProtocolTimeout))

	wrapped := fmt.Errorf("kernel: %w", err)
	var be *BoardError
	assert.True(t, errors.As(wrapped, &be))
	assert.Equal(t, "execute", be.Op)

	assert.Equal(t, "board: connect: not connected", newError("connect", ErrNotConnected, nil).Error())
}

func TestAsBoardError(t *testing.T) {
	assert.Nil(t, asBoardError("x", nil))

	err := asBoardError("close", io.EOF)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, io.EOF))

	orig := newError("connect", ErrOpenFailed, nil)
	assert.Same(t, orig, asBoardError("execute", orig))
}

func TestRegister(t *testing.T) {
	unregisterAllDrivers()
	defer unregisterAllDrivers()

	d := &listDriver{}
	Register("b", d)
	Register("a", d)
	assert.Equal(t, []string{"a", "b"}, Drivers())

	got, err := DriverByName("a")
	assert.NoError(t, err)
	assert.Same(t, d, got)

	_, err = DriverByName("c")
	assert.Error(t, err)

	assert.Panics(t, func() { Register("a", d) })
	assert.Panics(t, func() { Register("nil", nil) })
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Ready", Ready.String())
	assert.Equal(t, "Disconnected", Disconnected.String())
	assert.Equal(t, "State(9)", State(9).String())
}
