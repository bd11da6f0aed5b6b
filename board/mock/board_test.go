package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpyrepl/board"
)

func TestRawReplRoundTrip(t *testing.T) {
	d := NewDriver(NewBoard(nil))
	p, err := d.Open(DefaultDevice)
	require.NoError(t, err)

	_, err = p.Write([]byte{board.CtrlC, board.CtrlA})
	require.NoError(t, err)
	out, err := p.ReadAvailable()
	require.NoError(t, err)
	assert.Contains(t, string(out), string(board.MsgRawRepl))
	assert.True(t, out[len(out)-1] == '>')

	_, err = p.Write([]byte("print('hi')\r\n\r\x04"))
	require.NoError(t, err)
	out, err = p.ReadAvailable()
	require.NoError(t, err)
	assert.Equal(t, "OKhi\r\n\x04\x04>", string(out))

	out, err = p.ReadAvailable()
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSoftReboot(t *testing.T) {
	b := NewBoard(nil)
	p, err := NewDriver(b).Open(DefaultDevice)
	require.NoError(t, err)

	_, err = p.Write([]byte{board.CtrlA, board.CtrlD})
	require.NoError(t, err)
	out, err := p.ReadAvailable()
	require.NoError(t, err)
	assert.Contains(t, string(out), "OK\r\nsoft reboot\r\n")
	assert.Contains(t, string(out), string(board.PostRebootBanners[0]))
	assert.False(t, b.InRawRepl())
	assert.Equal(t, 1, b.SoftReboots())
}

func TestPortClosed(t *testing.T) {
	b := NewBoard(nil)
	p, err := NewDriver(b).Open(DefaultDevice)
	require.NoError(t, err)
	assert.True(t, b.IsOpen())

	require.NoError(t, p.Close())
	assert.False(t, b.IsOpen())
	assert.ErrorIs(t, p.Close(), ErrClosed)

	_, err = p.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = p.ReadAvailable()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEchoHandler(t *testing.T) {
	out, errOut := EchoHandler("x = 1\nprint(\"a\")\n  print('b')\n")
	assert.Equal(t, "a\r\nb\r\n", out)
	assert.Empty(t, errOut)

	out, errOut = EchoHandler("print('a')\nraise KeyError\nprint('c')")
	assert.Equal(t, "a\r\n", out)
	assert.Contains(t, errOut, "line 2")
	assert.Contains(t, errOut, "KeyError\r\n")
}

func TestDriverCounts(t *testing.T) {
	d := NewDriver(NewBoard(nil))
	devs, err := d.Detect()
	require.NoError(t, err)
	assert.Equal(t, []board.Device{DefaultDevice}, devs)
	assert.Equal(t, 1, d.Detections())
	assert.Equal(t, 0, d.Opens())
}
