package wsbridge

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpyrepl/board"
	"cpyrepl/board/mock"
)

type client struct {
	t    *testing.T
	conn net.Conn
}

func dial(t *testing.T, ts *httptest.Server) *client {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, _, err := ws.Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) next() Response {
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	data, err := wsutil.ReadServerText(c.conn)
	require.NoError(c.t, err)

	var rsp Response
	require.NoError(c.t, json.Unmarshal(data, &rsp))
	return rsp
}

// call sends req and returns its reply, skipping state events.
func (c *client) call(req Request) Response {
	data, err := json.Marshal(req)
	require.NoError(c.t, err)
	require.NoError(c.t, wsutil.WriteClientText(c.conn, data))

	for {
		rsp := c.next()
		if rsp.Event == "" {
			return rsp
		}
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *mock.Driver) {
	cfg := board.DefaultConfig()
	cfg.UploadDelay = 0
	cfg.PollInterval = time.Millisecond
	cfg.SettleDelay = time.Millisecond

	d := mock.NewDriver(mock.NewBoard(nil))
	session := board.NewSession(d, cfg, testr.New(t))
	t.Cleanup(func() { _ = session.Close() })

	ts := httptest.NewServer(NewServer("", session, testr.New(t)).Handler())
	t.Cleanup(ts.Close)
	return ts, d
}

func TestExecuteOverWebsocket(t *testing.T) {
	ts, d := newTestServer(t)
	c := dial(t, ts)

	rsp := c.call(Request{ID: 1, Op: "state"})
	assert.Equal(t, 1, rsp.ID)
	assert.Equal(t, "Disconnected", rsp.State)

	rsp = c.call(Request{ID: 2, Op: "execute", Code: "print('hello')\nraise OSError('gone')"})
	assert.Equal(t, 2, rsp.ID)
	assert.Empty(t, rsp.Error)
	assert.Equal(t, "hello\r\n", rsp.Stdout)
	assert.Contains(t, rsp.Stderr, "OSError: gone")
	assert.Equal(t, "Ready", rsp.State)

	rsp = c.call(Request{ID: 3, Op: "softreset"})
	assert.Empty(t, rsp.Error)
	assert.Equal(t, 1, d.Board.SoftReboots())

	rsp = c.call(Request{ID: 4, Op: "close"})
	assert.Empty(t, rsp.Error)
	assert.Equal(t, "Disconnected", rsp.State)
}

func TestErrorsAreReported(t *testing.T) {
	ts, d := newTestServer(t)
	c := dial(t, ts)

	d.Board.FailOpen(assert.AnError)
	rsp := c.call(Request{ID: 1, Op: "connect"})
	assert.Contains(t, rsp.Error, "open failed")
	assert.Equal(t, "Disconnected", rsp.State)

	rsp = c.call(Request{ID: 2, Op: "frobnicate"})
	assert.Contains(t, rsp.Error, "unknown op")

	require.NoError(t, wsutil.WriteClientText(c.conn, []byte("{not json")))
	rsp = c.next()
	assert.Contains(t, rsp.Error, "invalid request")

	d.Board.FailOpen(nil)
	rsp = c.call(Request{ID: 3, Op: "connect"})
	assert.Empty(t, rsp.Error)
	assert.Equal(t, "Ready", rsp.State)
}

func TestStateChangesAreBroadcast(t *testing.T) {
	ts, _ := newTestServer(t)
	a := dial(t, ts)
	b := dial(t, ts)

	// make sure both sockets are registered before the state changes:
	a.call(Request{ID: 1, Op: "state"})
	b.call(Request{ID: 1, Op: "state"})

	rsp := a.call(Request{ID: 2, Op: "connect"})
	assert.Equal(t, "Ready", rsp.State)

	ev := b.next()
	assert.Equal(t, "state", ev.Event)
	assert.Equal(t, "Ready", ev.State)
}

type toggleSession struct {
	mu    sync.Mutex
	state board.State
}

func (f *toggleSession) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = board.Ready
	return nil
}

func (f *toggleSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = board.Disconnected
	return nil
}

func (f *toggleSession) Execute(string) (board.Result, error) { return board.Result{}, nil }
func (f *toggleSession) SoftReset() error { return nil }

func (f *toggleSession) State() board.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func TestStalledSocketDoesNotBlockRequests(t *testing.T) {
	s := NewServer("", &toggleSession{}, testr.New(t))

	// nobody reads the client end, so writes to the server end stall:
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	stalled := newSocket(s, server)
	s.appendSocket(stalled)
	go stalled.writeHandler()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s.handle(Request{ID: i, Op: "connect"})
			s.handle(Request{ID: i, Op: "close"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("state changes blocked behind a stalled socket")
	}
}
