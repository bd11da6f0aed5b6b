// Package wsbridge exposes a board session to remote front-ends over websockets.
package wsbridge

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"cpyrepl/board"
)

// Session is the part of *board.Session the bridge drives.
type Session interface {
	Connect() error
	Execute(code string) (board.Result, error)
	SoftReset() error
	Close() error
	State() board.State
}

// writeTimeout bounds a single frame write to one socket.
const writeTimeout = 5 * time.Second

type Server struct {
	listenAddr string
	session    Session
	log        logr.Logger

	mux *http.ServeMux

	socketsRw sync.RWMutex
	sockets   []*Socket

	// broadcast channel to all sockets:
	q chan Response
}

type Socket struct {
	s    *Server
	conn net.Conn

	// write channel:
	q      chan Response
	closed chan struct{}
}

// Request is one JSON text frame sent by a front-end.
type Request struct {
	ID   int    `json:"id"`
	Op   string `json:"op"`
	Code string `json:"code,omitempty"`
}

// Response answers a Request with the same ID. Frames with Event set are
// unsolicited notifications and carry no ID.
type Response struct {
	ID     int    `json:"id,omitempty"`
	Event  string `json:"event,omitempty"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
	State  string `json:"state"`
	Error  string `json:"error,omitempty"`
}

func NewServer(listenAddr string, session Session, log logr.Logger) *Server {
	s := &Server{
		listenAddr: listenAddr,
		session:    session,
		log:        log,
		mux:        http.NewServeMux(),
		sockets:    make([]*Socket, 0, 2),
		q:          make(chan Response, 10),
	}

	s.mux.Handle("/ws", http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(req, rw)
		if err != nil {
			s.log.Error(err, "websocket upgrade failed", "remote", req.RemoteAddr)
			return
		}

		socket := newSocket(s, conn)
		s.appendSocket(socket)
		socket.start()
		s.log.V(1).Info("socket connected", "remote", req.RemoteAddr)
	}))

	go s.handleBroadcast()

	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Serve() error {
	s.log.Info("listening", "addr", s.listenAddr)
	return http.ListenAndServe(s.listenAddr, s.mux)
}

func (s *Server) appendSocket(k *Socket) {
	s.socketsRw.Lock()
	defer s.socketsRw.Unlock()
	s.sockets = append(s.sockets, k)
}

func (s *Server) removeSocket(k *Socket) {
	s.socketsRw.Lock()
	defer s.socketsRw.Unlock()

	for i, sk := range s.sockets {
		if sk == k {
			s.sockets = append(s.sockets[:i], s.sockets[i+1:]...)
			break
		}
	}
}

func (s *Server) handleBroadcast() {
	for u := range s.q {
		s.socketsRw.RLock()
		sockets := append([]*Socket(nil), s.sockets...)
		s.socketsRw.RUnlock()

		for _, k := range sockets {
			k.notify(u)
		}
	}
}

// handle runs one request against the session.
func (s *Server) handle(req Request) (rsp Response) {
	rsp.ID = req.ID
	before := s.session.State()

	var err error
	switch req.Op {
	case "connect":
		err = s.session.Connect()
	case "execute":
		var res board.Result
		res, err = s.session.Execute(req.Code)
		rsp.Stdout, rsp.Stderr = res.Stdout, res.Stderr
	case "softreset":
		err = s.session.SoftReset()
	case "close":
		err = s.session.Close()
	case "state":
	default:
		err = fmt.Errorf("unknown op %q", req.Op)
	}
	if err != nil {
		rsp.Error = err.Error()
	}

	after := s.session.State()
	rsp.State = after.String()
	if after != before {
		select {
		case s.q <- Response{Event: "state", State: rsp.State}:
		default:
			s.log.V(1).Info("state event dropped", "state", rsp.State)
		}
	}
	return
}

func newSocket(s *Server, conn net.Conn) *Socket {
	return &Socket{
		s:      s,
		conn:   conn,
		q:      make(chan Response, 10),
		closed: make(chan struct{}),
	}
}

func (k *Socket) start() {
	go k.readHandler()
	go k.writeHandler()
}

func (k *Socket) send(rsp Response) {
	select {
	case k.q <- rsp:
	case <-k.closed:
	}
}

// notify queues an event without waiting; slow sockets miss events.
func (k *Socket) notify(rsp Response) {
	select {
	case k.q <- rsp:
	case <-k.closed:
	default:
		k.s.log.V(1).Info("event dropped for slow socket", "event", rsp.Event)
	}
}

func (k *Socket) readHandler() {
	// the reader is in control of the lifetime of the socket:
	defer func() {
		close(k.closed)
		_ = k.conn.Close()
		k.s.removeSocket(k)
	}()

	for {
		data, op, err := wsutil.ReadClientData(k.conn)
		if err != nil {
			k.s.log.V(1).Info("socket closed", "reason", err.Error())
			return
		}
		if op != ws.OpText {
			continue
		}

		var req Request
		if err = json.Unmarshal(data, &req); err != nil {
			k.send(Response{Error: fmt.Sprintf("invalid request: %v", err), State: k.s.session.State().String()})
			continue
		}

		k.send(k.s.handle(req))
	}
}

func (k *Socket) writeHandler() {
	for {
		select {
		case rsp := <-k.q:
			data, err := json.Marshal(rsp)
			if err != nil {
				k.s.log.Error(err, "encode response")
				continue
			}
			_ = k.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err = wsutil.WriteServerMessage(k.conn, ws.OpText, data); err != nil {
				k.s.log.V(1).Info("socket write failed", "err", err.Error())
				_ = k.conn.Close()
				return
			}
		case <-k.closed:
			return
		}
	}
}
