package board

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// ErrRemoteException reports a program that raised on the board during Eval.
var ErrRemoteException = errors.New("remote exception")

// Session is the entry point used by front-ends. Calls are serialized, and
// every failure is returned as a *BoardError. After a failure the next call
// reconnects from scratch.
type Session struct {
	mu     sync.Mutex
	cfg    Config
	engine *engine
	log    logr.Logger
}

func NewSession(driver Driver, cfg Config, log logr.Logger) *Session {
	s := &Session{
		cfg: cfg,
		log: log,
	}
	s.engine = newEngine(driver, &s.cfg, log.WithName("repl"))
	return s
}

// Connect is a no-op when the session is already Ready.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return asBoardError("connect", s.engine.Connect())
}

// Execute runs code on the board, connecting first if needed.
func (s *Session) Execute(code string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execute(code)
}

func (s *Session) execute(code string) (res Result, err error) {
	if strings.TrimSpace(code) == "" {
		return
	}
	if err = s.engine.Connect(); err != nil {
		return res, asBoardError("connect", err)
	}
	res, err = s.engine.Execute(code)
	if err != nil {
		s.log.V(1).Info("execute failed", "err", err.Error(), "state", s.engine.State().String())
	}
	return res, asBoardError("execute", err)
}

// Eval prints expr on the board and returns the trimmed output.
func (s *Session) Eval(expr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.execute("print(" + expr + ")")
	if err != nil {
		return "", err
	}
	if res.Stderr != "" {
		return "", newError("eval", ErrRemoteException, errors.New(strings.TrimSpace(res.Stderr)))
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (s *Session) SoftReset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return asBoardError("soft reset", s.engine.SoftReset())
}

// Close always leaves the session Disconnected.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return asBoardError("close", s.engine.Close())
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.State()
}

// Device returns the endpoint of the open connection.
func (s *Session) Device() (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Device()
}

func (s *Session) UploadDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.UploadDelay
}

func (s *Session) SetUploadDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.cfg.UploadDelay = d
}
