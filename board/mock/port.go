package mock

// Port is an open connection to a mock Board.
type Port struct {
	b      *Board
	closed bool
}

func (p *Port) Write(buf []byte) (int, error) {
	b := p.b
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.closed {
		return 0, ErrClosed
	}
	if b.failWriteIn > 0 {
		b.failWriteIn--
		if b.failWriteIn == 0 {
			return 0, ErrInjectedWrite
		}
	}
	b.receive(buf)
	return len(buf), nil
}

func (p *Port) ReadAvailable() ([]byte, error) {
	b := p.b
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if b.failReadIn > 0 {
		b.failReadIn--
		if b.failReadIn == 0 {
			return nil, ErrInjectedRead
		}
	}
	if b.silent {
		b.pending.Reset()
		return nil, nil
	}
	out := append([]byte(nil), b.pending.Bytes()...)
	b.pending.Reset()
	return out, nil
}

func (p *Port) Close() error {
	b := p.b
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.closed = true
	b.open = false
	return nil
}
