// internal/radio/tcp.go
package radio

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/mkarlsen/meshtemp/internal/config"
	"github.com/mkarlsen/meshtemp/internal/responder"
)

const (
	acceptPoll = time.Millisecond
	availPoll  = 20 * time.Millisecond
)

// TCPLink stands in for the mesh on development benches with no radio
// attached: membership is always up and the hardware latch never
// trips. Conversations surface only once they have readable bytes.
type TCPLink struct {
	ln  *net.TCPListener
	log *zap.Logger

	// accepted but not yet readable
	waiting *tcpConn
}

func NewTCPLink(cfg config.TCPConfig, log *zap.Logger) (*TCPLink, error) {
	if log == nil {
		log = zap.NewNop()
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("radio: listen %s: %w", cfg.Listen, err)
	}
	tl, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return nil, fmt.Errorf("radio: listen %s: not a tcp listener", cfg.Listen)
	}

	log.Info("bench link listening", zap.String("addr", ln.Addr().String()))
	return &TCPLink{ln: tl, log: log}, nil
}

func (l *TCPLink) Close() error {
	if l.waiting != nil {
		_ = l.waiting.Close()
		l.waiting = nil
	}
	return l.ln.Close()
}

// ---- membership (always up on a bench) ----

func (l *TCPLink) Connected() bool { return true }

func (l *TCPLink) Rejoin() {
	l.log.Debug("bench link has nothing to rejoin")
}

func (l *TCPLink) HardwareFailed() bool { return false }

// ---- listener ----

func (l *TCPLink) AcceptPending() (responder.Conn, bool) {
	if l.waiting == nil {
		_ = l.ln.SetDeadline(time.Now().Add(acceptPoll))
		c, err := l.ln.Accept()
		if err != nil {
			return nil, false
		}
		l.waiting = newTCPConn(c)
	}

	// Surface the conversation only once bytes are readable.
	if l.waiting.Available() == 0 {
		if l.waiting.dead {
			_ = l.waiting.Close()
			l.waiting = nil
		}
		return nil, false
	}

	conn := l.waiting
	l.waiting = nil
	return conn, true
}

// tcpConn adapts one TCP connection to the conversation contract.
type tcpConn struct {
	c    net.Conn
	br   *bufio.Reader
	dead bool
}

func newTCPConn(c net.Conn) *tcpConn {
	return &tcpConn{c: c, br: bufio.NewReaderSize(c, responder.BufferCap)}
}

// Available reports buffered bytes, topping up with one short poll so
// a quiet connection never blocks the loop.
func (t *tcpConn) Available() int {
	if t.br.Buffered() > 0 {
		return t.br.Buffered()
	}

	_ = t.c.SetReadDeadline(time.Now().Add(availPoll))
	_, err := t.br.Peek(1)
	_ = t.c.SetReadDeadline(time.Time{})

	if err != nil {
		if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
			t.dead = true
		}
		return t.br.Buffered()
	}
	return t.br.Buffered()
}

func (t *tcpConn) Read(p []byte) (int, error)  { return t.br.Read(p) }
func (t *tcpConn) Write(p []byte) (int, error) { return t.c.Write(p) }
func (t *tcpConn) Flush() error                { return nil }
func (t *tcpConn) Close() error                { return t.c.Close() }
