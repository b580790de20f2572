// internal/radio/modem.go
package radio

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goburrow/serial"
	"go.uber.org/zap"

	"github.com/mkarlsen/meshtemp/internal/config"
	"github.com/mkarlsen/meshtemp/internal/responder"
)

const (
	// Radios are provisioned with a 100 ms command-mode guard
	// (ATGT 0x64). Keep guardTime in sync with that provisioning.
	guardTime      = 100 * time.Millisecond
	commandTimeout = 2 * time.Second

	rejoinWindow = 5 * time.Second
	rejoinPoll   = 500 * time.Millisecond

	portReadTimeout = 50 * time.Millisecond

	// Consecutive transport failures before the hardware latch trips.
	failureThreshold = 3
)

// Modem drives a mesh radio modem in transparent mode over a serial
// port. Payload bytes pass through untouched; management runs in
// escaped AT command mode. Not goroutine-safe: the control loop owns
// it outright.
type Modem struct {
	port io.ReadWriteCloser
	log  *zap.Logger

	guard      time.Duration
	cmdTimeout time.Duration
	window     time.Duration
	poll       time.Duration

	failures int
	failed   bool

	inbuf [256]byte
}

// NewModem wraps an already-open transport. Production code goes
// through OpenModem; tests inject their own port here.
func NewModem(port io.ReadWriteCloser, log *zap.Logger) *Modem {
	if log == nil {
		log = zap.NewNop()
	}
	return &Modem{
		port:       port,
		log:        log,
		guard:      guardTime,
		cmdTimeout: commandTimeout,
		window:     rejoinWindow,
		poll:       rejoinPoll,
	}
}

// OpenModem opens the configured serial device.
func OpenModem(cfg config.ModemConfig, log *zap.Logger) (*Modem, error) {
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.Baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  portReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("radio: open %s: %w", cfg.Device, err)
	}
	return NewModem(port, log), nil
}

func (m *Modem) Close() error {
	return m.port.Close()
}

// ---- membership ----

// Connected probes mesh association (ATAI reads zero when joined).
func (m *Modem) Connected() bool {
	ai, err := m.associationState()
	if err != nil {
		m.noteFailure(err)
		return false
	}
	m.noteSuccess()
	return ai == 0
}

// Rejoin forces a network reset and waits for re-association. It
// returns once the radio reports association or the window closes;
// there is no failure signal here. A radio that stops answering at
// all surfaces through the hardware latch instead.
func (m *Modem) Rejoin() {
	if err := m.enterCommand(); err != nil {
		m.noteFailure(err)
		return
	}
	defer m.leaveCommand()

	if _, err := m.execute("ATNR"); err != nil {
		m.noteFailure(err)
		return
	}

	deadline := time.Now().Add(m.window)
	for time.Now().Before(deadline) {
		time.Sleep(m.poll)

		reply, err := m.execute("ATAI")
		if err != nil {
			m.noteFailure(err)
			return
		}
		if ai, perr := strconv.ParseUint(reply, 16, 8); perr == nil && ai == 0 {
			m.noteSuccess()
			return
		}
	}
	m.log.Warn("rejoin window closed without association")
}

func (m *Modem) associationState() (uint64, error) {
	if err := m.enterCommand(); err != nil {
		return 0, err
	}
	defer m.leaveCommand()

	reply, err := m.execute("ATAI")
	if err != nil {
		return 0, err
	}

	ai, err := strconv.ParseUint(reply, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("radio: bad ATAI reply %q: %w", reply, err)
	}
	return ai, nil
}

// ---- hardware failure latch ----

// HardwareFailed reports the latched fault. It never clears: the
// watchdog-forced restart is the recovery path.
func (m *Modem) HardwareFailed() bool { return m.failed }

func (m *Modem) noteFailure(err error) {
	m.failures++
	m.log.Warn("radio transport failure",
		zap.Int("consecutive", m.failures),
		zap.Error(err))

	if m.failures >= failureThreshold && !m.failed {
		m.failed = true
		m.log.Error("radio hardware failure latched")
	}
}

func (m *Modem) noteSuccess() { m.failures = 0 }

// ---- command mode ----

func (m *Modem) enterCommand() error {
	time.Sleep(m.guard)
	if _, err := m.port.Write([]byte("+++")); err != nil {
		return fmt.Errorf("radio: escape write: %w", err)
	}
	time.Sleep(m.guard)

	line, err := m.readLine()
	if err != nil {
		return err
	}
	if line != "OK" {
		return fmt.Errorf("radio: escape answered %q", line)
	}
	return nil
}

func (m *Modem) leaveCommand() {
	if _, err := m.execute("ATCN"); err != nil {
		m.noteFailure(err)
	}
}

// execute sends one AT command and returns its reply line.
func (m *Modem) execute(cmd string) (string, error) {
	if _, err := m.port.Write([]byte(cmd + "\r")); err != nil {
		return "", fmt.Errorf("radio: %s write: %w", cmd, err)
	}
	reply, err := m.readLine()
	if err != nil {
		return "", fmt.Errorf("radio: %s: %w", cmd, err)
	}
	return reply, nil
}

// readLine collects bytes up to CR, riding out port read timeouts
// until the command deadline.
func (m *Modem) readLine() (string, error) {
	deadline := time.Now().Add(m.cmdTimeout)
	var line []byte
	var one [1]byte

	for time.Now().Before(deadline) {
		n, err := m.port.Read(one[:])
		if err != nil {
			if errors.Is(err, serial.ErrTimeout) {
				continue
			}
			return "", fmt.Errorf("radio: read: %w", err)
		}
		if n == 0 {
			continue
		}
		switch one[0] {
		case '\r':
			return string(line), nil
		case '\n':
			// tolerated, never part of a reply
		default:
			line = append(line, one[0])
		}
	}
	return "", errors.New("radio: command response timeout")
}

// ---- inbound conversations ----

// AcceptPending polls the transparent stream once. Any buffered bytes
// start a conversation; silence means nothing pending.
func (m *Modem) AcceptPending() (responder.Conn, bool) {
	n, err := m.port.Read(m.inbuf[:])
	if err != nil {
		if !errors.Is(err, serial.ErrTimeout) {
			m.noteFailure(err)
		}
		return nil, false
	}
	if n == 0 {
		return nil, false
	}

	rx := append([]byte(nil), m.inbuf[:n]...)
	return &modemConn{m: m, rx: rx}, true
}

// modemConn is one conversation over the transparent stream. Closing
// it does not close the port; the link has no per-conversation
// teardown, the peer just reads our silence.
type modemConn struct {
	m  *Modem
	rx []byte
}

func (c *modemConn) Available() int {
	if len(c.rx) > 0 {
		return len(c.rx)
	}
	c.topUp()
	return len(c.rx)
}

func (c *modemConn) topUp() {
	n, err := c.m.port.Read(c.m.inbuf[:])
	if err != nil || n == 0 {
		return
	}
	c.rx = append(c.rx, c.m.inbuf[:n]...)
}

func (c *modemConn) Read(p []byte) (int, error) {
	if len(c.rx) == 0 {
		c.topUp()
	}
	n := copy(p, c.rx)
	c.rx = c.rx[n:]
	return n, nil
}

func (c *modemConn) Write(p []byte) (int, error) {
	n, err := c.m.port.Write(p)
	if err != nil {
		c.m.noteFailure(err)
	}
	return n, err
}

func (c *modemConn) Flush() error { return nil }
func (c *modemConn) Close() error { return nil }
