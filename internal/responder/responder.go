// internal/responder/responder.go
package responder

import (
	"bytes"
	"strconv"

	"go.uber.org/zap"

	"github.com/mkarlsen/meshtemp/internal/sensors"
)

// BufferCap bounds each direction of one conversation. Requests and
// responses that do not fit are rejected whole, never processed or
// truncated.
const BufferCap = 400

// Conn is one inbound mesh conversation.
type Conn interface {
	// Available reports bytes readable right now without blocking.
	Available() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Flush() error
	Close() error
}

// Listener hands out conversations. A conversation is pending only
// once inbound bytes have been signaled, never on a bare accept.
type Listener interface {
	AcceptPending() (Conn, bool)
}

// Outcome classifies one handled conversation.
type Outcome uint8

const (
	OutcomeServe Outcome = iota
	OutcomeBufferOverflow
	OutcomeNotGetMethod
	OutcomeNotTempPath
	OutcomeUnknown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeServe:
		return "serve"
	case OutcomeBufferOverflow:
		return "buffer-overflow"
	case OutcomeNotGetMethod:
		return "not-get-method"
	case OutcomeNotTempPath:
		return "not-temp-path"
	case OutcomeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// SensorSource is what serving a query needs from the sensor bank.
type SensorSource interface {
	RefreshAll() sensors.RefreshResult
	Snapshot() []sensors.Sample
}

// Responder answers the node's one query. It owns no transport and no
// sensor state; both arrive through interfaces.
type Responder struct {
	bank SensorSource
	log  *zap.Logger
}

func New(bank SensorSource, log *zap.Logger) *Responder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Responder{bank: bank, log: log}
}

// ServeNext handles at most one pending conversation and reports its
// outcome. With nothing pending it touches nothing and returns false.
func (r *Responder) ServeNext(l Listener) (Outcome, bool) {
	conn, ok := l.AcceptPending()
	if !ok {
		return 0, false
	}
	defer conn.Close()

	out := r.handle(conn)

	switch out {
	case OutcomeServe:
		r.log.Debug("query served")
	case OutcomeUnknown:
		r.log.Warn("conversation failed", zap.Stringer("outcome", out))
	default:
		r.log.Info("query rejected", zap.Stringer("outcome", out))
	}

	return out, true
}

func (r *Responder) handle(conn Conn) Outcome {
	in := NewLimitBuffer(BufferCap)

	out := readRequest(conn, in)
	if out == OutcomeServe {
		out = classify(in.Bytes())
	}

	// Single response site. Every outcome answers; only Serve touches
	// the sensor bank.
	switch out {
	case OutcomeServe:
		out = r.serve(conn)
	case OutcomeBufferOverflow:
		r.respond(conn, respOverflow)
	case OutcomeNotGetMethod:
		r.respond(conn, respNotGet)
	case OutcomeNotTempPath:
		r.respond(conn, respNotTemp)
	case OutcomeUnknown:
		r.respond(conn, respUnknown)
	}

	return out
}

// readRequest drains the conversation's inbound side into the request
// buffer. The available count is checked against remaining capacity
// BEFORE consuming: an oversized request is discarded whole.
// OutcomeServe here means only "request read, go classify".
func readRequest(conn Conn, in *LimitBuffer) Outcome {
	var scratch [BufferCap]byte

	for {
		avail := conn.Available()
		if avail <= 0 {
			return OutcomeServe
		}
		if avail > in.Remaining() {
			drain(conn)
			return OutcomeBufferOverflow
		}

		n, err := conn.Read(scratch[:avail])
		if err != nil {
			return OutcomeUnknown
		}
		if n == 0 {
			return OutcomeServe
		}
		// Cannot fail: the capacity check above covered avail >= n.
		_ = in.Append(scratch[:n])
	}
}

// drain discards whatever else the peer sent.
func drain(conn Conn) {
	var sink [BufferCap]byte
	for conn.Available() > 0 {
		n, err := conn.Read(sink[:])
		if err != nil || n == 0 {
			return
		}
	}
}

// classify inspects a complete request. The method check is a
// substring match, the path check an exact one: that asymmetry is the
// protocol the deployed clients rely on, not an accident to fix.
func classify(req []byte) Outcome {
	if !bytes.Contains(req, []byte("GET")) {
		return OutcomeNotGetMethod
	}

	tokens := bytes.Split(req, []byte(" "))
	if len(tokens) < 2 {
		return OutcomeNotTempPath
	}
	if !bytes.Equal(tokens[1], []byte(temperaturePath)) {
		return OutcomeNotTempPath
	}

	return OutcomeServe
}

// serve refreshes the bank and answers with every reading, stale ones
// included. If the report cannot fit the response buffer, the whole
// report is dropped in favour of the overflow answer.
func (r *Responder) serve(conn Conn) Outcome {
	res := r.bank.RefreshAll()
	if res.Failed() {
		r.log.Warn("serving with stale probes", zap.Int("failed", len(res.Failures)))
	}
	if res.CountMismatch() {
		r.log.Warn("bus population mismatch",
			zap.Int("found", res.Found),
			zap.Int("expected", res.Expected),
			zap.Error(res.DiscoverErr))
	}

	out := NewLimitBuffer(BufferCap)
	if err := appendReport(out, r.bank.Snapshot()); err != nil {
		out.Reset()
		_ = out.AppendString(respOverflow)
		r.write(conn, out.Bytes())
		return OutcomeBufferOverflow
	}

	r.write(conn, out.Bytes())
	return OutcomeServe
}

// appendReport renders the 200 response: fixed header, then
// <label><value> per probe joined by '|', closed with CRLF.
func appendReport(out *LimitBuffer, samples []sensors.Sample) error {
	if err := out.AppendString(headerOK); err != nil {
		return err
	}
	for i, s := range samples {
		if i > 0 {
			if err := out.AppendString("|"); err != nil {
				return err
			}
		}
		if err := out.AppendString(s.Label); err != nil {
			return err
		}
		v := strconv.FormatFloat(s.Celsius, 'f', fractionDigits, 64)
		if err := out.AppendString(v); err != nil {
			return err
		}
	}
	return out.AppendString("\r\n")
}

// respond sends one of the fixed rejection images through the response
// buffer, keeping every outbound byte capacity-checked.
func (r *Responder) respond(conn Conn, image string) {
	out := NewLimitBuffer(BufferCap)
	if err := out.AppendString(image); err != nil {
		r.log.Error("response image exceeds buffer", zap.Error(err))
		return
	}
	r.write(conn, out.Bytes())
}

func (r *Responder) write(conn Conn, b []byte) {
	if err := writeAll(conn, b); err != nil {
		r.log.Warn("response write failed", zap.Error(err))
		return
	}
	if err := conn.Flush(); err != nil {
		r.log.Warn("response flush failed", zap.Error(err))
	}
}

func writeAll(conn Conn, b []byte) error {
	for len(b) > 0 {
		n, err := conn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
