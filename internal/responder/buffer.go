// internal/responder/buffer.go
package responder

import "errors"

// ErrBufferFull rejects an append that does not fit.
var ErrBufferFull = errors.New("responder: buffer full")

// LimitBuffer is a fixed-capacity byte buffer with checked appends.
// An append that does not fit fails whole: nothing is written, nothing
// is truncated. The capacity never grows.
type LimitBuffer struct {
	buf []byte
}

func NewLimitBuffer(capacity int) *LimitBuffer {
	return &LimitBuffer{buf: make([]byte, 0, capacity)}
}

func (b *LimitBuffer) Len() int       { return len(b.buf) }
func (b *LimitBuffer) Remaining() int { return cap(b.buf) - len(b.buf) }
func (b *LimitBuffer) Bytes() []byte  { return b.buf }

func (b *LimitBuffer) Reset() { b.buf = b.buf[:0] }

func (b *LimitBuffer) Append(p []byte) error {
	if len(p) > b.Remaining() {
		return ErrBufferFull
	}
	b.buf = append(b.buf, p...)
	return nil
}

func (b *LimitBuffer) AppendString(s string) error {
	if len(s) > b.Remaining() {
		return ErrBufferFull
	}
	b.buf = append(b.buf, s...)
	return nil
}
