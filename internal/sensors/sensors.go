// internal/sensors/sensors.go
package sensors

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Identity is the fixed 8-byte hardware address of one probe
// (family byte, 6-byte serial, CRC for 1-Wire parts).
type Identity [8]byte

func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// ParseIdentity decodes a 16-hex-character identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("sensors: identity %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("sensors: identity %q: need %d bytes, got %d", s, len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// Spec binds one roster entry: who the probe is, how it is labelled on
// the wire, and its additive calibration.
type Spec struct {
	Identity Identity
	Label    string
	Offset   float64 // degrees C, added to every raw reading
}

// Reading is the last known value for one probe.
// Celsius persists across failed refreshes; Valid tracks only the most
// recent attempt.
type Reading struct {
	Celsius float64
	Valid   bool
}

// Sample pairs one roster entry with its last known reading.
type Sample struct {
	Identity Identity
	Label    string
	Celsius  float64
	Valid    bool
}

// Failure is one probe's diagnostic from a refresh sweep.
type Failure struct {
	Identity Identity
	Label    string
	Err      error
}

// RefreshResult reports one refresh sweep. Probe failures are data
// here, not errors: the sweep itself cannot fail.
type RefreshResult struct {
	At       time.Time
	Failures []Failure

	// Bus population check.
	Found       int
	Expected    int
	DiscoverErr error
}

// Failed reports whether any probe missed this sweep.
func (r RefreshResult) Failed() bool { return len(r.Failures) > 0 }

// CountMismatch reports whether bus discovery disagrees with the roster.
func (r RefreshResult) CountMismatch() bool {
	return r.DiscoverErr != nil || r.Found != r.Expected
}

// Bus abstracts probe transport. The bank depends on reads only.
type Bus interface {
	DiscoverCount() (int, error)
	Reachable(id Identity) bool
	ReadCelsius(id Identity) (float64, error)
}

// ErrUnreachable marks a probe that did not answer presence detection.
var ErrUnreachable = errors.New("sensors: probe unreachable")
