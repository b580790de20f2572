// internal/mesh/supervisor.go
package mesh

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// checkInterval is the association probe period. Fixed: the radio
// vendor sizes association timeouts against it.
const checkInterval = 15 * time.Second

// Membership is the radio-side contract the supervisor drives.
type Membership interface {
	// Connected probes current mesh association.
	Connected() bool

	// Rejoin blocks until the radio reports association again, or
	// gives up internally. It carries no failure signal: a radio that
	// cannot rejoin surfaces through the fault path, not here.
	Rejoin()
}

// Indicator is the binary connectivity output. No state beyond the
// last value written.
type Indicator interface {
	Set(on bool)
}

// Supervisor keeps mesh membership alive with an edge-triggered probe.
// Rejoin is the single intentional suspension point in the whole node;
// everything else here returns immediately.
type Supervisor struct {
	radio Membership
	ind   Indicator
	log   *zap.Logger

	now       func() time.Time
	state     State
	lastCheck time.Time
}

// NewSupervisor starts in the Connected state with the indicator on.
// The first probe runs one full interval after construction.
func NewSupervisor(radio Membership, ind Indicator, log *zap.Logger) (*Supervisor, error) {
	if radio == nil {
		return nil, errors.New("mesh: membership required")
	}
	if ind == nil {
		return nil, errors.New("mesh: indicator required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Supervisor{
		radio: radio,
		ind:   ind,
		log:   log,
		now:   time.Now,
		state: Connected,
	}
	s.lastCheck = s.now()
	s.ind.Set(true)

	return s, nil
}

// State reports the current membership view without probing.
func (s *Supervisor) State() State { return s.state }

// CheckOnce runs the probe if its window has elapsed; outside the
// window it is a no-op. The window is measured from the previous
// check, successful or not. On probe failure the indicator drops at
// once, then Rejoin blocks; when it returns the node is treated as
// connected again regardless, and the next probe re-verifies.
func (s *Supervisor) CheckOnce() State {
	if s.now().Sub(s.lastCheck) < checkInterval {
		return s.state
	}
	s.lastCheck = s.now()

	if s.radio.Connected() {
		s.state = Connected
		s.ind.Set(true)
		return s.state
	}

	s.log.Warn("mesh association lost, rejoining")
	s.ind.Set(false)
	s.state = Disconnected

	s.radio.Rejoin()

	s.ind.Set(true)
	s.state = Connected
	s.log.Info("mesh rejoin finished")

	return s.state
}
