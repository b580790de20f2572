// internal/watchdog/watchdog.go
package watchdog

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Timeout is the hardware deadline. Miss feeds for this long and the
// device resets the node.
const Timeout = 8 * time.Second

// Device is a hardware watchdog timer.
type Device interface {
	Arm(timeout time.Duration) error
	Feed() error
	Disarm() error
}

// FailureFlag reports a latched, unrecoverable hardware fault.
type FailureFlag interface {
	HardwareFailed() bool
}

// Supervisor decides, once per control-loop iteration, whether the
// watchdog gets fed.
type Supervisor struct {
	dev  Device
	flag FailureFlag
	log  *zap.Logger

	armed      bool
	skipLogged bool
}

func NewSupervisor(dev Device, flag FailureFlag, log *zap.Logger) (*Supervisor, error) {
	if dev == nil {
		return nil, errors.New("watchdog: nil device")
	}
	if flag == nil {
		return nil, errors.New("watchdog: nil failure flag")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{dev: dev, flag: flag, log: log}, nil
}

// Arm starts the hardware countdown. Call it only once startup is
// done: an armed watchdog turns slow initialization into a reboot
// loop.
func (s *Supervisor) Arm() error {
	if err := s.dev.Arm(Timeout); err != nil {
		return fmt.Errorf("watchdog: arm: %w", err)
	}
	s.armed = true
	s.log.Info("watchdog armed", zap.Duration("timeout", Timeout))
	return nil
}

// FeedOnce feeds the device, except while the radio failure latch is
// set: then the feed is withheld so the watchdog expires and restarts
// the node. That restart is the recovery path, not an accident.
func (s *Supervisor) FeedOnce() {
	if !s.armed {
		return
	}
	if s.flag.HardwareFailed() {
		if !s.skipLogged {
			s.skipLogged = true
			s.log.Error("withholding watchdog feeds, waiting for hardware reset")
		}
		return
	}
	if err := s.dev.Feed(); err != nil {
		s.log.Warn("watchdog feed failed", zap.Error(err))
	}
}

// Disarm stops the countdown for a clean shutdown.
func (s *Supervisor) Disarm() error {
	if !s.armed {
		return nil
	}
	s.armed = false
	if err := s.dev.Disarm(); err != nil {
		return fmt.Errorf("watchdog: disarm: %w", err)
	}
	s.log.Info("watchdog disarmed")
	return nil
}
