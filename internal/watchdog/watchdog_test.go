// internal/watchdog/watchdog_test.go
package watchdog

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeDevice struct {
	armTimeout time.Duration
	arms       int
	feeds      int
	disarms    int
	armErr     error
	feedErr    error
}

func (d *fakeDevice) Arm(t time.Duration) error {
	d.arms++
	d.armTimeout = t
	return d.armErr
}

func (d *fakeDevice) Feed() error {
	d.feeds++
	return d.feedErr
}

func (d *fakeDevice) Disarm() error {
	d.disarms++
	return nil
}

type fakeFlag struct{ failed bool }

func (f *fakeFlag) HardwareFailed() bool { return f.failed }

func build(t *testing.T, dev Device, flag FailureFlag) *Supervisor {
	t.Helper()
	s, err := NewSupervisor(dev, flag, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	return s
}

func TestFeedOnce_BeforeArmDoesNothing(t *testing.T) {
	dev := &fakeDevice{}
	s := build(t, dev, &fakeFlag{})

	s.FeedOnce()

	if dev.feeds != 0 {
		t.Fatalf("fed %d times before arm", dev.feeds)
	}
}

func TestArmThenFeed(t *testing.T) {
	dev := &fakeDevice{}
	s := build(t, dev, &fakeFlag{})

	if err := s.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if dev.armTimeout != Timeout {
		t.Fatalf("arm timeout: got %v, want %v", dev.armTimeout, Timeout)
	}

	s.FeedOnce()
	s.FeedOnce()
	if dev.feeds != 2 {
		t.Fatalf("feeds: got %d, want 2", dev.feeds)
	}
}

func TestFeedOnce_WithheldWhileLatched(t *testing.T) {
	dev := &fakeDevice{}
	flag := &fakeFlag{}
	s := build(t, dev, flag)
	if err := s.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	s.FeedOnce()
	flag.failed = true
	s.FeedOnce()
	s.FeedOnce()

	// Only the pre-latch iteration fed; the rest starve the device.
	if dev.feeds != 1 {
		t.Fatalf("feeds after latch: got %d, want 1", dev.feeds)
	}
}

func TestDisarm_StopsFeeding(t *testing.T) {
	dev := &fakeDevice{}
	s := build(t, dev, &fakeFlag{})
	if err := s.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	if err := s.Disarm(); err != nil {
		t.Fatalf("Disarm: %v", err)
	}
	if dev.disarms != 1 {
		t.Fatalf("disarms: got %d, want 1", dev.disarms)
	}

	s.FeedOnce()
	if dev.feeds != 0 {
		t.Fatalf("fed after disarm")
	}
}

func TestDisarm_WithoutArmIsFine(t *testing.T) {
	dev := &fakeDevice{}
	s := build(t, dev, &fakeFlag{})

	if err := s.Disarm(); err != nil {
		t.Fatalf("Disarm: %v", err)
	}
	if dev.disarms != 0 {
		t.Fatalf("device disarmed without being armed")
	}
}

func TestArm_ErrorLeavesSupervisorDisarmed(t *testing.T) {
	dev := &fakeDevice{armErr: errors.New("no such device")}
	s := build(t, dev, &fakeFlag{})

	if err := s.Arm(); err == nil {
		t.Fatalf("expected arm error")
	}

	s.FeedOnce()
	if dev.feeds != 0 {
		t.Fatalf("fed after failed arm")
	}
}
