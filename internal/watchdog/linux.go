// internal/watchdog/linux.go
package watchdog

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// DevWatchdog drives a Linux watchdog character device. Opening the
// device starts the countdown on most drivers, so the file stays
// closed until Arm.
type DevWatchdog struct {
	path string
	log  *zap.Logger
	f    *os.File
}

func Open(path string, log *zap.Logger) *DevWatchdog {
	if log == nil {
		log = zap.NewNop()
	}
	return &DevWatchdog{path: path, log: log}
}

func (d *DevWatchdog) Arm(timeout time.Duration) error {
	f, err := os.OpenFile(d.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("watchdog: open %s: %w", d.path, err)
	}

	secs := int(timeout / time.Second)
	if err := unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		f.Close()
		return fmt.Errorf("watchdog: set timeout on %s: %w", d.path, err)
	}

	// Drivers clamp out-of-range timeouts; read back what stuck.
	if got, gerr := unix.IoctlGetInt(int(f.Fd()), unix.WDIOC_GETTIMEOUT); gerr == nil && got != secs {
		d.log.Warn("watchdog driver adjusted timeout",
			zap.Int("requested_s", secs),
			zap.Int("effective_s", got))
	}

	d.f = f
	return nil
}

func (d *DevWatchdog) Feed() error {
	if d.f == nil {
		return errors.New("watchdog: device not armed")
	}
	if _, err := d.f.Write([]byte{0}); err != nil {
		return fmt.Errorf("watchdog: feed: %w", err)
	}
	return nil
}

// Disarm writes the magic close byte so the driver stops the countdown
// instead of treating the close as a crash.
func (d *DevWatchdog) Disarm() error {
	if d.f == nil {
		return nil
	}
	f := d.f
	d.f = nil

	if _, err := f.Write([]byte{'V'}); err != nil {
		f.Close()
		return fmt.Errorf("watchdog: magic close: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("watchdog: close: %w", err)
	}
	return nil
}
