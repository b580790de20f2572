// internal/radio/builder.go
package radio

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mkarlsen/meshtemp/internal/config"
	"github.com/mkarlsen/meshtemp/internal/responder"
)

// Link bundles what the node needs from the radio side: membership,
// inbound conversations, and the hardware failure latch.
type Link interface {
	Connected() bool
	Rejoin()
	AcceptPending() (responder.Conn, bool)
	HardwareFailed() bool
	Close() error
}

// Build wires the configured radio transport.
func Build(cfg config.RadioConfig, log *zap.Logger) (Link, func() error, error) {
	switch cfg.Mode {
	case "modem":
		m, err := OpenModem(cfg.Modem, log)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil

	case "tcp":
		l, err := NewTCPLink(cfg.TCP, log)
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil

	default:
		return nil, nil, fmt.Errorf("radio: unknown mode %q", cfg.Mode)
	}
}
