// internal/uplink/builder.go
package uplink

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mkarlsen/meshtemp/internal/config"
)

// Build selects the configured sink. The "none" sink yields a nil
// Publisher; callers treat nil as uplink disabled.
func Build(cfg config.UplinkConfig, log *zap.Logger) (Publisher, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Sink {
	case "", "none":
		return nil, noop, nil

	case "mqtt":
		p, err := NewMQTTPublisher(cfg.MQTT, log)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil

	case "amqp":
		p, err := NewAMQPPublisher(cfg.AMQP, log)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil

	case "http":
		return NewHTTPPublisher(cfg.HTTP), noop, nil

	default:
		return nil, nil, fmt.Errorf("uplink: unknown sink %q", cfg.Sink)
	}
}
