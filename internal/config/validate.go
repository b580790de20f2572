// internal/config/validate.go
package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {

	// ------------------------------------------------------------
	// NODE
	// ------------------------------------------------------------

	// node id sanity (ASCII only; it ends up in topics and reports)
	for i := 0; i < len(cfg.Node.ID); i++ {
		if cfg.Node.ID[i] > 0x7F {
			return fmt.Errorf("node.id must contain ASCII characters only")
		}
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be one of debug|info|warn|error", cfg.Log.Level)
	}

	switch cfg.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format %q: must be one of console|json", cfg.Log.Format)
	}

	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log: rotation limits must be >= 0")
	}

	// ------------------------------------------------------------
	// RADIO
	// ------------------------------------------------------------

	switch cfg.Radio.Mode {
	case "modem":
		if cfg.Radio.Modem.Device == "" {
			return fmt.Errorf("radio.modem.device required when radio.mode is modem")
		}
		if cfg.Radio.Modem.Baud < 0 {
			return fmt.Errorf("radio.modem.baud must be >= 0")
		}
	case "tcp":
		if cfg.Radio.TCP.Listen == "" {
			return fmt.Errorf("radio.tcp.listen required when radio.mode is tcp")
		}
	default:
		return fmt.Errorf("radio.mode %q: must be one of modem|tcp", cfg.Radio.Mode)
	}

	// ------------------------------------------------------------
	// SENSOR BUS
	// ------------------------------------------------------------

	switch cfg.Bus.Backend {
	case "onewire":
		// dir is optional; normalized to the kernel default

	case "modbus":
		if cfg.Bus.Modbus.Endpoint == "" {
			return fmt.Errorf("bus.modbus.endpoint required when bus.backend is modbus")
		}
		if cfg.Bus.Modbus.TimeoutMs < 0 {
			return fmt.Errorf("bus.modbus.timeout_ms must be >= 0")
		}
		if len(cfg.Bus.Modbus.Sensors) == 0 {
			return fmt.Errorf("bus.modbus: at least one sensor mapping required")
		}

		// key = unit_id | register
		registerOwner := make(map[string]string)
		seen := make(map[string]bool)

		for _, s := range cfg.Bus.Modbus.Sensors {
			if err := checkIdentityHex(s.Identity); err != nil {
				return fmt.Errorf("bus.modbus sensor %q: %w", s.Identity, err)
			}
			if s.Scale < 0 {
				return fmt.Errorf("bus.modbus sensor %q: scale must be >= 0", s.Identity)
			}

			if seen[s.Identity] {
				return fmt.Errorf("bus.modbus: duplicate sensor identity %q", s.Identity)
			}
			seen[s.Identity] = true

			key := fmt.Sprintf("%d|%d", s.UnitID, s.Register)
			if prev, exists := registerOwner[key]; exists {
				return fmt.Errorf(
					"bus.modbus: register collision: unit_id=%d register=%d claimed by %q and %q",
					s.UnitID, s.Register, prev, s.Identity,
				)
			}
			registerOwner[key] = s.Identity
		}

	default:
		return fmt.Errorf("bus.backend %q: must be one of onewire|modbus", cfg.Bus.Backend)
	}

	// ------------------------------------------------------------
	// UPLINK
	// ------------------------------------------------------------

	switch cfg.Uplink.Sink {
	case "", "none":

	case "mqtt":
		if cfg.Uplink.MQTT.Broker == "" {
			return fmt.Errorf("uplink.mqtt.broker required when uplink.sink is mqtt")
		}
		if cfg.Uplink.MQTT.Topic == "" {
			return fmt.Errorf("uplink.mqtt.topic required when uplink.sink is mqtt")
		}
		if cfg.Uplink.MQTT.QoS > 2 {
			return fmt.Errorf("uplink.mqtt.qos %d: must be 0, 1 or 2", cfg.Uplink.MQTT.QoS)
		}

	case "amqp":
		if cfg.Uplink.AMQP.URL == "" {
			return fmt.Errorf("uplink.amqp.url required when uplink.sink is amqp")
		}
		if cfg.Uplink.AMQP.Exchange == "" {
			return fmt.Errorf("uplink.amqp.exchange required when uplink.sink is amqp")
		}

	case "http":
		if cfg.Uplink.HTTP.Endpoint == "" {
			return fmt.Errorf("uplink.http.endpoint required when uplink.sink is http")
		}
		if cfg.Uplink.HTTP.TimeoutMs < 0 {
			return fmt.Errorf("uplink.http.timeout_ms must be >= 0")
		}

	default:
		return fmt.Errorf("uplink.sink %q: must be one of none|mqtt|amqp|http", cfg.Uplink.Sink)
	}

	return nil
}

// checkIdentityHex verifies an 8-byte probe identity in hex form.
func checkIdentityHex(s string) error {
	if len(s) != 16 {
		return fmt.Errorf("identity must be 16 hex characters, got %d", len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return fmt.Errorf("identity contains non-hex character %q", c)
		}
	}
	return nil
}
