// internal/config/normalize.go
package config

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Node.ID == "" {
		cfg.Node.ID = "meshtemp"
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.File != "" {
		if cfg.Log.MaxSizeMB == 0 {
			cfg.Log.MaxSizeMB = 10
		}
		if cfg.Log.MaxBackups == 0 {
			cfg.Log.MaxBackups = 3
		}
		if cfg.Log.MaxAgeDays == 0 {
			cfg.Log.MaxAgeDays = 28
		}
	}

	// ------------------------------------------------------------
	// RADIO
	// ------------------------------------------------------------

	if cfg.Radio.Mode == "modem" && cfg.Radio.Modem.Baud == 0 {
		cfg.Radio.Modem.Baud = 9600
	}

	// ------------------------------------------------------------
	// SENSOR BUS
	// ------------------------------------------------------------

	if cfg.Bus.Backend == "onewire" && cfg.Bus.OneWire.Dir == "" {
		cfg.Bus.OneWire.Dir = "/sys/bus/w1/devices"
	}

	if cfg.Bus.Backend == "modbus" {
		if cfg.Bus.Modbus.TimeoutMs == 0 {
			cfg.Bus.Modbus.TimeoutMs = 1000
		}
		for i := range cfg.Bus.Modbus.Sensors {
			if cfg.Bus.Modbus.Sensors[i].Scale == 0 {
				cfg.Bus.Modbus.Sensors[i].Scale = 0.1
			}
		}
	}

	// ------------------------------------------------------------
	// UPLINK
	// ------------------------------------------------------------

	if cfg.Uplink.Sink == "" {
		cfg.Uplink.Sink = "none"
	}
	if cfg.Uplink.Sink == "mqtt" && cfg.Uplink.MQTT.ClientID == "" {
		cfg.Uplink.MQTT.ClientID = cfg.Node.ID
	}
	if cfg.Uplink.Sink == "amqp" && cfg.Uplink.AMQP.RoutingKey == "" {
		cfg.Uplink.AMQP.RoutingKey = "reports"
	}
	if cfg.Uplink.Sink == "http" && cfg.Uplink.HTTP.TimeoutMs == 0 {
		cfg.Uplink.HTTP.TimeoutMs = 5000
	}
}
