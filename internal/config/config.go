// internal/config/config.go
package config

type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Log       LogConfig       `yaml:"log"`
	Radio     RadioConfig     `yaml:"radio"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Bus       BusConfig       `yaml:"bus"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
	Uplink    UplinkConfig    `yaml:"uplink"`
}

// ---- NODE ----

type NodeConfig struct {
	ID string `yaml:"id"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // console|json

	// Rotating file sink (optional, opt-in via File)
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ---- RADIO ----

type RadioConfig struct {
	Mode  string      `yaml:"mode"` // modem|tcp
	Modem ModemConfig `yaml:"modem"`
	TCP   TCPConfig   `yaml:"tcp"`
}

type ModemConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type TCPConfig struct {
	Listen string `yaml:"listen"`
}

// ---- INDICATOR ----

type IndicatorConfig struct {
	// Sysfs LED brightness file. Empty means log-only indication.
	LED string `yaml:"led"`
}

// ---- SENSOR BUS ----

type BusConfig struct {
	Backend string        `yaml:"backend"` // onewire|modbus
	OneWire OneWireConfig `yaml:"onewire"`
	Modbus  ModbusConfig  `yaml:"modbus"`
}

type OneWireConfig struct {
	Dir string `yaml:"dir"`
}

type ModbusConfig struct {
	Endpoint  string         `yaml:"endpoint"`
	TimeoutMs int            `yaml:"timeout_ms"`
	Sensors   []ModbusSensor `yaml:"sensors"`
}

// ModbusSensor maps one probe identity onto transmitter geometry.
type ModbusSensor struct {
	Identity string  `yaml:"identity"` // 16 hex chars (8-byte ROM)
	UnitID   uint8   `yaml:"unit_id"`
	Register uint16  `yaml:"register"`
	Scale    float64 `yaml:"scale"` // degrees C per count; 0 => default
}

// ---- WATCHDOG ----

type WatchdogConfig struct {
	// Device file. Empty means no hardware watchdog (bench mode).
	Device string `yaml:"device"`
}

// ---- UPLINK ----

type UplinkConfig struct {
	Sink string     `yaml:"sink"` // none|mqtt|amqp|http
	MQTT MQTTConfig `yaml:"mqtt"`
	AMQP AMQPConfig `yaml:"amqp"`
	HTTP HTTPConfig `yaml:"http"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      uint8  `yaml:"qos"`
}

type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

type HTTPConfig struct {
	Endpoint  string `yaml:"endpoint"`
	TimeoutMs int    `yaml:"timeout_ms"`
}
