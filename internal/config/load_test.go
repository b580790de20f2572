// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meshtemp.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FullDocument(t *testing.T) {
	path := writeConfig(t, `
node:
  id: lakehouse-gw
radio:
  mode: modem
  modem:
    device: /dev/ttyUSB0
    baud: 9600
bus:
  backend: modbus
  modbus:
    endpoint: 192.168.7.2:502
    timeout_ms: 500
    sensors:
      - identity: 28ff1c6a90150328
        unit_id: 1
        register: 0
        scale: 0.1
uplink:
  sink: http
  http:
    endpoint: https://collector.example.net/api/reports
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}

	if cfg.Node.ID != "lakehouse-gw" {
		t.Fatalf("node id: got %q", cfg.Node.ID)
	}
	if cfg.Radio.Modem.Device != "/dev/ttyUSB0" {
		t.Fatalf("modem device: got %q", cfg.Radio.Modem.Device)
	}
	if len(cfg.Bus.Modbus.Sensors) != 1 || cfg.Bus.Modbus.Sensors[0].Scale != 0.1 {
		t.Fatalf("modbus sensors decoded wrong: %+v", cfg.Bus.Modbus.Sensors)
	}
	if cfg.Uplink.Sink != "http" {
		t.Fatalf("uplink sink: got %q", cfg.Uplink.Sink)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, `
radio:
  mode: tcp
  tcp:
    listen: ":8080"
  antenna_gain: 3
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown-field error, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected read error, got nil")
	}
}
