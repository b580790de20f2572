// internal/sensors/onewire/bus_test.go
package onewire

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mkarlsen/meshtemp/internal/sensors"
)

func ident(t *testing.T, s string) sensors.Identity {
	t.Helper()
	id, err := sensors.ParseIdentity(s)
	if err != nil {
		t.Fatalf("ParseIdentity(%q): %v", s, err)
	}
	return id
}

func plantProbe(t *testing.T, root, dirName, slave string) {
	t.Helper()
	dir := filepath.Join(root, dirName)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if slave == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "w1_slave"), []byte(slave), 0o644); err != nil {
		t.Fatalf("write w1_slave: %v", err)
	}
}

const goodSlave = "51 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES\n" +
	"51 01 4b 46 7f ff 0c 10 d8 t=21062\n"

const badCRCSlave = "51 01 4b 46 7f ff 0c 10 d8 : crc=d8 NO\n" +
	"51 01 4b 46 7f ff 0c 10 d8 t=21062\n"

// ---- tests ----

func TestReadCelsius(t *testing.T) {
	root := t.TempDir()
	plantProbe(t, root, "28-ff1c6a901503", goodSlave)

	bus, err := New(Config{Dir: root})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	c, err := bus.ReadCelsius(ident(t, "28ff1c6a90150328"))
	if err != nil {
		t.Fatalf("ReadCelsius err=%v", err)
	}
	if c != 21.062 {
		t.Fatalf("expected 21.062, got %v", c)
	}
}

func TestReadCelsius_CRCFailure(t *testing.T) {
	root := t.TempDir()
	plantProbe(t, root, "28-ff1c6a901503", badCRCSlave)

	bus, _ := New(Config{Dir: root})

	if _, err := bus.ReadCelsius(ident(t, "28ff1c6a90150328")); err == nil {
		t.Fatalf("expected crc error, got nil")
	}
}

func TestReadCelsius_NegativeValue(t *testing.T) {
	root := t.TempDir()
	slave := "f8 ff 4b 46 7f ff 0c 10 71 : crc=71 YES\n" +
		"f8 ff 4b 46 7f ff 0c 10 71 t=-500\n"
	plantProbe(t, root, "28-ff1c6a901503", slave)

	bus, _ := New(Config{Dir: root})

	c, err := bus.ReadCelsius(ident(t, "28ff1c6a90150328"))
	if err != nil {
		t.Fatalf("ReadCelsius err=%v", err)
	}
	if c != -0.5 {
		t.Fatalf("expected -0.5, got %v", c)
	}
}

func TestReachable(t *testing.T) {
	root := t.TempDir()
	plantProbe(t, root, "28-ff1c6a901503", goodSlave)

	bus, _ := New(Config{Dir: root})

	if !bus.Reachable(ident(t, "28ff1c6a90150328")) {
		t.Fatalf("planted probe should be reachable")
	}
	if bus.Reachable(ident(t, "28ff8d2c90150341")) {
		t.Fatalf("absent probe should not be reachable")
	}
}

func TestDiscoverCount_ThermometersOnly(t *testing.T) {
	root := t.TempDir()
	plantProbe(t, root, "28-ff1c6a901503", goodSlave)
	plantProbe(t, root, "28-ff8d2c901503", goodSlave)
	// Neither the bus master nor an addressable switch is a probe.
	plantProbe(t, root, "w1_bus_master1", "")
	plantProbe(t, root, "05-00000112233f", "")

	bus, _ := New(Config{Dir: root})

	n, err := bus.DiscoverCount()
	if err != nil {
		t.Fatalf("DiscoverCount err=%v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 thermometers, got %d", n)
	}
}

func TestDiscoverCount_MissingDir(t *testing.T) {
	bus, _ := New(Config{Dir: filepath.Join(t.TempDir(), "absent")})

	if _, err := bus.DiscoverCount(); err == nil {
		t.Fatalf("expected scan error, got nil")
	}
}
