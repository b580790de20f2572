// internal/sensors/onewire/bus.go
package onewire

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mkarlsen/meshtemp/internal/sensors"
)

// Bus reads DS18B20-class probes through the kernel w1 subsystem.
// Each probe is a directory under dir named family-serial; the value
// comes from its w1_slave file in millidegrees.
type Bus struct {
	dir string
}

type Config struct {
	Dir string
}

func New(cfg Config) (*Bus, error) {
	if cfg.Dir == "" {
		return nil, errors.New("onewire: dir required")
	}
	return &Bus{dir: cfg.Dir}, nil
}

func (b *Bus) Close() error { return nil }

// thermometer family codes the kernel w1_therm driver binds to
var thermFamilies = map[string]bool{
	"10": true, // DS18S20
	"22": true, // DS1822
	"28": true, // DS18B20
	"3b": true, // DS1825
	"42": true, // DS28EA00
}

// ---- sensors.Bus interface ----

func (b *Bus) DiscoverCount() (int, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0, fmt.Errorf("onewire: scan %s: %w", b.dir, err)
	}

	n := 0
	for _, e := range entries {
		if isThermometerDir(e.Name()) {
			n++
		}
	}
	return n, nil
}

func (b *Bus) Reachable(id sensors.Identity) bool {
	_, err := os.Stat(filepath.Join(b.dir, deviceDir(id)))
	return err == nil
}

func (b *Bus) ReadCelsius(id sensors.Identity) (float64, error) {
	path := filepath.Join(b.dir, deviceDir(id), "w1_slave")
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("onewire: read %s: %w", path, err)
	}
	return parseSlave(string(raw))
}

// ---- kernel file formats ----

// deviceDir renders the sysfs directory name: family byte, dash, then
// the six serial bytes.
func deviceDir(id sensors.Identity) string {
	return fmt.Sprintf("%02x-%02x%02x%02x%02x%02x%02x",
		id[0], id[1], id[2], id[3], id[4], id[5], id[6])
}

func isThermometerDir(name string) bool {
	if len(name) < 3 || name[2] != '-' {
		return false
	}
	return thermFamilies[name[:2]]
}

// parseSlave extracts a temperature from a w1_slave dump:
//
//	51 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES
//	51 01 4b 46 7f ff 0c 10 d8 t=21062
func parseSlave(s string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) < 2 {
		return 0, errors.New("onewire: short w1_slave dump")
	}

	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, errors.New("onewire: crc check failed")
	}

	idx := strings.LastIndex(lines[1], "t=")
	if idx < 0 {
		return 0, errors.New("onewire: missing t= field")
	}

	milli, err := strconv.Atoi(strings.TrimSpace(lines[1][idx+2:]))
	if err != nil {
		return 0, fmt.Errorf("onewire: bad t= field: %w", err)
	}

	return float64(milli) / 1000.0, nil
}
