// internal/sensors/modbus/bus.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/mkarlsen/meshtemp/internal/sensors"
)

// Bus reads temperature transmitters behind a Modbus TCP gateway.
// One short input-register read per probe; transmitters report signed
// counts at a per-point scale.
type Bus struct {
	// Serialized because reads mutate SlaveId per probe.
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
	points  map[sensors.Identity]Point
}

// Point is one probe's register geometry.
type Point struct {
	UnitID   uint8
	Register uint16
	Scale    float64 // degrees C per count
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
	Points   map[sensors.Identity]Point
}

// New creates a connected bus. Startup fails fast: a gateway that is
// down at boot is a deployment problem, not a runtime condition.
func New(cfg Config) (*Bus, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus bus: endpoint required")
	}
	if len(cfg.Points) == 0 {
		return nil, errors.New("modbus bus: at least one point required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus bus: connect %s: %w", cfg.Endpoint, err)
	}

	return &Bus{
		handler: h,
		client:  modbus.NewClient(h),
		points:  cfg.Points,
	}, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler.Close()
}

// ---- sensors.Bus interface ----

// DiscoverCount reports the configured population. A register gateway
// has no enumeration; the mapping is the population.
func (b *Bus) DiscoverCount() (int, error) {
	return len(b.points), nil
}

func (b *Bus) Reachable(id sensors.Identity) bool {
	p, ok := b.points[id]
	if !ok {
		return false
	}
	_, err := b.readRaw(p)
	return err == nil
}

func (b *Bus) ReadCelsius(id sensors.Identity) (float64, error) {
	p, ok := b.points[id]
	if !ok {
		return 0, fmt.Errorf("modbus bus: unknown identity %s", id)
	}

	counts, err := b.readRaw(p)
	if err != nil {
		return 0, fmt.Errorf("modbus bus: unit=%d register=%d: %w", p.UnitID, p.Register, err)
	}

	return float64(counts) * p.Scale, nil
}

func (b *Bus) readRaw(p Point) (int16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handler.SlaveId = p.UnitID

	raw, err := b.client.ReadInputRegisters(p.Register, 1)
	if err != nil {
		return 0, err
	}
	if len(raw) < 2 {
		return 0, errors.New("short register payload")
	}

	return int16(binary.BigEndian.Uint16(raw)), nil
}
