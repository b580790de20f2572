// cmd/meshtemp/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mkarlsen/meshtemp/internal/config"
	"github.com/mkarlsen/meshtemp/internal/logging"
	"github.com/mkarlsen/meshtemp/internal/mesh"
	"github.com/mkarlsen/meshtemp/internal/node"
	"github.com/mkarlsen/meshtemp/internal/radio"
	"github.com/mkarlsen/meshtemp/internal/responder"
	"github.com/mkarlsen/meshtemp/internal/sensors"
	"github.com/mkarlsen/meshtemp/internal/sensors/modbus"
	"github.com/mkarlsen/meshtemp/internal/sensors/onewire"
	"github.com/mkarlsen/meshtemp/internal/uplink"
	"github.com/mkarlsen/meshtemp/internal/watchdog"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: meshtemp <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger, syncLogs, err := logging.Build(cfg.Log)
	if err != nil {
		log.Fatalf("logger build failed: %v", err)
	}
	defer syncLogs()

	logger.Info("meshtemp starting", zap.String("node_id", cfg.Node.ID))

	// --------------------
	// Sensor bank
	// --------------------

	roster := sensors.DefaultRoster()

	bus, closeBus, err := buildBus(cfg.Bus, roster)
	if err != nil {
		logger.Fatal("sensor bus build failed", zap.Error(err))
	}
	defer closeBus()

	bank, err := sensors.NewBank(roster, bus)
	if err != nil {
		logger.Fatal("sensor bank build failed", zap.Error(err))
	}
	logger.Info("sensor bank ready",
		zap.Int("probes", bank.Size()),
		zap.String("backend", cfg.Bus.Backend))

	// --------------------
	// Radio link + mesh supervisor
	// --------------------

	link, closeLink, err := radio.Build(cfg.Radio, logger)
	if err != nil {
		logger.Fatal("radio build failed", zap.Error(err))
	}
	defer closeLink()

	meshSup, err := mesh.NewSupervisor(link, buildIndicator(cfg.Indicator, logger), logger)
	if err != nil {
		logger.Fatal("mesh supervisor build failed", zap.Error(err))
	}

	// --------------------
	// Watchdog
	// --------------------

	var dev watchdog.Device = watchdog.Noop{}
	if cfg.Watchdog.Device != "" {
		dev = watchdog.Open(cfg.Watchdog.Device, logger)
	}

	faults, err := watchdog.NewSupervisor(dev, link, logger)
	if err != nil {
		logger.Fatal("watchdog build failed", zap.Error(err))
	}

	// --------------------
	// Uplink
	// --------------------

	pub, closeUplink, err := uplink.Build(cfg.Uplink, logger)
	if err != nil {
		logger.Fatal("uplink build failed", zap.Error(err))
	}
	defer closeUplink()

	// --------------------
	// Control loop
	// --------------------

	n, err := node.New(node.Options{
		NodeID:    cfg.Node.ID,
		Mesh:      meshSup,
		Responder: responder.New(bank, logger),
		Listener:  link,
		Bank:      bank,
		Faults:    faults,
		Uplink:    pub,
		Log:       logger,
	})
	if err != nil {
		logger.Fatal("node build failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := n.Run(ctx); err != nil {
		logger.Fatal("node run failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// buildBus selects the sensor transport. The modbus backend must also
// cover the whole roster: a probe without a register mapping could
// never produce a reading.
func buildBus(cfg config.BusConfig, roster []sensors.Spec) (sensors.Bus, func() error, error) {
	switch cfg.Backend {
	case "onewire":
		b, err := onewire.New(onewire.Config{Dir: cfg.OneWire.Dir})
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil

	case "modbus":
		points := make(map[sensors.Identity]modbus.Point, len(cfg.Modbus.Sensors))
		for _, s := range cfg.Modbus.Sensors {
			id, err := sensors.ParseIdentity(s.Identity)
			if err != nil {
				return nil, nil, err
			}
			points[id] = modbus.Point{
				UnitID:   s.UnitID,
				Register: s.Register,
				Scale:    s.Scale,
			}
		}
		for _, spec := range roster {
			if _, ok := points[spec.Identity]; !ok {
				return nil, nil, fmt.Errorf("sensor bus: probe %s has no register mapping", spec.Identity)
			}
		}

		b, err := modbus.New(modbus.Config{
			Endpoint: cfg.Modbus.Endpoint,
			Timeout:  time.Duration(cfg.Modbus.TimeoutMs) * time.Millisecond,
			Points:   points,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil

	default:
		return nil, nil, fmt.Errorf("sensor bus: unknown backend %q", cfg.Backend)
	}
}

func buildIndicator(cfg config.IndicatorConfig, log *zap.Logger) mesh.Indicator {
	if cfg.LED == "" {
		return mesh.NewLogIndicator(log)
	}
	return mesh.NewLEDIndicator(cfg.LED, log)
}
