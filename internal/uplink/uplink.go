// internal/uplink/uplink.go
package uplink

import (
	"context"
	"time"
)

// Report is one telemetry document. Field names are a wire contract
// with the collector side; change them only together with the fleet.
type Report struct {
	NodeID    string         `json:"node_id"`
	At        time.Time      `json:"at"`
	Mesh      string         `json:"mesh"`
	UptimeSec int64          `json:"uptime_sec"`
	Sensors   []SensorReport `json:"sensors"`
	Failures  int            `json:"failures"`
}

// SensorReport carries one bank slot. Valid false means the value is
// the last good reading, not a fresh one.
type SensorReport struct {
	Identity string  `json:"identity"`
	Label    string  `json:"label"`
	Celsius  float64 `json:"celsius"`
	Valid    bool    `json:"valid"`
}

// Publisher delivers one report to the IP side.
type Publisher interface {
	Publish(ctx context.Context, r Report) error
}
