// internal/node/node.go
package node

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mkarlsen/meshtemp/internal/mesh"
	"github.com/mkarlsen/meshtemp/internal/responder"
	"github.com/mkarlsen/meshtemp/internal/sensors"
	"github.com/mkarlsen/meshtemp/internal/uplink"
)

const (
	// loopTick paces the cooperative loop. Short enough that a pending
	// query never waits noticeably, long enough to keep the CPU idle.
	loopTick = 100 * time.Millisecond

	sampleInterval = 60 * time.Second

	// publishTimeout bounds one uplink delivery. It must stay well
	// under the watchdog timeout: a slow collector may cost one
	// report, never the node.
	publishTimeout = 3 * time.Second
)

// Mesh is the connectivity surface the loop drives.
type Mesh interface {
	CheckOnce() mesh.State
	State() mesh.State
}

// Server answers at most one pending query per call.
type Server interface {
	ServeNext(l responder.Listener) (responder.Outcome, bool)
}

// Bank is the sensor store surface used for periodic sampling.
type Bank interface {
	RefreshAll() sensors.RefreshResult
	Snapshot() []sensors.Sample
}

// Faults is the watchdog surface: armed once, fed once per iteration.
type Faults interface {
	Arm() error
	FeedOnce()
	Disarm() error
}

// Options wires a Node. Uplink may be nil; everything else is
// required.
type Options struct {
	NodeID    string
	Mesh      Mesh
	Responder Server
	Listener  responder.Listener
	Bank      Bank
	Faults    Faults
	Uplink    uplink.Publisher
	Log       *zap.Logger
}

// Node is the single-goroutine control loop. All component access
// happens from Run's goroutine; nothing here is shared.
type Node struct {
	opts Options
	log  *zap.Logger

	now        func() time.Time
	started    time.Time
	lastSample time.Time
}

func New(opts Options) (*Node, error) {
	if opts.Mesh == nil {
		return nil, errors.New("node: mesh supervisor required")
	}
	if opts.Responder == nil {
		return nil, errors.New("node: responder required")
	}
	if opts.Listener == nil {
		return nil, errors.New("node: listener required")
	}
	if opts.Bank == nil {
		return nil, errors.New("node: sensor bank required")
	}
	if opts.Faults == nil {
		return nil, errors.New("node: fault supervisor required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	n := &Node{
		opts: opts,
		log:  opts.Log,
		now:  time.Now,
	}
	n.started = n.now()
	n.lastSample = n.started
	return n, nil
}

// Run drives the node until ctx is cancelled. The watchdog arms on
// entry, after all construction, and disarms on the clean exit path.
func (n *Node) Run(ctx context.Context) error {
	if err := n.opts.Faults.Arm(); err != nil {
		return err
	}

	n.log.Info("node loop running", zap.String("node_id", n.opts.NodeID))

	ticker := time.NewTicker(loopTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.log.Info("node loop stopping")
			return n.opts.Faults.Disarm()
		case <-ticker.C:
			n.runOnce(ctx)
		}
	}
}

// runOnce is one cooperative iteration. The order is fixed:
// connectivity check, at most one served query, due sampling, then
// the single watchdog feed after all other work. No stage calls back
// into an earlier one.
func (n *Node) runOnce(ctx context.Context) {
	state := n.opts.Mesh.CheckOnce()

	// Queries arrive over the mesh; without membership there is
	// nothing real to serve.
	if state == mesh.Connected {
		n.opts.Responder.ServeNext(n.opts.Listener)
	}

	n.sampleIfDue(ctx)

	n.opts.Faults.FeedOnce()
}

// sampleIfDue refreshes the bank every sampleInterval and hands the
// result to the uplink when one is configured. The refresh runs even
// without an uplink so query responses stay warm between visits.
func (n *Node) sampleIfDue(ctx context.Context) {
	if n.now().Sub(n.lastSample) < sampleInterval {
		return
	}
	n.lastSample = n.now()

	res := n.opts.Bank.RefreshAll()
	if res.Failed() || res.CountMismatch() {
		n.log.Warn("periodic sample left stale readings",
			zap.Int("failures", len(res.Failures)),
			zap.Int("found", res.Found),
			zap.Int("expected", res.Expected))
	}

	if n.opts.Uplink == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	report := n.buildReport(res)
	if err := n.opts.Uplink.Publish(pubCtx, report); err != nil {
		// Reports are best-effort; the next interval brings another.
		n.log.Warn("report publish failed", zap.Error(err))
		return
	}
	n.log.Debug("report published", zap.Int("sensors", len(report.Sensors)))
}

func (n *Node) buildReport(res sensors.RefreshResult) uplink.Report {
	samples := n.opts.Bank.Snapshot()

	rep := uplink.Report{
		NodeID:    n.opts.NodeID,
		At:        res.At,
		Mesh:      n.opts.Mesh.State().String(),
		UptimeSec: int64(n.now().Sub(n.started) / time.Second),
		Sensors:   make([]uplink.SensorReport, 0, len(samples)),
		Failures:  len(res.Failures),
	}
	for _, s := range samples {
		rep.Sensors = append(rep.Sensors, uplink.SensorReport{
			Identity: s.Identity.String(),
			Label:    s.Label,
			Celsius:  s.Celsius,
			Valid:    s.Valid,
		})
	}
	return rep
}
