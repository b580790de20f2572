// internal/node/node_test.go
package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mkarlsen/meshtemp/internal/mesh"
	"github.com/mkarlsen/meshtemp/internal/responder"
	"github.com/mkarlsen/meshtemp/internal/sensors"
	"github.com/mkarlsen/meshtemp/internal/uplink"
)

// recorder collects the iteration's events in call order.
type recorder struct{ events []string }

type fakeMesh struct {
	rec   *recorder
	state mesh.State
}

func (m *fakeMesh) CheckOnce() mesh.State {
	m.rec.events = append(m.rec.events, "check")
	return m.state
}

func (m *fakeMesh) State() mesh.State { return m.state }

type fakeServer struct {
	rec    *recorder
	served int
}

func (s *fakeServer) ServeNext(responder.Listener) (responder.Outcome, bool) {
	s.rec.events = append(s.rec.events, "serve")
	s.served++
	return responder.OutcomeServe, true
}

type fakeBank struct {
	rec       *recorder
	refreshes int
	samples   []sensors.Sample
	res       sensors.RefreshResult
}

func (b *fakeBank) RefreshAll() sensors.RefreshResult {
	b.rec.events = append(b.rec.events, "refresh")
	b.refreshes++
	return b.res
}

func (b *fakeBank) Snapshot() []sensors.Sample { return b.samples }

type fakeFaults struct {
	rec     *recorder
	arms    int
	feeds   int
	disarms int
	armErr  error
}

func (f *fakeFaults) Arm() error {
	f.arms++
	return f.armErr
}

func (f *fakeFaults) FeedOnce() {
	f.rec.events = append(f.rec.events, "feed")
	f.feeds++
}

func (f *fakeFaults) Disarm() error {
	f.disarms++
	return nil
}

type fakePublisher struct {
	reports []uplink.Report
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, r uplink.Report) error {
	p.reports = append(p.reports, r)
	return p.err
}

type nilListener struct{}

func (nilListener) AcceptPending() (responder.Conn, bool) { return nil, false }

type manualClock struct{ t time.Time }

func (c *manualClock) Now() time.Time          { return c.t }
func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	node   *Node
	clk    *manualClock
	rec    *recorder
	mesh   *fakeMesh
	server *fakeServer
	bank   *fakeBank
	faults *fakeFaults
}

func build(t *testing.T, pub uplink.Publisher) *fixture {
	t.Helper()

	rec := &recorder{}
	f := &fixture{
		rec:    rec,
		mesh:   &fakeMesh{rec: rec, state: mesh.Connected},
		server: &fakeServer{rec: rec},
		bank:   &fakeBank{rec: rec},
		faults: &fakeFaults{rec: rec},
	}

	n, err := New(Options{
		NodeID:    "test-node",
		Mesh:      f.mesh,
		Responder: f.server,
		Listener:  nilListener{},
		Bank:      f.bank,
		Faults:    f.faults,
		Uplink:    pub,
		Log:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f.clk = &manualClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	n.now = f.clk.Now
	n.started = f.clk.Now()
	n.lastSample = f.clk.Now()
	f.node = n
	return f
}

func mustIdentity(t *testing.T, s string) sensors.Identity {
	t.Helper()
	id, err := sensors.ParseIdentity(s)
	if err != nil {
		t.Fatalf("ParseIdentity(%q): %v", s, err)
	}
	return id
}

func sameEvents(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// ---- tests ----

func TestRunOnce_FixedStageOrder(t *testing.T) {
	f := build(t, &fakePublisher{})
	f.clk.Advance(sampleInterval) // make the sample due

	f.node.runOnce(context.Background())

	want := []string{"check", "serve", "refresh", "feed"}
	if !sameEvents(f.rec.events, want) {
		t.Fatalf("iteration order: got %v, want %v", f.rec.events, want)
	}
}

func TestRunOnce_ServeGatedWhileDisconnected(t *testing.T) {
	f := build(t, nil)
	f.mesh.state = mesh.Disconnected

	f.node.runOnce(context.Background())

	if f.server.served != 0 {
		t.Fatalf("served %d queries while disconnected", f.server.served)
	}
	// The watchdog still gets its feed: disconnection is not a fault.
	if f.faults.feeds != 1 {
		t.Fatalf("feeds: got %d, want 1", f.faults.feeds)
	}
}

func TestSample_NotDueLeavesBankAlone(t *testing.T) {
	f := build(t, &fakePublisher{})
	f.clk.Advance(sampleInterval - time.Second)

	f.node.runOnce(context.Background())

	if f.bank.refreshes != 0 {
		t.Fatalf("refreshed %d times before the interval", f.bank.refreshes)
	}
}

func TestSample_PublishesReport(t *testing.T) {
	pub := &fakePublisher{}
	f := build(t, pub)

	at := f.clk.Now().Add(sampleInterval)
	f.bank.res = sensors.RefreshResult{At: at, Found: 2, Expected: 2}
	f.bank.samples = []sensors.Sample{
		{Identity: mustIdentity(t, "28ff1c6a90150328"), Label: "Lake Water: ", Celsius: 4.75, Valid: true},
		{Identity: mustIdentity(t, "28ff8d2c90150341"), Label: "Outside Air: ", Celsius: -3.5, Valid: false},
	}

	f.clk.Advance(sampleInterval)
	f.node.runOnce(context.Background())

	if len(pub.reports) != 1 {
		t.Fatalf("reports published: got %d, want 1", len(pub.reports))
	}
	r := pub.reports[0]
	if r.NodeID != "test-node" || r.Mesh != "connected" || !r.At.Equal(at) {
		t.Fatalf("report envelope: %+v", r)
	}
	if r.UptimeSec != 60 {
		t.Fatalf("uptime: got %d, want 60", r.UptimeSec)
	}
	if len(r.Sensors) != 2 {
		t.Fatalf("sensors in report: got %d", len(r.Sensors))
	}
	if r.Sensors[0].Identity != "28ff1c6a90150328" || r.Sensors[0].Label != "Lake Water: " {
		t.Fatalf("first sensor: %+v", r.Sensors[0])
	}
	if r.Sensors[1].Valid {
		t.Fatalf("stale reading reported as valid")
	}
}

func TestSample_PublishFailureDropsReport(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	f := build(t, pub)

	f.clk.Advance(sampleInterval)
	f.node.runOnce(context.Background())

	// The iteration still completes and the interval still advances:
	// an immediate second iteration must not retry.
	if f.faults.feeds != 1 {
		t.Fatalf("feed skipped after publish failure")
	}
	f.node.runOnce(context.Background())
	if len(pub.reports) != 1 {
		t.Fatalf("publish retried within the interval: %d reports", len(pub.reports))
	}
}

func TestSample_RefreshRunsWithoutUplink(t *testing.T) {
	f := build(t, nil)

	f.clk.Advance(sampleInterval)
	f.node.runOnce(context.Background())

	if f.bank.refreshes != 1 {
		t.Fatalf("refreshes without uplink: got %d, want 1", f.bank.refreshes)
	}
}

func TestRun_ArmsThenDisarmsOnCancel(t *testing.T) {
	f := build(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.node.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.faults.arms != 1 || f.faults.disarms != 1 {
		t.Fatalf("arm/disarm: got %d/%d, want 1/1", f.faults.arms, f.faults.disarms)
	}
}

func TestRun_ArmFailureAborts(t *testing.T) {
	f := build(t, nil)
	f.faults.armErr = errors.New("no watchdog device")

	if err := f.node.Run(context.Background()); err == nil {
		t.Fatalf("expected arm error")
	}
	if f.faults.disarms != 0 {
		t.Fatalf("disarmed after failed arm")
	}
	if len(f.rec.events) != 0 {
		t.Fatalf("loop iterated after failed arm: %v", f.rec.events)
	}
}
