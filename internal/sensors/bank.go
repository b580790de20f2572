// internal/sensors/bank.go
package sensors

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Bank owns the readings for a fixed roster of probes.
// The roster never changes at runtime; readings are overwritten in
// place, never removed. All mutation happens on the control loop; the
// lock exists so snapshot readers can never observe a torn sweep.
type Bank struct {
	roster []Spec
	bus    Bus

	mu       sync.RWMutex
	readings []Reading // index-aligned with roster
}

// NewBank creates a bank over an immutable roster.
func NewBank(roster []Spec, bus Bus) (*Bank, error) {
	if len(roster) == 0 {
		return nil, errors.New("sensors: empty roster")
	}
	if bus == nil {
		return nil, errors.New("sensors: bus required")
	}

	seenID := make(map[Identity]bool, len(roster))
	seenLabel := make(map[string]bool, len(roster))
	for _, s := range roster {
		if seenID[s.Identity] {
			return nil, fmt.Errorf("sensors: duplicate identity %s in roster", s.Identity)
		}
		if s.Label == "" {
			return nil, fmt.Errorf("sensors: probe %s has no label", s.Identity)
		}
		if seenLabel[s.Label] {
			return nil, fmt.Errorf("sensors: duplicate label %q in roster", s.Label)
		}
		seenID[s.Identity] = true
		seenLabel[s.Label] = true
	}

	return &Bank{
		roster:   roster,
		bus:      bus,
		readings: make([]Reading, len(roster)),
	}, nil
}

// RefreshAll re-reads every probe independently.
// A probe that cannot be read keeps its previous value and loses Valid;
// the sweep always visits the whole roster. Calibration is applied at
// store time, so readings are always corrected values.
func (b *Bank) RefreshAll() RefreshResult {
	res := RefreshResult{
		At:       time.Now(),
		Expected: len(b.roster),
	}

	res.Found, res.DiscoverErr = b.bus.DiscoverCount()

	type update struct {
		celsius float64
		ok      bool
	}
	fresh := make([]update, len(b.roster))

	// Bus IO happens lock-free; the sweep commits in one step below.
	for i, s := range b.roster {
		if !b.bus.Reachable(s.Identity) {
			res.Failures = append(res.Failures, Failure{
				Identity: s.Identity, Label: s.Label, Err: ErrUnreachable,
			})
			continue
		}

		c, err := b.bus.ReadCelsius(s.Identity)
		if err != nil {
			res.Failures = append(res.Failures, Failure{
				Identity: s.Identity, Label: s.Label, Err: err,
			})
			continue
		}

		fresh[i] = update{celsius: c + s.Offset, ok: true}
	}

	b.mu.Lock()
	for i := range b.readings {
		if fresh[i].ok {
			b.readings[i] = Reading{Celsius: fresh[i].celsius, Valid: true}
		} else {
			// Keep the stale value; only the freshness claim drops.
			b.readings[i].Valid = false
		}
	}
	b.mu.Unlock()

	return res
}

// Snapshot returns the last known reading of every probe in roster
// order. It never blocks on the bus and is idempotent between sweeps.
func (b *Bank) Snapshot() []Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Sample, len(b.roster))
	for i, s := range b.roster {
		out[i] = Sample{
			Identity: s.Identity,
			Label:    s.Label,
			Celsius:  b.readings[i].Celsius,
			Valid:    b.readings[i].Valid,
		}
	}
	return out
}

// Size is the roster population.
func (b *Bank) Size() int { return len(b.roster) }
