// internal/sensors/roster.go
package sensors

// DefaultRoster is the probe population of the deployed node.
// Identities are the ROM codes of the physically installed probes;
// labels are wire labels and include their separator. The lake probe
// reads a quarter degree high against the reference thermometer, hence
// its offset.
func DefaultRoster() []Spec {
	return []Spec{
		{Identity: mustIdentity("28ff1c6a90150328"), Label: "Lake Water: ", Offset: -0.25},
		{Identity: mustIdentity("28ff8d2c90150341"), Label: "Outside Air: ", Offset: 0},
	}
}

func mustIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}
