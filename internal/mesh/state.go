// internal/mesh/state.go
package mesh

// State is the node's view of its mesh membership.
type State uint8

const (
	// Connected is also the boot state: the radio joins during
	// power-up, so the node starts optimistic.
	Connected State = iota
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
